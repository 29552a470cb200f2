package ordination

import (
	"testing"

	"gllvmord/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestParseAxes(t *testing.T) {
	tests := []struct {
		input    string
		expected Axes
		hasError bool
	}{
		{"1,2", Axes{1, 2}, false},
		{"2 3", Axes{2, 3}, false},
		{"1", Axes{}, true},
		{"a,2", Axes{}, true},
		{"1,2,3", Axes{}, true},
	}

	for _, test := range tests {
		got, err := ParseAxes(test.input)
		if test.hasError {
			assert.Error(t, err, test.input)
			assert.True(t, core.IsInvalidParameterError(err))
			continue
		}
		require.NoError(t, err, test.input)
		assert.Equal(t, test.expected, got)
	}
}

func TestAxesValidate(t *testing.T) {
	assert.NoError(t, Axes{1, 2}.Validate(2))
	assert.NoError(t, Axes{3, 1}.Validate(3))

	err := Axes{1, 1}.Validate(3)
	assert.True(t, core.IsInvalidParameterError(err), "repeated axis")

	err = Axes{0, 1}.Validate(3)
	assert.True(t, core.IsInvalidParameterError(err), "zero axis")

	err = Axes{1, 5}.Validate(3)
	assert.True(t, core.IsDimensionError(err), "axis beyond k")

	x, y := Axes{2, 3}.Labels()
	assert.Equal(t, "LV2", x)
	assert.Equal(t, "LV3", y)
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())

	bad := []func(o *Options){
		func(o *Options) { o.Alpha = -0.1 },
		func(o *Options) { o.Alpha = 1.5 },
		func(o *Options) { o.ConfidenceLevel = 1 },
		func(o *Options) { o.ConfidenceLevel = 0 },
		func(o *Options) { o.JitterAmount = -1 },
		func(o *Options) { o.SpeciesSubsetSize = -2 },
		func(o *Options) { o.Display = "pie" },
	}
	for i, mutate := range bad {
		o := DefaultOptions()
		mutate(&o)
		err := o.Validate()
		assert.True(t, core.IsInvalidParameterError(err), "case %d: %v", i, err)
	}
}

func TestNewSiteScoresLabels(t *testing.T) {
	m := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})

	s, err := NewSiteScores(nil, m)
	require.NoError(t, err)
	assert.Equal(t, []string{"site1", "site2", "site3"}, s.Labels)

	_, err = NewSiteScores([]string{"a"}, m)
	assert.True(t, core.IsDimensionError(err))

	_, err = NewSpeciesLoadings(nil, nil)
	assert.True(t, core.IsDimensionError(err))

	_, err = NewSiteScores([]string{"s1", "s1", "s3"}, m)
	assert.True(t, core.IsInvalidParameterError(err), "got %v", err)
	assert.Contains(t, err.Error(), `"s1" repeats at rows 1 and 2`)

	_, err = NewSpeciesLoadings([]string{"a", "b", "a"}, m)
	assert.True(t, core.IsInvalidParameterError(err), "got %v", err)
}

func TestParseModes(t *testing.T) {
	m, err := ParseDisplayMode("Biplot")
	require.NoError(t, err)
	assert.Equal(t, DisplayBiplot, m)

	u, err := ParseUncertaintyMode("")
	require.NoError(t, err)
	assert.Equal(t, UncertaintyNone, u)

	_, err = ParseUncertaintyMode("dense")
	assert.Error(t, err)
}
