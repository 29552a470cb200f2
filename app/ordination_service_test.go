package app

import (
	"context"
	"errors"
	"testing"

	"gllvmord/adapters/rng"
	"gllvmord/domain/core"
	"gllvmord/domain/ordination"
	"gllvmord/domain/run"
	"gllvmord/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// Mock implementations for testing
type MockModelSource struct {
	mock.Mock
}

func (m *MockModelSource) Load(ctx context.Context) (ports.FittedModel, error) {
	args := m.Called(ctx)
	model, _ := args.Get(0).(ports.FittedModel)
	return model, args.Error(1)
}

type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) Render(ctx context.Context, rc ports.RenderContext, display *ordination.Display) error {
	args := m.Called(ctx, rc, display)
	return args.Error(0)
}

type MockReportWriter struct {
	mock.Mock
}

func (m *MockReportWriter) WriteReport(ctx context.Context, manifest *run.Manifest, display *ordination.Display, warnings []string) error {
	args := m.Called(ctx, manifest, display, warnings)
	return args.Error(0)
}

type fakeModel struct {
	sites       ordination.SiteScores
	species     ordination.SpeciesLoadings
	uncertainty ordination.Uncertainty
	covariates  []ordination.Covariate
	latent      int // overrides the declared k when set
}

func (f *fakeModel) Source() string                      { return "fixture" }
func (f *fakeModel) Sites() ordination.SiteScores        { return f.sites }
func (f *fakeModel) Species() ordination.SpeciesLoadings { return f.species }
func (f *fakeModel) Uncertainty() ordination.Uncertainty { return f.uncertainty }
func (f *fakeModel) Covariates() []ordination.Covariate  { return f.covariates }

func (f *fakeModel) NumLatent() int {
	if f.latent != 0 {
		return f.latent
	}
	_, k := f.sites.Dims()
	return k
}

func newFakeModel(t *testing.T) *fakeModel {
	t.Helper()
	sites, err := ordination.NewSiteScores(nil, mat.NewDense(4, 2, []float64{
		1.2, -0.4,
		-0.3, 0.9,
		0.5, 0.1,
		-1.1, -0.6,
	}))
	require.NoError(t, err)
	species, err := ordination.NewSpeciesLoadings([]string{"a", "b", "c"}, mat.NewDense(3, 2, []float64{
		0.2, 0.1,
		1.5, -0.7,
		-0.4, 0.9,
	}))
	require.NoError(t, err)

	errs := make([]*mat.SymDense, 4)
	for i := range errs {
		errs[i] = mat.NewSymDense(2, []float64{0.05, 0.01, 0.01, 0.04})
	}
	return &fakeModel{
		sites:   sites,
		species: species,
		uncertainty: ordination.Uncertainty{
			Mode:             ordination.UncertaintyDirectTensor,
			PredictionErrors: errs,
		},
		covariates: []ordination.Covariate{
			{Name: "habitat", Values: []string{"wet", "dry", "wet", "NA"}},
		},
	}
}

func TestOrdinationService_Run(t *testing.T) {
	model := newFakeModel(t)
	source := new(MockModelSource)
	source.On("Load", mock.Anything).Return(model, nil)
	renderer := new(MockRenderer)
	renderer.On("Render", mock.Anything, mock.AnythingOfType("ports.RenderContext"), mock.AnythingOfType("*ordination.Display")).Return(nil)
	report := new(MockReportWriter)
	report.On("WriteReport", mock.Anything, mock.AnythingOfType("*run.Manifest"), mock.AnythingOfType("*ordination.Display"), mock.Anything).Return(nil)

	opts := ordination.DefaultOptions()
	opts.SpeciesSubsetSize = 1
	opts.Ellipses = true

	svc := NewOrdinationService(source, renderer, report, rng.New(), nil)
	result, err := svc.Run(context.Background(), Request{
		Options:   opts,
		ColorBy:   "habitat",
		ColorBins: 4,
		Render:    ports.RenderContext{OutputPath: "out.png"},
	})
	require.NoError(t, err)

	d := result.Display
	assert.Empty(t, result.Warnings)
	assert.Equal(t, "LV1", d.XLabel)
	assert.Equal(t, "LV2", d.YLabel)
	require.Len(t, d.Sites, 4)
	assert.Equal(t, "site1", d.Sites[0].Label)
	assert.Equal(t, d.Scaled.Sites.At(2, 1), d.Sites[2].Y)
	require.Len(t, d.Species, 3)
	assert.Equal(t, []int{1}, d.LabeledSpecies, "species b has the largest loading norm")
	assert.Len(t, d.Ellipses, 4)
	assert.Equal(t, []string{"wet", "dry"}, d.Groups)
	assert.Equal(t, []int{0, 1, 0, -1}, []int{d.Sites[0].Group, d.Sites[1].Group, d.Sites[2].Group, d.Sites[3].Group})

	assert.Equal(t, 4, result.Manifest.Sites)
	assert.Equal(t, 3, result.Manifest.Species)
	assert.Equal(t, 2, result.Manifest.Latent)
	assert.NoError(t, result.Manifest.Validate())

	source.AssertExpectations(t)
	renderer.AssertExpectations(t)
	report.AssertExpectations(t)
}

func TestOrdinationService_MissingUncertaintyDegrades(t *testing.T) {
	model := newFakeModel(t)
	model.uncertainty = ordination.Uncertainty{Mode: ordination.UncertaintyNone}

	opts := ordination.DefaultOptions()
	opts.Ellipses = true

	svc := NewOrdinationService(nil, nil, nil, rng.New(), nil)
	result, err := svc.Compute(context.Background(), model, Request{Options: opts})
	require.NoError(t, err)

	assert.Empty(t, result.Display.Ellipses)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "ellipses skipped")
}

func TestOrdinationService_Scatter(t *testing.T) {
	opts := ordination.DefaultOptions()
	opts.Display = ordination.DisplayScatter

	svc := NewOrdinationService(nil, nil, nil, rng.New(), nil)
	result, err := svc.Compute(context.Background(), newFakeModel(t), Request{Options: opts})
	require.NoError(t, err)

	assert.False(t, result.Display.HasSpecies())
	assert.Empty(t, result.Display.Species)
	assert.Empty(t, result.Display.LabeledSpecies)
	assert.Len(t, result.Display.Sites, 4)
}

func TestOrdinationService_OneLatentVariable(t *testing.T) {
	sites, err := ordination.NewSiteScores(nil, mat.NewDense(3, 1, []float64{0.4, -0.2, 1.0}))
	require.NoError(t, err)
	species, err := ordination.NewSpeciesLoadings(nil, mat.NewDense(2, 1, []float64{1, 2}))
	require.NoError(t, err)
	model := &fakeModel{sites: sites, species: species}

	renderer := new(MockRenderer)
	svc := NewOrdinationService(nil, renderer, nil, rng.New(), nil)

	opts := ordination.DefaultOptions()
	_, err = svc.Compute(context.Background(), model, Request{Options: opts, Render: ports.RenderContext{OutputPath: "x.png"}})
	assert.True(t, core.IsUnsupportedBiplotError(err), "got %v", err)
	renderer.AssertNotCalled(t, "Render", mock.Anything, mock.Anything, mock.Anything)

	opts.Display = ordination.DisplayScatter
	opts.Ellipses = true
	result, err := svc.Compute(context.Background(), model, Request{Options: opts})
	require.NoError(t, err)

	d := result.Display
	assert.True(t, d.OneDimensional)
	assert.Nil(t, d.Scaled)
	require.Len(t, d.Sites, 3)
	assert.Equal(t, 2.0, d.Sites[1].X)
	assert.Equal(t, -0.2, d.Sites[1].Y)
	assert.Len(t, result.Warnings, 1)
}

func TestOrdinationService_UnlabeledModel(t *testing.T) {
	model := &fakeModel{
		sites:   ordination.SiteScores{Values: mat.NewDense(3, 2, []float64{1, 0.5, -0.4, 0.2, 0.3, -0.9})},
		species: ordination.SpeciesLoadings{Values: mat.NewDense(2, 2, []float64{0.7, -0.1, 0.2, 1.1})},
	}

	svc := NewOrdinationService(nil, nil, nil, rng.New(), nil)
	result, err := svc.Compute(context.Background(), model, Request{Options: ordination.DefaultOptions()})
	require.NoError(t, err)

	require.Len(t, result.Display.Sites, 3)
	assert.Equal(t, "site1", result.Display.Sites[0].Label)
	assert.Equal(t, "site3", result.Display.Sites[2].Label)
	require.Len(t, result.Display.Species, 2)
	assert.Equal(t, "species2", result.Display.Species[1].Label)

	model.sites.Labels = []string{"only-one"}
	_, err = svc.Compute(context.Background(), model, Request{Options: ordination.DefaultOptions()})
	assert.True(t, core.IsDimensionError(err), "got %v", err)
}

func TestOrdinationService_JitterIsSeeded(t *testing.T) {
	model := newFakeModel(t)
	opts := ordination.DefaultOptions()
	opts.JitterAmount = 0.05

	svc := NewOrdinationService(nil, nil, nil, rng.New(), nil)
	a, err := svc.Compute(context.Background(), model, Request{Options: opts})
	require.NoError(t, err)
	b, err := svc.Compute(context.Background(), model, Request{Options: opts})
	require.NoError(t, err)

	assert.Equal(t, a.Display.Sites, b.Display.Sites)
	assert.Equal(t, a.Manifest.Fingerprint.Fingerprint, b.Manifest.Fingerprint.Fingerprint)
	assert.NotEqual(t, a.Manifest.RunID, b.Manifest.RunID)

	for i, p := range a.Display.Sites {
		assert.InDelta(t, a.Display.Scaled.Sites.At(i, 0), p.X, 0.05)
		assert.InDelta(t, a.Display.Scaled.Sites.At(i, 1), p.Y, 0.05)
	}

	opts.Seed = 7
	c, err := svc.Compute(context.Background(), model, Request{Options: opts})
	require.NoError(t, err)
	assert.NotEqual(t, a.Display.Sites, c.Display.Sites)
	assert.NotEqual(t, a.Manifest.Fingerprint.Fingerprint, c.Manifest.Fingerprint.Fingerprint)

	noRNG := NewOrdinationService(nil, nil, nil, nil, nil)
	_, err = noRNG.Compute(context.Background(), model, Request{Options: opts})
	assert.True(t, core.IsInvalidParameterError(err))
}

func TestOrdinationService_UnknownCovariate(t *testing.T) {
	svc := NewOrdinationService(nil, nil, nil, rng.New(), nil)
	result, err := svc.Compute(context.Background(), newFakeModel(t), Request{
		Options:   ordination.DefaultOptions(),
		ColorBy:   "elevation",
		ColorBins: 3,
	})
	require.NoError(t, err)
	assert.Empty(t, result.Display.Groups)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "elevation")
}

func TestOrdinationService_Errors(t *testing.T) {
	loadErr := errors.New("disk on fire")
	source := new(MockModelSource)
	source.On("Load", mock.Anything).Return(nil, loadErr)

	svc := NewOrdinationService(source, nil, nil, rng.New(), nil)
	_, err := svc.Run(context.Background(), Request{Options: ordination.DefaultOptions()})
	assert.ErrorIs(t, err, loadErr)

	opts := ordination.DefaultOptions()
	opts.Alpha = 2
	_, err = svc.Compute(context.Background(), newFakeModel(t), Request{Options: opts})
	assert.True(t, core.IsInvalidParameterError(err))

	opts = ordination.DefaultOptions()
	opts.Axes = ordination.Axes{X: 1, Y: 3}
	_, err = svc.Compute(context.Background(), newFakeModel(t), Request{Options: opts})
	assert.True(t, core.IsDimensionError(err))

	overdeclared := newFakeModel(t)
	overdeclared.latent = 3
	_, err = svc.Compute(context.Background(), overdeclared, Request{Options: ordination.DefaultOptions()})
	assert.True(t, core.IsDimensionError(err), "declared k disagrees with the score matrix")

	renderErr := errors.New("no ink")
	renderer := new(MockRenderer)
	renderer.On("Render", mock.Anything, mock.Anything, mock.Anything).Return(renderErr)
	svc = NewOrdinationService(nil, renderer, nil, rng.New(), nil)
	_, err = svc.Compute(context.Background(), newFakeModel(t), Request{
		Options: ordination.DefaultOptions(),
		Render:  ports.RenderContext{OutputPath: "x.png"},
	})
	assert.ErrorIs(t, err, renderErr)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.Compute(ctx, newFakeModel(t), Request{Options: ordination.DefaultOptions()})
	assert.ErrorIs(t, err, context.Canceled)
}
