package ordination

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gllvmord/domain/core"

	"gonum.org/v1/gonum/mat"
)

// SiteScores is the n×k latent variable matrix of a fitted model. Rows are
// sites in the order the model was fitted on.
type SiteScores struct {
	Labels []string
	Values *mat.Dense
}

// SpeciesLoadings is the p×k loading matrix, column-aligned with SiteScores.
type SpeciesLoadings struct {
	Labels []string
	Values *mat.Dense
}

// NewSiteScores validates labels against the matrix shape. Nil labels are
// replaced with "site1".."siteN"; given labels must be unique.
func NewSiteScores(labels []string, values *mat.Dense) (SiteScores, error) {
	l, err := checkLabels("site", labels, values)
	if err != nil {
		return SiteScores{}, err
	}
	return SiteScores{Labels: l, Values: values}, nil
}

// NewSpeciesLoadings validates labels against the matrix shape. Labels must
// be unique.
func NewSpeciesLoadings(labels []string, values *mat.Dense) (SpeciesLoadings, error) {
	l, err := checkLabels("species", labels, values)
	if err != nil {
		return SpeciesLoadings{}, err
	}
	return SpeciesLoadings{Labels: l, Values: values}, nil
}

// Dims returns (n, k). A nil matrix has zero dims.
func (s SiteScores) Dims() (int, int) {
	if s.Values == nil {
		return 0, 0
	}
	return s.Values.Dims()
}

// Dims returns (p, k).
func (s SpeciesLoadings) Dims() (int, int) {
	if s.Values == nil {
		return 0, 0
	}
	return s.Values.Dims()
}

func checkLabels(prefix string, labels []string, values *mat.Dense) ([]string, error) {
	if values == nil || values.IsEmpty() {
		return nil, fmt.Errorf("%w: %s matrix", core.ErrEmptyInput, prefix)
	}
	r, _ := values.Dims()
	if len(labels) == 0 {
		labels = make([]string, r)
		for i := range labels {
			labels[i] = prefix + strconv.Itoa(i+1)
		}
		return labels, nil
	}
	if len(labels) != r {
		return nil, core.NewDimensionError(prefix+" labels", len(labels), r)
	}
	seen := make(map[string]int, r)
	for i, l := range labels {
		if first, ok := seen[l]; ok {
			return nil, core.NewInvalidParameterError(prefix+" labels", fmt.Sprintf("%q repeats at rows %d and %d", l, first+1, i+1))
		}
		seen[l] = i
	}
	return labels, nil
}

// Axes selects the two latent dimensions shown on x and y, 1-based.
type Axes struct {
	X int `yaml:"x" json:"x"`
	Y int `yaml:"y" json:"y"`
}

// DefaultAxes is (1,2).
func DefaultAxes() Axes {
	return Axes{X: 1, Y: 2}
}

// ParseAxes parses "1,2" or "1 2".
func ParseAxes(s string) (Axes, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	if len(fields) != 2 {
		return Axes{}, core.NewInvalidParameterError("axes", fmt.Sprintf("%q must name two dimensions", s))
	}
	x, err := strconv.Atoi(fields[0])
	if err != nil {
		return Axes{}, core.NewInvalidParameterError("axes", fmt.Sprintf("%q is not an integer", fields[0]))
	}
	y, err := strconv.Atoi(fields[1])
	if err != nil {
		return Axes{}, core.NewInvalidParameterError("axes", fmt.Sprintf("%q is not an integer", fields[1]))
	}
	return Axes{X: x, Y: y}, nil
}

// Validate checks the pair against k latent dimensions. Non-positive or
// repeated indices are invalid parameters; indices beyond k are dimension
// errors.
func (a Axes) Validate(k int) error {
	if a.X < 1 || a.Y < 1 {
		return core.NewInvalidParameterError("axes", fmt.Sprintf("(%d,%d) must be 1-based", a.X, a.Y))
	}
	if a.X == a.Y {
		return core.NewInvalidParameterError("axes", fmt.Sprintf("(%d,%d) must be distinct", a.X, a.Y))
	}
	if a.X > k || a.Y > k {
		return fmt.Errorf("%w: axes (%d,%d) exceed %d latent dimensions", core.ErrDimension, a.X, a.Y, k)
	}
	return nil
}

// Index returns the 0-based column indices.
func (a Axes) Index() (int, int) {
	return a.X - 1, a.Y - 1
}

// Labels returns axis titles such as "LV1" and "LV2".
func (a Axes) Labels() (string, string) {
	return "LV" + strconv.Itoa(a.X), "LV" + strconv.Itoa(a.Y)
}

func (a Axes) String() string {
	return fmt.Sprintf("%d,%d", a.X, a.Y)
}

// DisplayMode selects between a site-only ordination and a biplot.
type DisplayMode string

const (
	DisplayScatter DisplayMode = "scatter"
	DisplayBiplot  DisplayMode = "biplot"
)

// ParseDisplayMode accepts "scatter" or "biplot".
func ParseDisplayMode(s string) (DisplayMode, error) {
	switch DisplayMode(strings.ToLower(strings.TrimSpace(s))) {
	case DisplayScatter:
		return DisplayScatter, nil
	case DisplayBiplot:
		return DisplayBiplot, nil
	}
	return "", core.NewInvalidParameterError("display", fmt.Sprintf("%q is not scatter or biplot", s))
}

// UncertaintyMode tags which per-site covariance representation a model
// provides.
type UncertaintyMode string

const (
	UncertaintyNone                  UncertaintyMode = "none"
	UncertaintyDirectTensor          UncertaintyMode = "direct"
	UncertaintyReconstructedDiagonal UncertaintyMode = "reconstructed"
)

// ParseUncertaintyMode accepts "none", "direct" or "reconstructed".
func ParseUncertaintyMode(s string) (UncertaintyMode, error) {
	switch UncertaintyMode(strings.ToLower(strings.TrimSpace(s))) {
	case UncertaintyNone, "":
		return UncertaintyNone, nil
	case UncertaintyDirectTensor:
		return UncertaintyDirectTensor, nil
	case UncertaintyReconstructedDiagonal:
		return UncertaintyReconstructedDiagonal, nil
	}
	return "", core.NewInvalidParameterError("uncertainty", fmt.Sprintf("%q is not none, direct or reconstructed", s))
}

// Options is the configuration surface of one ordination call.
type Options struct {
	Alpha             float64     `yaml:"alpha"`
	Axes              Axes        `yaml:"axes"`
	Display           DisplayMode `yaml:"display"`
	SpeciesSubsetSize int         `yaml:"ind_spp"` // 0 means all species
	ConfidenceLevel   float64     `yaml:"level"`
	JitterAmount      float64     `yaml:"jitter"`
	Ellipses          bool        `yaml:"ellipses"`
	Seed              int64       `yaml:"seed"`
}

// DefaultOptions returns alpha 0.5, axes (1,2), biplot, all species, 95%
// regions, no jitter.
func DefaultOptions() Options {
	return Options{
		Alpha:           0.5,
		Axes:            DefaultAxes(),
		Display:         DisplayBiplot,
		ConfidenceLevel: 0.95,
		Seed:            42,
	}
}

// Validate checks every option that does not depend on the model.
func (o Options) Validate() error {
	if err := ValidateAlpha(o.Alpha); err != nil {
		return err
	}
	if o.Display != DisplayScatter && o.Display != DisplayBiplot {
		return core.NewInvalidParameterError("display", fmt.Sprintf("%q is not scatter or biplot", o.Display))
	}
	if o.SpeciesSubsetSize < 0 {
		return core.NewInvalidParameterError("ind_spp", "must be >= 0")
	}
	if err := ValidateLevel(o.ConfidenceLevel); err != nil {
		return err
	}
	if o.JitterAmount < 0 || math.IsNaN(o.JitterAmount) || math.IsInf(o.JitterAmount, 0) {
		return core.NewInvalidParameterError("jitter", "must be a finite value >= 0")
	}
	return nil
}

// Map flattens the options for hashing.
func (o Options) Map() map[string]interface{} {
	return map[string]interface{}{
		"alpha":    o.Alpha,
		"axes":     o.Axes.String(),
		"display":  string(o.Display),
		"ind_spp":  o.SpeciesSubsetSize,
		"level":    o.ConfidenceLevel,
		"jitter":   o.JitterAmount,
		"ellipses": o.Ellipses,
		"seed":     o.Seed,
	}
}

// ValidateAlpha requires alpha in [0,1].
func ValidateAlpha(alpha float64) error {
	if math.IsNaN(alpha) || alpha < 0 || alpha > 1 {
		return core.NewInvalidParameterError("alpha", fmt.Sprintf("%v outside [0,1]", alpha))
	}
	return nil
}

// ValidateLevel requires a confidence level in (0,1).
func ValidateLevel(level float64) error {
	if math.IsNaN(level) || level <= 0 || level >= 1 {
		return core.NewInvalidParameterError("level", fmt.Sprintf("%v outside (0,1)", level))
	}
	return nil
}
