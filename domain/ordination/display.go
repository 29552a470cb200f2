package ordination

import (
	"gonum.org/v1/gonum/mat"
)

// Scaled is the output of the biplot scaling. Sites and Species hold the two
// selected display columns; the Full matrices keep every rotated dimension.
type Scaled struct {
	Sites       *mat.Dense // n×2
	Species     *mat.Dense // p×2
	SitesFull   *mat.Dense // n×k
	SpeciesFull *mat.Dense // p×k

	// B and Bt are the k×k maps applied to raw site scores and raw loadings:
	// diag(scale)·V.
	B  *mat.Dense
	Bt *mat.Dense

	JointNorm []float64
	Axes      Axes
}

// Latent returns k.
func (s *Scaled) Latent() int {
	if s == nil || s.B == nil {
		return 0
	}
	_, k := s.B.Dims()
	return k
}

// Ellipse is a prediction region around one scaled site point.
type Ellipse struct {
	Site       int
	Center     [2]float64
	Covariance *mat.SymDense // 2×2, already projected through B
	Radius     float64
	Level      float64
	Outline    [][2]float64
}

// Point is one renderable marker.
type Point struct {
	Index int
	X     float64
	Y     float64
	Label string
	Group int
}

// Display is everything a renderer needs to draw one ordination.
type Display struct {
	Mode           DisplayMode
	OneDimensional bool
	Alpha          float64
	Sites          []Point
	Species        []Point
	LabeledSpecies []int
	Ellipses       []Ellipse
	Groups         []string
	XLabel         string
	YLabel         string
	Title          string
	Scaled         *Scaled
}

// HasSpecies reports whether the display overlays species.
func (d *Display) HasSpecies() bool {
	return d.Mode == DisplayBiplot && len(d.Species) > 0
}
