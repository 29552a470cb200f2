package ordination

import (
	"gonum.org/v1/gonum/mat"
)

// Uncertainty holds whatever per-site covariance information a fitted model
// exposes. Mode says which fields are populated.
type Uncertainty struct {
	Mode UncertaintyMode

	// DirectTensor: one k×k prediction-error matrix per site.
	PredictionErrors []*mat.SymDense

	// ReconstructedDiagonal: per-site variances (n×k) or full per-site
	// blocks, a global rotation (k×k, nil for identity) and an additive
	// standard-error adjustment (k×k, optional).
	SiteVariances *mat.Dense
	SiteBlocks    []*mat.SymDense
	Rotation      *mat.Dense
	SEAdjustment  *mat.SymDense
}

// Covariate is one environmental variable measured per site, kept as raw
// cell text until a palette decides whether it is numeric.
type Covariate struct {
	Name   string
	Values []string
}
