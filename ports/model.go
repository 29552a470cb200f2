package ports

import (
	"context"

	"gllvmord/domain/ordination"
)

// FittedModel is the read-only view of a fitted GLLVM that the ordination
// core consumes. Estimation happens elsewhere.
type FittedModel interface {
	// Source names where the model came from (file path, fixture name)
	Source() string

	// Sites returns the n×k latent variable scores
	Sites() ordination.SiteScores

	// Species returns the p×k loadings
	Species() ordination.SpeciesLoadings

	// NumLatent returns k
	NumLatent() int

	// Uncertainty returns per-site covariance information; Mode is
	// UncertaintyNone when the model carries none
	Uncertainty() ordination.Uncertainty

	// Covariates returns environmental covariates aligned with site rows
	Covariates() []ordination.Covariate
}

// ModelSource loads a fitted model from an external store
type ModelSource interface {
	Load(ctx context.Context) (FittedModel, error)
}
