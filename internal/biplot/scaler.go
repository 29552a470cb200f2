// Package biplot computes jointly scaled ordination coordinates for sites and
// species from a fitted latent variable model.
//
// The construction follows the symmetric biplot scaling: column norms of the
// site scores and the species loadings are multiplied into a joint norm per
// latent dimension, alpha splits that joint norm between the two point sets,
// and both scaled matrices are rotated by the right singular vectors of the
// site scores so that they share one basis.
package biplot

import (
	"fmt"
	"math"

	"gllvmord/domain/core"
	"gllvmord/domain/ordination"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ComputeScaledCoordinates scales and rotates sites (n×k) and species (p×k)
// and returns the columns named by axes. Inputs are not modified.
func ComputeScaledCoordinates(sites, species *mat.Dense, alpha float64, axes ordination.Axes) (*ordination.Scaled, error) {
	k, err := checkShapes(sites, species)
	if err != nil {
		return nil, err
	}
	if k < 2 {
		return nil, core.NewDimensionError("latent dimensions for scaling", k, 2)
	}
	if err := ordination.ValidateAlpha(alpha); err != nil {
		return nil, err
	}
	if err := axes.Validate(k); err != nil {
		return nil, err
	}

	siteNorm := columnNorms(sites)
	speciesNorm := columnNorms(species)
	for j := 0; j < k; j++ {
		if siteNorm[j] == 0 {
			return nil, core.NewInvalidParameterError("site scores", fmt.Sprintf("LV%d has zero norm", j+1))
		}
		if speciesNorm[j] == 0 {
			return nil, core.NewInvalidParameterError("species loadings", fmt.Sprintf("LV%d has zero norm", j+1))
		}
	}

	v, err := rightSingularVectors(sites)
	if err != nil {
		return nil, err
	}

	joint := make([]float64, k)
	siteScale := make([]float64, k)
	speciesScale := make([]float64, k)
	for j := 0; j < k; j++ {
		joint[j] = siteNorm[j] * speciesNorm[j]
		siteScale[j] = math.Pow(joint[j], alpha) / siteNorm[j]
		speciesScale[j] = math.Pow(joint[j], 1-alpha) / speciesNorm[j]
	}

	// B = diag(siteScale)·V, so sites·B is scale-then-rotate.
	b := scaledRotation(siteScale, v)
	bt := scaledRotation(speciesScale, v)

	var sitesFull, speciesFull mat.Dense
	sitesFull.Mul(sites, b)
	speciesFull.Mul(species, bt)

	return &ordination.Scaled{
		Sites:       selectAxes(&sitesFull, axes),
		Species:     selectAxes(&speciesFull, axes),
		SitesFull:   &sitesFull,
		SpeciesFull: &speciesFull,
		B:           b,
		Bt:          bt,
		JointNorm:   joint,
		Axes:        axes,
	}, nil
}

// checkShapes returns the shared latent dimension count.
func checkShapes(sites, species *mat.Dense) (int, error) {
	if sites == nil || sites.IsEmpty() {
		return 0, fmt.Errorf("%w: site scores", core.ErrEmptyInput)
	}
	if species == nil || species.IsEmpty() {
		return 0, fmt.Errorf("%w: species loadings", core.ErrEmptyInput)
	}
	_, k := sites.Dims()
	_, kp := species.Dims()
	if k != kp {
		return 0, core.NewDimensionMismatchError("latent dimensions of sites and species", k, kp)
	}
	return k, nil
}

func columnNorms(m *mat.Dense) []float64 {
	r, c := m.Dims()
	norms := make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, m)
		norms[j] = floats.Norm(col, 2)
	}
	return norms
}

// rightSingularVectors returns the full k×k V of m = UΣVᵀ.
func rightSingularVectors(m *mat.Dense) (*mat.Dense, error) {
	var svd mat.SVD
	if ok := svd.Factorize(m, mat.SVDFullV); !ok {
		return nil, core.NewInvalidParameterError("site scores", "singular value decomposition did not converge")
	}
	var v mat.Dense
	svd.VTo(&v)
	return &v, nil
}

func scaledRotation(scale []float64, v *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.Mul(mat.NewDiagDense(len(scale), scale), v)
	return &out
}

func selectAxes(m *mat.Dense, axes ordination.Axes) *mat.Dense {
	r, _ := m.Dims()
	x, y := axes.Index()
	out := mat.NewDense(r, 2, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, m.At(i, x))
		out.Set(i, 1, m.At(i, y))
	}
	return out
}
