package biplot

import (
	"fmt"

	"gllvmord/domain/core"
	"gllvmord/domain/ordination"

	"gonum.org/v1/gonum/mat"
)

// CovarianceSource yields the k×k uncertainty of one site's latent position.
type CovarianceSource interface {
	Mode() ordination.UncertaintyMode
	Covariance(site int) (*mat.SymDense, error)
}

// NewCovarianceSource picks the strategy named by u.Mode and checks its data
// against n sites and k latent dimensions. The mode is never inferred from
// which fields happen to be populated.
func NewCovarianceSource(u ordination.Uncertainty, n, k int) (CovarianceSource, error) {
	switch u.Mode {
	case ordination.UncertaintyNone, "":
		return nil, core.NewMissingUncertaintyError("model provides no per-site covariance")
	case ordination.UncertaintyDirectTensor:
		return newDirectTensor(u.PredictionErrors, n, k)
	case ordination.UncertaintyReconstructedDiagonal:
		return newReconstructed(u, n, k)
	}
	return nil, core.NewInvalidParameterError("uncertainty", fmt.Sprintf("unknown mode %q", u.Mode))
}

type directTensor struct {
	errs []*mat.SymDense
}

func newDirectTensor(errs []*mat.SymDense, n, k int) (*directTensor, error) {
	if len(errs) == 0 {
		return nil, core.NewMissingUncertaintyError("direct mode without prediction errors")
	}
	if len(errs) != n {
		return nil, core.NewDimensionError("prediction error matrices", len(errs), n)
	}
	for i, m := range errs {
		if m == nil {
			return nil, core.NewMissingUncertaintyError(fmt.Sprintf("site %d has no prediction error matrix", i+1))
		}
		if m.SymmetricDim() != k {
			return nil, core.NewDimensionError(fmt.Sprintf("prediction error matrix of site %d", i+1), m.SymmetricDim(), k)
		}
	}
	return &directTensor{errs: errs}, nil
}

func (d *directTensor) Mode() ordination.UncertaintyMode {
	return ordination.UncertaintyDirectTensor
}

func (d *directTensor) Covariance(site int) (*mat.SymDense, error) {
	if site < 0 || site >= len(d.errs) {
		return nil, core.NewInvalidParameterError("site", fmt.Sprintf("index %d outside [0,%d)", site, len(d.errs)))
	}
	return d.errs[site], nil
}

// reconstructed rebuilds cov_i = R·D_i·Rᵀ + S from per-site variances or
// blocks D_i, a global rotation R and an additive adjustment S.
type reconstructed struct {
	n        int
	k        int
	vars     *mat.Dense
	blocks   []*mat.SymDense
	rotation *mat.Dense
	adjust   *mat.SymDense
}

func newReconstructed(u ordination.Uncertainty, n, k int) (*reconstructed, error) {
	r := &reconstructed{n: n, k: k, rotation: u.Rotation, adjust: u.SEAdjustment}

	switch {
	case u.SiteVariances != nil && !u.SiteVariances.IsEmpty():
		vr, vc := u.SiteVariances.Dims()
		if vr != n || vc != k {
			return nil, fmt.Errorf("%w: site variances are %dx%d, want %dx%d", core.ErrDimension, vr, vc, n, k)
		}
		for i := 0; i < vr; i++ {
			for j := 0; j < vc; j++ {
				if u.SiteVariances.At(i, j) < 0 {
					return nil, core.NewInvalidParameterError("site variances", fmt.Sprintf("negative variance at site %d LV%d", i+1, j+1))
				}
			}
		}
		r.vars = u.SiteVariances
	case len(u.SiteBlocks) > 0:
		if len(u.SiteBlocks) != n {
			return nil, core.NewDimensionError("site covariance blocks", len(u.SiteBlocks), n)
		}
		for i, b := range u.SiteBlocks {
			if b == nil || b.SymmetricDim() != k {
				return nil, core.NewDimensionError(fmt.Sprintf("covariance block of site %d", i+1), symDim(b), k)
			}
		}
		r.blocks = u.SiteBlocks
	default:
		return nil, core.NewMissingUncertaintyError("reconstructed mode without site variances")
	}

	if r.rotation != nil {
		rr, rc := r.rotation.Dims()
		if rr != k || rc != k {
			return nil, fmt.Errorf("%w: rotation is %dx%d, want %dx%d", core.ErrDimension, rr, rc, k, k)
		}
	}
	if r.adjust != nil && r.adjust.SymmetricDim() != k {
		return nil, core.NewDimensionError("standard error adjustment", r.adjust.SymmetricDim(), k)
	}
	return r, nil
}

func (r *reconstructed) Mode() ordination.UncertaintyMode {
	return ordination.UncertaintyReconstructedDiagonal
}

func (r *reconstructed) Covariance(site int) (*mat.SymDense, error) {
	if site < 0 || site >= r.n {
		return nil, core.NewInvalidParameterError("site", fmt.Sprintf("index %d outside [0,%d)", site, r.n))
	}

	d := mat.NewDense(r.k, r.k, nil)
	if r.vars != nil {
		for j := 0; j < r.k; j++ {
			d.Set(j, j, r.vars.At(site, j))
		}
	} else {
		d.Copy(r.blocks[site])
	}

	if r.rotation != nil {
		var tmp mat.Dense
		tmp.Mul(r.rotation, d)
		d.Mul(&tmp, r.rotation.T())
	}
	if r.adjust != nil {
		d.Add(d, r.adjust)
	}
	return symmetrize(d), nil
}

// symmetrize returns (m+mᵀ)/2, absorbing round-off asymmetry.
func symmetrize(m mat.Matrix) *mat.SymDense {
	n, _ := m.Dims()
	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			out.SetSym(i, j, 0.5*(m.At(i, j)+m.At(j, i)))
		}
	}
	return out
}

func symDim(s *mat.SymDense) int {
	if s == nil {
		return 0
	}
	return s.SymmetricDim()
}
