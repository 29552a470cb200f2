package biplot

import (
	"fmt"
	"math"

	"gllvmord/domain/core"
	"gllvmord/domain/ordination"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// EllipseSegments is the number of segments in an ellipse outline.
const EllipseSegments = 51

// ChiSquaredRadius is sqrt of the chi-squared quantile with k degrees of
// freedom at level.
func ChiSquaredRadius(level float64, k int) (float64, error) {
	if err := ordination.ValidateLevel(level); err != nil {
		return 0, err
	}
	if k < 1 {
		return 0, core.NewDimensionError("degrees of freedom", k, 1)
	}
	return math.Sqrt(distuv.ChiSquared{K: float64(k)}.Quantile(level)), nil
}

// ComputePredictionEllipse projects the site's latent covariance through the
// site map b (Bᵀ·Σ·B), keeps the 2×2 block of axes and builds the region of
// the given level around center.
func ComputePredictionEllipse(site int, source CovarianceSource, b *mat.Dense, level float64, axes ordination.Axes, center [2]float64) (*ordination.Ellipse, error) {
	if err := ordination.ValidateLevel(level); err != nil {
		return nil, err
	}
	if source == nil {
		return nil, core.NewMissingUncertaintyError("no covariance source for this model")
	}
	if b == nil {
		return nil, core.NewInvalidParameterError("rotation", "site map B is nil")
	}
	k, kc := b.Dims()
	if k != kc {
		return nil, fmt.Errorf("%w: site map is %dx%d, want square", core.ErrDimension, k, kc)
	}
	if err := axes.Validate(k); err != nil {
		return nil, err
	}

	cov, err := source.Covariance(site)
	if err != nil {
		return nil, err
	}
	if cov == nil {
		return nil, core.NewMissingUncertaintyError(fmt.Sprintf("site %d has no covariance", site+1))
	}
	if cov.SymmetricDim() != k {
		return nil, core.NewDimensionError(fmt.Sprintf("covariance of site %d", site+1), cov.SymmetricDim(), k)
	}

	var tmp, proj mat.Dense
	tmp.Mul(b.T(), cov)
	proj.Mul(&tmp, b)

	x, y := axes.Index()
	block := mat.NewSymDense(2, []float64{
		proj.At(x, x), 0.5 * (proj.At(x, y) + proj.At(y, x)),
		0.5 * (proj.At(x, y) + proj.At(y, x)), proj.At(y, y),
	})

	radius, err := ChiSquaredRadius(level, k)
	if err != nil {
		return nil, err
	}
	outline, err := ellipseOutline(center, block, radius)
	if err != nil {
		return nil, err
	}

	return &ordination.Ellipse{
		Site:       site,
		Center:     center,
		Covariance: block,
		Radius:     radius,
		Level:      level,
		Outline:    outline,
	}, nil
}

// ellipseOutline traces center + r·(cos t·√λ₁·v₁ + sin t·√λ₂·v₂).
func ellipseOutline(center [2]float64, cov *mat.SymDense, radius float64) ([][2]float64, error) {
	var eig mat.EigenSym
	if ok := eig.Factorize(cov, true); !ok {
		return nil, core.NewInvalidParameterError("covariance", "eigendecomposition failed")
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	// Round-off can leave a PSD block with a tiny negative eigenvalue.
	sd := make([]float64, len(vals))
	for i, v := range vals {
		if v < 0 {
			v = 0
		}
		sd[i] = math.Sqrt(v)
	}

	outline := make([][2]float64, EllipseSegments+1)
	for i := 0; i <= EllipseSegments; i++ {
		t := 2 * math.Pi * float64(i) / EllipseSegments
		a := radius * math.Cos(t) * sd[0]
		c := radius * math.Sin(t) * sd[1]
		outline[i] = [2]float64{
			center[0] + a*vecs.At(0, 0) + c*vecs.At(0, 1),
			center[1] + a*vecs.At(1, 0) + c*vecs.At(1, 1),
		}
	}
	return outline, nil
}

// EllipsesFor computes one region per site of a scaled layout, centered on
// the scaled site points.
func EllipsesFor(scaled *ordination.Scaled, source CovarianceSource, level float64) ([]ordination.Ellipse, error) {
	if scaled == nil {
		return nil, core.NewInvalidParameterError("layout", "scaled coordinates required")
	}
	if source == nil {
		return nil, core.NewMissingUncertaintyError("no covariance source for this model")
	}
	n, _ := scaled.Sites.Dims()
	out := make([]ordination.Ellipse, 0, n)
	for i := 0; i < n; i++ {
		center := [2]float64{scaled.Sites.At(i, 0), scaled.Sites.At(i, 1)}
		e, err := ComputePredictionEllipse(i, source, scaled.B, level, scaled.Axes, center)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, nil
}
