package biplot

import (
	"fmt"

	"gllvmord/domain/core"
	"gllvmord/domain/ordination"

	"gonum.org/v1/gonum/mat"
)

// Layout is the coordinate result for one display mode. Exactly one of
// Passthrough (k == 1) and Scaled (k >= 2) is set.
type Layout struct {
	Mode        ordination.DisplayMode
	Passthrough *mat.Dense
	Scaled      *ordination.Scaled
}

// OneDimensional reports whether the sites are drawn against their index.
func (l *Layout) OneDimensional() bool {
	return l.Passthrough != nil
}

// Scale dispatches on the latent dimension count. A single latent variable
// is returned unscaled for a scatter against site index and cannot be drawn
// as a biplot. Species may be nil only in that one-dimensional scatter case.
func Scale(sites, species *mat.Dense, mode ordination.DisplayMode, alpha float64, axes ordination.Axes) (*Layout, error) {
	if sites == nil || sites.IsEmpty() {
		return nil, fmt.Errorf("%w: site scores", core.ErrEmptyInput)
	}
	if mode != ordination.DisplayScatter && mode != ordination.DisplayBiplot {
		return nil, core.NewInvalidParameterError("display", fmt.Sprintf("%q is not scatter or biplot", mode))
	}
	_, k := sites.Dims()
	if species != nil && !species.IsEmpty() {
		if _, kp := species.Dims(); kp != k {
			return nil, core.NewDimensionMismatchError("latent dimensions of sites and species", k, kp)
		}
	}

	if k == 1 {
		if mode == ordination.DisplayBiplot {
			return nil, core.NewUnsupportedBiplotError(k)
		}
		return &Layout{Mode: mode, Passthrough: mat.DenseCopyOf(sites)}, nil
	}

	scaled, err := ComputeScaledCoordinates(sites, species, alpha, axes)
	if err != nil {
		return nil, err
	}
	return &Layout{Mode: mode, Scaled: scaled}, nil
}
