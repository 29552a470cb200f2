package biplot

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// LoadingNorms returns Σ_k loading² per species row.
func LoadingNorms(loadings mat.Matrix) []float64 {
	p, k := loadings.Dims()
	norms := make([]float64, p)
	for i := 0; i < p; i++ {
		var s float64
		for j := 0; j < k; j++ {
			v := loadings.At(i, j)
			s += v * v
		}
		norms[i] = s
	}
	return norms
}

// SelectTopSpecies returns the 0-based row indices of the size species with
// the largest squared loading norm, largest first. Ties keep row order.
// size <= 0 or size >= p selects every species.
func SelectTopSpecies(loadings mat.Matrix, size int) []int {
	norms := LoadingNorms(loadings)
	idx := make([]int, len(norms))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return norms[idx[a]] > norms[idx[b]]
	})
	if size > 0 && size < len(idx) {
		idx = idx[:size]
	}
	return idx
}
