// Package palette assigns sites to color groups from an environmental
// covariate: quantile bins for numeric covariates, one group per level for
// categorical ones.
package palette

import (
	"fmt"
	"strconv"
	"strings"

	"gllvmord/domain/core"
	"gllvmord/domain/ordination"

	"github.com/montanaflynn/stats"
)

// Missing is the group of a site whose covariate value is absent.
const Missing = -1

// Assignment maps each site to a group and names the groups.
type Assignment struct {
	Covariate string
	Numeric   bool
	Groups    []int
	Labels    []string
}

// Assign groups the sites by cov. bins applies to numeric covariates only.
func Assign(cov ordination.Covariate, bins int) (*Assignment, error) {
	if len(cov.Values) == 0 {
		return nil, fmt.Errorf("%w: covariate %q has no values", core.ErrEmptyInput, cov.Name)
	}
	if values, ok := parseNumeric(cov.Values); ok {
		if bins < 1 {
			return nil, core.NewInvalidParameterError("color_bins", "must be at least 1")
		}
		return quantileBins(cov.Name, values, bins)
	}
	return levels(cov.Name, cov.Values), nil
}

func isMissing(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, "NA") || strings.EqualFold(s, "NaN")
}

// parseNumeric returns values with nil for missing cells; ok is false if any
// present cell is not a number.
func parseNumeric(raw []string) ([]*float64, bool) {
	out := make([]*float64, len(raw))
	present := 0
	for i, s := range raw {
		if isMissing(s) {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, false
		}
		out[i] = &v
		present++
	}
	return out, present > 0
}

func quantileBins(name string, values []*float64, bins int) (*Assignment, error) {
	data := make(stats.Float64Data, 0, len(values))
	for _, v := range values {
		if v != nil {
			data = append(data, *v)
		}
	}

	lo, err := data.Min()
	if err != nil {
		return nil, err
	}
	hi, err := data.Max()
	if err != nil {
		return nil, err
	}

	breaks := make([]float64, 0, bins-1)
	for i := 1; i < bins; i++ {
		b, err := stats.PercentileNearestRank(data, 100*float64(i)/float64(bins))
		if err != nil {
			return nil, err
		}
		breaks = append(breaks, b)
	}

	groups := make([]int, len(values))
	for i, v := range values {
		if v == nil {
			groups[i] = Missing
			continue
		}
		g := 0
		for g < len(breaks) && *v > breaks[g] {
			g++
		}
		groups[i] = g
	}

	edges := append(append([]float64{lo}, breaks...), hi)
	labels := make([]string, bins)
	for g := 0; g < bins; g++ {
		open := "("
		if g == 0 {
			open = "["
		}
		labels[g] = fmt.Sprintf("%s%.3g, %.3g]", open, edges[g], edges[g+1])
	}

	return &Assignment{Covariate: name, Numeric: true, Groups: groups, Labels: labels}, nil
}

// levels numbers categories in order of first appearance.
func levels(name string, raw []string) *Assignment {
	index := make(map[string]int)
	var labels []string
	groups := make([]int, len(raw))
	for i, s := range raw {
		if isMissing(s) {
			groups[i] = Missing
			continue
		}
		s = strings.TrimSpace(s)
		g, ok := index[s]
		if !ok {
			g = len(labels)
			index[s] = g
			labels = append(labels, s)
		}
		groups[i] = g
	}
	return &Assignment{Covariate: name, Groups: groups, Labels: labels}
}
