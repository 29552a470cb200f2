// Package profiling summarizes the spread of ordination coordinates along
// one axis.
package profiling

import (
	"math"

	"gllvmord/domain/core"

	"github.com/montanaflynn/stats"
)

// Summary holds the distribution shape of one coordinate column
type Summary struct {
	N        int
	Mean     float64
	StdDev   float64 // sample standard deviation, 0 when N < 2
	Min      float64
	Max      float64
	Median   float64
	Q25      float64
	Q75      float64
	Skewness float64
	Outliers int // outside 1.5 IQR of the quartiles
}

// Summarize computes the summary of data
func Summarize(data []float64) (Summary, error) {
	s := Summary{N: len(data)}
	if len(data) == 0 {
		return s, core.ErrEmptyInput
	}

	var err error
	if s.Mean, err = stats.Mean(data); err != nil {
		return s, err
	}
	if len(data) > 1 {
		if s.StdDev, err = stats.StandardDeviationSample(data); err != nil {
			return s, err
		}
	}
	if s.Min, err = stats.Min(data); err != nil {
		return s, err
	}
	if s.Max, err = stats.Max(data); err != nil {
		return s, err
	}
	if s.Median, err = stats.Median(data); err != nil {
		return s, err
	}

	// Quartiles for IQR-based outlier detection
	s.Q25, s.Q75 = s.Median, s.Median
	if len(data) > 1 {
		q, err := stats.Quartile(data)
		if err != nil {
			return s, err
		}
		s.Q25, s.Q75 = q.Q1, q.Q3
	}

	s.Skewness = calculateSkewness(data, s.Mean, s.StdDev)
	s.Outliers = detectOutliers(data, s.Q25, s.Q75)
	return s, nil
}

// calculateSkewness computes sample skewness using the adjusted Fisher-Pearson coefficient
func calculateSkewness(data []float64, mean, stdDev float64) float64 {
	if len(data) < 3 || stdDev == 0 {
		return 0
	}

	n := float64(len(data))
	sumCubedDeviations := 0.0
	for _, x := range data {
		deviation := (x - mean) / stdDev
		sumCubedDeviations += deviation * deviation * deviation
	}

	// Bias correction for sample skewness
	return sumCubedDeviations / n * math.Sqrt(n*(n-1)) / (n - 2)
}

// detectOutliers counts points outside the IQR fences
func detectOutliers(data []float64, q25, q75 float64) int {
	iqr := q75 - q25
	lowerBound := q25 - 1.5*iqr
	upperBound := q75 + 1.5*iqr

	outlierCount := 0
	for _, x := range data {
		if x < lowerBound || x > upperBound {
			outlierCount++
		}
	}
	return outlierCount
}
