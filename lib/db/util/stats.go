package util

import (
	"github.com/rcrowley/go-metrics"
)

// sampleReservoir is the reservoir size used for all histograms (same default as go-metrics)
const sampleReservoir = 1028

// Stats summarizes a distribution of values
type Stats struct {
	StdDeviation float64 `json:"std_deviation"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Mean         float64 `json:"mean"`
	MinMaxRatio  float64 `json:"min_max_ratio"`
}

// NewStats computes the distribution statistics of the given values
func NewStats(values []int) Stats {
	if len(values) == 0 {
		return Stats{}
	}

	h := metrics.NewHistogram(metrics.NewUniformSample(max(len(values), 1)))
	for _, v := range values {
		h.Update(int64(v))
	}

	stats := Stats{
		StdDeviation: h.StdDev(),
		Min:          float64(h.Min()),
		Max:          float64(h.Max()),
		Mean:         h.Mean(),
		MinMaxRatio:  1.0,
	}
	if stats.Max > 0 {
		stats.MinMaxRatio = stats.Min / stats.Max
	}
	return stats
}

// SizeHistogram tracks the size distribution of stored values.
// It samples uniformly, so estimates stay cheap for large databases.
//
// Thread-safety: go-metrics histograms are safe for concurrent use.
type SizeHistogram struct {
	h metrics.Histogram
}

// NewSizeHistogram creates an empty size histogram
func NewSizeHistogram() *SizeHistogram {
	return &SizeHistogram{h: metrics.NewHistogram(metrics.NewUniformSample(sampleReservoir))}
}

// AddSample records the size of one value
func (s *SizeHistogram) AddSample(size int) {
	s.h.Update(int64(size))
}

// Count returns the number of recorded samples
func (s *SizeHistogram) Count() int64 {
	return s.h.Count()
}

// AverageSize returns the mean of all samples (0 if there are none)
func (s *SizeHistogram) AverageSize() int {
	return int(s.h.Mean())
}

// MedianEstimate returns the estimated median of all samples
func (s *SizeHistogram) MedianEstimate() int {
	return s.PercentileEstimate(50)
}

// PercentileEstimate returns the estimated size at the given percentile (0-100)
func (s *SizeHistogram) PercentileEstimate(percentile int) int {
	if s.h.Count() == 0 {
		return 0
	}
	return int(s.h.Percentile(float64(percentile) / 100))
}
