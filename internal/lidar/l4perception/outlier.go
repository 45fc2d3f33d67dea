package l4perception

import (
	"math"
	"sync/atomic"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/lidar-frames/internal/lidar/l2frames"
)

// DefaultNoiseThreshold is the default outlier cut-off in standard deviations.
const DefaultNoiseThreshold = 2.5

// NoiseFilter removes measurement noise from a frame before segmentation.
type NoiseFilter interface {
	// Filter returns the points to keep, in input order. The input slice is
	// not modified.
	Filter(points []l2frames.PointRecord) []l2frames.PointRecord
}

// AxisStats holds the mean and sample standard deviation of one axis.
type AxisStats struct {
	Mean   float64
	StdDev float64
}

// ComputeAxisStats returns X, Y and Z statistics over points. The standard
// deviation uses the n-1 denominator; with a single point it is NaN.
func ComputeAxisStats(points []l2frames.PointRecord) [3]AxisStats {
	axes := [3][]float64{
		make([]float64, len(points)),
		make([]float64, len(points)),
		make([]float64, len(points)),
	}
	for i, p := range points {
		axes[0][i] = p.X
		axes[1][i] = p.Y
		axes[2][i] = p.Z
	}

	var out [3]AxisStats
	for a := range axes {
		out[a].Mean, out[a].StdDev = stat.MeanStdDev(axes[a], nil)
	}
	return out
}

// OutlierFilter implements NoiseFilter with a per-axis sigma clip: a point
// survives only if, on every axis, |v - mean| < Threshold * stddev.
//
// The comparison is strict and applied as written. A constant axis
// (stddev 0) therefore rejects every point, and so does a single-point
// frame (stddev NaN).
type OutlierFilter struct {
	// Threshold is the cut-off in standard deviations.
	Threshold float64

	// Statistics for tuning and validation.
	pointsProcessed atomic.Int64
	pointsKept      atomic.Int64
}

// NewOutlierFilter creates a filter with the given threshold.
func NewOutlierFilter(threshold float64) *OutlierFilter {
	return &OutlierFilter{Threshold: threshold}
}

// DefaultOutlierFilter returns a filter using DefaultNoiseThreshold.
func DefaultOutlierFilter() *OutlierFilter {
	return NewOutlierFilter(DefaultNoiseThreshold)
}

// Filter applies the sigma clip. Empty input returns nil without computing
// statistics.
func (f *OutlierFilter) Filter(points []l2frames.PointRecord) []l2frames.PointRecord {
	if len(points) == 0 {
		return nil
	}

	s := ComputeAxisStats(points)
	limX := f.Threshold * s[0].StdDev
	limY := f.Threshold * s[1].StdDev
	limZ := f.Threshold * s[2].StdDev

	kept := make([]l2frames.PointRecord, 0, len(points))
	for _, p := range points {
		if math.Abs(p.X-s[0].Mean) < limX &&
			math.Abs(p.Y-s[1].Mean) < limY &&
			math.Abs(p.Z-s[2].Mean) < limZ {
			kept = append(kept, p)
		}
	}

	f.pointsProcessed.Add(int64(len(points)))
	f.pointsKept.Add(int64(len(kept)))
	return kept
}

// Stats returns cumulative filter statistics.
func (f *OutlierFilter) Stats() (processed, kept, rejected int64) {
	processed = f.pointsProcessed.Load()
	kept = f.pointsKept.Load()
	return processed, kept, processed - kept
}

// ResetStats clears accumulated statistics counters.
func (f *OutlierFilter) ResetStats() {
	f.pointsProcessed.Store(0)
	f.pointsKept.Store(0)
}

var _ NoiseFilter = (*OutlierFilter)(nil)
