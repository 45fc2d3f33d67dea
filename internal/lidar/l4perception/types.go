package l4perception

import "github.com/banshee-data/lidar-frames/internal/lidar/l2frames"

// NoiseLabel marks a point that DBSCAN could not assign to any cluster.
const NoiseLabel = -1

// LabelledPoint is a frame row tagged with its cluster label.
type LabelledPoint struct {
	l2frames.PointRecord
	Cluster int
}

// IsNoise reports whether the point was left unclustered.
func (p LabelledPoint) IsNoise() bool { return p.Cluster == NoiseLabel }

// Labels returns the cluster labels of points, in order.
func Labels(points []LabelledPoint) []int {
	labels := make([]int, len(points))
	for i, p := range points {
		labels[i] = p.Cluster
	}
	return labels
}

// Records strips the labels, returning the underlying point records.
func Records(points []LabelledPoint) []l2frames.PointRecord {
	recs := make([]l2frames.PointRecord, len(points))
	for i, p := range points {
		recs[i] = p.PointRecord
	}
	return recs
}
