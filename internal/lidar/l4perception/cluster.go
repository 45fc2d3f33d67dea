package l4perception

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// ClusterSummary describes one segmented object.
type ClusterSummary struct {
	Label      int
	PointCount int

	CentroidX, CentroidY, CentroidZ float64

	MinX, MinY, MinZ float64
	MaxX, MaxY, MaxZ float64
}

// Length, Width and Height return the bounding box extents along X, Y and Z.
func (c ClusterSummary) Length() float64 { return c.MaxX - c.MinX }
func (c ClusterSummary) Width() float64  { return c.MaxY - c.MinY }
func (c ClusterSummary) Height() float64 { return c.MaxZ - c.MinZ }

// Summarize computes a ClusterSummary for every non-noise label in points,
// ordered by label, and returns the number of noise points alongside.
func Summarize(points []LabelledPoint) ([]ClusterSummary, int) {
	members := make(map[int][]int)
	noise := 0
	for i, p := range points {
		if p.IsNoise() {
			noise++
			continue
		}
		members[p.Cluster] = append(members[p.Cluster], i)
	}

	labels := make([]int, 0, len(members))
	for l := range members {
		labels = append(labels, l)
	}
	sort.Ints(labels)

	summaries := make([]ClusterSummary, 0, len(labels))
	for _, l := range labels {
		summaries = append(summaries, computeClusterMetrics(points, members[l], l))
	}
	return summaries, noise
}

// computeClusterMetrics computes centroid and bounding box for the points at idx.
func computeClusterMetrics(points []LabelledPoint, idx []int, label int) ClusterSummary {
	xs := make([]float64, len(idx))
	ys := make([]float64, len(idx))
	zs := make([]float64, len(idx))
	for i, j := range idx {
		xs[i], ys[i], zs[i] = points[j].X, points[j].Y, points[j].Z
	}

	n := float64(len(idx))
	return ClusterSummary{
		Label:      label,
		PointCount: len(idx),
		CentroidX:  floats.Sum(xs) / n,
		CentroidY:  floats.Sum(ys) / n,
		CentroidZ:  floats.Sum(zs) / n,
		MinX:       floats.Min(xs),
		MinY:       floats.Min(ys),
		MinZ:       floats.Min(zs),
		MaxX:       floats.Max(xs),
		MaxY:       floats.Max(ys),
		MaxZ:       floats.Max(zs),
	}
}

// CanonicalPartition groups point positions by label, independent of the
// label values themselves. Clusters are ordered by their first member and
// noise positions are returned separately, so two labellings induce the
// same partition exactly when both results are equal.
func CanonicalPartition(labels []int) (clusters [][]int, noise []int) {
	byLabel := make(map[int]int) // label → position in clusters
	for i, l := range labels {
		if l == NoiseLabel {
			noise = append(noise, i)
			continue
		}
		g, ok := byLabel[l]
		if !ok {
			g = len(clusters)
			byLabel[l] = g
			clusters = append(clusters, nil)
		}
		clusters[g] = append(clusters[g], i)
	}
	return clusters, noise
}
