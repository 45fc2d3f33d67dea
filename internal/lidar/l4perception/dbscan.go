package l4perception

import (
	"math"

	"github.com/banshee-data/lidar-frames/internal/lidar/l2frames"
)

// Constants for segmentation configuration
const (
	// DefaultDBSCANEps is the default neighbourhood radius in metres.
	DefaultDBSCANEps = 1.5
	// DefaultDBSCANMinPts is the default neighbourhood size (self included)
	// for a core point.
	DefaultDBSCANMinPts = 5
	// EstimatedPointsPerCell is used for initial spatial index capacity estimation.
	EstimatedPointsPerCell = 4
)

// DBSCANParams contains parameters for the DBSCAN clustering algorithm.
type DBSCANParams struct {
	Eps    float64 // Neighbourhood radius in metres
	MinPts int     // Minimum neighbourhood size, including the point itself
}

// DefaultDBSCANParams returns the default segmentation parameters.
func DefaultDBSCANParams() DBSCANParams {
	return DBSCANParams{
		Eps:    DefaultDBSCANEps,
		MinPts: DefaultDBSCANMinPts,
	}
}

type cellKey struct {
	x, y, z int64
}

// SpatialIndex provides neighbour queries over a uniform 3D grid.
// With CellSize equal to the query radius, every neighbour of a point lies
// in the 3x3x3 block of cells around it.
type SpatialIndex struct {
	CellSize float64
	grid     map[cellKey][]int // cell → point indices
}

// NewSpatialIndex creates a spatial index with the specified cell size.
// Non-positive sizes fall back to 1 so cell coordinates stay finite.
func NewSpatialIndex(cellSize float64) *SpatialIndex {
	if !(cellSize > 0) {
		cellSize = 1
	}
	return &SpatialIndex{
		CellSize: cellSize,
		grid:     make(map[cellKey][]int),
	}
}

// Build populates the spatial index from a set of points.
func (si *SpatialIndex) Build(points []l2frames.PointRecord) {
	si.grid = make(map[cellKey][]int, len(points)/EstimatedPointsPerCell+1)
	for i, p := range points {
		k := si.cellOf(p.X, p.Y, p.Z)
		si.grid[k] = append(si.grid[k], i)
	}
}

func (si *SpatialIndex) cellOf(x, y, z float64) cellKey {
	return cellKey{
		x: int64(math.Floor(x / si.CellSize)),
		y: int64(math.Floor(y / si.CellSize)),
		z: int64(math.Floor(z / si.CellSize)),
	}
}

// RegionQuery returns indices of all points within eps (Euclidean, 3D) of
// points[idx], including idx itself. eps must not exceed CellSize.
func (si *SpatialIndex) RegionQuery(points []l2frames.PointRecord, idx int, eps float64) []int {
	p := points[idx]
	eps2 := eps * eps
	base := si.cellOf(p.X, p.Y, p.Z)

	var neighbors []int
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for dz := int64(-1); dz <= 1; dz++ {
				cell := cellKey{base.x + dx, base.y + dy, base.z + dz}
				for _, candidateIdx := range si.grid[cell] {
					c := points[candidateIdx]
					ddx := c.X - p.X
					ddy := c.Y - p.Y
					ddz := c.Z - p.Z
					if ddx*ddx+ddy*ddy+ddz*ddz <= eps2 {
						neighbors = append(neighbors, candidateIdx)
					}
				}
			}
		}
	}
	return neighbors
}

// DBSCAN labels points by density-based clustering over X, Y and Z.
// The result is parallel to points: -1 for noise, 0..k-1 for clusters in
// order of discovery. Border points reachable from several clusters take
// the first one that reaches them. Empty input returns nil.
func DBSCAN(points []l2frames.PointRecord, params DBSCANParams) []int {
	n := len(points)
	if n == 0 {
		return nil
	}

	eps := params.Eps
	if !(eps > 0) {
		eps = 0 // only coincident points are neighbours
	}
	minPts := params.MinPts
	if minPts < 1 {
		minPts = 1
	}

	labels := make([]int, n) // 0=unvisited, -1=noise, >0=clusterID
	clusterID := 0

	spatialIndex := NewSpatialIndex(eps)
	spatialIndex.Build(points)

	for i := 0; i < n; i++ {
		if labels[i] != 0 {
			continue // Already processed
		}

		neighbors := spatialIndex.RegionQuery(points, i, eps)
		if len(neighbors) < minPts {
			labels[i] = NoiseLabel
			continue
		}

		clusterID++
		expandCluster(points, spatialIndex, labels, i, neighbors, clusterID, eps, minPts)
	}

	// Shift cluster IDs to start at 0; noise stays -1.
	for i, l := range labels {
		if l > 0 {
			labels[i] = l - 1
		}
	}
	return labels
}

// expandCluster grows a cluster outward from a core point.
func expandCluster(points []l2frames.PointRecord, si *SpatialIndex, labels []int,
	seedIdx int, neighbors []int, clusterID int, eps float64, minPts int) {

	labels[seedIdx] = clusterID

	// Queue-based expansion; neighbors grows as core points are found.
	for j := 0; j < len(neighbors); j++ {
		idx := neighbors[j]

		if labels[idx] == NoiseLabel {
			labels[idx] = clusterID // Noise becomes border point
			continue
		}
		if labels[idx] != 0 {
			continue // Already processed
		}

		labels[idx] = clusterID
		newNeighbors := si.RegionQuery(points, idx, eps)
		if len(newNeighbors) >= minPts {
			for _, nb := range newNeighbors {
				if labels[nb] <= 0 {
					neighbors = append(neighbors, nb)
				}
			}
		}
	}
}
