package l4perception

import "github.com/banshee-data/lidar-frames/internal/lidar/l2frames"

// Segmenter abstracts the object segmentation step so the pipeline can be
// exercised with alternative clustering strategies.
type Segmenter interface {
	// Segment labels every point, returning a slice parallel to points.
	// Label values are arbitrary; only the induced partition is meaningful.
	Segment(points []l2frames.PointRecord) []LabelledPoint
}

// DBSCANSegmenter implements Segmenter using DBSCAN over X, Y and Z.
// It holds only immutable parameters and is safe for concurrent use.
type DBSCANSegmenter struct {
	params DBSCANParams
}

// NewDBSCANSegmenter creates a segmenter with the given radius and
// minimum neighbourhood size.
func NewDBSCANSegmenter(eps float64, minPts int) *DBSCANSegmenter {
	return &DBSCANSegmenter{
		params: DBSCANParams{
			Eps:    eps,
			MinPts: minPts,
		},
	}
}

// NewDefaultDBSCANSegmenter creates a segmenter with default parameters.
func NewDefaultDBSCANSegmenter() *DBSCANSegmenter {
	p := DefaultDBSCANParams()
	return NewDBSCANSegmenter(p.Eps, p.MinPts)
}

// Segment runs DBSCAN and attaches the labels. Input order and fields are
// preserved; empty input returns nil without clustering.
func (s *DBSCANSegmenter) Segment(points []l2frames.PointRecord) []LabelledPoint {
	if len(points) == 0 {
		return nil
	}

	labels := DBSCAN(points, s.params)
	out := make([]LabelledPoint, len(points))
	for i := range points {
		out[i] = LabelledPoint{PointRecord: points[i], Cluster: labels[i]}
	}
	return out
}

// Params returns the DBSCAN radius and neighbourhood size.
func (s *DBSCANSegmenter) Params() DBSCANParams {
	return s.params
}

// Verify at compile time that *DBSCANSegmenter implements Segmenter.
var _ Segmenter = (*DBSCANSegmenter)(nil)
