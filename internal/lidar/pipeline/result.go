package pipeline

import (
	"io"
	"time"

	"github.com/banshee-data/lidar-frames/internal/lidar/l2frames"
	"github.com/banshee-data/lidar-frames/internal/lidar/l4perception"
)

// ProcessedFrame is the result of running one frame through the pipeline.
// It is owned by the caller.
type ProcessedFrame struct {
	Index  int      // -1 when the file name does not follow the frame convention
	Path   string
	Header []string // nil when the source had no header row

	// Points holds the survivors of noise filtering, in input order, each
	// tagged with its cluster label.
	Points []l4perception.LabelledPoint

	RawCount      int // points loaded
	FilteredCount int // points kept by the noise filter
	NoiseCount    int // kept points DBSCAN labelled as noise

	Clusters []l4perception.ClusterSummary
	Elapsed  time.Duration
}

// Empty reports whether no points survived loading and filtering.
func (f *ProcessedFrame) Empty() bool { return len(f.Points) == 0 }

// Labels returns the cluster label of each point, in order.
func (f *ProcessedFrame) Labels() []int { return l4perception.Labels(f.Points) }

// WriteCSV writes the frame's points with a trailing cluster column.
func (f *ProcessedFrame) WriteCSV(w io.Writer) error {
	return l2frames.WriteLabelledCSV(w, f.Header, l4perception.Records(f.Points), f.Labels())
}
