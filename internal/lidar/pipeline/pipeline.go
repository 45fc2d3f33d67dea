package pipeline

import (
	"fmt"
	"path/filepath"

	"github.com/banshee-data/lidar-frames/internal/config"
	"github.com/banshee-data/lidar-frames/internal/fsutil"
	"github.com/banshee-data/lidar-frames/internal/lidar/l2frames"
	"github.com/banshee-data/lidar-frames/internal/lidar/l4perception"
	"github.com/banshee-data/lidar-frames/internal/monitoring"
	"github.com/banshee-data/lidar-frames/internal/timeutil"
)

// Pipeline loads frames and runs the noise filter and segmenter over them,
// in that order. It keeps no per-frame state, so one Pipeline may serve
// concurrent callers.
type Pipeline struct {
	catalog   *l2frames.Catalog
	loader    *l2frames.Loader
	filter    l4perception.NoiseFilter
	segmenter l4perception.Segmenter
	clock     timeutil.Clock
	workers   int
}

// New builds a Pipeline from tuning configuration, reading frames through
// fsys. A nil cfg uses the defaults; a nil fsys uses the OS filesystem.
func New(cfg *config.TuningConfig, fsys fsutil.FileSystem) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.DefaultTuningConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tuning config: %w", err)
	}
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}

	layout := l2frames.ColumnLayout{
		Indices: cfg.GetSpatialColumns(),
		Names:   cfg.GetSpatialColumnNames(),
	}
	return NewWithStages(Stages{
		Catalog:   l2frames.NewCatalog(fsys),
		Loader:    l2frames.NewLoader(fsys, layout),
		Filter:    l4perception.NewOutlierFilter(cfg.GetNoiseThreshold()),
		Segmenter: l4perception.NewDBSCANSegmenter(cfg.GetDBSCANEps(), cfg.GetDBSCANMinPts()),
		Workers:   cfg.GetBatchWorkers(),
	}), nil
}

// NewWithStages builds a Pipeline from explicit stages.
func NewWithStages(s Stages) *Pipeline {
	s = s.withDefaults()
	return &Pipeline{
		catalog:   s.Catalog,
		loader:    s.Loader,
		filter:    s.Filter,
		segmenter: s.Segmenter,
		clock:     s.Clock,
		workers:   s.Workers,
	}
}

// Workers returns the default batch concurrency.
func (p *Pipeline) Workers() int { return p.workers }

// Filter returns the pipeline's noise filter.
func (p *Pipeline) Filter() l4perception.NoiseFilter { return p.filter }

// Segmenter returns the pipeline's segmenter.
func (p *Pipeline) Segmenter() l4perception.Segmenter { return p.segmenter }

// Scan returns the sorted frame indices of dir. See l2frames.Catalog.Scan.
func (p *Pipeline) Scan(dir string) ([]int, error) {
	return p.catalog.Scan(dir)
}

// Resolve returns the path of frame index in dir.
func (p *Pipeline) Resolve(dir string, index int) string {
	return p.catalog.Resolve(dir, index)
}

// LoadAndProcess resolves frame index in dir and processes it.
func (p *Pipeline) LoadAndProcess(dir string, index int) (*ProcessedFrame, error) {
	return p.ProcessFile(p.catalog.Resolve(dir, index))
}

// ProcessFile loads the frame at path and processes it.
//
// A missing file returns a *l2frames.FrameNotFoundError and unparseable
// content a *l2frames.MalformedDataError. A frame with no points, before or
// after filtering, is a valid result: see ProcessedFrame.Empty.
func (p *Pipeline) ProcessFile(path string) (*ProcessedFrame, error) {
	start := p.clock.Now()

	frame, err := p.loader.Load(path)
	if err != nil {
		return nil, err
	}

	pf := p.process(frame)
	pf.Elapsed = p.clock.Since(start)
	logProcessed(pf)
	return pf, nil
}

// Process runs an already loaded frame through the filter and segmenter.
func (p *Pipeline) Process(frame *l2frames.Frame) *ProcessedFrame {
	start := p.clock.Now()
	pf := p.process(frame)
	pf.Elapsed = p.clock.Since(start)
	logProcessed(pf)
	return pf
}

func (p *Pipeline) process(frame *l2frames.Frame) *ProcessedFrame {
	pf := &ProcessedFrame{
		Index:    frame.Index,
		Path:     frame.Path,
		Header:   frame.Header,
		RawCount: frame.Len(),
	}

	filtered := p.filter.Filter(frame.Points)
	pf.FilteredCount = len(filtered)

	pf.Points = p.segmenter.Segment(filtered)
	if pf.Points == nil {
		pf.Points = []l4perception.LabelledPoint{}
	}
	pf.Clusters, pf.NoiseCount = l4perception.Summarize(pf.Points)
	return pf
}

func logProcessed(pf *ProcessedFrame) {
	name := filepath.Base(pf.Path)
	if pf.Empty() {
		monitoring.Diagf("frame %s is empty (%d raw points, none kept)", name, pf.RawCount)
		return
	}
	monitoring.Diagf("frame %s: raw=%d filtered=%d clusters=%d noise=%d in %v",
		name, pf.RawCount, pf.FilteredCount, len(pf.Clusters), pf.NoiseCount, pf.Elapsed)
	for _, c := range pf.Clusters {
		monitoring.Tracef("frame %s cluster %d: points=%d centroid=(%.2f, %.2f, %.2f) size=%.2fx%.2fx%.2f",
			name, c.Label, c.PointCount, c.CentroidX, c.CentroidY, c.CentroidZ,
			c.Length(), c.Width(), c.Height())
	}
}
