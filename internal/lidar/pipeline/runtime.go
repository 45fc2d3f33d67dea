package pipeline

import (
	"github.com/banshee-data/lidar-frames/internal/lidar/l2frames"
	"github.com/banshee-data/lidar-frames/internal/lidar/l4perception"
	"github.com/banshee-data/lidar-frames/internal/timeutil"
)

// Stages bundles the dependencies of a Pipeline. Passing a Stages value
// through NewWithStages makes wiring explicit and lets tests substitute any
// stage. Nil fields are filled with defaults.
type Stages struct {
	Catalog   *l2frames.Catalog
	Loader    *l2frames.Loader
	Filter    l4perception.NoiseFilter
	Segmenter l4perception.Segmenter
	Clock     timeutil.Clock

	// Workers is the default batch concurrency. Values below 1 mean 1.
	Workers int
}

func (s Stages) withDefaults() Stages {
	if s.Catalog == nil {
		s.Catalog = l2frames.NewCatalog(nil)
	}
	if s.Loader == nil {
		s.Loader = l2frames.NewLoader(nil, l2frames.DefaultColumnLayout())
	}
	if s.Filter == nil {
		s.Filter = l4perception.DefaultOutlierFilter()
	}
	if s.Segmenter == nil {
		s.Segmenter = l4perception.NewDefaultDBSCANSegmenter()
	}
	if s.Clock == nil {
		s.Clock = timeutil.RealClock{}
	}
	if s.Workers < 1 {
		s.Workers = 1
	}
	return s
}
