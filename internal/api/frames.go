package api

import (
	"github.com/banshee-data/lidar-frames/internal/lidar/l4perception"
	"github.com/banshee-data/lidar-frames/internal/lidar/pipeline"
)

// PointJSON is one labelled point as rendered by the visualization client.
// Cluster is -1 for noise.
type PointJSON struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Z       float64 `json:"z"`
	Cluster int     `json:"cluster"`
}

// ClusterJSON summarises one cluster.
type ClusterJSON struct {
	Label      int        `json:"label"`
	PointCount int        `json:"point_count"`
	Centroid   [3]float64 `json:"centroid"`
	Min        [3]float64 `json:"min"`
	Max        [3]float64 `json:"max"`
}

// FrameResponse is the body of GET /api/frames/{index}.
type FrameResponse struct {
	Index         int           `json:"index"`
	Empty         bool          `json:"empty"`
	RawCount      int           `json:"raw_count"`
	FilteredCount int           `json:"filtered_count"`
	NoiseCount    int           `json:"noise_count"`
	ClusterCount  int           `json:"cluster_count"`
	ElapsedMs     float64       `json:"elapsed_ms"`
	Points        []PointJSON   `json:"points"`
	Clusters      []ClusterJSON `json:"clusters"`
}

func newFrameResponse(pf *pipeline.ProcessedFrame) FrameResponse {
	resp := FrameResponse{
		Index:         pf.Index,
		Empty:         pf.Empty(),
		RawCount:      pf.RawCount,
		FilteredCount: pf.FilteredCount,
		NoiseCount:    pf.NoiseCount,
		ClusterCount:  len(pf.Clusters),
		ElapsedMs:     float64(pf.Elapsed.Nanoseconds()) / 1e6,
		Points:        make([]PointJSON, len(pf.Points)),
		Clusters:      make([]ClusterJSON, len(pf.Clusters)),
	}
	for i, p := range pf.Points {
		resp.Points[i] = PointJSON{X: p.X, Y: p.Y, Z: p.Z, Cluster: p.Cluster}
	}
	for i, c := range pf.Clusters {
		resp.Clusters[i] = clusterJSON(c)
	}
	return resp
}

func clusterJSON(c l4perception.ClusterSummary) ClusterJSON {
	return ClusterJSON{
		Label:      c.Label,
		PointCount: c.PointCount,
		Centroid:   [3]float64{c.CentroidX, c.CentroidY, c.CentroidZ},
		Min:        [3]float64{c.MinX, c.MinY, c.MinZ},
		Max:        [3]float64{c.MaxX, c.MaxY, c.MaxZ},
	}
}
