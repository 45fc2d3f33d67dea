// Package l4perception owns Layer 4 (Perception) of the LiDAR data model.
//
// Responsibilities: statistical outlier removal, DBSCAN segmentation of a
// frame's points into objects, and per-cluster summaries.
// Key types: OutlierFilter, DBSCANSegmenter, LabelledPoint, ClusterSummary.
//
// Dependency rule: L4 may depend on L2 (frames), never on the pipeline.
// Every type here is either immutable after construction or safe for
// concurrent use, so one instance can serve parallel frame workers.
package l4perception
