// Package l2frames owns Layer 2 (Frames) of the LiDAR data model.
//
// Responsibilities: discovering frame files in a dataset directory and
// checking that their indices are contiguous (Catalog), reading a frame's
// CSV rows into point records (Loader), and writing labelled frames back
// out as CSV.
// Key types: Catalog, Loader, Frame, PointRecord.
//
// Dependency rule: L2 never depends on L4 perception code. Cluster labels
// arrive as a plain []int when exporting.
package l2frames
