// Package pipeline runs LiDAR frames through the processing stages: load
// from the dataset catalog, remove statistical outliers, segment the
// survivors into objects.
//
// This package is the composition root: it imports from layer packages
// (l2frames, l4perception) but none of those packages import pipeline/.
// It also hosts the batch driver used to process a whole dataset or a
// frame range, sequentially or with a bounded worker pool.
package pipeline
