package l2frames

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// ClusterColumn is the header of the label column appended on export.
const ClusterColumn = "Cluster"

// WriteLabelledCSV writes points as CSV with their cluster label appended as
// a trailing column. When header is non-nil it is written first, extended
// with ClusterColumn. labels must be parallel to points.
func WriteLabelledCSV(w io.Writer, header []string, points []PointRecord, labels []int) error {
	if len(points) != len(labels) {
		return fmt.Errorf("label count %d does not match point count %d", len(labels), len(points))
	}

	cw := csv.NewWriter(w)
	if header != nil {
		row := make([]string, 0, len(header)+1)
		row = append(row, header...)
		row = append(row, ClusterColumn)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	var row []string
	for i, p := range points {
		row = append(row[:0], p.Fields...)
		row = append(row, strconv.Itoa(labels[i]))
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush labelled frame: %w", err)
	}
	return nil
}
