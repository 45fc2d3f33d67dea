// Package testutil provides shared test utilities and fixtures.
//
// Besides the assertion helpers it builds synthetic LiDAR frames: rows laid
// out like the sensor's CSV export (spatial values in columns 7, 8 and 9),
// Gaussian point clusters, and frame files written into a FileSystem.
package testutil

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math/rand"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/banshee-data/lidar-frames/internal/fsutil"
)

// FrameHeader is the column layout of the synthetic frames.
var FrameHeader = []string{
	"Timestamp", "FrameID", "Channel", "Azimuth", "Elevation",
	"Distance", "Intensity", "X", "Y", "Z", "Ring", "Return",
}

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// NewTestRecorder creates a test response recorder.
func NewTestRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}

// FrameRow builds one CSV row with the given coordinates in columns 7-9 and
// deterministic filler derived from i in the other columns.
func FrameRow(i int, x, y, z float64) []string {
	return []string{
		strconv.Itoa(1700000000 + i),
		"0",
		strconv.Itoa(i % 40),
		strconv.FormatFloat(float64(i%360), 'f', 1, 64),
		"0.0",
		"10.0",
		strconv.Itoa(i % 256),
		strconv.FormatFloat(x, 'g', -1, 64),
		strconv.FormatFloat(y, 'g', -1, 64),
		strconv.FormatFloat(z, 'g', -1, 64),
		strconv.Itoa(i % 40),
		"1",
	}
}

// Rows converts coordinates to frame rows.
func Rows(points [][3]float64) [][]string {
	rows := make([][]string, len(points))
	for i, p := range points {
		rows[i] = FrameRow(i, p[0], p[1], p[2])
	}
	return rows
}

// FrameCSV encodes rows as CSV, preceded by FrameHeader when header is true.
func FrameCSV(header bool, rows [][]string) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if header {
		_ = w.Write(FrameHeader)
	}
	_ = w.WriteAll(rows)
	return buf.Bytes()
}

// WriteFrame writes a clusterR{index}.csv file into dir and returns its path.
func WriteFrame(t *testing.T, fsys fsutil.FileSystem, dir string, index int, header bool, rows [][]string) string {
	t.Helper()
	path := filepath.Join(dir, fmt.Sprintf("clusterR%d.csv", index))
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create %s: %v", dir, err)
	}
	if err := fsys.WriteFile(path, FrameCSV(header, rows), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// ClusteredCloud returns perCluster points normally distributed (standard
// deviation spread) around each centre, grouped by centre in input order.
func ClusteredCloud(rng *rand.Rand, centres [][3]float64, perCluster int, spread float64) [][3]float64 {
	points := make([][3]float64, 0, len(centres)*perCluster)
	for _, c := range centres {
		for i := 0; i < perCluster; i++ {
			points = append(points, [3]float64{
				c[0] + rng.NormFloat64()*spread,
				c[1] + rng.NormFloat64()*spread,
				c[2] + rng.NormFloat64()*spread,
			})
		}
	}
	return points
}
