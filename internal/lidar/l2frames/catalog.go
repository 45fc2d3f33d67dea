package l2frames

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/banshee-data/lidar-frames/internal/fsutil"
)

// Frame file naming convention: clusterR{N}.csv with N a non-negative integer.
const (
	FramePrefix = "clusterR"
	FrameSuffix = ".csv"
)

// Entry pairs a frame index with the path of its file.
type Entry struct {
	Index int
	Path  string
}

// Catalog enumerates the frame files of a dataset directory.
// It holds no state beyond its filesystem; the directory is passed per call.
type Catalog struct {
	fs fsutil.FileSystem
}

// NewCatalog creates a Catalog reading from fsys. A nil fsys uses the OS filesystem.
func NewCatalog(fsys fsutil.FileSystem) *Catalog {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	return &Catalog{fs: fsys}
}

// FrameFileName returns the canonical file name for a frame index.
func FrameFileName(index int) string {
	return FramePrefix + strconv.Itoa(index) + FrameSuffix
}

// ParseFrameIndex extracts the frame index from a file name following the
// clusterR{N}.csv convention. Only ASCII digits are accepted between prefix
// and suffix, so signs, spaces and empty indices are rejected.
func ParseFrameIndex(name string) (int, bool) {
	if len(name) <= len(FramePrefix)+len(FrameSuffix) {
		return 0, false
	}
	if !strings.HasPrefix(name, FramePrefix) || !strings.HasSuffix(name, FrameSuffix) {
		return 0, false
	}

	digits := name[len(FramePrefix) : len(name)-len(FrameSuffix)]
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, false
		}
	}

	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false // overflow
	}
	return n, true
}

// Resolve joins dir with the canonical file name for index.
// It does not check that the file exists.
func (c *Catalog) Resolve(dir string, index int) string {
	return filepath.Join(dir, FrameFileName(index))
}

// Scan returns the frame indices found in dir, sorted ascending.
//
// An empty directory, or one with no matching files, yields an empty slice
// and no error. If the indices are not contiguous (gaps or the same index
// under two names) Scan returns nil and a *DiscontinuityError.
func (c *Catalog) Scan(dir string) ([]int, error) {
	entries, err := c.fs.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list frame directory %s: %w", dir, err)
	}

	indices := make([]int, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if idx, ok := ParseFrameIndex(e.Name()); ok {
			indices = append(indices, idx)
		}
	}
	sort.Ints(indices)

	if err := CheckContinuity(dir, indices); err != nil {
		return nil, err
	}
	return indices, nil
}

// Entries returns the catalog entries for dir, in index order.
func (c *Catalog) Entries(dir string) ([]Entry, error) {
	indices, err := c.Scan(dir)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, len(indices))
	for i, idx := range indices {
		entries[i] = Entry{Index: idx, Path: c.Resolve(dir, idx)}
	}
	return entries, nil
}

// CheckContinuity verifies that sorted holds exactly one of every integer
// from its first to its last element. An empty slice is continuous.
func CheckContinuity(dir string, sorted []int) error {
	if len(sorted) == 0 {
		return nil
	}
	contiguous := true
	for i := 1; i < len(sorted); i++ {
		if sorted[i]-sorted[i-1] != 1 {
			contiguous = false
			break
		}
	}
	if contiguous {
		return nil
	}

	lo, hi := sorted[0], sorted[len(sorted)-1]
	derr := &DiscontinuityError{Dir: dir, Min: lo, Max: hi}
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if cur == prev {
			if n := len(derr.Duplicates); n == 0 || derr.Duplicates[n-1] != cur {
				derr.Duplicates = append(derr.Duplicates, cur)
			}
			continue
		}
		for m := prev + 1; m < cur; m++ {
			if len(derr.Missing) < maxReportedGaps {
				derr.Missing = append(derr.Missing, m)
			}
			derr.MissingCount++
			if len(derr.Missing) >= maxReportedGaps {
				// Count the remainder of this gap without iterating it.
				derr.MissingCount += cur - m - 1
				break
			}
		}
	}
	return derr
}
