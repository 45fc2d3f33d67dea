package l2frames

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/lidar-frames/internal/fsutil"
)

// Default positions (0-indexed) of the spatial columns in a frame row.
const (
	DefaultXColumn = 7
	DefaultYColumn = 8
	DefaultZColumn = 9
)

// ColumnLayout locates the X, Y and Z columns within a frame row.
// Names, when set and present in the frame's header, take precedence over
// the positional Indices.
type ColumnLayout struct {
	Indices [3]int
	Names   [3]string
}

// DefaultColumnLayout returns the positional 7/8/9 layout with no names.
func DefaultColumnLayout() ColumnLayout {
	return ColumnLayout{Indices: [3]int{DefaultXColumn, DefaultYColumn, DefaultZColumn}}
}

// PointRecord is one row of a frame. Fields holds every column as read so
// non-spatial data (intensity, timestamps, ...) survives processing intact.
type PointRecord struct {
	Fields  []string
	X, Y, Z float64
}

// Frame is the set of point records read from one frame file.
type Frame struct {
	Index  int      // -1 when the file name does not follow the frame convention
	Path   string   // source file
	Header []string // nil when the file has no header row
	Points []PointRecord
}

// Len returns the number of points in the frame.
func (f *Frame) Len() int { return len(f.Points) }

// Loader reads frame files into Frames. A Loader is safe for concurrent use;
// every call allocates its own buffers.
type Loader struct {
	fs     fsutil.FileSystem
	layout ColumnLayout
}

// NewLoader creates a Loader. A nil fsys uses the OS filesystem.
func NewLoader(fsys fsutil.FileSystem, layout ColumnLayout) *Loader {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	return &Loader{fs: fsys, layout: layout}
}

// Layout returns the loader's column layout.
func (l *Loader) Layout() ColumnLayout { return l.layout }

// Load opens path and reads it as a frame. A missing file yields a
// *FrameNotFoundError; unparseable content a *MalformedDataError.
func (l *Loader) Load(path string) (*Frame, error) {
	f, err := l.fs.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &FrameNotFoundError{Path: path, Err: err}
		}
		return nil, fmt.Errorf("failed to open frame %s: %w", path, err)
	}
	defer f.Close()

	return l.Read(f, path)
}

// Read parses CSV frame data from r. path is used for the frame's identity
// and in error messages only.
//
// The first record is taken as a header when one of the configured column
// names appears in it, or when none of its positional spatial columns is
// numeric. A first row with only some bad spatial values is malformed data. Every following record must carry numeric, finite spatial values.
func (l *Loader) Read(r io.Reader, path string) (*Frame, error) {
	frame := &Frame{Index: -1, Path: path}
	if idx, ok := ParseFrameIndex(filepath.Base(path)); ok {
		frame.Index = idx
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	cols := l.layout.Indices
	first := true
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, &MalformedDataError{Path: path, Line: pe.Line, Column: pe.Column, Err: pe.Err}
			}
			return nil, fmt.Errorf("failed to read frame %s: %w", path, err)
		}

		if first {
			first = false
			if l.isHeader(rec) {
				frame.Header = rec
				cols = l.resolveColumns(rec)
				continue
			}
		}

		line, _ := cr.FieldPos(0)
		pt, perr := parseRecord(rec, cols)
		if perr != nil {
			perr.Path = path
			perr.Line = line
			return nil, perr
		}
		frame.Points = append(frame.Points, pt)
	}

	return frame, nil
}

func (l *Loader) isHeader(rec []string) bool {
	for _, name := range l.layout.Names {
		if name != "" && findColumn(rec, name) >= 0 {
			return true
		}
	}
	checked := 0
	for _, col := range l.layout.Indices {
		if col >= len(rec) {
			continue
		}
		checked++
		if _, err := strconv.ParseFloat(strings.TrimSpace(rec[col]), 64); err == nil {
			return false
		}
	}
	return checked > 0
}

// resolveColumns applies named columns found in header, falling back to the
// positional index for each axis whose name is unset or absent.
func (l *Loader) resolveColumns(header []string) [3]int {
	cols := l.layout.Indices
	for i, name := range l.layout.Names {
		if name == "" {
			continue
		}
		if idx := findColumn(header, name); idx >= 0 {
			cols[i] = idx
		}
	}
	return cols
}

func findColumn(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

func parseRecord(rec []string, cols [3]int) (PointRecord, *MalformedDataError) {
	var xyz [3]float64
	for axis, col := range cols {
		if col >= len(rec) {
			return PointRecord{}, &MalformedDataError{
				Column: col + 1,
				Err:    fmt.Errorf("%w: need column %d, row has %d", ErrMissingColumn, col+1, len(rec)),
			}
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[col]), 64)
		if err != nil {
			return PointRecord{}, &MalformedDataError{Column: col + 1, Err: err}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return PointRecord{}, &MalformedDataError{
				Column: col + 1,
				Err:    fmt.Errorf("%w: %q", ErrNonFinite, rec[col]),
			}
		}
		xyz[axis] = v
	}
	return PointRecord{Fields: rec, X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}
