package l2frames_test

import (
	"encoding/csv"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/lidar-frames/internal/fsutil"
	"github.com/banshee-data/lidar-frames/internal/lidar/l2frames"
	"github.com/banshee-data/lidar-frames/internal/testutil"
)

func coords(f *l2frames.Frame) [][3]float64 {
	out := make([][3]float64, len(f.Points))
	for i, p := range f.Points {
		out[i] = [3]float64{p.X, p.Y, p.Z}
	}
	return out
}

func TestLoader_HeaderedAndHeaderlessAgree(t *testing.T) {
	pts := [][3]float64{{1, 2, 3}, {-4.5, 0.25, 9}, {0, 0, -1e-3}}
	rows := testutil.Rows(pts)

	mfs := fsutil.NewMemoryFileSystem()
	headed := testutil.WriteFrame(t, mfs, "/a", 0, true, rows)
	bare := testutil.WriteFrame(t, mfs, "/b", 0, false, rows)

	loader := l2frames.NewLoader(mfs, l2frames.DefaultColumnLayout())

	fh, err := loader.Load(headed)
	testutil.AssertNoError(t, err)
	fb, err := loader.Load(bare)
	testutil.AssertNoError(t, err)

	if diff := cmp.Diff(pts, coords(fh)); diff != "" {
		t.Errorf("headed coordinates mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(coords(fh), coords(fb)); diff != "" {
		t.Errorf("headed vs headerless mismatch (-headed +bare):\n%s", diff)
	}
	if diff := cmp.Diff(testutil.FrameHeader, fh.Header); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
	if fb.Header != nil {
		t.Errorf("headerless frame should have nil header, got %v", fb.Header)
	}
	if fh.Index != 0 || fh.Path != headed {
		t.Errorf("frame identity = (%d, %s)", fh.Index, fh.Path)
	}
}

func TestLoader_PreservesAllFields(t *testing.T) {
	rows := testutil.Rows([][3]float64{{1, 2, 3}, {4, 5, 6}})
	mfs := fsutil.NewMemoryFileSystem()
	path := testutil.WriteFrame(t, mfs, "/data", 7, false, rows)

	f, err := l2frames.NewLoader(mfs, l2frames.DefaultColumnLayout()).Load(path)
	testutil.AssertNoError(t, err)

	if f.Index != 7 {
		t.Errorf("Index = %d, want 7", f.Index)
	}
	if f.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", f.Len())
	}
	for i, p := range f.Points {
		if diff := cmp.Diff(rows[i], p.Fields); diff != "" {
			t.Errorf("row %d fields mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestLoader_NonConventionalName(t *testing.T) {
	r := strings.NewReader(string(testutil.FrameCSV(true, testutil.Rows([][3]float64{{1, 1, 1}}))))
	f, err := l2frames.NewLoader(nil, l2frames.DefaultColumnLayout()).Read(r, "/tmp/scan.csv")
	testutil.AssertNoError(t, err)
	if f.Index != -1 {
		t.Errorf("Index = %d, want -1 for non-conventional name", f.Index)
	}
}

func TestLoader_EmptyInputs(t *testing.T) {
	loader := l2frames.NewLoader(nil, l2frames.DefaultColumnLayout())

	tests := []struct {
		name       string
		data       string
		wantHeader bool
	}{
		{"empty file", "", false},
		{"blank lines", "\n\n", false},
		{"header only", strings.Join(testutil.FrameHeader, ",") + "\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := loader.Read(strings.NewReader(tt.data), "clusterR0.csv")
			testutil.AssertNoError(t, err)
			if f.Len() != 0 {
				t.Errorf("expected no points, got %d", f.Len())
			}
			if (f.Header != nil) != tt.wantHeader {
				t.Errorf("header presence = %v, want %v", f.Header != nil, tt.wantHeader)
			}
		})
	}
}

func TestLoader_MalformedData(t *testing.T) {
	good := strings.Join(testutil.FrameRow(0, 1, 2, 3), ",")
	header := strings.Join(testutil.FrameHeader, ",")

	badY := testutil.FrameRow(1, 1, 2, 3)
	badY[8] = "north"
	short := testutil.FrameRow(2, 1, 2, 3)[:9]
	nan := testutil.FrameRow(3, 1, 2, 3)
	nan[9] = "NaN"
	empty := testutil.FrameRow(4, 1, 2, 3)
	empty[7] = ""

	tests := []struct {
		name     string
		data     string
		wantLine int
		wantCol  int
		wantIs   error
	}{
		{"non-numeric y", header + "\n" + good + "\n" + strings.Join(badY, ",") + "\n", 3, 9, nil},
		{"non-numeric y in first row", strings.Join(badY, ",") + "\n" + good + "\n", 1, 9, nil},
		{"short row", good + "\n" + strings.Join(short, ",") + "\n", 2, 10, l2frames.ErrMissingColumn},
		{"short first row", strings.Join(short, ",") + "\n", 1, 10, l2frames.ErrMissingColumn},
		{"nan z", header + "\n" + strings.Join(nan, ",") + "\n", 2, 10, l2frames.ErrNonFinite},
		{"empty x", good + "\n" + strings.Join(empty, ",") + "\n", 2, 8, nil},
		{"bare quote", header + "\n" + `1,2,3,4,5,6,7,8"x,9,10` + "\n", 2, 0, csv.ErrBareQuote},
	}

	loader := l2frames.NewLoader(nil, l2frames.DefaultColumnLayout())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loader.Read(strings.NewReader(tt.data), "/data/clusterR1.csv")
			var merr *l2frames.MalformedDataError
			if !errors.As(err, &merr) {
				t.Fatalf("expected MalformedDataError, got %v", err)
			}
			if merr.Path != "/data/clusterR1.csv" {
				t.Errorf("Path = %s", merr.Path)
			}
			if merr.Line != tt.wantLine {
				t.Errorf("Line = %d, want %d", merr.Line, tt.wantLine)
			}
			if tt.wantCol > 0 && merr.Column != tt.wantCol {
				t.Errorf("Column = %d, want %d", merr.Column, tt.wantCol)
			}
			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
				t.Errorf("expected error to wrap %v, got %v", tt.wantIs, err)
			}
		})
	}
}

func TestLoader_FrameNotFound(t *testing.T) {
	loader := l2frames.NewLoader(fsutil.NewMemoryFileSystem(), l2frames.DefaultColumnLayout())

	_, err := loader.Load("/data/clusterR9.csv")
	var nf *l2frames.FrameNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected FrameNotFoundError, got %v", err)
	}
	if nf.Path != "/data/clusterR9.csv" {
		t.Errorf("Path = %s", nf.Path)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("FrameNotFoundError should unwrap to fs.ErrNotExist")
	}
}

func TestLoader_NamedColumns(t *testing.T) {
	data := "x,intensity,y,z\n1,200,2,3\n4,100,5,6\n"
	layout := l2frames.ColumnLayout{
		Indices: [3]int{0, 2, 3},
		Names:   [3]string{"X", "Y", "Z"},
	}

	f, err := l2frames.NewLoader(nil, layout).Read(strings.NewReader(data), "named.csv")
	testutil.AssertNoError(t, err)
	if diff := cmp.Diff([][3]float64{{1, 2, 3}, {4, 5, 6}}, coords(f)); diff != "" {
		t.Errorf("coordinates mismatch (-want +got):\n%s", diff)
	}
}

func TestLoader_NamedColumnsOverridePosition(t *testing.T) {
	// Names point at columns 1..3 while positions still say 7..9.
	data := "id,PosX,PosY,PosZ\n0,1,2,3\n"
	layout := l2frames.DefaultColumnLayout()
	layout.Names = [3]string{"posx", "posy", "posz"}

	f, err := l2frames.NewLoader(nil, layout).Read(strings.NewReader(data), "named.csv")
	testutil.AssertNoError(t, err)
	if diff := cmp.Diff([][3]float64{{1, 2, 3}}, coords(f)); diff != "" {
		t.Errorf("coordinates mismatch (-want +got):\n%s", diff)
	}
}

func TestLoader_NamedColumnFallsBackToPosition(t *testing.T) {
	// Only Z is found by name; X and Y fall back to positions 7 and 8.
	layout := l2frames.DefaultColumnLayout()
	layout.Names = [3]string{"lon", "lat", "Return"}

	data := string(testutil.FrameCSV(true, testutil.Rows([][3]float64{{1, 2, 3}})))
	f, err := l2frames.NewLoader(nil, layout).Read(strings.NewReader(data), "fallback.csv")
	testutil.AssertNoError(t, err)
	if f.Points[0].X != 1 || f.Points[0].Y != 2 {
		t.Errorf("X/Y = %v/%v, want positional 1/2", f.Points[0].X, f.Points[0].Y)
	}
	if f.Points[0].Z != 1 {
		t.Errorf("Z = %v, want value of the Return column (1)", f.Points[0].Z)
	}
}
