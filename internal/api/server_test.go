package api

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/banshee-data/lidar-frames/internal/config"
	"github.com/banshee-data/lidar-frames/internal/fsutil"
	"github.com/banshee-data/lidar-frames/internal/lidar/pipeline"
	"github.com/banshee-data/lidar-frames/internal/monitoring"
	"github.com/banshee-data/lidar-frames/internal/testutil"
)

const dataDir = "/frames"

func clusterRows(seed int64) [][]string {
	rng := rand.New(rand.NewSource(seed))
	coords := testutil.ClusteredCloud(rng, [][3]float64{{0, 0, 0}, {12, 3, 0}}, 25, 0.3)
	return testutil.Rows(coords)
}

func setupTestServer(t *testing.T, indices ...int) (*Server, *fsutil.MemoryFileSystem) {
	t.Helper()
	mfs := fsutil.NewMemoryFileSystem()
	if err := mfs.MkdirAll(dataDir, 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	for _, i := range indices {
		testutil.WriteFrame(t, mfs, dataDir, i, true, clusterRows(int64(i)))
	}

	cfg := config.DefaultTuningConfig()
	p, err := pipeline.New(cfg, mfs)
	testutil.AssertNoError(t, err)
	return NewServer(p, cfg, dataDir), mfs
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := testutil.NewTestRecorder()
	s.ServeMux().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestListFrames(t *testing.T) {
	s, _ := setupTestServer(t, 0, 1, 2)

	rec := get(t, s, "/api/frames")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var resp struct {
		Dir    string `json:"dir"`
		Frames []int  `json:"frames"`
		Count  int    `json:"count"`
	}
	decode(t, rec, &resp)

	if resp.Dir != dataDir || resp.Count != 3 || len(resp.Frames) != 3 || resp.Frames[2] != 2 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestListFrames_Empty(t *testing.T) {
	s, _ := setupTestServer(t)

	rec := get(t, s, "/api/frames")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	if !strings.Contains(rec.Body.String(), `"frames":[]`) {
		t.Errorf("expected an empty frames array, got %s", rec.Body.String())
	}
}

func TestListFrames_Discontinuity(t *testing.T) {
	s, mfs := setupTestServer(t, 0, 1, 4)
	if err := mfs.WriteFile(dataDir+"/clusterR01.csv", []byte("x\n"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	rec := get(t, s, "/api/frames")
	testutil.AssertStatusCode(t, rec.Code, http.StatusConflict)

	var resp struct {
		Error      string `json:"error"`
		Missing    []int  `json:"missing"`
		Duplicates []int  `json:"duplicates"`
	}
	decode(t, rec, &resp)

	if len(resp.Missing) != 2 || resp.Missing[0] != 2 || resp.Missing[1] != 3 {
		t.Errorf("missing = %v, want [2 3]", resp.Missing)
	}
	if len(resp.Duplicates) != 1 || resp.Duplicates[0] != 1 {
		t.Errorf("duplicates = %v, want [1]", resp.Duplicates)
	}
	if resp.Error == "" {
		t.Error("expected an error message")
	}
}

func TestShowFrame(t *testing.T) {
	s, _ := setupTestServer(t, 0, 1)

	rec := get(t, s, "/api/frames/1")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var resp FrameResponse
	decode(t, rec, &resp)

	if resp.Index != 1 || resp.Empty {
		t.Errorf("unexpected frame header: index=%d empty=%v", resp.Index, resp.Empty)
	}
	if resp.RawCount != 50 {
		t.Errorf("raw_count = %d, want 50", resp.RawCount)
	}
	if len(resp.Points) != resp.FilteredCount {
		t.Errorf("got %d points, filtered_count %d", len(resp.Points), resp.FilteredCount)
	}
	if resp.ClusterCount != 2 || len(resp.Clusters) != 2 {
		t.Errorf("cluster_count = %d (%d summaries), want 2", resp.ClusterCount, len(resp.Clusters))
	}

	total := resp.NoiseCount
	for _, c := range resp.Clusters {
		total += c.PointCount
	}
	if total != len(resp.Points) {
		t.Errorf("cluster sizes plus noise = %d, want %d", total, len(resp.Points))
	}
}

func TestShowFrame_Errors(t *testing.T) {
	s, mfs := setupTestServer(t, 0)
	rows := clusterRows(9)
	rows[3][9] = "up"
	testutil.WriteFrame(t, mfs, dataDir, 1, true, rows)

	var ops bytes.Buffer
	monitoring.SetLogWriters(&ops, nil, nil)
	t.Cleanup(func() { monitoring.SetLogWriters(nil, nil, nil) })

	tests := []struct {
		path   string
		status int
	}{
		{"/api/frames/7", http.StatusNotFound},
		{"/api/frames/1", http.StatusUnprocessableEntity},
		{"/api/frames/abc", http.StatusBadRequest},
		{"/api/frames/-2", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := get(t, s, tt.path)
			testutil.AssertStatusCode(t, rec.Code, tt.status)

			var resp map[string]string
			decode(t, rec, &resp)
			if resp["error"] == "" {
				t.Error("expected an error message")
			}
		})
	}

	if ops.Len() != 0 {
		t.Errorf("client errors should not reach the ops log, got %q", ops.String())
	}
}

func TestShowConfig(t *testing.T) {
	s, _ := setupTestServer(t)

	rec := get(t, s, "/api/config")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var resp map[string]interface{}
	decode(t, rec, &resp)

	if resp["dbscan_eps"] != 1.5 || resp["noise_threshold"] != 2.5 || resp["dbscan_min_pts"] != 5.0 {
		t.Errorf("unexpected tuning values: %v", resp)
	}
	if resp["x_column"] != 7.0 || resp["dir"] != dataDir {
		t.Errorf("unexpected layout values: %v", resp)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := setupTestServer(t, 0)

	for _, path := range []string{"/api/frames", "/api/frames/0", "/api/config"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		rec := testutil.NewTestRecorder()
		s.ServeMux().ServeHTTP(rec, req)
		testutil.AssertStatusCode(t, rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var diag, ops bytes.Buffer
	monitoring.SetLogWriters(&ops, &diag, nil)
	t.Cleanup(func() { monitoring.SetLogWriters(nil, nil, nil) })

	handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusTeapot)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/tea?cup=1", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))

	if !strings.Contains(diag.String(), "/tea?cup=1") || !strings.Contains(diag.String(), "418") {
		t.Errorf("diag log missing request line: %q", diag.String())
	}
	if !strings.Contains(ops.String(), "/fail") || strings.Contains(ops.String(), "/tea") {
		t.Errorf("ops log should hold only the failed request: %q", ops.String())
	}
}

func TestStatusCodeColor(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, colorBoldGreen + "200" + colorReset},
		{304, colorYellow + "304" + colorReset},
		{404, colorBoldRed + "404" + colorReset},
		{503, colorBoldRed + "503" + colorReset},
		{100, "100"},
	}
	for _, tt := range tests {
		if got := statusCodeColor(tt.code); got != tt.want {
			t.Errorf("statusCodeColor(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}
