// Package api serves processed LiDAR frames as read-only JSON for a
// visualization client. The dataset directory is fixed when the server is
// created.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/lidar-frames/internal/config"
	"github.com/banshee-data/lidar-frames/internal/httputil"
	"github.com/banshee-data/lidar-frames/internal/lidar/l2frames"
	"github.com/banshee-data/lidar-frames/internal/lidar/pipeline"
	"github.com/banshee-data/lidar-frames/internal/monitoring"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	pipeline *pipeline.Pipeline
	cfg      *config.TuningConfig
	dir      string
}

// NewServer creates a Server for the frames in dir. cfg is reported by
// /api/config and should be the configuration p was built from.
func NewServer(p *pipeline.Pipeline, cfg *config.TuningConfig, dir string) *Server {
	if cfg == nil {
		cfg = config.DefaultTuningConfig()
	}
	return &Server{
		pipeline: p,
		cfg:      cfg,
		dir:      dir,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration.
// Server errors go to the ops stream, everything else to diag.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)

		logf := monitoring.Diagf
		if lrw.statusCode >= 500 {
			logf = monitoring.Opsf
		}
		logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/frames", s.listFrames)
	mux.HandleFunc("/api/frames/{index}", s.showFrame)
	mux.HandleFunc("/api/config", s.showConfig)
	return mux
}

// Handler returns the server's routes wrapped in LoggingMiddleware.
func (s *Server) Handler() http.Handler {
	return LoggingMiddleware(s.ServeMux())
}

func (s *Server) listFrames(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	indices, err := s.pipeline.Scan(s.dir)
	if err != nil {
		var de *l2frames.DiscontinuityError
		if errors.As(err, &de) {
			httputil.WriteJSONErrorDetails(w, http.StatusConflict, de.Error(), map[string]interface{}{
				"min":           de.Min,
				"max":           de.Max,
				"missing":       nonNil(de.Missing),
				"missing_count": de.MissingCount,
				"duplicates":    nonNil(de.Duplicates),
			})
			return
		}
		monitoring.Opsf("failed to scan %s: %v", s.dir, err)
		httputil.InternalServerError(w, "failed to scan frame directory")
		return
	}

	httputil.WriteJSONOK(w, map[string]interface{}{
		"dir":    s.dir,
		"frames": indices,
		"count":  len(indices),
	})
}

func (s *Server) showFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	raw := r.PathValue("index")
	index, err := strconv.Atoi(raw)
	if err != nil || index < 0 {
		httputil.BadRequest(w, fmt.Sprintf("invalid frame index %q", raw))
		return
	}

	pf, err := s.pipeline.LoadAndProcess(s.dir, index)
	if err != nil {
		var nf *l2frames.FrameNotFoundError
		var me *l2frames.MalformedDataError
		switch {
		case errors.As(err, &nf):
			httputil.NotFound(w, fmt.Sprintf("frame %d not found", index))
		case errors.As(err, &me):
			httputil.UnprocessableEntity(w, me.Error())
		default:
			monitoring.Opsf("failed to process frame %d: %v", index, err)
			httputil.InternalServerError(w, "failed to process frame")
		}
		return
	}

	httputil.WriteJSONOK(w, newFrameResponse(pf))
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	cols := s.cfg.GetSpatialColumns()
	names := s.cfg.GetSpatialColumnNames()
	httputil.WriteJSONOK(w, map[string]interface{}{
		"dir":             s.dir,
		"noise_threshold": s.cfg.GetNoiseThreshold(),
		"dbscan_eps":      s.cfg.GetDBSCANEps(),
		"dbscan_min_pts":  s.cfg.GetDBSCANMinPts(),
		"x_column":        cols[0],
		"y_column":        cols[1],
		"z_column":        cols[2],
		"x_column_name":   names[0],
		"y_column_name":   names[1],
		"z_column_name":   names[2],
		"batch_workers":   s.cfg.GetBatchWorkers(),
	})
}

func nonNil(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}
