package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/banshee-data/lidar-frames/internal/api"
	"github.com/banshee-data/lidar-frames/internal/config"
	"github.com/banshee-data/lidar-frames/internal/fsutil"
	"github.com/banshee-data/lidar-frames/internal/lidar/l2frames"
	"github.com/banshee-data/lidar-frames/internal/lidar/pipeline"
	"github.com/banshee-data/lidar-frames/internal/monitoring"
	"github.com/banshee-data/lidar-frames/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run dispatches a subcommand and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 2
	}

	command, rest := args[0], args[1:]
	switch command {
	case "scan":
		return runScan(rest, stdout, stderr)
	case "process":
		return runProcess(rest, stdout, stderr)
	case "batch":
		return runBatch(ctx, rest, stdout, stderr)
	case "serve":
		return runServe(ctx, rest, stderr)
	case "version":
		fmt.Fprintln(stdout, version.String("lidar-frames"))
		return 0
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", command)
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `lidar-frames - LiDAR frame noise filtering and object segmentation

Usage: lidar-frames <command> [options]

Commands:
  scan       List the frame indices in a dataset directory
  process    Filter and segment one frame
  batch      Process every frame, or a frame range, of a dataset
  serve      Serve processed frames as JSON over HTTP
  version    Show version information
  help       Show this help message

Common Flags:
  -dir <path>          Dataset directory holding clusterR{N}.csv files
  -config <file>       Tuning configuration (JSON)
  -threshold <sigma>   Noise filter cut-off in standard deviations
  -eps <metres>        DBSCAN neighbourhood radius
  -min-pts <n>         DBSCAN minimum neighbourhood size
  -v                   Log per-frame diagnostics to stderr
  -vv                  Also log per-cluster detail

Examples:
  lidar-frames scan -dir ./frames
  lidar-frames process -dir ./frames -frame 12 -out frame12-labelled.csv
  lidar-frames batch -dir ./frames -start 10 -end 40 -workers 4 -out-dir ./labelled
  lidar-frames serve -dir ./frames -listen :8080`)
}

// commonFlags are shared by every dataset subcommand.
type commonFlags struct {
	fs         *flag.FlagSet
	dir        *string
	configPath *string
	threshold  *float64
	eps        *float64
	minPts     *int
	verbose    *bool
	trace      *bool
}

func newCommonFlags(name string, stderr io.Writer) *commonFlags {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return &commonFlags{
		fs:         fs,
		dir:        fs.String("dir", "", "Dataset directory"),
		configPath: fs.String("config", "", "Tuning configuration file (JSON)"),
		threshold:  fs.Float64("threshold", config.DefaultNoiseThreshold, "Noise filter cut-off in standard deviations"),
		eps:        fs.Float64("eps", config.DefaultDBSCANEps, "DBSCAN neighbourhood radius in metres"),
		minPts:     fs.Int("min-pts", config.DefaultDBSCANMinPts, "DBSCAN minimum neighbourhood size"),
		verbose:    fs.Bool("v", false, "Log per-frame diagnostics"),
		trace:      fs.Bool("vv", false, "Log per-cluster detail"),
	}
}

// tuning loads the configuration file, if any, then applies the flags the
// user set explicitly on top of it.
func (c *commonFlags) tuning() (*config.TuningConfig, error) {
	cfg := config.DefaultTuningConfig()
	if *c.configPath != "" {
		loaded, err := config.LoadTuningConfig(*c.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	c.fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "threshold":
			cfg.NoiseThreshold = c.threshold
		case "eps":
			cfg.DBSCANEps = c.eps
		case "min-pts":
			cfg.DBSCANMinPts = c.minPts
		}
	})
	return cfg, cfg.Validate()
}

func (c *commonFlags) setupLogging(stderr io.Writer) {
	var diag, trace io.Writer
	if *c.verbose || *c.trace {
		diag = stderr
	}
	if *c.trace {
		trace = stderr
	}
	monitoring.SetLogWriters(stderr, diag, trace)
}

// open parses args and builds the pipeline. It reports problems on stderr
// and returns nil when the command should exit with status 2.
func (c *commonFlags) open(args []string, stderr io.Writer, needDir bool) (*pipeline.Pipeline, *config.TuningConfig) {
	if err := c.fs.Parse(args); err != nil {
		return nil, nil
	}
	if needDir && *c.dir == "" {
		fmt.Fprintln(stderr, "Error: -dir is required")
		c.fs.Usage()
		return nil, nil
	}
	c.setupLogging(stderr)

	cfg, err := c.tuning()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return nil, nil
	}
	p, err := pipeline.New(cfg, fsutil.OSFileSystem{})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return nil, nil
	}
	return p, cfg
}

func runScan(args []string, stdout, stderr io.Writer) int {
	c := newCommonFlags("scan", stderr)
	p, _ := c.open(args, stderr, true)
	if p == nil {
		return 2
	}

	indices, err := p.Scan(*c.dir)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if len(indices) == 0 {
		fmt.Fprintf(stdout, "no frames in %s\n", *c.dir)
		return 0
	}
	fmt.Fprintf(stdout, "%d frames in %s: %d..%d\n", len(indices), *c.dir, indices[0], indices[len(indices)-1])
	return 0
}

func runProcess(args []string, stdout, stderr io.Writer) int {
	c := newCommonFlags("process", stderr)
	frame := c.fs.Int("frame", -1, "Frame index within -dir")
	file := c.fs.String("file", "", "Frame file to process instead of -dir/-frame")
	out := c.fs.String("out", "", "Write the labelled frame as CSV to this path")

	p, _ := c.open(args, stderr, false)
	if p == nil {
		return 2
	}

	var (
		pf  *pipeline.ProcessedFrame
		err error
	)
	switch {
	case *file != "":
		pf, err = p.ProcessFile(*file)
	case *c.dir != "" && *frame >= 0:
		pf, err = p.LoadAndProcess(*c.dir, *frame)
	default:
		fmt.Fprintln(stderr, "Error: either -file or both -dir and -frame are required")
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	printFrame(stdout, pf)
	if *out != "" {
		if err := writeLabelled(fsutil.OSFileSystem{}, *out, pf); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}
	return 0
}

func runBatch(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	c := newCommonFlags("batch", stderr)
	start := c.fs.Int("start", -1, "First frame of the range (inclusive)")
	end := c.fs.Int("end", -1, "Last frame of the range (inclusive)")
	workers := c.fs.Int("workers", 0, "Frames processed concurrently (0 uses batch_workers from the config)")
	outDir := c.fs.String("out-dir", "", "Write each labelled frame as CSV into this directory")

	p, _ := c.open(args, stderr, true)
	if p == nil {
		return 2
	}

	osfs := fsutil.OSFileSystem{}
	var writeErr error
	opts := pipeline.BatchOptions{Workers: *workers}
	if *outDir != "" {
		if err := osfs.MkdirAll(*outDir, 0755); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		opts.OnFrame = func(pf *pipeline.ProcessedFrame) {
			path := filepath.Join(*outDir, filepath.Base(pf.Path))
			if err := writeLabelled(osfs, path, pf); err != nil && writeErr == nil {
				writeErr = err
			}
		}
	}

	var (
		report *pipeline.BatchReport
		err    error
	)
	if *start < 0 && *end < 0 {
		report, err = p.ProcessAll(ctx, *c.dir, opts)
	} else {
		report, err = p.ProcessRange(ctx, *c.dir, *start, *end, opts)
	}
	if report == nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	printReport(stdout, report)
	if writeErr != nil {
		fmt.Fprintf(stderr, "Error: %v\n", writeErr)
		return 1
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func runServe(ctx context.Context, args []string, stderr io.Writer) int {
	c := newCommonFlags("serve", stderr)
	listen := c.fs.String("listen", ":8080", "Listen address")

	p, cfg := c.open(args, stderr, true)
	if p == nil {
		return 2
	}

	if _, err := p.Scan(*c.dir); err != nil {
		var de *l2frames.DiscontinuityError
		if !errors.As(err, &de) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		// Served as 409 by /api/frames; individual frames stay reachable.
		monitoring.Opsf("%v", err)
	}

	server := &http.Server{
		Addr:              *listen,
		Handler:           api.NewServer(p, cfg, *c.dir).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		monitoring.Opsf("serving %s on %s", *c.dir, *listen)
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		monitoring.Opsf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			monitoring.Opsf("HTTP server force close error: %v", err)
		}
	}
	return 0
}

func writeLabelled(fsys fsutil.FileSystem, path string, pf *pipeline.ProcessedFrame) error {
	w, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := pf.WriteCSV(w); err != nil {
		w.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

func printFrame(w io.Writer, pf *pipeline.ProcessedFrame) {
	fmt.Fprintf(w, "%s: %d points, %d after filtering, %d clusters, %d noise\n",
		filepath.Base(pf.Path), pf.RawCount, pf.FilteredCount, len(pf.Clusters), pf.NoiseCount)
	if len(pf.Clusters) == 0 {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CLUSTER\tPOINTS\tCENTROID\tSIZE (LxWxH)")
	for _, c := range pf.Clusters {
		fmt.Fprintf(tw, "%d\t%d\t(%.2f, %.2f, %.2f)\t%.2fx%.2fx%.2f\n",
			c.Label, c.PointCount, c.CentroidX, c.CentroidY, c.CentroidZ,
			c.Length(), c.Width(), c.Height())
	}
	tw.Flush()
}

func printReport(w io.Writer, r *pipeline.BatchReport) {
	fmt.Fprintf(w, "run %s: %d frames processed, %d skipped (%d..%d) in %v\n",
		r.RunID, r.Processed(), len(r.Failures), r.Start, r.End, r.Elapsed.Round(time.Millisecond))
	for _, f := range r.Failures {
		fmt.Fprintf(w, "  skipped frame %d: %v\n", f.Index, f.Err)
	}
}
