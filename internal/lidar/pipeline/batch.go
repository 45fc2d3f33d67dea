package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/lidar-frames/internal/monitoring"
)

// MaxRangeFrames caps the number of indices a single ProcessRange call
// will visit.
const MaxRangeFrames = 1 << 20

var (
	// ErrInvalidRange is returned by ProcessRange when start is negative,
	// not less than end, or the range spans more than MaxRangeFrames.
	ErrInvalidRange = errors.New("start frame must be less than end frame")

	// ErrNoFrames is returned by ProcessAll when the directory holds no frames.
	ErrNoFrames = errors.New("no frames found")
)

// BatchOptions controls a batch run.
type BatchOptions struct {
	// Workers is the number of frames processed concurrently. Zero or less
	// uses the pipeline's configured default.
	Workers int

	// OnFrame, when set, receives every successfully processed frame in
	// index order. With one worker it is called as each frame completes;
	// with more, once all frames are done.
	OnFrame func(*ProcessedFrame)
}

// FrameFailure records a frame the batch skipped.
type FrameFailure struct {
	Index int
	Path  string
	Err   error
}

// BatchReport summarises a batch run.
type BatchReport struct {
	RunID      string
	Dir        string
	Start, End int // inclusive index range requested

	Frames   []*ProcessedFrame // successful frames, in index order
	Failures []FrameFailure    // skipped frames, in index order
	Elapsed  time.Duration
}

// Processed returns the number of successfully processed frames.
func (r *BatchReport) Processed() int { return len(r.Frames) }

// FailedIndices returns the indices of skipped frames.
func (r *BatchReport) FailedIndices() []int {
	out := make([]int, len(r.Failures))
	for i, f := range r.Failures {
		out[i] = f.Index
	}
	return out
}

// ProcessAll processes every frame in dir.
//
// The directory is scanned first: a gap or duplicate index returns the
// *l2frames.DiscontinuityError and nothing is processed, and a directory
// without frames returns ErrNoFrames.
func (p *Pipeline) ProcessAll(ctx context.Context, dir string, opts BatchOptions) (*BatchReport, error) {
	indices, err := p.catalog.Scan(dir)
	if err != nil {
		monitoring.Opsf("cannot process %s: %v", dir, err)
		return nil, err
	}
	if len(indices) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoFrames, dir)
	}
	return p.run(ctx, dir, indices, opts)
}

// ProcessRange processes frames start through end inclusive. Frames that
// are missing or malformed are skipped and recorded in the report.
func (p *Pipeline) ProcessRange(ctx context.Context, dir string, start, end int, opts BatchOptions) (*BatchReport, error) {
	if start < 0 || start >= end {
		return nil, fmt.Errorf("%w: got %d..%d", ErrInvalidRange, start, end)
	}
	if end-start >= MaxRangeFrames {
		return nil, fmt.Errorf("%w: %d..%d spans more than %d frames", ErrInvalidRange, start, end, MaxRangeFrames)
	}
	indices := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		indices = append(indices, i)
	}
	return p.run(ctx, dir, indices, opts)
}

type frameResult struct {
	index int
	path  string
	frame *ProcessedFrame
	err   error
	done  bool
}

// run processes indices, which must be non-empty and ascending. On context
// cancellation the partial report is returned with ctx.Err().
func (p *Pipeline) run(ctx context.Context, dir string, indices []int, opts BatchOptions) (*BatchReport, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = p.workers
	}

	report := &BatchReport{
		RunID: uuid.NewString(),
		Dir:   dir,
		Start: indices[0],
		End:   indices[len(indices)-1],
	}
	started := p.clock.Now()
	monitoring.Diagf("batch %s: %d frames (%d..%d) from %s, workers=%d",
		report.RunID, len(indices), report.Start, report.End, dir, workers)

	if workers == 1 {
		for _, idx := range indices {
			if ctx.Err() != nil {
				break
			}
			res := p.processOne(dir, idx)
			report.add(res, opts.OnFrame)
		}
	} else {
		results := make([]frameResult, len(indices))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for i, idx := range indices {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i] = p.processOne(dir, idx)
				return nil
			})
		}
		_ = g.Wait() // only context errors; checked below

		for _, res := range results {
			if res.done {
				report.add(res, opts.OnFrame)
			}
		}
	}

	report.Elapsed = p.clock.Since(started)
	if err := ctx.Err(); err != nil {
		monitoring.Opsf("batch %s: cancelled after %d of %d frames: %v",
			report.RunID, len(report.Frames)+len(report.Failures), len(indices), err)
		return report, err
	}

	monitoring.Diagf("batch %s: %d processed, %d skipped in %v",
		report.RunID, report.Processed(), len(report.Failures), report.Elapsed)
	return report, nil
}

func (p *Pipeline) processOne(dir string, idx int) frameResult {
	path := p.catalog.Resolve(dir, idx)
	pf, err := p.ProcessFile(path)
	return frameResult{index: idx, path: path, frame: pf, err: err, done: true}
}

func (r *BatchReport) add(res frameResult, onFrame func(*ProcessedFrame)) {
	if res.err != nil {
		monitoring.Opsf("batch %s: skipping frame %d: %v", r.RunID, res.index, res.err)
		r.Failures = append(r.Failures, FrameFailure{Index: res.index, Path: res.path, Err: res.err})
		return
	}
	r.Frames = append(r.Frames, res.frame)
	if onFrame != nil {
		onFrame(res.frame)
	}
}
