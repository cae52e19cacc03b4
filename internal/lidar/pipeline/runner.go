package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/obstacle.report/internal/lidar/l4perception"
)

// Runner processes frames from a source on a bounded worker pool and
// delivers outcomes to a sink in acquisition order.
type Runner struct {
	Processor *FrameProcessor

	// Workers is the number of frames processed concurrently. Values
	// below one mean one.
	Workers int
}

// RunSummary counts what a run delivered to its sink.
type RunSummary struct {
	Frames          int
	Failed          int
	Obstacles       int
	FailuresByStage map[Stage]int
	Elapsed         time.Duration
}

func (s *RunSummary) add(o FrameOutcome) {
	s.Frames++
	if o.Err == nil {
		s.Obstacles += len(o.Result.Obstacles)
		return
	}
	s.Failed++
	var fe *FrameError
	if errors.As(o.Err, &fe) {
		s.FailuresByStage[fe.Stage]++
	}
}

type frameJob struct {
	seq uint64
	raw l4perception.PointSet
}

// Run reads frames until the source returns io.EOF. Frame failures are
// logged and delivered as outcomes without stopping the run. A source error,
// a sink error or cancellation of ctx stops the run; the summary then covers
// the frames published before the stop.
func (r *Runner) Run(ctx context.Context, src FrameSource, sink FrameSink) (RunSummary, error) {
	summary := RunSummary{FailuresByStage: make(map[Stage]int)}
	if r.Processor == nil {
		return summary, fmt.Errorf("%w: runner has no frame processor", l4perception.ErrInvalidParameter)
	}
	workers := r.Workers
	if workers < 1 {
		workers = 1
	}
	cfg := r.Processor.Config()
	diagf("run starting: workers=%d %s", workers, cfg)
	began := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan frameJob, workers)
	outcomes := make(chan FrameOutcome, workers)
	// window bounds the frames read but not yet published.
	window := make(chan struct{}, 2*workers)

	g.Go(func() error {
		defer close(jobs)
		for seq := uint64(0); ; seq++ {
			select {
			case window <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			raw, err := src.NextFrame(gctx)
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("read frame %d: %w", seq, err)
			}
			select {
			case jobs <- frameJob{seq: seq, raw: raw}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			for job := range jobs {
				res, err := r.Processor.ProcessFrame(job.seq, job.raw)
				out := FrameOutcome{Seq: job.seq, Result: res, Err: err}
				select {
				case outcomes <- out:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		wg.Wait()
		close(outcomes)
		return nil
	})

	g.Go(func() error {
		pending := make(map[uint64]FrameOutcome)
		var next uint64
		for out := range outcomes {
			pending[out.Seq] = out
			for {
				o, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				if o.Err != nil {
					logFrameFailure(o, cfg)
				}
				if err := sink.Publish(gctx, o); err != nil {
					return fmt.Errorf("publish frame %d: %w", o.Seq, err)
				}
				summary.add(o)
				<-window
				next++
			}
		}
		return nil
	})

	err := g.Wait()
	summary.Elapsed = time.Since(began)
	if err != nil {
		opsf("run stopped after %d frames: %v", summary.Frames, err)
		return summary, err
	}
	diagf("run finished: frames=%d failed=%d obstacles=%d elapsed=%v",
		summary.Frames, summary.Failed, summary.Obstacles, summary.Elapsed)
	return summary, nil
}

func logFrameFailure(o FrameOutcome, cfg Config) {
	var fe *FrameError
	if errors.As(o.Err, &fe) {
		opsf("frame %d failed at %s stage: %v [%s]", fe.Seq, fe.Stage, fe.Cause, cfg)
		return
	}
	opsf("frame %d failed: %v [%s]", o.Seq, o.Err, cfg)
}
