package monitor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/banshee-data/obstacle.report/internal/lidar/pipeline"
)

// FrameSample is the per-frame record kept by RunStats.
type FrameSample struct {
	Seq         uint64
	FailedStage pipeline.Stage // empty when the frame succeeded
	Stats       pipeline.FrameStats
	Centers     [][2]float64 // obstacle box centres, X/Y in metres
}

// StatsSnapshot summarises a run so far.
type StatsSnapshot struct {
	Frames          int
	Failed          int
	Obstacles       int
	InputPoints     int64
	FailuresByStage map[pipeline.Stage]int
	MeanFrameTime   time.Duration
	Timestamp       time.Time
}

// RunStats accumulates frame outcomes. It implements pipeline.FrameSink and
// is safe for concurrent use.
type RunStats struct {
	mu        sync.Mutex
	samples   []FrameSample
	startTime time.Time
}

var _ pipeline.FrameSink = (*RunStats)(nil)

// NewRunStats creates a new RunStats instance
func NewRunStats() *RunStats {
	return &RunStats{startTime: time.Now()}
}

// Publish records one outcome.
func (rs *RunStats) Publish(_ context.Context, o pipeline.FrameOutcome) error {
	sample := FrameSample{Seq: o.Seq}
	if o.Err != nil {
		sample.FailedStage = stageOf(o.Err)
	} else {
		sample.Stats = o.Result.Stats
		sample.Centers = make([][2]float64, len(o.Result.Obstacles))
		for i, ob := range o.Result.Obstacles {
			c := ob.Box.Center()
			sample.Centers[i] = [2]float64{c.X, c.Y}
		}
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.samples = append(rs.samples, sample)
	return nil
}

func stageOf(err error) pipeline.Stage {
	var fe *pipeline.FrameError
	if errors.As(err, &fe) {
		return fe.Stage
	}
	return "unknown"
}

// Samples returns a copy of the recorded frames in publish order.
func (rs *RunStats) Samples() []FrameSample {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	out := make([]FrameSample, len(rs.samples))
	copy(out, rs.samples)
	return out
}

// Snapshot summarises the recorded frames.
func (rs *RunStats) Snapshot() StatsSnapshot {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	snap := StatsSnapshot{
		Frames:          len(rs.samples),
		FailuresByStage: make(map[pipeline.Stage]int),
		Timestamp:       time.Now(),
	}
	var total time.Duration
	for _, s := range rs.samples {
		if s.FailedStage != "" {
			snap.Failed++
			snap.FailuresByStage[s.FailedStage]++
			continue
		}
		snap.Obstacles += len(s.Centers)
		snap.InputPoints += int64(s.Stats.InputPoints)
		total += s.Stats.Total()
	}
	if ok := snap.Frames - snap.Failed; ok > 0 {
		snap.MeanFrameTime = total / time.Duration(ok)
	}
	return snap
}

// LogStats logs a one-line summary of the run so far.
func (rs *RunStats) LogStats() {
	snap := rs.Snapshot()
	if snap.Frames == 0 {
		return
	}
	msg := fmt.Sprintf("Detection stats: %d frames, %s points, %d obstacles, %v mean frame time",
		snap.Frames, FormatWithCommas(snap.InputPoints), snap.Obstacles, snap.MeanFrameTime.Round(time.Microsecond))
	if snap.Failed > 0 {
		msg += fmt.Sprintf(", %d failed", snap.Failed)
	}
	log.Print(msg)
}

// GetUptime returns the time since the stats were created
func (rs *RunStats) GetUptime() time.Duration {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return time.Since(rs.startTime)
}

// FormatWithCommas formats a number with thousands separators
func FormatWithCommas(n int64) string {
	if n < 0 {
		return "-" + FormatWithCommas(-n)
	}
	str := fmt.Sprintf("%d", n)
	if len(str) <= 3 {
		return str
	}

	result := ""
	for i, char := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(char)
	}
	return result
}
