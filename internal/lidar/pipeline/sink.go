package pipeline

import (
	"context"
	"fmt"
	"reflect"

	"github.com/banshee-data/obstacle.report/internal/lidar/l4perception"
)

// FrameSource yields raw frames in acquisition order. NextFrame returns
// io.EOF once the sequence is exhausted and must honour ctx cancellation.
type FrameSource interface {
	NextFrame(ctx context.Context) (l4perception.PointSet, error)
}

// FrameSink consumes frame outcomes. Runner calls Publish from a single
// goroutine in strictly increasing Seq order.
type FrameSink interface {
	Publish(ctx context.Context, outcome FrameOutcome) error
}

// FrameOutcome carries either the result of a frame or the error that
// aborted it. Exactly one of Result and Err is set.
type FrameOutcome struct {
	Seq    uint64
	Result *FrameResult
	Err    error
}

// Failed reports whether the frame was aborted.
func (o FrameOutcome) Failed() bool { return o.Err != nil }

// SinkFunc adapts a function to FrameSink.
type SinkFunc func(ctx context.Context, outcome FrameOutcome) error

func (f SinkFunc) Publish(ctx context.Context, outcome FrameOutcome) error { return f(ctx, outcome) }

// MultiSink publishes each outcome to every sink in order and stops at the
// first error. Nil sinks, including typed nil pointers, are skipped.
type MultiSink []FrameSink

func (m MultiSink) Publish(ctx context.Context, outcome FrameOutcome) error {
	for i, s := range m {
		if isNilInterface(s) {
			continue
		}
		if err := s.Publish(ctx, outcome); err != nil {
			return fmt.Errorf("sink %d: %w", i, err)
		}
	}
	return nil
}

// isNilInterface checks if an interface value is nil or contains a nil pointer.
func isNilInterface(i interface{}) bool {
	if i == nil {
		return true
	}
	v := reflect.ValueOf(i)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return v.IsNil()
	}
	return false
}
