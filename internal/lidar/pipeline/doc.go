// Package pipeline orchestrates per-frame obstacle detection.
//
// A FrameProcessor runs one raw frame through the L4 perception stages
// (filter, segment, cluster, bound) and returns a FrameResult or a
// FrameError tagged with the failing stage. A Runner feeds frames from a
// FrameSource through a bounded worker pool and hands outcomes to a
// FrameSink strictly in acquisition order.
//
// The pipeline does not own domain logic. It delegates to l4perception and
// talks to frame acquisition and result consumers only through the
// FrameSource and FrameSink interfaces.
package pipeline
