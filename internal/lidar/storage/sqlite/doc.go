// Package sqlite persists obstacle detection runs in SQLite.
//
// A run row records the configuration and final counts of one pass over a
// frame source. FrameStore is a pipeline.FrameSink that writes one frame row
// per outcome, plus one obstacle row per detected cluster. The schema is
// embedded and applied with golang-migrate when the database is opened.
package sqlite
