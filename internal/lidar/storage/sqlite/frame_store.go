package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/banshee-data/obstacle.report/internal/lidar/pipeline"
)

// FrameRecord is the persisted summary of one frame.
type FrameRecord struct {
	RunID          string
	Seq            uint64
	FailedStage    string
	Error          string
	InputPoints    int
	FilteredPoints int
	GroundPoints   int
	ObstaclePoints int
	Clusters       int
	Plane          [4]float64 // A, B, C, D; zero for failed frames
	FilterNs       int64
	SegmentNs      int64
	ClusterNs      int64
	BoundNs        int64
}

// Failed reports whether the frame was aborted by a stage.
func (f FrameRecord) Failed() bool { return f.Error != "" }

// ObstacleRecord is one persisted obstacle with both of its boxes.
type ObstacleRecord struct {
	RunID      string
	Seq        uint64
	Index      int
	PointCount int

	// Axis-aligned box.
	MinX, MinY, MinZ float64
	MaxX, MaxY, MaxZ float64

	// Oriented box.
	CenterX, CenterY, CenterZ float64
	Length, Width, Height     float64
	HeadingRad                float64
}

// FrameStore writes frame outcomes of one run. It implements
// pipeline.FrameSink.
type FrameStore struct {
	db    *DB
	runID string
}

var _ pipeline.FrameSink = (*FrameStore)(nil)

// NewFrameStore creates a sink writing under runID, which must already exist.
func NewFrameStore(db *DB, runID string) *FrameStore {
	return &FrameStore{db: db, runID: runID}
}

// Publish stores the frame row and its obstacles in one transaction.
func (s *FrameStore) Publish(ctx context.Context, o pipeline.FrameOutcome) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin frame %d: %w", o.Seq, err)
	}
	defer tx.Rollback()

	if err := insertFrame(ctx, tx, s.runID, o); err != nil {
		return err
	}
	if o.Result != nil {
		if err := insertObstacles(ctx, tx, s.runID, o.Result); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit frame %d: %w", o.Seq, err)
	}
	return nil
}

func insertFrame(ctx context.Context, tx *sql.Tx, runID string, o pipeline.FrameOutcome) error {
	const query = `
		INSERT INTO detection_frames (
			run_id, seq, failed_stage, error,
			input_points, filtered_points, ground_points, obstacle_points, clusters,
			plane_a, plane_b, plane_c, plane_d,
			filter_ns, segment_ns, cluster_ns, bound_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if o.Err != nil {
		var stage string
		var fe *pipeline.FrameError
		if errors.As(o.Err, &fe) {
			stage = string(fe.Stage)
		}
		_, err := tx.ExecContext(ctx, query,
			runID, int64(o.Seq), nullString(stage), o.Err.Error(),
			0, 0, 0, 0, 0,
			nil, nil, nil, nil,
			0, 0, 0, 0,
		)
		if err != nil {
			return fmt.Errorf("insert failed frame %d: %w", o.Seq, err)
		}
		return nil
	}

	r := o.Result
	st := r.Stats
	_, err := tx.ExecContext(ctx, query,
		runID, int64(o.Seq), nil, nil,
		st.InputPoints, st.FilteredPoints, st.GroundPoints, st.ObstaclePoints, st.Clusters,
		r.Plane.A, r.Plane.B, r.Plane.C, r.Plane.D,
		st.FilterDuration.Nanoseconds(), st.SegmentDuration.Nanoseconds(),
		st.ClusterDuration.Nanoseconds(), st.BoundDuration.Nanoseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert frame %d: %w", o.Seq, err)
	}
	return nil
}

func insertObstacles(ctx context.Context, tx *sql.Tx, runID string, r *pipeline.FrameResult) error {
	if len(r.Obstacles) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO detection_obstacles (
			run_id, seq, obstacle_idx, point_count,
			min_x, min_y, min_z, max_x, max_y, max_z,
			center_x, center_y, center_z, length, width, height, heading_rad
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare obstacle insert: %w", err)
	}
	defer stmt.Close()

	for i, ob := range r.Obstacles {
		b, o := ob.Box, ob.Oriented
		_, err := stmt.ExecContext(ctx,
			runID, int64(r.Seq), i, ob.Size(),
			b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z,
			o.CenterX, o.CenterY, o.CenterZ, o.Length, o.Width, o.Height, o.HeadingRad,
		)
		if err != nil {
			return fmt.Errorf("insert obstacle %d of frame %d: %w", i, r.Seq, err)
		}
	}
	return nil
}

// ListFrames returns every frame of a run in sequence order.
func (s *FrameStore) ListFrames(ctx context.Context) ([]FrameRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, failed_stage, error,
		       input_points, filtered_points, ground_points, obstacle_points, clusters,
		       plane_a, plane_b, plane_c, plane_d,
		       filter_ns, segment_ns, cluster_ns, bound_ns
		FROM detection_frames
		WHERE run_id = ?
		ORDER BY seq
	`, s.runID)
	if err != nil {
		return nil, fmt.Errorf("list frames: %w", err)
	}
	defer rows.Close()

	var frames []FrameRecord
	for rows.Next() {
		var f FrameRecord
		var seq int64
		var stage, msg sql.NullString
		var plane [4]sql.NullFloat64
		err := rows.Scan(&f.RunID, &seq, &stage, &msg,
			&f.InputPoints, &f.FilteredPoints, &f.GroundPoints, &f.ObstaclePoints, &f.Clusters,
			&plane[0], &plane[1], &plane[2], &plane[3],
			&f.FilterNs, &f.SegmentNs, &f.ClusterNs, &f.BoundNs)
		if err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		f.Seq = uint64(seq)
		f.FailedStage = stage.String
		f.Error = msg.String
		for i, v := range plane {
			f.Plane[i] = v.Float64
		}
		frames = append(frames, f)
	}
	return frames, rows.Err()
}

// ListObstacles returns the obstacles of one frame in extraction order.
func (s *FrameStore) ListObstacles(ctx context.Context, seq uint64) ([]ObstacleRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, obstacle_idx, point_count,
		       min_x, min_y, min_z, max_x, max_y, max_z,
		       center_x, center_y, center_z, length, width, height, heading_rad
		FROM detection_obstacles
		WHERE run_id = ? AND seq = ?
		ORDER BY obstacle_idx
	`, s.runID, int64(seq))
	if err != nil {
		return nil, fmt.Errorf("list obstacles: %w", err)
	}
	defer rows.Close()

	var obstacles []ObstacleRecord
	for rows.Next() {
		var o ObstacleRecord
		var rowSeq int64
		err := rows.Scan(&o.RunID, &rowSeq, &o.Index, &o.PointCount,
			&o.MinX, &o.MinY, &o.MinZ, &o.MaxX, &o.MaxY, &o.MaxZ,
			&o.CenterX, &o.CenterY, &o.CenterZ, &o.Length, &o.Width, &o.Height, &o.HeadingRad)
		if err != nil {
			return nil, fmt.Errorf("scan obstacle: %w", err)
		}
		o.Seq = uint64(rowSeq)
		obstacles = append(obstacles, o)
	}
	return obstacles, rows.Err()
}
