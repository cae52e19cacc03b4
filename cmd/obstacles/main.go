package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/obstacle.report/internal/config"
	"github.com/banshee-data/obstacle.report/internal/lidar/l4perception"
	"github.com/banshee-data/obstacle.report/internal/lidar/monitor"
	"github.com/banshee-data/obstacle.report/internal/lidar/pipeline"
	"github.com/banshee-data/obstacle.report/internal/lidar/storage/sqlite"
	"github.com/banshee-data/obstacle.report/internal/lidar/synthetic"
	"github.com/banshee-data/obstacle.report/internal/version"
)

var (
	configFile = flag.String("config", config.DefaultConfigPath, "Path to the JSON tuning config")
	dbFile     = flag.String("db", "obstacles.db", "Path to the SQLite database file (empty disables persistence)")
	reportFile = flag.String("report", "obstacles_report.html", "Path to write the HTML run report (empty disables the report)")
	frames     = flag.Int("frames", 50, "Number of synthetic frames to generate (0 runs until interrupted)")
	workers    = flag.Int("workers", 0, "Worker goroutines (0 uses the config value)")
	seed       = flag.Int64("seed", 1, "Synthetic scene seed")
	debug      = flag.Bool("debug", false, "Enable diag and trace logging")
	showVer    = flag.Bool("version", false, "Print the build version and exit")
)

// options is the resolved command line.
type options struct {
	ConfigPath string
	DBPath     string
	ReportPath string
	Frames     int
	Workers    int
	SceneSeed  int64
	Debug      bool
}

func main() {
	flag.Parse()

	if *showVer {
		fmt.Println(version.String())
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := options{
		ConfigPath: *configFile,
		DBPath:     *dbFile,
		ReportPath: *reportFile,
		Frames:     *frames,
		Workers:    *workers,
		SceneSeed:  *seed,
		Debug:      *debug,
	}
	if err := run(ctx, opts, os.Stderr); err != nil {
		log.Fatalf("obstacles: %v", err)
	}
}

// run wires the synthetic scene through the runner into the configured sinks.
func run(ctx context.Context, opts options, logw io.Writer) error {
	var diag, trace io.Writer
	if opts.Debug {
		diag, trace = logw, logw
	}
	pipeline.SetLogWriters(logw, diag, trace)
	l4perception.SetLogWriters(diag, trace)

	tuning, err := config.LoadTuningConfig(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.Workers > 0 {
		tuning.Workers = &opts.Workers
	}

	processor, err := pipeline.NewFrameProcessor(tuning.ToPipelineConfig())
	if err != nil {
		return fmt.Errorf("create processor: %w", err)
	}

	sceneCfg := synthetic.DefaultHighwayConfig()
	sceneCfg.Frames = opts.Frames
	sceneCfg.Seed = opts.SceneSeed
	scene := synthetic.NewHighway(sceneCfg)

	stats := monitor.NewRunStats()
	sinks := pipeline.MultiSink{stats}

	var (
		runs  *sqlite.RunStore
		runID string
	)
	if opts.DBPath != "" {
		db, err := sqlite.Open(opts.DBPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		params, err := json.Marshal(tuning)
		if err != nil {
			return fmt.Errorf("encode params: %w", err)
		}
		runs = sqlite.NewRunStore(db)
		record := &sqlite.Run{
			Source:     fmt.Sprintf("synthetic:highway seed=%d [%s]", opts.SceneSeed, version.String()),
			ParamsJSON: params,
		}
		if err := runs.InsertRun(ctx, record); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		runID = record.RunID
		sinks = append(sinks, sqlite.NewFrameStore(db, runID))
		log.Printf("Recording run %s to %s", runID, opts.DBPath)
	}

	statsCtx, stopStats := context.WithCancel(ctx)
	defer stopStats()
	go func() {
		ticker := time.NewTicker(tuning.GetStatsInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				stats.LogStats()
			case <-statsCtx.Done():
				return
			}
		}
	}()

	runner := &pipeline.Runner{Processor: processor, Workers: tuning.GetWorkers()}
	summary, runErr := runner.Run(ctx, scene, sinks)
	stopStats()
	stats.LogStats()

	if runs != nil {
		// The run context may already be cancelled; record the outcome regardless.
		if err := runs.CompleteRun(context.Background(), runID, summary, runErr); err != nil {
			log.Printf("failed to complete run %s: %v", runID, err)
		}
	}

	if opts.ReportPath != "" {
		if err := writeReport(stats, opts.ReportPath, runID); err != nil {
			return err
		}
		log.Printf("Report written to %s", opts.ReportPath)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("run: %w", runErr)
	}
	log.Printf("Processed %d frames (%d failed), %d obstacles in %v",
		summary.Frames, summary.Failed, summary.Obstacles, summary.Elapsed.Round(time.Millisecond))
	return nil
}

func writeReport(stats *monitor.RunStats, path, runID string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	subtitle := "synthetic highway"
	if runID != "" {
		subtitle = "run " + runID
	}
	if err := stats.WriteReport(f, monitor.ReportOptions{Title: "Obstacle detection", Subtitle: subtitle}); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return f.Close()
}
