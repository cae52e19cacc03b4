package monitor

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/obstacle.report/internal/lidar/pipeline"
)

// DefaultAssetsHost serves the echarts JavaScript for rendered reports.
const DefaultAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// ReportOptions configures WriteReport.
type ReportOptions struct {
	Title      string
	Subtitle   string // typically the run ID
	AssetsHost string // defaults to DefaultAssetsHost
}

// WriteReport renders the recorded run as one HTML page: point counts and
// stage timings per frame, obstacle counts, a bird's-eye scatter of obstacle
// centres, and failures by stage.
func (rs *RunStats) WriteReport(w io.Writer, o ReportOptions) error {
	if o.AssetsHost == "" {
		o.AssetsHost = DefaultAssetsHost
	}
	if o.Title == "" {
		o.Title = "Obstacle detection run"
	}
	samples := rs.Samples()
	snap := rs.Snapshot()

	page := components.NewPage()
	page.SetAssetsHost(o.AssetsHost)
	page.PageTitle = o.Title
	page.AddCharts(
		pointCountChart(samples, o),
		stageTimingChart(samples, o),
		obstacleCountChart(samples, o),
		obstacleMapChart(samples, o),
		failureChart(snap, o),
	)

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

func initOpts(o ReportOptions) charts.GlobalOpts {
	return charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "420px", AssetsHost: o.AssetsHost})
}

func frameAxis(samples []FrameSample) []string {
	x := make([]string, len(samples))
	for i, s := range samples {
		x[i] = strconv.FormatUint(s.Seq, 10)
	}
	return x
}

func pointCountChart(samples []FrameSample, o ReportOptions) *charts.Line {
	series := map[string][]opts.LineData{}
	names := []string{"input", "filtered", "ground", "obstacle"}
	for _, s := range samples {
		st := s.Stats
		vals := []int{st.InputPoints, st.FilteredPoints, st.GroundPoints, st.ObstaclePoints}
		for i, n := range names {
			if s.FailedStage != "" {
				series[n] = append(series[n], opts.LineData{Value: nil})
				continue
			}
			series[n] = append(series[n], opts.LineData{Value: vals[i]})
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		initOpts(o),
		charts.WithTitleOpts(opts.Title{Title: "Points per frame", Subtitle: o.Subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "frame"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "points"}),
	)
	line.SetXAxis(frameAxis(samples))
	for _, n := range names {
		line.AddSeries(n, series[n])
	}
	return line
}

func stageTimingChart(samples []FrameSample, o ReportOptions) *charts.Bar {
	stages := []string{"filter", "segment", "cluster", "bound"}
	series := make([][]opts.BarData, len(stages))
	for _, s := range samples {
		st := s.Stats
		ms := []float64{
			st.FilterDuration.Seconds() * 1000,
			st.SegmentDuration.Seconds() * 1000,
			st.ClusterDuration.Seconds() * 1000,
			st.BoundDuration.Seconds() * 1000,
		}
		for i := range stages {
			series[i] = append(series[i], opts.BarData{Value: ms[i]})
		}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		initOpts(o),
		charts.WithTitleOpts(opts.Title{Title: "Stage time per frame (ms)", Subtitle: o.Subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "frame"}),
	)
	bar.SetXAxis(frameAxis(samples))
	for i, name := range stages {
		bar.AddSeries(name, series[i], charts.WithBarChartOpts(opts.BarChart{Stack: "stages"}))
	}
	return bar
}

func obstacleCountChart(samples []FrameSample, o ReportOptions) *charts.Bar {
	data := make([]opts.BarData, len(samples))
	for i, s := range samples {
		data[i] = opts.BarData{Value: len(s.Centers)}
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		initOpts(o),
		charts.WithTitleOpts(opts.Title{Title: "Obstacles per frame", Subtitle: o.Subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "frame"}),
	)
	bar.SetXAxis(frameAxis(samples)).AddSeries("obstacles", data)
	return bar
}

func obstacleMapChart(samples []FrameSample, o ReportOptions) *charts.Scatter {
	var data []opts.ScatterData
	for _, s := range samples {
		for _, c := range s.Centers {
			data = append(data, opts.ScatterData{Value: []interface{}{c[0], c[1], s.Seq}})
		}
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "720px", Height: "480px", AssetsHost: o.AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Obstacle centres (bird's-eye)", Subtitle: fmt.Sprintf("%d detections", len(data))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries("centres", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 5}))
	return scatter
}

func failureChart(snap StatsSnapshot, o ReportOptions) *charts.Bar {
	stages := make([]string, 0, len(snap.FailuresByStage))
	for st := range snap.FailuresByStage {
		stages = append(stages, string(st))
	}
	sort.Strings(stages)
	data := make([]opts.BarData, len(stages))
	for i, st := range stages {
		data[i] = opts.BarData{Value: snap.FailuresByStage[pipeline.Stage(st)]}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		initOpts(o),
		charts.WithTitleOpts(opts.Title{
			Title:    "Failed frames by stage",
			Subtitle: fmt.Sprintf("%d of %d frames failed", snap.Failed, snap.Frames),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(stages).AddSeries("failures", data,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
	)
	return bar
}
