// Package monitor collects per-run detection statistics and renders them as
// a self-contained HTML report with go-echarts.
package monitor
