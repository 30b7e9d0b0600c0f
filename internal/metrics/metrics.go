package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Encode metrics
var (
	EncodeAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_utils_encode_attempts_total",
			Help: "Total number of ffmpeg encode invocations",
		},
		[]string{"stage", "path", "result"}, // path: "hardware", "software"
	)

	EncodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "video_utils_encode_duration_seconds",
			Help:    "Duration of a single ffmpeg invocation in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"stage", "path"},
	)

	HardwareFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_utils_hardware_fallbacks_total",
			Help: "Total number of hardware plans that failed and were retried in software",
		},
		[]string{"stage"},
	)
)

// Task metrics
var (
	TasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_utils_tasks_total",
			Help: "Total number of processed tasks",
		},
		[]string{"task", "status"},
	)

	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "video_utils_task_duration_seconds",
			Help:    "End-to-end task duration in seconds",
			Buckets: []float64{1, 2.5, 5, 10, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"task"},
	)

	PipelineStageFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_utils_pipeline_stage_failures_total",
			Help: "Total number of failed boomerang stages",
		},
		[]string{"stage"},
	)
)

// Download metrics
var (
	DownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_utils_downloads_total",
			Help: "Total number of remote input downloads",
		},
		[]string{"status"},
	)

	DownloadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "video_utils_download_bytes_total",
			Help: "Total bytes downloaded for remote inputs",
		},
	)
)
