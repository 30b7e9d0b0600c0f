package models

// --- Jobs ---

// JobRequest asks the worker to run one named task on an input.
// Used in [POST] /v1/jobs
type JobRequest struct {
	JobID string `json:"job_id,omitempty"` // Generated when empty
	Input string `json:"input"`            // Local path or http(s) URL
	Task  string `json:"task"`             // "create_preview_video", "boomerang", "reencode_for_web"
}

// ReencodeRequest trims and re-encodes an input with explicit settings.
// Zero values are replaced by the worker defaults before decoding.
// Used in [POST] /v1/reencode
type ReencodeRequest struct {
	JobID     string  `json:"job_id,omitempty"`
	Input     string  `json:"input"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"` // -1 means until the end
	Preset    string  `json:"preset"`   // e.g. "fast", "medium", "slow"
	Bitrate   string  `json:"bitrate"`  // e.g. "20M", "500k"
}

// JobResult reports completion or failure of a job.
type JobResult struct {
	JobID    string     `json:"job_id"`
	Status   string     `json:"status"` // "COMPLETED", "FAILED"
	Output   string     `json:"output,omitempty"`
	ErrorMsg string     `json:"error_message,omitempty"`
	Metrics  JobMetrics `json:"metrics"`
}

type JobMetrics struct {
	TotalTimeMS int64 `json:"total_time_ms"`
}

const (
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// --- Worker ---

// StaticHardware defines immutable specs gathered once at startup.
// Used in [GET] /v1/capabilities
type StaticHardware struct {
	CPUModel             string   `json:"cpu_model"`
	TotalThreads         int      `json:"total_threads"`
	GPUName              string   `json:"gpu_name,omitempty"`
	HardwareAcceleration []string `json:"hardware_acceleration"` // e.g. ["nvenc", "cuda"]
	Tasks                []string `json:"tasks"`
}

// SystemHealth captures real-time host metrics gathered by gopsutil.
// Used in [GET] /healthz
type SystemHealth struct {
	Status       string  `json:"status"`    // "ok", "busy", "degraded"
	CPUUsage     float64 `json:"cpu_usage"` // Percentage
	RAMPercent   float64 `json:"ram_percent"`
	RAMFreeBytes uint64  `json:"ram_free_bytes"`

	// Computed flag: CPU > 80% or RAM > 90%.
	IsBusy bool `json:"is_busy"`
}

// ErrorResponse is the body of every non-2xx reply that is not a JobResult.
type ErrorResponse struct {
	Error string `json:"error"`
}
