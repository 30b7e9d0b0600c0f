package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nicolascoutureau/video-utils-hw/internal/transcoder"
	"github.com/nicolascoutureau/video-utils-hw/pkg/models"
)

// Processor runs tasks and re-encodes. *transcoder.Transcoder implements it.
type Processor interface {
	Process(ctx context.Context, input string, task string) (transcoder.Artifact, error)
	Reencode(ctx context.Context, input string, opts transcoder.ReencodeOptions) (transcoder.Artifact, error)
}

// Fetcher resolves an input reference to a local path.
type Fetcher interface {
	Fetch(ctx context.Context, input string) (string, func(), error)
}

// HostMonitor reports host specs and live health.
type HostMonitor interface {
	StaticSpecs(ctx context.Context) (models.StaticHardware, error)
	GetStats(ctx context.Context) (models.SystemHealth, error)
}

type JobServer struct {
	addr      string
	processor Processor
	fetcher   Fetcher
	monitor   HostMonitor
	logger    hclog.Logger
	router    *mux.Router
}

func NewJobServer(addr string, p Processor, f Fetcher, m HostMonitor, logger hclog.Logger) *JobServer {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	s := &JobServer{
		addr:      addr,
		processor: p,
		fetcher:   f,
		monitor:   m,
		logger:    logger.Named("server"),
	}
	s.router = s.routes()
	return s
}

func (s *JobServer) routes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Full paths on the root router so a method mismatch answers 405.
	r.HandleFunc("/v1/jobs", s.handleJob).Methods("POST")
	r.HandleFunc("/v1/reencode", s.handleReencode).Methods("POST")
	r.HandleFunc("/v1/capabilities", s.handleCapabilities).Methods("GET")

	return r
}

// Handler exposes the router, mostly for tests.
func (s *JobServer) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *JobServer) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening for jobs", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.logger.Info("shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *JobServer) handleJob(w http.ResponseWriter, r *http.Request) {
	var req models.JobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.JobID == "" {
		req.JobID = uuid.NewString()
	}
	s.logger.Info("received job", "job_id", req.JobID, "task", req.Task, "input", req.Input)

	// Reject unknown tasks before downloading anything.
	if _, err := transcoder.ParseTask(req.Task); err != nil {
		s.writeResult(w, req.JobID, transcoder.Artifact{}, err, 0)
		return
	}

	start := time.Now()
	art, err := s.withInput(r.Context(), req.Input, func(local string) (transcoder.Artifact, error) {
		return s.processor.Process(r.Context(), local, req.Task)
	})
	s.writeResult(w, req.JobID, art, err, time.Since(start))
}

func (s *JobServer) handleReencode(w http.ResponseWriter, r *http.Request) {
	defaults := transcoder.DefaultReencodeOptions()
	req := models.ReencodeRequest{
		StartTime: defaults.Start,
		EndTime:   defaults.End,
		Preset:    defaults.Preset,
		Bitrate:   defaults.Bitrate,
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.JobID == "" {
		req.JobID = uuid.NewString()
	}
	s.logger.Info("received re-encode", "job_id", req.JobID, "input", req.Input,
		"start", req.StartTime, "end", req.EndTime, "preset", req.Preset, "bitrate", req.Bitrate)

	opts := transcoder.ReencodeOptions{
		Start:   req.StartTime,
		End:     req.EndTime,
		Preset:  req.Preset,
		Bitrate: req.Bitrate,
	}

	start := time.Now()
	art, err := s.withInput(r.Context(), req.Input, func(local string) (transcoder.Artifact, error) {
		return s.processor.Reencode(r.Context(), local, opts)
	})
	s.writeResult(w, req.JobID, art, err, time.Since(start))
}

// withInput fetches input, runs fn on the local copy and removes the copy.
func (s *JobServer) withInput(ctx context.Context, input string, fn func(string) (transcoder.Artifact, error)) (transcoder.Artifact, error) {
	local, cleanup, err := s.fetcher.Fetch(ctx, input)
	if err != nil {
		return transcoder.Artifact{}, err
	}
	defer cleanup()
	return fn(local)
}

func (s *JobServer) writeResult(w http.ResponseWriter, jobID string, art transcoder.Artifact, err error, elapsed time.Duration) {
	res := models.JobResult{
		JobID:   jobID,
		Status:  models.StatusCompleted,
		Output:  art.Path,
		Metrics: models.JobMetrics{TotalTimeMS: elapsed.Milliseconds()},
	}
	status := http.StatusOK

	if err != nil {
		res.Status = models.StatusFailed
		res.Output = ""
		res.ErrorMsg = err.Error()
		status = statusFor(err)
		s.logger.Error("job failed", "job_id", jobID, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	s.writeJSON(w, res)
}

func statusFor(err error) int {
	if errors.Is(err, transcoder.ErrUnknownTask) || errors.Is(err, transcoder.ErrInvalidInput) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *JobServer) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	specs, err := s.monitor.StaticSpecs(r.Context())
	if err != nil {
		// Partial specs are still useful; the detection fields are set.
		s.logger.Warn("failed to read host specs", "error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	s.writeJSON(w, specs)
}

func (s *JobServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	health, err := s.monitor.GetStats(r.Context())
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		s.logger.Warn("failed to read host stats", "error", err)
		health.Status = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	s.writeJSON(w, health)
}

func (s *JobServer) writeJSON(w http.ResponseWriter, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode JSON response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(models.ErrorResponse{Error: message})
}
