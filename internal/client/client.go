package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/nicolascoutureau/video-utils-hw/internal/metrics"
	"github.com/nicolascoutureau/video-utils-hw/internal/transcoder"
)

// Options configures a Downloader.
type Options struct {
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Timeout      time.Duration
	Temps        transcoder.TempProvider
	Logger       hclog.Logger
}

// Downloader fetches remote inputs into local temp files.
type Downloader struct {
	httpClient *retryablehttp.Client
	temps      transcoder.TempProvider
	logger     hclog.Logger
}

// NewDownloader creates a robust HTTP client with retries
func NewDownloader(opts Options) *Downloader {
	if opts.Temps == nil {
		opts.Temps = transcoder.TempDir{}
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	if opts.RetryWaitMin == 0 {
		opts.RetryWaitMin = 1 * time.Second
	}
	if opts.RetryWaitMax == 0 {
		opts.RetryWaitMax = 5 * time.Second
	}
	logger := opts.Logger.Named("download")

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.RetryMax
	retryClient.RetryWaitMin = opts.RetryWaitMin
	retryClient.RetryWaitMax = opts.RetryWaitMax
	retryClient.HTTPClient.Timeout = opts.Timeout
	retryClient.Logger = logger

	return &Downloader{
		httpClient: retryClient,
		temps:      opts.Temps,
		logger:     logger,
	}
}

// IsRemote reports whether input is an http(s) URL.
func IsRemote(input string) bool {
	u, err := url.Parse(input)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Fetch returns a local path for input. Local paths are returned as is
// with a no-op cleanup. Remote inputs are downloaded into a temp file
// that cleanup removes.
func (d *Downloader) Fetch(ctx context.Context, input string) (string, func(), error) {
	if !IsRemote(input) {
		return input, func() {}, nil
	}

	local, err := d.temps.NewPath(suffixOf(input))
	if err != nil {
		return "", nil, err
	}
	cleanup := func() {
		if err := os.Remove(local); err != nil && !os.IsNotExist(err) {
			d.logger.Warn("failed to remove downloaded input", "path", local, "error", err)
		}
	}

	n, err := d.download(ctx, input, local)
	if err != nil {
		cleanup()
		metrics.DownloadsTotal.WithLabelValues("failed").Inc()
		return "", nil, err
	}

	metrics.DownloadsTotal.WithLabelValues("completed").Inc()
	metrics.DownloadBytesTotal.Add(float64(n))
	d.logger.Info("downloaded input", "url", input, "path", local, "bytes", n)
	return local, cleanup, nil
}

func (d *Downloader) download(ctx context.Context, src, dst string) (int64, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download of %s failed: %w", src, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("download of %s returned status %d", src, resp.StatusCode)
	}

	f, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", dst, err)
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return n, nil
}

// suffixOf keeps the URL's extension so ffmpeg can sniff the container.
func suffixOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ".mp4"
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if ext == "" || len(ext) > 6 {
		return ".mp4"
	}
	return ext
}
