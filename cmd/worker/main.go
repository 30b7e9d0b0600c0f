package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/nicolascoutureau/video-utils-hw/internal/client"
	"github.com/nicolascoutureau/video-utils-hw/internal/config"
	"github.com/nicolascoutureau/video-utils-hw/internal/logging"
	"github.com/nicolascoutureau/video-utils-hw/internal/monitor"
	"github.com/nicolascoutureau/video-utils-hw/internal/server"
	"github.com/nicolascoutureau/video-utils-hw/internal/transcoder"
)

// reencodeTask selects Transcoder.Reencode from the command line.
const reencodeTask = "reencode"

func main() {
	var (
		configPath = flag.String("config", "config.yml", "path to the YAML config file")
		task       = flag.String("task", "", "task to run once: "+taskList())
		input      = flag.String("input", "", "input path or http(s) URL")
		start      = flag.Float64("start", 0, "trim start in seconds (reencode)")
		end        = flag.Float64("end", transcoder.ToEnd, "trim end in seconds, -1 for the whole input (reencode)")
		preset     = flag.String("preset", transcoder.DefaultPreset, "encoder preset (reencode)")
		bitrate    = flag.String("bitrate", transcoder.DefaultBitrate.String(), "target bitrate, e.g. 20M or 500k (reencode)")
		serve      = flag.Bool("serve", false, "run the HTTP job server")
	)
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New("video-utils-hw", cfg.LogLevel, cfg.LogJSON)

	// 2. Setup Context for Graceful Shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Detect hardware once and build the engine around it
	temps := transcoder.TempDir{Dir: cfg.TempDir}
	mon := monitor.NewSystemMonitor(monitor.Options{
		FFmpegPath:   cfg.FFmpegPath,
		GPUProbeTool: cfg.GPUProbeTool,
		Disabled:     !cfg.EnableHWAccel,
		Logger:       logger,
	})
	engine := transcoder.New(transcoder.Options{
		FFmpegPath:     cfg.FFmpegPath,
		FFprobePath:    cfg.FFprobePath,
		Temps:          temps,
		Capabilities:   mon.Capabilities(ctx),
		PreviewVariant: transcoder.PreviewVariant(cfg.PreviewHeight),
		Logger:         logger,
	})
	downloader := client.NewDownloader(client.Options{
		RetryMax: cfg.DownloadRetryMax,
		Timeout:  time.Duration(cfg.DownloadTimeout) * time.Second,
		Temps:    temps,
		Logger:   logger,
	})

	if *serve {
		srv := server.NewJobServer(cfg.ListenAddr, engine, downloader, mon, logger)
		if err := srv.Start(ctx); err != nil {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if *task == "" || *input == "" {
		fmt.Fprintln(os.Stderr, "either --serve or both --task and --input are required")
		flag.Usage()
		os.Exit(2)
	}

	out, err := runOnce(ctx, engine, downloader, *task, *input, transcoder.ReencodeOptions{
		Start:   *start,
		End:     *end,
		Preset:  *preset,
		Bitrate: *bitrate,
	})
	if err != nil {
		logger.Error("task failed", "task", *task, "error", err)
		if errors.Is(err, transcoder.ErrUnknownTask) || errors.Is(err, transcoder.ErrInvalidInput) {
			os.Exit(2)
		}
		os.Exit(1)
	}
	fmt.Println(out)
}

func runOnce(ctx context.Context, engine *transcoder.Transcoder, d *client.Downloader, task, input string, opts transcoder.ReencodeOptions) (string, error) {
	if task != reencodeTask {
		if _, err := transcoder.ParseTask(task); err != nil {
			return "", err
		}
	}

	local, cleanup, err := d.Fetch(ctx, input)
	if err != nil {
		return "", err
	}
	defer cleanup()

	var art transcoder.Artifact
	if task == reencodeTask {
		art, err = engine.Reencode(ctx, local, opts)
	} else {
		art, err = engine.Process(ctx, local, task)
	}
	if err != nil {
		return "", err
	}
	return art.Path, nil
}

func taskList() string {
	names := make([]string, 0, len(transcoder.Tasks)+1)
	for _, t := range transcoder.Tasks {
		names = append(names, string(t))
	}
	return strings.Join(append(names, reencodeTask), ", ")
}
