package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/talevox/talevox/internal/config"
	"github.com/talevox/talevox/internal/ffmpeg"
	"github.com/talevox/talevox/internal/observability"
	"github.com/talevox/talevox/internal/pipeline"
	"github.com/talevox/talevox/internal/tts"
)

// displayErrLimit bounds error text shown to the user; full detail goes to
// the structured log.
const displayErrLimit = 300

func main() {
	var (
		inPath       = flag.String("in", "", "Input text file to convert")
		outPath      = flag.String("out", "", "Output audio file (default: input name with .mp3)")
		voice        = flag.String("voice", "", "Voice short name (default from config)")
		listVoices   = flag.Bool("voices", false, "List available voices and exit")
		multilingual = flag.Bool("multilingual", false, "With -voices, list only multilingual voices")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	client := tts.NewEdgeClient()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *listVoices {
		if err := printVoices(ctx, client, *multilingual); err != nil {
			logger.Fatal().Err(err).Msg("Failed to list voices")
		}
		return
	}

	if *inPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: talevox -in <file.txt> [-out <file.mp3>] [-voice <name>]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	document, err := os.ReadFile(*inPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", *inPath).Msg("Failed to read input file")
	}
	if strings.TrimSpace(string(document)) == "" {
		logger.Fatal().Str("path", *inPath).Msg("Input file contains no text")
	}

	output := *outPath
	if output == "" {
		output = defaultOutputPath(*inPath)
	}
	selectedVoice := *voice
	if selectedVoice == "" {
		selectedVoice = cfg.Voice
	}

	// The merge binary is a hard precondition; fail before any synthesis
	// work is spent.
	ffmpegPath, err := ffmpeg.Locate(cfg.FFmpegPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("ffmpeg is required to merge audio chunks")
	}

	if cfg.MetricsEnabled {
		go serveMetrics(cfg.MetricsAddr)
		logger.Info().Str("addr", cfg.MetricsAddr).Msg("Prometheus metrics enabled at /metrics")
	}

	logger.Info().
		Str("input", *inPath).
		Str("output", output).
		Str("voice", selectedVoice).
		Int("chunk_size", cfg.ChunkSize).
		Int("max_concurrent", cfg.MaxConcurrent).
		Msg("Talevox starting")

	runner := &pipeline.Runner{
		Synth:       client,
		Merger:      ffmpeg.NewMerger(ffmpegPath, time.Duration(cfg.MergeTimeout)*time.Second),
		ChunkSize:   cfg.ChunkSize,
		Concurrency: cfg.MaxConcurrent,
		TempDir:     cfg.TempDir,
		Logger:      logger,
	}

	if !render(runner.Convert(ctx, string(document), selectedVoice, output)) {
		os.Exit(1)
	}
}

// render consumes pipeline events and prints progress lines; it returns
// true when the run succeeded.
func render(events <-chan pipeline.Event) bool {
	ok := false
	for e := range events {
		switch e.Kind {
		case pipeline.EventChunkProgress:
			fmt.Printf("\r%s", progressLine(e.Progress))
		case pipeline.EventMergePrep:
			fmt.Printf("\rPreparing merge: %d/%d files", e.FilesProcessed, e.TotalFiles)
		case pipeline.EventStatus:
			fmt.Printf("\n%s\n", e.Status)
		case pipeline.EventSucceeded:
			fmt.Printf("\nDone: %s\n", e.OutputPath)
			ok = true
		case pipeline.EventFailed:
			fmt.Printf("\nConversion failed: %s\n", truncateDisplay(e.Err.Error()))
		}
	}
	return ok
}

// progressLine renders one chunk-progress snapshot, including the ETA and
// its confidence margin once enough timing samples exist.
func progressLine(p pipeline.Progress) string {
	line := fmt.Sprintf("Progress: %d/%d (%.1f%%)", p.Completed, p.Total, p.Percent)
	if p.ETAKnown {
		line += " - ETA: " + formatDuration(p.ETA)
		if p.MarginKnown {
			line += " ± " + formatDuration(p.Margin)
		}
	}
	return line
}

// formatDuration renders a duration as H:MM:SS, or M:SS under an hour.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Round(time.Second).Seconds())
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// defaultOutputPath derives the output name from the input file stem.
func defaultOutputPath(inPath string) string {
	base := strings.TrimSuffix(inPath, filepath.Ext(inPath))
	return base + ".mp3"
}

func truncateDisplay(msg string) string {
	if len(msg) > displayErrLimit {
		return msg[:displayErrLimit] + "..."
	}
	return msg
}

func printVoices(ctx context.Context, client *tts.EdgeClient, multilingualOnly bool) error {
	voices, err := client.ListVoices(ctx)
	if err != nil {
		return err
	}
	for _, v := range voices {
		if multilingualOnly && !v.Multilingual() {
			continue
		}
		fmt.Println(v.DisplayName())
	}
	return nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger := observability.GetLogger()
		logger.Error().Err(err).Msg("Metrics server failed")
	}
}
