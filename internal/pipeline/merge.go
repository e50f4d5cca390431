package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/talevox/talevox/internal/ffmpeg"
	"github.com/talevox/talevox/internal/observability"
)

// MergeState tracks the assembly phase of a run.
type MergeState int

const (
	MergeIdle MergeState = iota
	MergeValidating
	MergeBuildingManifest
	MergeInvoking
	MergeSucceeded
	MergeFailed
)

func (s MergeState) String() string {
	switch s {
	case MergeIdle:
		return "idle"
	case MergeValidating:
		return "validating"
	case MergeBuildingManifest:
		return "building_manifest"
	case MergeInvoking:
		return "invoking"
	case MergeSucceeded:
		return "succeeded"
	case MergeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MergeCoordinator validates chunk results, writes the ordered concat
// manifest, and drives the external merge. States advance strictly
// Idle -> Validating -> BuildingManifest -> Invoking -> Succeeded/Failed,
// with Failed reachable from any active state.
type MergeCoordinator struct {
	merger   *ffmpeg.Merger
	registry *Registry
	tempDir  string
	logger   zerolog.Logger
	emit     func(Event)
	state    MergeState
}

func NewMergeCoordinator(merger *ffmpeg.Merger, registry *Registry, tempDir string, logger zerolog.Logger, emit func(Event)) *MergeCoordinator {
	if emit == nil {
		emit = func(Event) {}
	}
	return &MergeCoordinator{
		merger:   merger,
		registry: registry,
		tempDir:  tempDir,
		logger:   logger,
		emit:     emit,
		state:    MergeIdle,
	}
}

func (mc *MergeCoordinator) State() MergeState {
	return mc.state
}

// Merge assembles the run's artifacts into outputPath. results must be in
// chunk order; any chunk failure aborts the merge and surfaces the first
// failing chunk's error. Trivial empty-chunk successes are skipped.
func (mc *MergeCoordinator) Merge(ctx context.Context, results []ChunkResult, outputPath string) error {
	mc.state = MergeValidating
	paths := make([]string, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			mc.state = MergeFailed
			return r.Err
		}
		if r.ArtifactPath != "" {
			paths = append(paths, r.ArtifactPath)
		}
	}
	if len(paths) == 0 {
		mc.state = MergeFailed
		return ErrNoAudioProduced
	}

	mc.state = MergeBuildingManifest
	mc.emit(Event{Kind: EventStatus, Status: "Preparing file list..."})
	listFile, err := mc.writeManifest(paths)
	if err != nil {
		mc.state = MergeFailed
		return fmt.Errorf("failed to prepare merge list: %w", err)
	}

	mc.state = MergeInvoking
	mc.emit(Event{Kind: EventStatus, Status: fmt.Sprintf("Merging %d audio files...", len(paths))})
	mc.logger.Info().Int("files", len(paths)).Str("output", outputPath).Msg("Invoking merge")
	start := time.Now()
	err = mc.merger.Concat(ctx, listFile, outputPath)
	elapsed := time.Since(start)
	if err != nil {
		status := "error"
		if errors.Is(err, ffmpeg.ErrTimeout) {
			status = "timeout"
		}
		observability.RecordMerge(status, elapsed.Seconds())
		mc.state = MergeFailed
		return err
	}
	observability.RecordMerge("success", elapsed.Seconds())
	mc.state = MergeSucceeded
	return nil
}

// writeManifest writes the concat list, one entry per artifact in chunk
// order, and registers it for cleanup before filling it in.
func (mc *MergeCoordinator) writeManifest(paths []string) (string, error) {
	f, err := os.CreateTemp(mc.tempDir, "talevox-list-*.txt")
	if err != nil {
		return "", err
	}
	name := f.Name()
	mc.registry.Register(name)

	for i, p := range paths {
		if _, err := f.WriteString(ffmpeg.ListEntry(p)); err != nil {
			f.Close()
			return "", err
		}
		mc.emit(Event{Kind: EventMergePrep, FilesProcessed: i + 1, TotalFiles: len(paths)})
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return name, nil
}
