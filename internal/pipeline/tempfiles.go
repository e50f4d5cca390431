package pipeline

import (
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/talevox/talevox/internal/observability"
)

// Registry tracks every temporary artifact a run creates so that cleanup
// can remove them all regardless of how the run ends. Paths are registered
// before the work that populates them, so a crash mid-call still leaves a
// known path to remove. The registry is append-only until Cleanup, which
// runs at most once.
type Registry struct {
	mu      sync.Mutex
	paths   []string
	cleaned bool
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register records a path for later removal. Safe for concurrent use.
func (r *Registry) Register(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

// Paths returns a copy of the registered paths.
func (r *Registry) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.paths))
	copy(out, r.paths)
	return out
}

// Cleanup removes every registered file, best effort. A path that was
// never created counts as already clean; a removal failure is logged and
// counted as leaked but never stops the sweep. Subsequent calls are no-ops.
func (r *Registry) Cleanup(logger zerolog.Logger) (removed, leaked int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cleaned {
		return 0, 0
	}
	r.cleaned = true

	for _, path := range r.paths {
		err := os.Remove(path)
		switch {
		case err == nil:
			removed++
		case os.IsNotExist(err):
			// never created, or already gone
		default:
			leaked++
			logger.Warn().Err(err).Str("path", path).Msg("Failed to remove temp file")
		}
	}
	observability.RecordCleanup(removed, leaked)
	return removed, leaked
}
