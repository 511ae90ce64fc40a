package vector

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/geronlab/biorag/internal/errs"
)

const reloadDebounce = 400 * time.Millisecond

// Handle is a copy-on-write reference to the serving index. Queries read an
// immutable snapshot through Current; rebuilds install a fully built
// replacement with Swap, so in-flight queries never observe a half-rebuilt
// index. Watch reloads the artifact when an offline ingestion rewrites it.
type Handle struct {
	current atomic.Pointer[Index]
	logger  *zap.Logger

	mu       sync.Mutex
	debounce *time.Timer
}

// NewHandle returns an empty handle; Current errors until an index is
// loaded or swapped in.
func NewHandle(logger *zap.Logger) *Handle {
	return &Handle{logger: logger}
}

// Current returns the serving snapshot, or INDEX_NOT_BUILT when none is loaded.
func (h *Handle) Current() (*Index, error) {
	ix := h.current.Load()
	if ix == nil {
		return nil, errs.New(errs.CodeIndexNotBuilt, "vector.Handle.Current", "no vector index loaded")
	}
	return ix, nil
}

// Swap atomically installs ix as the serving snapshot.
func (h *Handle) Swap(ix *Index) {
	h.current.Store(ix)
}

// LoadFrom loads the artifact at path and swaps it in.
func (h *Handle) LoadFrom(path string) error {
	ix, err := Load(path)
	if err != nil {
		return err
	}
	h.Swap(ix)
	h.logger.Info("vector index loaded",
		zap.String("path", path),
		zap.Int("vectors", ix.Size()),
		zap.Int("dimensions", ix.Dimensions()))
	return nil
}

// Watch watches the artifact's directory and reloads the index when the
// artifact is rewritten (atomic saves surface as a rename/create). Events are
// debounced. Watch returns after starting the background loop; the loop runs
// until ctx is cancelled.
func (h *Handle) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return err
	}
	base := filepath.Base(path)

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != base {
					continue
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}
				h.scheduleReload(path)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if err != nil {
					h.logger.Debug("index watcher error", zap.Error(err))
				}
			}
		}
	}()
	return nil
}

func (h *Handle) scheduleReload(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.debounce != nil {
		h.debounce.Stop()
	}
	h.debounce = time.AfterFunc(reloadDebounce, func() {
		if err := h.LoadFrom(path); err != nil {
			h.logger.Warn("index reload failed", zap.String("path", path), zap.Error(err))
		}
	})
}
