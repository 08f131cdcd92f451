package catalog

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/kailas-cloud/playsearch/internal/domain/catalog"
	"github.com/kailas-cloud/playsearch/internal/metrics"
)

// reloadDebounce coalesces the burst of events a single import produces.
const reloadDebounce = 250 * time.Millisecond

// loader is the consumer interface for the snapshot source (ISP).
type loader interface {
	Load(ctx context.Context) (catalog.Data, error)
}

// Holder serves the current immutable catalog snapshot.
// Readers never block; reloads build a new snapshot and swap it in.
type Holder struct {
	source  loader
	current atomic.Pointer[catalog.Catalog]
	logger  *zap.Logger
}

// NewHolder creates an empty holder. Call Reload before serving.
func NewHolder(source loader, logger *zap.Logger) *Holder {
	return &Holder{source: source, logger: logger}
}

// Current returns the active snapshot, or nil before the first load.
func (h *Holder) Current() *catalog.Catalog {
	return h.current.Load()
}

// Reload reads the source, validates references and swaps the snapshot.
// On failure the previous snapshot stays active.
func (h *Holder) Reload(ctx context.Context) (catalog.Stats, error) {
	data, err := h.source.Load(ctx)
	if err != nil {
		metrics.CatalogReloadsTotal.WithLabelValues("error").Inc()
		return catalog.Stats{}, fmt.Errorf("reload catalog: %w", err)
	}

	snap, issues := catalog.New(data)
	for _, is := range issues {
		h.logger.Warn("Catalog integrity issue",
			zap.String("entity", is.Entity),
			zap.String("id", is.ID),
			zap.String("ref", is.Ref),
			zap.String("ref_id", is.RefID),
		)
	}
	h.current.Store(snap)
	metrics.CatalogReloadsTotal.WithLabelValues("ok").Inc()

	stats := snap.Stats()
	h.logger.Info("Catalog loaded",
		zap.Int("users", stats.Users),
		zap.Int("plays", stats.Plays),
		zap.Int("reps", stats.Reps),
		zap.Int("assignments", stats.Assignments),
		zap.Int("issues", len(issues)),
	)
	return stats, nil
}

// Watch reloads the snapshot whenever the database file at path changes.
// Blocks until ctx is canceled.
func (h *Holder) Watch(ctx context.Context, path string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	// the directory, because SQLite replaces journal files next to the db
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	base := filepath.Base(path)
	timer := time.NewTimer(reloadDebounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.HasPrefix(filepath.Base(ev.Name), base) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(reloadDebounce)
		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			h.logger.Warn("Catalog watcher error", zap.Error(werr))
		case <-timer.C:
			if _, err := h.Reload(ctx); err != nil && !errors.Is(err, context.Canceled) {
				h.logger.Error("Catalog reload failed, keeping previous snapshot", zap.Error(err))
			}
		}
	}
}
