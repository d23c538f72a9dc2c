package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hotelops/stockpilot/internal/core/domain"
	"github.com/hotelops/stockpilot/internal/infra/storage"
	"github.com/hotelops/stockpilot/internal/metrics"
	"github.com/hotelops/stockpilot/internal/resilience/classify"
	"github.com/hotelops/stockpilot/internal/resilience/conflict"
	"github.com/hotelops/stockpilot/internal/resilience/retry"
)

// RemoteInventory is the remote side of the sync loop.
type RemoteInventory interface {
	FetchItems(ctx context.Context) ([]*domain.Item, error)
}

// SessionControl lets the sync loop drive the session lifecycle: each
// round re-validates the session before talking to the remote, and a
// rejected credential invalidates it.
type SessionControl interface {
	Revalidate(ctx context.Context) error
	HandleAuthFailure(ctx context.Context)
}

// Syncer periodically pulls remote inventory state into local storage.
// Stock levels go through the conflict-aware write path, so a local
// write that raced the sync resolves like any other conflict.
type Syncer struct {
	remote   RemoteInventory
	writer   *conflict.Writer
	items    storage.ItemRepository
	auth     SessionControl
	interval time.Duration
	retry    retry.Config
	log      *slog.Logger

	mu       sync.Mutex
	lastSync time.Time
	pending  int
}

// NewSyncer creates a background sync worker.
func NewSyncer(
	remote RemoteInventory,
	writer *conflict.Writer,
	items storage.ItemRepository,
	auth SessionControl,
	interval time.Duration,
	retryCfg retry.Config,
	log *slog.Logger,
) *Syncer {
	if log == nil {
		log = slog.Default()
	}
	return &Syncer{
		remote:   remote,
		writer:   writer,
		items:    items,
		auth:     auth,
		interval: interval,
		retry:    retryCfg,
		log:      log,
	}
}

// LastSync reports when the last successful sync completed. Zero when
// none has.
func (s *Syncer) LastSync() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSync
}

// PendingConflicts reports how many items the last completed round
// left in a pending conflict.
func (s *Syncer) PendingConflicts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Run executes sync rounds until ctx is cancelled. The first round
// runs immediately.
func (s *Syncer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.SyncOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Error("sync round failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// SyncOnce pulls the remote item set and reconciles it into local
// storage. An authentication-classified failure additionally reports
// to the auth handler, which invalidates the session.
func (s *Syncer) SyncOnce(ctx context.Context) error {
	if s.auth != nil {
		if err := s.auth.Revalidate(ctx); err != nil {
			s.log.Warn("session revalidation failed", "error", err)
		}
	}

	remote, err := retry.DoValue(ctx, s.retry,
		func(ctx context.Context) ([]*domain.Item, error) {
			return s.remote.FetchItems(ctx)
		})
	if err != nil {
		if classify.Classify(err).Type == classify.TypeAuthentication && s.auth != nil {
			s.auth.HandleAuthFailure(ctx)
		}
		metrics.SyncRuns.WithLabelValues("failure").Inc()
		return fmt.Errorf("fetch remote items: %w", err)
	}

	var conflicts int
	for _, item := range remote {
		pending, err := s.reconcileItem(ctx, item)
		if err != nil {
			metrics.SyncRuns.WithLabelValues("failure").Inc()
			return fmt.Errorf("reconcile item %s: %w", item.ID, err)
		}
		if pending {
			conflicts++
		}
	}

	s.mu.Lock()
	s.lastSync = time.Now()
	s.pending = conflicts
	s.mu.Unlock()

	metrics.SyncRuns.WithLabelValues("success").Inc()
	s.log.Info("sync round complete", "items", len(remote), "pending_conflicts", conflicts)
	return nil
}

// reconcileItem applies one remote snapshot locally. Reports whether
// the item was left in a pending conflict.
func (s *Syncer) reconcileItem(ctx context.Context, remote *domain.Item) (bool, error) {
	local, err := s.items.Get(ctx, remote.ID)
	if errors.Is(err, storage.ErrNotFound) {
		if err := s.items.Save(ctx, remote); err != nil {
			return false, err
		}
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if local.Stock == remote.Stock {
		return false, nil
	}

	outcome, err := s.writer.UpdateStock(ctx, remote.ID, remote.Stock, local.Stock, local.Version)
	if err != nil {
		return false, err
	}
	if outcome.Pending != nil {
		s.log.Warn("sync left item in pending conflict",
			"item", remote.ID,
			"variance", outcome.Resolution.Data.Variance,
			"strategy", outcome.Resolution.Strategy,
		)
		return true, nil
	}
	return false, nil
}
