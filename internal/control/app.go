// Package control assembles the agent: storage, remote API client,
// session lifecycle, conflict-aware writes, background sync, and the
// health server.
package control

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hotelops/stockpilot/internal/core/config"
	"github.com/hotelops/stockpilot/internal/health"
	"github.com/hotelops/stockpilot/internal/infra/api"
	sessionmemory "github.com/hotelops/stockpilot/internal/infra/sessionstore/memory"
	sessionredis "github.com/hotelops/stockpilot/internal/infra/sessionstore/redis"
	"github.com/hotelops/stockpilot/internal/infra/storage"
	"github.com/hotelops/stockpilot/internal/infra/storage/memory"
	"github.com/hotelops/stockpilot/internal/infra/storage/postgres"
	"github.com/hotelops/stockpilot/internal/resilience/conflict"
	"github.com/hotelops/stockpilot/internal/resilience/retry"
	"github.com/hotelops/stockpilot/internal/session"
)

// Agent is the main application struct managing component lifecycle.
type Agent struct {
	cfg *config.AppConfig
	log *slog.Logger

	db        *postgres.DB
	items     storage.ItemRepository
	suppliers storage.SupplierRepository
	orders    storage.OrderRepository
	audits    storage.AuditRepository

	client       *api.Client
	sessions     *session.Manager
	writer       *conflict.Writer
	syncer       *Syncer
	healthMon    *health.Monitor
	healthServer *health.Server
}

// NewAgent creates an Agent with all dependencies initialized.
func NewAgent(ctx context.Context, cfg *config.AppConfig, log *slog.Logger) (*Agent, error) {
	if log == nil {
		log = slog.Default()
	}
	a := &Agent{cfg: cfg, log: log}

	// 1. Storage
	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}
		a.db = db
		a.items = postgres.NewItemRepo(db)
		a.suppliers = postgres.NewSupplierRepo(db)
		a.orders = postgres.NewOrderRepo(db)
		a.audits = postgres.NewAuditRepo(db)
		log.Info("using PostgreSQL storage")
	} else {
		store := memory.NewMemoryStorage()
		a.items = memory.NewItemRepo(store)
		a.suppliers = memory.NewSupplierRepo(store)
		a.orders = memory.NewOrderRepo(store)
		a.audits = memory.NewAuditRepo(store)
		log.Info("using memory storage")
	}

	// 2. Session store: Redis shares the session across execution
	// contexts; memory keeps it process-local.
	var sessStore session.Store
	if cfg.Redis.URL != "" {
		store, err := sessionredis.NewStore(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init session store: %w", err)
		}
		sessStore = store
		log.Info("using Redis session store")
	} else {
		sessStore = sessionmemory.NewStore()
		log.Info("using memory session store")
	}

	// 3. Remote API client. The token source reads through the session
	// manager, which is created right after.
	a.client = api.NewClient(api.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: time.Duration(cfg.API.Timeout),
	}, func() string {
		if a.sessions == nil {
			return ""
		}
		return a.sessions.Token()
	})

	a.sessions = session.NewManager(sessStore, a.client, session.Config{
		RenewalThreshold: time.Duration(cfg.Session.RenewalThreshold),
	}, log)

	// 4. Conflict-aware write path and background sync.
	retryCfg := retry.Config{
		MaxRetries: cfg.Retry.MaxRetries,
		BaseDelay:  time.Duration(cfg.Retry.BaseDelay),
		MaxDelay:   time.Duration(cfg.Retry.MaxDelay),
	}
	a.writer = conflict.NewWriter(a.items, a.audits, retryCfg, a.sessions.Origin(), log)
	a.syncer = NewSyncer(
		a.client,
		a.writer,
		a.items,
		a.sessions,
		time.Duration(cfg.Sync.Interval),
		retryCfg,
		log,
	)

	// 5. Health monitoring.
	var pinger health.Pinger
	if a.db != nil {
		pinger = a.db
	}
	a.healthMon = health.NewMonitor(
		a.sessions,
		pinger,
		a.syncer,
		a.audits,
		3*time.Duration(cfg.Sync.Interval),
	)
	a.healthServer = health.NewServer(a.healthMon, cfg.Server.Port)

	return a, nil
}

// Start starts the agent and all its components.
func (a *Agent) Start(ctx context.Context) error {
	if err := a.sessions.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize session: %w", err)
	}

	go func() {
		if err := a.healthServer.Start(); err != nil {
			a.log.Error("health server failed", "error", err)
		}
	}()

	if !a.cfg.Sync.Disabled {
		go a.syncer.Run(ctx)
	}

	a.log.Info("agent started", "port", a.cfg.Server.Port)
	return nil
}

// Stop stops the agent.
func (a *Agent) Stop(ctx context.Context) error {
	a.log.Info("stopping agent")

	a.sessions.Cleanup()

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("failed to close database", "error", err)
		}
	}

	return a.healthServer.Stop(ctx)
}

// Login authenticates against the remote service and installs the
// resulting session.
func (a *Agent) Login(ctx context.Context, username, password string) error {
	result, err := a.client.Login(ctx, username, password)
	if err != nil {
		return err
	}
	return a.sessions.SetSession(
		ctx,
		result.User,
		result.Token,
		result.RefreshToken,
		time.Duration(result.ExpiresIn)*time.Second,
	)
}

// Items exposes the item repository, e.g. for CLI reporting.
func (a *Agent) Items() storage.ItemRepository { return a.items }

// Audits exposes the audit repository.
func (a *Agent) Audits() storage.AuditRepository { return a.audits }

// Sessions exposes the session manager.
func (a *Agent) Sessions() *session.Manager { return a.sessions }

// Writer exposes the conflict-aware stock write path.
func (a *Agent) Writer() *conflict.Writer { return a.writer }

// SyncNow triggers one immediate sync round.
func (a *Agent) SyncNow(ctx context.Context) error {
	return a.syncer.SyncOnce(ctx)
}
