package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/slot-booking/internal/dto"
	"github.com/noah-isme/slot-booking/internal/handler"
	"github.com/noah-isme/slot-booking/internal/repository"
	"github.com/noah-isme/slot-booking/internal/server"
	"github.com/noah-isme/slot-booking/internal/service"
	"github.com/noah-isme/slot-booking/pkg/cache"
	"github.com/noah-isme/slot-booking/pkg/config"
	"github.com/noah-isme/slot-booking/pkg/database"
	"github.com/noah-isme/slot-booking/pkg/storage"
)

const shutdownTimeout = 5 * time.Second

// application holds every wired component of a running server.
type application struct {
	cfg    *config.Config
	logger *zap.Logger

	inventory *service.InventoryService
	audit     *service.AuditService
	snapshots *service.SnapshotService
	socket    *server.SocketServer
	admin     *http.Server

	closers []func() error
}

func newApplication(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *application, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	app := &application{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			app.close()
		}
	}()

	checks := map[string]handler.ReadinessCheck{}

	var db *sqlx.DB
	if cfg.Seed.Source == config.SeedSourcePostgres || cfg.Audit.Enabled {
		db, err = database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, db.Close)
		checks["postgres"] = db.PingContext
	}

	var source service.SeedSource
	switch cfg.Seed.Source {
	case config.SeedSourceFile, "":
		source = repository.NewSeedFileRepository(cfg.Seed.UsersFile, cfg.Seed.ProvidersFile)
	case config.SeedSourcePostgres:
		source = repository.NewSeedRepository(db)
	default:
		return nil, fmt.Errorf("unknown seed source %q", cfg.Seed.Source)
	}
	seed, err := service.LoadSeed(ctx, source, logger)
	if err != nil {
		return nil, err
	}

	auditCfg := service.AuditConfig{
		Workers:    cfg.Audit.Workers,
		Retries:    cfg.Audit.Retries,
		BufferSize: cfg.Audit.BufferSize,
	}
	app.audit = service.NewAuditService(nil, auditCfg, logger)
	if cfg.Audit.Enabled {
		app.audit = service.NewAuditService(repository.NewAuditRepository(db), auditCfg, logger)
	}

	app.inventory = service.NewInventoryService(seed.Providers, app.audit, logger)

	sessions, err := app.sessionStore(ctx, checks)
	if err != nil {
		return nil, err
	}
	switch cfg.Session.Mode {
	case config.SessionModeAddress, config.SessionModeToken, "":
	default:
		return nil, fmt.Errorf("unknown session mode %q", cfg.Session.Mode)
	}
	auth := service.NewAuthService(seed.Users, sessions, logger, service.AuthConfig{
		Mode:   cfg.Session.Mode,
		Secret: cfg.Session.Secret,
		TTL:    cfg.Session.TTL,
		Issuer: cfg.Session.Issuer,
	})

	metrics := service.NewMetricsService(app.inventory)
	router := handler.NewRouter(dto.NewDecoder(nil), auth, app.inventory, metrics, logger)
	app.socket = server.NewSocketServer(server.Config{
		Addr:           joinHostPort(cfg.Server.Host, cfg.Server.Port),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxMessageSize: cfg.Server.MaxMessageSize,
	}, router, metrics, logger)

	reports := service.NewReportService(app.inventory)
	snapshotCfg := service.SnapshotConfig{Format: cfg.Snapshot.Format, Retention: cfg.Snapshot.Retention}
	app.snapshots = service.NewSnapshotService(reports, nil, snapshotCfg, logger)
	if cfg.Snapshot.Dir != "" {
		store, err := storage.NewLocalStorage(cfg.Snapshot.Dir)
		if err != nil {
			return nil, err
		}
		app.snapshots = service.NewSnapshotService(reports, store, snapshotCfg, logger)
	}

	if cfg.Admin.Addr != "" {
		admin := handler.NewAdminHandler(metrics, reports, app.audit, app.snapshots, checks)
		opts := handler.AdminOptions{AllowedOrigins: cfg.Admin.AllowedOrigins}
		if tokens := service.NewAdminTokenService(cfg.Admin.Secret, cfg.Session.Issuer); tokens != nil {
			opts.Tokens = tokens
		} else {
			logger.Info("admin API is read-only; set ADMIN_SECRET to enable write endpoints")
		}
		app.admin = &http.Server{
			Addr:              cfg.Admin.Addr,
			Handler:           handler.NewAdminEngine(admin, metrics, logger, opts),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	return app, nil
}

func (a *application) sessionStore(ctx context.Context, checks map[string]handler.ReadinessCheck) (service.SessionStore, error) {
	switch a.cfg.Session.Store {
	case config.SessionStoreMemory, "":
		return service.NewMemorySessionStore(), nil
	case config.SessionStoreRedis:
		client, err := cache.NewRedis(ctx, a.cfg.Redis)
		if err != nil {
			return nil, err
		}
		repo := repository.NewSessionRepository(client, a.cfg.Session.TTL)
		a.closers = append(a.closers, repo.Close)
		checks["redis"] = cache.Ping(client)
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown session store %q", a.cfg.Session.Store)
	}
}

// run serves until ctx is cancelled or a listener fails, then shuts down in
// order: admin HTTP, socket connections, audit queue, final snapshot.
func (a *application) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.audit.Start(context.WithoutCancel(ctx))
	if _, err := a.snapshots.Prune(); err != nil {
		a.logger.Warn("snapshot cleanup failed", zap.Error(err))
	}

	adminErr := make(chan error, 1)
	if a.admin != nil {
		go func() {
			a.logger.Info("admin server listening", zap.String("addr", a.admin.Addr))
			if err := a.admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				adminErr <- fmt.Errorf("admin server: %w", err)
				cancel()
			}
		}()
	}

	err := a.socket.Serve(ctx)
	cancel()

	if a.admin != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		if serr := a.admin.Shutdown(shutdownCtx); serr != nil {
			a.logger.Warn("admin shutdown failed", zap.Error(serr))
		}
		done()
	}
	a.audit.Stop()

	if a.cfg.Snapshot.OnShutdown && a.snapshots.Enabled() {
		if _, serr := a.snapshots.Save(""); serr != nil {
			a.logger.Error("final snapshot failed", zap.Error(serr))
		}
	}

	if err != nil {
		return err
	}
	select {
	case err := <-adminErr:
		return err
	default:
		return nil
	}
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
}
