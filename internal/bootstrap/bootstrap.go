// Package bootstrap wires the configured components into a running system.
//
// The server and the CLI's database commands share this wiring so both see
// the same store, migrations and session settings.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/student-auth/studentauth/internal/accounts"
	"github.com/student-auth/studentauth/internal/auth"
	"github.com/student-auth/studentauth/internal/config"
	"github.com/student-auth/studentauth/internal/observability"
	"github.com/student-auth/studentauth/internal/session"
	"github.com/student-auth/studentauth/internal/status"
	"github.com/student-auth/studentauth/internal/storage"
)

// devSessionSecret signs session tokens in dev mode when no secret is set.
const devSessionSecret = "studentauth-dev-secret"

// Store is an open, migrated SQL student store.
type Store struct {
	DB      *sql.DB
	Dialect storage.Dialect
	Repo    *storage.SQLRepository
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.DB.Close()
}

// OpenStore connects to the configured database. When migrate is true the
// embedded migrations are applied first and their names logged.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig, migrate bool, log *zap.Logger) (*Store, error) {
	dialect, err := storage.DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	db, err := storage.Open(ctx, dialect, cfg.DSN(), storage.DefaultRetryConfig())
	if err != nil {
		return nil, err
	}

	if migrate {
		applied, err := storage.NewMigrationRunner(db, dialect).Run(ctx)
		if err != nil {
			db.Close()
			return nil, err
		}
		for _, name := range applied {
			log.Info("migration applied", zap.String("migration", name))
		}
	}

	return &Store{DB: db, Dialect: dialect, Repo: storage.NewSQLRepository(db, dialect)}, nil
}

// App is the assembled system.
type App struct {
	Accounts *accounts.Service
	Admin    *auth.StaticTokenAuthenticator
	Checker  *status.Checker

	closers []func() error
	log     *zap.Logger
}

// Close releases every resource the app opened, in reverse order.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Build assembles the system from cfg. In dev mode the in-memory repository
// and revoker are used and no database or Redis is contacted.
func Build(ctx context.Context, cfg *config.Config, devMode bool, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := cfg.Validate(devMode); err != nil {
		return nil, err
	}
	ttl, err := cfg.SessionTTL()
	if err != nil {
		return nil, err
	}

	app := &App{Checker: status.NewChecker(5 * time.Second), log: log}

	var (
		repo  storage.StudentRepository
		audit observability.EventLogger
	)
	if devMode {
		log.Warn("development mode: using in-memory repository (not for production)")
		repo = storage.NewMockRepository()
		audit = observability.NewZapEventLogger(log)
	} else {
		store, err := OpenStore(ctx, cfg.Database, true, log)
		if err != nil {
			return nil, fmt.Errorf("failed to open student store: %w", err)
		}
		app.closers = append(app.closers, store.Close)
		repo = store.Repo

		persistent, err := observability.NewPersistentEventLogger(store.DB, store.Dialect.Rebind, log)
		if err != nil {
			app.Close()
			return nil, err
		}
		audit = persistent
		log.Info("connected to student store", zap.String("driver", store.Dialect.Name))
	}
	app.Checker.Register("database", repo.CheckConnectivity)

	revoker, err := app.openRevoker(ctx, cfg.Session, devMode)
	if err != nil {
		app.Close()
		return nil, err
	}

	secret := cfg.Session.Secret
	if secret == "" {
		secret = devSessionSecret
	}
	sessions, err := session.NewManager(secret, ttl, revoker)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.Accounts = accounts.NewService(repo, sessions, audit, log)
	app.Admin = auth.NewStaticTokenAuthenticator()
	if cfg.Server.AdminToken != "" {
		app.Admin.RegisterToken(cfg.Server.AdminToken, &auth.Principal{
			ID:    "admin",
			Roles: []string{auth.RoleAdmin},
		})
	} else {
		log.Warn("no admin token configured: admin endpoints will reject every request")
	}
	return app, nil
}

func (a *App) openRevoker(ctx context.Context, cfg config.SessionConfig, devMode bool) (session.Revoker, error) {
	if devMode || cfg.RedisAddr == "" {
		if !devMode {
			a.log.Warn("session.redisAddr not set: logouts are kept in process memory")
		}
		return session.NewMemoryRevoker(), nil
	}

	client, err := session.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Close)

	revoker := session.NewRedisRevoker(client)
	a.Checker.Register("sessions", revoker.Ping)
	a.log.Info("using redis revocation list", zap.String("addr", cfg.RedisAddr))
	return revoker, nil
}
