// Package app assembles the blog engine from configuration: logger,
// database, tracing, the BlogService and the in-process host that drives it.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-blog-engine/internal/config"
	"github.com/tbourn/go-blog-engine/internal/host"
	"github.com/tbourn/go-blog-engine/internal/observability"
	"github.com/tbourn/go-blog-engine/internal/repo"
	"github.com/tbourn/go-blog-engine/internal/services"
	"github.com/tbourn/go-blog-engine/internal/sysutil"
)

// App is a fully wired engine.
type App struct {
	Config  config.Config
	Log     zerolog.Logger
	DB      *gorm.DB
	Service *services.BlogService
	Bank    *host.MemoryBank
	Host    *host.Host

	shutdownOTel observability.ShutdownFunc
}

// New builds an App from cfg. Logs go to w. On error every resource opened
// so far is released.
func New(ctx context.Context, cfg config.Config, version string, w io.Writer) (*App, error) {
	sysutil.SetLogLevel(cfg.LogLevel)
	logger := sysutil.NewLogger(w, cfg.LogPretty)

	shutdown, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return nil, fmt.Errorf("setup otel: %w", err)
	}

	db, err := repo.Open(repo.Options{
		Driver:  cfg.DBDriver,
		Path:    cfg.DBPath,
		DSN:     cfg.DatabaseURL,
		Tracing: cfg.OTEL.Enabled,
	})
	if err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("open database: %w", err)
	}

	svc := services.NewBlogService(db, repo.Counters{}, cfg.Owner)
	svc.MinCommentRunes = cfg.CommentMinChars
	svc.Log = logger

	bank := host.NewMemoryBank()
	h := host.New(svc, bank,
		host.WithLogger(logger),
		host.WithRateLimit(cfg.RateRPS, cfg.RateBurst),
		host.WithAutoSettle(cfg.AutoSettle),
	)

	logger.Info().
		Str("driver", cfg.DBDriver).
		Str("owner", cfg.Owner).
		Bool("auto_settle", cfg.AutoSettle).
		Bool("otel", cfg.OTEL.Enabled).
		Msg("blog engine ready")

	return &App{
		Config:       cfg,
		Log:          logger,
		DB:           db,
		Service:      svc,
		Bank:         bank,
		Host:         h,
		shutdownOTel: shutdown,
	}, nil
}

// Shutdown settles outstanding transfers, then closes the database and
// flushes traces.
func (a *App) Shutdown(ctx context.Context) error {
	for _, st := range a.Host.Flush(ctx) {
		if st.Err != nil {
			a.Log.Warn().Err(st.Err).Str("receipt_key", st.Outcome.Request.Key).Msg("transfer not recorded at shutdown")
		}
	}

	var errs []error
	if sqlDB, err := a.DB.DB(); err != nil {
		errs = append(errs, err)
	} else if err := sqlDB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	if err := a.shutdownOTel(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown otel: %w", err))
	}
	return errors.Join(errs...)
}
