// Command blog-engine boots the blog engine with its in-process host and
// exposes engine metrics until it receives SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-blog-engine/internal/app"
	"github.com/tbourn/go-blog-engine/internal/config"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, version, os.Stdout)
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}

	var srv *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.Log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
		a.Log.Info().Str("addr", cfg.MetricsAddr).Msg("serving metrics")
	}

	<-ctx.Done()
	a.Log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if srv != nil {
		_ = srv.Shutdown(shutdownCtx)
	}
	if err := a.Shutdown(shutdownCtx); err != nil {
		a.Log.Error().Err(err).Msg("shutdown")
		os.Exit(1)
	}
}
