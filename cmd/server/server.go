package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CamberLoid/FHEVault/internal/codec"
	"github.com/CamberLoid/FHEVault/internal/config"
	"github.com/CamberLoid/FHEVault/internal/logger"
	"github.com/CamberLoid/FHEVault/internal/server"
	"github.com/CamberLoid/FHEVault/internal/serverlib"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultVersion  = "indev"
	ShutdownTimeout = 10 * time.Second
)

var ConfigVersion = DefaultVersion

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.DevMode})
	logger.SetGlobalLogger(log)
	log.Info().Str("version", ConfigVersion).Msg("FHEVault server starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

// run 启动 HTTP 服务，直到 ctx 结束或监听失败
func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	st, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	engines := codec.NewRegistry(codec.Mock{}, codec.NewCKKS())
	svc := serverlib.NewService(st, engines, log)

	srv := server.New(server.Config{
		Addr:        cfg.Addr(),
		Version:     ConfigVersion,
		Service:     svc,
		Log:         log,
		CORSOrigins: cfg.CORSOrigins,
		DevMode:     cfg.DevMode,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Strs("schemes", engines.Schemes()).Msg("engines ready")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "listen")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
