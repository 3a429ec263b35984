package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danilovkiri/dk-go-panel/internal/api/rest"
	"github.com/danilovkiri/dk-go-panel/internal/config"
	"github.com/danilovkiri/dk-go-panel/internal/logger"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func main() {
	// get configuration
	cfg, err := config.NewConfiguration()
	if err != nil {
		logger.InitLog("info").Fatal().Err(err).Msg("")
	}
	if err := cfg.ParseFlags(os.Args[1:]); err != nil {
		logger.InitLog("info").Fatal().Err(err).Msg("")
	}
	log := logger.InitLog(cfg.ServerConfig.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// initialize server
	server, st, err := rest.InitServer(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("")
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Msg("server start attempted")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	// set a listener for graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		log.Info().Msg("server shutdown attempted")
		ctxTO, cancelTO := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelTO()
		return server.Shutdown(ctxTO)
	})

	err = g.Wait()
	if closeErr := st.Close(); closeErr != nil {
		log.Error().Err(closeErr).Msg("storage close failed")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("server shutdown failed")
	}
	log.Info().Msg("server shutdown succeeded")
}
