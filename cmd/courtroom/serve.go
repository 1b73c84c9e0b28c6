package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cfoust/courtroom/pkg/bans"
	"github.com/cfoust/courtroom/pkg/config"
	"github.com/cfoust/courtroom/pkg/gameserver"
	"github.com/cfoust/courtroom/pkg/ingress"
	"github.com/cfoust/courtroom/pkg/status"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func serveMetrics(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", port),
		Handler: mux,
	}
	go func() {
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
	return server
}

func serve(configs []string) error {
	conf, err := config.Process(configs)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server, err := gameserver.New(ctx, &conf.Game, clockwork.NewRealClock())
	if err != nil {
		return err
	}

	if path := conf.Storage.BanDB; path != "" {
		store, err := bans.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open ban database %s: %w", path, err)
		}
		server.Bans = store
		log.Info().Str("path", path).Msg("ban checks enabled")
	}

	if conf.Redis.Address != "" {
		publisher := status.NewPublisher(conf.Redis)
		defer publisher.Close()
		go publisher.Poll(ctx, server.Status)
		log.Info().Str("address", conf.Redis.Address).Msg("publishing status to redis")
	}

	go server.Poll()

	errc := make(chan error, 2)

	tcpIngress := ingress.NewTCPIngress(server, conf.Server.BufferLimit)
	if err := tcpIngress.Listen(conf.Server.TCPPort); err != nil {
		return err
	}
	go func() {
		errc <- tcpIngress.Serve(ctx)
	}()

	wsIngress := ingress.NewWSIngress(server, conf.Server.BufferLimit)
	if conf.Server.WSPort > 0 {
		go func() {
			errc <- wsIngress.Serve(ctx, conf.Server.WSPort)
		}()
	}

	var metricsServer *http.Server
	if conf.Server.MetricsPort > 0 {
		metricsServer = serveMetrics(conf.Server.MetricsPort)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errc:
		if err != nil {
			log.Error().Err(err).Msg("failed to serve")
		}
	case sig := <-sigs:
		log.Info().Msgf("terminating: %v", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	tcpIngress.Shutdown()
	wsIngress.Shutdown(shutdownCtx)
	if metricsServer != nil {
		metricsServer.Shutdown(shutdownCtx)
	}

	done := make(chan struct{})
	server.Post(func() {
		server.Shutdown()
		close(done)
	})
	select {
	case <-done:
	case <-shutdownCtx.Done():
	}

	return nil
}
