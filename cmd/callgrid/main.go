package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/callgrid/callgrid/internal/api"
	"github.com/callgrid/callgrid/internal/call"
	"github.com/callgrid/callgrid/internal/cdr"
	"github.com/callgrid/callgrid/internal/cdr/pgstore"
	"github.com/callgrid/callgrid/internal/config"
	"github.com/callgrid/callgrid/internal/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Configure structured logging.
	logger := slog.New(cfg.SlogHandler(os.Stdout))
	slog.SetDefault(logger)

	slog.Info("starting callgrid",
		"http_port", cfg.HTTPPort,
		"data_dir", cfg.DataDir,
		"dsds_mode", cfg.DsdsMode,
	)

	// Call record store: PostgreSQL when a DSN is configured, embedded
	// SQLite otherwise.
	var store cdr.Store
	if cfg.PostgresDSN != "" {
		store, err = pgstore.New(cfg.PostgresDSN)
	} else {
		store, err = cdr.Open(cfg.DataDir)
	}
	if err != nil {
		slog.Error("failed to open record store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	recorder := cdr.NewRecorder(store, nil, logger)

	// Call core: registry, conferences, factory, request/report paths.
	registry := call.NewRegistry(logger)
	csConf := call.NewConference(call.TypeCS, logger)
	imsConf := call.NewConference(call.TypeIMS, logger)
	ottConf := call.NewConference(call.TypeOTT, logger)

	driver := newLoopbackDriver(logger)
	factory := call.NewCallFactory(driver,
		&noopOTT{logger: logger}, &noopBluetooth{logger: logger}, &noopVoIP{logger: logger},
		&logMediaReporter{logger: logger}, nil,
		csConf, imsConf, ottConf, logger)

	process := call.NewRequestProcess(registry, factory, recorder, dsdsMode(cfg.DsdsMode), logger)
	reports := call.NewReportHandler(registry, factory, process, recorder, logger)
	driver.SetReportHandler(reports)

	// Application context for the request worker.
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	worker := call.NewRequestHandler(cfg.RequestQueueSize, logger)
	worker.Start(appCtx)
	defer worker.Stop()

	// Metrics.
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(metrics.NewCollector(
		registry, registry,
		&conferenceStatusAdapter{conferences: []*call.Conference{csConf, imsConf, ottConf}},
		worker, store, recorder, time.Now(),
	))

	// HTTP server using the api package.
	handler, err := api.NewServer(cfg, registry, worker, process, store, promRegistry)
	if err != nil {
		slog.Error("failed to create api server", "error", err)
		os.Exit(1)
	}
	defer handler.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine.
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt or server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		slog.Error("http server error", "error", err)
	}

	// Graceful shutdown with timeout.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("http server shutdown error", "error", err)
		os.Exit(1)
	}

	slog.Info("callgrid stopped")
}

// dsdsMode maps the configured mode name to the call package constant.
// Config validation already rejected unknown names.
func dsdsMode(name string) call.DsdsMode {
	switch name {
	case "dsds3":
		return call.DsdsModeV3
	case "dsds5-tdm":
		return call.DsdsModeV5TDM
	case "dsds5-dsda":
		return call.DsdsModeV5DSDA
	default:
		return call.DsdsModeV2
	}
}

// conferenceStatusAdapter exposes the conference groupings to the
// metrics collector.
type conferenceStatusAdapter struct {
	conferences []*call.Conference
}

func (a *conferenceStatusAdapter) ConferenceStatuses() []metrics.ConferenceEntry {
	entries := make([]metrics.ConferenceEntry, 0, len(a.conferences))
	for _, conf := range a.conferences {
		entries = append(entries, metrics.ConferenceEntry{
			CallType: conf.CallType().String(),
			State:    string(conf.State()),
			Size:     conf.Size(),
		})
	}
	return entries
}
