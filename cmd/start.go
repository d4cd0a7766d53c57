package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"docklite/internal/config"
	"docklite/internal/container"
	"docklite/internal/files"
	"docklite/internal/httpserve"
	"docklite/internal/pathguard"
	"docklite/internal/site"
	"docklite/internal/store"
	"docklite/internal/traefik"
	"docklite/pkg/logger"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the DockLite server",
	Long:  `Start the panel API, connect to the Docker daemon, and reconcile managed containers.`,
	Run:   runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) {
	log := logger.GetLogger()
	log.ConfigureFromEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", "error", err)
	}
	if cfg.Server.LogLevel != "" {
		log.SetLogLevel(cfg.Server.LogLevel)
	}

	log.Info("Starting DockLite", "version", BuildVersion, "port", cfg.Server.Port)
	log.Info("Site storage", "data_dir", cfg.Server.DataDir)

	if err := cfg.EnsureSessionSecret(); err != nil {
		log.Fatal("Failed to resolve session secret", "error", err)
	}

	st, err := store.Open(cfg.Storage.DBPath)
	if err != nil {
		log.Fatal("Failed to open store", "error", err)
	}
	defer st.Close()

	runtime, err := container.NewDockerRuntime(cfg.Server.SocketPath)
	if err != nil {
		log.Fatal("Failed to connect to Docker", "error", err)
	}
	defer runtime.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := runtime.Ping(ctx); err != nil {
		log.Fatal("Docker daemon unreachable", "error", err)
	}
	if version, err := runtime.Version(ctx); err == nil {
		log.Info("Connected to Docker", "version", version)
	}

	manager := container.NewManager(runtime)
	resolver := pathguard.NewResolver(cfg.BaseDirs()...)
	orch := site.NewOrchestrator(st, manager, resolver, cfg)
	fileService := files.NewService(resolver)
	traefikClient := traefik.NewClient(cfg.Proxy.APIEndpoint, cfg.Proxy.CertResolver)

	if err := runtime.EnsureNetwork(ctx, cfg.Proxy.Network); err != nil {
		log.Warn("Failed to ensure proxy network", "network", cfg.Proxy.Network, "error", err)
	}

	if report, err := orch.Reconcile(ctx); err != nil {
		log.Warn("Startup reconcile failed", "error", err)
	} else if report.Updated > 0 {
		log.Info("Startup reconcile", "checked", report.SitesChecked,
			"updated", report.Updated, "missing", report.Missing)
	}

	server := httpserve.New(cfg, st, orch, manager, fileService, traefikClient)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatal("Server failed", "error", err)
	case sig := <-quit:
		log.Info("Shutting down", "signal", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", "error", err)
	}
	log.Info("Goodbye")
}
