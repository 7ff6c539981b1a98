package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getgrowly/vault-client/pkg/config"
	"github.com/getgrowly/vault-client/pkg/kubernetes"
	"github.com/getgrowly/vault-client/pkg/server"
	"github.com/getgrowly/vault-client/pkg/unsealer"
	"github.com/hashicorp/go-hclog"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg := config.LoadConfig()

	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "vault-unsealer",
		Level: hclog.LevelFromString(cfg.LogLevel),
	})
	logger.Info("starting Vault auto-unseal controller",
		"namespace", cfg.PodNamespace,
		"selector", cfg.PodSelector,
		"port", cfg.VaultPort,
		"interval", cfg.CheckInterval)

	k8sClient, err := kubernetes.NewClient(logger.Named("kubernetes"))
	if err != nil {
		logger.Error("error creating Kubernetes client", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	u, err := unsealer.New(k8sClient, cfg, logger.Named("unsealer"))
	if err != nil {
		logger.Error("error creating unsealer", "error", err)
		os.Exit(1)
	}

	srv := server.NewServer(u, cfg.ListenPort, logger.Named("server"))
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("failed to start HTTP server", "error", err)
			stop()
		}
	}()

	if err := u.Run(ctx); err != nil {
		logger.Error("controller stopped", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shut down HTTP server", "error", err)
	}
	logger.Info("stopped")
}
