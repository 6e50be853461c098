// Command triaged is the Triage server daemon.
// It opens the task store, starts one actor per queue on demand, and
// serves the REST API and SSE event stream.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/GoCodeAlone/triage/actor"
	"github.com/GoCodeAlone/triage/config"
	"github.com/GoCodeAlone/triage/internal/version"
	"github.com/GoCodeAlone/triage/notify"
	"github.com/GoCodeAlone/triage/server"
	"github.com/GoCodeAlone/triage/store"
)

var configPath = flag.String("config", "triage.yaml", "path to config file")

func main() {
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config %s: %v", *configPath, err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))

	logger.Info("starting triaged",
		"version", version.Version,
		"commit", version.Commit,
	)

	engine, err := openEngine(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer engine.Close() //nolint:errcheck

	bus := notify.NewBus()
	router := notify.NewRouter(&notify.LogNotifier{Logger: logger})
	router.Route("bus", &notify.BusNotifier{Bus: bus})

	srv := server.New(*cfg, version.Version, logger)
	router.Route("sse", notify.Func(func(_ context.Context, channel, recipient, subject, body string) {
		srv.Broadcast("notification", map[string]string{
			"channel":   channel,
			"recipient": recipient,
			"subject":   subject,
			"body":      body,
		})
	}))
	registry := actor.NewRegistry(engine, actor.Deps{
		Logger:   logger,
		Notifier: router,
		Webhooks: notify.NewWebhookSender(cfg.Webhook.Secret, cfg.Webhook.Timeout(), logger),
		Events:   srv,
		Options: actor.Options{
			ExpiringSoonWindow: cfg.Defaults.ExpiringSoonWindow(),
		},
	})
	defer registry.Close()
	srv.SetRegistry(registry)
	srv.SetBus(bus)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	fmt.Printf("Triage server running on http://localhost%s\n", cfg.Server.Addr)
	fmt.Printf("Version: %s (%s)\n", version.Version, version.Commit)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		fmt.Printf("Received %s, shutting down...\n", sig)
	case err := <-errCh:
		log.Fatalf("Server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		logger.Error("server stop error", "error", err)
	}
	fmt.Println("Shutdown complete")
}

// loadConfig reads the config file. A missing file at the default path is
// not an error; the daemon runs on defaults.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) && !flagWasSet("config") {
		return config.DefaultConfig(), nil
	}
	return nil, err
}

func flagWasSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func openEngine(cfg config.StorageConfig) (store.Engine, error) {
	switch cfg.Driver {
	case "", "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		return store.OpenSQLite(cfg.Path)
	case "memory":
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
