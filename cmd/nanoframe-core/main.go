package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/rexliu/nanoframe/pkg/config"
	"github.com/rexliu/nanoframe/pkg/host"
	"github.com/rexliu/nanoframe/pkg/ipc"
	"github.com/rexliu/nanoframe/pkg/logging"
	"github.com/rexliu/nanoframe/pkg/storage/sqlite"
	"github.com/rexliu/nanoframe/pkg/system"
)

// GUI toolkits must be driven from the thread that started the process.
func init() {
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "", "Path to config.toml or config.yaml (optional)")
	logLevel := flag.String("log-level", "", "Override the configured log level")
	flag.Parse()

	logger := logging.New("nanoframe-core")
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, *configPath, *logLevel, logger)
	cancel()
	if err != nil {
		logger.Error("fatal error", "error", err)
		_ = logger.Close()
		os.Exit(1)
	}
	_ = logger.Close()
}

func run(ctx context.Context, configPath, levelOverride string, logger *logging.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if levelOverride != "" {
		cfg.Logging.Level = levelOverride
	}
	if err := logger.Configure(cfg.Logging); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	watchConfig(ctx, configPath, levelOverride != "", logger)

	journal, err := openJournal(ctx, cfg.Journal, logger)
	if err != nil {
		return err
	}

	server, err := ipc.NewServer(logger.Logger)
	if err != nil {
		_ = journal.Close(context.Background())
		return fmt.Errorf("build codec: %w", err)
	}
	server.Start(os.Stdin, os.Stdout)

	h, err := host.New(host.Options{
		Toolkit: newToolkit(cfg),
		System:  system.NewDesktop(os.Stderr),
		Inbox:   server.Requests(),
		Outbox:  server,
		Logger:  logger.Logger,
		Journal: journal,
		AppName: cfg.AppName,
	})
	if err != nil {
		shutdown(cfg, server, journal, logger)
		return err
	}
	logger.Info("host ready", "app", cfg.AppName, "poll_interval", cfg.PollInterval(), "backend", backendName)

	runErr := h.Run(ctx)
	shutdown(cfg, server, journal, logger)
	if runErr != nil && ctx.Err() == nil {
		return runErr
	}
	return nil
}

// shutdown flushes the writer and the journal, each bounded by the drain timeout.
func shutdown(cfg *config.HostConfig, server *ipc.Server, journal *sqlite.Journal, logger *logging.Logger) {
	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.DrainTimeout())
	defer cancel()
	if err := server.Close(drainCtx); err != nil {
		logger.Warn("output not fully drained", "error", err)
	}
	if err := journal.Close(drainCtx); err != nil {
		logger.Warn("journal not fully flushed", "error", err)
	}
	logger.Info("shut down")
}

func openJournal(ctx context.Context, cfg config.JournalConfig, logger *logging.Logger) (*sqlite.Journal, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
		return nil, fmt.Errorf("journal dir: %w", err)
	}
	store, err := sqlite.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := store.Init(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("init journal: %w", err)
	}
	logger.Info("journal enabled", "path", cfg.Path)
	return sqlite.NewJournal(store, logger.Logger), nil
}

// watchConfig re-applies the log level whenever the config file changes.
func watchConfig(ctx context.Context, path string, pinned bool, logger *logging.Logger) {
	if pinned {
		return
	}
	if path == "" {
		path = config.DefaultPath()
	}
	w := config.NewWatcher(path, logger.Logger, func(cfg *config.HostConfig) {
		if err := logger.SetLevel(cfg.Logging.Level); err != nil {
			logger.Warn("ignoring log level from config", "error", err)
			return
		}
		logger.Info("log level updated", "level", cfg.Logging.Level)
	})
	if err := w.Start(ctx); err != nil {
		logger.Debug("config watcher not started", "path", path, "error", err)
	}
}
