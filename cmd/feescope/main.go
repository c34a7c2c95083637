package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mtzanidakis/feescope/internal/config"
	"github.com/mtzanidakis/feescope/internal/llm"
	"github.com/mtzanidakis/feescope/internal/llm/openai"
	"github.com/mtzanidakis/feescope/internal/natsbus"
	"github.com/mtzanidakis/feescope/internal/scheduler"
	"github.com/mtzanidakis/feescope/internal/store"
	"github.com/mtzanidakis/feescope/internal/telegram"
	"github.com/mtzanidakis/feescope/internal/vault"
	"github.com/mtzanidakis/feescope/internal/web"
	"github.com/mtzanidakis/feescope/internal/workflow"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "version":
		fmt.Printf("feescope %s\n", version)
	case "gateway":
		err = runGateway()
	case "analyze":
		err = runAnalyze(os.Args[2:])
	case "backup":
		err = runBackup(os.Args[2:])
	case "restore":
		err = runRestore(os.Args[2:])
	case "vault":
		err = runVault(os.Args[2:])
	default:
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		slog.Error(os.Args[1]+" failed", "error", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: feescope <command>

Commands:
  gateway    Start the feescope service (API, scheduler, telegram bot)
  analyze    Run a one-shot revenue analysis and print the report
  backup     Archive the data directory to a .tar.zst file
  restore    Restore a data directory from a backup archive
  vault      Manage sealed secrets
  version    Print version
`)
}

// newLLMClient returns nil when no API key is configured. Agents then
// fall back to their deterministic output.
func newLLMClient(cfg *config.Config) llm.Client {
	if cfg.LLM.APIKey == "" {
		slog.Warn("no LLM api key configured, narrative refinement disabled")
		return nil
	}
	return openai.New(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Timeout)
}

func runGateway() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("starting feescope gateway", "version", version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// SQLite store
	db, err := store.New(cfg.Store)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()
	slog.Info("store initialized", "path", cfg.Store.Path)

	// Embedded NATS
	bus, err := natsbus.New(cfg.NATS)
	if err != nil {
		return fmt.Errorf("init nats: %w", err)
	}
	defer bus.Close()
	slog.Info("nats started", "port", cfg.NATS.Port)

	events, err := natsbus.NewClient(bus)
	if err != nil {
		return fmt.Errorf("init nats client: %w", err)
	}
	defer events.Close()

	// Workflow runner
	runner, err := workflow.NewRunner(cfg, newLLMClient(cfg), db, events)
	if err != nil {
		return fmt.Errorf("init runner: %w", err)
	}
	slog.Info("blockspace data loaded", "chains", runner.Data().Chains())

	// Scheduler
	sched := scheduler.New(db, runner, events, cfg.Scheduler)
	go sched.Start(ctx)

	// Telegram bot
	if cfg.Telegram.Token != "" {
		bot, err := telegram.NewBot(cfg.Telegram, runner, db)
		if err != nil {
			return fmt.Errorf("init telegram bot: %w", err)
		}
		go bot.Start(ctx)
		slog.Info("telegram bot started")
	} else {
		slog.Warn("telegram token not set, bot disabled")
	}

	// Web API
	if cfg.Web.Enabled {
		var v *vault.Vault
		if cfg.Vault.Passphrase != "" {
			v = vault.New(cfg.Vault.Passphrase)
		}
		srv := web.NewServer(db, bus, runner, cfg.Web, v, version)
		go func() {
			if err := srv.Start(ctx); err != nil {
				slog.Error("web server error", "error", err)
			}
		}()
		slog.Info("web server started", "port", cfg.Web.Port)
	}

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("shutting down", "signal", sig)
	cancel()

	return nil
}
