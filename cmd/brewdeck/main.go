package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mholden/brewdeck/internal/adapter"
	"github.com/mholden/brewdeck/internal/adapter/brew"
	"github.com/mholden/brewdeck/internal/service"
	"github.com/mholden/brewdeck/internal/store"
	"github.com/mholden/brewdeck/internal/task"
	"github.com/mholden/brewdeck/internal/tui"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	// Handle version flag
	var showVersion bool
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.Parse()

	if showVersion {
		fmt.Printf("brewdeck %s\n", Version)
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := adapter.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	logger, err := adapter.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = adapter.NullLogger()
	}
	slog.SetDefault(logger)

	logger.Info("starting brewdeck", "version", Version)

	if !brew.Installed() {
		return fmt.Errorf("brew not found in PATH; install Homebrew first (https://brew.sh)")
	}

	// Package info cache; degrade to memory-only if the disk store fails
	infoStore, err := store.NewInfoStore(cfg.Cache.Dir)
	if err != nil {
		logger.Warn("info cache unavailable, running without persistence", "error", err)
		infoStore, _ = store.NewInfoStore("")
	}
	defer infoStore.Close()

	// Backend wiring
	gateway := brew.NewGateway(brew.NewRunner(), cfg.Operations.Timeout, logger)
	repo := brew.NewRepository(gateway, infoStore, logger)

	bus := task.NewBus(cfg.UI.LogLines)
	mgr := task.NewManager(bus, logger, cfg.Operations.Timeout)
	exec := task.NewExecutor(mgr, repo, bus, logger, cfg.Operations.MaxAuthRetries)
	exec.InfoTimeout = cfg.Operations.InfoTimeout
	batch := task.NewBatchProcessor(exec, bus, logger)
	catalog := service.NewCatalog(cfg.Operations.MaxInfoLoads, logger)

	// Run the TUI
	model := tui.NewModel(catalog, exec, batch, mgr, bus, cfg, logger)
	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
	)

	logger.Info("starting TUI")

	if _, err := p.Run(); err != nil {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	logger.Info("shutting down")
	return nil
}
