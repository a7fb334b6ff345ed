package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/lox/cardroom/internal/server"
)

var CLI struct {
	Config     string `short:"c" long:"config" default:"cardroom.hcl" help:"Path to HCL configuration file"`
	Addr       string `short:"a" long:"addr" help:"Address to listen on (overrides config)"`
	LogLevel   string `short:"l" long:"log-level" help:"Log level (overrides config)"`
	HandLogDir string `long:"hand-log-dir" help:"Directory for hand records (overrides config)"`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("cardroomd"),
		kong.Description("WebSocket server for multi-room no-limit hold'em"),
		kong.UsageOnError(),
	)

	cfg, err := server.LoadConfig(CLI.Config)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		kctx.Exit(1)
	}

	// Apply command line overrides
	if CLI.Addr != "" {
		cfg.Server.ListenAddr = CLI.Addr
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}
	if CLI.HandLogDir != "" {
		cfg.Server.HandLogDir = CLI.HandLogDir
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		kctx.Exit(1)
	}

	logger := log.New(os.Stderr)
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	srv, err := server.NewServer(cfg, logger)
	if err != nil {
		logger.Error("Failed to build server", "error", err)
		kctx.Exit(1)
	}

	logger.Info("Starting cardroom",
		"addr", cfg.Server.ListenAddr,
		"blinds", fmt.Sprintf("%d/%d", cfg.Game.SmallBlind, cfg.Game.BigBlind),
		"startingChips", cfg.Game.StartingChips,
		"maxSeats", cfg.Game.MaxSeats)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		logger.Error("Server failed", "error", err)
		kctx.Exit(1)
	}
}
