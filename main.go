// artloop generates AI images on a schedule: contextual plugins enrich a
// prompt, an image backend renders it, and results land in a week-partitioned
// archive with prompt sidecars and a run-history database.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"artloop/core"
	"artloop/logging"
	"artloop/shutdown"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := godotenv.Load(); err != nil {
		// The logger is not up yet.
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	// install/uninstall/start/stop/restart subcommands, Windows only.
	if HandleServiceCommand(os.Args[1:]) {
		return core.ExitCodeSuccess
	}

	isDevelopment := os.Getenv("DEV_MODE") == "true"

	cfg, err := core.LoadConfig()
	if err != nil {
		fmt.Printf("Configuration error: %v\n", err)
		return core.ExitCodeConfigError
	}

	logger, err := logging.NewLogger(isDevelopment, filepath.Join(cfg.LogDir, "artloop.log"))
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		return core.ExitCodeError
	}

	printBanner(cfg, isDevelopment)
	logger.Info("configuration loaded",
		zap.String("backend", cfg.ImageBackend),
		zap.Bool("mock_override", cfg.UseMockGenerator),
		zap.String("output_dir", cfg.OutputDir),
		zap.Duration("loop_interval", cfg.LoopInterval),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Bool("plugins", cfg.EnablePlugins),
		zap.Bool("dev_mode", isDevelopment))

	if asService, err := RunAsService(cfg, logger); asService {
		if err != nil {
			logger.Error("service run failed", zap.Error(err))
			return core.ExitCodeError
		}
		return core.ExitCodeSuccess
	}

	return runInteractive(cfg, logger)
}

// runInteractive runs the loop in the foreground with signal handling:
// first interrupt drains gracefully, second one forces exit.
func runInteractive(cfg *core.Config, logger *logging.Logger) int {
	app, err := newApp(cfg, logger)
	if err != nil {
		logger.Error("failed to assemble pipeline", zap.Error(err))
		return core.ExitCodeError
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	counter := shutdown.NewSignalCounter(2, func() {
		fmt.Println("\nForced shutdown")
		os.Exit(core.ExitCodeError)
	})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		for range sigChan {
			if counter.Increment() == 1 {
				logger.Info("interrupt received, finishing current run")
				cancel()
			}
		}
	}()

	runErr := app.Run(ctx)
	app.Shutdown()

	if runErr != nil {
		logger.Error("generation loop failed", zap.Error(runErr))
		return core.ExitCodeError
	}
	return core.ExitCodeSuccess
}

// printBanner writes a short colored startup summary to stdout.
func printBanner(cfg *core.Config, isDevelopment bool) {
	header := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.FgHiBlack)

	header.Println("artloop")
	backendName := cfg.ImageBackend
	if cfg.UseMockGenerator {
		backendName = "mock (forced)"
	}
	dim.Printf("  backend:  %s\n", backendName)
	dim.Printf("  output:   %s\n", cfg.OutputDir)
	dim.Printf("  interval: %s", cfg.LoopInterval)
	if cfg.BatchSize > 0 {
		dim.Printf("  batch: %d", cfg.BatchSize)
	}
	if isDevelopment {
		color.New(color.FgYellow).Print("  [dev]")
	}
	fmt.Println()
}
