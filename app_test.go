package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"

	"artloop/core"
	"artloop/history"
	"artloop/logging"
)

func testAppConfig(t *testing.T) *core.Config {
	t.Helper()
	dir := t.TempDir()
	return &core.Config{
		ImageBackend:     "mock",
		UseMockGenerator: true,
		ImageWidth:       256,
		ImageHeight:      256,
		InferenceSteps:   4,
		GuidanceScale:    0.0,

		TextLLMURL:   "http://localhost:11434/v1",
		TextLLMModel: "llama3.2:3b",

		BasePrompt:    "a red fox",
		EnablePlugins: false,

		LoraDir:         filepath.Join(dir, "loras"),
		LoraProbability: 0.5,

		LoopInterval: time.Second,
		BatchSize:    1,
		MaxRetries:   1,
		RetryDelay:   time.Millisecond,

		OutputDir:     filepath.Join(dir, "output"),
		LogDir:        filepath.Join(dir, "logs"),
		HistoryDBPath: filepath.Join(dir, "logs", "artloop.db"),
	}
}

func TestAppSingleRunEndToEnd(t *testing.T) {
	cfg := testAppConfig(t)
	logger := logging.NewLoggerWithCore(zapcore.NewNopCore())

	app, err := newApp(cfg, logger)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}

	if err := app.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	app.Shutdown()

	var images, sidecars int
	err = filepath.WalkDir(cfg.OutputDir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		switch {
		case strings.HasSuffix(path, ".png"):
			images++
		case strings.HasSuffix(path, ".txt"):
			sidecars++
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk output: %v", err)
	}
	if images != 1 || sidecars != 1 {
		t.Fatalf("archive has %d images and %d sidecars, want 1 and 1", images, sidecars)
	}

	db, err := history.Open(cfg.HistoryDBPath)
	if err != nil {
		t.Fatalf("reopen history: %v", err)
	}
	defer db.Close()
	repo, err := history.NewRepository(db)
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}

	n, err := repo.CountByStatus(context.Background(), history.StatusSuccess)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if n != 1 {
		t.Fatalf("history has %d successes, want 1", n)
	}

	runs, err := repo.ListRecent(context.Background(), 1, 0)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if runs[0].FinalPrompt != "a red fox" {
		t.Fatalf("recorded prompt = %q", runs[0].FinalPrompt)
	}
}

func TestAppShutdownIdempotent(t *testing.T) {
	cfg := testAppConfig(t)
	logger := logging.NewLoggerWithCore(zapcore.NewNopCore())

	app, err := newApp(cfg, logger)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}

	app.Shutdown()
	app.Shutdown()
}
