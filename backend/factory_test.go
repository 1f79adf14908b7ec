package backend

import (
	"testing"

	"artloop/core"
)

func testConfig() *core.Config {
	return &core.Config{
		ImageBackend:   "zimage",
		ZImageURL:      "http://localhost:8000/v1",
		ZImageModel:    "z-image-turbo",
		ImageWidth:     1024,
		ImageHeight:    1024,
		InferenceSteps: 8,
		GuidanceScale:  0.0,
	}
}

func TestFactorySelectsByName(t *testing.T) {
	cfg := testConfig()
	cfg.ImageBackend = "mock"

	b, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if b.Info().Kind != "mock" {
		t.Fatalf("Kind = %q, want mock", b.Info().Kind)
	}
}

func TestFactoryMockOverride(t *testing.T) {
	cfg := testConfig()
	cfg.UseMockGenerator = true

	b, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if b.Info().Kind != "mock" {
		t.Fatalf("Kind = %q, want mock when UseMockGenerator is set", b.Info().Kind)
	}
}

func TestFactoryZImage(t *testing.T) {
	b, err := New(testConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	info := b.Info()
	if info.Kind != "zimage" || info.Name != "z-image-turbo" {
		t.Fatalf("Info = %+v", info)
	}
	if b.Loaded() {
		t.Fatal("zimage backend reports loaded before Load")
	}
}

func TestFactoryRejectsUnknown(t *testing.T) {
	cfg := testConfig()
	cfg.ImageBackend = "dalle"
	if _, err := New(cfg, nil); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestFactoryRejectsMissingEndpoint(t *testing.T) {
	cfg := testConfig()
	cfg.ZImageURL = ""
	if _, err := New(cfg, nil); err == nil {
		t.Fatal("expected error for empty endpoint")
	}
}

func TestParamsFromConfig(t *testing.T) {
	p := ParamsFromConfig(testConfig())
	if p.Width != 1024 || p.Height != 1024 || p.Steps != 8 {
		t.Fatalf("params = %+v", p)
	}
	if p.Seed != -1 {
		t.Fatalf("Seed = %d, want -1", p.Seed)
	}
	if err := ValidateParams(p); err != nil {
		t.Fatalf("config-derived params invalid: %v", err)
	}
}
