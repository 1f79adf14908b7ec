package backend

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestMockRequiresLoad(t *testing.T) {
	m := NewMock()
	_, err := m.Generate(context.Background(), "a cabin", validParams())
	if !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("err = %v, want ErrNotLoaded", err)
	}
}

func TestMockGeneratesValidPNG(t *testing.T) {
	m := NewMock()
	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	data, err := m.Generate(context.Background(), "a cabin in the snow", validParams())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := ValidateImageData(data); err != nil {
		t.Fatalf("output failed PNG validation: %v", err)
	}

	w, h, err := decodePNGSize(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if w != 512 || h != 512 {
		t.Fatalf("got %dx%d, want 512x512", w, h)
	}
}

func TestMockDeterministicOutput(t *testing.T) {
	m := NewMock()
	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	p := validParams()
	first, err := m.Generate(context.Background(), "a cabin", p)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	second, err := m.Generate(context.Background(), "a cabin", p)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("same prompt and seed produced different bytes")
	}

	p.Seed = 99
	third, err := m.Generate(context.Background(), "a cabin", p)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if bytes.Equal(first, third) {
		t.Fatal("different seeds produced identical bytes")
	}
}

func TestMockQueuedFailures(t *testing.T) {
	m := NewMock()
	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	m.FailNext(ErrGenerationTimeout, ErrOutOfMemory)

	_, err := m.Generate(context.Background(), "a cabin", validParams())
	if !errors.Is(err, ErrGenerationTimeout) {
		t.Fatalf("first call err = %v, want ErrGenerationTimeout", err)
	}
	_, err = m.Generate(context.Background(), "a cabin", validParams())
	if !errors.Is(err, ErrOutOfMemory) {
		t.Fatalf("second call err = %v, want ErrOutOfMemory", err)
	}
	if _, err := m.Generate(context.Background(), "a cabin", validParams()); err != nil {
		t.Fatalf("third call err = %v, want success", err)
	}
	if m.GenerateCalls() != 3 {
		t.Fatalf("GenerateCalls = %d, want 3", m.GenerateCalls())
	}
}

func TestMockValidatesInput(t *testing.T) {
	m := NewMock()
	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if _, err := m.Generate(context.Background(), "", validParams()); !errors.Is(err, ErrInvalidPrompt) {
		t.Fatalf("blank prompt err = %v, want ErrInvalidPrompt", err)
	}

	bad := validParams()
	bad.Width = 7
	if _, err := m.Generate(context.Background(), "a cabin", bad); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("bad params err = %v, want ErrInvalidParams", err)
	}
}

func TestMockCancelledContext(t *testing.T) {
	m := NewMock()
	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Generate(ctx, "a cabin", validParams())
	if !errors.Is(err, ErrGenerationTimeout) {
		t.Fatalf("err = %v, want ErrGenerationTimeout", err)
	}
}

func TestMockLifecycleCounters(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	if err := m.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !m.Loaded() {
		t.Fatal("Loaded() = false after Load")
	}
	if err := m.ClearMemory(ctx); err != nil {
		t.Fatalf("ClearMemory: %v", err)
	}
	if err := m.Unload(ctx); err != nil {
		t.Fatalf("Unload: %v", err)
	}
	if m.Loaded() {
		t.Fatal("Loaded() = true after Unload")
	}
	if m.ClearCalls() != 1 || m.UnloadCalls() != 1 {
		t.Fatalf("clear = %d, unload = %d, want 1 and 1", m.ClearCalls(), m.UnloadCalls())
	}
}
