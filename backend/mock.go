package backend

import (
	"context"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Mock implements ImageBackend without touching any hardware. It renders a
// deterministic placeholder PNG: same prompt, seed and dimensions always
// produce identical bytes. Tests can queue failures to exercise retry paths.
type Mock struct {
	mu            sync.Mutex
	loaded        bool
	generateDelay time.Duration
	queuedErrs    []error

	generateCalls int
	clearCalls    int
	unloadCalls   int
}

// NewMock creates an unloaded mock backend.
func NewMock() *Mock {
	return &Mock{}
}

// FailNext queues errors to be returned by the next Generate calls, one per
// call, before any rendering happens.
func (m *Mock) FailNext(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queuedErrs = append(m.queuedErrs, errs...)
}

// SetGenerateDelay makes Generate sleep before returning, for timeout tests.
func (m *Mock) SetGenerateDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generateDelay = d
}

func (m *Mock) Load(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = true
	return nil
}

func (m *Mock) Generate(ctx context.Context, prompt string, p Params) ([]byte, error) {
	m.mu.Lock()
	m.generateCalls++
	loaded := m.loaded
	delay := m.generateDelay
	var queued error
	if len(m.queuedErrs) > 0 {
		queued = m.queuedErrs[0]
		m.queuedErrs = m.queuedErrs[1:]
	}
	m.mu.Unlock()

	if !loaded {
		return nil, ErrNotLoaded
	}
	if err := ValidatePrompt(prompt); err != nil {
		return nil, err
	}
	if err := ValidateParams(p); err != nil {
		return nil, err
	}
	if queued != nil {
		return nil, queued
	}

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrGenerationTimeout, ctx.Err())
		}
	}
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrGenerationTimeout, ctx.Err())
	default:
	}

	return EncodePNG(renderPlaceholder(prompt, p))
}

func (m *Mock) ClearMemory(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearCalls++
	return nil
}

func (m *Mock) Unload(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unloadCalls++
	m.loaded = false
	return nil
}

func (m *Mock) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

func (m *Mock) Info() ModelInfo {
	return ModelInfo{Name: "placeholder", Kind: "mock"}
}

// GenerateCalls reports how many times Generate was invoked.
func (m *Mock) GenerateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generateCalls
}

// ClearCalls reports how many times ClearMemory was invoked.
func (m *Mock) ClearCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clearCalls
}

// UnloadCalls reports how many times Unload was invoked.
func (m *Mock) UnloadCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unloadCalls
}

// renderPlaceholder draws a gradient keyed on the prompt and seed with the
// prompt text stamped on top.
func renderPlaceholder(prompt string, p Params) image.Image {
	h := fnv.New64a()
	h.Write([]byte(prompt))
	fmt.Fprintf(h, ":%d", p.Seed)
	key := h.Sum64()

	base := color.RGBA{
		R: uint8(key),
		G: uint8(key >> 8),
		B: uint8(key >> 16),
		A: 255,
	}

	img := image.NewRGBA(image.Rect(0, 0, p.Width, p.Height))
	for y := 0; y < p.Height; y++ {
		shade := uint8((y * 96) / p.Height)
		row := color.RGBA{
			R: base.R/2 + shade,
			G: base.G/2 + shade,
			B: base.B/2 + shade,
			A: 255,
		}
		for x := 0; x < p.Width; x++ {
			img.SetRGBA(x, y, row)
		}
	}

	label := prompt
	if len(label) > 60 {
		label = label[:60]
	}
	drawer := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.White),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(8, 20),
	}
	drawer.DrawString(label)

	drawer.Dot = fixed.P(8, 40)
	drawer.DrawString(fmt.Sprintf("seed %d", p.Seed))

	return img
}
