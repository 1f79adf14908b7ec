package prompt

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"artloop/plugins"
)

type fakeService struct {
	result string
	err    error
	calls  int
	seen   []string
}

func (f *fakeService) Enhance(_ context.Context, guidance string) (string, error) {
	f.calls++
	f.seen = append(f.seen, guidance)
	if f.err != nil {
		return "", f.err
	}
	return f.result, nil
}

func items(values ...string) []plugins.ContextItem {
	out := make([]plugins.ContextItem, 0, len(values))
	for i, v := range values {
		out = append(out, plugins.ContextItem{
			Name:  fmt.Sprintf("plugin_%d", i),
			Value: v,
		})
	}
	return out
}

func TestComposeBasePromptUnmodified(t *testing.T) {
	svc := &fakeService{result: "should not be used"}
	c := NewComposer(svc, nil)

	got, err := c.Compose(context.Background(), "a red fox", nil)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if got != "a red fox" {
		t.Fatalf("got %q, want base prompt unmodified", got)
	}
	if svc.calls != 0 {
		t.Fatalf("text service called %d times with a base prompt present", svc.calls)
	}
}

func TestComposeBasePromptWithGuidance(t *testing.T) {
	svc := &fakeService{}
	c := NewComposer(svc, nil)

	got, err := c.Compose(context.Background(), "a red fox", items("golden hour light", "watercolor painting"))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	want := "a red fox, golden hour light, watercolor painting"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if svc.calls != 0 {
		t.Fatalf("text service called %d times with a base prompt present", svc.calls)
	}
}

func TestComposeDeterministicWithBasePrompt(t *testing.T) {
	c := NewComposer(nil, nil)
	in := items("midday", "cozy christmas scene")

	first, err := c.Compose(context.Background(), "a cabin", in)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	second, err := c.Compose(context.Background(), "a cabin", in)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if first != second {
		t.Fatalf("same inputs produced %q then %q", first, second)
	}
}

func TestComposeSynthesizesWithoutBasePrompt(t *testing.T) {
	svc := &fakeService{result: "a snow covered village at dusk, warm windows"}
	c := NewComposer(svc, nil)

	got, err := c.Compose(context.Background(), "", items("dusk", "cozy christmas scene"))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if got != svc.result {
		t.Fatalf("got %q, want service output %q", got, svc.result)
	}
	if svc.calls != 1 {
		t.Fatalf("service called %d times, want 1", svc.calls)
	}
	if svc.seen[0] != "dusk, cozy christmas scene" {
		t.Fatalf("service saw guidance %q", svc.seen[0])
	}
}

func TestComposeServiceFailure(t *testing.T) {
	svc := &fakeService{err: fmt.Errorf("%w: connection refused", ErrPromptService)}
	c := NewComposer(svc, nil)

	_, err := c.Compose(context.Background(), "", items("morning"))
	if !errors.Is(err, ErrPromptService) {
		t.Fatalf("err = %v, want ErrPromptService", err)
	}
}

func TestComposeNoServiceNoBasePrompt(t *testing.T) {
	c := NewComposer(nil, nil)

	_, err := c.Compose(context.Background(), "", items("morning"))
	if !errors.Is(err, ErrPromptService) {
		t.Fatalf("err = %v, want ErrPromptService", err)
	}
}

func TestGuidanceText(t *testing.T) {
	tests := []struct {
		name string
		in   []plugins.ContextItem
		want string
	}{
		{"empty", nil, ""},
		{"single", items("midday"), "midday"},
		{"ordered", items("midday", "watercolor"), "midday, watercolor"},
		{"skips blank values", []plugins.ContextItem{
			{Name: "a", Value: "midday"},
			{Name: "b", Value: "   "},
			{Name: "c", Value: "watercolor"},
		}, "midday, watercolor"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := GuidanceText(tc.in); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}
