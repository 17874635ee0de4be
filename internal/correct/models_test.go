package correct

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeEngine struct {
	models    []string
	listErr   error
	listCalls int

	replies []reply
	prompts []string
	used    []string
}

type reply struct {
	text string
	err  error
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) ListModels(context.Context) ([]string, error) {
	f.listCalls++
	return f.models, f.listErr
}

func (f *fakeEngine) Generate(_ context.Context, model, prompt string) (string, error) {
	f.used = append(f.used, model)
	f.prompts = append(f.prompts, prompt)
	if len(f.replies) == 0 {
		return "", errors.New("no reply scripted")
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r.text, r.err
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestSelectModel(t *testing.T) {
	prio := DefaultModelPriority
	tests := []struct {
		name      string
		available []string
		want      string
	}{
		{"prefixed_first_priority", []string{"models/gemini-2.0-flash", "models/gemini-2.5-flash"}, "models/gemini-2.5-flash"},
		{"versioned_suffix", []string{"models/gemini-2.5-pro-001"}, "models/gemini-2.5-pro-001"},
		{"bare_name", []string{"gemini-2.0-flash"}, "gemini-2.0-flash"},
		{"no_match_takes_first", []string{"models/embedding-001", "models/aqa"}, "models/embedding-001"},
		{"empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SelectModel(prio, tt.available); got != tt.want {
				t.Errorf("SelectModel = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestModelCache_TTL(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	eng := &fakeEngine{models: []string{"models/gemini-2.5-pro"}}
	c := NewModelCache(eng, ModelCacheOptions{TTL: time.Hour, Now: clock.now, Log: zerolog.Nop()})
	ctx := context.Background()

	if got := c.Get(ctx); got != "models/gemini-2.5-pro" {
		t.Fatalf("Get = %q", got)
	}
	clock.t = clock.t.Add(59 * time.Minute)
	c.Get(ctx)
	if eng.listCalls != 1 {
		t.Errorf("listed %d times within TTL, want 1", eng.listCalls)
	}

	eng.models = []string{"models/gemini-2.5-flash"}
	clock.t = clock.t.Add(2 * time.Minute)
	if got := c.Get(ctx); got != "models/gemini-2.5-flash" {
		t.Errorf("after expiry Get = %q, want refreshed model", got)
	}
	if eng.listCalls != 2 {
		t.Errorf("listCalls = %d, want 2", eng.listCalls)
	}

	c.Invalidate()
	c.Get(ctx)
	if eng.listCalls != 3 {
		t.Errorf("Invalidate did not force a relist (listCalls=%d)", eng.listCalls)
	}
}

func TestModelCache_ListFailureNotCached(t *testing.T) {
	eng := &fakeEngine{listErr: errors.New("403")}
	c := NewModelCache(eng, ModelCacheOptions{Log: zerolog.Nop()})
	ctx := context.Background()

	if got := c.Get(ctx); got != "gemini-2.5-flash" {
		t.Errorf("fallback = %q, want gemini-2.5-flash", got)
	}
	c.Get(ctx)
	if eng.listCalls != 2 {
		t.Errorf("failed listing was cached (listCalls=%d)", eng.listCalls)
	}
}

func TestModelCache_Fixed(t *testing.T) {
	eng := &fakeEngine{}
	c := NewModelCache(eng, ModelCacheOptions{Fixed: "claude-sonnet-4-5", Log: zerolog.Nop()})
	if got := c.Get(context.Background()); got != "claude-sonnet-4-5" {
		t.Errorf("Get = %q", got)
	}
	if eng.listCalls != 0 {
		t.Error("fixed model should skip listing")
	}
}
