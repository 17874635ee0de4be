package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/snarg/mallok/internal/audio"
	"github.com/snarg/mallok/internal/correct"
	"github.com/snarg/mallok/internal/dictionary"
	"github.com/snarg/mallok/internal/task"
	"github.com/snarg/mallok/internal/transcribe"
)

// ffmpegStub reports a fixed duration from ffprobe and writes a small file
// for every ffmpeg cut.
type ffmpegStub struct {
	mu   sync.Mutex
	cuts []string
}

func (f *ffmpegStub) Run(_ context.Context, name string, args ...string) (audio.CommandResult, error) {
	if name == "ffprobe" {
		return audio.CommandResult{Stdout: "2400.000000\n"}, nil
	}
	out := args[len(args)-1]
	f.mu.Lock()
	f.cuts = append(f.cuts, out)
	f.mu.Unlock()
	return audio.CommandResult{}, os.WriteFile(out, []byte("mp3"), 0o644)
}

type chunkProvider struct {
	mu    sync.Mutex
	paths []string
}

func (p *chunkProvider) Transcribe(_ context.Context, path string, _ transcribe.Options) (*transcribe.Response, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paths = append(p.paths, path)
	return &transcribe.Response{Text: fmt.Sprintf("네, %d번째 구간 말씀입니다.", len(p.paths))}, nil
}

func (p *chunkProvider) Name() string  { return "stub" }
func (p *chunkProvider) Model() string { return "stub-1" }

// echoEngine returns the raw transcript with a filler on every paragraph and
// padded blank runs, the way a sloppy model reply looks.
type echoEngine struct{}

func (echoEngine) Name() string { return "echo" }

func (echoEngine) ListModels(context.Context) ([]string, error) { return []string{"m1"}, nil }

func (echoEngine) Generate(_ context.Context, _, prompt string) (string, error) {
	const marker = "[원본 텍스트]\n"
	raw := prompt[strings.LastIndex(prompt, marker)+len(marker):]
	parts := []string{"아, 이삼칠 나라를 향하여"}
	for _, p := range strings.Split(raw, "\n\n") {
		parts = append(parts, "예, "+p)
	}
	return strings.Join(parts, "\n\n\n\n \n"), nil
}

func TestController_LongKoreanSermon(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "sermon.m4a")
	if err := os.WriteFile(src, make([]byte, 4096), 0o644); err != nil {
		t.Fatal(err)
	}

	runner := &ffmpegStub{}
	seg := audio.NewSegmenter(audio.SegmenterConfig{
		MaxBytes: 1024,
		Window:   10 * time.Minute,
		Overlap:  2 * time.Second,
		Runner:   runner,
	}, zerolog.Nop())
	provider := &chunkProvider{}
	dict, err := dictionary.Load()
	if err != nil {
		t.Fatal(err)
	}
	engine := echoEngine{}
	corrector := correct.NewCorrector(engine,
		correct.NewModelCache(engine, correct.ModelCacheOptions{Fixed: "m1", Log: zerolog.Nop()}),
		dict, correct.Options{Log: zerolog.Nop()})

	store := &fakeStore{}
	pub := &fakePublisher{}
	c := newTestController(transcribe.NewOrchestrator(seg, provider, zerolog.Nop()), corrector, store, pub)

	id, err := c.Submit("u1", task.Sermon, task.Korean, src)
	if err != nil {
		t.Fatal(err)
	}
	c.Start()
	c.Stop()

	if got, _ := c.LiveStatus(id, "u1"); got.Status != task.StatusCompleted {
		t.Fatalf("live = %+v, want completed", got)
	}
	// 2400s in 600s windows with 2s overlap: 0, 598, 1196, 1794, 2392.
	if len(runner.cuts) != 5 || len(provider.paths) != 5 {
		t.Fatalf("cuts=%d transcribed=%d, want 5 each", len(runner.cuts), len(provider.paths))
	}
	if len(store.records) != 1 {
		t.Fatalf("stored %d records, want 1", len(store.records))
	}
	rec := store.records[0]
	if rec.Status != task.StatusCompleted || rec.ContentType != task.Sermon {
		t.Errorf("record = %+v", rec)
	}
	if n := len(strings.Split(rec.RawText, "\n\n")); n != 5 {
		t.Errorf("raw text has %d paragraphs, want 5", n)
	}

	want := "237 나라를 향하여\n\n" +
		"1번째 구간 말씀입니다.\n\n2번째 구간 말씀입니다.\n\n3번째 구간 말씀입니다.\n\n" +
		"4번째 구간 말씀입니다.\n\n5번째 구간 말씀입니다."
	if rec.CorrectedText != want {
		t.Errorf("corrected =\n%q\nwant\n%q", rec.CorrectedText, want)
	}
	if strings.Contains(rec.CorrectedText, "\n\n\n") {
		t.Error("corrected text has a run of blank lines")
	}
	for _, line := range strings.Split(rec.CorrectedText, "\n") {
		for _, f := range []string{"예,", "아,", "네,"} {
			if strings.HasPrefix(line, f) {
				t.Errorf("line %q starts with filler %q", line, f)
			}
		}
	}

	left, _ := filepath.Glob(filepath.Join(dir, "*"))
	if len(left) != 0 {
		t.Errorf("files left behind: %v", left)
	}
}
