package transcribe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/snarg/mallok/internal/audio"
	"github.com/snarg/mallok/internal/task"
)

type fakeSplitter struct {
	chunks   []audio.Chunk
	err      error
	cleaned  []string
	cleanups int
}

func (f *fakeSplitter) Split(context.Context, string) ([]audio.Chunk, error) {
	return f.chunks, f.err
}

func (f *fakeSplitter) Cleanup(chunks []audio.Chunk) {
	f.cleanups++
	for _, c := range chunks {
		f.cleaned = append(f.cleaned, c.Path)
	}
}

type fakeProvider struct {
	texts  map[string]string
	failOn string
	opts   []Options
}

func (f *fakeProvider) Transcribe(_ context.Context, path string, opts Options) (*Response, error) {
	f.opts = append(f.opts, opts)
	if path == f.failOn {
		return nil, errors.New("engine exploded")
	}
	return &Response{Text: f.texts[path]}, nil
}

func (f *fakeProvider) Name() string  { return "fake" }
func (f *fakeProvider) Model() string { return "fake-1" }

func chunksOf(n int) []audio.Chunk {
	out := make([]audio.Chunk, n)
	for i := range out {
		out[i] = audio.Chunk{Index: i, Path: fmt.Sprintf("c%d.mp3", i)}
	}
	return out
}

func TestOrchestrator_JoinsInOrder(t *testing.T) {
	split := &fakeSplitter{chunks: chunksOf(3)}
	prov := &fakeProvider{texts: map[string]string{
		"c0.mp3": " first ",
		"c1.mp3": "second\n",
		"c2.mp3": "third",
	}}
	o := NewOrchestrator(split, prov, zerolog.Nop())

	got, err := o.Transcribe(context.Background(), task.Task{
		ID: "t1", AudioPath: "in.mp3", Language: task.English, ContentType: task.PhoneCall,
	})
	if err != nil {
		t.Fatal(err)
	}
	if want := "first\n\nsecond\n\nthird"; got != want {
		t.Errorf("Transcribe = %q, want %q", got, want)
	}
	if split.cleanups != 3 || strings.Join(split.cleaned, ",") != "c0.mp3,c1.mp3,c2.mp3" {
		t.Errorf("chunks not removed one by one: %d calls, %v", split.cleanups, split.cleaned)
	}
	for _, o := range prov.opts {
		if o.Language != "en" || o.Prompt != VocabularyHint(task.English, task.PhoneCall) {
			t.Errorf("unexpected options %+v", o)
		}
	}
}

func TestOrchestrator_ChunkFailure(t *testing.T) {
	split := &fakeSplitter{chunks: chunksOf(3)}
	prov := &fakeProvider{failOn: "c1.mp3"}
	o := NewOrchestrator(split, prov, zerolog.Nop())

	_, err := o.Transcribe(context.Background(), task.Task{ID: "t1", Language: task.Korean})
	var te *task.TranscriptionEngineError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want TranscriptionEngineError", err)
	}
	if te.Chunk != 1 {
		t.Errorf("failed chunk = %d, want 1", te.Chunk)
	}
	if len(prov.opts) != 2 {
		t.Errorf("provider called %d times, want 2", len(prov.opts))
	}
	if strings.Join(split.cleaned, ",") != "c0.mp3,c1.mp3,c2.mp3" {
		t.Errorf("cleaned = %v, want every chunk", split.cleaned)
	}
}

func TestOrchestrator_SplitFailure(t *testing.T) {
	decodeErr := &task.MediaDecodeError{Path: "x", Err: errors.New("bad")}
	split := &fakeSplitter{err: decodeErr}
	o := NewOrchestrator(split, &fakeProvider{}, zerolog.Nop())

	_, err := o.Transcribe(context.Background(), task.Task{ID: "t1"})
	if !errors.Is(err, decodeErr) {
		t.Errorf("err = %v, want the decode error", err)
	}
	if split.cleanups != 0 {
		t.Error("Cleanup called without chunks")
	}
}

func TestOrchestrator_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	prov := &fakeProvider{}
	o := NewOrchestrator(&fakeSplitter{chunks: chunksOf(2)}, prov, zerolog.Nop())

	_, err := o.Transcribe(ctx, task.Task{ID: "t1"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if len(prov.opts) != 0 {
		t.Error("provider called after cancellation")
	}
}

func TestVocabularyHint(t *testing.T) {
	seen := map[string]bool{}
	for _, lang := range []task.Language{task.Korean, task.English} {
		for _, ct := range []task.ContentType{task.Sermon, task.PhoneCall, task.Conversation} {
			h := VocabularyHint(lang, ct)
			if h == "" {
				t.Errorf("empty hint for %s/%s", lang, ct)
			}
			if seen[h] {
				t.Errorf("hint for %s/%s duplicates another combination", lang, ct)
			}
			seen[h] = true
		}
	}
	if VocabularyHint("fr", task.Sermon) != VocabularyHint(task.Korean, task.Sermon) {
		t.Error("unknown language should fall back to Korean hints")
	}
}
