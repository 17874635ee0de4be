// Package transcribe turns task audio into raw text through a
// speech-to-text provider, segmenting oversized inputs first.
package transcribe

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/snarg/mallok/internal/audio"
	"github.com/snarg/mallok/internal/metrics"
	"github.com/snarg/mallok/internal/task"
)

// Splitter divides a source file into transcribable chunks.
type Splitter interface {
	Split(ctx context.Context, path string) ([]audio.Chunk, error)
	Cleanup(chunks []audio.Chunk)
}

// Orchestrator runs chunks through the provider sequentially and joins the
// results in chunk order.
type Orchestrator struct {
	splitter Splitter
	provider Provider
	log      zerolog.Logger
}

func NewOrchestrator(splitter Splitter, provider Provider, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{splitter: splitter, provider: provider, log: log}
}

// Provider returns the configured STT backend.
func (o *Orchestrator) Provider() Provider { return o.provider }

// Transcribe returns the raw transcript for t. Each chunk file is removed as
// soon as its text is in hand; on failure the remaining chunks are removed
// best-effort. The source file is never removed here.
func (o *Orchestrator) Transcribe(ctx context.Context, t task.Task) (string, error) {
	start := time.Now()
	chunks, err := o.splitter.Split(ctx, t.AudioPath)
	if err != nil {
		return "", err
	}

	opts := Options{
		Language: string(t.Language),
		Prompt:   VocabularyHint(t.Language, t.ContentType),
	}

	parts := make([]string, 0, len(chunks))
	for i, c := range chunks {
		if err := ctx.Err(); err != nil {
			o.splitter.Cleanup(chunks[i:])
			return "", &task.TranscriptionEngineError{Chunk: c.Index, Err: err}
		}
		resp, err := o.provider.Transcribe(ctx, c.Path, opts)
		if err != nil {
			o.splitter.Cleanup(chunks[i:])
			return "", &task.TranscriptionEngineError{Chunk: c.Index, Err: err}
		}
		o.splitter.Cleanup(chunks[i : i+1])
		parts = append(parts, strings.TrimSpace(resp.Text))
		o.log.Debug().
			Str("task_id", t.ID).
			Int("chunk", c.Index+1).
			Int("of", len(chunks)).
			Int("chars", len([]rune(resp.Text))).
			Msg("chunk transcribed")
	}

	metrics.ChunksTotal.Add(float64(len(chunks)))
	metrics.StageDuration.WithLabelValues("transcribe").Observe(time.Since(start).Seconds())
	return strings.Join(parts, "\n\n"), nil
}
