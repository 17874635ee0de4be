package correct

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/snarg/mallok/internal/dictionary"
	"github.com/snarg/mallok/internal/metrics"
	"github.com/snarg/mallok/internal/speaker"
	"github.com/snarg/mallok/internal/task"
)

// Options configures a Corrector.
type Options struct {
	CorrectionTimeout time.Duration
	SummaryTimeout    time.Duration
	Retry             RetryPolicy
	Log               zerolog.Logger
}

// Corrector runs the LLM pass followed by dictionary and speaker cleanup.
type Corrector struct {
	engine Engine
	models *ModelCache
	dict   *dictionary.Corrector
	opts   Options
	log    zerolog.Logger
}

func NewCorrector(engine Engine, models *ModelCache, dict *dictionary.Corrector, opts Options) *Corrector {
	if opts.CorrectionTimeout <= 0 {
		opts.CorrectionTimeout = 600 * time.Second
	}
	if opts.SummaryTimeout <= 0 {
		opts.SummaryTimeout = 120 * time.Second
	}
	if opts.Retry.MaxAttempts == 0 {
		sleep, rnd := opts.Retry.Sleep, opts.Retry.Rand
		opts.Retry = DefaultRetryPolicy()
		opts.Retry.Sleep, opts.Retry.Rand = sleep, rnd
	}
	return &Corrector{engine: engine, models: models, dict: dict, opts: opts, log: opts.Log}
}

// Correct returns the final corrected transcript for raw.
func (c *Corrector) Correct(ctx context.Context, taskID, raw string, ct task.ContentType, lang task.Language) (string, error) {
	start := time.Now()
	log := c.log.With().Str("task_id", taskID).Logger()

	model := c.models.Get(ctx)
	prompt := BuildCorrectionPrompt(raw, ct, lang)
	log.Info().
		Str("model", model).
		Str("type", string(ct)).
		Str("lang", string(lang)).
		Int("raw_chars", len([]rune(raw))).
		Msg("correction started")

	out, err := c.generate(ctx, log, model, prompt, c.opts.CorrectionTimeout)
	if err != nil {
		return "", err
	}

	text := c.dict.Apply(out, ct, lang)
	text = speaker.Attribute(text, ct, lang)

	metrics.StageDuration.WithLabelValues("correct").Observe(time.Since(start).Seconds())
	log.Info().
		Int("corrected_chars", len([]rune(text))).
		Dur("elapsed", time.Since(start)).
		Msg("correction complete")
	return text, nil
}

// Summarize produces a short or detailed summary of a sermon text.
func (c *Corrector) Summarize(ctx context.Context, text string, kind SummaryKind) (string, error) {
	model := c.models.Get(ctx)
	log := c.log.With().Str("summary_type", string(kind)).Logger()
	out, err := c.generate(ctx, log, model, BuildSummaryPrompt(text, kind), c.opts.SummaryTimeout)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (c *Corrector) generate(ctx context.Context, log zerolog.Logger, model, prompt string, timeout time.Duration) (string, error) {
	out, err := c.opts.Retry.Do(ctx, log, func(ctx context.Context) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		text, err := c.engine.Generate(ctx, model, prompt)
		if err == nil && strings.TrimSpace(text) == "" {
			err = errors.New("empty response")
		}
		return text, err
	})
	if err != nil {
		var unavailable *task.CorrectionUnavailableError
		if errors.As(err, &unavailable) {
			c.models.Invalidate()
		}
		return "", err
	}
	return out, nil
}
