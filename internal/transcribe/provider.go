package transcribe

import "context"

// Provider is the interface for speech-to-text backends.
type Provider interface {
	Transcribe(ctx context.Context, audioPath string, opts Options) (*Response, error)
	Name() string  // "openai", "whisper"
	Model() string // model identifier for records/logs
}

// Options are per-request hints shared by all providers.
type Options struct {
	Language    string
	Prompt      string // domain vocabulary hint
	Temperature float64
}

// Response is the common transcription result from any provider.
type Response struct {
	Text     string
	Language string
	Duration float64 // audio duration in seconds, 0 if unknown
}
