package task

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a Task.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
	StatusNotFound   Status = "not_found"
)

// rank orders statuses along the lifecycle. Terminal states share a rank so
// neither can replace the other.
func (s Status) rank() int {
	switch s {
	case StatusQueued:
		return 1
	case StatusProcessing:
		return 2
	case StatusCompleted, StatusError:
		return 3
	default:
		return 0
	}
}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// CanAdvance reports whether moving from s to next is a forward transition.
func (s Status) CanAdvance(next Status) bool {
	if s.Terminal() {
		return false
	}
	return next.rank() > s.rank()
}

// ContentType selects prompts, vocabulary and dictionary tables.
type ContentType string

const (
	Sermon       ContentType = "sermon"
	PhoneCall    ContentType = "phonecall"
	Conversation ContentType = "conversation"
)

// ParseContentType validates a content type tag. Empty input yields Sermon.
func ParseContentType(s string) (ContentType, error) {
	switch ContentType(s) {
	case "":
		return Sermon, nil
	case Sermon, PhoneCall, Conversation:
		return ContentType(s), nil
	}
	return "", fmt.Errorf("invalid transcription_type %q: must be sermon, phonecall or conversation", s)
}

// Label is the human-readable name used in submission messages.
func (c ContentType) Label() string {
	switch c {
	case PhoneCall:
		return "통화 기록"
	case Conversation:
		return "대화/회의 기록"
	default:
		return "설교 녹취"
	}
}

// Language is the source audio language tag.
type Language string

const (
	Korean  Language = "ko"
	English Language = "en"
)

// ParseLanguage validates a language tag. Empty input yields Korean.
func ParseLanguage(s string) (Language, error) {
	switch Language(s) {
	case "":
		return Korean, nil
	case Korean, English:
		return Language(s), nil
	}
	return "", fmt.Errorf("invalid language %q: must be ko or en", s)
}

// Task is one end-to-end transcription and correction job.
type Task struct {
	ID          string
	UserID      string
	ContentType ContentType
	Language    Language
	AudioPath   string // spooled source file, owned by the pipeline once queued
	CreatedAt   time.Time
}

// Record is the durable artifact written once per finished Task.
type Record struct {
	TaskID        string      `json:"task_id"`
	UserID        string      `json:"user_id"`
	Status        Status      `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
	Language      Language    `json:"language,omitempty"`
	RawText       string      `json:"raw_text,omitempty"`
	CorrectedText string      `json:"corrected_text,omitempty"`
	Characters    int         `json:"characters"`
	ContentType   ContentType `json:"transcription_type"`
	Engine        string      `json:"engine,omitempty"`
	Error         string      `json:"error,omitempty"`
}

// HistoryEntry is one row of a caller's task history.
type HistoryEntry struct {
	TaskID         string      `json:"task_id"`
	Status         Status      `json:"status"`
	CreatedAt      time.Time   `json:"created_at"`
	Characters     int         `json:"characters"`
	Engine         string      `json:"engine"`
	SummaryPreview string      `json:"summary_preview"`
	ContentType    ContentType `json:"transcription_type"`
}

// PreviewLength is the number of runes kept in a history preview.
const PreviewLength = 50

// Preview truncates corrected text to PreviewLength runes and appends "...".
func Preview(text string) string {
	r := []rune(text)
	if len(r) > PreviewLength {
		r = r[:PreviewLength]
	}
	return string(r) + "..."
}

// StatusEvent announces a status transition to outside listeners.
type StatusEvent struct {
	TaskID string    `json:"task_id"`
	UserID string    `json:"user_id"`
	Status Status    `json:"status"`
	Error  string    `json:"error,omitempty"`
	At     time.Time `json:"at"`
}
