package correct

import (
	"embed"
	"fmt"
	"strings"

	"github.com/snarg/mallok/internal/task"
)

//go:embed prompts/*.txt
var promptFS embed.FS

// SummaryKind selects the summary template.
type SummaryKind string

const (
	SummaryShort    SummaryKind = "short"
	SummaryDetailed SummaryKind = "detailed"
)

// ParseSummaryKind maps the form value; anything but "detailed" is short.
func ParseSummaryKind(s string) SummaryKind {
	if s == string(SummaryDetailed) {
		return SummaryDetailed
	}
	return SummaryShort
}

func mustPrompt(name string) string {
	b, err := promptFS.ReadFile("prompts/" + name + ".txt")
	if err != nil {
		panic(fmt.Sprintf("missing prompt %s: %v", name, err))
	}
	return strings.TrimSpace(string(b))
}

// CorrectionTemplate returns the instruction template for a language and
// content type. Unknown languages use the Korean templates.
func CorrectionTemplate(ct task.ContentType, lang task.Language) string {
	if lang != task.English {
		lang = task.Korean
	}
	switch ct {
	case task.PhoneCall, task.Conversation:
	default:
		ct = task.Sermon
	}
	return mustPrompt(string(lang) + "_" + string(ct))
}

// BuildCorrectionPrompt appends the raw transcript under a language-specific
// heading the templates refer to.
func BuildCorrectionPrompt(raw string, ct task.ContentType, lang task.Language) string {
	label := "원본 텍스트"
	if lang == task.English {
		label = "Original Text"
	}
	return CorrectionTemplate(ct, lang) + "\n\n[" + label + "]\n" + raw
}

// BuildSummaryPrompt wraps text with the summary instructions.
func BuildSummaryPrompt(text string, kind SummaryKind) string {
	return mustPrompt("summary_"+string(kind)) + "\n\n설교 내용:\n" + text
}
