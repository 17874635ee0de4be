// Package speaker enforces canonical speaker labels on multi-speaker
// transcripts (phone calls and meetings).
package speaker

import (
	"strings"

	"github.com/snarg/mallok/internal/task"
)

var sectionHeaders = map[string]bool{
	"본론": true, "결론": true, "기도": true, "요약": true,
	"주요 내용": true, "논의 안건": true, "결정 사항": true, "후속 조치": true,
	"Main Body": true, "Conclusion": true, "Prayer": true, "Summary": true,
	"Key Points": true, "Agenda Items": true, "Decisions": true, "Action Items": true,
}

// turn is one attributed utterance before merging.
type turn struct {
	slot    int
	content string
}

// Attribute rewrites the body of text so every non-empty line carries a
// canonical speaker label, merging consecutive lines from the same speaker.
// Anything from the first recognized section header onward is kept verbatim.
// Content types without speakers pass through unchanged.
func Attribute(text string, ct task.ContentType, lang task.Language) string {
	if ct != task.PhoneCall && ct != task.Conversation {
		return text
	}

	lines := strings.Split(text, "\n")
	bodyEnd := len(lines)
	for i, line := range lines {
		if sectionHeaders[strings.TrimSpace(line)] {
			bodyEnd = i
			break
		}
	}
	body := lines[:bodyEnd]

	s := newScheme(ct == task.PhoneCall, lang)
	explicit := false
	nonEmpty := false
	for _, line := range body {
		if strings.TrimSpace(line) == "" {
			continue
		}
		nonEmpty = true
		if l, ok := ParseLabel(line); ok {
			explicit = true
			s.reserve(l.ID)
		}
	}
	if !nonEmpty {
		return text
	}

	m := newMachine(s, lang, explicit, ct == task.PhoneCall)

	var turns []turn
	paragraphStart := true
	for _, line := range body {
		if strings.TrimSpace(line) == "" {
			paragraphStart = true
			continue
		}
		t := m.step(line, paragraphStart)
		paragraphStart = false
		if t.content == "" {
			continue
		}
		if n := len(turns); n > 0 && turns[n-1].slot == t.slot {
			turns[n-1].content += " " + t.content
			continue
		}
		turns = append(turns, t)
	}

	blocks := make([]string, 0, len(turns))
	for _, t := range turns {
		blocks = append(blocks, s.render(t.slot)+": "+t.content)
	}
	out := strings.Join(blocks, "\n\n")

	if bodyEnd < len(lines) {
		out += "\n\n" + strings.Join(lines[bodyEnd:], "\n")
	}
	return out
}
