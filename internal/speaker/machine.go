package speaker

import (
	"strings"

	"github.com/snarg/mallok/internal/task"
)

type state int

const (
	noLabelSeen state = iota
	hasLabel
	awaitingFlip // previous line was a question; an acknowledgment flips the speaker
)

func (s state) String() string {
	switch s {
	case noLabelSeen:
		return "no_label_seen"
	case hasLabel:
		return "has_label"
	case awaitingFlip:
		return "awaiting_flip"
	}
	return "unknown"
}

// machine assigns a slot to each non-empty body line.
//
// With explicit labels somewhere in the body, unlabeled lines inherit the
// current speaker. Without any, each new paragraph alternates speakers. In
// both modes, on phone calls, an acknowledgment right after a question hands
// the turn to the other party; that rule is checked first.
type machine struct {
	scheme   *scheme
	lang     task.Language
	explicit bool
	flips    bool

	state   state
	current int
}

func newMachine(s *scheme, lang task.Language, explicit, flips bool) *machine {
	return &machine{scheme: s, lang: lang, explicit: explicit, flips: flips}
}

func (m *machine) step(line string, paragraphStart bool) turn {
	var content string
	if l, ok := ParseLabel(line); ok {
		m.current = m.scheme.resolve(l)
		content = l.Content
	} else {
		content = strings.TrimSpace(line)
		switch {
		case m.state == noLabelSeen:
			m.current = m.scheme.defaultSlot()
		case m.state == awaitingFlip && isAcknowledgment(content, m.lang):
			m.current = m.scheme.other(m.current)
		case !m.explicit && paragraphStart:
			m.current = m.scheme.other(m.current)
		}
	}

	if m.flips && isQuestion(content) {
		m.state = awaitingFlip
	} else {
		m.state = hasLabel
	}
	return turn{slot: m.current, content: content}
}
