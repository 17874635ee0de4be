package speaker

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/snarg/mallok/internal/task"
)

var labelPattern = regexp.MustCompile(
	`^(화자|참석자|(?i:speaker|participant))\s*([A-Za-z0-9가-힣]+)\s*(?:[(（]([^)）]*)[)）])?\s*[:：]\s*(.*)$`)

// Label is an explicit speaker marker parsed from the start of a line.
type Label struct {
	Kind    string // marker word as written, e.g. "화자", "Participant"
	ID      string
	Alias   string
	Content string
}

// ParseLabel parses "kind id(alias): content". ok is false for lines without
// a recognized marker.
func ParseLabel(line string) (Label, bool) {
	m := labelPattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return Label{}, false
	}
	return Label{
		Kind:    m[1],
		ID:      m[2],
		Alias:   strings.TrimSpace(m[3]),
		Content: strings.TrimSpace(m[4]),
	}, true
}

// scheme decides how ids map to canonical slots and how slots render.
type scheme struct {
	binary bool
	lang   task.Language

	ordinals map[string]int // ids without a fixed slot, by first appearance
	used     map[int]bool   // numbered: participant numbers already claimed
	aliases  map[int]string
}

func newScheme(binary bool, lang task.Language) *scheme {
	return &scheme{
		binary:   binary,
		lang:     lang,
		ordinals: make(map[string]int),
		used:     make(map[int]bool),
		aliases:  make(map[int]string),
	}
}

// defaultSlot is the label given to text before any label is known.
func (s *scheme) defaultSlot() int {
	if s.binary {
		return 0
	}
	return 1
}

// other returns the alternate slot: A<->B for calls, 1<->2 for meetings.
func (s *scheme) other(slot int) int {
	if s.binary {
		return 1 - slot
	}
	if slot == 1 {
		return 2
	}
	return 1
}

// resolve maps a raw id to a canonical slot and records its alias.
func (s *scheme) resolve(l Label) int {
	slot := s.slotFor(l.ID)
	if l.Alias != "" {
		if _, ok := s.aliases[slot]; !ok {
			s.aliases[slot] = l.Alias
		}
	}
	return slot
}

// reserve claims an explicit participant number before any slot is handed
// out, so named participants never take a number used literally elsewhere.
func (s *scheme) reserve(id string) {
	if s.binary {
		return
	}
	if n, ok := participantNumber(id); ok {
		s.used[n] = true
	}
}

func (s *scheme) slotFor(id string) int {
	upper := strings.ToUpper(id)
	if s.binary {
		if len(upper) == 1 && upper[0] >= 'A' && upper[0] <= 'Z' {
			return int(upper[0]-'A') % 2
		}
		// Numbers and names alternate by first appearance, so "0"/"1" and
		// "1"/"2" both become A/B.
		if slot, ok := s.ordinals[upper]; ok {
			return slot
		}
		slot := len(s.ordinals) % 2
		s.ordinals[upper] = slot
		return slot
	}

	if n, ok := participantNumber(upper); ok {
		s.used[n] = true
		return n
	}
	if slot, ok := s.ordinals[upper]; ok {
		return slot
	}
	slot := 1
	for s.used[slot] {
		slot++
	}
	s.used[slot] = true
	s.ordinals[upper] = slot
	return slot
}

func participantNumber(id string) (int, bool) {
	n, err := strconv.Atoi(id)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// render produces the canonical label text for a slot.
func (s *scheme) render(slot int) string {
	var base string
	switch {
	case s.binary && s.lang == task.English:
		base = "Speaker " + string(rune('A'+slot))
	case s.binary:
		base = "화자 " + string(rune('A'+slot))
	case s.lang == task.English:
		base = fmt.Sprintf("Participant %d", slot)
	default:
		base = fmt.Sprintf("참석자 %d", slot)
	}
	alias, ok := s.aliases[slot]
	if !ok {
		return base
	}
	if s.lang == task.English {
		return base + " (" + alias + ")"
	}
	return base + "(" + alias + ")"
}

var acknowledgments = map[task.Language][]string{
	task.Korean:  {"알겠습니다", "그렇죠", "맞아요", "네", "예"},
	task.English: {"got it", "okay", "right", "sure", "yes"},
}

// isAcknowledgment reports whether content opens with a short acknowledgment
// phrase followed by a non-letter or the end of the line.
func isAcknowledgment(content string, lang task.Language) bool {
	set, ok := acknowledgments[lang]
	if !ok {
		set = acknowledgments[task.Korean]
	}
	lower := strings.ToLower(strings.TrimSpace(content))
	for _, phrase := range set {
		if !strings.HasPrefix(lower, phrase) {
			continue
		}
		rest := lower[len(phrase):]
		if rest == "" {
			return true
		}
		r := []rune(rest)[0]
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func isQuestion(content string) bool {
	c := strings.TrimSpace(content)
	return strings.HasSuffix(c, "?") || strings.HasSuffix(c, "？")
}
