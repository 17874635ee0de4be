// Package dictionary applies deterministic find/replace and regex
// normalization to corrected transcripts.
package dictionary

import (
	"regexp"
	"strings"

	"github.com/snarg/mallok/internal/task"
)

// maxPasses bounds the fixed-point loop in Apply. Filler and blank-line rules
// complete in one pass; table rules settle in two or three.
const maxPasses = 8

var (
	sermonNumbers = []pattern{
		{regexp.MustCompile(`이\s*삼\s*칠`), "237"},
		{regexp.MustCompile(`이백\s*삼십\s*칠`), "237"},
		{regexp.MustCompile(`오\s*천`), "5000"},
		{regexp.MustCompile(`칠\s*망대`), "7망대"},
		{regexp.MustCompile(`칠\s*여정`), "7여정"},
		{regexp.MustCompile(`칠\s*이정표`), "7이정표"},
		{regexp.MustCompile(`칠\s*칠\s*칠`), "777"},
	}
	verseReference = pattern{regexp.MustCompile(`([가-힣]+)\s*(\d+)\s*장\s*(\d+)\s*절`), "${1} ${2}장 ${3}절"}

	koLeadingFiller = regexp.MustCompile(`^(?:(?:예|아|자|어|응|네|에|그)[,.~ \t]+)+`)
	koAnswer        = regexp.MustCompile(`^(?:네|예)[,.~ \t]+`)
	koInlineFiller  = pattern{regexp.MustCompile(`([.?!])[ \t]*(?:(?:예|아|자|어|응|네)[,~][ \t]*)+`), "${1} "}
	enLeadingFiller = regexp.MustCompile(`(?i)^(?:(?:Um|Uh|So|Like|You know|I mean)[,. \t]+)+`)
	blankRuns       = pattern{regexp.MustCompile(`\n(?:[ \t]*\n){2,}`), "\n\n"}
)

// Corrector holds the rule tables. It is safe for concurrent use; tables are
// never mutated after Load.
type Corrector struct {
	koSermon  *Table
	koGeneral *Table
	koMedical *Table
	enCommon  *Table
	enMedical *Table
}

// Load parses the embedded rule tables.
func Load() (*Corrector, error) {
	c := &Corrector{}
	for _, tbl := range []struct {
		name string
		fold bool
		dst  **Table
	}{
		{"ko_sermon", false, &c.koSermon},
		{"ko_general", false, &c.koGeneral},
		{"ko_medical", false, &c.koMedical},
		{"en_common", true, &c.enCommon},
		{"en_medical", true, &c.enMedical},
	} {
		t, err := loadTable(tbl.name, tbl.fold)
		if err != nil {
			return nil, err
		}
		*tbl.dst = t
	}
	return c, nil
}

// Apply runs the table sequence for the language and content type, repeating
// until the text stops changing so the result is a fixed point.
func (c *Corrector) Apply(text string, ct task.ContentType, lang task.Language) string {
	out := text
	for i := 0; i < maxPasses; i++ {
		next := c.pass(out, ct, lang)
		if next == out {
			break
		}
		out = next
	}
	return out
}

func (c *Corrector) pass(s string, ct task.ContentType, lang task.Language) string {
	if lang == task.English {
		s = c.enCommon.apply(s)
		s = c.enMedical.apply(s)
		s = stripLeadingFillers(s, enLeadingFiller, nil)
		return blankRuns.apply(s)
	}

	if ct == task.Sermon {
		s = c.koSermon.apply(s)
		for _, p := range sermonNumbers {
			s = p.apply(s)
		}
		s = verseReference.apply(s)
	} else {
		s = c.koGeneral.apply(s)
	}
	s = c.koMedical.apply(s)
	s = koInlineFiller.apply(s)
	if ct == task.Sermon {
		s = stripLeadingFillers(s, koLeadingFiller, nil)
	} else {
		s = stripLeadingFillers(s, koLeadingFiller, koAnswer)
	}
	return blankRuns.apply(s)
}

// stripLeadingFillers removes the filler run at the start of every line. If
// answer is set, a line following a question keeps a leading answer token
// matched by it; on calls that token is the reply, not a filler.
func stripLeadingFillers(s string, filler, answer *regexp.Regexp) string {
	lines := strings.Split(s, "\n")
	afterQuestion := false
	for i, line := range lines {
		keep := ""
		if answer != nil && afterQuestion {
			keep = answer.FindString(line)
		}
		line = keep + filler.ReplaceAllString(line[len(keep):], "")
		lines[i] = line
		if t := strings.TrimSpace(line); t != "" {
			afterQuestion = strings.HasSuffix(t, "?") || strings.HasSuffix(t, "？")
		}
	}
	return strings.Join(lines, "\n")
}

// Sizes reports the active rule count per table.
func (c *Corrector) Sizes() map[string]int {
	return map[string]int{
		c.koSermon.Name():  c.koSermon.Len(),
		c.koGeneral.Name(): c.koGeneral.Len(),
		c.koMedical.Name(): c.koMedical.Len(),
		c.enCommon.Name():  c.enCommon.Len(),
		c.enMedical.Name(): c.enMedical.Len(),
	}
}
