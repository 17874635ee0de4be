package dictionary

import (
	"embed"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed tables/*.yaml
var tableFS embed.FS

// Rule is one literal find/replace pair.
type Rule struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// literal is a compiled Rule. When the replacement contains the pattern
// (e.g. "전립선비대" -> "전립선비대증"), offset is the pattern's position inside
// the replacement and occurrences already sitting inside a replacement are
// left alone.
type literal struct {
	from   string
	to     string
	fold   bool
	re     *regexp.Regexp
	offset int
}

// Table is an ordered, immutable list of literal rules.
type Table struct {
	name  string
	rules []literal
}

// Name returns the table file stem.
func (t *Table) Name() string { return t.name }

// Len returns the number of active rules.
func (t *Table) Len() int { return len(t.rules) }

func loadTable(name string, fold bool) (*Table, error) {
	data, err := tableFS.ReadFile("tables/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("read table %s: %w", name, err)
	}
	var rules []Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse table %s: %w", name, err)
	}
	return compileTable(name, rules, fold)
}

func compileTable(name string, rules []Rule, fold bool) (*Table, error) {
	t := &Table{name: name, rules: make([]literal, 0, len(rules))}
	for i, r := range rules {
		if r.From == "" {
			return nil, fmt.Errorf("table %s: rule %d has empty pattern", name, i)
		}
		if r.From == r.To || (fold && strings.EqualFold(r.From, r.To)) {
			continue
		}
		l := literal{from: r.From, to: r.To, fold: fold, offset: -1}
		if fold {
			l.re = regexp.MustCompile("(?i)" + regexp.QuoteMeta(r.From))
			l.offset = strings.Index(strings.ToLower(r.To), strings.ToLower(r.From))
		} else {
			l.offset = strings.Index(r.To, r.From)
		}
		t.rules = append(t.rules, l)
	}
	return t, nil
}

func (t *Table) apply(s string) string {
	for _, l := range t.rules {
		s = l.apply(s)
	}
	return s
}

func (l literal) matches(s string) [][]int {
	if l.re != nil {
		return l.re.FindAllStringIndex(s, -1)
	}
	var idx [][]int
	for start := 0; start <= len(s); {
		i := strings.Index(s[start:], l.from)
		if i < 0 {
			break
		}
		at := start + i
		idx = append(idx, []int{at, at + len(l.from)})
		start = at + len(l.from)
	}
	return idx
}

func (l literal) apply(s string) string {
	idx := l.matches(s)
	if len(idx) == 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	last := 0
	for _, m := range idx {
		if l.insideReplacement(s, m[0]) {
			continue
		}
		b.WriteString(s[last:m[0]])
		b.WriteString(l.to)
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String()
}

func (l literal) insideReplacement(s string, at int) bool {
	if l.offset < 0 {
		return false
	}
	start := at - l.offset
	end := start + len(l.to)
	if start < 0 || end > len(s) {
		return false
	}
	if l.fold {
		return strings.EqualFold(s[start:end], l.to)
	}
	return s[start:end] == l.to
}

// pattern is a regex normalization step.
type pattern struct {
	re   *regexp.Regexp
	repl string
}

func (p pattern) apply(s string) string {
	return p.re.ReplaceAllString(s, p.repl)
}
