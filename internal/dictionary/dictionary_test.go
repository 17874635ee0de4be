package dictionary

import (
	"strings"
	"testing"

	"github.com/snarg/mallok/internal/task"
)

func mustLoad(t *testing.T) *Corrector {
	t.Helper()
	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return c
}

func TestLoad_TablesPopulated(t *testing.T) {
	c := mustLoad(t)
	for name, n := range c.Sizes() {
		if n == 0 {
			t.Errorf("table %s has no rules", name)
		}
	}
	if len(c.Sizes()) != 5 {
		t.Errorf("Sizes() has %d tables, want 5", len(c.Sizes()))
	}
}

func TestApply(t *testing.T) {
	c := mustLoad(t)
	tests := []struct {
		name string
		in   string
		ct   task.ContentType
		lang task.Language
		want string
	}{
		{
			name: "sermon_vocabulary",
			in:   "이삼칠 렘넌트와 칠망대",
			ct:   task.Sermon, lang: task.Korean,
			want: "237 렘넌트와 7망대",
		},
		{
			name: "sermon_spaced_numbers",
			in:   "이 삼 칠 나라와 칠 칠 칠",
			ct:   task.Sermon, lang: task.Korean,
			want: "237 나라와 777",
		},
		{
			name: "sermon_verse_reference",
			in:   "요한복음3장16절 말씀",
			ct:   task.Sermon, lang: task.Korean,
			want: "요한복음 3장 16절 말씀",
		},
		{
			name: "longer_pattern_wins",
			in:   "드로우게교회에서 마틴루터킹",
			ct:   task.Sermon, lang: task.Korean,
			want: "드로아교회에서 마틴 루터 킹",
		},
		{
			name: "leading_fillers_removed",
			in:   "예, 오늘 말씀은\n아 그렇습니다\n아버지께서",
			ct:   task.Sermon, lang: task.Korean,
			want: "오늘 말씀은\n그렇습니다\n아버지께서",
		},
		{
			name: "stacked_fillers_removed",
			in:   "예, 아, 네, 시작하겠습니다",
			ct:   task.Sermon, lang: task.Korean,
			want: "시작하겠습니다",
		},
		{
			name: "inline_filler_after_sentence",
			in:   "감사합니다. 네, 다음으로",
			ct:   task.PhoneCall, lang: task.Korean,
			want: "감사합니다. 다음으로",
		},
		{
			name: "ten_stacked_fillers_one_pass",
			in:   strings.Repeat("네, ", 10) + "감사합니다",
			ct:   task.Sermon, lang: task.Korean,
			want: "감사합니다",
		},
		{
			name: "answer_after_question_kept",
			in:   "내일 오실 수 있나요?\n네, 갈게요.",
			ct:   task.PhoneCall, lang: task.Korean,
			want: "내일 오실 수 있나요?\n네, 갈게요.",
		},
		{
			name: "answer_kept_fillers_after_it_dropped",
			in:   "오실래요?\n\n예, 아, 갈게요",
			ct:   task.Conversation, lang: task.Korean,
			want: "오실래요?\n\n예, 갈게요",
		},
		{
			name: "sermon_strips_answer_after_question",
			in:   "있습니까?\n네, 있습니다",
			ct:   task.Sermon, lang: task.Korean,
			want: "있습니까?\n있습니다",
		},
		{
			name: "inline_filler_does_not_join_lines",
			in:   "감사합니다.\n네, 다음으로",
			ct:   task.PhoneCall, lang: task.Korean,
			want: "감사합니다.\n다음으로",
		},
		{
			name: "whitespace_blank_runs_collapsed",
			in:   "첫째\n \n\t\n \n둘째",
			ct:   task.Conversation, lang: task.Korean,
			want: "첫째\n\n둘째",
		},
		{
			name: "blank_runs_collapsed",
			in:   "첫째\n\n\n\n둘째",
			ct:   task.Conversation, lang: task.Korean,
			want: "첫째\n\n둘째",
		},
		{
			name: "phonecall_uses_general_table_only",
			in:   "할라고 했는데 이삼칠",
			ct:   task.PhoneCall, lang: task.Korean,
			want: "하려고 했는데 이삼칠",
		},
		{
			name: "medical_growth_rule_guarded",
			in:   "전립선비대 진단, 전립선비대증 치료",
			ct:   task.PhoneCall, lang: task.Korean,
			want: "전립선비대증 진단, 전립선비대증 치료",
		},
		{
			name: "english_tables_and_fillers",
			in:   "Um, I gonna take ibuprofin\n\n\n\nSo we should of",
			ct:   task.PhoneCall, lang: task.English,
			want: "I going to take ibuprofen\n\nwe should have",
		},
		{
			name: "english_case_insensitive",
			in:   "I'm GONNA check the Perscription",
			ct:   task.Conversation, lang: task.English,
			want: "I'm going to check the prescription",
		},
		{
			name: "english_filler_needs_separator",
			in:   "Something happened\nLikewise here",
			ct:   task.Sermon, lang: task.English,
			want: "Something happened\nLikewise here",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Apply(tt.in, tt.ct, tt.lang)
			if got != tt.want {
				t.Errorf("Apply = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestApply_Idempotent(t *testing.T) {
	c := mustLoad(t)
	samples := []string{
		"예, 이삼칠 나라와 오 천 종족\n\n\n\n아, 요한복음 3 장 16 절\n그 레녹스가스토 환자",
		"네, 할라고 했는데요. 예, 그러니까 전립선비대 때문에\n\n\n응 알겠습니다",
		"Um, so, like I said alot of seisure cases\n\n\n\nYou know the lennox gastaut thing",
		"드로우게 드로우게교회 드로아교회 마틴루터 마틴 루터",
		"",
		"\n\n\n\n",
		strings.Repeat("네, ", 10) + "감사합니다",
		strings.Repeat("Um, ", 12) + "okay",
		"있나요?\n네, 네, 갈게요\n\n \n \n끝",
		"a\n \n \n \nb",
	}
	combos := []struct {
		ct   task.ContentType
		lang task.Language
	}{
		{task.Sermon, task.Korean},
		{task.PhoneCall, task.Korean},
		{task.Conversation, task.Korean},
		{task.Sermon, task.English},
		{task.PhoneCall, task.English},
	}
	for _, combo := range combos {
		for i, s := range samples {
			once := c.Apply(s, combo.ct, combo.lang)
			twice := c.Apply(once, combo.ct, combo.lang)
			if once != twice {
				t.Errorf("%s/%s sample %d not idempotent:\nonce  %q\ntwice %q", combo.ct, combo.lang, i, once, twice)
			}
		}
	}
}

func TestApply_NoLeadingFillersRemain(t *testing.T) {
	c := mustLoad(t)
	in := "예, 시작\n어, 어, 계속\n그, 끝\n\n\n\n자~ 기도합시다"
	out := c.Apply(in, task.Sermon, task.Korean)
	for _, line := range strings.Split(out, "\n") {
		for _, f := range []string{"예,", "어,", "그,", "자~"} {
			if strings.HasPrefix(line, f) {
				t.Errorf("line %q still starts with filler %q", line, f)
			}
		}
	}
	if strings.Contains(out, "\n\n\n") {
		t.Errorf("output has 3+ consecutive newlines: %q", out)
	}
}

func TestCompileTable(t *testing.T) {
	t.Run("identity_rules_dropped", func(t *testing.T) {
		tbl, err := compileTable("x", []Rule{{"망대", "망대"}, {"a", "b"}}, false)
		if err != nil {
			t.Fatal(err)
		}
		if tbl.Len() != 1 {
			t.Errorf("Len = %d, want 1", tbl.Len())
		}
	})
	t.Run("fold_identity_dropped", func(t *testing.T) {
		tbl, err := compileTable("x", []Rule{{"stroke", "Stroke"}}, true)
		if err != nil {
			t.Fatal(err)
		}
		if tbl.Len() != 0 {
			t.Errorf("Len = %d, want 0", tbl.Len())
		}
	})
	t.Run("empty_pattern_rejected", func(t *testing.T) {
		if _, err := compileTable("x", []Rule{{"", "b"}}, false); err == nil {
			t.Error("expected error for empty pattern")
		}
	})
}

func TestPass_FillerRunsCompleteInOnePass(t *testing.T) {
	c := mustLoad(t)
	tests := []struct {
		name string
		in   string
		lang task.Language
		want string
	}{
		{"korean", strings.Repeat("네, ", 20) + "감사합니다", task.Korean, "감사합니다"},
		{"english", strings.Repeat("Um, ", 20) + "thanks", task.English, "thanks"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.pass(tt.in, task.Sermon, tt.lang); got != tt.want {
				t.Errorf("pass = %q, want %q", got, tt.want)
			}
		})
	}
}
