package speaker

import (
	"strings"
	"testing"

	"github.com/snarg/mallok/internal/task"
)

func TestParseLabel(t *testing.T) {
	tests := []struct {
		line      string
		ok        bool
		id, alias string
		content   string
	}{
		{"화자 A: 안녕하세요", true, "A", "", "안녕하세요"},
		{"화자A(김과장)：네", true, "A", "김과장", "네"},
		{"참석자 3: 회의를 시작합니다", true, "3", "", "회의를 시작합니다"},
		{"Speaker B (Dr. Kim): Hello", true, "B", "Dr. Kim", "Hello"},
		{"participant 2: ok", true, "2", "", "ok"},
		{"그냥 문장입니다", false, "", "", ""},
		{"Speakers agree: yes", false, "", "", ""},
		{"화자는 말했다: 그렇다", false, "", "", ""},
	}
	for _, tt := range tests {
		l, ok := ParseLabel(tt.line)
		if ok != tt.ok {
			t.Errorf("ParseLabel(%q) ok = %v, want %v", tt.line, ok, tt.ok)
			continue
		}
		if !ok {
			continue
		}
		if l.ID != tt.id || l.Alias != tt.alias || l.Content != tt.content {
			t.Errorf("ParseLabel(%q) = %+v", tt.line, l)
		}
	}
}

func TestAttribute(t *testing.T) {
	tests := []struct {
		name string
		in   string
		ct   task.ContentType
		lang task.Language
		want string
	}{
		{
			name: "sermon_untouched",
			in:   "오늘 말씀은\n\n본론\n내용",
			ct:   task.Sermon, lang: task.Korean,
			want: "오늘 말씀은\n\n본론\n내용",
		},
		{
			name: "merge_same_speaker",
			in:   "Speaker A: Hello\nHow are you?\nSpeaker A: I am fine",
			ct:   task.PhoneCall, lang: task.English,
			want: "Speaker A: Hello How are you? I am fine",
		},
		{
			name: "question_then_ack_flips",
			in:   "Speaker A: Did you get the report?\nYes, I did.",
			ct:   task.PhoneCall, lang: task.English,
			want: "Speaker A: Did you get the report?\n\nSpeaker B: Yes, I did.",
		},
		{
			name: "ack_flip_without_labels",
			in:   "내일 오실 수 있나요?\n네, 갈게요.\n몇 시에 갈까요",
			ct:   task.PhoneCall, lang: task.Korean,
			want: "화자 A: 내일 오실 수 있나요?\n\n화자 B: 네, 갈게요. 몇 시에 갈까요",
		},
		{
			name: "ack_needs_word_boundary",
			in:   "Speaker A: Is it broken?\nYesterday it worked.",
			ct:   task.PhoneCall, lang: task.English,
			want: "Speaker A: Is it broken? Yesterday it worked.",
		},
		{
			name: "no_labels_alternate_by_paragraph",
			in:   "안건을 보겠습니다\n\n좋습니다\n\n다음으로 넘어가죠",
			ct:   task.Conversation, lang: task.Korean,
			want: "참석자 1: 안건을 보겠습니다\n\n참석자 2: 좋습니다\n\n참석자 1: 다음으로 넘어가죠",
		},
		{
			name: "phonecall_ids_canonicalized",
			in:   "화자 1: 여보세요\n화자 2: 네 말씀하세요\n화자 C: 다시 A",
			ct:   task.PhoneCall, lang: task.Korean,
			want: "화자 A: 여보세요\n\n화자 B: 네 말씀하세요\n\n화자 A: 다시 A",
		},
		{
			name: "phonecall_zero_based_ids_stay_distinct",
			in:   "Speaker 0: Hello, this is Kim.\nSpeaker 1: Hi Kim, it's Lee. How are you?",
			ct:   task.PhoneCall, lang: task.English,
			want: "Speaker A: Hello, this is Kim.\n\nSpeaker B: Hi Kim, it's Lee. How are you?",
		},
		{
			name: "named_participant_skips_literal_number",
			in:   "Participant Kim: Let's start.\nParticipant 1: Agreed.",
			ct:   task.Conversation, lang: task.English,
			want: "Participant 2: Let's start.\n\nParticipant 1: Agreed.",
		},
		{
			name: "named_participants_fill_free_numbers",
			in:   "참석자 2: 시작합니다\n참석자 김: 네\n참석자 이: 좋아요",
			ct:   task.Conversation, lang: task.Korean,
			want: "참석자 2: 시작합니다\n\n참석자 1: 네\n\n참석자 3: 좋아요",
		},
		{
			name: "conversation_letters_numbered",
			in:   "Participant B: first\nParticipant A: second\nParticipant B: third",
			ct:   task.Conversation, lang: task.English,
			want: "Participant 1: first\n\nParticipant 2: second\n\nParticipant 1: third",
		},
		{
			name: "alias_kept_and_reused",
			in:   "화자 A(상담원): 무엇을 도와드릴까요?\n화자 B: 예약 변경이요\n화자 A: 알겠습니다",
			ct:   task.PhoneCall, lang: task.Korean,
			want: "화자 A(상담원): 무엇을 도와드릴까요?\n\n화자 B: 예약 변경이요\n\n화자 A(상담원): 알겠습니다",
		},
		{
			name: "english_alias_spacing",
			in:   "Speaker A (Dr. Lee): Take it twice a day",
			ct:   task.PhoneCall, lang: task.English,
			want: "Speaker A (Dr. Lee): Take it twice a day",
		},
		{
			name: "tail_passed_through",
			in:   "참석자 1: 예산 논의\n참석자 2: 동의합니다\n\n결정 사항\n- 예산 승인\n참석자 1 담당",
			ct:   task.Conversation, lang: task.Korean,
			want: "참석자 1: 예산 논의\n\n참석자 2: 동의합니다\n\n결정 사항\n- 예산 승인\n참석자 1 담당",
		},
		{
			name: "unlabeled_before_first_label_gets_default",
			in:   "hello there\nSpeaker B: hi",
			ct:   task.PhoneCall, lang: task.English,
			want: "Speaker A: hello there\n\nSpeaker B: hi",
		},
		{
			name: "empty_body_unchanged",
			in:   "\n\nSummary\n- nothing",
			ct:   task.PhoneCall, lang: task.English,
			want: "\n\nSummary\n- nothing",
		},
		{
			name: "empty_input",
			in:   "",
			ct:   task.Conversation, lang: task.English,
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Attribute(tt.in, tt.ct, tt.lang)
			if got != tt.want {
				t.Errorf("Attribute =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}

func TestAttribute_EveryBodyLineLabeled(t *testing.T) {
	inputs := []struct {
		in   string
		ct   task.ContentType
		lang task.Language
	}{
		{"one\ntwo?\nokay then\n\nthree\nfour", task.PhoneCall, task.English},
		{"Speaker A: x\ny\n\nz\nSpeaker 7: w\nv", task.PhoneCall, task.English},
		{"가\n\n나\n다\n\n라", task.Conversation, task.Korean},
		{"참석자 김: 시작\n계속\n참석자 이: 응답\n참석자 4: 넷", task.Conversation, task.Korean},
	}
	for _, tc := range inputs {
		out := Attribute(tc.in, tc.ct, tc.lang)
		for _, line := range strings.Split(out, "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			if _, ok := ParseLabel(line); !ok {
				t.Errorf("unlabeled line %q in output of %q", line, tc.in)
			}
		}
		if again := Attribute(out, tc.ct, tc.lang); again != out {
			t.Errorf("Attribute not stable:\nonce  %q\ntwice %q", out, again)
		}
	}
}

func TestMachineStates(t *testing.T) {
	s := newScheme(true, task.English)
	m := newMachine(s, task.English, true, true)
	if m.state != noLabelSeen {
		t.Fatalf("initial state = %s", m.state)
	}
	m.step("Speaker B: Are you there?", true)
	if m.state != awaitingFlip || m.current != 1 {
		t.Fatalf("after question: state=%s current=%d", m.state, m.current)
	}
	tr := m.step("Sure.", false)
	if tr.slot != 0 || m.state != hasLabel {
		t.Errorf("after ack: slot=%d state=%s", tr.slot, m.state)
	}
}
