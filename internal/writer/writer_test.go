package writer

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"socialpilot/internal/corpus"
)

type fakeLLM struct {
	response   string
	err        error
	lastSystem string
	lastUser   string
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) Generate(_ context.Context, system, user string) (string, error) {
	f.lastSystem, f.lastUser = system, user
	return f.response, f.err
}

func TestParseCandidates(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "numbered with dots",
			raw:  "1. First post\n2. Second post",
			want: []string{"First post", "Second post"},
		},
		{
			name: "numbered with parens and quotes",
			raw:  "1) \"Quoted post\"\n2) 'Single quoted'",
			want: []string{"Quoted post", "Single quoted"},
		},
		{
			name: "bullets and curly quotes",
			raw:  "- “Curly”\n* star\n• dot",
			want: []string{"Curly", "star", "dot"},
		},
		{
			name: "blank lines skipped",
			raw:  "\n\n1. only\n   \n",
			want: []string{"only"},
		},
		{
			name: "numbers inside text kept",
			raw:  "10. 3 things about sleep",
			want: []string{"3 things about sleep"},
		},
		{
			name: "marker only line dropped",
			raw:  "1.\n2. real",
			want: []string{"real"},
		},
		{
			name: "empty",
			raw:  "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseCandidates(tt.raw); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseCandidates() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	b := corpus.Bundle{
		TopTopics:     []corpus.TopicCount{{Topic: "nutrition", Count: 3}, {Topic: "sleep", Count: 2}},
		Exemplars:     []corpus.Exemplar{{Content: "Best post ever", Score: 40}},
		CommonPhrases: []corpus.PhraseCount{{Phrase: "root causes", Count: 4}},
		EditExamples:  []corpus.EditPair{{Original: "too generic", Edited: "specific"}},
		AverageLength: 180,
		TotalItems:    12,
	}
	p := BuildPrompt(7, b, Voice{Brand: "Ferta", Handle: "@joinferta"})

	for _, want := range []string{
		"Generate 7",
		"Ferta (@joinferta)",
		`"Best post ever"`,
		"nutrition, sleep",
		"root causes",
		`Before: "too generic"`,
		`After: "specific"`,
		"average 180 characters",
		"280 characters",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildPromptEmptyBundle(t *testing.T) {
	p := BuildPrompt(3, corpus.Bundle{}, DefaultVoice)
	for _, absent := range []string{"BRAND VOICE EXAMPLES", "KEY TOPICS", "COMMON PHRASES", "REVIEWER CORRECTIONS", "average"} {
		if strings.Contains(p, absent) {
			t.Errorf("empty bundle prompt should not contain %q", absent)
		}
	}
	if !strings.Contains(p, "Generate 3") {
		t.Error("prompt should still request posts")
	}
}

func TestWriterGenerateTexts(t *testing.T) {
	llm := &fakeLLM{response: "1. one\n2. two"}
	w := New(llm, Voice{Brand: "Ferta", Persona: "persona"})

	got, err := w.GenerateTexts(context.Background(), 2, corpus.Bundle{})
	if err != nil {
		t.Fatalf("GenerateTexts: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"one", "two"}) {
		t.Errorf("got %q", got)
	}
	if llm.lastSystem != "persona" {
		t.Errorf("system prompt: got %q", llm.lastSystem)
	}
	if w.Name() != "fake" {
		t.Errorf("Name: got %q", w.Name())
	}
}

func TestWriterGenerateTextsZeroCount(t *testing.T) {
	llm := &fakeLLM{response: "1. one"}
	got, err := New(llm, Voice{}).GenerateTexts(context.Background(), 0, corpus.Bundle{})
	if err != nil || got != nil {
		t.Fatalf("expected nothing, got %q err=%v", got, err)
	}
	if llm.lastUser != "" {
		t.Error("backend should not be called for zero count")
	}
}

func TestWriterGenerateTextsError(t *testing.T) {
	w := New(&fakeLLM{err: errors.New("rate limited")}, Voice{})
	if _, err := w.GenerateTexts(context.Background(), 3, corpus.Bundle{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestWriterExpandToLongForm(t *testing.T) {
	llm := &fakeLLM{response: "  \"A longer caption.\"  "}
	w := New(llm, Voice{})

	got, err := w.ExpandToLongForm(context.Background(), "short post")
	if err != nil {
		t.Fatalf("ExpandToLongForm: %v", err)
	}
	if got != "A longer caption." {
		t.Errorf("got %q", got)
	}
	if !strings.Contains(llm.lastUser, `"short post"`) {
		t.Errorf("prompt should quote the post: %q", llm.lastUser)
	}

	llm.response = "  "
	if _, err := w.ExpandToLongForm(context.Background(), "x"); err == nil {
		t.Error("expected error for empty expansion")
	}
}
