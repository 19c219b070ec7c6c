package corpus

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"socialpilot/internal/models"
)

func hist(content string, likes, reposts int) models.HistoricalItem {
	return models.HistoricalItem{
		Content:    content,
		Engagement: models.Engagement{models.SignalLikes: likes, models.SignalReposts: reposts},
	}
}

func TestAnalyzeEmptyCorpus(t *testing.T) {
	a := NewAnalyzer(Config{})
	b := a.Analyze(nil, nil)

	if !b.Empty() {
		t.Error("expected empty bundle")
	}
	if b.AverageLength != 0 {
		t.Errorf("average length: got %d, want 0", b.AverageLength)
	}
	if len(b.TopTopics) != 0 || len(b.Exemplars) != 0 || len(b.CommonPhrases) != 0 {
		t.Errorf("expected empty lists, got %+v", b)
	}
}

func TestTopTopics(t *testing.T) {
	a := NewAnalyzer(Config{Keywords: []string{"alpha", "beta", "gamma", "delta"}})
	items := []models.HistoricalItem{
		hist("Gamma first, then ALPHA", 0, 0),
		hist("beta and alpha", 0, 0),
		hist("delta alone", 0, 0),
		hist("gamma again", 0, 0),
	}

	got := a.Analyze(items, nil).TopTopics
	want := []TopicCount{
		{Topic: "alpha", Count: 2},
		{Topic: "gamma", Count: 2},
		{Topic: "beta", Count: 1},
		{Topic: "delta", Count: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TopTopics:\n got %+v\nwant %+v", got, want)
	}
}

func TestTopTopicsSubstringMatch(t *testing.T) {
	a := NewAnalyzer(Config{})
	tags := a.TagTopics("Naturally, IVF is one approach among many.")
	want := []string{"ivf", "natural", "approach"}
	if !reflect.DeepEqual(tags, want) {
		t.Errorf("TagTopics: got %v, want %v", tags, want)
	}
}

func TestTopTopicsCappedAtTen(t *testing.T) {
	a := NewAnalyzer(Config{})
	items := []models.HistoricalItem{hist(strings.Join(DefaultKeywords, " "), 0, 0)}
	if n := len(a.Analyze(items, nil).TopTopics); n != maxTopics {
		t.Errorf("topics: got %d, want %d", n, maxTopics)
	}
}

func TestExemplars(t *testing.T) {
	a := NewAnalyzer(Config{ExemplarCount: 2})
	items := []models.HistoricalItem{
		hist("low", 1, 0),
		hist("tie-first", 4, 1),
		hist("tie-second", 2, 2),
		hist("top", 0, 10),
	}

	got := a.Analyze(items, nil).Exemplars
	want := []Exemplar{{Content: "top", Score: 20}, {Content: "tie-first", Score: 6}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Exemplars:\n got %+v\nwant %+v", got, want)
	}
}

func TestCommonPhrases(t *testing.T) {
	items := []models.HistoricalItem{
		hist("Root causes matter. Of the body!", 0, 0),
		hist("root causes matter, of the mind", 0, 0),
		hist("Nothing shared here", 0, 0),
	}

	got := commonPhrases(items)
	phrases := make(map[string]int)
	for _, p := range got {
		phrases[p.Phrase] = p.Count
	}

	if phrases["root causes"] != 2 || phrases["root causes matter"] != 2 || phrases["causes matter"] != 2 {
		t.Errorf("expected repeated phrases with count 2, got %v", phrases)
	}
	if _, ok := phrases["of the"]; ok {
		t.Error("all-stopword phrase should be dropped")
	}
	if _, ok := phrases["matter of the"]; !ok {
		t.Error("phrase mixing stopwords and content words should be kept")
	}
	for p, c := range phrases {
		if c < 2 {
			t.Errorf("phrase %q has count %d, want > 1", p, c)
		}
	}
	if got[0].Phrase != "root causes" {
		t.Errorf("first phrase: got %q, want first-seen %q", got[0].Phrase, "root causes")
	}
}

func TestCommonPhrasesUnicode(t *testing.T) {
	items := []models.HistoricalItem{
		hist("Café crème, s'il vous plaît", 0, 0),
		hist("café crème!", 0, 0),
	}
	got := commonPhrases(items)
	if len(got) != 1 || got[0].Phrase != "café crème" {
		t.Errorf("expected unicode phrase kept, got %+v", got)
	}
}

func TestAverageLength(t *testing.T) {
	items := []models.HistoricalItem{hist("abcd", 0, 0), hist("ééé", 0, 0), hist("ab", 0, 0)}
	// (4 + 3 + 2) / 3 = 3, counting characters rather than bytes.
	if got := averageLength(items); got != 3 {
		t.Errorf("averageLength: got %d, want 3", got)
	}
}

func TestEditPairs(t *testing.T) {
	a := NewAnalyzer(Config{EditExamples: 2})
	edits := []models.EditRecord{
		{OriginalContent: "a", EditedContent: "A"},
		{OriginalContent: "b", EditedContent: "B"},
		{OriginalContent: "c", EditedContent: "C"},
	}
	got := a.Analyze(nil, edits).EditExamples
	want := []EditPair{{Original: "a", Edited: "A"}, {Original: "b", Edited: "B"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("EditExamples: got %+v, want %+v", got, want)
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	a := NewAnalyzer(Config{})
	items := []models.HistoricalItem{
		hist("Holistic fertility starts with nutrition and sleep", 10, 2),
		hist("Nutrition and sleep shape hormones", 3, 3),
		hist("Fertility is not only about IVF", 7, 0),
		hist("Holistic fertility takes patience", 7, 0),
	}
	first := a.Analyze(items, nil)
	for i := 0; i < 20; i++ {
		if got := a.Analyze(items, nil); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs:\n got %+v\nwant %+v", i, got, first)
		}
	}
	if first.TotalEngagement != 32 {
		t.Errorf("total engagement: got %d, want 32", first.TotalEngagement)
	}
}

type fakeHistory struct {
	items []models.HistoricalItem
	err   error
}

func (f fakeHistory) List(context.Context, int) ([]models.HistoricalItem, error) {
	return f.items, f.err
}

type fakeEdits struct {
	recs  []models.EditRecord
	limit int
}

func (f *fakeEdits) ListRecent(_ context.Context, limit int) ([]models.EditRecord, error) {
	f.limit = limit
	return f.recs, nil
}

func TestLoad(t *testing.T) {
	a := NewAnalyzer(Config{})
	edits := &fakeEdits{recs: []models.EditRecord{{OriginalContent: "x", EditedContent: "y"}}}

	b, err := a.Load(context.Background(), fakeHistory{items: []models.HistoricalItem{hist("wellness", 1, 0)}}, edits)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if b.TotalItems != 1 || len(b.EditExamples) != 1 {
		t.Errorf("unexpected bundle: %+v", b)
	}
	if edits.limit != defaultEdits {
		t.Errorf("edit limit: got %d, want %d", edits.limit, defaultEdits)
	}

	_, err = a.Load(context.Background(), fakeHistory{err: errors.New("db down")}, nil)
	if err == nil {
		t.Error("expected error when corpus cannot be read")
	}
}
