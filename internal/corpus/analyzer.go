// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package corpus derives a voice profile from previously published posts:
// recurring topics, the best-performing exemplars, common phrases and the
// typical length. Analysis is a pure function of its input.
package corpus

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"socialpilot/internal/models"
)

// DefaultKeywords is the topic vocabulary used when none is configured.
var DefaultKeywords = []string{
	"fertility", "ivf", "natural", "holistic", "treatment", "health",
	"nutrition", "lifestyle", "hormones", "cycle", "ovulation",
	"conception", "pregnancy", "women", "wellness", "restoration",
	"conventional", "alternative", "approach", "success",
}

const (
	maxTopics       = 10
	maxPhrases      = 15
	minPhraseWords  = 2
	maxPhraseWords  = 4
	defaultExemplar = 5
	defaultEdits    = 5
)

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "to": true, "of": true,
	"and": true, "is": true, "in": true, "for": true, "on": true,
}

// punctuation matches anything that is not a letter, digit, underscore or
// whitespace.
var punctuation = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)

// Config tunes the analyzer. Zero values fall back to defaults.
type Config struct {
	Keywords      []string
	ExemplarCount int
	EditExamples  int
}

// TopicCount is a vocabulary keyword and the number of items mentioning it.
type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// PhraseCount is a recurring n-gram and its corpus-wide frequency.
type PhraseCount struct {
	Phrase string `json:"phrase"`
	Count  int    `json:"count"`
}

// Exemplar is a high-engagement past post.
type Exemplar struct {
	Content string `json:"content"`
	Score   int    `json:"score"`
}

// EditPair is a reviewer correction used as a style signal.
type EditPair struct {
	Original string `json:"original"`
	Edited   string `json:"edited"`
}

// Bundle is the analysis result handed to content providers.
type Bundle struct {
	TopTopics       []TopicCount  `json:"top_topics"`
	Exemplars       []Exemplar    `json:"exemplars"`
	CommonPhrases   []PhraseCount `json:"common_phrases"`
	AverageLength   int           `json:"average_length"`
	EditExamples    []EditPair    `json:"edit_examples"`
	TotalItems      int           `json:"total_items"`
	TotalEngagement int           `json:"total_engagement"`
}

// Topics returns just the topic names, in rank order.
func (b Bundle) Topics() []string {
	out := make([]string, len(b.TopTopics))
	for i, t := range b.TopTopics {
		out[i] = t.Topic
	}
	return out
}

// Phrases returns just the phrase texts, in rank order.
func (b Bundle) Phrases() []string {
	out := make([]string, len(b.CommonPhrases))
	for i, p := range b.CommonPhrases {
		out[i] = p.Phrase
	}
	return out
}

// Empty reports whether the bundle was built from no history at all.
func (b Bundle) Empty() bool {
	return b.TotalItems == 0
}

// HistoryReader lists the historical corpus.
type HistoryReader interface {
	List(ctx context.Context, limit int) ([]models.HistoricalItem, error)
}

// EditReader lists recent reviewer edits.
type EditReader interface {
	ListRecent(ctx context.Context, limit int) ([]models.EditRecord, error)
}

// Analyzer computes Bundles.
type Analyzer struct {
	keywords      []string
	exemplarCount int
	editExamples  int
}

// NewAnalyzer creates an Analyzer. Keywords are lowercased once here.
func NewAnalyzer(cfg Config) *Analyzer {
	kw := cfg.Keywords
	if len(kw) == 0 {
		kw = DefaultKeywords
	}
	lowered := make([]string, 0, len(kw))
	seen := make(map[string]bool, len(kw))
	for _, k := range kw {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		lowered = append(lowered, k)
	}

	a := &Analyzer{keywords: lowered, exemplarCount: cfg.ExemplarCount, editExamples: cfg.EditExamples}
	if a.exemplarCount <= 0 {
		a.exemplarCount = defaultExemplar
	}
	if a.editExamples <= 0 {
		a.editExamples = defaultEdits
	}
	return a
}

// Load reads a snapshot of the corpus and recent edits, then analyzes it.
func (a *Analyzer) Load(ctx context.Context, history HistoryReader, edits EditReader) (Bundle, error) {
	items, err := history.List(ctx, 0)
	if err != nil {
		return Bundle{}, fmt.Errorf("load corpus: %w", err)
	}
	var recs []models.EditRecord
	if edits != nil {
		recs, err = edits.ListRecent(ctx, a.editExamples)
		if err != nil {
			return Bundle{}, fmt.Errorf("load edits: %w", err)
		}
	}
	return a.Analyze(items, recs), nil
}

// Analyze builds a Bundle from items and edits. The same input always
// yields the same output.
func (a *Analyzer) Analyze(items []models.HistoricalItem, edits []models.EditRecord) Bundle {
	b := Bundle{
		TopTopics:     a.topTopics(items),
		Exemplars:     a.exemplars(items),
		CommonPhrases: commonPhrases(items),
		AverageLength: averageLength(items),
		EditExamples:  a.editPairs(edits),
		TotalItems:    len(items),
	}
	for _, it := range items {
		b.TotalEngagement += it.Engagement.Total()
	}
	return b
}

// TagTopics returns the vocabulary keywords contained in text, in
// vocabulary order.
func (a *Analyzer) TagTopics(text string) []string {
	lower := strings.ToLower(text)
	var tags []string
	for _, k := range a.keywords {
		if strings.Contains(lower, k) {
			tags = append(tags, k)
		}
	}
	return tags
}

func (a *Analyzer) topTopics(items []models.HistoricalItem) []TopicCount {
	counts := make(map[string]int)
	var order []string
	for _, it := range items {
		for _, k := range a.TagTopics(it.Content) {
			if counts[k] == 0 {
				order = append(order, k)
			}
			counts[k]++
		}
	}
	out := make([]TopicCount, len(order))
	for i, k := range order {
		out[i] = TopicCount{Topic: k, Count: counts[k]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > maxTopics {
		out = out[:maxTopics]
	}
	return out
}

func (a *Analyzer) exemplars(items []models.HistoricalItem) []Exemplar {
	out := make([]Exemplar, len(items))
	for i, it := range items {
		out[i] = Exemplar{Content: it.Content, Score: it.Engagement.Score()}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > a.exemplarCount {
		out = out[:a.exemplarCount]
	}
	return out
}

func commonPhrases(items []models.HistoricalItem) []PhraseCount {
	counts := make(map[string]int)
	var order []string
	for _, it := range items {
		words := strings.Fields(punctuation.ReplaceAllString(strings.ToLower(it.Content), ""))
		for n := minPhraseWords; n <= maxPhraseWords; n++ {
			for i := 0; i+n <= len(words); i++ {
				gram := words[i : i+n]
				if allStopwords(gram) {
					continue
				}
				phrase := strings.Join(gram, " ")
				if counts[phrase] == 0 {
					order = append(order, phrase)
				}
				counts[phrase]++
			}
		}
	}

	out := make([]PhraseCount, 0, len(order))
	for _, p := range order {
		if counts[p] > 1 {
			out = append(out, PhraseCount{Phrase: p, Count: counts[p]})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > maxPhrases {
		out = out[:maxPhrases]
	}
	return out
}

func allStopwords(words []string) bool {
	for _, w := range words {
		if !stopwords[w] {
			return false
		}
	}
	return true
}

func averageLength(items []models.HistoricalItem) int {
	if len(items) == 0 {
		return 0
	}
	total := 0
	for _, it := range items {
		total += models.CharCount(it.Content)
	}
	return total / len(items)
}

func (a *Analyzer) editPairs(edits []models.EditRecord) []EditPair {
	n := min(len(edits), a.editExamples)
	out := make([]EditPair, 0, n)
	for _, e := range edits[:n] {
		out = append(out, EditPair{Original: e.OriginalContent, Edited: e.EditedContent})
	}
	return out
}
