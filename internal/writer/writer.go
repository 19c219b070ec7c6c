// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package writer turns an LLM backend into a content provider: it builds
// the voice-conditioned generation prompt, parses the model's list output
// into candidate posts and expands a post into long-form copy.
package writer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"socialpilot/internal/ai"
	"socialpilot/internal/corpus"
)

// Voice describes the brand the posts are written for.
type Voice struct {
	Brand   string // e.g. "Ferta"
	Handle  string // e.g. "@joinferta"
	Persona string // system prompt
}

// DefaultVoice is used when no brand is configured.
var DefaultVoice = Voice{
	Brand:   "the brand",
	Persona: "You are a social media content creator who writes concise, insightful posts in the brand's established voice.",
}

// Writer generates candidate posts with a single LLM backend.
type Writer struct {
	llm   ai.Provider
	voice Voice
}

// New wraps an LLM backend.
func New(llm ai.Provider, voice Voice) *Writer {
	if voice.Persona == "" {
		voice.Persona = DefaultVoice.Persona
	}
	if voice.Brand == "" {
		voice.Brand = DefaultVoice.Brand
	}
	return &Writer{llm: llm, voice: voice}
}

// Name is the provenance recorded on generated items.
func (w *Writer) Name() string { return w.llm.Name() }

// GenerateTexts asks the backend for count posts conditioned on the bundle
// and returns the parsed candidates. The result may hold more or fewer than
// count entries; callers filter and truncate.
func (w *Writer) GenerateTexts(ctx context.Context, count int, bundle corpus.Bundle) ([]string, error) {
	if count <= 0 {
		return nil, nil
	}
	raw, err := w.llm.Generate(ctx, w.voice.Persona, BuildPrompt(count, bundle, w.voice))
	if err != nil {
		return nil, fmt.Errorf("%s generate: %w", w.Name(), err)
	}
	return ParseCandidates(raw), nil
}

// ExpandToLongForm rewrites a post as a longer caption.
func (w *Writer) ExpandToLongForm(ctx context.Context, text string) (string, error) {
	prompt := fmt.Sprintf(`Expand this post into a thoughtful long-form caption (3-5 sentences, 150-200 words):

Post: "%s"

Guidelines:
- Keep the core message but add depth
- Educational, empowering tone
- End with an engaging question or call to action
- No hashtags

Return only the caption text.`, strings.TrimSpace(text))

	out, err := w.llm.Generate(ctx, w.voice.Persona, prompt)
	if err != nil {
		return "", fmt.Errorf("%s expand: %w", w.Name(), err)
	}
	out = trimQuotes(strings.TrimSpace(out))
	if out == "" {
		return "", fmt.Errorf("%s expand: empty response", w.Name())
	}
	return out, nil
}

// BuildPrompt renders the generation request.
func BuildPrompt(count int, b corpus.Bundle, v Voice) string {
	var sb strings.Builder

	who := v.Brand
	if v.Handle != "" {
		who += " (" + v.Handle + ")"
	}
	fmt.Fprintf(&sb, "Generate %d insightful social media post ideas for %s.\n", count, who)

	if len(b.Exemplars) > 0 {
		sb.WriteString("\nBRAND VOICE EXAMPLES (best performing past posts):\n")
		for _, e := range b.Exemplars {
			fmt.Fprintf(&sb, "- %q\n", e.Content)
		}
	}
	if topics := b.Topics(); len(topics) > 0 {
		fmt.Fprintf(&sb, "\nKEY TOPICS TO EXPLORE WITH DEPTH:\n%s\n", strings.Join(topics, ", "))
	}
	if phrases := b.Phrases(); len(phrases) > 0 {
		fmt.Fprintf(&sb, "\nCOMMON PHRASES THAT RESONATE:\n%s\n", strings.Join(phrases, ", "))
	}
	if len(b.EditExamples) > 0 {
		sb.WriteString("\nREVIEWER CORRECTIONS (write like the edited version):\n")
		for _, e := range b.EditExamples {
			fmt.Fprintf(&sb, "- Before: %q\n  After: %q\n", e.Original, e.Edited)
		}
	}
	if b.AverageLength > 0 {
		fmt.Fprintf(&sb, "\nPast posts average %d characters.\n", b.AverageLength)
	}

	sb.WriteString(`
CONTENT REQUIREMENTS:
- Share specific, nuanced insights rather than generic advice
- Explain the "why" behind the advice, not just the "what"
- Address common misconceptions directly
- Sound like a knowledgeable founder, not a generic account

STRICT FORMATTING RULES:
- NO hashtags
- NO emojis
- At most 280 characters per post
- Pure text only

Return ONLY a numbered list of posts, one per line. No explanations.

Format:
1. [Post text]
2. [Post text]
`)
	return sb.String()
}

var enumeration = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s*`)

// ParseCandidates splits list output into posts: one per non-empty line,
// with enumeration markers and surrounding quotes removed.
func ParseCandidates(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = enumeration.ReplaceAllString(line, "")
		line = strings.TrimSpace(trimQuotes(line))
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

func trimQuotes(s string) string {
	return strings.Trim(s, "\"'“”")
}
