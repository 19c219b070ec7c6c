// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package markdown turns LLM output, which often arrives as Markdown, into
// a caption-ready plain text and a safe HTML preview using goldmark.
package markdown

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// preview renders HTML. Raw HTML in the source is dropped because the
// source is model output.
var preview = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// plain parses without the typographer so text nodes keep their original
// characters.
var plain = goldmark.New(
	goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
)

var blankRuns = regexp.MustCompile(`\n{3,}`)

// ToHTML converts Markdown source into HTML.
func ToHTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := preview.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ToPlainText removes Markdown syntax and keeps the readable text. Block
// elements are separated by blank lines, list items by single newlines.
// Link targets are dropped in favour of their labels.
func ToPlainText(source string) string {
	src := []byte(source)
	doc := plain.Parser().Parse(text.NewReader(src))

	var buf bytes.Buffer
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			switch n.Kind() {
			case ast.KindParagraph, ast.KindHeading, ast.KindFencedCodeBlock, ast.KindCodeBlock, ast.KindBlockquote, ast.KindList:
				if n.Parent() != nil && n.Parent().Kind() == ast.KindListItem {
					return ast.WalkContinue, nil
				}
				buf.WriteString("\n\n")
			case ast.KindListItem:
				buf.WriteString("\n")
			}
			return ast.WalkContinue, nil
		}

		switch v := n.(type) {
		case *ast.Text:
			buf.Write(v.Segment.Value(src))
			switch {
			case v.HardLineBreak():
				buf.WriteByte('\n')
			case v.SoftLineBreak():
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(v.Value)
		case *ast.AutoLink:
			buf.Write(v.Label(src))
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				buf.Write(seg.Value(src))
			}
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML, *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	lines := strings.Split(buf.String(), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	out := blankRuns.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(out)
}
