package parser

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	domain "github.com/kitchenops/ragqa/internal/domain/rag"
)

// PlainTextExtractor decodes a blob as UTF-8 text, one block for the
// whole document (§4.1 direct decoding). No encoding autodetection is
// done: the bytes are taken as UTF-8 as they are. RTF is treated as plain text
// with its control words left in place; a richer RTF de-tokenizer is
// not worth the dependency for this corpus.
type PlainTextExtractor struct{}

func (PlainTextExtractor) Extract(_ context.Context, _ string, data []byte) ([]domain.ContentBlock, error) {
	return []domain.ContentBlock{{Kind: domain.BlockKindText, Content: string(data)}}, nil
}

// MarkdownExtractor splits a Markdown document into one block per
// heading: every heading, of any level, starts a new block holding the
// content up to the next heading. It uses goldmark's AST rather than
// regex so nested structure (lists, code fences) survives intact.
type MarkdownExtractor struct{}

func (MarkdownExtractor) Extract(_ context.Context, _ string, data []byte) ([]domain.ContentBlock, error) {
	md := goldmark.New()
	reader := text.NewReader(data)
	doc := md.Parser().Parse(reader)

	var blocks []domain.ContentBlock
	var current strings.Builder
	var heading string
	subIndex := 0

	flush := func() {
		if current.Len() == 0 {
			return
		}
		blocks = append(blocks, domain.ContentBlock{
			Kind:        domain.BlockKindText,
			Content:     current.String(),
			SectionName: heading,
			SubIndex:    subIndex,
		})
		subIndex++
		current.Reset()
	}

	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			flush()
			heading = inlineText(node, data)
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph, *ast.TextBlock:
			current.WriteString(inlineText(node, data))
			current.WriteString(" ")
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock:
			for i := 0; i < node.Lines().Len(); i++ {
				seg := node.Lines().At(i)
				current.Write(seg.Value(data))
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	flush()
	if len(blocks) == 0 {
		return []domain.ContentBlock{{Kind: domain.BlockKindText, Content: string(data)}}, nil
	}
	return blocks, nil
}

// inlineText concatenates the literal text of a node's inline
// descendants (ast.Text / ast.String leaves), skipping markup nodes
// like emphasis/links themselves.
func inlineText(n ast.Node, source []byte) string {
	var b strings.Builder
	var walk func(ast.Node)
	walk = func(node ast.Node) {
		switch v := node.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(source))
			if v.SoftLineBreak() || v.HardLineBreak() {
				b.WriteString(" ")
			}
		case *ast.String:
			b.Write(v.Value)
		}
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

// CSVExtractor emits a single structured text block: a header line (the
// first row is always taken as the header, whatever its cells look like)
// followed by the remaining rows rendered as "col: value" pairs, mirroring the OOXML
// header-then-rows convention (§4.1).
type CSVExtractor struct{}

func (CSVExtractor) Extract(_ context.Context, _ string, data []byte) ([]domain.ContentBlock, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv parse: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	header := records[0]
	var b strings.Builder
	b.WriteString(strings.Join(header, " | "))
	b.WriteString("\n")
	for _, row := range records[1:] {
		for i, cell := range row {
			if i < len(header) {
				b.WriteString(header[i])
				b.WriteString(": ")
			}
			b.WriteString(cell)
			b.WriteString("  ")
		}
		b.WriteString("\n")
	}
	return []domain.ContentBlock{{Kind: domain.BlockKindTable, Content: b.String()}}, nil
}
