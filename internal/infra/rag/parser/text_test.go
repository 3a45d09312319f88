package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/kitchenops/ragqa/internal/domain/rag"
)

func TestPlainTextExtractorReturnsOneBlock(t *testing.T) {
	out, err := PlainTextExtractor{}.Extract(context.Background(), "notes.txt", []byte("hello world"))

	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "hello world", out[0].Content)
	require.Equal(t, domain.BlockKindText, out[0].Kind)
}

func TestMarkdownExtractorSplitsByHeading(t *testing.T) {
	md := "# Intro\nThis is the intro paragraph.\n\n## Details\nMore detail text here.\n"

	out, err := MarkdownExtractor{}.Extract(context.Background(), "doc.md", []byte(md))

	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, "Intro", out[0].SectionName)
	require.Contains(t, out[0].Content, "intro paragraph")
	require.Equal(t, "Details", out[1].SectionName)
	require.Contains(t, out[1].Content, "More detail text")
}

func TestMarkdownExtractorFallsBackOnNoHeadings(t *testing.T) {
	md := "just a plain line with no headings"

	out, err := MarkdownExtractor{}.Extract(context.Background(), "doc.md", []byte(md))

	require.NoError(t, err)
	require.Len(t, out, 1)
}

func TestCSVExtractorRendersHeaderAndRows(t *testing.T) {
	csv := "name,qty\nflour,10\nsugar,5\n"

	out, err := CSVExtractor{}.Extract(context.Background(), "items.csv", []byte(csv))

	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, domain.BlockKindTable, out[0].Kind)
	require.Contains(t, out[0].Content, "name | qty")
	require.Contains(t, out[0].Content, "name: flour")
	require.Contains(t, out[0].Content, "qty: 10")
}

func TestCSVExtractorEmptyInput(t *testing.T) {
	out, err := CSVExtractor{}.Extract(context.Background(), "empty.csv", []byte(""))

	require.NoError(t, err)
	require.Nil(t, out)
}
