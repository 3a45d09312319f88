package parser

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/kitchenops/ragqa/internal/domain/rag"
)

type stubExtractor struct {
	blocks []domain.ContentBlock
	err    error
}

func (s stubExtractor) Extract(context.Context, string, []byte) ([]domain.ContentBlock, error) {
	return s.blocks, s.err
}

func TestParseDispatchesByDeclaredKind(t *testing.T) {
	reg := NewRegistry(map[string]Extractor{
		"txt": stubExtractor{blocks: []domain.ContentBlock{{Kind: domain.BlockKindText, Content: "hello"}}},
	})

	blocks, method, err := reg.Parse(context.Background(), "TXT", "notes.txt", []byte("ignored"))

	require.NoError(t, err)
	require.Equal(t, "txt:declared", method)
	require.Len(t, blocks, 1)
	require.Equal(t, "hello", blocks[0].Content)
}

func TestParseFallsBackToExtensionWhenKindUnknown(t *testing.T) {
	reg := NewRegistry(map[string]Extractor{
		"csv": stubExtractor{blocks: []domain.ContentBlock{{Content: "a,b"}}},
	})

	_, method, err := reg.Parse(context.Background(), "", "data.csv", []byte("a,b"))

	require.NoError(t, err)
	require.Equal(t, "csv:extension", method)
}

func TestParseSniffsPDFMagicBytes(t *testing.T) {
	reg := NewRegistry(map[string]Extractor{
		"pdf": stubExtractor{blocks: []domain.ContentBlock{{Content: "pdf text"}}},
	})

	_, method, err := reg.Parse(context.Background(), "", "unknown", append([]byte("%PDF-1.4"), 0x00))

	require.NoError(t, err)
	require.Equal(t, "pdf:sniffed", method)
}

func TestParseUnsupportedKindReturnsErrorBlock(t *testing.T) {
	reg := NewRegistry(nil)

	blocks, method, err := reg.Parse(context.Background(), "exe", "tool.exe", []byte{0x00})

	require.NoError(t, err)
	require.Equal(t, "unknown", method)
	require.Len(t, blocks, 1)
	require.Equal(t, domain.BlockKindError, blocks[0].Kind)
}

func TestParseExtractorFailureBecomesErrorBlock(t *testing.T) {
	reg := NewRegistry(map[string]Extractor{
		"txt": stubExtractor{err: errors.New("boom")},
	})

	blocks, method, err := reg.Parse(context.Background(), "txt", "notes.txt", []byte("x"))

	require.NoError(t, err)
	require.Equal(t, "txt:declared", method)
	require.Len(t, blocks, 1)
	require.Equal(t, domain.BlockKindError, blocks[0].Kind)
	require.Contains(t, blocks[0].Content, "boom")
}

func TestParseDropsEmptyBlocksAfterCleaning(t *testing.T) {
	reg := NewRegistry(map[string]Extractor{
		"txt": stubExtractor{blocks: []domain.ContentBlock{
			{Kind: domain.BlockKindText, Content: "   \x00  "},
			{Kind: domain.BlockKindText, Content: "kept"},
		}},
	})

	blocks, _, err := reg.Parse(context.Background(), "txt", "notes.txt", []byte("x"))

	require.NoError(t, err)
	require.Len(t, blocks, 1)
	require.Equal(t, "kept", blocks[0].Content)
}

func TestCleanCollapsesRunsOfSpacesAndTabsButKeepsNewlines(t *testing.T) {
	out := clean("hello\x00   world\t\t!\n\n\nend")
	require.Equal(t, "hello world\t!\n\n\nend", out)
}

func TestCleanTruncatesToMaxBlockChars(t *testing.T) {
	out := clean(strings.Repeat("a", maxBlockChars+500))
	require.Len(t, out, maxBlockChars)
}
