package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/kitchenops/ragqa/internal/domain/rag"
)

func TestChunkShortTextReturnsOneChunk(t *testing.T) {
	c := NewCharChunker(500, 50, 300)

	out := c.Chunk("a short paragraph")

	require.Len(t, out, 1)
	require.Equal(t, "a short paragraph", out[0].Content)
}

func TestChunkEmptyTextReturnsNil(t *testing.T) {
	c := NewCharChunker(500, 50, 300)
	require.Nil(t, c.Chunk("   "))
}

func TestChunkLongTextSplitsWithOverlapBoundary(t *testing.T) {
	c := NewCharChunker(100, 20, 300)
	para := strings.Repeat("word ", 40) + "\n\n" + strings.Repeat("more ", 40)

	out := c.Chunk(para)

	require.Greater(t, len(out), 1)
	for _, piece := range out {
		require.NotEmpty(t, piece.Content)
	}
}

func TestChunkBlocksCarriesMetadataAndDenseIndex(t *testing.T) {
	c := NewCharChunker(500, 50, 300)
	blocks := []domain.ContentBlock{
		{Kind: domain.BlockKindText, Content: "first block text", Page: 1, SectionName: "Intro"},
		{Kind: domain.BlockKindTable, Content: "a | b\n1 | 2", SheetName: "Sheet1"},
	}

	out := c.ChunkBlocks(blocks)

	require.Len(t, out, 2)
	require.Equal(t, 0, out[0].Index)
	require.Equal(t, 1, out[1].Index)
	require.NotNil(t, out[0].PageNumber)
	require.Equal(t, 1, *out[0].PageNumber)
	require.NotNil(t, out[0].SectionName)
	require.Equal(t, "Intro", *out[0].SectionName)
	require.Equal(t, domain.ChunkTypeTable, out[1].ChunkType)
	require.NotNil(t, out[1].SectionName)
	require.Equal(t, "Sheet1", *out[1].SectionName)
}

func TestChunkBlocksCapsAtMaxChunksPerInput(t *testing.T) {
	c := NewCharChunker(10, 2, 300)
	var blocks []domain.ContentBlock
	for i := 0; i < maxChunksPerInput+20; i++ {
		blocks = append(blocks, domain.ContentBlock{Kind: domain.BlockKindText, Content: "distinct chunk content here"})
	}

	out := c.ChunkBlocks(blocks)

	require.LessOrEqual(t, len(out), maxChunksPerInput)
}

func TestNewCharChunkerAppliesDefaultsOnInvalidInput(t *testing.T) {
	c := NewCharChunker(0, -5, 100)
	require.Equal(t, defaultChunkChars, c.ChunkChars)
	require.Equal(t, defaultOverlapChars, c.OverlapChars)
}

func TestEstimateTokenCount(t *testing.T) {
	require.GreaterOrEqual(t, estimateTokenCount("one two three four"), 4)
}
