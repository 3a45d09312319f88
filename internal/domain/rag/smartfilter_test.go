package rag

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func chunkWith(docID uuid.UUID, content string, score float64) RetrievedChunk {
	return RetrievedChunk{
		Chunk: DocumentChunk{DocumentID: docID, Content: content, ChunkType: ChunkTypeText},
		Score: score,
	}
}

func TestSmartFilterAndRankDropsShortLowScoreAndSymbolHeavy(t *testing.T) {
	doc := uuid.New()
	results := []RetrievedChunk{
		chunkWith(doc, "too short", 0.9),
		chunkWith(doc, strings.Repeat("a", 40), 0.5),
		chunkWith(doc, strings.Repeat("#", 40), 0.9),
		chunkWith(doc, strings.Repeat("b", 40), 0.95),
	}

	out := SmartFilterAndRank(results, 0.9, 10)

	require.Len(t, out, 1)
	require.Equal(t, strings.Repeat("b", 40), out[0].Chunk.Content)
}

func TestSmartFilterAndRankCapsPerDocument(t *testing.T) {
	doc := uuid.New()
	var results []RetrievedChunk
	for i := 0; i < 5; i++ {
		results = append(results, chunkWith(doc, strings.Repeat("x", 30), 0.9))
	}

	out := SmartFilterAndRank(results, 0.9, 10)

	require.Len(t, out, maxChunksPerDocument)
}

func TestSmartFilterAndRankAppliesLimit(t *testing.T) {
	var results []RetrievedChunk
	for i := 0; i < 5; i++ {
		results = append(results, chunkWith(uuid.New(), strings.Repeat("y", 30), 0.9))
	}

	out := SmartFilterAndRank(results, 0.9, 2)

	require.Len(t, out, 2)
}

func TestQualityScorePrefersMidSizedTextChunks(t *testing.T) {
	short := RetrievedChunk{Score: 0.5, Chunk: DocumentChunk{Content: strings.Repeat("a", 200), ChunkType: ChunkTypeText}}
	long := RetrievedChunk{Score: 0.5, Chunk: DocumentChunk{Content: strings.Repeat("a", 600), ChunkType: ChunkTypeText}}

	require.Greater(t, qualityScore(short), qualityScore(long))
}

func TestSpecialCharRatio(t *testing.T) {
	require.Equal(t, float64(0), specialCharRatio(""))
	require.InDelta(t, 1.0, specialCharRatio("####"), 0.0001)
	require.InDelta(t, 0.0, specialCharRatio("abc 123"), 0.0001)
}

func TestGroupByDocument(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	groups := groupByDocument([]RetrievedChunk{
		chunkWith(a, "one", 1),
		chunkWith(a, "two", 1),
		chunkWith(b, "three", 1),
	})

	require.Len(t, groups[a.String()], 2)
	require.Len(t, groups[b.String()], 1)
}
