package rag

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestIsClarifyingQuestionContinuationLexeme(t *testing.T) {
	require.True(t, IsClarifyingQuestion("а что насчёт завтрака", "меню ужина"))
}

func TestIsClarifyingQuestionBackReferentialPronoun(t *testing.T) {
	require.True(t, IsClarifyingQuestion("расскажи про это подробнее", ""))
}

func TestIsClarifyingQuestionShortInterrogative(t *testing.T) {
	require.True(t, IsClarifyingQuestion("а как?", ""))
}

func TestIsClarifyingQuestionSharedDomainNoun(t *testing.T) {
	require.True(t, IsClarifyingQuestion("расписание процедуры", "какие процедуры сегодня"))
}

func TestIsClarifyingQuestionFreshTopic(t *testing.T) {
	require.False(t, IsClarifyingQuestion("совершенно новый независимый запрос без связи", ""))
}

func TestIsClarifyingQuestionEmptyQuery(t *testing.T) {
	require.False(t, IsClarifyingQuestion("   ", "anything"))
}

func TestCosineSimilarity(t *testing.T) {
	require.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0}, []float32{1, 0}), 0.0001)
	require.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 0.0001)
	require.Equal(t, float64(0), CosineSimilarity(nil, []float32{1}))
	require.Equal(t, float64(0), CosineSimilarity([]float32{1, 2}, []float32{1}))
}

func TestDecideContextStrategySectionChangeForcesNewSearch(t *testing.T) {
	a, b := Section("standards"), Section("procedures")
	strategy := DecideContextStrategy(ContextDecisionInput{
		RequestedSection: &a,
		PriorSection:     &b,
		HasPriorContext:  true,
		MessageCount:     5,
	})
	require.Equal(t, StrategyNewSearch, strategy)
}

func TestDecideContextStrategyNoPriorContext(t *testing.T) {
	strategy := DecideContextStrategy(ContextDecisionInput{HasPriorContext: false, MessageCount: 5})
	require.Equal(t, StrategyNewSearch, strategy)
}

func TestDecideContextStrategyClarifyingQuestionReusesContext(t *testing.T) {
	strategy := DecideContextStrategy(ContextDecisionInput{
		Query:           "а что насчёт завтрака",
		HasPriorContext: true,
		MessageCount:    2,
	})
	require.Equal(t, StrategyContextReuse, strategy)
}

func TestDecideContextStrategySimilarityThresholds(t *testing.T) {
	high := []float32{1, 0}
	mid := []float32{0.5, 1}
	low := []float32{0, 1}

	require.Equal(t, StrategyContextReuse, DecideContextStrategy(ContextDecisionInput{
		Query: "unrelated fresh question", HasPriorContext: true, MessageCount: 2,
		QueryEmbedding: high, PriorEmbedding: high,
	}))
	require.Equal(t, StrategyHybridContext, DecideContextStrategy(ContextDecisionInput{
		Query: "unrelated fresh question", HasPriorContext: true, MessageCount: 2,
		QueryEmbedding: high, PriorEmbedding: mid,
	}))
	require.Equal(t, StrategyNewSearch, DecideContextStrategy(ContextDecisionInput{
		Query: "unrelated fresh question", HasPriorContext: true, MessageCount: 2,
		QueryEmbedding: high, PriorEmbedding: low,
	}))
}

func TestMergeContextSnapshotsDedupesAndCaps(t *testing.T) {
	doc := uuid.New()
	now := time.Now()
	prior := []ContextSnapshot{{DocumentID: doc, Preview: "hello world", Score: 0.5, Timestamp: now.Add(-time.Minute)}}
	fresh := []ContextSnapshot{{DocumentID: doc, Preview: "hello world", Score: 0.9, Timestamp: now}}

	merged := MergeContextSnapshots(prior, fresh)

	require.Len(t, merged, 1)
	require.Equal(t, 0.9, merged[0].Score)
}

func TestMergeContextSnapshotsCapsAtMaxDocumentContext(t *testing.T) {
	var fresh []ContextSnapshot
	for i := 0; i < MaxDocumentContext+10; i++ {
		fresh = append(fresh, ContextSnapshot{DocumentID: uuid.New(), Preview: uuid.NewString(), Score: float64(i)})
	}

	merged := MergeContextSnapshots(nil, fresh)

	require.Len(t, merged, MaxDocumentContext)
}

func TestSnapshotsFromChunks(t *testing.T) {
	doc := uuid.New()
	now := time.Now()
	results := []RetrievedChunk{
		{Chunk: DocumentChunk{DocumentID: doc, Content: "some long content body"}, Document: Document{Section: "standards"}, Score: 0.8},
	}

	snaps := SnapshotsFromChunks("query", results, 10, now)

	require.Len(t, snaps, 1)
	require.Equal(t, doc, snaps[0].DocumentID)
	require.Equal(t, Section("standards"), snaps[0].Section)
	require.Equal(t, now, snaps[0].Timestamp)
}
