package rag

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeVectorStore struct {
	bySection map[Section][]RetrievedChunk
	err       error
}

func (f *fakeVectorStore) EnsureCollection(context.Context, int) error { return nil }
func (f *fakeVectorStore) Upsert(context.Context, []DocumentChunk) error { return nil }
func (f *fakeVectorStore) DeleteByDocument(context.Context, uuid.UUID) error { return nil }

func (f *fakeVectorStore) Search(_ context.Context, _ int64, q VectorQuery) ([]RetrievedChunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	if q.Section == nil {
		return nil, nil
	}
	return f.bySection[*q.Section], nil
}

func chunkScored(section Section, score float64) RetrievedChunk {
	return RetrievedChunk{
		Chunk:    DocumentChunk{ID: uuid.New(), DocumentID: uuid.New()},
		Document: Document{Section: section},
		Score:    score,
	}
}

func TestRetrieveTargetSectionHit(t *testing.T) {
	standards := Section("standards")
	store := &fakeVectorStore{bySection: map[Section][]RetrievedChunk{
		standards: {chunkScored(standards, 0.9)},
	}}
	engine := NewRetrievalEngine(store, testLogger())

	out := engine.Retrieve(context.Background(), 1, RetrievalRequest{
		AllowedSections: []Section{standards},
		TargetSection:   &standards,
		Limit:           5,
		ScoreThreshold:  0.5,
	})

	require.Len(t, out, 1)
}

func TestRetrieveDisallowedTargetSectionStrictReturnsNil(t *testing.T) {
	standards := Section("standards")
	restricted := Section("restaurant_ops")
	store := &fakeVectorStore{}
	engine := NewRetrievalEngine(store, testLogger())

	out := engine.Retrieve(context.Background(), 1, RetrievalRequest{
		AllowedSections: []Section{standards},
		TargetSection:   &restricted,
		Strict:          true,
		Limit:           5,
	})

	require.Nil(t, out)
}

func TestRetrieveDisallowedTargetSectionFallsBackWhenNotStrict(t *testing.T) {
	standards := Section("standards")
	restricted := Section("restaurant_ops")
	store := &fakeVectorStore{bySection: map[Section][]RetrievedChunk{
		standards: {chunkScored(standards, 0.9)},
	}}
	engine := NewRetrievalEngine(store, testLogger())

	out := engine.Retrieve(context.Background(), 1, RetrievalRequest{
		AllowedSections: []Section{standards},
		TargetSection:   &restricted,
		Limit:           5,
		ScoreThreshold:  0.5,
	})

	require.Len(t, out, 1)
}

func TestRetrieveFallsBackAcrossAllowedSectionsOnLowQuality(t *testing.T) {
	standards := Section("standards")
	procedures := Section("procedures")
	store := &fakeVectorStore{bySection: map[Section][]RetrievedChunk{
		standards:  {chunkScored(standards, 0.1)},
		procedures: {chunkScored(procedures, 0.2)},
	}}
	engine := NewRetrievalEngine(store, testLogger())

	out := engine.Retrieve(context.Background(), 1, RetrievalRequest{
		AllowedSections: []Section{standards, procedures},
		TargetSection:   &standards,
		Limit:           5,
		ScoreThreshold:  0.9,
	})

	require.Len(t, out, 2)
}

func TestRetrieveNoAllowedSectionsReturnsNil(t *testing.T) {
	engine := NewRetrievalEngine(&fakeVectorStore{}, testLogger())

	out := engine.Retrieve(context.Background(), 1, RetrievalRequest{Limit: 5})

	require.Nil(t, out)
}

func TestRetrieveNilStoreReturnsNil(t *testing.T) {
	engine := NewRetrievalEngine(nil, testLogger())
	standards := Section("standards")

	out := engine.Retrieve(context.Background(), 1, RetrievalRequest{
		AllowedSections: []Section{standards},
		TargetSection:   &standards,
		Limit:           5,
	})

	require.Nil(t, out)
}

func TestMergeDedupKeepsHighestScorePerChunk(t *testing.T) {
	docID := uuid.New()
	chunkID := uuid.New()
	low := RetrievedChunk{Chunk: DocumentChunk{ID: chunkID, DocumentID: docID}, Score: 0.3}
	high := RetrievedChunk{Chunk: DocumentChunk{ID: chunkID, DocumentID: docID}, Score: 0.9}

	out := mergeDedup([]RetrievedChunk{low, high}, 10)

	require.Len(t, out, 1)
	require.Equal(t, 0.9, out[0].Score)
}

func TestTrimSortedAppliesLimit(t *testing.T) {
	a := RetrievedChunk{Score: 0.2}
	b := RetrievedChunk{Score: 0.8}
	out := trimSorted([]RetrievedChunk{a, b}, 1)

	require.Len(t, out, 1)
	require.Equal(t, 0.8, out[0].Score)
}
