package rag

import (
	"context"
	"log/slog"
	"sort"
)

const sectionPassFloor = 0.6

// RetrievalRequest bundles the inputs to the retrieval engine (§4.5).
type RetrievalRequest struct {
	Embedding      []float32
	AllowedSections []Section
	TargetSection  *Section
	Strict         bool
	AccessLevel    AccessLevel
	Limit          int
	ScoreThreshold float64
}

// RetrievalEngine turns a query embedding into a ranked, access-scoped
// chunk list (§4.5). Failures in any one pass are logged and treated as
// an empty result for that pass rather than aborting the call.
type RetrievalEngine struct {
	store  VectorStore
	logger *slog.Logger
}

// NewRetrievalEngine constructs the engine over a vector store adapter.
func NewRetrievalEngine(store VectorStore, logger *slog.Logger) *RetrievalEngine {
	return &RetrievalEngine{store: store, logger: logger}
}

// Retrieve runs the section-specific pass, the quality gate, and the
// allowed-section fallback pass, merging and deduplicating the result.
func (e *RetrievalEngine) Retrieve(ctx context.Context, userID int64, req RetrievalRequest) []RetrievedChunk {
	limit := req.Limit
	if limit <= 0 {
		limit = 8
	}
	threshold := req.ScoreThreshold

	target := req.TargetSection
	if target != nil && !containsSection(req.AllowedSections, *target) {
		if req.Strict {
			return nil
		}
		// drop the target and fall through to the allowed-section fallback
		target = nil
	}

	if target != nil {
		sectionResults := e.runPass(ctx, userID, VectorQuery{
			Embedding:      req.Embedding,
			Section:        target,
			AccessLevel:    req.AccessLevel,
			Limit:          limit * 2,
			ScoreThreshold: maxFloat(threshold, sectionPassFloor),
		})
		if hasQualityHit(sectionResults, threshold) {
			return trimSorted(sectionResults, limit)
		}
		if req.Strict {
			return nil
		}
	}

	if len(req.AllowedSections) == 0 {
		return nil
	}

	var fallback []RetrievedChunk
	perSection := limit / len(req.AllowedSections)
	if perSection <= 0 {
		perSection = 1
	}
	for _, sec := range req.AllowedSections {
		sec := sec
		results := e.runPass(ctx, userID, VectorQuery{
			Embedding:      req.Embedding,
			Section:        &sec,
			AccessLevel:    req.AccessLevel,
			Limit:          perSection * 2,
			ScoreThreshold: threshold * sectionPassFloor,
		})
		fallback = append(fallback, results...)
	}
	if len(fallback) == 0 {
		return nil
	}
	return mergeDedup(fallback, limit)
}

func (e *RetrievalEngine) runPass(ctx context.Context, userID int64, query VectorQuery) []RetrievedChunk {
	if e.store == nil {
		return nil
	}
	results, err := e.store.Search(ctx, userID, query)
	if err != nil {
		if e.logger != nil {
			e.logger.Warn("retrieval pass failed, treating as empty", "error", err)
		}
		return nil
	}
	return results
}

// hasQualityHit reports whether at least one chunk clears the §4.5
// quality gate (score > 0.8 × threshold).
func hasQualityHit(results []RetrievedChunk, threshold float64) bool {
	for _, r := range results {
		if r.Score > threshold*0.8 {
			return true
		}
	}
	return false
}

func containsSection(sections []Section, target Section) bool {
	for _, s := range sections {
		if s == target {
			return true
		}
	}
	return false
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func trimSorted(results []RetrievedChunk, limit int) []RetrievedChunk {
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// mergeDedup unions passes, keeping the max score per (document, chunk),
// sorts descending by score, and trims to limit (§4.5 step 5).
func mergeDedup(results []RetrievedChunk, limit int) []RetrievedChunk {
	best := make(map[string]RetrievedChunk)
	order := make([]string, 0, len(results))
	for _, r := range results {
		key := r.Chunk.DocumentID.String() + ":" + r.Chunk.ID.String()
		existing, ok := best[key]
		if !ok {
			order = append(order, key)
			best[key] = r
			continue
		}
		if r.Score > existing.Score {
			best[key] = r
		}
	}
	out := make([]RetrievedChunk, 0, len(order))
	for _, key := range order {
		out = append(out, best[key])
	}
	return trimSorted(out, limit)
}
