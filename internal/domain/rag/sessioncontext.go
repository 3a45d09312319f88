package rag

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"time"
)

// continuationLexemes are lexical starters that mark a turn as a
// continuation of the prior one rather than a fresh topic.
// Grounded on session_context_service.py::_is_clarifying_question.
var continuationLexemes = []string{
	"а что", "а если", "что насчёт", "уточни", "а как насчёт", "а про",
}

// backReferentialPronouns indicate the query refers back to the prior turn.
var backReferentialPronouns = []string{"это", "то", "данный", "данное", "эту", "этот"}

// domainStopwords are excluded when comparing shared domain nouns.
var domainStopwords = map[string]bool{
	"как": true, "что": true, "для": true, "при": true, "это": true,
	"какой": true, "какая": true, "какие": true, "нужно": true, "можно": true,
}

// continuationPatterns are regex pairs matching a small set of domain
// continuation phrasings.
var continuationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^а\s+(для|про|на|в)\s`),
	regexp.MustCompile(`(?i)^(и|также)\s+(для|про)\s`),
}

const (
	contextReuseThreshold  = 0.6
	hybridContextThreshold = 0.3
)

// IsClarifyingQuestion applies the five lexical/semantic rules of §4.6:
// any one triggers a positive verdict.
func IsClarifyingQuestion(query, prior string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return false
	}

	for _, lex := range continuationLexemes {
		if strings.HasPrefix(q, lex) {
			return true
		}
	}
	for _, pron := range backReferentialPronouns {
		if strings.Contains(q, pron) {
			return true
		}
	}
	tokens := strings.Fields(q)
	if len(tokens) <= 3 && containsInterrogative(q) {
		return true
	}
	if prior != "" && sharesDomainNoun(q, strings.ToLower(prior)) {
		return true
	}
	for _, pattern := range continuationPatterns {
		if pattern.MatchString(q) {
			return true
		}
	}
	return false
}

func containsInterrogative(q string) bool {
	interrogatives := []string{"как", "что", "где", "когда", "почему", "зачем", "кто", "сколько"}
	for _, w := range interrogatives {
		if strings.Contains(q, w) {
			return true
		}
	}
	return strings.Contains(q, "?")
}

func sharesDomainNoun(a, b string) bool {
	bTokens := make(map[string]bool)
	for _, t := range strings.Fields(b) {
		if len([]rune(t)) > 3 && !domainStopwords[t] {
			bTokens[t] = true
		}
	}
	for _, t := range strings.Fields(a) {
		if len([]rune(t)) > 3 && !domainStopwords[t] && bTokens[t] {
			return true
		}
	}
	return false
}

// CosineSimilarity computes the cosine similarity between two equal
// length embeddings, returning 0 for degenerate input.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	den := math.Sqrt(magA) * math.Sqrt(magB)
	if den == 0 {
		return 0
	}
	return dot / den
}

// ContextDecisionInput bundles everything the context policy needs.
type ContextDecisionInput struct {
	Query            string
	PriorQuery       string
	RequestedSection *Section
	PriorSection     *Section
	MessageCount     int
	HasPriorContext  bool
	QueryEmbedding   []float32
	PriorEmbedding   []float32
}

// DecideContextStrategy implements the §4.6 decision procedure.
func DecideContextStrategy(in ContextDecisionInput) ContextStrategy {
	if in.RequestedSection != nil && (in.PriorSection == nil || *in.RequestedSection != *in.PriorSection) {
		return StrategyNewSearch
	}
	if !in.HasPriorContext || in.MessageCount < 2 {
		return StrategyNewSearch
	}
	if IsClarifyingQuestion(in.Query, in.PriorQuery) {
		return StrategyContextReuse
	}
	sigma := CosineSimilarity(in.QueryEmbedding, in.PriorEmbedding)
	switch {
	case sigma > contextReuseThreshold:
		return StrategyContextReuse
	case sigma > hybridContextThreshold:
		return StrategyHybridContext
	default:
		return StrategyNewSearch
	}
}

// MergeContextSnapshots unions prior snapshots with fresh results,
// deduplicates by (document id, first 100 chars of content), sorts by
// (score desc, timestamp desc), and caps to MaxDocumentContext (§4.6).
func MergeContextSnapshots(prior []ContextSnapshot, fresh []ContextSnapshot) []ContextSnapshot {
	seen := make(map[string]int)
	merged := make([]ContextSnapshot, 0, len(prior)+len(fresh))

	add := func(snap ContextSnapshot) {
		preview := snap.Preview
		if len(preview) > 100 {
			preview = preview[:100]
		}
		key := snap.DocumentID.String() + ":" + preview
		if idx, ok := seen[key]; ok {
			if snap.Score > merged[idx].Score {
				merged[idx] = snap
			}
			return
		}
		seen[key] = len(merged)
		merged = append(merged, snap)
	}
	for _, s := range prior {
		add(s)
	}
	for _, s := range fresh {
		add(s)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].Timestamp.After(merged[j].Timestamp)
	})
	if len(merged) > MaxDocumentContext {
		merged = merged[:MaxDocumentContext]
	}
	return merged
}

// SnapshotsFromChunks converts retrieved chunks into context snapshots
// for appending to a session's document_context (§4.6).
func SnapshotsFromChunks(query string, results []RetrievedChunk, previewChars int, now time.Time) []ContextSnapshot {
	out := make([]ContextSnapshot, 0, len(results))
	for _, r := range results {
		out = append(out, ContextSnapshot{
			DocumentID: r.Chunk.DocumentID,
			Section:    r.Document.Section,
			Preview:    snippet(r.Chunk.Content, previewChars),
			Query:      query,
			Score:      r.Score,
			Timestamp:  now,
		})
	}
	return out
}
