package rag

import (
	"fmt"
	"sort"
	"strings"
)

const (
	materialMaxScoreHigh   = 0.7
	materialMaxScoreLow    = 0.5
	materialMinLength      = 200
	materialMinChunkCount  = 2
)

// FilterMaterialSources groups retrieved chunks by document and keeps
// only those documents whose evidence is "material": either the
// document's top chunk clears a high score bar on its own, or it clears
// a lower bar while also contributing enough combined text across more
// than one chunk (§4.7). If nothing clears the bar, the single
// highest-scoring document is kept so an answer always carries at
// least one citation.
func FilterMaterialSources(results []RetrievedChunk) []Citation {
	if len(results) == 0 {
		return nil
	}
	groups := groupByDocument(results)

	type docStat struct {
		docID    string
		chunks   []RetrievedChunk
		maxScore float64
		totalLen int
	}
	stats := make([]docStat, 0, len(groups))
	for docID, chunks := range groups {
		stat := docStat{docID: docID, chunks: chunks}
		for _, c := range chunks {
			if c.Score > stat.maxScore {
				stat.maxScore = c.Score
			}
			stat.totalLen += len(c.Chunk.Content)
		}
		stats = append(stats, stat)
	}
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].maxScore > stats[j].maxScore })

	citations := make([]Citation, 0, len(stats))
	for _, s := range stats {
		material := s.maxScore > materialMaxScoreHigh ||
			(s.maxScore > materialMaxScoreLow && s.totalLen > materialMinLength && len(s.chunks) > materialMinChunkCount-1)
		if !material {
			continue
		}
		citations = append(citations, citationFor(s.chunks, s.maxScore))
	}

	if len(citations) == 0 {
		top := stats[0]
		citations = append(citations, citationFor(top.chunks, top.maxScore))
	}
	return citations
}

func citationFor(chunks []RetrievedChunk, maxScore float64) Citation {
	doc := chunks[0].Document
	hint, url := sourceLink(doc, bestLocatedChunk(chunks))
	return Citation{
		DocumentID:  doc.ID,
		Title:       doc.DisplayTitle(),
		DisplayHint: hint,
		ViewerURL:   url,
		MaxScore:    maxScore,
	}
}

// bestLocatedChunk picks the highest-scoring chunk that carries page or
// section metadata, falling back to the highest-scoring chunk overall,
// so the citation's navigation hint points at the evidence that was
// actually used (§4.7).
func bestLocatedChunk(chunks []RetrievedChunk) DocumentChunk {
	best := chunks[0]
	for _, c := range chunks {
		if c.Chunk.PageNumber != nil || c.Chunk.SectionName != nil {
			if c.Score > best.Score || (best.Chunk.PageNumber == nil && best.Chunk.SectionName == nil) {
				best = c
			}
		}
	}
	return best.Chunk
}

// documentKind normalizes a document's declared/detected kind down to
// the handful source_linker.py dispatches on.
func documentKind(doc Document) string {
	kind := strings.ToLower(strings.TrimSpace(doc.DetectedKind))
	if kind == "" {
		kind = strings.ToLower(strings.TrimSpace(doc.DeclaredKind))
	}
	kind = strings.TrimPrefix(kind, ".")
	if idx := strings.LastIndex(kind, "/"); idx >= 0 {
		kind = kind[idx+1:]
	}
	return kind
}

// sourceLink renders a navigation hint and a viewer URL for one chunk,
// grounded on source_linker.py's _create_specific_link/_create_web_viewer_link:
// PDFs link to a page, spreadsheets and slide decks to a sheet/slide, and
// word-processor documents to a named section with no direct anchor.
func sourceLink(doc Document, chunk DocumentChunk) (hint, url string) {
	kind := documentKind(doc)
	switch kind {
	case "pdf":
		if chunk.PageNumber != nil {
			hint = fmt.Sprintf("Page %d", *chunk.PageNumber)
		}
		url = fmt.Sprintf("/viewer/public/pdf/%s", doc.ID)
	case "xlsx", "xls":
		if chunk.SectionName != nil {
			hint = fmt.Sprintf("Sheet: %s", *chunk.SectionName)
		}
		url = fmt.Sprintf("/viewer/public/excel/%s", doc.ID)
	case "docx", "doc", "rtf":
		if chunk.SectionName != nil {
			hint = fmt.Sprintf("Section: %s", *chunk.SectionName)
		}
		url = fmt.Sprintf("/viewer/public/word/%s", doc.ID)
	case "pptx", "ppt":
		if chunk.PageNumber != nil {
			hint = fmt.Sprintf("Slide %d", *chunk.PageNumber)
		}
		url = fmt.Sprintf("/viewer/public/powerpoint/%s", doc.ID)
	default:
		if chunk.PageNumber != nil {
			hint = fmt.Sprintf("Page %d", *chunk.PageNumber)
		} else if chunk.SectionName != nil {
			hint = fmt.Sprintf("Section: %s", *chunk.SectionName)
		}
	}
	return hint, url
}
