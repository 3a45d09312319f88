package rag

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func docChunk(doc Document, content string, score float64) RetrievedChunk {
	return RetrievedChunk{
		Chunk:    DocumentChunk{DocumentID: doc.ID, Content: content},
		Document: doc,
		Score:    score,
	}
}

func TestFilterMaterialSourcesEmpty(t *testing.T) {
	require.Nil(t, FilterMaterialSources(nil))
}

func TestFilterMaterialSourcesHighScoreAlone(t *testing.T) {
	doc := Document{ID: uuid.New(), Title: "Standards Manual"}
	results := []RetrievedChunk{docChunk(doc, "short", 0.75)}

	citations := FilterMaterialSources(results)

	require.Len(t, citations, 1)
	require.Equal(t, doc.ID, citations[0].DocumentID)
	require.Equal(t, "Standards Manual", citations[0].Title)
}

func TestFilterMaterialSourcesLowScoreNeedsLengthAndChunkCount(t *testing.T) {
	doc := Document{ID: uuid.New(), Title: "Procedures"}
	long := strings.Repeat("a", 150)
	// two chunks, combined length > 200, score above the low bar but below the high bar
	results := []RetrievedChunk{
		docChunk(doc, long, 0.6),
		docChunk(doc, long, 0.55),
	}

	citations := FilterMaterialSources(results)

	require.Len(t, citations, 1)
	require.Equal(t, doc.ID, citations[0].DocumentID)
}

func TestFilterMaterialSourcesFallsBackToTopWhenNothingMaterial(t *testing.T) {
	a := Document{ID: uuid.New(), Title: "A"}
	b := Document{ID: uuid.New(), Title: "B"}
	results := []RetrievedChunk{
		docChunk(a, "short", 0.3),
		docChunk(b, "short2", 0.4),
	}

	citations := FilterMaterialSources(results)

	require.Len(t, citations, 1)
	require.Equal(t, b.ID, citations[0].DocumentID)
}

func TestDisplayTitleFallsBackToFilenameThenID(t *testing.T) {
	doc := Document{ID: uuid.New(), OriginalFilename: "report.pdf"}
	require.Equal(t, "report", doc.DisplayTitle())

	blank := Document{ID: uuid.New()}
	require.Equal(t, "Document "+blank.ID.String(), blank.DisplayTitle())
}

func TestCitationForPDFLinksToPage(t *testing.T) {
	doc := Document{ID: uuid.New(), Title: "Handbook", DetectedKind: "pdf"}
	page := 7
	chunk := RetrievedChunk{Chunk: DocumentChunk{DocumentID: doc.ID, PageNumber: &page}, Document: doc, Score: 0.9}

	citation := citationFor([]RetrievedChunk{chunk}, 0.9)

	require.Equal(t, "Page 7", citation.DisplayHint)
	require.Equal(t, "/viewer/public/pdf/"+doc.ID.String(), citation.ViewerURL)
}

func TestCitationForSpreadsheetLinksToSheet(t *testing.T) {
	doc := Document{ID: uuid.New(), Title: "Budget", DetectedKind: "xlsx"}
	sheet := "Q3"
	chunk := RetrievedChunk{Chunk: DocumentChunk{DocumentID: doc.ID, SectionName: &sheet}, Document: doc, Score: 0.8}

	citation := citationFor([]RetrievedChunk{chunk}, 0.8)

	require.Equal(t, "Sheet: Q3", citation.DisplayHint)
	require.Equal(t, "/viewer/public/excel/"+doc.ID.String(), citation.ViewerURL)
}

func TestCitationForWordLinksToSectionWithoutAnchor(t *testing.T) {
	doc := Document{ID: uuid.New(), Title: "Policy", DetectedKind: "docx"}
	section := "Eligibility"
	chunk := RetrievedChunk{Chunk: DocumentChunk{DocumentID: doc.ID, SectionName: &section}, Document: doc, Score: 0.8}

	citation := citationFor([]RetrievedChunk{chunk}, 0.8)

	require.Equal(t, "Section: Eligibility", citation.DisplayHint)
	require.Equal(t, "/viewer/public/word/"+doc.ID.String(), citation.ViewerURL)
}

func TestCitationForSlideDeckLinksToSlide(t *testing.T) {
	doc := Document{ID: uuid.New(), Title: "Kickoff", DetectedKind: "pptx"}
	slide := 3
	chunk := RetrievedChunk{Chunk: DocumentChunk{DocumentID: doc.ID, PageNumber: &slide}, Document: doc, Score: 0.85}

	citation := citationFor([]RetrievedChunk{chunk}, 0.85)

	require.Equal(t, "Slide 3", citation.DisplayHint)
	require.Equal(t, "/viewer/public/powerpoint/"+doc.ID.String(), citation.ViewerURL)
}

func TestCitationForUnknownKindHasNoViewerURL(t *testing.T) {
	doc := Document{ID: uuid.New(), Title: "Notes", DetectedKind: "txt"}
	chunk := RetrievedChunk{Chunk: DocumentChunk{DocumentID: doc.ID}, Document: doc, Score: 0.75}

	citation := citationFor([]RetrievedChunk{chunk}, 0.75)

	require.Empty(t, citation.ViewerURL)
	require.Empty(t, citation.DisplayHint)
}
