package rag

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DocumentStatus tracks pipeline progress.
type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusProcessed  DocumentStatus = "processed"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// DocumentSource describes how the document was ingested.
type DocumentSource string

const (
	DocumentSourceUpload DocumentSource = "upload"
	DocumentSourceURL    DocumentSource = "url"
)

// Section is a tenant-defined namespace over documents (e.g. "procedures").
// It is the primary access-control and retrieval-routing key.
type Section string

// AccessLevel is a tenant subscription kind; it determines AllowedSections
// and the per-section access right via the configured access map.
type AccessLevel string

// SectionAccess is the right a principal holds over one section.
type SectionAccess string

const (
	SectionAccessNone     SectionAccess = "none"
	SectionAccessReadOnly SectionAccess = "read_only"
	SectionAccessFull     SectionAccess = "full"
)

// Document represents a user scoped file submission.
type Document struct {
	ID               uuid.UUID      `json:"id"`
	UserID           int64          `json:"userId"`
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	OriginalFilename string         `json:"originalFilename"`
	DeclaredKind     string         `json:"declaredKind"`
	DetectedKind     string         `json:"detectedKind"`
	Section          Section        `json:"section"`
	AccessLevel      AccessLevel    `json:"accessLevel"`
	Source           DocumentSource `json:"source"`
	Status           DocumentStatus `json:"status"`
	FailureReason    *string        `json:"failureReason,omitempty"`
	HasImages        bool           `json:"hasImages"`
	ExtractedSummary *string        `json:"extractedSummary,omitempty"`
	ExtractedMeta    map[string]any `json:"extractedMetadata,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
	ProcessedAt      *time.Time     `json:"processedAt,omitempty"`
}

// DisplayTitle resolves a human-readable title, never the literal "string"
// placeholder and never empty: prefer Title, then OriginalFilename (with
// extension stripped), then a synthesized "Document <id>" fallback.
func (d Document) DisplayTitle() string {
	for _, candidate := range []string{d.Title, stripExt(d.OriginalFilename)} {
		c := strings.TrimSpace(candidate)
		if c != "" && !strings.EqualFold(c, "string") {
			return c
		}
	}
	return "Document " + d.ID.String()
}

func stripExt(name string) string {
	name = strings.TrimSpace(name)
	if idx := strings.LastIndex(name, "."); idx > 0 {
		return name[:idx]
	}
	return name
}

// FileObject stores uploaded blob metadata.
type FileObject struct {
	ID         uuid.UUID `json:"id"`
	DocumentID uuid.UUID `json:"documentId"`
	StorageKey string    `json:"storageKey"`
	SizeBytes  int64     `json:"sizeBytes"`
	MimeType   string    `json:"mimeType"`
	ETag       string    `json:"etag"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ChunkType classifies the retrievable unit's origin content block.
type ChunkType string

const (
	ChunkTypeText      ChunkType = "text"
	ChunkTypeTable     ChunkType = "table"
	ChunkTypeSlide     ChunkType = "slide"
	ChunkTypeNotes     ChunkType = "notes"
	ChunkTypeImageText ChunkType = "image-text"
	ChunkTypeError     ChunkType = "error"
)

// DocumentChunk contains an embedded slice of a document.
type DocumentChunk struct {
	ID          uuid.UUID      `json:"id"`
	DocumentID  uuid.UUID      `json:"documentId"`
	ChunkIndex  int            `json:"chunkIndex"`
	Content     string         `json:"content"`
	ContentLen  int            `json:"contentLength"`
	ChunkType   ChunkType      `json:"chunkType"`
	PageNumber  *int           `json:"pageNumber,omitempty"`
	SectionName *string        `json:"sectionName,omitempty"`
	TokenCount  int            `json:"tokenCount"`
	Embedding   []float32      `json:"embedding"`
	EmbeddingID string         `json:"embeddingId,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// ChunkSource captures retrieval metadata returned to the client.
type ChunkSource struct {
	DocumentID uuid.UUID `json:"documentId"`
	ChunkIndex int       `json:"chunkIndex"`
	Score      float64   `json:"score"`
	Preview    string    `json:"preview"`
}

// Citation is one retained document in the source filter's output (§4.7).
type Citation struct {
	DocumentID  uuid.UUID `json:"documentId"`
	Title       string    `json:"title"`
	DisplayHint string    `json:"displayHint,omitempty"`
	ViewerURL   string    `json:"viewerUrl,omitempty"`
	MaxScore    float64   `json:"maxScore"`
}

// ContextSnapshot is a compact record of a prior retrieval kept inside a
// Conversation's bounded document_context list for later reuse (§4.6).
type ContextSnapshot struct {
	DocumentID uuid.UUID `json:"documentId"`
	Section    Section   `json:"section"`
	Preview    string    `json:"contentPreview"`
	Query      string    `json:"query"`
	Score      float64   `json:"score"`
	Timestamp  time.Time `json:"timestamp"`
}

// SearchDescriptor records a prior query's shape inside a Conversation's
// bounded search_context list.
type SearchDescriptor struct {
	Query     string    `json:"query"`
	Sections  []Section `json:"sections"`
	Timestamp time.Time `json:"timestamp"`
}

// ContextStrategy is the outcome of the session context policy (§4.6).
type ContextStrategy string

const (
	StrategyContextReuse  ContextStrategy = "context_reuse"
	StrategyHybridContext ContextStrategy = "hybrid_context"
	StrategyNewSearch     ContextStrategy = "new_search"
)

// MaxDocumentContext bounds Conversation.DocumentContext (§3: N=20-25).
const MaxDocumentContext = 25

// QASession groups multiple questions from the same user (the spec's
// "Conversation": a session thread carrying section focus and bounded
// retrieval context for conversational reuse).
type QASession struct {
	ID              uuid.UUID         `json:"id"`
	UserID          int64             `json:"userId"`
	Title           string            `json:"title,omitempty"`
	CurrentSection  *Section          `json:"currentSection,omitempty"`
	DocumentContext []ContextSnapshot `json:"documentContext,omitempty"`
	SearchContext   []SearchDescriptor `json:"searchContext,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	LastActivity    time.Time         `json:"lastActivity"`
}

// AppendContext appends a snapshot with FIFO eviction, keeping the list
// at or below MaxDocumentContext.
func (s *QASession) AppendContext(snap ContextSnapshot) {
	s.DocumentContext = append(s.DocumentContext, snap)
	if len(s.DocumentContext) > MaxDocumentContext {
		overflow := len(s.DocumentContext) - MaxDocumentContext
		s.DocumentContext = s.DocumentContext[overflow:]
	}
}

// ClearContext discards the bounded retrieval context (used on section change).
func (s *QASession) ClearContext() {
	s.DocumentContext = nil
	s.SearchContext = nil
}

// QueryLog records a single question/answer exchange.
type QueryLog struct {
	ID           uuid.UUID     `json:"id"`
	SessionID    uuid.UUID     `json:"sessionId"`
	QueryText    string        `json:"queryText"`
	ResponseText string        `json:"responseText"`
	LatencyMs    int64         `json:"latencyMs"`
	Sources      []ChunkSource `json:"sources"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// MessageRole distinguishes conversation turn authors.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
)

// ConversationMessage is a single turn in a session's running history.
type ConversationMessage struct {
	ID                   int64             `json:"id"`
	SessionID            uuid.UUID         `json:"sessionId"`
	UserID               int64             `json:"userId"`
	Role                 MessageRole       `json:"role"`
	Content              string            `json:"content"`
	SearchQuery          *string           `json:"searchQuery,omitempty"`
	SearchResults        []ContextSnapshot `json:"searchResults,omitempty"`
	UsedSections         []Section         `json:"usedSections,omitempty"`
	ContextRelevanceScore *float64         `json:"contextRelevanceScore,omitempty"`
	SourceChunks         []uuid.UUID       `json:"sourceChunks,omitempty"`
	SourceDocuments      []uuid.UUID       `json:"sourceDocuments,omitempty"`
	TokenCount           int               `json:"tokenCount"`
	CreatedAt            time.Time         `json:"createdAt"`
}

// MemorySource distinguishes why a memory was written.
type MemorySource string

const (
	MemorySourceQATurn  MemorySource = "qa_turn"
	MemorySourceSummary MemorySource = "summary"
)

// MemoryRecord is a long-lived, embedded note kept about a session's history.
type MemoryRecord struct {
	ID         int64        `json:"id"`
	SessionID  uuid.UUID    `json:"sessionId"`
	UserID     int64        `json:"userId"`
	Source     MemorySource `json:"source"`
	Content    string       `json:"content"`
	Embedding  []float32    `json:"embedding"`
	Importance int          `json:"importance"`
	CreatedAt  time.Time    `json:"createdAt"`
}

// RetrievedMemory bundles a memory with its similarity score.
type RetrievedMemory struct {
	Memory    MemoryRecord `json:"memory"`
	Score     float64      `json:"score"`
	CreatedAt time.Time    `json:"createdAt"`
}
