package rag

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// ObjectStorage abstracts blob storage (R2/S3/Supabase/local).
type ObjectStorage interface {
	Put(ctx context.Context, key string, data []byte, mimeType string) (StoredObject, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// StoredObject captures persisted blob metadata.
type StoredObject struct {
	Key      string
	Size     int64
	MimeType string
	ETag     string
}

// Embedder produces embeddings for free form text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// LLM generates answers for a question and context.
type LLM interface {
	Chat(ctx context.Context, messages []LLMMessage) (string, error)
}

// LLMMessage mirrors a simplified chat payload.
type LLMMessage struct {
	Role    string
	Content string
}

// Retriever performs similarity search across stored chunks.
type Retriever interface {
	Search(ctx context.Context, userID int64, embedding []float32, filter DocumentFilter) ([]RetrievedChunk, error)
}

// DocumentRepository persists document metadata.
type DocumentRepository interface {
	Create(ctx context.Context, doc Document) error
	UpdateStatus(ctx context.Context, docID uuid.UUID, status DocumentStatus, failureReason *string) error
	MarkProcessingResult(ctx context.Context, docID uuid.UUID, detectedKind string, hasImages bool, summary *string, processedAt time.Time) error
	Get(ctx context.Context, docID uuid.UUID, userID int64) (Document, bool, error)
	// GetByID looks up a document without scoping to an owner. The
	// corpus is tenant-shared (§4.5/§4.7): retrieval and citation
	// rendering need a document's metadata regardless of who uploaded
	// it, while Get stays owner-scoped for document management (§3.2).
	GetByID(ctx context.Context, docID uuid.UUID) (Document, bool, error)
	List(ctx context.Context, userID int64, filter DocumentFilter) ([]Document, error)
}

// FileObjectRepository persists uploaded file metadata.
type FileObjectRepository interface {
	Create(ctx context.Context, file FileObject) error
	FindByDocument(ctx context.Context, docID uuid.UUID) (FileObject, bool, error)
}

// ChunkRepository stores embedded chunks.
type ChunkRepository interface {
	InsertBatch(ctx context.Context, chunks []DocumentChunk) error
	SearchSimilar(ctx context.Context, userID int64, embedding []float32, filter DocumentFilter) ([]RetrievedChunk, error)
}

// QASessionRepository persists user sessions, including the bounded
// conversational context snapshot carried on each session (§3, §4.6).
type QASessionRepository interface {
	Create(ctx context.Context, session QASession) error
	Find(ctx context.Context, id uuid.UUID, userID int64) (QASession, bool, error)
	List(ctx context.Context, userID int64) ([]QASession, error)
	Update(ctx context.Context, session QASession) error
	Delete(ctx context.Context, id uuid.UUID, userID int64) error
}

// QueryLogRepository records question/answer pairs.
type QueryLogRepository interface {
	Append(ctx context.Context, log QueryLog) error
	ListBySession(ctx context.Context, sessionID uuid.UUID, userID int64) ([]QueryLog, error)
}

// MessageLog persists conversational turns for a session.
type MessageLog interface {
	Append(ctx context.Context, msg ConversationMessage) error
	ListRecent(ctx context.Context, userID int64, sessionID uuid.UUID, maxTokens int, maxMessages int) ([]ConversationMessage, error)
}

// MemoryStore manages long-term memories for a user/session.
type MemoryStore interface {
	Upsert(ctx context.Context, mem MemoryRecord) error
	Search(ctx context.Context, userID int64, sessionID uuid.UUID, embedding []float32, k int) ([]RetrievedMemory, error)
	Prune(ctx context.Context, userID int64, sessionID *uuid.UUID, limit int) error
}

// JobQueue enqueues processing tasks.
type JobQueue interface {
	Enqueue(ctx context.Context, name string, payload any) error
}

// Chunker splits raw text into contextual pieces.
type Chunker interface {
	Chunk(text string) []ChunkCandidate
}

// BlockChunker is an optional capability of a Chunker that can chunk a
// parser's content blocks directly, carrying block metadata (kind,
// page, section name) onto the resulting candidates (§4.1/§4.2). A
// Chunker implementation that doesn't support it is chunked over raw
// concatenated text instead.
type BlockChunker interface {
	ChunkBlocks(blocks []ContentBlock) []ChunkCandidate
}

// ChunkCandidate is produced by the chunker before embedding, inheriting
// any metadata carried by the content block it was sliced from (§4.2).
type ChunkCandidate struct {
	Index       int
	Content     string
	TokenCount  int
	ChunkType   ChunkType
	PageNumber  *int
	SectionName *string
	Metadata    map[string]any
}

// DocumentFilter restricts scope to a set of documents or statuses.
type DocumentFilter struct {
	DocumentIDs []uuid.UUID
	Statuses    []DocumentStatus
	Sections    []Section
}

// RetrievedChunk bundles the chunk and score.
type RetrievedChunk struct {
	Chunk     DocumentChunk
	Document  Document
	Score     float64
	CreatedAt time.Time
}

// BlockKind classifies a parser's emitted content block (§4.1).
type BlockKind string

const (
	BlockKindText      BlockKind = "text"
	BlockKindTable     BlockKind = "table"
	BlockKindSlide     BlockKind = "slide"
	BlockKindNotes     BlockKind = "notes"
	BlockKindImageText BlockKind = "image-text"
	BlockKindError     BlockKind = "error"
)

// ContentBlock is one logical unit emitted by a parser: a page, a
// paragraph group, a spreadsheet sheet, a slide plus its notes, or an
// OCR'd image region.
type ContentBlock struct {
	Kind        BlockKind
	Content     string
	SectionName string
	Page        int
	SheetName   string
	SubIndex    int
	Metadata    map[string]any
}

// ParserRegistry converts a blob of a declared content kind into an
// ordered sequence of content blocks (§4.1). ParserUsed reports which
// concrete parser/extractor handled the file, for logging.
type ParserRegistry interface {
	Parse(ctx context.Context, declaredKind string, filename string, data []byte) (blocks []ContentBlock, parserUsed string, err error)
}

// VectorQuery is a single filtered similarity search against the vector
// store (§4.4/§4.5).
type VectorQuery struct {
	Embedding      []float32
	Section        *Section
	AccessLevel    AccessLevel
	DocumentIDs    []uuid.UUID
	ChunkType      *ChunkType
	Limit          int
	ScoreThreshold float64
}

// VectorStore owns the embedded-chunk collection: schema lifecycle,
// writes, filtered search, and deletion (§4.4).
type VectorStore interface {
	// EnsureCollection creates or validates the collection for the given
	// vector dimension, recreating destructively on a dimension mismatch.
	EnsureCollection(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, records []DocumentChunk) error
	Search(ctx context.Context, userID int64, query VectorQuery) ([]RetrievedChunk, error)
	DeleteByDocument(ctx context.Context, documentID uuid.UUID) error
}

// AccessSummary describes one section's access rights for a subscription
// (supplemented detail view, §2.3/§6).
type AccessSummary struct {
	Section    Section       `json:"section"`
	Access     SectionAccess `json:"access"`
	CanUpload  bool          `json:"canUpload"`
	CanDelete  bool          `json:"canDelete"`
}

// AccessEvaluator is the consumed access-control contract (§6), kept as
// an interface so the core never depends on how roles are configured.
type AccessEvaluator interface {
	CheckSectionAccess(accessLevel AccessLevel, section Section, required SectionAccess) bool
	AllowedSections(accessLevel AccessLevel) []Section
	CanUpload(accessLevel AccessLevel, section Section) bool
	CanDelete(accessLevel AccessLevel, section Section) bool
	DetailedAccess(accessLevel AccessLevel) []AccessSummary
}

// RateLimiter gates inbound requests per principal and outbound calls
// per provider (§5).
type RateLimiter interface {
	AllowPrincipal(ctx context.Context, userID int64, accessLevel AccessLevel) (bool, time.Duration)
	AllowProvider(ctx context.Context, provider string) bool
}

// SessionLocker serializes concurrent turns for the same session id
// (§5); when ok is true, the returned unlock func releases the lock
// acquired by TryLock.
type SessionLocker interface {
	TryLock(sessionID uuid.UUID) (unlock func(), ok bool)
}
