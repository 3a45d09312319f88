package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	domain "github.com/kitchenops/ragqa/internal/domain/rag"
)

// PostgresDocumentRepository persists documents in Postgres.
type PostgresDocumentRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresDocumentRepository constructs the repository.
func NewPostgresDocumentRepository(pool *pgxpool.Pool) *PostgresDocumentRepository {
	return &PostgresDocumentRepository{pool: pool}
}

func (r *PostgresDocumentRepository) Create(ctx context.Context, doc domain.Document) error {
	meta, err := json.Marshal(doc.ExtractedMeta)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO rag_documents (
			id, user_id, title, description, original_filename, declared_kind, detected_kind,
			section, access_level, source, status, failure_reason, has_images, extracted_summary,
			extracted_metadata, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
	`, doc.ID, doc.UserID, doc.Title, doc.Description, doc.OriginalFilename, doc.DeclaredKind, doc.DetectedKind,
		doc.Section, doc.AccessLevel, doc.Source, doc.Status, doc.FailureReason, doc.HasImages, doc.ExtractedSummary,
		meta, doc.CreatedAt, doc.UpdatedAt)
	return err
}

func (r *PostgresDocumentRepository) UpdateStatus(ctx context.Context, docID uuid.UUID, status domain.DocumentStatus, failureReason *string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE rag_documents
		SET status = $1, failure_reason = $2, updated_at = NOW()
		WHERE id = $3
	`, status, failureReason, docID)
	return err
}

func (r *PostgresDocumentRepository) MarkProcessingResult(ctx context.Context, docID uuid.UUID, detectedKind string, hasImages bool, summary *string, processedAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE rag_documents
		SET detected_kind = $1, has_images = $2, extracted_summary = $3, processed_at = $4, updated_at = NOW()
		WHERE id = $5
	`, detectedKind, hasImages, summary, processedAt, docID)
	return err
}

func (r *PostgresDocumentRepository) Get(ctx context.Context, docID uuid.UUID, userID int64) (domain.Document, bool, error) {
	row := r.pool.QueryRow(ctx, documentSelectColumns+`
		FROM rag_documents d
		WHERE d.id = $1 AND d.user_id = $2
		LIMIT 1
	`, docID, userID)
	doc, err := scanDocument(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Document{}, false, nil
		}
		return domain.Document{}, false, err
	}
	return doc, true, nil
}

func (r *PostgresDocumentRepository) GetByID(ctx context.Context, docID uuid.UUID) (domain.Document, bool, error) {
	row := r.pool.QueryRow(ctx, documentSelectColumns+`
		FROM rag_documents d
		WHERE d.id = $1
		LIMIT 1
	`, docID)
	doc, err := scanDocument(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Document{}, false, nil
		}
		return domain.Document{}, false, err
	}
	return doc, true, nil
}

func (r *PostgresDocumentRepository) List(ctx context.Context, userID int64, filter domain.DocumentFilter) ([]domain.Document, error) {
	query := documentSelectColumns + `
		FROM rag_documents d
		WHERE d.user_id = $1
	`
	args := []any{userID}
	argPos := 2
	if len(filter.Statuses) > 0 {
		query += ` AND d.status = ANY($` + itoa(argPos) + `)`
		args = append(args, filter.Statuses)
		argPos++
	}
	if len(filter.Sections) > 0 {
		query += ` AND d.section = ANY($` + itoa(argPos) + `)`
		args = append(args, filter.Sections)
		argPos++
	}
	if len(filter.DocumentIDs) > 0 {
		query += ` AND d.id = ANY($` + itoa(argPos) + `)`
		args = append(args, filter.DocumentIDs)
		argPos++
	}
	query += ` ORDER BY d.created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

var _ domain.DocumentRepository = (*PostgresDocumentRepository)(nil)

const documentSelectColumns = `
	SELECT
		d.id, d.user_id, d.title, d.description, d.original_filename, d.declared_kind, d.detected_kind,
		d.section, d.access_level, d.source, d.status, d.failure_reason, d.has_images, d.extracted_summary,
		d.extracted_metadata, d.created_at, d.updated_at, d.processed_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (domain.Document, error) {
	var doc domain.Document
	var metaRaw []byte
	if err := row.Scan(
		&doc.ID, &doc.UserID, &doc.Title, &doc.Description, &doc.OriginalFilename, &doc.DeclaredKind, &doc.DetectedKind,
		&doc.Section, &doc.AccessLevel, &doc.Source, &doc.Status, &doc.FailureReason, &doc.HasImages, &doc.ExtractedSummary,
		&metaRaw, &doc.CreatedAt, &doc.UpdatedAt, &doc.ProcessedAt,
	); err != nil {
		return domain.Document{}, err
	}
	if len(metaRaw) > 0 {
		_ = json.Unmarshal(metaRaw, &doc.ExtractedMeta)
	}
	return doc, nil
}

// PostgresFileRepository persists file metadata.
type PostgresFileRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresFileRepository constructs the repository.
func NewPostgresFileRepository(pool *pgxpool.Pool) *PostgresFileRepository {
	return &PostgresFileRepository{pool: pool}
}

func (r *PostgresFileRepository) Create(ctx context.Context, file domain.FileObject) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO rag_file_objects (id, document_id, storage_key, size_bytes, mime_type, etag, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, file.ID, file.DocumentID, file.StorageKey, file.SizeBytes, file.MimeType, file.ETag, file.CreatedAt)
	return err
}

func (r *PostgresFileRepository) FindByDocument(ctx context.Context, docID uuid.UUID) (domain.FileObject, bool, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, document_id, storage_key, size_bytes, mime_type, etag, created_at
		FROM rag_file_objects
		WHERE document_id = $1
		LIMIT 1
	`, docID)
	var file domain.FileObject
	if err := row.Scan(&file.ID, &file.DocumentID, &file.StorageKey, &file.SizeBytes, &file.MimeType, &file.ETag, &file.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return domain.FileObject{}, false, nil
		}
		return domain.FileObject{}, false, err
	}
	return file, true, nil
}

var _ domain.FileObjectRepository = (*PostgresFileRepository)(nil)

// PostgresChunkRepository stores chunks and supports similarity search via
// pgvector. It satisfies the narrower ChunkRepository write/search
// contract used by the ingestion path; PostgresVectorStore below owns
// the fuller collection-lifecycle contract used by the retrieval engine.
type PostgresChunkRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresChunkRepository constructs the chunk repository.
func NewPostgresChunkRepository(pool *pgxpool.Pool) *PostgresChunkRepository {
	return &PostgresChunkRepository{pool: pool}
}

func (r *PostgresChunkRepository) InsertBatch(ctx context.Context, chunks []domain.DocumentChunk) error {
	batch := &pgx.Batch{}
	for _, chunk := range chunks {
		meta, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return err
		}
		batch.Queue(`
			INSERT INTO rag_document_chunks (
				id, document_id, chunk_index, content, content_length, chunk_type, page_number,
				section_name, token_count, embedding, metadata, created_at
			)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		`, chunk.ID, chunk.DocumentID, chunk.ChunkIndex, chunk.Content, chunk.ContentLen, chunk.ChunkType, chunk.PageNumber,
			chunk.SectionName, chunk.TokenCount, pgvector.NewVector(chunk.Embedding), meta, chunk.CreatedAt)
	}
	return r.pool.SendBatch(ctx, batch).Close()
}

func (r *PostgresChunkRepository) SearchSimilar(ctx context.Context, userID int64, embedding []float32, filter domain.DocumentFilter) ([]domain.RetrievedChunk, error) {
	return searchChunks(ctx, r.pool, userID, embedding, chunkSearchFilter{
		documentIDs:    filter.DocumentIDs,
		statuses:       filter.Statuses,
		sections:       filter.Sections,
		scoreThreshold: 0,
		limit:          64,
	})
}

var _ domain.ChunkRepository = (*PostgresChunkRepository)(nil)

// PostgresVectorStore owns the embedded-chunk collection: schema
// lifecycle, writes, filtered search, and deletion (§4.4). It reuses
// the rag_document_chunks table that PostgresChunkRepository writes to,
// so a single ingestion write path feeds both contracts.
type PostgresVectorStore struct {
	pool *pgxpool.Pool
}

// NewPostgresVectorStore constructs the vector store adapter.
func NewPostgresVectorStore(pool *pgxpool.Pool) *PostgresVectorStore {
	return &PostgresVectorStore{pool: pool}
}

// EnsureCollection validates the embedding column's vector dimension,
// recreating it destructively (logged by the caller) on a mismatch.
func (s *PostgresVectorStore) EnsureCollection(ctx context.Context, dimension int) error {
	var currentDim int
	err := s.pool.QueryRow(ctx, `
		SELECT atttypmod
		FROM pg_attribute
		WHERE attrelid = 'rag_document_chunks'::regclass AND attname = 'embedding'
	`).Scan(&currentDim)
	if err != nil {
		// table or column not present yet; nothing to reconcile at runtime,
		// schema migrations own table creation.
		return nil
	}
	if currentDim == dimension {
		return nil
	}
	_, err = s.pool.Exec(ctx, fmt.Sprintf(`
		ALTER TABLE rag_document_chunks ALTER COLUMN embedding TYPE vector(%d)
	`, dimension))
	return err
}

const upsertBatchSize = 100

// Upsert writes chunk rows in sub-batches of upsertBatchSize (§4.4).
func (s *PostgresVectorStore) Upsert(ctx context.Context, records []domain.DocumentChunk) error {
	for start := 0; start < len(records); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(records) {
			end = len(records)
		}
		batch := &pgx.Batch{}
		for _, chunk := range records[start:end] {
			meta, err := json.Marshal(chunk.Metadata)
			if err != nil {
				return err
			}
			batch.Queue(`
				INSERT INTO rag_document_chunks (
					id, document_id, chunk_index, content, content_length, chunk_type, page_number,
					section_name, token_count, embedding, metadata, created_at
				)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
				ON CONFLICT (id) DO UPDATE SET
					content = EXCLUDED.content,
					content_length = EXCLUDED.content_length,
					embedding = EXCLUDED.embedding,
					metadata = EXCLUDED.metadata
			`, chunk.ID, chunk.DocumentID, chunk.ChunkIndex, chunk.Content, chunk.ContentLen, chunk.ChunkType, chunk.PageNumber,
				chunk.SectionName, chunk.TokenCount, pgvector.NewVector(chunk.Embedding), meta, chunk.CreatedAt)
		}
		if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}
	}
	return nil
}

// Search runs one filtered similarity pass against the collection (§4.4/§4.5).
func (s *PostgresVectorStore) Search(ctx context.Context, userID int64, query domain.VectorQuery) ([]domain.RetrievedChunk, error) {
	var sections []domain.Section
	if query.Section != nil {
		sections = []domain.Section{*query.Section}
	}
	var documentIDs []uuid.UUID
	documentIDs = append(documentIDs, query.DocumentIDs...)
	return searchChunks(ctx, s.pool, userID, query.Embedding, chunkSearchFilter{
		documentIDs:    documentIDs,
		statuses:       []domain.DocumentStatus{domain.DocumentStatusProcessed},
		sections:       sections,
		accessLevel:    query.AccessLevel,
		chunkType:      query.ChunkType,
		scoreThreshold: query.ScoreThreshold,
		limit:          query.Limit,
	})
}

// DeleteByDocument scroll-deletes every chunk owned by a document id.
func (s *PostgresVectorStore) DeleteByDocument(ctx context.Context, documentID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM rag_document_chunks WHERE document_id = $1`, documentID)
	return err
}

var _ domain.VectorStore = (*PostgresVectorStore)(nil)

type chunkSearchFilter struct {
	documentIDs    []uuid.UUID
	statuses       []domain.DocumentStatus
	sections       []domain.Section
	accessLevel    domain.AccessLevel
	chunkType      *domain.ChunkType
	scoreThreshold float64
	limit          int
}

// searchChunks runs the §4.5 similarity query across the shared corpus:
// retrieval is gated by section and access level, never by document
// ownership, so a principal can be answered from documents another
// principal uploaded (original_source/services/vector_service.py::search_similar).
func searchChunks(ctx context.Context, pool *pgxpool.Pool, _ int64, embedding []float32, filter chunkSearchFilter) ([]domain.RetrievedChunk, error) {
	limit := filter.limit
	if limit <= 0 {
		limit = 64
	}
	query := `
		SELECT
			c.id, c.document_id, c.chunk_index, c.content, c.content_length, c.chunk_type, c.page_number,
			c.section_name, c.token_count, c.embedding, c.metadata, c.created_at,
			d.id, d.user_id, d.title, d.description, d.original_filename, d.declared_kind, d.detected_kind,
			d.section, d.access_level, d.source, d.status, d.failure_reason, d.has_images, d.extracted_summary,
			d.extracted_metadata, d.created_at, d.updated_at, d.processed_at,
			(1.0 / (1.0 + (c.embedding <-> $1))) AS score
		FROM rag_document_chunks c
		JOIN rag_documents d ON d.id = c.document_id
		WHERE 1=1
	`
	args := []any{pgvector.NewVector(embedding)}
	argPos := 2
	if len(filter.statuses) > 0 {
		query += ` AND d.status = ANY($` + itoa(argPos) + `)`
		args = append(args, filter.statuses)
		argPos++
	}
	if len(filter.sections) > 0 {
		query += ` AND d.section = ANY($` + itoa(argPos) + `)`
		args = append(args, filter.sections)
		argPos++
	}
	if filter.accessLevel != "" {
		query += ` AND d.access_level = $` + itoa(argPos)
		args = append(args, filter.accessLevel)
		argPos++
	}
	if filter.chunkType != nil {
		query += ` AND c.chunk_type = $` + itoa(argPos)
		args = append(args, *filter.chunkType)
		argPos++
	}
	if len(filter.documentIDs) > 0 {
		query += ` AND c.document_id = ANY($` + itoa(argPos) + `)`
		args = append(args, filter.documentIDs)
		argPos++
	}
	if filter.scoreThreshold > 0 {
		query += ` AND (1.0 / (1.0 + (c.embedding <-> $1))) >= $` + itoa(argPos)
		args = append(args, filter.scoreThreshold)
		argPos++
	}
	query += ` ORDER BY (c.embedding <-> $1) ASC LIMIT ` + itoa(limit)

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.RetrievedChunk
	for rows.Next() {
		var (
			chunk        domain.DocumentChunk
			doc          domain.Document
			metaRaw      []byte
			docMetaRaw   []byte
			score        float64
			embeddingRaw any
		)
		if err := rows.Scan(
			&chunk.ID, &chunk.DocumentID, &chunk.ChunkIndex, &chunk.Content, &chunk.ContentLen, &chunk.ChunkType, &chunk.PageNumber,
			&chunk.SectionName, &chunk.TokenCount, &embeddingRaw, &metaRaw, &chunk.CreatedAt,
			&doc.ID, &doc.UserID, &doc.Title, &doc.Description, &doc.OriginalFilename, &doc.DeclaredKind, &doc.DetectedKind,
			&doc.Section, &doc.AccessLevel, &doc.Source, &doc.Status, &doc.FailureReason, &doc.HasImages, &doc.ExtractedSummary,
			&docMetaRaw, &doc.CreatedAt, &doc.UpdatedAt, &doc.ProcessedAt,
			&score,
		); err != nil {
			return nil, err
		}
		parsed, err := normalizeEmbedding(embeddingRaw)
		if err != nil {
			return nil, err
		}
		chunk.Embedding = parsed
		if len(metaRaw) > 0 {
			_ = json.Unmarshal(metaRaw, &chunk.Metadata)
		}
		if len(docMetaRaw) > 0 {
			_ = json.Unmarshal(docMetaRaw, &doc.ExtractedMeta)
		}
		results = append(results, domain.RetrievedChunk{
			Chunk:     chunk,
			Document:  doc,
			Score:     score,
			CreatedAt: chunk.CreatedAt,
		})
	}
	return results, rows.Err()
}

// PostgresQASessionRepository stores sessions and their bounded
// conversational context (§3, §4.6).
type PostgresQASessionRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresQASessionRepository constructs the repository.
func NewPostgresQASessionRepository(pool *pgxpool.Pool) *PostgresQASessionRepository {
	return &PostgresQASessionRepository{pool: pool}
}

func (r *PostgresQASessionRepository) Create(ctx context.Context, session domain.QASession) error {
	docCtx, err := json.Marshal(session.DocumentContext)
	if err != nil {
		return err
	}
	searchCtx, err := json.Marshal(session.SearchContext)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO rag_qa_sessions (id, user_id, title, current_section, document_context, search_context, created_at, last_activity)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, session.ID, session.UserID, session.Title, session.CurrentSection, docCtx, searchCtx, session.CreatedAt, session.LastActivity)
	return err
}

func (r *PostgresQASessionRepository) Find(ctx context.Context, id uuid.UUID, userID int64) (domain.QASession, bool, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, title, current_section, document_context, search_context, created_at, last_activity
		FROM rag_qa_sessions
		WHERE id = $1 AND user_id = $2
		LIMIT 1
	`, id, userID)
	session, err := scanSession(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.QASession{}, false, nil
		}
		return domain.QASession{}, false, err
	}
	return session, true, nil
}

func (r *PostgresQASessionRepository) List(ctx context.Context, userID int64) ([]domain.QASession, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, title, current_section, document_context, search_context, created_at, last_activity
		FROM rag_qa_sessions
		WHERE user_id = $1
		ORDER BY last_activity DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.QASession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func (r *PostgresQASessionRepository) Update(ctx context.Context, session domain.QASession) error {
	docCtx, err := json.Marshal(session.DocumentContext)
	if err != nil {
		return err
	}
	searchCtx, err := json.Marshal(session.SearchContext)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		UPDATE rag_qa_sessions
		SET title = $1, current_section = $2, document_context = $3, search_context = $4, last_activity = $5
		WHERE id = $6 AND user_id = $7
	`, session.Title, session.CurrentSection, docCtx, searchCtx, session.LastActivity, session.ID, session.UserID)
	return err
}

func (r *PostgresQASessionRepository) Delete(ctx context.Context, id uuid.UUID, userID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM rag_qa_sessions WHERE id = $1 AND user_id = $2`, id, userID)
	return err
}

var _ domain.QASessionRepository = (*PostgresQASessionRepository)(nil)

func scanSession(row rowScanner) (domain.QASession, error) {
	var session domain.QASession
	var docCtxRaw, searchCtxRaw []byte
	if err := row.Scan(&session.ID, &session.UserID, &session.Title, &session.CurrentSection, &docCtxRaw, &searchCtxRaw, &session.CreatedAt, &session.LastActivity); err != nil {
		return domain.QASession{}, err
	}
	if len(docCtxRaw) > 0 {
		_ = json.Unmarshal(docCtxRaw, &session.DocumentContext)
	}
	if len(searchCtxRaw) > 0 {
		_ = json.Unmarshal(searchCtxRaw, &session.SearchContext)
	}
	return session, nil
}

// PostgresQueryLogRepository stores query logs.
type PostgresQueryLogRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresQueryLogRepository constructs the repository.
func NewPostgresQueryLogRepository(pool *pgxpool.Pool) *PostgresQueryLogRepository {
	return &PostgresQueryLogRepository{pool: pool}
}

func (r *PostgresQueryLogRepository) Append(ctx context.Context, log domain.QueryLog) error {
	sources, err := json.Marshal(log.Sources)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO rag_query_logs (id, session_id, query_text, response_text, latency_ms, sources, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, log.ID, log.SessionID, log.QueryText, log.ResponseText, log.LatencyMs, sources, log.CreatedAt)
	return err
}

func (r *PostgresQueryLogRepository) ListBySession(ctx context.Context, sessionID uuid.UUID, userID int64) ([]domain.QueryLog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT q.id, q.session_id, q.query_text, q.response_text, q.latency_ms, q.sources, q.created_at
		FROM rag_query_logs q
		JOIN rag_qa_sessions s ON s.id = q.session_id
		WHERE q.session_id = $1 AND s.user_id = $2
		ORDER BY q.created_at DESC
	`, sessionID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []domain.QueryLog
	for rows.Next() {
		var (
			entry   domain.QueryLog
			rawJSON []byte
		)
		if err := rows.Scan(&entry.ID, &entry.SessionID, &entry.QueryText, &entry.ResponseText, &entry.LatencyMs, &rawJSON, &entry.CreatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(rawJSON, &entry.Sources)
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

var _ domain.QueryLogRepository = (*PostgresQueryLogRepository)(nil)

func itoa(v int) string {
	return strconv.Itoa(v)
}

func normalizeEmbedding(raw any) ([]float32, error) {
	switch v := raw.(type) {
	case pgvector.Vector:
		return append([]float32(nil), v.Slice()...), nil
	case []float32:
		return append([]float32(nil), v...), nil
	case []float64:
		out := make([]float32, len(v))
		for i, f := range v {
			out[i] = float32(f)
		}
		return out, nil
	case string:
		trimmed := strings.TrimSpace(v)
		trimmed = strings.TrimPrefix(trimmed, "[")
		trimmed = strings.TrimSuffix(trimmed, "]")
		if trimmed == "" {
			return nil, nil
		}
		parts := strings.Split(trimmed, ",")
		out := make([]float32, 0, len(parts))
		for _, p := range parts {
			numStr := strings.TrimSpace(p)
			if numStr == "" {
				continue
			}
			f, err := strconv.ParseFloat(numStr, 32)
			if err != nil {
				return nil, err
			}
			out = append(out, float32(f))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported embedding type %T", raw)
	}
}
