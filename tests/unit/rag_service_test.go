package unit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/kitchenops/ragqa/internal/domain/rag"
	ragmemory "github.com/kitchenops/ragqa/internal/infra/rag/memory"
	ragrepo "github.com/kitchenops/ragqa/internal/infra/rag/repo"
)

func TestAskSkipsMemoryWhenDisabled(t *testing.T) {
	chunkRepo := &stubChunkRepo{results: []rag.RetrievedChunk{{Chunk: rag.DocumentChunk{DocumentID: uuid.New()}}}}
	memStore := &stubMemoryStore{}
	msgLog := ragmemory.NewMemoryMessageLog()
	cfg := baseRagConfig()
	cfg.Memory.Enabled = false

	svc := newRagService(cfg, chunkRepo, memStore, msgLog, &stubEmbedder{}, &stubLLM{})
	resp, err := svc.Ask(context.Background(), 1, rag.AskRequest{Query: "Hi"})
	require.NoError(t, err)
	require.NotZero(t, resp.SessionID)
	require.Empty(t, resp.Memories)
	require.Equal(t, 0, memStore.searchCalled)
	require.Empty(t, memStore.upserts)
}

func TestAskUsesMemoriesWhenEnabled(t *testing.T) {
	chunkRepo := &stubChunkRepo{results: []rag.RetrievedChunk{{Chunk: rag.DocumentChunk{DocumentID: uuid.New(), Content: "chunk"}}}}
	memStore := &stubMemoryStore{
		records: []rag.RetrievedMemory{
			{Memory: rag.MemoryRecord{Content: "remember this", Source: rag.MemorySourceQATurn}},
		},
	}
	msgLog := ragmemory.NewMemoryMessageLog()
	cfg := baseRagConfig()
	cfg.Memory.Enabled = true
	cfg.Memory.PruneLimit = 1
	cfg.Memory.TopKMems = 1

	svc := newRagService(cfg, chunkRepo, memStore, msgLog, &stubEmbedder{}, &stubLLM{response: "final"})
	resp, err := svc.Ask(context.Background(), 42, rag.AskRequest{Query: "Question?"})
	require.NoError(t, err)
	require.Len(t, resp.Memories, 1)
	require.Equal(t, 1, memStore.searchCalled)
	require.NotEmpty(t, memStore.upserts)
	require.Equal(t, chunkRepo.lastEmbedding, memStore.lastEmbedding)
}

func TestAskTrimsHistoryTokens(t *testing.T) {
	chunkRepo := &stubChunkRepo{}
	memStore := &stubMemoryStore{}
	msgLog := ragmemory.NewMemoryMessageLog()
	sessions := ragrepo.NewMemoryQASessionRepository()
	sessionID := uuid.New()
	_ = sessions.Create(context.Background(), rag.QASession{ID: sessionID, UserID: 7, CreatedAt: time.Now()})
	_ = msgLog.Append(context.Background(), rag.ConversationMessage{SessionID: sessionID, UserID: 7, Role: rag.MessageRoleUser, Content: "older", TokenCount: 10})
	_ = msgLog.Append(context.Background(), rag.ConversationMessage{SessionID: sessionID, UserID: 7, Role: rag.MessageRoleAssistant, Content: "newer", TokenCount: 5})

	cfg := baseRagConfig()
	cfg.Memory.Enabled = true
	cfg.Memory.MaxHistoryTokens = 100
	llm := &stubLLM{response: "ok"}
	svc := rag.NewService(cfg, rag.Dependencies{
		Docs:     ragrepo.NewMemoryDocumentRepository(),
		Files:    ragrepo.NewMemoryFileRepository(),
		Chunks:   chunkRepo,
		Sessions: sessions,
		Logs:     ragrepo.NewMemoryQueryLogRepository(),
		Messages: msgLog,
		Memories: memStore,
		Embedder: &stubEmbedder{},
		LLM:      llm,
		Logger:   ragTestLogger(),
	})

	maxTokens := 6
	resp, err := svc.Ask(context.Background(), 7, rag.AskRequest{
		Query:            "latest question",
		SessionID:        &sessionID,
		MaxHistoryTokens: &maxTokens,
	})
	require.NoError(t, err)
	require.Equal(t, 5, resp.UsedHistoryTokens)
	require.GreaterOrEqual(t, len(llm.lastMessages), 2)
	require.Equal(t, "assistant", llm.lastMessages[len(llm.lastMessages)-2].Role)
}

func baseRagConfig() rag.Config {
	return rag.Config{
		VectorDim:       3,
		MaxFileBytes:    0,
		MaxRetrieved:    4,
		MaxPreviewChars: 120,
		Memory: rag.MemoryConfig{
			Enabled:            false,
			TopKMems:           2,
			MaxHistoryTokens:   8,
			MemoryVectorDim:    3,
			SummaryEveryNTurns: 0,
			PruneLimit:         2,
		},
	}
}

type stubChunkRepo struct {
	results       []rag.RetrievedChunk
	lastEmbedding []float32
}

func (s *stubChunkRepo) InsertBatch(ctx context.Context, chunks []rag.DocumentChunk) error {
	return nil
}
func (s *stubChunkRepo) SearchSimilar(ctx context.Context, userID int64, embedding []float32, filter rag.DocumentFilter) ([]rag.RetrievedChunk, error) {
	s.lastEmbedding = append([]float32(nil), embedding...)
	return s.results, nil
}

type stubMemoryStore struct {
	records       []rag.RetrievedMemory
	searchCalled  int
	lastEmbedding []float32
	upserts       []rag.MemoryRecord
	prunes        int
}

func (s *stubMemoryStore) Upsert(ctx context.Context, mem rag.MemoryRecord) error {
	s.upserts = append(s.upserts, mem)
	return nil
}

func (s *stubMemoryStore) Search(ctx context.Context, userID int64, sessionID uuid.UUID, embedding []float32, k int) ([]rag.RetrievedMemory, error) {
	s.searchCalled++
	s.lastEmbedding = append([]float32(nil), embedding...)
	if k > 0 && len(s.records) > k {
		return s.records[:k], nil
	}
	return s.records, nil
}

func (s *stubMemoryStore) Prune(ctx context.Context, userID int64, sessionID *uuid.UUID, limit int) error {
	s.prunes++
	return nil
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = []float32{1, 0, float32(i)}
	}
	return result, nil
}

type stubLLM struct {
	response     string
	lastMessages []rag.LLMMessage
}

func (s *stubLLM) Chat(ctx context.Context, messages []rag.LLMMessage) (string, error) {
	s.lastMessages = messages
	if s.response != "" {
		return s.response, nil
	}
	return "stub-answer", nil
}

func newRagService(cfg rag.Config, chunkRepo rag.ChunkRepository, memStore rag.MemoryStore, msgLog rag.MessageLog, embedder rag.Embedder, llm rag.LLM) *rag.Service {
	return rag.NewService(cfg, rag.Dependencies{
		Docs:     ragrepo.NewMemoryDocumentRepository(),
		Files:    ragrepo.NewMemoryFileRepository(),
		Chunks:   chunkRepo,
		Sessions: ragrepo.NewMemoryQASessionRepository(),
		Logs:     ragrepo.NewMemoryQueryLogRepository(),
		Messages: msgLog,
		Memories: memStore,
		Embedder: embedder,
		LLM:      llm,
		Logger:   ragTestLogger(),
	})
}

func ragTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
