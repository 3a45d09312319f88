//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/kitchenops/ragqa/internal/bootstrap"
	"github.com/kitchenops/ragqa/internal/domain/auth"
	"github.com/kitchenops/ragqa/internal/domain/faq"
	"github.com/kitchenops/ragqa/internal/domain/summarizer"
	"github.com/kitchenops/ragqa/internal/domain/uvadvisor"
	"github.com/kitchenops/ragqa/internal/infra/config"
	"github.com/kitchenops/ragqa/internal/infra/llm/chatgpt"
	"github.com/kitchenops/ragqa/internal/infra/uv/datagov"
	httpiface "github.com/kitchenops/ragqa/internal/interface/http"
	"github.com/kitchenops/ragqa/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideSummaryConfig,
		provideUVAdvisorConfig,
		provideFAQConfig,
		provideAuthConfig,
		provideChatGPTClient,
		provideUVClient,
		provideFAQRepository,
		provideFAQStore,
		provideAuthRepository,
		provideUploadAskConfig,
		provideUploadStorage,
		provideUploadEmbedder,
		provideUploadChunker,
		provideUploadParserRegistry,
		provideUploadDocumentRepository,
		provideUploadFileRepository,
		provideUploadChunkRepository,
		provideUploadVectorStore,
		provideUploadSessionRepository,
		provideUploadQueryLogRepository,
		provideUploadMessageLog,
		provideUploadMemoryStore,
		provideUploadAccessEvaluator,
		provideUploadRateLimiter,
		provideUploadSessionLocker,
		provideUploadQueue,
		provideUploadLLM,
		provideUploadService,
		summarizer.NewService,
		uvadvisor.NewService,
		faq.NewService,
		auth.NewService,
		wire.Bind(new(summarizer.ChatClient), new(*chatgpt.Client)),
		wire.Bind(new(uvadvisor.ChatClient), new(*chatgpt.Client)),
		wire.Bind(new(uvadvisor.UVClient), new(*datagov.Client)),
		wire.Bind(new(faq.ChatClient), new(*chatgpt.Client)),
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
