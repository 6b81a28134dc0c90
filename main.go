package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"solidity-audit-bot/application"
	"solidity-audit-bot/config"
	"solidity-audit-bot/domain"
	"solidity-audit-bot/infrastructure"
	"solidity-audit-bot/infrastructure/embedding"
	"solidity-audit-bot/infrastructure/logging"
	"solidity-audit-bot/infrastructure/vectorstore"
	httpapi "solidity-audit-bot/interfaces/http"
	"solidity-audit-bot/interfaces/http/handler"
	"solidity-audit-bot/interfaces/http/middleware"
)

// main wires the audit bot together: configuration (fatal when required
// secrets are missing), the collaborator clients, explicit vector store
// initialization, the services and the HTTP server.
func main() {
	logging.Init(nil)
	logger := logging.NewModuleLogger("main", "startup")

	settings, err := config.Load()
	if err != nil {
		fmt.Printf("Error: %s\n", err.Error())
		os.Exit(1)
	}

	completionClient, err := infrastructure.NewAnthropicClient(settings.AnthropicAPIKey, settings.Temperature, settings.MaxTokens)
	if err != nil {
		fmt.Printf("Error: %s\n", err.Error())
		os.Exit(1)
	}

	embeddingClient, err := embedding.NewOpenAIEmbeddingClient(settings.OpenAIAPIKey, settings.EmbeddingModel)
	if err != nil {
		fmt.Printf("Error: %s\n", err.Error())
		os.Exit(1)
	}

	store, err := vectorstore.NewQdrantClient(settings.QdrantAddr, settings.CollectionName, settings.EmbeddingDim, settings.SimilarityMetric)
	if err != nil {
		fmt.Printf("Error: %s\n", err.Error())
		os.Exit(1)
	}

	// Collection setup is an explicit startup step, not a side effect of
	// the first query.
	initCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := store.Init(initCtx); err != nil {
		cancel()
		fmt.Printf("Error: failed to initialize vector store: %s\n", err.Error())
		os.Exit(1)
	}
	cancel()

	var etherscanClient *infrastructure.EtherscanClient
	if settings.EtherscanAPIKey != "" {
		etherscanClient, err = infrastructure.NewEtherscanClient(settings.EtherscanAPIKey)
		if err != nil {
			fmt.Printf("Error: %s\n", err.Error())
			os.Exit(1)
		}
	} else {
		logger.Info("ETHERSCAN_API_KEY not set, address ingestion disabled")
	}

	parser := domain.NewSolidityParser()
	ingestionService := application.NewIngestionService(parser, embeddingClient, store,
		settings.ChunkSize, settings.ChunkOverlap, settings.TopKResults)
	auditService := application.NewAuditService(ingestionService, completionClient, settings.TopKResults)

	conversation := domain.NewConversation()
	auditHandler := handler.NewAuditHandler(auditService, conversation)
	ingestHandler := handler.NewIngestHandler(ingestionService, etherscanClient, conversation,
		settings.MaxFileSize, settings.AllowedExtensions)

	limiter := middleware.NewRateLimiter(settings.RateLimitRequests, settings.RateLimitWindow)
	server := httpapi.NewServer(auditHandler, ingestHandler, limiter, settings.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("Smart contract audit bot started", "addr", settings.HTTPAddr)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Printf("Error: %s\n", err.Error())
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error: %s\n", err.Error())
			os.Exit(1)
		}
	}
}
