package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"solidity-audit-bot/domain"
	"solidity-audit-bot/infrastructure/logging"
)

// AuditService is the conversational orchestrator. Each operation retrieves
// relevant contract chunks (when available), assembles a bounded prompt and
// delegates to the completion collaborator. Collaborator failures are
// returned as errors, never retried; a failed retrieval only degrades the
// context and never blocks the conversation.
type AuditService struct {
	ingestion  *IngestionService
	completion domain.CompletionClient
	topK       int
	tokens     *TokenCounter
	logger     *slog.Logger
}

// NewAuditService wires the orchestrator to the pipeline and the completion
// collaborator.
func NewAuditService(ingestion *IngestionService, completion domain.CompletionClient, topK int) *AuditService {
	return &AuditService{
		ingestion:  ingestion,
		completion: completion,
		topK:       topK,
		tokens:     NewTokenCounter(),
		logger:     logging.NewModuleLogger("audit", "service"),
	}
}

// ChatResult is the outcome of a successful chat turn.
type ChatResult struct {
	Response    string `json:"response"`
	ContextUsed bool   `json:"context_used"`
	Timestamp   string `json:"timestamp"`
}

// AnalysisResult is the outcome of a full security analysis.
type AnalysisResult struct {
	Analysis     string `json:"analysis"`
	ContractHash string `json:"contract_hash"`
	Timestamp    string `json:"timestamp"`
}

// ImprovementResult is the outcome of an improvement suggestion request.
type ImprovementResult struct {
	Improvements string `json:"improvements"`
	Timestamp    string `json:"timestamp"`
}

// ExplanationResult is the outcome of a vulnerability explanation request.
type ExplanationResult struct {
	Explanation       string `json:"explanation"`
	VulnerabilityType string `json:"vulnerability_type"`
	Timestamp         string `json:"timestamp"`
}

// relevantContext retrieves and formats top-K chunks for a query. Retrieval
// failures and empty stores degrade to no context.
func (s *AuditService) relevantContext(ctx context.Context, query string) string {
	results, err := s.ingestion.Search(ctx, query, s.topK)
	if err != nil {
		s.logger.Warn("Context retrieval failed, continuing without context",
			"error", err,
		)
		return ""
	}
	return formatContext(results, s.tokens)
}

// Chat answers a user message, optionally grounding it in retrieved contract
// context, carrying the trailing window of prior turns. On success the
// conversation grows by exactly two entries: the user message and the reply.
func (s *AuditService) Chat(ctx context.Context, conv *domain.Conversation, userMessage string, includeContext bool) (ChatResult, error) {
	contractContext := ""
	if includeContext {
		contractContext = s.relevantContext(ctx, userMessage)
	}

	prompt, err := buildAuditMessages(userMessage, contractContext)
	if err != nil {
		return ChatResult{}, err
	}

	messages := append(conv.Window(), prompt...)

	reply, err := s.completion.Complete(ctx, messages)
	if err != nil {
		return ChatResult{}, fmt.Errorf("chat failed: %w", err)
	}

	conv.Append(domain.RoleUser, userMessage)
	conv.Append(domain.RoleAssistant, reply)

	return ChatResult{
		Response:    reply,
		ContextUsed: contractContext != "",
		Timestamp:   time.Now().Format(time.RFC3339),
	}, nil
}

// AnalyzeContract ingests the contract under a synthetic path so retrieval
// can see it, then asks the model for a comprehensive security audit.
func (s *AuditService) AnalyzeContract(ctx context.Context, contractContent string) (AnalysisResult, error) {
	tempPath := fmt.Sprintf("temp_analysis_%d.sol", time.Now().UnixNano())
	if _, err := s.ingestion.IngestContract(ctx, tempPath, contractContent); err != nil {
		// Analysis can still proceed on whatever context already exists.
		s.logger.Warn("Temporary ingestion for analysis failed",
			"error", err,
		)
	}

	query := fmt.Sprintf(`Perform a comprehensive security audit of this smart contract:

%s

Focus on:
1. Critical vulnerabilities (reentrancy, access control, etc.)
2. Gas optimization opportunities
3. Best practices compliance
4. Potential attack vectors`, truncateRunes(contractContent, 2000))

	analysis, err := s.completeWithContext(ctx, query, query)
	if err != nil {
		return AnalysisResult{}, fmt.Errorf("analysis failed: %w", err)
	}

	return AnalysisResult{
		Analysis:     analysis,
		ContractHash: s.ingestion.FileHash(contractContent),
		Timestamp:    time.Now().Format(time.RFC3339),
	}, nil
}

// SuggestImprovements asks the model for concrete improvements to a
// contract, grounded in retrieved context.
func (s *AuditService) SuggestImprovements(ctx context.Context, contractContent string) (ImprovementResult, error) {
	query := fmt.Sprintf(`Analyze this smart contract and suggest specific improvements:

%s

Focus on:
1. Code optimization and gas efficiency
2. Security enhancements
3. Readability and maintainability
4. Standard compliance (ERC-20, ERC-721, etc.)
5. Testing and deployment considerations`, truncateRunes(contractContent, 1500))

	improvements, err := s.completeWithContext(ctx, query, query)
	if err != nil {
		return ImprovementResult{}, fmt.Errorf("improvement analysis failed: %w", err)
	}

	return ImprovementResult{
		Improvements: improvements,
		Timestamp:    time.Now().Format(time.RFC3339),
	}, nil
}

// ExplainVulnerability asks the model to explain a vulnerability class, with
// retrieval keyed on the vulnerability name rather than the full question.
func (s *AuditService) ExplainVulnerability(ctx context.Context, vulnerabilityType string) (ExplanationResult, error) {
	query := fmt.Sprintf(`Provide a detailed explanation of the %s vulnerability in smart contracts:

1. What is it and how does it work?
2. Common scenarios where it occurs
3. Example vulnerable code patterns
4. How to detect it
5. Prevention and mitigation strategies
6. Real-world examples if applicable`, vulnerabilityType)

	retrievalQuery := fmt.Sprintf("%s vulnerability smart contract", vulnerabilityType)

	explanation, err := s.completeWithContext(ctx, query, retrievalQuery)
	if err != nil {
		return ExplanationResult{}, fmt.Errorf("vulnerability explanation failed: %w", err)
	}

	return ExplanationResult{
		Explanation:       explanation,
		VulnerabilityType: vulnerabilityType,
		Timestamp:         time.Now().Format(time.RFC3339),
	}, nil
}

// completeWithContext runs the retrieve-assemble-complete sequence for the
// single-shot operations that do not touch conversation history.
func (s *AuditService) completeWithContext(ctx context.Context, query, retrievalQuery string) (string, error) {
	contractContext := s.relevantContext(ctx, retrievalQuery)

	messages, err := buildAuditMessages(query, contractContext)
	if err != nil {
		return "", err
	}

	return s.completion.Complete(ctx, messages)
}
