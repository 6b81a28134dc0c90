package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"solidity-audit-bot/application"
	"solidity-audit-bot/domain"
	"solidity-audit-bot/infrastructure/logging"
	"solidity-audit-bot/interfaces/http/response"
)

// AuditHandler adapts HTTP requests into orchestrator calls. It owns the
// process-wide conversation session and passes it into each chat turn;
// concurrent chats interleaving on it can reorder the log, an accepted
// limitation of the request-per-call model.
type AuditHandler struct {
	audit  *application.AuditService
	conv   *domain.Conversation
	logger *slog.Logger
}

// NewAuditHandler creates the handler with its owned conversation session.
func NewAuditHandler(audit *application.AuditService, conv *domain.Conversation) *AuditHandler {
	return &AuditHandler{
		audit:  audit,
		conv:   conv,
		logger: logging.NewModuleLogger("http", "audit_handler"),
	}
}

// ChatRequest is the body of a chat turn.
type ChatRequest struct {
	Message        string `json:"message" binding:"required,min=1,max=2000"`
	IncludeContext *bool  `json:"include_context"`
}

// Chat handles POST /api/v1/chat.
func (h *AuditHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	includeContext := true
	if req.IncludeContext != nil {
		includeContext = *req.IncludeContext
	}

	result, err := h.audit.Chat(c.Request.Context(), h.conv, req.Message, includeContext)
	if err != nil {
		h.logger.Error("Chat failed", "error", err)
		response.Fail(c, http.StatusOK, err.Error())
		return
	}

	response.OK(c, result)
}

// AnalysisRequest carries raw contract source for the analysis and
// improvement operations.
type AnalysisRequest struct {
	ContractContent string `json:"contract_content" binding:"required,min=10"`
}

// Analyze handles POST /api/v1/analyze.
func (h *AuditHandler) Analyze(c *gin.Context) {
	var req AnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.audit.AnalyzeContract(c.Request.Context(), req.ContractContent)
	if err != nil {
		h.logger.Error("Analysis failed", "error", err)
		response.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	response.OK(c, result)
}

// Improvements handles POST /api/v1/improvements.
func (h *AuditHandler) Improvements(c *gin.Context) {
	var req AnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.audit.SuggestImprovements(c.Request.Context(), req.ContractContent)
	if err != nil {
		h.logger.Error("Improvement analysis failed", "error", err)
		response.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	response.OK(c, result)
}

// ExplainRequest names a vulnerability class to explain.
type ExplainRequest struct {
	VulnerabilityType string `json:"vulnerability_type" binding:"required,min=1,max=100"`
}

// ExplainVulnerability handles POST /api/v1/explain-vulnerability.
func (h *AuditHandler) ExplainVulnerability(c *gin.Context) {
	var req ExplainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.audit.ExplainVulnerability(c.Request.Context(), req.VulnerabilityType)
	if err != nil {
		h.logger.Error("Vulnerability explanation failed", "error", err)
		response.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	response.OK(c, result)
}

// ClearConversation handles POST /api/v1/clear-conversation, emptying the
// session log to length zero.
func (h *AuditHandler) ClearConversation(c *gin.Context) {
	h.conv.Clear()
	response.OK(c, gin.H{"message": "Conversation history cleared"})
}

// ConversationSummary exposes the session summary for the stats endpoint.
func (h *AuditHandler) ConversationSummary() domain.ConversationSummary {
	return h.conv.Summary()
}
