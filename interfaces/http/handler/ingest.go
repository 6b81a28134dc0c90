package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"solidity-audit-bot/application"
	"solidity-audit-bot/domain"
	"solidity-audit-bot/infrastructure"
	"solidity-audit-bot/infrastructure/logging"
	"solidity-audit-bot/interfaces/http/response"
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// IngestHandler adapts HTTP requests into pipeline calls: uploads, ingestion
// by deployed address, search and stats.
type IngestHandler struct {
	ingestion   *application.IngestionService
	etherscan   *infrastructure.EtherscanClient // nil when the feature is unconfigured
	conv        *domain.Conversation
	maxFileSize int64
	allowedExts []string
	logger      *slog.Logger
}

// NewIngestHandler creates the handler. etherscan may be nil, in which case
// ingestion by address reports the feature as unavailable.
func NewIngestHandler(ingestion *application.IngestionService, etherscan *infrastructure.EtherscanClient, conv *domain.Conversation, maxFileSize int64, allowedExts []string) *IngestHandler {
	return &IngestHandler{
		ingestion:   ingestion,
		etherscan:   etherscan,
		conv:        conv,
		maxFileSize: maxFileSize,
		allowedExts: allowedExts,
		logger:      logging.NewModuleLogger("http", "ingest_handler"),
	}
}

// Upload handles POST /api/v1/upload. Extension, size and content encoding
// are validated before anything reaches the pipeline.
func (h *IngestHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "missing file field")
		return
	}

	if fileHeader.Size > h.maxFileSize {
		response.Fail(c, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("File too large. Maximum size: %.1fMB", float64(h.maxFileSize)/(1024*1024)))
		return
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !h.extensionAllowed(ext) {
		response.Fail(c, http.StatusBadRequest,
			fmt.Sprintf("Invalid file type. Allowed: %s", strings.Join(h.allowedExts, ", ")))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "could not open upload")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxFileSize+1))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "could not read upload")
		return
	}
	if int64(len(data)) > h.maxFileSize {
		response.Fail(c, http.StatusRequestEntityTooLarge, "File too large")
		return
	}
	if !validText(data) {
		response.Fail(c, http.StatusBadRequest, "File must be valid UTF-8 text")
		return
	}

	result, err := h.ingestion.IngestContract(c.Request.Context(), fileHeader.Filename, string(data))
	if err != nil {
		h.logger.Error("Upload ingestion failed", "error", err)
		response.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	response.OK(c, gin.H{
		"message":      ingestMessage(result.Action),
		"file_hash":    result.FileHash,
		"chunks_added": result.ChunksAdded,
		"action":       result.Action,
	})
}

// IngestAddressRequest names a deployed contract to fetch and ingest.
type IngestAddressRequest struct {
	Address string `json:"address" binding:"required"`
}

// IngestAddress handles POST /api/v1/ingest-address: fetch verified source
// from Etherscan and run it through the pipeline.
func (h *IngestHandler) IngestAddress(c *gin.Context) {
	if h.etherscan == nil {
		response.Fail(c, http.StatusServiceUnavailable, "address ingestion is not configured (set ETHERSCAN_API_KEY)")
		return
	}

	var req IngestAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if !addressPattern.MatchString(req.Address) {
		response.Fail(c, http.StatusBadRequest, "invalid contract address")
		return
	}

	source, err := h.etherscan.FetchSource(c.Request.Context(), req.Address)
	if err != nil {
		h.logger.Error("Source fetch failed", "address", req.Address, "error", err)
		response.Fail(c, http.StatusBadGateway, err.Error())
		return
	}

	path := fmt.Sprintf("%s_%s.sol", source.ContractName, req.Address)
	result, err := h.ingestion.IngestContract(c.Request.Context(), path, source.SourceCode)
	if err != nil {
		h.logger.Error("Address ingestion failed", "address", req.Address, "error", err)
		response.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	response.OK(c, gin.H{
		"message":       ingestMessage(result.Action),
		"contract_name": source.ContractName,
		"file_hash":     result.FileHash,
		"chunks_added":  result.ChunksAdded,
		"action":        result.Action,
	})
}

// IngestBatchRequest carries multiple named contracts.
type IngestBatchRequest struct {
	Contracts []domain.ContractFile `json:"contracts" binding:"required,min=1,dive"`
}

// IngestBatch handles POST /api/v1/ingest-batch.
func (h *IngestHandler) IngestBatch(c *gin.Context) {
	var req IngestBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	outcomes := h.ingestion.IngestBatch(c.Request.Context(), req.Contracts)
	response.OK(c, gin.H{
		"results": outcomes,
		"count":   len(outcomes),
	})
}

// Search handles GET /api/v1/search?query=&k=.
func (h *IngestHandler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		response.Fail(c, http.StatusBadRequest, "Query cannot be empty")
		return
	}

	k := 0
	if raw := c.Query("k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			response.Fail(c, http.StatusBadRequest, "k must be a non-negative integer")
			return
		}
		k = parsed
	}

	results, err := h.ingestion.Search(c.Request.Context(), query, k)
	if err != nil {
		h.logger.Error("Search failed", "error", err)
		response.Fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	response.OK(c, gin.H{
		"query":   query,
		"results": results,
		"count":   len(results),
	})
}

// Stats handles GET /api/v1/stats: vector store stats plus the conversation
// summary.
func (h *IngestHandler) Stats(c *gin.Context) {
	stats, err := h.ingestion.Stats(c.Request.Context())
	if err != nil {
		h.logger.Error("Stats retrieval failed", "error", err)
		response.Fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	response.OK(c, gin.H{
		"database":     stats,
		"conversation": h.conv.Summary(),
	})
}

// Health handles GET /health, probing the vector store.
func (h *IngestHandler) Health(c *gin.Context) {
	_, err := h.ingestion.Stats(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusServiceUnavailable, fmt.Sprintf("vector store unreachable: %s", err))
		return
	}

	response.OK(c, gin.H{
		"status": "healthy",
		"services": gin.H{
			"ingestion": "active",
			"chatbot":   "active",
			"vector_db": "connected",
		},
	})
}

func (h *IngestHandler) extensionAllowed(ext string) bool {
	for _, allowed := range h.allowedExts {
		if ext == allowed {
			return true
		}
	}
	return false
}

func ingestMessage(action string) string {
	if action == domain.ActionSkipped {
		return "Contract already exists in database"
	}
	return "Contract successfully ingested"
}
