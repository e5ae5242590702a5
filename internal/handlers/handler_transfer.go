package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	portssvc "github.com/SscSPs/ledger_engine/internal/core/ports/services"
	"github.com/SscSPs/ledger_engine/internal/dto"
	"github.com/SscSPs/ledger_engine/internal/middleware"
	"github.com/gin-gonic/gin"
)

// ReplayedHeader is set on responses served from a previously recorded outcome.
const ReplayedHeader = "Idempotent-Replayed"

// transferHandler handles HTTP requests related to transfers and their transactions.
type transferHandler struct {
	transferService portssvc.TransferSvcFacade
}

// newTransferHandler creates a new transferHandler.
func newTransferHandler(ts portssvc.TransferSvcFacade) *transferHandler {
	return &transferHandler{
		transferService: ts,
	}
}

// RegisterTransferRoutes registers the transfer and transaction lookup routes.
func RegisterTransferRoutes(rg *gin.RouterGroup, transferService portssvc.TransferSvcFacade) {
	h := newTransferHandler(transferService)

	rg.POST("/transfers", middleware.CaptureIdempotencyKey(), h.createTransfer)
	rg.GET("/transactions/:transactionID", h.getTransaction)
}

// createTransfer godoc
// @Summary Transfer funds between two accounts
// @Description Moves an amount from one account to another exactly once per idempotency key.
// @Description The key is read from the body, then the Idempotency-Key header; without either one is derived from the request.
// @Tags transfers
// @Accept  json
// @Produce  json
// @Param   Idempotency-Key header string false "Idempotency key"
// @Param   transfer body dto.TransferRequest true "Transfer details"
// @Success 200 {object} dto.TransferResponse
// @Failure 400 {object} map[string]string "Invalid input format or validation error"
// @Failure 422 {object} dto.TransferResponse "Transfer rejected (insufficient funds, unknown account, ...)"
// @Failure 500 {object} map[string]string "Transfer aborted"
// @Router /transfers [post]
func (h *transferHandler) createTransfer(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for Transfer", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, bindingErrorBody(err))
		return
	}

	headerKey, _ := middleware.GetIdempotencyKeyFromContext(c)
	logger.Info("Received transfer request",
		slog.String("from_account_id", req.FromAccountID),
		slog.String("to_account_id", req.ToAccountID),
		slog.String("amount", req.Amount.String()))

	result, err := h.transferService.Transfer(c.Request.Context(), req.ToDomain(headerKey))
	if err != nil {
		logger.Error("Transfer aborted in service", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Transfer could not be processed"})
		return
	}

	if result.Replayed {
		c.Header(ReplayedHeader, "true")
	}
	if !result.Success {
		c.JSON(http.StatusUnprocessableEntity, dto.ToTransferResponse(result))
		return
	}
	c.JSON(http.StatusOK, dto.ToTransferResponse(result))
}

// getTransaction godoc
// @Summary Get a transaction by ID
// @Description Retrieves a transfer transaction together with its ledger entries
// @Tags transactions
// @Produce  json
// @Param   transactionID path string true "Transaction ID"
// @Success 200 {object} dto.TransactionDetailResponse
// @Failure 404 {object} map[string]string "Transaction not found"
// @Failure 500 {object} map[string]string "Failed to retrieve transaction"
// @Router /transactions/{transactionID} [get]
func (h *transferHandler) getTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	transactionID := c.Param("transactionID")
	logger = logger.With(slog.String("transaction_id", transactionID))

	txn, entries, err := h.transferService.GetTransaction(c.Request.Context(), transactionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Transaction not found")
			c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
		} else {
			logger.Error("Failed to get transaction from service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve transaction"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToTransactionDetailResponse(txn, entries))
}
