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

// accountHandler handles HTTP requests related to accounts.
type accountHandler struct {
	accountService  portssvc.AccountSvcFacade
	transferService portssvc.TransactionQuerySvc
}

// newAccountHandler creates a new accountHandler.
func newAccountHandler(as portssvc.AccountSvcFacade, ts portssvc.TransactionQuerySvc) *accountHandler {
	return &accountHandler{
		accountService:  as,
		transferService: ts,
	}
}

// RegisterAccountRoutes registers routes related to accounts.
func RegisterAccountRoutes(rg *gin.RouterGroup, accountService portssvc.AccountSvcFacade, transferService portssvc.TransactionQuerySvc) {
	h := newAccountHandler(accountService, transferService)

	accounts := rg.Group("/accounts")
	{
		accounts.GET("/:accountID", h.getAccount)
		accounts.GET("/:accountID/transactions", h.listRecentTransactions)
	}
	rg.GET("/users/:userID/account", h.getAccountByUser)
}

// getAccount godoc
// @Summary Get an account by ID
// @Description Retrieves a display snapshot of an account's balance
// @Tags accounts
// @Produce  json
// @Param   accountID path string true "Account ID"
// @Success 200 {object} dto.AccountResponse
// @Failure 404 {object} map[string]string "Account not found"
// @Failure 500 {object} map[string]string "Failed to retrieve account"
// @Router /accounts/{accountID} [get]
func (h *accountHandler) getAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID := c.Param("accountID")
	logger = logger.With(slog.String("target_account_id", accountID))

	account, err := h.accountService.GetAccountByID(c.Request.Context(), accountID)
	if err != nil {
		h.renderLookupError(c, logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToAccountResponse(account))
}

// getAccountByUser godoc
// @Summary Get a user's account
// @Description Retrieves a display snapshot of the account owned by a user
// @Tags accounts
// @Produce  json
// @Param   userID path string true "User ID"
// @Success 200 {object} dto.AccountResponse
// @Failure 404 {object} map[string]string "Account not found"
// @Failure 500 {object} map[string]string "Failed to retrieve account"
// @Router /users/{userID}/account [get]
func (h *accountHandler) getAccountByUser(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID := c.Param("userID")
	logger = logger.With(slog.String("user_id", userID))

	account, err := h.accountService.GetAccountByUserID(c.Request.Context(), userID)
	if err != nil {
		h.renderLookupError(c, logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToAccountResponse(account))
}

// listRecentTransactions godoc
// @Summary List recent transactions for an account
// @Description Retrieves the newest transactions where the account is sender or receiver
// @Tags accounts
// @Produce  json
// @Param   accountID path string true "Account ID"
// @Param   count query int false "Number of transactions" default(10)
// @Success 200 {object} dto.ListTransactionsResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 404 {object} map[string]string "Account not found"
// @Failure 500 {object} map[string]string "Failed to list transactions"
// @Router /accounts/{accountID}/transactions [get]
func (h *accountHandler) listRecentTransactions(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID := c.Param("accountID")
	logger = logger.With(slog.String("target_account_id", accountID))

	var params dto.ListRecentTransactionsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query params for ListRecentTransactions", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, bindingErrorBody(err))
		return
	}

	txns, err := h.transferService.ListRecentTransactions(c.Request.Context(), accountID, params.Count)
	if err != nil {
		h.renderLookupError(c, logger, err)
		return
	}

	logger.Debug("Recent transactions listed", slog.Int("count", len(txns)))
	c.JSON(http.StatusOK, dto.ToListTransactionsResponse(txns))
}

func (h *accountHandler) renderLookupError(c *gin.Context, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		logger.Warn("Account not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
	case errors.Is(err, apperrors.ErrValidation):
		logger.Warn("Invalid account lookup", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Error("Failed to look up account", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve account"})
	}
}
