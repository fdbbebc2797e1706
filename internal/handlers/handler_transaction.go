package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/SscSPs/checkout_ledger_app/internal/apperrors"
	"github.com/SscSPs/checkout_ledger_app/internal/core/domain"
	portsrepo "github.com/SscSPs/checkout_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/checkout_ledger_app/internal/core/ports/services"
	"github.com/SscSPs/checkout_ledger_app/internal/dto"
	"github.com/SscSPs/checkout_ledger_app/internal/middleware"
	"github.com/SscSPs/checkout_ledger_app/internal/utils/pagination"
	"github.com/gin-gonic/gin"
)

// transactionHandler handles HTTP requests for the checkout lifecycle.
type transactionHandler struct {
	transactionService portssvc.TransactionSvcFacade
}

func newTransactionHandler(ts portssvc.TransactionSvcFacade) *transactionHandler {
	return &transactionHandler{transactionService: ts}
}

// registerTransactionRoutes registers routes related to transactions.
func registerTransactionRoutes(rg *gin.RouterGroup, ts portssvc.TransactionSvcFacade) {
	h := newTransactionHandler(ts)
	approvers := middleware.RequirePermission(domain.PermissionApprove)

	txns := rg.Group("/transactions")
	{
		txns.POST("", h.checkout)
		txns.GET("", h.listTransactions)
		txns.GET("/:transactionID", h.getTransaction)
		txns.POST("/:transactionID/approve", approvers, h.approve)
		txns.POST("/:transactionID/reject", approvers, h.reject)
		txns.POST("/:transactionID/cancel", h.cancel)
		txns.POST("/:transactionID/return", h.returnItem)
		txns.POST("/:transactionID/extensions", h.requestExtension)
		txns.POST("/:transactionID/storage-photo", h.recordStoragePhoto)
	}
}

// checkout godoc
// @Summary Request a checkout
// @Description Creates a pending checkout or reservation. Stock is deducted on approval.
// @Tags transactions
// @Accept  json
// @Produce  json
// @Param   request body dto.CheckoutRequest true "Checkout details"
// @Success 201 {object} dto.TransactionResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid input or insufficient availability"
// @Failure 404 {object} dto.ErrorResponse "Item or user not found"
// @Security BearerAuth
// @Router /transactions [post]
func (h *transactionHandler) checkout(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	logger.Info("Received checkout request", slog.String("item_id", req.ItemID), slog.Int("quantity", req.Quantity))

	txn, err := h.transactionService.Checkout(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err, "create checkout request")
		return
	}
	c.JSON(http.StatusCreated, dto.ToTransactionResponse(txn))
}

// listTransactions godoc
// @Summary List transactions
// @Description Members only see their own transactions
// @Tags transactions
// @Produce  json
// @Param   status query string false "Status filter"
// @Param   search query string false "Search in number, purpose and destination"
// @Param   limit query int false "Page size"
// @Param   nextToken query string false "Token from the previous page"
// @Success 200 {object} dto.ListTransactionsResponse
// @Security BearerAuth
// @Router /transactions [get]
func (h *transactionHandler) listTransactions(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var params dto.ListTransactionsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, err)
		return
	}

	txns, err := h.transactionService.ListTransactions(c.Request.Context(), actor, portsrepo.Filter{
		"status":            params.Status,
		"type":              params.Type,
		"item":              params.Item,
		"user":              params.User,
		portsrepo.SearchKey: params.Search,
	})
	if err != nil {
		respondError(c, err, "list transactions")
		return
	}

	page, next, err := pagination.Page(txns, func(t *domain.Transaction) (time.Time, string) { return t.CreatedAt, t.ID }, params.Limit, params.NextToken)
	if err != nil {
		respondError(c, apperrors.Validation("%s", err.Error()), "list transactions")
		return
	}
	c.JSON(http.StatusOK, dto.ListTransactionsResponse{
		Transactions: dto.ToListTransactionResponse(page),
		NextToken:    next,
	})
}

func (h *transactionHandler) getTransaction(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	view, err := h.transactionService.GetTransaction(c.Request.Context(), actor, c.Param("transactionID"))
	if err != nil {
		respondError(c, err, "retrieve transaction")
		return
	}

	res := dto.TransactionDetailResponse{
		TransactionResponse: dto.ToTransactionResponse(&view.Transaction),
		User:                dto.ToUserSummary(view.User),
	}
	if view.Item != nil {
		item := dto.ToItemResponse(view.Item)
		res.Item = &item
	}
	c.JSON(http.StatusOK, res)
}

// approve godoc
// @Summary Approve a checkout request
// @Tags transactions
// @Produce  json
// @Param   transactionID path string true "Transaction ID"
// @Success 200 {object} dto.TransactionResponse
// @Failure 400 {object} dto.ErrorResponse "Insufficient availability"
// @Failure 403 {object} dto.ErrorResponse "Missing approve capability"
// @Failure 409 {object} dto.ErrorResponse "Transaction is not pending"
// @Security BearerAuth
// @Router /transactions/{transactionID}/approve [post]
func (h *transactionHandler) approve(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	txn, err := h.transactionService.Approve(c.Request.Context(), actor, c.Param("transactionID"))
	if err != nil {
		respondError(c, err, "approve transaction")
		return
	}
	c.JSON(http.StatusOK, dto.ToTransactionResponse(txn))
}

func (h *transactionHandler) reject(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req dto.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	txn, err := h.transactionService.Reject(c.Request.Context(), actor, c.Param("transactionID"), req.Reason)
	if err != nil {
		respondError(c, err, "reject transaction")
		return
	}
	c.JSON(http.StatusOK, dto.ToTransactionResponse(txn))
}

func (h *transactionHandler) cancel(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req dto.CancelRequest
	// The body is optional.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}
	txn, err := h.transactionService.Cancel(c.Request.Context(), actor, c.Param("transactionID"), req.Reason)
	if err != nil {
		respondError(c, err, "cancel transaction")
		return
	}
	c.JSON(http.StatusOK, dto.ToTransactionResponse(txn))
}

// returnItem godoc
// @Summary Return a checked out item
// @Description Releases the stock. Late returns get a late fee.
// @Tags transactions
// @Accept  json
// @Produce  json
// @Param   transactionID path string true "Transaction ID"
// @Param   request body dto.ReturnRequest false "Return details"
// @Success 200 {object} dto.TransactionResponse
// @Failure 400 {object} dto.ErrorResponse "Storage photo missing"
// @Failure 409 {object} dto.ErrorResponse "Transaction is not on loan"
// @Security BearerAuth
// @Router /transactions/{transactionID}/return [post]
func (h *transactionHandler) returnItem(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req dto.ReturnRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}
	txn, err := h.transactionService.ReturnItem(c.Request.Context(), actor, c.Param("transactionID"), req)
	if err != nil {
		respondError(c, err, "return item")
		return
	}
	c.JSON(http.StatusOK, dto.ToTransactionResponse(txn))
}

func (h *transactionHandler) requestExtension(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req dto.ExtensionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	ext, err := h.transactionService.RequestExtension(c.Request.Context(), actor, c.Param("transactionID"), req)
	if err != nil {
		respondError(c, err, "request extension")
		return
	}
	c.JSON(http.StatusCreated, dto.ToExtensionResponse(*ext))
}

func (h *transactionHandler) recordStoragePhoto(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	txn, err := h.transactionService.RecordStoragePhoto(c.Request.Context(), actor, c.Param("transactionID"))
	if err != nil {
		respondError(c, err, "record storage photo")
		return
	}
	c.JSON(http.StatusOK, dto.ToTransactionResponse(txn))
}
