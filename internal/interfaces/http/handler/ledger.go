package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	ledgerapp "github.com/terraloan/backend/internal/application/ledger"
	"github.com/terraloan/backend/internal/domain/ledger"
	"github.com/terraloan/backend/internal/domain/shared"
	"github.com/terraloan/backend/internal/interfaces/http/dto"
	"github.com/terraloan/backend/internal/interfaces/http/middleware"
)

// LedgerHandler exposes the cash account endpoints
type LedgerHandler struct {
	BaseHandler
	service *ledgerapp.Service
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(service *ledgerapp.Service) *LedgerHandler {
	return &LedgerHandler{service: service}
}

// RegisterRoutes registers the ledger routes
func (h *LedgerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/ledger")
	{
		group.POST("/accounts", h.CreateAccount)
		group.GET("/accounts", h.ListAccounts)
		group.GET("/accounts/:id", h.GetAccount)
		group.POST("/accounts/:id/deposit", h.Deposit)
		group.POST("/accounts/:id/withdraw", h.Withdraw)
		group.POST("/accounts/:id/adjust", h.AdjustBalance)
		group.POST("/accounts/:id/close", h.CloseAccount)
		group.GET("/accounts/:id/entries", h.ListEntries)
		group.POST("/transfers", h.Transfer)
		group.GET("/balance", h.TotalBalance)
	}
}

// CreateAccountRequest is the payload for account creation
type CreateAccountRequest struct {
	Name           string  `json:"name" binding:"required,min=1,max=200"`
	Description    string  `json:"description" binding:"max=500"`
	OpeningBalance float64 `json:"opening_balance" binding:"gte=0"`
}

// CreateAccount handles POST /ledger/accounts
func (h *LedgerHandler) CreateAccount(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	account, err := h.service.CreateAccount(c.Request.Context(), ledgerapp.CreateAccountRequest{
		Name:           req.Name,
		Description:    req.Description,
		OpeningBalance: toDecimal(req.OpeningBalance),
		Actor:          actor,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, account)
}

// GetAccount handles GET /ledger/accounts/:id
func (h *LedgerHandler) GetAccount(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid account ID")
		return
	}

	account, err := h.service.GetAccount(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, account)
}

// ListAccounts handles GET /ledger/accounts
func (h *LedgerHandler) ListAccounts(c *gin.Context) {
	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	filter := ledger.DefaultAccountFilter()
	filter.Page = req.Page
	filter.PageSize = req.PageSize
	filter.OrderBy = req.OrderBy
	filter.OrderDir = req.OrderDir
	filter.Search = req.Search
	if status := c.Query("status"); status != "" {
		s := ledger.AccountStatus(status)
		filter.Status = &s
	}

	page, err := h.service.ListAccounts(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, filter.Page, filter.PageSize)
}

// MutationRequest is the payload for deposits and withdrawals
type MutationRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
	Note   string  `json:"note" binding:"max=500"`
}

// Deposit handles POST /ledger/accounts/:id/deposit
func (h *LedgerHandler) Deposit(c *gin.Context) {
	h.mutate(c, h.service.Deposit)
}

// Withdraw handles POST /ledger/accounts/:id/withdraw
func (h *LedgerHandler) Withdraw(c *gin.Context) {
	h.mutate(c, h.service.Withdraw)
}

// mutate is shared by Deposit and Withdraw
func (h *LedgerHandler) mutate(c *gin.Context, op func(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, note string, actor shared.Actor) (*ledgerapp.MutationResult, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid account ID")
		return
	}

	actor, err := getActor(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var req MutationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := op(c.Request.Context(), id, toDecimal(req.Amount), req.Note, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// AdjustBalanceRequest is the payload for a balance adjustment
type AdjustBalanceRequest struct {
	NewBalance float64 `json:"new_balance" binding:"gte=0"`
	Note       string  `json:"note" binding:"required,max=500"`
}

// AdjustBalance handles POST /ledger/accounts/:id/adjust
func (h *LedgerHandler) AdjustBalance(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid account ID")
		return
	}

	actor, err := getActor(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var req AdjustBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.service.AdjustBalance(c.Request.Context(), id, toDecimal(req.NewBalance), req.Note, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// CloseAccount handles POST /ledger/accounts/:id/close
func (h *LedgerHandler) CloseAccount(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid account ID")
		return
	}

	actor, err := getActor(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if err := h.service.CloseAccount(c.Request.Context(), id, actor); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// TransferRequest is the payload for a transfer between accounts
type TransferRequest struct {
	FromAccountID string  `json:"from_account_id" binding:"required,uuid"`
	ToAccountID   string  `json:"to_account_id" binding:"required,uuid"`
	Amount        float64 `json:"amount" binding:"required,gt=0"`
	Note          string  `json:"note" binding:"max=500"`
}

// Transfer handles POST /ledger/transfers
func (h *LedgerHandler) Transfer(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	fromID, _ := uuid.Parse(req.FromAccountID)
	toID, _ := uuid.Parse(req.ToAccountID)

	result, err := h.service.Transfer(c.Request.Context(), fromID, toID, toDecimal(req.Amount), req.Note, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// ListEntries handles GET /ledger/accounts/:id/entries
func (h *LedgerHandler) ListEntries(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid account ID")
		return
	}

	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	filter := ledger.DefaultEntryFilter()
	filter.Page = req.Page
	filter.PageSize = req.PageSize
	if category := c.Query("category"); category != "" {
		cat := ledger.EntryCategory(category)
		filter.Category = &cat
	}
	filter.Reference = c.Query("reference")

	page, err := h.service.ListEntries(c.Request.Context(), id, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, filter.Page, filter.PageSize)
}

// TotalBalance handles GET /ledger/balance
func (h *LedgerHandler) TotalBalance(c *gin.Context) {
	total, err := h.service.TotalBalance(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, BalanceData{Balance: total.InexactFloat64()})
}
