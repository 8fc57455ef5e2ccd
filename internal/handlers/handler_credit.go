package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pixamint/credit_ledger_app/internal/apperrors"
	"github.com/pixamint/credit_ledger_app/internal/core/domain"
	portsrepo "github.com/pixamint/credit_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/pixamint/credit_ledger_app/internal/core/ports/services"
	"github.com/pixamint/credit_ledger_app/internal/dto"
	"github.com/pixamint/credit_ledger_app/internal/middleware"
	"github.com/pixamint/credit_ledger_app/internal/utils/pagination"
)

type CreditHandler struct {
	creditService portssvc.CreditSvcFacade
}

func NewCreditHandler(creditService portssvc.CreditSvcFacade) *CreditHandler {
	return &CreditHandler{creditService: creditService}
}

// respondCreditError maps ledger errors onto HTTP statuses. Callers branch on
// error kind, never on message text.
func respondCreditError(c *gin.Context, err error) {
	var insufficient *apperrors.InsufficientCreditsError
	switch {
	case errors.As(err, &insufficient):
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error":     "insufficient credits",
			"balance":   insufficient.Balance,
			"requested": insufficient.Requested,
		})
	case errors.Is(err, apperrors.ErrTooManyBatches):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "credit ledger too fragmented to serve this consumption"})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// ConsumeCredits godoc
// @Summary Consume credits from the caller's balance
// @Description Atomically deducts credits FIFO-by-expiration and writes an itemized consumption entry
// @Tags credits
// @Accept  json
// @Produce  json
// @Param   consumption body dto.ConsumeCreditsRequest true "Consumption"
// @Success 200 {object} dto.CreditResponse
// @Failure 400 {object} map[string]string
// @Failure 402 {object} map[string]interface{}
// @Router /credits/consume [post]
func (h *CreditHandler) ConsumeCredits(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromCtx(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req dto.ConsumeCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}
	req.UserID = userID

	entry, err := h.creditService.ConsumeCredits(c.Request.Context(), req)
	if err != nil {
		respondCreditError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToCreditResponse(entry))
}

// GrantCredits godoc
// @Summary Grant credits to a user
// @Description Inserts a grant entry; invoked by payment, renewal, gift and award flows
// @Tags credits
// @Accept  json
// @Produce  json
// @Param   grant body dto.GrantCreditsRequest true "Grant"
// @Success 201 {object} dto.CreditResponse
// @Failure 400 {object} map[string]string
// @Router /credits/grant [post]
func (h *CreditHandler) GrantCredits(c *gin.Context) {
	var req dto.GrantCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	entry, err := h.creditService.GrantCredits(c.Request.Context(), req)
	if err != nil {
		respondCreditError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToCreditResponse(entry))
}

// RevokeCredits godoc
// @Summary Revoke all active grants of an order
// @Description Used on refunds: flips the order's grants to revoked and zeroes their remaining credit
// @Tags credits
// @Accept  json
// @Produce  json
// @Param   revocation body dto.RevokeCreditsRequest true "Revocation"
// @Success 200 {object} dto.RevokeCreditsResult
// @Failure 400 {object} map[string]string
// @Router /credits/revoke [post]
func (h *CreditHandler) RevokeCredits(c *gin.Context) {
	var req dto.RevokeCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	result, err := h.creditService.RevokeCreditsForOrder(c.Request.Context(), req.OrderNo)
	if err != nil {
		respondCreditError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetBalance godoc
// @Summary Get the caller's remaining credits
// @Description Advisory balance for display and pre-flight checks; consumption re-validates inside its own transaction
// @Tags credits
// @Produce  json
// @Success 200 {object} dto.BalanceResponse
// @Router /credits/balance [get]
func (h *CreditHandler) GetBalance(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromCtx(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	balance, err := h.creditService.GetRemainingCredits(c.Request.Context(), userID)
	if err != nil {
		respondCreditError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.BalanceResponse{UserID: userID, RemainingCredits: balance})
}

// GetBalanceBatch godoc
// @Summary Get remaining credits for several users
// @Description One grouped query; users without usable credit are absent from the map
// @Tags credits
// @Accept  json
// @Produce  json
// @Param   batch body dto.BalanceBatchRequest true "User IDs"
// @Success 200 {object} map[string]int64
// @Failure 400 {object} map[string]string
// @Router /credits/balance/batch [post]
func (h *CreditHandler) GetBalanceBatch(c *gin.Context) {
	var req dto.BalanceBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	balances, err := h.creditService.GetRemainingCreditsBatch(c.Request.Context(), req.UserIDs)
	if err != nil {
		respondCreditError(c, err)
		return
	}
	c.JSON(http.StatusOK, balances)
}

// ListCredits godoc
// @Summary List the caller's ledger entries
// @Description Paginated audit listing, newest first
// @Tags credits
// @Produce  json
// @Param   limit query int false "Page size (default 30, max 100)"
// @Param   offset query int false "Offset"
// @Param   nextToken query string false "Keyset cursor from a previous page"
// @Param   status query string false "Filter by status"
// @Param   type query string false "Filter by transaction type"
// @Success 200 {object} dto.ListCreditsResponse
// @Router /credits [get]
func (h *CreditHandler) ListCredits(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromCtx(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "30"))
	if limit <= 0 || limit > 100 {
		limit = 30
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	filter := portsrepo.CreditListFilter{
		UserID: userID,
		Status: domain.CreditStatus(c.Query("status")),
		Type:   domain.CreditTransactionType(c.Query("type")),
	}
	if token := c.Query("nextToken"); token != "" {
		createdBefore, creditIDBefore, err := pagination.DecodeCursor(token)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter.CreatedBefore = &createdBefore
		filter.CreditIDBefore = creditIDBefore
	}

	entries, err := h.creditService.ListCredits(c.Request.Context(), filter, limit, offset)
	if err != nil {
		respondCreditError(c, err)
		return
	}
	total, err := h.creditService.CountCredits(c.Request.Context(), filter)
	if err != nil {
		respondCreditError(c, err)
		return
	}

	resp := dto.ListCreditsResponse{
		Credits: dto.ToCreditResponses(entries),
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	}
	if len(entries) > 0 && len(entries) >= limit {
		last := entries[len(entries)-1]
		resp.NextToken = pagination.EncodeCursor(last.CreatedAt, last.CreditID)
	}
	c.JSON(http.StatusOK, resp)
}
