package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	portssvc "github.com/pixamint/credit_ledger_app/internal/core/ports/services"
	"github.com/pixamint/credit_ledger_app/internal/middleware"
)

type ReportingHandler struct {
	reportingService portssvc.ReportingSvc
}

func NewReportingHandler(reportingService portssvc.ReportingSvc) *ReportingHandler {
	return &ReportingHandler{reportingService: reportingService}
}

// GetUsageSummary godoc
// @Summary Get the caller's credit usage summary
// @Description Aggregates granted and consumed credits over a window (default: trailing 30 days)
// @Tags reporting
// @Produce  json
// @Param   from query string false "Window start (RFC3339)"
// @Param   to query string false "Window end (RFC3339)"
// @Success 200 {object} domain.UsageSummary
// @Failure 400 {object} map[string]string
// @Router /credits/summary [get]
func (h *ReportingHandler) GetUsageSummary(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromCtx(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	now := time.Now()
	from := now.AddDate(0, 0, -30)
	to := now

	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'from' timestamp, expected RFC3339"})
			return
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'to' timestamp, expected RFC3339"})
			return
		}
		to = parsed
	}

	summary, err := h.reportingService.GetUsageSummary(c.Request.Context(), userID, from, to)
	if err != nil {
		respondCreditError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
