package handler

import (
	"github.com/ZeldaFan0225/expense-flow/internal/recurring"
	"github.com/ZeldaFan0225/expense-flow/internal/report"
	"github.com/ZeldaFan0225/expense-flow/internal/util"

	"github.com/gin-gonic/gin"
)

// AnalyticsHandler serves derived reports. Reads catch up recurring
// templates first so reports never miss due periods.
type AnalyticsHandler struct {
	Engine       *report.Engine
	Materializer *recurring.Materializer
}

func NewAnalyticsHandler(engine *report.Engine, materializer *recurring.Materializer) *AnalyticsHandler {
	return &AnalyticsHandler{Engine: engine, Materializer: materializer}
}

// CategoryLimits reports the month's spend against each configured
// category ceiling. The month query parameter is YYYY-MM and defaults to
// the current month.
func (h *AnalyticsHandler) CategoryLimits(c *gin.Context) {
	auth := requireAuth(c)
	if auth == nil {
		return
	}
	ctx := c.Request.Context()

	if err := h.Materializer.CatchUp(ctx, auth.User.ID); err != nil {
		util.Fail(c, err)
		return
	}

	month := h.Engine.ParseMonth(c.Query("month"))
	limitReport, err := h.Engine.CategoryLimitReport(ctx, auth.User.ID, month)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"report": limitReport})
}

// Summary returns the month's income, expense impact, and balance.
func (h *AnalyticsHandler) Summary(c *gin.Context) {
	auth := requireAuth(c)
	if auth == nil {
		return
	}
	ctx := c.Request.Context()

	if err := h.Materializer.CatchUp(ctx, auth.User.ID); err != nil {
		util.Fail(c, err)
		return
	}

	month := h.Engine.ParseMonth(c.Query("month"))
	summary, err := h.Engine.Summary(ctx, auth.User.ID, month)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"summary": summary})
}
