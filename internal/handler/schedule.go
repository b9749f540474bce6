package handler

import (
	"net/http"
	"strings"

	"github.com/ZeldaFan0225/expense-flow/internal/models"
	"github.com/ZeldaFan0225/expense-flow/internal/store"
	"github.com/ZeldaFan0225/expense-flow/internal/util"

	"github.com/gin-gonic/gin"
)

// ScheduleHandler manages import schedule configurations. The actual
// fetching runs elsewhere; this only keeps the definitions.
type ScheduleHandler struct {
	Schedules *store.ScheduleStore
}

func NewScheduleHandler(schedules *store.ScheduleStore) *ScheduleHandler {
	return &ScheduleHandler{Schedules: schedules}
}

func scheduleResp(schedule *models.ImportSchedule) gin.H {
	return gin.H{
		"id":        schedule.ID,
		"name":      schedule.Name,
		"mode":      schedule.Mode,
		"template":  schedule.Template,
		"frequency": schedule.Frequency,
		"sourceUrl": schedule.SourceURL,
		"lastRunAt": schedule.LastRunAt,
		"nextRunAt": schedule.NextRunAt,
		"createdAt": schedule.CreatedAt,
	}
}

func (h *ScheduleHandler) List(c *gin.Context) {
	auth := requireAuth(c)
	if auth == nil {
		return
	}

	schedules, err := h.Schedules.List(c.Request.Context(), auth.User.ID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	items := make([]gin.H, 0, len(schedules))
	for i := range schedules {
		items = append(items, scheduleResp(&schedules[i]))
	}
	util.Success(c, util.Response{"schedules": items})
}

type scheduleReq struct {
	Name      string `json:"name" binding:"required,max=128"`
	Mode      string `json:"mode" binding:"max=32"`
	Template  string `json:"template" binding:"max=64"`
	Frequency string `json:"frequency" binding:"max=32"`
	SourceURL string `json:"sourceUrl" binding:"max=512"`
}

func (h *ScheduleHandler) Create(c *gin.Context) {
	auth := requireAuth(c)
	if auth == nil {
		return
	}

	var req scheduleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		util.Error(c, http.StatusBadRequest, "invalid name: is empty")
		return
	}

	schedule := models.ImportSchedule{
		UserID:    auth.User.ID,
		Name:      req.Name,
		Mode:      req.Mode,
		Template:  req.Template,
		Frequency: req.Frequency,
		SourceURL: req.SourceURL,
	}
	if err := h.Schedules.Create(c.Request.Context(), &schedule); err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"schedule": scheduleResp(&schedule)})
}

func (h *ScheduleHandler) Update(c *gin.Context) {
	auth := requireAuth(c)
	if auth == nil {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req scheduleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := c.Request.Context()
	schedule, err := h.Schedules.Get(ctx, auth.User.ID, id)
	if err != nil {
		util.Fail(c, err)
		return
	}
	schedule.Name = strings.TrimSpace(req.Name)
	schedule.Mode = req.Mode
	schedule.Template = req.Template
	schedule.Frequency = req.Frequency
	schedule.SourceURL = req.SourceURL

	if err := h.Schedules.Save(ctx, schedule); err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"schedule": scheduleResp(schedule)})
}

func (h *ScheduleHandler) Delete(c *gin.Context) {
	auth := requireAuth(c)
	if auth == nil {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.Schedules.Delete(c.Request.Context(), auth.User.ID, id); err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"deleted": true})
}
