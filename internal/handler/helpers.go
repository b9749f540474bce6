package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ZeldaFan0225/expense-flow/internal/middleware"
	"github.com/ZeldaFan0225/expense-flow/internal/util"

	"github.com/gin-gonic/gin"
)

// requireAuth returns the gate's identity, writing a 401 when it is
// missing. Callers must return on nil.
func requireAuth(c *gin.Context) *middleware.Auth {
	auth := middleware.CurrentAuth(c)
	if auth == nil {
		util.Error(c, http.StatusUnauthorized, "Unauthorized")
	}
	return auth
}

// parseID reads a positive integer path parameter, writing a 400 when it
// is malformed.
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		util.Error(c, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseDate(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
