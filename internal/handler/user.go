package handler

import (
	"net/http"
	"strings"

	"github.com/ZeldaFan0225/expense-flow/internal/middleware"
	"github.com/ZeldaFan0225/expense-flow/internal/store"
	"github.com/ZeldaFan0225/expense-flow/internal/util"

	"github.com/gin-gonic/gin"
)

// GetMe returns the authenticated user.
func GetMe(c *gin.Context) {
	auth := middleware.CurrentAuth(c)
	if auth == nil {
		util.Error(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	util.Success(c, util.Response{
		"user":   userResp(auth.User),
		"source": auth.Source,
	})
}

type updateSettingsReq struct {
	DisplayName     *string `json:"displayName"`
	DefaultCurrency *string `json:"defaultCurrency"`
}

// UpdateSettings applies partial settings changes. Absent fields are
// left untouched.
func UpdateSettings(users *store.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := middleware.CurrentAuth(c)
		if auth == nil {
			util.Error(c, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req updateSettingsReq
		if err := c.ShouldBindJSON(&req); err != nil {
			util.Error(c, http.StatusBadRequest, "invalid request body")
			return
		}

		fields := map[string]interface{}{}
		if req.DisplayName != nil {
			name := strings.TrimSpace(*req.DisplayName)
			if len(name) > 64 {
				util.Error(c, http.StatusBadRequest, "invalid displayName: too long")
				return
			}
			fields["display_name"] = name
			auth.User.DisplayName = name
		}
		if req.DefaultCurrency != nil {
			currency := strings.ToUpper(strings.TrimSpace(*req.DefaultCurrency))
			if len(currency) != 3 {
				util.Error(c, http.StatusBadRequest, "invalid defaultCurrency: expected a 3 letter code")
				return
			}
			fields["default_currency"] = currency
			auth.User.DefaultCurrency = currency
		}

		if err := users.UpdateSettings(c.Request.Context(), auth.User, fields); err != nil {
			util.Fail(c, err)
			return
		}
		util.Success(c, util.Response{
			"user": userResp(auth.User),
		})
	}
}
