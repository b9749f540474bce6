package handler

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/ZeldaFan0225/expense-flow/internal/models"
	"github.com/ZeldaFan0225/expense-flow/internal/store"
	"github.com/ZeldaFan0225/expense-flow/internal/util"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandler serves login and registration.
type AuthHandler struct {
	Users     *store.UserStore
	JWTSecret string
	TokenTTL  time.Duration
	ActiveKey int
}

func NewAuthHandler(users *store.UserStore, jwtSecret string, ttlHours, activeKeyVersion int) *AuthHandler {
	if ttlHours <= 0 {
		ttlHours = 24
	}
	return &AuthHandler{
		Users:     users,
		JWTSecret: jwtSecret,
		TokenTTL:  time.Duration(ttlHours) * time.Hour,
		ActiveKey: activeKeyVersion,
	}
}

type registerReq struct {
	Username        string `json:"username" binding:"required"`
	Password        string `json:"password" binding:"required"`
	DisplayName     string `json:"displayName" binding:"max=64"`
	DefaultCurrency string `json:"defaultCurrency" binding:"max=8"`
}

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if !usernameRe.MatchString(req.Username) {
		util.Error(c, http.StatusBadRequest, "invalid username: must be 3-20 letters, digits or underscores")
		return
	}
	if len(req.Password) < 8 || len(req.Password) > 64 {
		util.Error(c, http.StatusBadRequest, "invalid password: must be 8-64 characters")
		return
	}

	taken, err := h.Users.UsernameTaken(c.Request.Context(), req.Username)
	if err != nil {
		util.Fail(c, err)
		return
	}
	if taken {
		util.Error(c, http.StatusBadRequest, "invalid username: already taken")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), 12)
	if err != nil {
		util.Fail(c, err)
		return
	}

	currency := strings.ToUpper(strings.TrimSpace(req.DefaultCurrency))
	if currency == "" {
		currency = "EUR"
	}
	user := models.User{
		Username:             req.Username,
		PasswordHash:         string(hash),
		DisplayName:          req.DisplayName,
		DefaultCurrency:      currency,
		EncryptionKeyVersion: h.ActiveKey,
	}
	if err := h.Users.Create(c.Request.Context(), &user); err != nil {
		util.Fail(c, err)
		return
	}

	util.Success(c, util.Response{
		"user": userResp(&user),
	})
}

type loginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.Users.FindByUsername(c.Request.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		// Same response as a bad password; do not confirm the username.
		util.Error(c, http.StatusUnauthorized, "invalid username or password")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		util.Error(c, http.StatusUnauthorized, "invalid username or password")
		return
	}

	token, err := util.GenerateToken(h.JWTSecret, user.ID, h.TokenTTL)
	if err != nil {
		util.Fail(c, err)
		return
	}

	c.SetCookie("ef_token", token, int(h.TokenTTL.Seconds()), "/", "", false, true)
	util.Success(c, util.Response{
		"token": token,
		"user":  userResp(user),
	})
}

func userResp(user *models.User) gin.H {
	return gin.H{
		"id":              user.ID,
		"username":        user.Username,
		"displayName":     user.DisplayName,
		"defaultCurrency": user.DefaultCurrency,
		"createdAt":       user.CreatedAt,
	}
}
