package util

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Response is the success payload shape.
type Response map[string]interface{}

// Success writes a 200 with the given payload.
func Success(c *gin.Context, data Response) {
	c.JSON(http.StatusOK, data)
}

// Error writes `{"error": msg}` with the given status.
func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

// Fail maps an error from the taxonomy to its HTTP response. Anything
// unrecognized becomes a generic 500; the detail goes to the log only.
func Fail(c *gin.Context, err error) {
	var vErr *ValidationError
	var rlErr *RateLimitError

	switch {
	case errors.As(err, &vErr):
		Error(c, http.StatusBadRequest, vErr.Error())
	case errors.As(err, &rlErr):
		c.Header("Retry-After", strconv.Itoa(rlErr.RetryAfter))
		Error(c, http.StatusTooManyRequests, "Rate limit exceeded")
	case errors.Is(err, ErrUnauthorized):
		Error(c, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, ErrForbidden):
		Error(c, http.StatusForbidden, "Forbidden")
	case errors.Is(err, ErrNotFound):
		Error(c, http.StatusNotFound, "Not found")
	default:
		// Decryption failures land here on purpose: fatal, logged, opaque.
		logrus.WithFields(logrus.Fields{
			"path":   c.FullPath(),
			"method": c.Request.Method,
		}).WithError(err).Error("request failed")
		Error(c, http.StatusInternalServerError, "Internal Server Error")
	}
}
