// Package response writes JSON error bodies for gin handlers and binds
// request bodies through the shared validator.
package response

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"bookhub/internal/apperr"
	"bookhub/internal/validation"
)

// Error writes {"error": msg} with the status of err's code, adding
// "details" for validation failures. Internal causes are logged, never sent.
func Error(c *gin.Context, log *slog.Logger, err error) {
	status := apperr.HTTPStatus(err)
	if status >= 500 && log != nil {
		log.Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
	}

	body := gin.H{"error": apperr.PublicMessage(err)}
	if details := apperr.DetailsOf(err); details != nil {
		body["details"] = details
	}
	c.AbortWithStatusJSON(status, body)
}

// BindJSON decodes the body into dst and validates it.
func BindJSON(c *gin.Context, v *validation.Validator, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return apperr.Validation("invalid json")
	}
	return v.Validate(dst)
}
