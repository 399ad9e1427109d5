package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"DineLine/utils"

	"github.com/gin-gonic/gin"
)

// ErrorHandlerMiddleware renders the last error a handler attached to the context.
func ErrorHandlerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		var customErr *utils.CustomError
		if errors.As(err, &customErr) {
			utils.ErrorResponse(c, customErr.StatusCode, customErr.Message)
			return
		}

		status := utils.StatusFor(err)
		if status == http.StatusInternalServerError {
			logger.Error("request failed", "path", c.FullPath(), "error", err)
			utils.ErrorResponse(c, status, "Internal Server Error")
			return
		}
		utils.ErrorResponse(c, status, err.Error())
	}
}
