package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/creatorkit/internal/apperr"
	"github.com/timmy/creatorkit/internal/logger"
)

// respondError writes {"error": message} with the status mapped from err.
// Uncoded errors are logged and answered with a generic message.
func respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= 500 {
		logger.FromContext(c.Request.Context()).WithError(err).Error("Request failed")
	}
	c.JSON(status, gin.H{"error": apperr.MessageOf(err)})
}
