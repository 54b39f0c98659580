package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shelfhub/pkg/apperr"
)

// All endpoints share the {success, message?, data} envelope; errors carry
// the HTTP status resolved from the error kind.
func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": data})
}

func respondMessage(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message, "data": data})
}

func respondError(c *gin.Context, err error) {
	c.JSON(apperr.StatusOf(err), gin.H{"success": false, "message": apperr.MessageOf(err)})
}

func badRequest(c *gin.Context, message string) {
	respondError(c, apperr.BadRequest(message))
}
