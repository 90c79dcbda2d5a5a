package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// errorBody is the error half of the response envelope
type errorBody struct {
	Message string `json:"message"`
}

// mapError maps service error messages to HTTP status codes
func mapError(err error) int {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "invalid credentials"),
		strings.Contains(msg, "invalid token"),
		strings.Contains(msg, "token revoked"),
		strings.Contains(msg, "unauthorized"):
		return http.StatusUnauthorized
	case strings.Contains(msg, "forbidden"),
		strings.Contains(msg, "banned"):
		return http.StatusForbidden
	case strings.Contains(msg, "not found"):
		return http.StatusNotFound
	case strings.Contains(msg, "rate limit"):
		return http.StatusTooManyRequests
	case strings.Contains(msg, "already"),
		strings.Contains(msg, "insufficient"),
		strings.Contains(msg, "cannot"),
		strings.Contains(msg, "invalid"),
		strings.Contains(msg, "required"):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeData writes a success envelope
func (s *Server) writeData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

// writeError writes an error envelope with mapped status
func (s *Server) writeError(c *gin.Context, err error) {
	status := mapError(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", withRequestFields(c, err)...)
	}
	c.JSON(status, gin.H{"success": false, "error": errorBody{Message: err.Error()}})
}

func withRequestFields(c *gin.Context, err error) []zap.Field {
	return []zap.Field{
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	}
}
