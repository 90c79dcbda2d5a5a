package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (s *Server) handleListNotifications(c *gin.Context) {
	limit, offset := pagination(c)
	list, total, err := s.notificationsSvc.List(c.Request.Context(), s.currentUserID(c), limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, gin.H{"notifications": list, "total": total})
}

func (s *Server) handleUnreadCount(c *gin.Context) {
	count, err := s.notificationsSvc.UnreadCount(c.Request.Context(), s.currentUserID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, gin.H{"unread": count})
}

func (s *Server) handleMarkNotificationRead(c *gin.Context) {
	notificationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.writeError(c, fmt.Errorf("invalid notification id"))
		return
	}

	if err := s.notificationsSvc.MarkRead(c.Request.Context(), s.currentUserID(c), notificationID); err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, gin.H{"message": "read"})
}

func (s *Server) handleMarkAllNotificationsRead(c *gin.Context) {
	if err := s.notificationsSvc.MarkAllRead(c.Request.Context(), s.currentUserID(c)); err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, gin.H{"message": "all read"})
}

func (s *Server) handleDeleteNotification(c *gin.Context) {
	notificationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.writeError(c, fmt.Errorf("invalid notification id"))
		return
	}

	if err := s.notificationsSvc.Delete(c.Request.Context(), s.currentUserID(c), notificationID); err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, gin.H{"message": "deleted"})
}
