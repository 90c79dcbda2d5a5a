package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Pragadees15/sport-backend/pkg/models"
)

func (s *Server) handleCreateConversation(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required,uuid"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("invalid request: %w", err))
		return
	}

	otherID, err := uuid.Parse(req.UserID)
	if err != nil {
		s.writeError(c, fmt.Errorf("invalid user id"))
		return
	}

	conversation, err := s.chatSvc.CreateConversation(c.Request.Context(), s.currentUserID(c), otherID)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, conversation)
}

func (s *Server) handleListConversations(c *gin.Context) {
	limit, offset := pagination(c)
	list, err := s.chatSvc.ListConversations(c.Request.Context(), s.currentUserID(c), limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, list)
}

func (s *Server) handleSendMessage(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.writeError(c, fmt.Errorf("invalid conversation id"))
		return
	}

	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("invalid request: %w", err))
		return
	}

	message, err := s.chatSvc.SendMessage(c.Request.Context(), conversationID, s.currentUserID(c), &req)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusCreated, message)
}

func (s *Server) handleListMessages(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.writeError(c, fmt.Errorf("invalid conversation id"))
		return
	}

	limit, offset := pagination(c)
	list, err := s.chatSvc.ListMessages(c.Request.Context(), conversationID, s.currentUserID(c), limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, list)
}

func (s *Server) handleMarkConversationRead(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.writeError(c, fmt.Errorf("invalid conversation id"))
		return
	}

	if err := s.chatSvc.MarkRead(c.Request.Context(), conversationID, s.currentUserID(c)); err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, gin.H{"message": "read"})
}
