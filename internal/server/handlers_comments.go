package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Pragadees15/sport-backend/pkg/models"
)

func (s *Server) handleCreateComment(c *gin.Context) {
	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.writeError(c, fmt.Errorf("invalid post id"))
		return
	}

	var req models.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("invalid request: %w", err))
		return
	}

	comment, err := s.commentsSvc.CreateComment(c.Request.Context(), postID, s.currentUserID(c), &req)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusCreated, comment)
}

func (s *Server) handleListComments(c *gin.Context) {
	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.writeError(c, fmt.Errorf("invalid post id"))
		return
	}

	limit, offset := pagination(c)
	list, total, err := s.commentsSvc.ListComments(c.Request.Context(), postID, limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, gin.H{"comments": list, "total": total})
}

func (s *Server) handleDeleteComment(c *gin.Context) {
	commentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.writeError(c, fmt.Errorf("invalid comment id"))
		return
	}

	if err := s.commentsSvc.DeleteComment(c.Request.Context(), commentID, s.currentUserID(c), false); err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, gin.H{"message": "comment deleted"})
}

func (s *Server) handleLikeComment(c *gin.Context) {
	commentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.writeError(c, fmt.Errorf("invalid comment id"))
		return
	}

	if err := s.commentsSvc.LikeComment(c.Request.Context(), commentID, s.currentUserID(c)); err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, gin.H{"message": "liked"})
}

func (s *Server) handleUnlikeComment(c *gin.Context) {
	commentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.writeError(c, fmt.Errorf("invalid comment id"))
		return
	}

	if err := s.commentsSvc.UnlikeComment(c.Request.Context(), commentID, s.currentUserID(c)); err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, gin.H{"message": "unliked"})
}
