package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (s *Server) handleAdminListUsers(c *gin.Context) {
	limit, offset := pagination(c)
	list, total, err := s.usersSvc.ListUsers(c.Request.Context(), c.Query("q"), limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, gin.H{"users": list, "total": total})
}

func (s *Server) handleAdminBanUser(c *gin.Context) {
	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.writeError(c, fmt.Errorf("invalid user id"))
		return
	}

	if err := s.usersSvc.SetBanned(c.Request.Context(), targetID, true); err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, gin.H{"message": "user banned"})
}

func (s *Server) handleAdminUnbanUser(c *gin.Context) {
	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.writeError(c, fmt.Errorf("invalid user id"))
		return
	}

	if err := s.usersSvc.SetBanned(c.Request.Context(), targetID, false); err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, gin.H{"message": "user unbanned"})
}

func (s *Server) handleAdminDeletePost(c *gin.Context) {
	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.writeError(c, fmt.Errorf("invalid post id"))
		return
	}

	if err := s.postsSvc.DeletePost(c.Request.Context(), postID, s.currentUserID(c), true); err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, gin.H{"message": "post deleted"})
}

func (s *Server) handleAdminDeleteComment(c *gin.Context) {
	commentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.writeError(c, fmt.Errorf("invalid comment id"))
		return
	}

	if err := s.commentsSvc.DeleteComment(c.Request.Context(), commentID, s.currentUserID(c), true); err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, gin.H{"message": "comment deleted"})
}

func (s *Server) handleAdminListReports(c *gin.Context) {
	limit, offset := pagination(c)
	list, total, err := s.usersSvc.ListReports(c.Request.Context(), c.Query("status"), limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, gin.H{"reports": list, "total": total})
}

func (s *Server) handleAdminResolveReport(c *gin.Context) {
	reportID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.writeError(c, fmt.Errorf("invalid report id"))
		return
	}

	var req struct {
		Status string `json:"status" binding:"required,oneof=resolved dismissed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("invalid request: %w", err))
		return
	}

	if err := s.usersSvc.ResolveReport(c.Request.Context(), s.currentUserID(c), reportID, req.Status); err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, gin.H{"message": "report " + req.Status})
}

func (s *Server) handleAdminGrantTokens(c *gin.Context) {
	var req struct {
		UserID      string  `json:"user_id" binding:"required,uuid"`
		Amount      float64 `json:"amount" binding:"required,gt=0"`
		Description string  `json:"description" binding:"omitempty,max=255"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("invalid request: %w", err))
		return
	}

	targetID, err := uuid.Parse(req.UserID)
	if err != nil {
		s.writeError(c, fmt.Errorf("invalid user id"))
		return
	}

	tx, err := s.tokensSvc.Grant(c.Request.Context(), s.currentUserID(c), targetID, req.Amount, req.Description)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusCreated, tx)
}
