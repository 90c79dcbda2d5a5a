package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Pragadees15/sport-backend/pkg/models"
)

func (s *Server) handleGetMe(c *gin.Context) {
	user, err := s.identitiesSvc.GetUser(c.Request.Context(), s.currentUserID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, user)
}

func (s *Server) handleUpdateMe(c *gin.Context) {
	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("invalid request: %w", err))
		return
	}

	user, err := s.usersSvc.UpdateProfile(c.Request.Context(), s.currentUserID(c), &req)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, user)
}

func (s *Server) handleGetProfile(c *gin.Context) {
	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.writeError(c, fmt.Errorf("invalid user id"))
		return
	}

	profile, err := s.usersSvc.GetProfile(c.Request.Context(), targetID, s.currentUserID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, profile)
}

func (s *Server) handleSearchUsers(c *gin.Context) {
	limit, offset := pagination(c)
	profiles, err := s.usersSvc.SearchUsers(c.Request.Context(), s.currentUserID(c), c.Query("q"), limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, profiles)
}

func (s *Server) handleFollow(c *gin.Context) {
	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.writeError(c, fmt.Errorf("invalid user id"))
		return
	}

	if err := s.usersSvc.Follow(c.Request.Context(), s.currentUserID(c), targetID); err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, gin.H{"message": "following"})
}

func (s *Server) handleUnfollow(c *gin.Context) {
	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.writeError(c, fmt.Errorf("invalid user id"))
		return
	}

	if err := s.usersSvc.Unfollow(c.Request.Context(), s.currentUserID(c), targetID); err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, gin.H{"message": "unfollowed"})
}

func (s *Server) handleListFollowers(c *gin.Context) {
	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.writeError(c, fmt.Errorf("invalid user id"))
		return
	}

	limit, offset := pagination(c)
	profiles, err := s.usersSvc.ListFollowers(c.Request.Context(), targetID, limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, profiles)
}

func (s *Server) handleListFollowing(c *gin.Context) {
	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.writeError(c, fmt.Errorf("invalid user id"))
		return
	}

	limit, offset := pagination(c)
	profiles, err := s.usersSvc.ListFollowing(c.Request.Context(), targetID, limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, profiles)
}

func (s *Server) handleBlock(c *gin.Context) {
	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.writeError(c, fmt.Errorf("invalid user id"))
		return
	}

	if err := s.usersSvc.Block(c.Request.Context(), s.currentUserID(c), targetID); err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, gin.H{"message": "blocked"})
}

func (s *Server) handleUnblock(c *gin.Context) {
	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.writeError(c, fmt.Errorf("invalid user id"))
		return
	}

	if err := s.usersSvc.Unblock(c.Request.Context(), s.currentUserID(c), targetID); err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, gin.H{"message": "unblocked"})
}

func (s *Server) handleReportUser(c *gin.Context) {
	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.writeError(c, fmt.Errorf("invalid user id"))
		return
	}

	var req models.ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("invalid request: %w", err))
		return
	}

	report, err := s.usersSvc.Report(c.Request.Context(), s.currentUserID(c), targetID, req.Reason)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusCreated, report)
}
