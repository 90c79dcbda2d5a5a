package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleUploadImage(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		s.writeError(c, fmt.Errorf("invalid request: file required"))
		return
	}

	folder := fmt.Sprintf("images/%s", s.currentUserID(c))
	asset, err := s.uploadSvc.UploadImage(c.Request.Context(), file, folder)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusCreated, asset)
}

func (s *Server) handleUploadVideo(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		s.writeError(c, fmt.Errorf("invalid request: file required"))
		return
	}

	folder := fmt.Sprintf("videos/%s", s.currentUserID(c))
	asset, err := s.uploadSvc.UploadVideo(c.Request.Context(), file, folder)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusCreated, asset)
}

func (s *Server) handleDeleteAsset(c *gin.Context) {
	var req struct {
		PublicID  string `json:"public_id" binding:"required"`
		MediaType string `json:"media_type" binding:"required,oneof=image video"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("invalid request: %w", err))
		return
	}

	if err := s.uploadSvc.DeleteAsset(c.Request.Context(), req.PublicID, req.MediaType); err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, gin.H{"message": "deleted"})
}
