package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Pragadees15/sport-backend/pkg/models"
)

func (s *Server) handleCreatePost(c *gin.Context) {
	var req models.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("invalid request: %w", err))
		return
	}

	post, err := s.postsSvc.CreatePost(c.Request.Context(), s.currentUserID(c), &req)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusCreated, post)
}

func (s *Server) handleGetPost(c *gin.Context) {
	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.writeError(c, fmt.Errorf("invalid post id"))
		return
	}

	post, err := s.postsSvc.GetPost(c.Request.Context(), postID, s.currentUserID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, post)
}

func (s *Server) handleUpdatePost(c *gin.Context) {
	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.writeError(c, fmt.Errorf("invalid post id"))
		return
	}

	var req models.UpdatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("invalid request: %w", err))
		return
	}

	post, err := s.postsSvc.UpdatePost(c.Request.Context(), postID, s.currentUserID(c), &req)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, post)
}

func (s *Server) handleDeletePost(c *gin.Context) {
	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.writeError(c, fmt.Errorf("invalid post id"))
		return
	}

	if err := s.postsSvc.DeletePost(c.Request.Context(), postID, s.currentUserID(c), false); err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, gin.H{"message": "post deleted"})
}

func (s *Server) handleListUserPosts(c *gin.Context) {
	authorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.writeError(c, fmt.Errorf("invalid user id"))
		return
	}

	limit, offset := pagination(c)
	list, total, err := s.postsSvc.ListUserPosts(c.Request.Context(), authorID, s.currentUserID(c), limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, gin.H{"posts": list, "total": total})
}

func (s *Server) handleFeed(c *gin.Context) {
	limit, offset := pagination(c)
	feed, err := s.postsSvc.Feed(c.Request.Context(), s.currentUserID(c), limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, feed)
}

func (s *Server) handleLikePost(c *gin.Context) {
	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.writeError(c, fmt.Errorf("invalid post id"))
		return
	}

	if err := s.postsSvc.LikePost(c.Request.Context(), postID, s.currentUserID(c)); err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, gin.H{"message": "liked"})
}

func (s *Server) handleUnlikePost(c *gin.Context) {
	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.writeError(c, fmt.Errorf("invalid post id"))
		return
	}

	if err := s.postsSvc.UnlikePost(c.Request.Context(), postID, s.currentUserID(c)); err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, gin.H{"message": "unliked"})
}

func (s *Server) handleSavePost(c *gin.Context) {
	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.writeError(c, fmt.Errorf("invalid post id"))
		return
	}

	if err := s.postsSvc.SavePost(c.Request.Context(), postID, s.currentUserID(c)); err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, gin.H{"message": "saved"})
}

func (s *Server) handleUnsavePost(c *gin.Context) {
	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.writeError(c, fmt.Errorf("invalid post id"))
		return
	}

	if err := s.postsSvc.UnsavePost(c.Request.Context(), postID, s.currentUserID(c)); err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, gin.H{"message": "unsaved"})
}

func (s *Server) handleListSavedPosts(c *gin.Context) {
	limit, offset := pagination(c)
	list, err := s.postsSvc.ListSavedPosts(c.Request.Context(), s.currentUserID(c), limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, list)
}
