package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Pragadees15/sport-backend/pkg/models"
)

func (s *Server) handleGetTokenAccount(c *gin.Context) {
	account, err := s.tokensSvc.GetAccount(c.Request.Context(), s.currentUserID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, account)
}

func (s *Server) handleListTokenTransactions(c *gin.Context) {
	limit, offset := pagination(c)
	list, total, err := s.tokensSvc.GetTransactions(c.Request.Context(), s.currentUserID(c), limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, gin.H{"transactions": list, "total": total})
}

func (s *Server) handleEarnTokens(c *gin.Context) {
	var req struct {
		Amount      float64 `json:"amount" binding:"required,gt=0"`
		Reference   string  `json:"reference" binding:"omitempty,max=255"`
		Description string  `json:"description" binding:"omitempty,max=255"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("invalid request: %w", err))
		return
	}

	tx, err := s.tokensSvc.Earn(c.Request.Context(), s.currentUserID(c), req.Amount, req.Reference, req.Description)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusCreated, tx)
}

func (s *Server) handleSpendTokens(c *gin.Context) {
	var req struct {
		Amount      float64 `json:"amount" binding:"required,gt=0"`
		Reference   string  `json:"reference" binding:"omitempty,max=255"`
		Description string  `json:"description" binding:"omitempty,max=255"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("invalid request: %w", err))
		return
	}

	tx, err := s.tokensSvc.Spend(c.Request.Context(), s.currentUserID(c), req.Amount, req.Reference, req.Description)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusCreated, tx)
}

func (s *Server) handleTipTokens(c *gin.Context) {
	var req models.TipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("invalid request: %w", err))
		return
	}

	toUserID, err := uuid.Parse(req.ToUserID)
	if err != nil {
		s.writeError(c, fmt.Errorf("invalid user id"))
		return
	}

	if err := s.tokensSvc.Tip(c.Request.Context(), s.currentUserID(c), toUserID, req.Amount, req.Message); err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, gin.H{"message": "tipped"})
}
