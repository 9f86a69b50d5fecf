package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	feedomain "github.com/vidyalaya/feeledger/internal/feestructure/domain"
)

type createFeeStructureRequest struct {
	ClassName      string           `json:"class_name"`
	SessionID      string           `json:"session_id"`
	Components     map[string]int64 `json:"components"`
	TotalAnnualFee int64            `json:"total_annual_fee"`
}

func (s *Server) CreateFeeStructure(c *gin.Context) {
	var req createFeeStructureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	sessionID, ok := parseID(req.SessionID)
	if !ok {
		AbortWithError(c, newValidationError("session_id", "invalid_session_id", "invalid session id"))
		return
	}

	structure, err := s.feeSvc.Create(c.Request.Context(), feedomain.CreateRequest{
		ClassName:      req.ClassName,
		SessionID:      sessionID,
		Components:     req.Components,
		TotalAnnualFee: req.TotalAnnualFee,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, structure)
}

func (s *Server) LatestFeeStructure(c *gin.Context) {
	sessionID, ok := parseID(c.Query("session_id"))
	if !ok {
		AbortWithError(c, newValidationError("session_id", "invalid_session_id", "invalid session id"))
		return
	}
	structure, err := s.feeSvc.Latest(c.Request.Context(), c.Query("class_name"), sessionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, structure)
}

func (s *Server) ListFeeStructures(c *gin.Context) {
	var sessionID snowflake.ID
	if raw := c.Query("session_id"); raw != "" {
		id, ok := parseID(raw)
		if !ok {
			AbortWithError(c, newValidationError("session_id", "invalid_session_id", "invalid session id"))
			return
		}
		sessionID = id
	}
	structures, err := s.feeSvc.List(c.Request.Context(), sessionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fee_structures": structures})
}
