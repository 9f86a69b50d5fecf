package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	obligationdomain "github.com/vidyalaya/feeledger/internal/obligation/domain"
)

type enableTrackingRequest struct {
	StudentID      string `json:"student_id"`
	SessionID      string `json:"session_id"`
	DisabledMonths []int  `json:"disabled_months"`
}

func (s *Server) EnableTracking(c *gin.Context) {
	var req enableTrackingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	studentID, ok := parseID(req.StudentID)
	if !ok {
		AbortWithError(c, newValidationError("student_id", "invalid_student_id", "invalid student id"))
		return
	}
	sessionID, ok := parseID(req.SessionID)
	if !ok {
		AbortWithError(c, newValidationError("session_id", "invalid_session_id", "invalid session id"))
		return
	}

	status, err := s.obligationSvc.EnableTracking(c.Request.Context(), obligationdomain.EnableRequest{
		StudentID:      studentID,
		SessionID:      sessionID,
		DisabledMonths: req.DisabledMonths,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, status)
}

func (s *Server) GetFeeStatus(c *gin.Context) {
	studentID, ok := parseID(c.Query("student_id"))
	if !ok {
		AbortWithError(c, newValidationError("student_id", "invalid_student_id", "invalid student id"))
		return
	}
	sessionID, ok := parseID(c.Query("session_id"))
	if !ok {
		AbortWithError(c, newValidationError("session_id", "invalid_session_id", "invalid session id"))
		return
	}

	status, err := s.obligationSvc.GetStatus(c.Request.Context(), studentID, sessionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) Reconcile(c *gin.Context) {
	sessionID, ok := parseID(c.Query("session_id"))
	if !ok {
		AbortWithError(c, newValidationError("session_id", "invalid_session_id", "invalid session id"))
		return
	}

	drifts, err := s.obligationSvc.Reconcile(c.Request.Context(), sessionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": sessionID.String(),
		"clean":      len(drifts) == 0,
		"drifts":     drifts,
	})
}
