package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	paymentdomain "github.com/vidyalaya/feeledger/internal/payment/domain"
	"github.com/vidyalaya/feeledger/pkg/db/pagination"
)

type allocatePaymentRequest struct {
	StudentID     string         `json:"student_id"`
	SessionID     string         `json:"session_id"`
	Amount        int64          `json:"amount"`
	Method        string         `json:"method"`
	PaymentDate   string         `json:"payment_date"`
	TransactionID string         `json:"transaction_id"`
	Metadata      map[string]any `json:"metadata"`
}

func (s *Server) AllocatePayment(c *gin.Context) {
	var req allocatePaymentRequest
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

	var paymentDate time.Time
	if raw := strings.TrimSpace(req.PaymentDate); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			AbortWithError(c, newValidationError("payment_date", "invalid_payment_date", "invalid payment_date"))
			return
		}
		paymentDate = parsed
	}

	var transactionID *string
	if raw := strings.TrimSpace(req.TransactionID); raw != "" {
		transactionID = &raw
	}

	result, err := s.paymentSvc.Allocate(c.Request.Context(), paymentdomain.AllocateRequest{
		StudentID:     studentID,
		SessionID:     sessionID,
		Amount:        req.Amount,
		Method:        req.Method,
		PaymentDate:   paymentDate,
		TransactionID: transactionID,
		Metadata:      req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

func (s *Server) GetPayment(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid payment id"))
		return
	}
	detail, err := s.paymentSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

type listPaymentsQuery struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
	StudentID string `form:"student_id"`
	SessionID string `form:"session_id"`
}

func (s *Server) ListPayments(c *gin.Context) {
	var query listPaymentsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var studentID, sessionID snowflake.ID
	if raw := strings.TrimSpace(query.StudentID); raw != "" {
		id, ok := parseID(raw)
		if !ok {
			AbortWithError(c, newValidationError("student_id", "invalid_student_id", "invalid student id"))
			return
		}
		studentID = id
	}
	if raw := strings.TrimSpace(query.SessionID); raw != "" {
		id, ok := parseID(raw)
		if !ok {
			AbortWithError(c, newValidationError("session_id", "invalid_session_id", "invalid session id"))
			return
		}
		sessionID = id
	}

	resp, err := s.paymentSvc.List(c.Request.Context(), paymentdomain.ListRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
		StudentID: studentID,
		SessionID: sessionID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type reversePaymentRequest struct {
	ReasonCode string `json:"reason_code"`
	Scope      string `json:"scope"`
	ActorID    string `json:"actor_id"`
	Lines      []struct {
		MonthlyTrackingID string `json:"monthly_tracking_id"`
		Amount            int64  `json:"amount"`
	} `json:"lines"`
}

func (s *Server) ReversePayment(c *gin.Context) {
	paymentID, ok := parseID(c.Param("id"))
	if !ok {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid payment id"))
		return
	}

	var req reversePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	lines := make([]paymentdomain.ReversalLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		trackingID, ok := parseID(line.MonthlyTrackingID)
		if !ok {
			AbortWithError(c, newValidationError("lines", "invalid_monthly_tracking_id", "invalid monthly tracking id"))
			return
		}
		lines = append(lines, paymentdomain.ReversalLine{
			MonthlyTrackingID: trackingID,
			Amount:            line.Amount,
		})
	}

	var actorID *string
	if raw := strings.TrimSpace(req.ActorID); raw != "" {
		actorID = &raw
	}

	result, err := s.paymentSvc.Reverse(c.Request.Context(), paymentdomain.ReverseRequest{
		PaymentID:  paymentID,
		ReasonCode: req.ReasonCode,
		Scope:      req.Scope,
		Lines:      lines,
		ActorID:    actorID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (s *Server) ListReversalReasons(c *gin.Context) {
	reasons, err := s.paymentSvc.ListReversalReasons(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reversal_reasons": reasons})
}
