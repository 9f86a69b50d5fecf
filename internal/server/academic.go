package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	academicdomain "github.com/vidyalaya/feeledger/internal/academic/domain"
)

type createStudentRequest struct {
	AdmissionNo string `json:"admission_no"`
	Name        string `json:"name"`
	ClassName   string `json:"class_name"`
	Guardian    string `json:"guardian"`
	Phone       string `json:"phone"`
}

func (s *Server) CreateStudent(c *gin.Context) {
	var req createStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	student, err := s.academicSvc.CreateStudent(c.Request.Context(), academicdomain.CreateStudentRequest{
		AdmissionNo: req.AdmissionNo,
		Name:        req.Name,
		ClassName:   req.ClassName,
		Guardian:    req.Guardian,
		Phone:       req.Phone,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, student)
}

func (s *Server) GetStudent(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid student id"))
		return
	}
	student, err := s.academicSvc.GetStudent(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, student)
}

func (s *Server) ListStudents(c *gin.Context) {
	students, err := s.academicSvc.ListStudents(c.Request.Context(), strings.TrimSpace(c.Query("class_name")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

type createSessionRequest struct {
	Label      string `json:"label"`
	StartYear  int    `json:"start_year"`
	StartMonth int    `json:"start_month"`
}

func (s *Server) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	session, err := s.academicSvc.CreateSession(c.Request.Context(), academicdomain.CreateSessionRequest{
		Label:      req.Label,
		StartYear:  req.StartYear,
		StartMonth: req.StartMonth,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (s *Server) ListSessions(c *gin.Context) {
	sessions, err := s.academicSvc.ListSessions(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}
