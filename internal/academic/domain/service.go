package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateStudentRequest struct {
	AdmissionNo string
	Name        string
	ClassName   string
	Guardian    string
	Phone       string
}

type CreateSessionRequest struct {
	Label      string
	StartYear  int
	StartMonth int
}

type Service interface {
	CreateStudent(ctx context.Context, req CreateStudentRequest) (Student, error)
	GetStudent(ctx context.Context, id snowflake.ID) (Student, error)
	ListStudents(ctx context.Context, className string) ([]Student, error)

	CreateSession(ctx context.Context, req CreateSessionRequest) (Session, error)
	GetSession(ctx context.Context, id snowflake.ID) (Session, error)
	ListSessions(ctx context.Context) ([]Session, error)
}

var (
	ErrStudentNotFound   = errors.New("student_not_found")
	ErrSessionNotFound   = errors.New("session_not_found")
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidClass      = errors.New("invalid_class")
	ErrInvalidAdmission  = errors.New("invalid_admission_no")
	ErrInvalidStartMonth = errors.New("invalid_start_month")
	ErrDuplicateStudent  = errors.New("duplicate_admission_no")
	ErrDuplicateSession  = errors.New("duplicate_session")
)
