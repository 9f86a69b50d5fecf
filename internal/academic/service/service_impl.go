package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/vidyalaya/feeledger/internal/academic/domain"
	pkgdb "github.com/vidyalaya/feeledger/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("academic.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) CreateStudent(ctx context.Context, req domain.CreateStudentRequest) (domain.Student, error) {
	req.AdmissionNo = strings.TrimSpace(req.AdmissionNo)
	req.Name = strings.TrimSpace(req.Name)
	req.ClassName = strings.TrimSpace(req.ClassName)
	if req.AdmissionNo == "" {
		return domain.Student{}, domain.ErrInvalidAdmission
	}
	if req.Name == "" {
		return domain.Student{}, domain.ErrInvalidName
	}
	if req.ClassName == "" {
		return domain.Student{}, domain.ErrInvalidClass
	}

	now := time.Now().UTC()
	student := domain.Student{
		ID:          s.genID.Generate(),
		AdmissionNo: req.AdmissionNo,
		Name:        req.Name,
		ClassName:   req.ClassName,
		Guardian:    strings.TrimSpace(req.Guardian),
		Phone:       strings.TrimSpace(req.Phone),
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.InsertStudent(ctx, s.db, &student); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return domain.Student{}, domain.ErrDuplicateStudent
		}
		return domain.Student{}, err
	}

	s.log.Info("student created",
		zap.String("student_id", student.ID.String()),
		zap.String("class", student.ClassName),
	)
	return student, nil
}

func (s *Service) GetStudent(ctx context.Context, id snowflake.ID) (domain.Student, error) {
	student, err := s.repo.FindStudent(ctx, s.db, id)
	if err != nil {
		return domain.Student{}, err
	}
	if student == nil {
		return domain.Student{}, domain.ErrStudentNotFound
	}
	return *student, nil
}

func (s *Service) ListStudents(ctx context.Context, className string) ([]domain.Student, error) {
	return s.repo.ListStudents(ctx, s.db, strings.TrimSpace(className))
}

func (s *Service) CreateSession(ctx context.Context, req domain.CreateSessionRequest) (domain.Session, error) {
	req.Label = strings.TrimSpace(req.Label)
	if req.Label == "" {
		return domain.Session{}, domain.ErrInvalidName
	}
	if req.StartMonth < 1 || req.StartMonth > 12 {
		return domain.Session{}, domain.ErrInvalidStartMonth
	}

	session := domain.Session{
		ID:         s.genID.Generate(),
		Label:      req.Label,
		StartYear:  req.StartYear,
		StartMonth: req.StartMonth,
		Active:     true,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.InsertSession(ctx, s.db, &session); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return domain.Session{}, domain.ErrDuplicateSession
		}
		return domain.Session{}, err
	}
	return session, nil
}

func (s *Service) GetSession(ctx context.Context, id snowflake.ID) (domain.Session, error) {
	session, err := s.repo.FindSession(ctx, s.db, id)
	if err != nil {
		return domain.Session{}, err
	}
	if session == nil {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return *session, nil
}

func (s *Service) ListSessions(ctx context.Context) ([]domain.Session, error) {
	return s.repo.ListSessions(ctx, s.db)
}
