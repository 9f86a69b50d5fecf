package service

import (
	"context"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	academicdomain "github.com/vidyalaya/feeledger/internal/academic/domain"
	"github.com/vidyalaya/feeledger/internal/clock"
	feedomain "github.com/vidyalaya/feeledger/internal/feestructure/domain"
	"github.com/vidyalaya/feeledger/internal/obligation/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const monthsPerSession = 12

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Academic academicdomain.Repository
	FeeRepo  feedomain.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	academic academicdomain.Repository
	feeRepo  feedomain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("obligation.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		academic: p.Academic,
		feeRepo:  p.FeeRepo,
	}
}

func (s *Service) EnableTracking(ctx context.Context, req domain.EnableRequest) (domain.FeeStatus, error) {
	disabled := make(map[int]bool, len(req.DisabledMonths))
	for _, m := range req.DisabledMonths {
		if m < 1 || m > monthsPerSession {
			return domain.FeeStatus{}, domain.ErrInvalidMonth
		}
		disabled[m] = true
	}
	if len(disabled) >= monthsPerSession {
		return domain.FeeStatus{}, domain.ErrInvalidMonth
	}

	student, err := s.academic.FindStudent(ctx, s.db, req.StudentID)
	if err != nil {
		return domain.FeeStatus{}, err
	}
	if student == nil {
		return domain.FeeStatus{}, academicdomain.ErrStudentNotFound
	}
	session, err := s.academic.FindSession(ctx, s.db, req.SessionID)
	if err != nil {
		return domain.FeeStatus{}, err
	}
	if session == nil {
		return domain.FeeStatus{}, academicdomain.ErrSessionNotFound
	}

	structure, err := s.feeRepo.FindLatest(ctx, s.db, student.ClassName, session.ID)
	if err != nil {
		return domain.FeeStatus{}, err
	}
	if structure == nil {
		return domain.FeeStatus{}, domain.ErrNoFeeStructure
	}

	var record domain.FeeRecord
	var months []domain.MonthlyTracking
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindFeeRecord(ctx, tx, req.StudentID, req.SessionID, false)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrAlreadyEnabled
		}

		now := s.clock.Now()
		record = domain.FeeRecord{
			ID:             s.genID.Generate(),
			StudentID:      student.ID,
			SessionID:      session.ID,
			FeeStructureID: structure.ID,
			TotalAmount:    0,
			BalanceAmount:  0,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		amounts := splitAnnualFee(structure.TotalAnnualFee, disabled)
		months = make([]domain.MonthlyTracking, 0, monthsPerSession)
		for academicMonth := 1; academicMonth <= monthsPerSession; academicMonth++ {
			year, month := session.MonthOf(academicMonth)
			amount := amounts[academicMonth-1]
			months = append(months, domain.MonthlyTracking{
				ID:            s.genID.Generate(),
				FeeRecordID:   record.ID,
				StudentID:     student.ID,
				SessionID:     session.ID,
				AcademicMonth: academicMonth,
				CalendarYear:  year,
				CalendarMonth: int(month),
				MonthlyAmount: amount,
				BalanceAmount: amount,
				DueDate:       time.Date(year, month, 10, 0, 0, 0, 0, time.UTC),
				CreatedAt:     now,
				UpdatedAt:     now,
			})
			record.TotalAmount += amount
		}
		record.BalanceAmount = record.TotalAmount

		if err := s.repo.InsertFeeRecord(ctx, tx, &record); err != nil {
			return err
		}
		return s.repo.InsertMonthly(ctx, tx, months)
	})
	if err != nil {
		return domain.FeeStatus{}, err
	}

	s.log.Info("tracking enabled",
		zap.Int64("student_id", int64(student.ID)),
		zap.Int64("session_id", int64(session.ID)),
		zap.Int64("total_amount", record.TotalAmount),
		zap.Int("disabled_months", len(disabled)),
	)
	return buildStatus(record, months), nil
}

// splitAnnualFee divides the annual fee over enabled months, pushing the
// paise remainder onto the earliest enabled months so the parts sum exactly.
func splitAnnualFee(total int64, disabled map[int]bool) [monthsPerSession]int64 {
	enabled := int64(monthsPerSession - len(disabled))
	base := total / enabled
	rem := total % enabled

	var out [monthsPerSession]int64
	for academicMonth := 1; academicMonth <= monthsPerSession; academicMonth++ {
		if disabled[academicMonth] {
			continue
		}
		amount := base
		if rem > 0 {
			amount++
			rem--
		}
		out[academicMonth-1] = amount
	}
	return out
}

func (s *Service) GetStatus(ctx context.Context, studentID, sessionID snowflake.ID) (domain.FeeStatus, error) {
	record, err := s.repo.FindFeeRecord(ctx, s.db, studentID, sessionID, false)
	if err != nil {
		return domain.FeeStatus{}, err
	}
	if record == nil {
		return domain.FeeStatus{}, domain.ErrNotFound
	}
	months, err := s.repo.ListMonthly(ctx, s.db, record.ID)
	if err != nil {
		return domain.FeeStatus{}, err
	}
	return buildStatus(*record, months), nil
}

func buildStatus(record domain.FeeRecord, months []domain.MonthlyTracking) domain.FeeStatus {
	status := domain.FeeStatus{
		FeeRecordID: record.ID,
		StudentID:   record.StudentID,
		SessionID:   record.SessionID,
		TotalDue:    record.TotalAmount,
		TotalPaid:   record.PaidAmount,
		Balance:     record.BalanceAmount,
		PerMonth:    make([]domain.MonthStatus, 0, len(months)),
	}
	for _, m := range months {
		status.PerMonth = append(status.PerMonth, domain.MonthStatus{
			AcademicMonth: m.AcademicMonth,
			CalendarYear:  m.CalendarYear,
			CalendarMonth: m.CalendarMonth,
			MonthlyAmount: m.MonthlyAmount,
			PaidAmount:    m.PaidAmount,
			BalanceAmount: m.BalanceAmount,
			DueDate:       m.DueDate,
			Status:        monthStatus(m),
			TrackingID:    m.ID,
		})
	}
	sort.Slice(status.PerMonth, func(i, j int) bool {
		return status.PerMonth[i].AcademicMonth < status.PerMonth[j].AcademicMonth
	})
	return status
}

func monthStatus(m domain.MonthlyTracking) string {
	switch {
	case m.Disabled():
		return domain.MonthStatusDisabled
	case m.BalanceAmount == 0:
		return domain.MonthStatusPaid
	case m.PaidAmount > 0:
		return domain.MonthStatusPartial
	default:
		return domain.MonthStatusDue
	}
}

func (s *Service) Reconcile(ctx context.Context, sessionID snowflake.ID) ([]domain.Drift, error) {
	ledger, err := s.repo.LedgerPaidByMonth(ctx, s.db, sessionID)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.ListFeeRecords(ctx, s.db, sessionID)
	if err != nil {
		return nil, err
	}

	var drifts []domain.Drift
	for _, record := range records {
		months, err := s.repo.ListMonthly(ctx, s.db, record.ID)
		if err != nil {
			return nil, err
		}
		for _, m := range months {
			computed := ledger[m.ID]
			if computed != m.PaidAmount {
				drifts = append(drifts, domain.Drift{
					MonthlyTrackingID: m.ID,
					FeeRecordID:       record.ID,
					AcademicMonth:     m.AcademicMonth,
					CachedPaid:        m.PaidAmount,
					ComputedPaid:      computed,
				})
			}
		}
	}
	if len(drifts) > 0 {
		s.log.Warn("reconcile found drift",
			zap.Int64("session_id", int64(sessionID)),
			zap.Int("rows", len(drifts)),
		)
	}
	return drifts, nil
}
