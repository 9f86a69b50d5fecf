package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	academicdomain "github.com/vidyalaya/feeledger/internal/academic/domain"
	academicrepo "github.com/vidyalaya/feeledger/internal/academic/repository"
	auditdomain "github.com/vidyalaya/feeledger/internal/audit/domain"
	auditrepo "github.com/vidyalaya/feeledger/internal/audit/repository"
	auditservice "github.com/vidyalaya/feeledger/internal/audit/service"
	"github.com/vidyalaya/feeledger/internal/clock"
	"github.com/vidyalaya/feeledger/internal/config"
	feedomain "github.com/vidyalaya/feeledger/internal/feestructure/domain"
	feerepo "github.com/vidyalaya/feeledger/internal/feestructure/repository"
	"github.com/vidyalaya/feeledger/internal/locking"
	obligationdomain "github.com/vidyalaya/feeledger/internal/obligation/domain"
	obligationrepo "github.com/vidyalaya/feeledger/internal/obligation/repository"
	obligationservice "github.com/vidyalaya/feeledger/internal/obligation/service"
	"github.com/vidyalaya/feeledger/internal/payment/domain"
	paymentrepo "github.com/vidyalaya/feeledger/internal/payment/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fixture struct {
	db          *gorm.DB
	node        *snowflake.Node
	clock       *clock.FakeClock
	svc         domain.Service
	obligations obligationdomain.Service
	session     academicdomain.Session
	student     academicdomain.Student
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&academicdomain.Session{},
		&academicdomain.Student{},
		&feedomain.FeeStructure{},
		&obligationdomain.FeeRecord{},
		&obligationdomain.MonthlyTracking{},
		&domain.Payment{},
		&domain.Allocation{},
		&domain.ReversalReason{},
		&domain.ReceiptSequence{},
		&auditdomain.AuditLog{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()
	fake := clock.NewFakeClock(time.Date(2025, time.April, 15, 10, 0, 0, 0, time.UTC))

	cfg := config.Config{
		LockTTL:        5 * time.Second,
		LockRetryDelay: time.Millisecond,
		LockRetries:    3,
	}

	auditSvc := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: fake,
		Repo:  auditrepo.Provide(),
	})

	obligationSvc := obligationservice.NewService(obligationservice.Params{
		DB:       db,
		Log:      log,
		GenID:    node,
		Clock:    fake,
		Repo:     obligationrepo.Provide(),
		Academic: academicrepo.Provide(),
		FeeRepo:  feerepo.Provide(),
	})

	svc := NewService(Params{
		DB:          db,
		Log:         log,
		GenID:       node,
		Clock:       fake,
		Cfg:         cfg,
		Locker:      locking.NewLocalLocker(),
		Metrics:     nil,
		Repo:        paymentrepo.Provide(),
		Obligations: obligationrepo.Provide(),
		Audit:       auditSvc,
	})

	f := &fixture{
		db:          db,
		node:        node,
		clock:       fake,
		svc:         svc,
		obligations: obligationSvc,
	}

	f.session = academicdomain.Session{
		ID:         node.Generate(),
		Label:      "2025-26",
		StartYear:  2025,
		StartMonth: int(time.April),
		Active:     true,
		CreatedAt:  fake.Now(),
	}
	require.NoError(t, db.Create(&f.session).Error)

	f.student = academicdomain.Student{
		ID:          node.Generate(),
		AdmissionNo: "ADM-001",
		Name:        "Asha Verma",
		ClassName:   "5",
		Active:      true,
		CreatedAt:   fake.Now(),
		UpdatedAt:   fake.Now(),
	}
	require.NoError(t, db.Create(&f.student).Error)

	for _, reason := range []domain.ReversalReason{
		{Code: "cheque_bounced", Description: "Cheque returned unpaid", Active: true},
		{Code: "data_entry_error", Description: "Wrong student or amount", Active: true},
		{Code: "duplicate_payment", Description: "Recorded twice", Active: true},
		{Code: "retired_reason", Description: "No longer usable", Active: false},
	} {
		require.NoError(t, db.Create(&reason).Error)
	}

	return f
}

// enroll creates a fee structure and enables tracking, returning the status
// with the twelve monthly rows.
func (f *fixture) enroll(t *testing.T, annualFee int64, disabledMonths ...int) obligationdomain.FeeStatus {
	t.Helper()

	structure := feedomain.FeeStructure{
		ID:             f.node.Generate(),
		ClassName:      f.student.ClassName,
		SessionID:      f.session.ID,
		Version:        1,
		Components:     datatypes.JSONMap{"tuition": annualFee},
		TotalAnnualFee: annualFee,
		CreatedAt:      f.clock.Now(),
	}
	require.NoError(t, f.db.Create(&structure).Error)

	status, err := f.obligations.EnableTracking(context.Background(), obligationdomain.EnableRequest{
		StudentID:      f.student.ID,
		SessionID:      f.session.ID,
		DisabledMonths: disabledMonths,
	})
	require.NoError(t, err)
	return status
}

func (f *fixture) feeRecord(t *testing.T) obligationdomain.FeeRecord {
	t.Helper()
	var record obligationdomain.FeeRecord
	require.NoError(t, f.db.Where("student_id = ? AND session_id = ?", f.student.ID, f.session.ID).First(&record).Error)
	return record
}

func (f *fixture) monthlyRows(t *testing.T) []obligationdomain.MonthlyTracking {
	t.Helper()
	var rows []obligationdomain.MonthlyTracking
	require.NoError(t, f.db.Where("student_id = ?", f.student.ID).Order("academic_month").Find(&rows).Error)
	return rows
}
