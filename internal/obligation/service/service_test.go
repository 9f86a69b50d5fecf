package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	academicdomain "github.com/vidyalaya/feeledger/internal/academic/domain"
	academicrepo "github.com/vidyalaya/feeledger/internal/academic/repository"
	"github.com/vidyalaya/feeledger/internal/clock"
	feedomain "github.com/vidyalaya/feeledger/internal/feestructure/domain"
	feerepo "github.com/vidyalaya/feeledger/internal/feestructure/repository"
	"github.com/vidyalaya/feeledger/internal/obligation/domain"
	obligationrepo "github.com/vidyalaya/feeledger/internal/obligation/repository"
	paymentdomain "github.com/vidyalaya/feeledger/internal/payment/domain"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fixture struct {
	db      *gorm.DB
	node    *snowflake.Node
	svc     domain.Service
	session academicdomain.Session
	student academicdomain.Student
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&academicdomain.Session{},
		&academicdomain.Student{},
		&feedomain.FeeStructure{},
		&domain.FeeRecord{},
		&domain.MonthlyTracking{},
		&paymentdomain.Payment{},
		&paymentdomain.Allocation{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2025, time.April, 1, 9, 0, 0, 0, time.UTC))

	svc := NewService(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    fake,
		Repo:     obligationrepo.Provide(),
		Academic: academicrepo.Provide(),
		FeeRepo:  feerepo.Provide(),
	})

	f := &fixture{db: db, node: node, svc: svc}

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
		AdmissionNo: "ADM-100",
		Name:        "Rohan Gupta",
		ClassName:   "5",
		Active:      true,
		CreatedAt:   fake.Now(),
		UpdatedAt:   fake.Now(),
	}
	require.NoError(t, db.Create(&f.student).Error)

	return f
}

func (f *fixture) createStructure(t *testing.T, annualFee int64) {
	t.Helper()
	structure := feedomain.FeeStructure{
		ID:             f.node.Generate(),
		ClassName:      f.student.ClassName,
		SessionID:      f.session.ID,
		Version:        1,
		Components:     datatypes.JSONMap{"tuition": annualFee},
		TotalAnnualFee: annualFee,
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, f.db.Create(&structure).Error)
}

func TestEnableTracking_TwelveRows(t *testing.T) {
	f := setupFixture(t)
	f.createStructure(t, 12000)

	status, err := f.svc.EnableTracking(context.Background(), domain.EnableRequest{
		StudentID: f.student.ID,
		SessionID: f.session.ID,
	})
	require.NoError(t, err)

	require.Len(t, status.PerMonth, 12)
	assert.Equal(t, int64(12000), status.TotalDue)
	assert.Equal(t, int64(12000), status.Balance)

	// April 2025 through March 2026, due on the 10th.
	first := status.PerMonth[0]
	assert.Equal(t, 2025, first.CalendarYear)
	assert.Equal(t, int(time.April), first.CalendarMonth)
	assert.Equal(t, 10, first.DueDate.Day())
	last := status.PerMonth[11]
	assert.Equal(t, 2026, last.CalendarYear)
	assert.Equal(t, int(time.March), last.CalendarMonth)

	for _, m := range status.PerMonth {
		assert.Equal(t, int64(1000), m.MonthlyAmount)
		assert.Equal(t, domain.MonthStatusDue, m.Status)
	}
}

func TestEnableTracking_RemainderOnEarliestMonths(t *testing.T) {
	f := setupFixture(t)
	f.createStructure(t, 1000) // 83 per month, remainder 4

	status, err := f.svc.EnableTracking(context.Background(), domain.EnableRequest{
		StudentID: f.student.ID,
		SessionID: f.session.ID,
	})
	require.NoError(t, err)

	var total int64
	for i, m := range status.PerMonth {
		if i < 4 {
			assert.Equal(t, int64(84), m.MonthlyAmount)
		} else {
			assert.Equal(t, int64(83), m.MonthlyAmount)
		}
		total += m.MonthlyAmount
	}
	assert.Equal(t, int64(1000), total)
}

func TestEnableTracking_DisabledMonthsZero(t *testing.T) {
	f := setupFixture(t)
	f.createStructure(t, 5000)

	status, err := f.svc.EnableTracking(context.Background(), domain.EnableRequest{
		StudentID:      f.student.ID,
		SessionID:      f.session.ID,
		DisabledMonths: []int{5, 6},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(5000), status.TotalDue)
	assert.Equal(t, int64(0), status.PerMonth[4].MonthlyAmount)
	assert.Equal(t, domain.MonthStatusDisabled, status.PerMonth[4].Status)
	assert.Equal(t, int64(0), status.PerMonth[5].MonthlyAmount)
	assert.Equal(t, int64(500), status.PerMonth[0].MonthlyAmount)
}

func TestEnableTracking_SecondCallRejected(t *testing.T) {
	f := setupFixture(t)
	f.createStructure(t, 6000)

	_, err := f.svc.EnableTracking(context.Background(), domain.EnableRequest{
		StudentID: f.student.ID,
		SessionID: f.session.ID,
	})
	require.NoError(t, err)

	_, err = f.svc.EnableTracking(context.Background(), domain.EnableRequest{
		StudentID: f.student.ID,
		SessionID: f.session.ID,
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyEnabled)
}

func TestEnableTracking_RequiresStructureAndStudent(t *testing.T) {
	f := setupFixture(t)

	_, err := f.svc.EnableTracking(context.Background(), domain.EnableRequest{
		StudentID: f.student.ID,
		SessionID: f.session.ID,
	})
	assert.ErrorIs(t, err, domain.ErrNoFeeStructure)

	f.createStructure(t, 6000)
	_, err = f.svc.EnableTracking(context.Background(), domain.EnableRequest{
		StudentID: f.node.Generate(),
		SessionID: f.session.ID,
	})
	assert.ErrorIs(t, err, academicdomain.ErrStudentNotFound)

	_, err = f.svc.EnableTracking(context.Background(), domain.EnableRequest{
		StudentID:      f.student.ID,
		SessionID:      f.session.ID,
		DisabledMonths: []int{13},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidMonth)
}

func TestGetStatus_NotFound(t *testing.T) {
	f := setupFixture(t)

	_, err := f.svc.GetStatus(context.Background(), f.student.ID, f.session.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReconcile_DetectsDrift(t *testing.T) {
	f := setupFixture(t)
	f.createStructure(t, 12000)

	status, err := f.svc.EnableTracking(context.Background(), domain.EnableRequest{
		StudentID: f.student.ID,
		SessionID: f.session.ID,
	})
	require.NoError(t, err)

	drifts, err := f.svc.Reconcile(context.Background(), f.session.ID)
	require.NoError(t, err)
	assert.Empty(t, drifts)

	// Corrupt one cached column behind the ledger's back.
	trackingID := status.PerMonth[2].TrackingID
	require.NoError(t, f.db.Model(&domain.MonthlyTracking{}).
		Where("id = ?", trackingID).
		Update("paid_amount", 999).Error)

	drifts, err = f.svc.Reconcile(context.Background(), f.session.ID)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.Equal(t, trackingID, drifts[0].MonthlyTrackingID)
	assert.Equal(t, int64(999), drifts[0].CachedPaid)
	assert.Equal(t, int64(0), drifts[0].ComputedPaid)
}
