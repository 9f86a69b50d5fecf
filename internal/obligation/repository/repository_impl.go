package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/vidyalaya/feeledger/internal/obligation/domain"
	pkgdb "github.com/vidyalaya/feeledger/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertFeeRecord(ctx context.Context, db *gorm.DB, fr *domain.FeeRecord) error {
	return db.WithContext(ctx).Create(fr).Error
}

func (r *repo) InsertMonthly(ctx context.Context, db *gorm.DB, rows []domain.MonthlyTracking) error {
	return db.WithContext(ctx).Create(&rows).Error
}

func (r *repo) FindFeeRecord(ctx context.Context, db *gorm.DB, studentID, sessionID snowflake.ID, forUpdate bool) (*domain.FeeRecord, error) {
	stmt := db.WithContext(ctx)
	if forUpdate {
		stmt = pkgdb.ForUpdate(stmt)
	}
	var fr domain.FeeRecord
	err := stmt.Where("student_id = ? AND session_id = ?", studentID, sessionID).First(&fr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &fr, nil
}

func (r *repo) ListMonthly(ctx context.Context, db *gorm.DB, feeRecordID snowflake.ID) ([]domain.MonthlyTracking, error) {
	var rows []domain.MonthlyTracking
	err := db.WithContext(ctx).
		Where("fee_record_id = ?", feeRecordID).
		Order("academic_month").
		Find(&rows).Error
	return rows, err
}

func (r *repo) ListOutstanding(ctx context.Context, db *gorm.DB, feeRecordID snowflake.ID, forUpdate bool) ([]domain.MonthlyTracking, error) {
	stmt := db.WithContext(ctx)
	if forUpdate {
		stmt = pkgdb.ForUpdate(stmt)
	}
	var rows []domain.MonthlyTracking
	err := stmt.
		Where("fee_record_id = ? AND monthly_amount > 0 AND balance_amount > 0", feeRecordID).
		Order("calendar_year, calendar_month").
		Find(&rows).Error
	return rows, err
}

func (r *repo) FindMonthlyByID(ctx context.Context, db *gorm.DB, id snowflake.ID, forUpdate bool) (*domain.MonthlyTracking, error) {
	stmt := db.WithContext(ctx)
	if forUpdate {
		stmt = pkgdb.ForUpdate(stmt)
	}
	var m domain.MonthlyTracking
	err := stmt.Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *repo) SaveMonthlyAmounts(ctx context.Context, db *gorm.DB, m *domain.MonthlyTracking) error {
	return db.WithContext(ctx).
		Model(&domain.MonthlyTracking{}).
		Where("id = ?", m.ID).
		Updates(map[string]interface{}{
			"paid_amount":    m.PaidAmount,
			"balance_amount": m.BalanceAmount,
			"updated_at":     time.Now().UTC(),
		}).Error
}

func (r *repo) SaveFeeRecordAmounts(ctx context.Context, db *gorm.DB, fr *domain.FeeRecord) error {
	return db.WithContext(ctx).
		Model(&domain.FeeRecord{}).
		Where("id = ?", fr.ID).
		Updates(map[string]interface{}{
			"paid_amount":    fr.PaidAmount,
			"balance_amount": fr.BalanceAmount,
			"updated_at":     time.Now().UTC(),
		}).Error
}

func (r *repo) ListFeeRecords(ctx context.Context, db *gorm.DB, sessionID snowflake.ID) ([]domain.FeeRecord, error) {
	var rows []domain.FeeRecord
	err := db.WithContext(ctx).Where("session_id = ?", sessionID).Find(&rows).Error
	return rows, err
}

type ledgerRow struct {
	MonthlyTrackingID snowflake.ID
	Paid              int64
}

func (r *repo) LedgerPaidByMonth(ctx context.Context, db *gorm.DB, sessionID snowflake.ID) (map[snowflake.ID]int64, error) {
	var rows []ledgerRow
	err := db.WithContext(ctx).Raw(`
		SELECT a.monthly_tracking_id AS monthly_tracking_id,
		       SUM(CASE WHEN a.is_reversal THEN -a.amount ELSE a.amount END) AS paid
		FROM allocations a
		JOIN monthly_tracking m ON m.id = a.monthly_tracking_id
		WHERE m.session_id = ?
		GROUP BY a.monthly_tracking_id
	`, sessionID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[snowflake.ID]int64, len(rows))
	for _, row := range rows {
		out[row.MonthlyTrackingID] = row.Paid
	}
	return out, nil
}
