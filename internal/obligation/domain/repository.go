package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertFeeRecord(ctx context.Context, db *gorm.DB, fr *FeeRecord) error
	InsertMonthly(ctx context.Context, db *gorm.DB, rows []MonthlyTracking) error

	FindFeeRecord(ctx context.Context, db *gorm.DB, studentID, sessionID snowflake.ID, forUpdate bool) (*FeeRecord, error)
	ListMonthly(ctx context.Context, db *gorm.DB, feeRecordID snowflake.ID) ([]MonthlyTracking, error)
	// ListOutstanding returns enabled months with balance left, oldest
	// calendar month first, optionally row-locked.
	ListOutstanding(ctx context.Context, db *gorm.DB, feeRecordID snowflake.ID, forUpdate bool) ([]MonthlyTracking, error)
	FindMonthlyByID(ctx context.Context, db *gorm.DB, id snowflake.ID, forUpdate bool) (*MonthlyTracking, error)

	SaveMonthlyAmounts(ctx context.Context, db *gorm.DB, m *MonthlyTracking) error
	SaveFeeRecordAmounts(ctx context.Context, db *gorm.DB, fr *FeeRecord) error

	ListFeeRecords(ctx context.Context, db *gorm.DB, sessionID snowflake.ID) ([]FeeRecord, error)
	// LedgerPaidByMonth folds the allocation ledger into paid-per-monthly-row
	// for one session, reversals subtracted.
	LedgerPaidByMonth(ctx context.Context, db *gorm.DB, sessionID snowflake.ID) (map[snowflake.ID]int64, error)
}
