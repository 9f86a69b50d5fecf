package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/vidyalaya/feeledger/internal/payment/domain"
	pkgdb "github.com/vidyalaya/feeledger/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertPayment(ctx context.Context, db *gorm.DB, p *domain.Payment) error {
	return db.WithContext(ctx).Create(p).Error
}

func (r *repo) InsertAllocations(ctx context.Context, db *gorm.DB, rows []domain.Allocation) error {
	if len(rows) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&rows).Error
}

func (r *repo) FindPayment(ctx context.Context, db *gorm.DB, id snowflake.ID, forUpdate bool) (*domain.Payment, error) {
	stmt := db.WithContext(ctx)
	if forUpdate {
		stmt = pkgdb.ForUpdate(stmt)
	}
	var p domain.Payment
	err := stmt.Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *repo) FindPaymentByTransactionID(ctx context.Context, db *gorm.DB, transactionID string) (*domain.Payment, error) {
	var p domain.Payment
	err := db.WithContext(ctx).Where("transaction_id = ?", transactionID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *repo) ListPayments(ctx context.Context, db *gorm.DB, filter domain.PaymentFilter) ([]*domain.Payment, error) {
	var payments []*domain.Payment
	stmt := db.WithContext(ctx).Model(&domain.Payment{})
	if filter.StudentID != 0 {
		stmt = stmt.Where("student_id = ?", filter.StudentID)
	}
	if filter.SessionID != 0 {
		stmt = stmt.Where("session_id = ?", filter.SessionID)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}
	stmt = stmt.Order("created_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}
	err := stmt.Find(&payments).Error
	return payments, err
}

func (r *repo) ListAllocationsByPayment(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) ([]domain.Allocation, error) {
	var rows []domain.Allocation
	err := db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Order("id").
		Find(&rows).Error
	return rows, err
}

func (r *repo) ListReversals(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) ([]domain.Payment, error) {
	var rows []domain.Payment
	err := db.WithContext(ctx).
		Where("reverses_payment_id = ?", paymentID).
		Order("created_at").
		Find(&rows).Error
	return rows, err
}

type reversedRow struct {
	ReversesAllocationID snowflake.ID
	Reversed             int64
}

func (r *repo) ReversedPerAllocation(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) (map[snowflake.ID]int64, error) {
	var rows []reversedRow
	err := db.WithContext(ctx).Raw(`
		SELECT rev.reverses_allocation_id AS reverses_allocation_id,
		       SUM(rev.amount) AS reversed
		FROM allocations rev
		JOIN allocations orig ON orig.id = rev.reverses_allocation_id
		WHERE rev.is_reversal AND orig.payment_id = ?
		GROUP BY rev.reverses_allocation_id
	`, paymentID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[snowflake.ID]int64, len(rows))
	for _, row := range rows {
		out[row.ReversesAllocationID] = row.Reversed
	}
	return out, nil
}

// NextReceiptNumber increments the per-session sequence under a row lock.
// Callers must already hold the engine lock and be inside a transaction.
func (r *repo) NextReceiptNumber(ctx context.Context, db *gorm.DB, sessionID snowflake.ID) (int64, error) {
	var seq domain.ReceiptSequence
	err := pkgdb.ForUpdate(db.WithContext(ctx)).
		Where("session_id = ?", sessionID).
		First(&seq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		seq = domain.ReceiptSequence{SessionID: sessionID, LastNumber: 1}
		if err := db.WithContext(ctx).Create(&seq).Error; err != nil {
			return 0, err
		}
		return seq.LastNumber, nil
	}
	if err != nil {
		return 0, err
	}
	seq.LastNumber++
	err = db.WithContext(ctx).
		Model(&domain.ReceiptSequence{}).
		Where("session_id = ?", sessionID).
		Update("last_number", seq.LastNumber).Error
	if err != nil {
		return 0, err
	}
	return seq.LastNumber, nil
}

func (r *repo) FindReversalReason(ctx context.Context, db *gorm.DB, code string) (*domain.ReversalReason, error) {
	var reason domain.ReversalReason
	err := db.WithContext(ctx).Where("code = ?", code).First(&reason).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reason, nil
}

func (r *repo) ListReversalReasons(ctx context.Context, db *gorm.DB) ([]domain.ReversalReason, error) {
	var reasons []domain.ReversalReason
	err := db.WithContext(ctx).Where("active = ?", true).Order("code").Find(&reasons).Error
	return reasons, err
}

func (r *repo) UpsertReversalReason(ctx context.Context, db *gorm.DB, reason domain.ReversalReason) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&reason).Error
}
