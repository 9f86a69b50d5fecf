package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type PaymentCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type PaymentFilter struct {
	StudentID snowflake.ID
	SessionID snowflake.ID
	Cursor    *PaymentCursor
	Limit     int
}

type Repository interface {
	InsertPayment(ctx context.Context, db *gorm.DB, p *Payment) error
	InsertAllocations(ctx context.Context, db *gorm.DB, rows []Allocation) error

	FindPayment(ctx context.Context, db *gorm.DB, id snowflake.ID, forUpdate bool) (*Payment, error)
	FindPaymentByTransactionID(ctx context.Context, db *gorm.DB, transactionID string) (*Payment, error)
	ListPayments(ctx context.Context, db *gorm.DB, filter PaymentFilter) ([]*Payment, error)

	ListAllocationsByPayment(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) ([]Allocation, error)
	// ListReversals returns the reversal payments pointing at the original.
	ListReversals(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) ([]Payment, error)
	// ReversedPerAllocation folds reversal allocations into reversed-so-far
	// per original allocation id.
	ReversedPerAllocation(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) (map[snowflake.ID]int64, error)

	NextReceiptNumber(ctx context.Context, db *gorm.DB, sessionID snowflake.ID) (int64, error)

	FindReversalReason(ctx context.Context, db *gorm.DB, code string) (*ReversalReason, error)
	ListReversalReasons(ctx context.Context, db *gorm.DB) ([]ReversalReason, error)
	UpsertReversalReason(ctx context.Context, db *gorm.DB, reason ReversalReason) error
}
