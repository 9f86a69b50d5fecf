package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Payment is an immutable record of money received, or of a reversal of an
// earlier payment. Reversal fields are set iff IsReversal; the migration
// carries the matching CHECK constraint.
type Payment struct {
	ID                snowflake.ID      `gorm:"primaryKey" json:"id"`
	StudentID         snowflake.ID      `gorm:"not null;index" json:"student_id"`
	SessionID         snowflake.ID      `gorm:"not null;index" json:"session_id"`
	FeeRecordID       snowflake.ID      `gorm:"not null;index" json:"fee_record_id"`
	Amount            int64             `gorm:"not null" json:"amount"`
	Method            string            `gorm:"type:text;not null" json:"method"`
	PaymentDate       time.Time         `gorm:"not null" json:"payment_date"`
	TransactionID     *string           `gorm:"type:text;uniqueIndex:ux_payments_transaction_id" json:"transaction_id,omitempty"`
	ReceiptNumber     string            `gorm:"type:text;not null;uniqueIndex:ux_payments_receipt_number" json:"receipt_number"`
	IsReversal        bool              `gorm:"not null;default:false" json:"is_reversal"`
	ReversesPaymentID *snowflake.ID     `gorm:"index" json:"reverses_payment_id,omitempty"`
	ReversalReason    *string           `gorm:"type:text" json:"reversal_reason,omitempty"`
	ReversalType      *string           `gorm:"type:text" json:"reversal_type,omitempty"`
	Metadata          datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt         time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Payment) TableName() string { return "payments" }

// Allocation maps a slice of a payment onto one monthly row. Amount is a
// positive magnitude for reversals too; IsReversal carries the sign.
type Allocation struct {
	ID                   snowflake.ID  `gorm:"primaryKey" json:"id"`
	PaymentID            snowflake.ID  `gorm:"not null;index" json:"payment_id"`
	MonthlyTrackingID    snowflake.ID  `gorm:"not null;index" json:"monthly_tracking_id"`
	Amount               int64         `gorm:"not null" json:"amount"`
	IsReversal           bool          `gorm:"not null;default:false" json:"is_reversal"`
	ReversesAllocationID *snowflake.ID `gorm:"index" json:"reverses_allocation_id,omitempty"`
	CreatedAt            time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Allocation) TableName() string { return "allocations" }

type ReversalReason struct {
	Code        string `gorm:"primaryKey;type:text" json:"code"`
	Description string `gorm:"type:text;not null" json:"description"`
	Active      bool   `gorm:"not null;default:true" json:"active"`
}

func (ReversalReason) TableName() string { return "reversal_reasons" }

// ReceiptSequence hands out per-session receipt numbers under the engine's
// row lock.
type ReceiptSequence struct {
	SessionID  snowflake.ID `gorm:"primaryKey" json:"session_id"`
	LastNumber int64        `gorm:"not null;default:0" json:"last_number"`
}

func (ReceiptSequence) TableName() string { return "receipt_sequences" }
