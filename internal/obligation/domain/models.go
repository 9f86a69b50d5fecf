package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// FeeRecord is a student's obligation for one session. PaidAmount and
// BalanceAmount are caches over the allocation ledger; only the engines
// write them, inside the same transaction as the allocation rows.
type FeeRecord struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	StudentID      snowflake.ID `gorm:"not null;uniqueIndex:ux_fee_records_student_session,priority:1" json:"student_id"`
	SessionID      snowflake.ID `gorm:"not null;uniqueIndex:ux_fee_records_student_session,priority:2" json:"session_id"`
	FeeStructureID snowflake.ID `gorm:"not null" json:"fee_structure_id"`
	TotalAmount    int64        `gorm:"not null" json:"total_amount"`
	PaidAmount     int64        `gorm:"not null;default:0" json:"paid_amount"`
	BalanceAmount  int64        `gorm:"not null" json:"balance_amount"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (FeeRecord) TableName() string { return "fee_records" }

// MonthlyTracking is one academic month of a fee record. A disabled month
// carries MonthlyAmount 0 and never accepts allocations.
type MonthlyTracking struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	FeeRecordID   snowflake.ID `gorm:"not null;uniqueIndex:ux_monthly_tracking_record_month,priority:1" json:"fee_record_id"`
	StudentID     snowflake.ID `gorm:"not null;index" json:"student_id"`
	SessionID     snowflake.ID `gorm:"not null;index" json:"session_id"`
	AcademicMonth int          `gorm:"not null;uniqueIndex:ux_monthly_tracking_record_month,priority:2" json:"academic_month"`
	CalendarYear  int          `gorm:"not null" json:"calendar_year"`
	CalendarMonth int          `gorm:"not null" json:"calendar_month"`
	MonthlyAmount int64        `gorm:"not null" json:"monthly_amount"`
	PaidAmount    int64        `gorm:"not null;default:0" json:"paid_amount"`
	BalanceAmount int64        `gorm:"not null" json:"balance_amount"`
	DueDate       time.Time    `gorm:"not null" json:"due_date"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (MonthlyTracking) TableName() string { return "monthly_tracking" }

func (m *MonthlyTracking) Disabled() bool { return m.MonthlyAmount == 0 }
