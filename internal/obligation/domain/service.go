package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type EnableRequest struct {
	StudentID      snowflake.ID
	SessionID      snowflake.ID
	DisabledMonths []int
}

type MonthStatus struct {
	AcademicMonth int          `json:"academic_month"`
	CalendarYear  int          `json:"calendar_year"`
	CalendarMonth int          `json:"calendar_month"`
	MonthlyAmount int64        `json:"monthly_amount"`
	PaidAmount    int64        `json:"paid_amount"`
	BalanceAmount int64        `json:"balance_amount"`
	DueDate       time.Time    `json:"due_date"`
	Status        string       `json:"status"`
	TrackingID    snowflake.ID `json:"tracking_id"`
}

type FeeStatus struct {
	FeeRecordID snowflake.ID  `json:"fee_record_id"`
	StudentID   snowflake.ID  `json:"student_id"`
	SessionID   snowflake.ID  `json:"session_id"`
	TotalDue    int64         `json:"total_due"`
	TotalPaid   int64         `json:"total_paid"`
	Balance     int64         `json:"balance"`
	PerMonth    []MonthStatus `json:"per_month"`
}

// Drift reports a monthly row whose cached paid amount disagrees with the
// sum of its allocation ledger entries.
type Drift struct {
	MonthlyTrackingID snowflake.ID `json:"monthly_tracking_id"`
	FeeRecordID       snowflake.ID `json:"fee_record_id"`
	AcademicMonth     int          `json:"academic_month"`
	CachedPaid        int64        `json:"cached_paid"`
	ComputedPaid      int64        `json:"computed_paid"`
}

type Service interface {
	// EnableTracking creates the fee record and its twelve monthly rows in
	// one transaction. Calling it twice for the same student and session
	// returns ErrAlreadyEnabled.
	EnableTracking(ctx context.Context, req EnableRequest) (FeeStatus, error)
	GetStatus(ctx context.Context, studentID, sessionID snowflake.ID) (FeeStatus, error)
	Reconcile(ctx context.Context, sessionID snowflake.ID) ([]Drift, error)
}

var (
	ErrNotFound       = errors.New("fee_record_not_found")
	ErrAlreadyEnabled = errors.New("tracking_already_enabled")
	ErrNoFeeStructure = errors.New("no_fee_structure_for_class")
	ErrInvalidMonth   = errors.New("invalid_academic_month")
)

const (
	MonthStatusPaid     = "PAID"
	MonthStatusPartial  = "PARTIAL"
	MonthStatusDue      = "DUE"
	MonthStatusDisabled = "DISABLED"
)
