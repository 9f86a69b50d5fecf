package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/vidyalaya/feeledger/pkg/db/pagination"
)

const (
	MethodCash         = "cash"
	MethodCheque       = "cheque"
	MethodUPI          = "upi"
	MethodBankTransfer = "bank_transfer"
	MethodCard         = "card"
)

func KnownMethod(method string) bool {
	switch method {
	case MethodCash, MethodCheque, MethodUPI, MethodBankTransfer, MethodCard:
		return true
	}
	return false
}

const (
	ReversalScopeFull    = "FULL"
	ReversalScopePartial = "PARTIAL"
)

const (
	StatusActive            = "ACTIVE"
	StatusPartiallyReversed = "PARTIALLY_REVERSED"
	StatusFullyReversed     = "FULLY_REVERSED"
)

type AllocateRequest struct {
	StudentID     snowflake.ID
	SessionID     snowflake.ID
	Amount        int64
	Method        string
	PaymentDate   time.Time
	TransactionID *string
	Metadata      map[string]any
}

type AllocateResult struct {
	Payment        Payment      `json:"payment"`
	Allocations    []Allocation `json:"allocations"`
	OverpaidAmount int64        `json:"overpaid_amount"`
	Replayed       bool         `json:"replayed,omitempty"`
}

type ReversalLine struct {
	MonthlyTrackingID snowflake.ID `json:"monthly_tracking_id"`
	Amount            int64        `json:"amount"`
}

type ReverseRequest struct {
	PaymentID  snowflake.ID
	ReasonCode string
	Scope      string
	Lines      []ReversalLine
	ActorID    *string
}

type ReverseResult struct {
	Payment     Payment      `json:"payment"`
	Allocations []Allocation `json:"allocations"`
}

// PaymentDetail carries the derived reversal state; status is never stored.
type PaymentDetail struct {
	Payment        Payment      `json:"payment"`
	Allocations    []Allocation `json:"allocations"`
	Status         string       `json:"status"`
	ReversedAmount int64        `json:"reversed_amount"`
}

type ListRequest struct {
	pagination.Pagination
	StudentID snowflake.ID
	SessionID snowflake.ID
}

type ListResponse struct {
	pagination.PageInfo
	Payments []PaymentDetail `json:"payments"`
}

type Service interface {
	// Allocate records a payment and spreads it across outstanding months,
	// oldest due month first. Any amount beyond the total outstanding is
	// returned as OverpaidAmount, never stored as a negative balance.
	Allocate(ctx context.Context, req AllocateRequest) (AllocateResult, error)
	// Reverse writes a compensating payment with mirrored allocations and
	// restores the monthly balances the original consumed.
	Reverse(ctx context.Context, req ReverseRequest) (ReverseResult, error)
	Get(ctx context.Context, id snowflake.ID) (PaymentDetail, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	ListReversalReasons(ctx context.Context) ([]ReversalReason, error)
}

var (
	ErrInvalidAmount         = errors.New("invalid_amount")
	ErrInvalidMethod         = errors.New("invalid_method")
	ErrNotFound              = errors.New("payment_not_found")
	ErrFeeRecordNotFound     = errors.New("fee_record_not_found")
	ErrNothingOutstanding    = errors.New("nothing_outstanding")
	ErrAlreadyReversed       = errors.New("already_reversed")
	ErrAmountExceedsOriginal = errors.New("amount_exceeds_original")
	ErrInvalidReasonCode     = errors.New("invalid_reason_code")
	ErrInvalidScope          = errors.New("invalid_reversal_scope")
	ErrReversalNotAllowed    = errors.New("reversal_not_allowed")
	ErrConcurrencyConflict   = errors.New("concurrency_conflict")
	ErrInvalidPageToken      = errors.New("invalid_page_token")
)
