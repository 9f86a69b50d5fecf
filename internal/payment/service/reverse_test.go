package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vidyalaya/feeledger/internal/payment/domain"
)

func (f *fixture) allocate(t *testing.T, amount int64) domain.AllocateResult {
	t.Helper()
	result, err := f.svc.Allocate(context.Background(), domain.AllocateRequest{
		StudentID: f.student.ID,
		SessionID: f.session.ID,
		Amount:    amount,
		Method:    domain.MethodCheque,
	})
	require.NoError(t, err)
	return result
}

func TestReverse_FullRestoresBalances(t *testing.T) {
	f := setupFixture(t)
	f.enroll(t, 6000)
	paid := f.allocate(t, 1700)

	result, err := f.svc.Reverse(context.Background(), domain.ReverseRequest{
		PaymentID:  paid.Payment.ID,
		ReasonCode: "cheque_bounced",
		Scope:      domain.ReversalScopeFull,
	})
	require.NoError(t, err)

	assert.True(t, result.Payment.IsReversal)
	require.NotNil(t, result.Payment.ReversesPaymentID)
	assert.Equal(t, paid.Payment.ID, *result.Payment.ReversesPaymentID)
	assert.Equal(t, int64(1700), result.Payment.Amount)
	assert.Len(t, result.Allocations, len(paid.Allocations))

	record := f.feeRecord(t)
	assert.Equal(t, int64(0), record.PaidAmount)
	assert.Equal(t, int64(6000), record.BalanceAmount)
	for _, row := range f.monthlyRows(t) {
		assert.Equal(t, int64(0), row.PaidAmount)
		assert.Equal(t, row.MonthlyAmount, row.BalanceAmount)
	}

	detail, err := f.svc.Get(context.Background(), paid.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFullyReversed, detail.Status)
	assert.Equal(t, int64(1700), detail.ReversedAmount)
}

func TestReverse_DoubleFullRejected(t *testing.T) {
	f := setupFixture(t)
	f.enroll(t, 6000)
	paid := f.allocate(t, 1000)

	_, err := f.svc.Reverse(context.Background(), domain.ReverseRequest{
		PaymentID:  paid.Payment.ID,
		ReasonCode: "cheque_bounced",
		Scope:      domain.ReversalScopeFull,
	})
	require.NoError(t, err)

	_, err = f.svc.Reverse(context.Background(), domain.ReverseRequest{
		PaymentID:  paid.Payment.ID,
		ReasonCode: "cheque_bounced",
		Scope:      domain.ReversalScopeFull,
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyReversed)
}

func TestReverse_PartialLeavesRemainder(t *testing.T) {
	f := setupFixture(t)
	f.enroll(t, 9600) // 800 per month
	paid := f.allocate(t, 800)
	require.Len(t, paid.Allocations, 1)

	result, err := f.svc.Reverse(context.Background(), domain.ReverseRequest{
		PaymentID:  paid.Payment.ID,
		ReasonCode: "data_entry_error",
		Scope:      domain.ReversalScopePartial,
		Lines: []domain.ReversalLine{
			{MonthlyTrackingID: paid.Allocations[0].MonthlyTrackingID, Amount: 200},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(200), result.Payment.Amount)

	rows := f.monthlyRows(t)
	assert.Equal(t, int64(600), rows[0].PaidAmount)
	assert.Equal(t, int64(200), rows[0].BalanceAmount)

	detail, err := f.svc.Get(context.Background(), paid.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPartiallyReversed, detail.Status)
	assert.Equal(t, int64(200), detail.ReversedAmount)
}

func TestReverse_PartialCappedByRemaining(t *testing.T) {
	f := setupFixture(t)
	f.enroll(t, 9600)
	paid := f.allocate(t, 800)
	trackingID := paid.Allocations[0].MonthlyTrackingID

	_, err := f.svc.Reverse(context.Background(), domain.ReverseRequest{
		PaymentID:  paid.Payment.ID,
		ReasonCode: "data_entry_error",
		Scope:      domain.ReversalScopePartial,
		Lines:      []domain.ReversalLine{{MonthlyTrackingID: trackingID, Amount: 900}},
	})
	assert.ErrorIs(t, err, domain.ErrAmountExceedsOriginal)

	_, err = f.svc.Reverse(context.Background(), domain.ReverseRequest{
		PaymentID:  paid.Payment.ID,
		ReasonCode: "data_entry_error",
		Scope:      domain.ReversalScopePartial,
		Lines:      []domain.ReversalLine{{MonthlyTrackingID: trackingID, Amount: 800}},
	})
	require.NoError(t, err)

	// Everything is reversed now; another partial line has nothing left.
	_, err = f.svc.Reverse(context.Background(), domain.ReverseRequest{
		PaymentID:  paid.Payment.ID,
		ReasonCode: "data_entry_error",
		Scope:      domain.ReversalScopePartial,
		Lines:      []domain.ReversalLine{{MonthlyTrackingID: trackingID, Amount: 1}},
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyReversed)
}

func TestReverse_PartialAcrossMonths(t *testing.T) {
	f := setupFixture(t)
	f.enroll(t, 9600)
	paid := f.allocate(t, 1300) // 800 to April, 500 to May
	require.Len(t, paid.Allocations, 2)

	result, err := f.svc.Reverse(context.Background(), domain.ReverseRequest{
		PaymentID:  paid.Payment.ID,
		ReasonCode: "data_entry_error",
		Scope:      domain.ReversalScopePartial,
		Lines: []domain.ReversalLine{
			{MonthlyTrackingID: paid.Allocations[0].MonthlyTrackingID, Amount: 300},
			{MonthlyTrackingID: paid.Allocations[1].MonthlyTrackingID, Amount: 100},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(400), result.Payment.Amount)
	assert.Len(t, result.Allocations, 2)

	rows := f.monthlyRows(t)
	assert.Equal(t, int64(500), rows[0].PaidAmount)
	assert.Equal(t, int64(400), rows[1].PaidAmount)

	record := f.feeRecord(t)
	assert.Equal(t, int64(900), record.PaidAmount)
}

func TestReverse_PartialRepeatedLinesCappedTogether(t *testing.T) {
	f := setupFixture(t)
	f.enroll(t, 9600)
	paid := f.allocate(t, 800)
	trackingID := paid.Allocations[0].MonthlyTrackingID

	// Two lines for the same month must be capped as one; each fits the
	// allocation on its own but together they exceed it.
	_, err := f.svc.Reverse(context.Background(), domain.ReverseRequest{
		PaymentID:  paid.Payment.ID,
		ReasonCode: "data_entry_error",
		Scope:      domain.ReversalScopePartial,
		Lines: []domain.ReversalLine{
			{MonthlyTrackingID: trackingID, Amount: 500},
			{MonthlyTrackingID: trackingID, Amount: 500},
		},
	})
	assert.ErrorIs(t, err, domain.ErrAmountExceedsOriginal)

	rows := f.monthlyRows(t)
	assert.Equal(t, int64(800), rows[0].PaidAmount)
	detail, err := f.svc.Get(context.Background(), paid.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, detail.Status)
	assert.Equal(t, int64(0), detail.ReversedAmount)

	// Repeated lines that together reach the allocation exactly are fine.
	result, err := f.svc.Reverse(context.Background(), domain.ReverseRequest{
		PaymentID:  paid.Payment.ID,
		ReasonCode: "data_entry_error",
		Scope:      domain.ReversalScopePartial,
		Lines: []domain.ReversalLine{
			{MonthlyTrackingID: trackingID, Amount: 500},
			{MonthlyTrackingID: trackingID, Amount: 300},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(800), result.Payment.Amount)

	rows = f.monthlyRows(t)
	assert.Equal(t, int64(0), rows[0].PaidAmount)
}

func TestReverse_Validation(t *testing.T) {
	f := setupFixture(t)
	f.enroll(t, 6000)
	paid := f.allocate(t, 500)

	_, err := f.svc.Reverse(context.Background(), domain.ReverseRequest{
		PaymentID:  f.node.Generate(),
		ReasonCode: "cheque_bounced",
		Scope:      domain.ReversalScopeFull,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.Reverse(context.Background(), domain.ReverseRequest{
		PaymentID:  paid.Payment.ID,
		ReasonCode: "unknown_reason",
		Scope:      domain.ReversalScopeFull,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidReasonCode)

	_, err = f.svc.Reverse(context.Background(), domain.ReverseRequest{
		PaymentID:  paid.Payment.ID,
		ReasonCode: "retired_reason",
		Scope:      domain.ReversalScopeFull,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidReasonCode)

	_, err = f.svc.Reverse(context.Background(), domain.ReverseRequest{
		PaymentID:  paid.Payment.ID,
		ReasonCode: "cheque_bounced",
		Scope:      "sideways",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidScope)

	_, err = f.svc.Reverse(context.Background(), domain.ReverseRequest{
		PaymentID:  paid.Payment.ID,
		ReasonCode: "cheque_bounced",
		Scope:      domain.ReversalScopePartial,
		Lines:      []domain.ReversalLine{{MonthlyTrackingID: f.node.Generate(), Amount: 100}},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.Reverse(context.Background(), domain.ReverseRequest{
		PaymentID:  paid.Payment.ID,
		ReasonCode: "cheque_bounced",
		Scope:      domain.ReversalScopePartial,
		Lines:      []domain.ReversalLine{{MonthlyTrackingID: paid.Allocations[0].MonthlyTrackingID, Amount: 0}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestReverse_ReversalOfReversalRejected(t *testing.T) {
	f := setupFixture(t)
	f.enroll(t, 6000)
	paid := f.allocate(t, 500)

	reversed, err := f.svc.Reverse(context.Background(), domain.ReverseRequest{
		PaymentID:  paid.Payment.ID,
		ReasonCode: "duplicate_payment",
		Scope:      domain.ReversalScopeFull,
	})
	require.NoError(t, err)

	_, err = f.svc.Reverse(context.Background(), domain.ReverseRequest{
		PaymentID:  reversed.Payment.ID,
		ReasonCode: "duplicate_payment",
		Scope:      domain.ReversalScopeFull,
	})
	assert.ErrorIs(t, err, domain.ErrReversalNotAllowed)
}

func TestReverse_FullAfterPartialReversesRemainder(t *testing.T) {
	f := setupFixture(t)
	f.enroll(t, 9600)
	paid := f.allocate(t, 800)
	trackingID := paid.Allocations[0].MonthlyTrackingID

	_, err := f.svc.Reverse(context.Background(), domain.ReverseRequest{
		PaymentID:  paid.Payment.ID,
		ReasonCode: "data_entry_error",
		Scope:      domain.ReversalScopePartial,
		Lines:      []domain.ReversalLine{{MonthlyTrackingID: trackingID, Amount: 300}},
	})
	require.NoError(t, err)

	result, err := f.svc.Reverse(context.Background(), domain.ReverseRequest{
		PaymentID:  paid.Payment.ID,
		ReasonCode: "data_entry_error",
		Scope:      domain.ReversalScopeFull,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(500), result.Payment.Amount)

	detail, err := f.svc.Get(context.Background(), paid.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFullyReversed, detail.Status)

	rows := f.monthlyRows(t)
	assert.Equal(t, int64(0), rows[0].PaidAmount)
	assert.Equal(t, int64(800), rows[0].BalanceAmount)
}
