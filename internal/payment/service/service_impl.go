package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/vidyalaya/feeledger/internal/audit/domain"
	"github.com/vidyalaya/feeledger/internal/clock"
	"github.com/vidyalaya/feeledger/internal/config"
	"github.com/vidyalaya/feeledger/internal/locking"
	"github.com/vidyalaya/feeledger/internal/observability/metrics"
	obligationdomain "github.com/vidyalaya/feeledger/internal/obligation/domain"
	"github.com/vidyalaya/feeledger/internal/payment/domain"
	pkgdb "github.com/vidyalaya/feeledger/pkg/db"
	"github.com/vidyalaya/feeledger/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Cfg         config.Config
	Locker      locking.Locker
	Metrics     *metrics.Metrics
	Repo        domain.Repository
	Obligations obligationdomain.Repository
	Audit       auditdomain.Service
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	cfg         config.Config
	locker      locking.Locker
	metrics     *metrics.Metrics
	repo        domain.Repository
	obligations obligationdomain.Repository
	audit       auditdomain.Service
}

func NewService(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("payment.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		cfg:         p.Cfg,
		locker:      p.Locker,
		metrics:     p.Metrics,
		repo:        p.Repo,
		obligations: p.Obligations,
		audit:       p.Audit,
	}
}

func (s *Service) lockKey(studentID, sessionID snowflake.ID) string {
	return fmt.Sprintf("feeledger:ledger:%d:%d", studentID, sessionID)
}

// withLedgerLock serializes one read-modify-write cycle per (student,
// session). Contention is retried a bounded number of times before
// surfacing ErrConcurrencyConflict.
func (s *Service) withLedgerLock(ctx context.Context, studentID, sessionID snowflake.ID, operation string, fn func() error) error {
	key := s.lockKey(studentID, sessionID)
	attempts := s.cfg.LockRetries
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		token, ok, err := s.locker.TryLock(ctx, key, s.cfg.LockTTL)
		if err != nil {
			return fmt.Errorf("acquire ledger lock: %w", err)
		}
		if !ok {
			s.metrics.RecordLockConflict(ctx, operation)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.cfg.LockRetryDelay):
			}
			continue
		}

		err = fn()
		if releaseErr := s.locker.Release(ctx, key, token); releaseErr != nil {
			s.log.Warn("failed to release ledger lock", zap.String("key", key), zap.Error(releaseErr))
		}
		return err
	}
	return domain.ErrConcurrencyConflict
}

func (s *Service) Allocate(ctx context.Context, req domain.AllocateRequest) (domain.AllocateResult, error) {
	if req.Amount <= 0 {
		return domain.AllocateResult{}, domain.ErrInvalidAmount
	}
	req.Method = strings.ToLower(strings.TrimSpace(req.Method))
	if !domain.KnownMethod(req.Method) {
		return domain.AllocateResult{}, domain.ErrInvalidMethod
	}
	if req.PaymentDate.IsZero() {
		req.PaymentDate = s.clock.Now()
	}

	if replay, ok, err := s.replayByTransactionID(ctx, req.TransactionID); err != nil {
		return domain.AllocateResult{}, err
	} else if ok {
		return replay, nil
	}

	var result domain.AllocateResult
	err := s.withLedgerLock(ctx, req.StudentID, req.SessionID, "allocate", func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			record, err := s.obligations.FindFeeRecord(ctx, tx, req.StudentID, req.SessionID, true)
			if err != nil {
				return err
			}
			if record == nil {
				return domain.ErrFeeRecordNotFound
			}

			outstanding, err := s.obligations.ListOutstanding(ctx, tx, record.ID, true)
			if err != nil {
				return err
			}
			if len(outstanding) == 0 {
				// A payment row always carries at least one allocation;
				// money received against a settled ledger is rejected.
				return domain.ErrNothingOutstanding
			}

			receiptSeq, err := s.repo.NextReceiptNumber(ctx, tx, req.SessionID)
			if err != nil {
				return err
			}

			now := s.clock.Now()
			payment := domain.Payment{
				ID:            s.genID.Generate(),
				StudentID:     req.StudentID,
				SessionID:     req.SessionID,
				FeeRecordID:   record.ID,
				Amount:        req.Amount,
				Method:        req.Method,
				PaymentDate:   req.PaymentDate.UTC(),
				TransactionID: normalizePointer(req.TransactionID),
				ReceiptNumber: fmt.Sprintf("RCP-%d-%06d", req.SessionID, receiptSeq),
				Metadata:      toJSONMap(req.Metadata),
				CreatedAt:     now,
			}

			remaining := req.Amount
			var allocations []domain.Allocation
			for i := range outstanding {
				if remaining == 0 {
					break
				}
				row := &outstanding[i]
				take := row.BalanceAmount
				if take > remaining {
					take = remaining
				}
				allocations = append(allocations, domain.Allocation{
					ID:                s.genID.Generate(),
					PaymentID:         payment.ID,
					MonthlyTrackingID: row.ID,
					Amount:            take,
					CreatedAt:         now,
				})
				row.PaidAmount += take
				row.BalanceAmount -= take
				if err := s.obligations.SaveMonthlyAmounts(ctx, tx, row); err != nil {
					return err
				}
				remaining -= take
			}

			allocated := req.Amount - remaining
			if allocated > 0 {
				record.PaidAmount += allocated
				record.BalanceAmount -= allocated
				if err := s.obligations.SaveFeeRecordAmounts(ctx, tx, record); err != nil {
					return err
				}
			}

			if err := s.repo.InsertPayment(ctx, tx, &payment); err != nil {
				return err
			}
			if err := s.repo.InsertAllocations(ctx, tx, allocations); err != nil {
				return err
			}

			result = domain.AllocateResult{
				Payment:        payment,
				Allocations:    allocations,
				OverpaidAmount: remaining,
			}
			return s.audit.RecordTx(ctx, tx, auditdomain.Entry{
				ActorType:  auditdomain.ActorTypeSystem,
				Action:     auditdomain.ActionPaymentAllocated,
				TargetType: "payment",
				TargetID:   strPtr(payment.ID.String()),
				Metadata: map[string]any{
					"student_id":      payment.StudentID.String(),
					"session_id":      payment.SessionID.String(),
					"amount":          payment.Amount,
					"allocated":       allocated,
					"overpaid_amount": remaining,
					"receipt_number":  payment.ReceiptNumber,
					"months":          len(allocations),
				},
			})
		})
	})
	if err != nil {
		// A concurrent replay of the same transaction id loses the unique
		// index race; hand back the winner's result.
		if pkgdb.IsDuplicateKeyErr(err) && req.TransactionID != nil {
			if replay, ok, replayErr := s.replayByTransactionID(ctx, req.TransactionID); replayErr == nil && ok {
				return replay, nil
			}
		}
		return domain.AllocateResult{}, err
	}

	s.metrics.RecordAllocation(ctx, result.Payment.Method, len(result.Allocations))
	if result.OverpaidAmount > 0 {
		s.metrics.RecordOverpaid(ctx)
	}
	s.log.Info("payment allocated",
		zap.Int64("payment_id", int64(result.Payment.ID)),
		zap.Int64("student_id", int64(result.Payment.StudentID)),
		zap.Int64("amount", result.Payment.Amount),
		zap.Int64("overpaid_amount", result.OverpaidAmount),
		zap.Int("months", len(result.Allocations)),
	)
	return result, nil
}

func (s *Service) replayByTransactionID(ctx context.Context, transactionID *string) (domain.AllocateResult, bool, error) {
	id := normalizePointer(transactionID)
	if id == nil {
		return domain.AllocateResult{}, false, nil
	}
	existing, err := s.repo.FindPaymentByTransactionID(ctx, s.db, *id)
	if err != nil || existing == nil {
		return domain.AllocateResult{}, false, err
	}
	allocations, err := s.repo.ListAllocationsByPayment(ctx, s.db, existing.ID)
	if err != nil {
		return domain.AllocateResult{}, false, err
	}
	var allocated int64
	for _, a := range allocations {
		allocated += a.Amount
	}
	return domain.AllocateResult{
		Payment:        *existing,
		Allocations:    allocations,
		OverpaidAmount: existing.Amount - allocated,
		Replayed:       true,
	}, true, nil
}

func (s *Service) Reverse(ctx context.Context, req domain.ReverseRequest) (domain.ReverseResult, error) {
	req.Scope = strings.ToUpper(strings.TrimSpace(req.Scope))
	if req.Scope != domain.ReversalScopeFull && req.Scope != domain.ReversalScopePartial {
		return domain.ReverseResult{}, domain.ErrInvalidScope
	}
	if req.Scope == domain.ReversalScopePartial && len(req.Lines) == 0 {
		return domain.ReverseResult{}, domain.ErrInvalidAmount
	}

	original, err := s.repo.FindPayment(ctx, s.db, req.PaymentID, false)
	if err != nil {
		return domain.ReverseResult{}, err
	}
	if original == nil {
		return domain.ReverseResult{}, domain.ErrNotFound
	}

	var result domain.ReverseResult
	err = s.withLedgerLock(ctx, original.StudentID, original.SessionID, "reverse", func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			original, err := s.repo.FindPayment(ctx, tx, req.PaymentID, true)
			if err != nil {
				return err
			}
			if original == nil {
				return domain.ErrNotFound
			}
			if original.IsReversal {
				return domain.ErrReversalNotAllowed
			}

			reason, err := s.repo.FindReversalReason(ctx, tx, strings.TrimSpace(req.ReasonCode))
			if err != nil {
				return err
			}
			if reason == nil || !reason.Active {
				return domain.ErrInvalidReasonCode
			}

			originals, err := s.repo.ListAllocationsByPayment(ctx, tx, original.ID)
			if err != nil {
				return err
			}
			reversedPer, err := s.repo.ReversedPerAllocation(ctx, tx, original.ID)
			if err != nil {
				return err
			}

			lines, err := buildReversalLines(req, originals, reversedPer)
			if err != nil {
				return err
			}

			var total int64
			for _, line := range lines {
				total += line.amount
			}

			receiptSeq, err := s.repo.NextReceiptNumber(ctx, tx, original.SessionID)
			if err != nil {
				return err
			}

			now := s.clock.Now()
			reasonCode := reason.Code
			scope := req.Scope
			reversal := domain.Payment{
				ID:                s.genID.Generate(),
				StudentID:         original.StudentID,
				SessionID:         original.SessionID,
				FeeRecordID:       original.FeeRecordID,
				Amount:            total,
				Method:            original.Method,
				PaymentDate:       now,
				ReceiptNumber:     fmt.Sprintf("RCP-%d-%06d", original.SessionID, receiptSeq),
				IsReversal:        true,
				ReversesPaymentID: &original.ID,
				ReversalReason:    &reasonCode,
				ReversalType:      &scope,
				CreatedAt:         now,
			}
			if err := s.repo.InsertPayment(ctx, tx, &reversal); err != nil {
				return err
			}

			mirrored := make([]domain.Allocation, 0, len(lines))
			for _, line := range lines {
				origID := line.original.ID
				mirrored = append(mirrored, domain.Allocation{
					ID:                   s.genID.Generate(),
					PaymentID:            reversal.ID,
					MonthlyTrackingID:    line.original.MonthlyTrackingID,
					Amount:               line.amount,
					IsReversal:           true,
					ReversesAllocationID: &origID,
					CreatedAt:            now,
				})

				month, err := s.obligations.FindMonthlyByID(ctx, tx, line.original.MonthlyTrackingID, true)
				if err != nil {
					return err
				}
				if month == nil {
					return domain.ErrNotFound
				}
				month.PaidAmount -= line.amount
				if month.PaidAmount < 0 {
					month.PaidAmount = 0
				}
				month.BalanceAmount = month.MonthlyAmount - month.PaidAmount
				if err := s.obligations.SaveMonthlyAmounts(ctx, tx, month); err != nil {
					return err
				}
			}
			if err := s.repo.InsertAllocations(ctx, tx, mirrored); err != nil {
				return err
			}

			record, err := s.obligations.FindFeeRecord(ctx, tx, original.StudentID, original.SessionID, true)
			if err != nil {
				return err
			}
			if record == nil {
				return domain.ErrFeeRecordNotFound
			}
			record.PaidAmount -= total
			if record.PaidAmount < 0 {
				record.PaidAmount = 0
			}
			record.BalanceAmount = record.TotalAmount - record.PaidAmount
			if err := s.obligations.SaveFeeRecordAmounts(ctx, tx, record); err != nil {
				return err
			}

			result = domain.ReverseResult{Payment: reversal, Allocations: mirrored}
			return s.audit.RecordTx(ctx, tx, auditdomain.Entry{
				ActorType:  auditdomain.ActorTypeUser,
				ActorID:    req.ActorID,
				Action:     auditdomain.ActionPaymentReversed,
				TargetType: "payment",
				TargetID:   strPtr(original.ID.String()),
				Metadata: map[string]any{
					"reversal_id":     reversal.ID.String(),
					"reversal_type":   scope,
					"reversal_reason": reasonCode,
					"amount":          total,
					"lines":           len(mirrored),
				},
			})
		})
	})
	if err != nil {
		return domain.ReverseResult{}, err
	}

	s.metrics.RecordReversal(ctx, req.Scope)
	s.log.Info("payment reversed",
		zap.Int64("payment_id", int64(req.PaymentID)),
		zap.Int64("reversal_id", int64(result.Payment.ID)),
		zap.String("scope", req.Scope),
		zap.Int64("amount", result.Payment.Amount),
	)
	return result, nil
}

type reversalLine struct {
	original domain.Allocation
	amount   int64
}

// buildReversalLines resolves the request into per-allocation amounts,
// capping each by what is still reversible on the original allocation.
func buildReversalLines(req domain.ReverseRequest, originals []domain.Allocation, reversedPer map[snowflake.ID]int64) ([]reversalLine, error) {
	byMonth := make(map[snowflake.ID]domain.Allocation, len(originals))
	for _, a := range originals {
		byMonth[a.MonthlyTrackingID] = a
	}

	if req.Scope == domain.ReversalScopeFull {
		var lines []reversalLine
		for _, a := range originals {
			remaining := a.Amount - reversedPer[a.ID]
			if remaining > 0 {
				lines = append(lines, reversalLine{original: a, amount: remaining})
			}
		}
		if len(lines) == 0 {
			return nil, domain.ErrAlreadyReversed
		}
		return lines, nil
	}

	// Caps are tracked per allocation across the whole request so repeated
	// lines for the same month cannot reverse more than was allocated.
	remaining := make(map[snowflake.ID]int64, len(originals))
	for _, a := range originals {
		remaining[a.ID] = a.Amount - reversedPer[a.ID]
	}

	lines := make([]reversalLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		if line.Amount <= 0 {
			return nil, domain.ErrInvalidAmount
		}
		orig, ok := byMonth[line.MonthlyTrackingID]
		if !ok {
			return nil, domain.ErrNotFound
		}
		if orig.Amount-reversedPer[orig.ID] <= 0 {
			return nil, domain.ErrAlreadyReversed
		}
		if line.Amount > remaining[orig.ID] {
			return nil, domain.ErrAmountExceedsOriginal
		}
		remaining[orig.ID] -= line.Amount
		lines = append(lines, reversalLine{original: orig, amount: line.Amount})
	}
	return lines, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.PaymentDetail, error) {
	payment, err := s.repo.FindPayment(ctx, s.db, id, false)
	if err != nil {
		return domain.PaymentDetail{}, err
	}
	if payment == nil {
		return domain.PaymentDetail{}, domain.ErrNotFound
	}
	return s.detail(ctx, *payment)
}

func (s *Service) detail(ctx context.Context, payment domain.Payment) (domain.PaymentDetail, error) {
	allocations, err := s.repo.ListAllocationsByPayment(ctx, s.db, payment.ID)
	if err != nil {
		return domain.PaymentDetail{}, err
	}

	detail := domain.PaymentDetail{
		Payment:     payment,
		Allocations: allocations,
		Status:      domain.StatusActive,
	}
	if payment.IsReversal {
		return detail, nil
	}

	reversedPer, err := s.repo.ReversedPerAllocation(ctx, s.db, payment.ID)
	if err != nil {
		return domain.PaymentDetail{}, err
	}
	var allocated, reversed int64
	for _, a := range allocations {
		allocated += a.Amount
		reversed += reversedPer[a.ID]
	}
	detail.ReversedAmount = reversed
	switch {
	case reversed == 0:
	case reversed < allocated:
		detail.Status = domain.StatusPartiallyReversed
	default:
		detail.Status = domain.StatusFullyReversed
	}
	return detail, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	var cursor *domain.PaymentCursor
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		createdAt, err := time.Parse(time.RFC3339, decoded.CreatedAt)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil || id == 0 {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		cursor = &domain.PaymentCursor{ID: id, CreatedAt: createdAt}
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 250 {
		pageSize = 250
	}

	payments, err := s.repo.ListPayments(ctx, s.db, domain.PaymentFilter{
		StudentID: req.StudentID,
		SessionID: req.SessionID,
		Cursor:    cursor,
		Limit:     pageSize,
	})
	if err != nil {
		return domain.ListResponse{}, err
	}

	payments, pageInfo := pagination.Trim(payments, pageSize, func(item *domain.Payment) pagination.Cursor {
		return pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CreatedAt.Format(time.RFC3339),
		}
	})

	details := make([]domain.PaymentDetail, 0, len(payments))
	for _, p := range payments {
		if p == nil {
			continue
		}
		detail, err := s.detail(ctx, *p)
		if err != nil {
			return domain.ListResponse{}, err
		}
		details = append(details, detail)
	}
	return domain.ListResponse{PageInfo: pageInfo, Payments: details}, nil
}

func (s *Service) ListReversalReasons(ctx context.Context) ([]domain.ReversalReason, error) {
	return s.repo.ListReversalReasons(ctx, s.db)
}

func toJSONMap(in map[string]any) datatypes.JSONMap {
	if len(in) == 0 {
		return nil
	}
	out := datatypes.JSONMap{}
	for k, v := range in {
		if k == "" {
			continue
		}
		out[k] = v
	}
	return out
}

func normalizePointer(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func strPtr(v string) *string { return &v }
