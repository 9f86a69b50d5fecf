package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateRequest struct {
	ClassName      string
	SessionID      snowflake.ID
	Components     map[string]int64
	TotalAnnualFee int64
}

type Service interface {
	// Create writes the next version for (class, session). Existing versions
	// are never modified.
	Create(ctx context.Context, req CreateRequest) (FeeStructure, error)
	Latest(ctx context.Context, className string, sessionID snowflake.ID) (FeeStructure, error)
	List(ctx context.Context, sessionID snowflake.ID) ([]FeeStructure, error)
}

var (
	ErrNotFound      = errors.New("fee_structure_not_found")
	ErrInvalidClass  = errors.New("invalid_class")
	ErrInvalidAmount = errors.New("invalid_annual_fee")
	ErrComponentSum  = errors.New("component_sum_mismatch")
)
