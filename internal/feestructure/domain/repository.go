package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, fs *FeeStructure) error
	FindLatest(ctx context.Context, db *gorm.DB, className string, sessionID snowflake.ID) (*FeeStructure, error)
	List(ctx context.Context, db *gorm.DB, sessionID snowflake.ID) ([]FeeStructure, error)
}
