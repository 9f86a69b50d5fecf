package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/vidyalaya/feeledger/internal/feestructure/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, fs *domain.FeeStructure) error {
	return db.WithContext(ctx).Create(fs).Error
}

func (r *repo) FindLatest(ctx context.Context, db *gorm.DB, className string, sessionID snowflake.ID) (*domain.FeeStructure, error) {
	var item domain.FeeStructure
	err := db.WithContext(ctx).
		Where("class_name = ? AND session_id = ?", className, sessionID).
		Order("version DESC").
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, sessionID snowflake.ID) ([]domain.FeeStructure, error) {
	var items []domain.FeeStructure
	stmt := db.WithContext(ctx).Order("class_name, version")
	if sessionID != 0 {
		stmt = stmt.Where("session_id = ?", sessionID)
	}
	err := stmt.Find(&items).Error
	return items, err
}
