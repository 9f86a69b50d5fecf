package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/vidyalaya/feeledger/internal/academic/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertStudent(ctx context.Context, db *gorm.DB, student *domain.Student) error {
	return db.WithContext(ctx).Create(student).Error
}

func (r *repo) FindStudent(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Student, error) {
	var item domain.Student
	err := db.WithContext(ctx).First(&item, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *repo) ListStudents(ctx context.Context, db *gorm.DB, className string) ([]domain.Student, error) {
	var items []domain.Student
	stmt := db.WithContext(ctx).Order("admission_no")
	if className != "" {
		stmt = stmt.Where("class_name = ?", className)
	}
	err := stmt.Find(&items).Error
	return items, err
}

func (r *repo) InsertSession(ctx context.Context, db *gorm.DB, session *domain.Session) error {
	return db.WithContext(ctx).Create(session).Error
}

func (r *repo) FindSession(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Session, error) {
	var item domain.Session
	err := db.WithContext(ctx).First(&item, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *repo) ListSessions(ctx context.Context, db *gorm.DB) ([]domain.Session, error) {
	var items []domain.Session
	err := db.WithContext(ctx).Order("start_year DESC").Find(&items).Error
	return items, err
}
