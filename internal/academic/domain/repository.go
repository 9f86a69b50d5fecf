package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertStudent(ctx context.Context, db *gorm.DB, student *Student) error
	FindStudent(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Student, error)
	ListStudents(ctx context.Context, db *gorm.DB, className string) ([]Student, error)

	InsertSession(ctx context.Context, db *gorm.DB, session *Session) error
	FindSession(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Session, error)
	ListSessions(ctx context.Context, db *gorm.DB) ([]Session, error)
}
