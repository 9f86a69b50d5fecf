package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Session is one academic year. StartMonth is the calendar month of
// academic month 1 (April for most Indian boards).
type Session struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	Label      string       `gorm:"type:text;not null;uniqueIndex:ux_sessions_label" json:"label"`
	StartYear  int          `gorm:"not null" json:"start_year"`
	StartMonth int          `gorm:"not null" json:"start_month"`
	Active     bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Session) TableName() string { return "academic_sessions" }

// MonthOf maps an academic month (1..12) to its calendar year and month.
func (s Session) MonthOf(academicMonth int) (year int, month time.Month) {
	offset := s.StartMonth - 1 + academicMonth - 1
	return s.StartYear + offset/12, time.Month(offset%12 + 1)
}

type Student struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	AdmissionNo string       `gorm:"type:text;not null;uniqueIndex:ux_students_admission_no" json:"admission_no"`
	Name        string       `gorm:"type:text;not null" json:"name"`
	ClassName   string       `gorm:"type:text;not null;index" json:"class_name"`
	Guardian    string       `gorm:"type:text" json:"guardian,omitempty"`
	Phone       string       `gorm:"type:text" json:"phone,omitempty"`
	Active      bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Student) TableName() string { return "students" }
