package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// FeeStructure is one priced version of a class's annual fee for a session.
// Rows are immutable once written: a price change inserts the next Version,
// and fee records keep pointing at the version they were opened against.
type FeeStructure struct {
	ID             snowflake.ID      `gorm:"primaryKey" json:"id"`
	ClassName      string            `gorm:"type:text;not null;uniqueIndex:ux_fee_structures_class_session_version,priority:1" json:"class_name"`
	SessionID      snowflake.ID      `gorm:"not null;index;uniqueIndex:ux_fee_structures_class_session_version,priority:2" json:"session_id"`
	Version        int               `gorm:"not null;uniqueIndex:ux_fee_structures_class_session_version,priority:3" json:"version"`
	Components     datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"components"`
	TotalAnnualFee int64             `gorm:"not null" json:"total_annual_fee"`
	CreatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (FeeStructure) TableName() string { return "fee_structures" }
