package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	academicdomain "github.com/vidyalaya/feeledger/internal/academic/domain"
	feedomain "github.com/vidyalaya/feeledger/internal/feestructure/domain"
	paymentdomain "github.com/vidyalaya/feeledger/internal/payment/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var defaultReasons = []paymentdomain.ReversalReason{
	{Code: "cheque_bounced", Description: "Cheque returned unpaid by the bank", Active: true},
	{Code: "data_entry_error", Description: "Payment recorded against the wrong student or amount", Active: true},
	{Code: "duplicate_payment", Description: "The same payment was recorded twice", Active: true},
	{Code: "other", Description: "Other reason, detailed in the audit trail", Active: true},
}

// EnsureReversalReasons inserts the built-in reason codes, leaving existing
// rows untouched.
func EnsureReversalReasons(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, reason := range defaultReasons {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&reason).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// EnsureDefaultSession creates the current academic session when the table
// is empty, so a fresh install can take payments immediately.
func EnsureDefaultSession(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&academicdomain.Session{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		session := currentSession(node, time.Now().UTC())
		return tx.Create(&session).Error
	})
}

// currentSession builds the April-to-March session covering now.
func currentSession(node *snowflake.Node, now time.Time) academicdomain.Session {
	startYear := now.Year()
	if now.Month() < time.April {
		startYear--
	}
	return academicdomain.Session{
		ID:         node.Generate(),
		Label:      sessionLabel(startYear),
		StartYear:  startYear,
		StartMonth: int(time.April),
		Active:     true,
		CreatedAt:  now,
	}
}

func sessionLabel(startYear int) string {
	return fmt.Sprintf("%d-%02d", startYear, (startYear+1)%100)
}

// EnsureDemoData seeds a couple of students and a fee structure for local
// exploration. Idempotent on admission numbers.
func EnsureDemoData(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var session academicdomain.Session
		if err := tx.Order("created_at desc").First(&session).Error; err != nil {
			return err
		}

		now := time.Now().UTC()
		students := []academicdomain.Student{
			{ID: node.Generate(), AdmissionNo: "DEMO-001", Name: "Asha Verma", ClassName: "5", Active: true, CreatedAt: now, UpdatedAt: now},
			{ID: node.Generate(), AdmissionNo: "DEMO-002", Name: "Rohan Gupta", ClassName: "5", Active: true, CreatedAt: now, UpdatedAt: now},
		}
		for _, student := range students {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&student).Error; err != nil {
				return err
			}
		}

		var count int64
		if err := tx.Model(&feedomain.FeeStructure{}).
			Where("class_name = ? AND session_id = ?", "5", session.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		structure := feedomain.FeeStructure{
			ID:        node.Generate(),
			ClassName: "5",
			SessionID: session.ID,
			Version:   1,
			Components: datatypes.JSONMap{
				"tuition":   int64(360000),
				"transport": int64(120000),
			},
			TotalAnnualFee: 480000,
			CreatedAt:      now,
		}
		return tx.Create(&structure).Error
	})
}
