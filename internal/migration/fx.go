package migration

import (
	"github.com/vidyalaya/feeledger/internal/config"
	"github.com/vidyalaya/feeledger/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	academicdomain "github.com/vidyalaya/feeledger/internal/academic/domain"
	auditdomain "github.com/vidyalaya/feeledger/internal/audit/domain"
	feedomain "github.com/vidyalaya/feeledger/internal/feestructure/domain"
	obligationdomain "github.com/vidyalaya/feeledger/internal/obligation/domain"
	paymentdomain "github.com/vidyalaya/feeledger/internal/payment/domain"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if !cfg.RunMigrations {
			return nil
		}

		if conn.Dialector.Name() == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// sqlite and mysql are dev conveniences; AutoMigrate keeps them
			// usable without a second migration set.
			if err := conn.AutoMigrate(
				&academicdomain.Session{},
				&academicdomain.Student{},
				&feedomain.FeeStructure{},
				&obligationdomain.FeeRecord{},
				&obligationdomain.MonthlyTracking{},
				&paymentdomain.Payment{},
				&paymentdomain.Allocation{},
				&paymentdomain.ReversalReason{},
				&paymentdomain.ReceiptSequence{},
				&auditdomain.AuditLog{},
			); err != nil {
				return err
			}
		}

		if err := seed.EnsureReversalReasons(conn); err != nil {
			return err
		}
		if err := seed.EnsureDefaultSession(conn); err != nil {
			return err
		}
		if cfg.SeedDemoData {
			if err := seed.EnsureDemoData(conn); err != nil {
				return err
			}
		}
		log.Info("migrations applied", zap.String("dialect", conn.Dialector.Name()))
		return nil
	}),
)
