package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/vidyalaya/feeledger/internal/feestructure/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("feestructure.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.FeeStructure, error) {
	req.ClassName = strings.TrimSpace(req.ClassName)
	if req.ClassName == "" || req.SessionID == 0 {
		return domain.FeeStructure{}, domain.ErrInvalidClass
	}
	if req.TotalAnnualFee <= 0 {
		return domain.FeeStructure{}, domain.ErrInvalidAmount
	}
	if len(req.Components) > 0 {
		var sum int64
		for _, amount := range req.Components {
			if amount < 0 {
				return domain.FeeStructure{}, domain.ErrInvalidAmount
			}
			sum += amount
		}
		if sum != req.TotalAnnualFee {
			return domain.FeeStructure{}, domain.ErrComponentSum
		}
	}

	var created domain.FeeStructure
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		version := 1
		if latest, err := s.repo.FindLatest(ctx, tx, req.ClassName, req.SessionID); err != nil {
			return err
		} else if latest != nil {
			version = latest.Version + 1
		}

		components := datatypes.JSONMap{}
		for name, amount := range req.Components {
			components[name] = amount
		}

		created = domain.FeeStructure{
			ID:             s.genID.Generate(),
			ClassName:      req.ClassName,
			SessionID:      req.SessionID,
			Version:        version,
			Components:     components,
			TotalAnnualFee: req.TotalAnnualFee,
			CreatedAt:      time.Now().UTC(),
		}
		return s.repo.Insert(ctx, tx, &created)
	})
	if err != nil {
		return domain.FeeStructure{}, err
	}

	s.log.Info("fee structure created",
		zap.String("class", created.ClassName),
		zap.Int("version", created.Version),
		zap.Int64("total_annual_fee", created.TotalAnnualFee),
	)
	return created, nil
}

func (s *Service) Latest(ctx context.Context, className string, sessionID snowflake.ID) (domain.FeeStructure, error) {
	item, err := s.repo.FindLatest(ctx, s.db, strings.TrimSpace(className), sessionID)
	if err != nil {
		return domain.FeeStructure{}, err
	}
	if item == nil {
		return domain.FeeStructure{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, sessionID snowflake.ID) ([]domain.FeeStructure, error) {
	return s.repo.List(ctx, s.db, sessionID)
}
