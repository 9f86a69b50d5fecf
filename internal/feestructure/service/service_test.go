package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vidyalaya/feeledger/internal/feestructure/domain"
	"github.com/vidyalaya/feeledger/internal/feestructure/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupService(t *testing.T) (domain.Service, snowflake.ID) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.FeeStructure{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
	return svc, node.Generate()
}

func TestCreate_VersionsAreImmutableAndIncrement(t *testing.T) {
	svc, sessionID := setupService(t)
	ctx := context.Background()

	v1, err := svc.Create(ctx, domain.CreateRequest{
		ClassName:      "5",
		SessionID:      sessionID,
		TotalAnnualFee: 480000,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, v1.Version)

	v2, err := svc.Create(ctx, domain.CreateRequest{
		ClassName:      "5",
		SessionID:      sessionID,
		TotalAnnualFee: 540000,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, v2.Version)

	latest, err := svc.Latest(ctx, "5", sessionID)
	require.NoError(t, err)
	assert.Equal(t, v2.ID, latest.ID)
	assert.Equal(t, int64(540000), latest.TotalAnnualFee)

	// The older version is still there untouched.
	all, err := svc.List(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, int64(480000), all[0].TotalAnnualFee)
}

func TestCreate_Validation(t *testing.T) {
	svc, sessionID := setupService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateRequest{ClassName: "", SessionID: sessionID, TotalAnnualFee: 100})
	assert.ErrorIs(t, err, domain.ErrInvalidClass)

	_, err = svc.Create(ctx, domain.CreateRequest{ClassName: "5", SessionID: sessionID, TotalAnnualFee: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = svc.Create(ctx, domain.CreateRequest{
		ClassName:      "5",
		SessionID:      sessionID,
		TotalAnnualFee: 1000,
		Components:     map[string]int64{"tuition": 700, "transport": 200},
	})
	assert.ErrorIs(t, err, domain.ErrComponentSum)
}

func TestLatest_NotFound(t *testing.T) {
	svc, sessionID := setupService(t)

	_, err := svc.Latest(context.Background(), "9", sessionID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
