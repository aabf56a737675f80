package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"colony-counter/internal/domain/entity"
	"colony-counter/internal/infrastructure/storage"
)

func TestOperatorService_BeginCountAndCancel(t *testing.T) {
	repo := storage.NewMemoryOperatorRepository()
	svc := NewOperatorService(repo)
	ctx := context.Background()

	operator, err := svc.BeginCount(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateAwaitingPhoto, operator.State)

	operator, err = svc.Cancel(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, operator.State)
}

func TestOperatorService_SetState(t *testing.T) {
	repo := storage.NewMemoryOperatorRepository()
	svc := NewOperatorService(repo)
	ctx := context.Background()

	operator, err := svc.SetState(ctx, 2, 20, entity.StateProcessing)
	require.NoError(t, err)
	require.Equal(t, entity.StateProcessing, operator.State)

	operator, err = svc.Get(ctx, 2, 20)
	require.NoError(t, err)
	require.Equal(t, entity.StateProcessing, operator.State)
}

func TestOperatorService_BindSessionSurvivesStateChanges(t *testing.T) {
	repo := storage.NewMemoryOperatorRepository()
	svc := NewOperatorService(repo)
	ctx := context.Background()

	_, err := svc.BindSession(ctx, 3, 30, "session-1")
	require.NoError(t, err)

	operator, err := svc.BeginCount(ctx, 3, 30)
	require.NoError(t, err)
	require.Equal(t, "session-1", operator.SessionID)
}
