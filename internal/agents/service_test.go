package agents

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/washfold-backend/pkg/db/dbtest"
	"github.com/angelmondragon/washfold-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/washfold-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, Repository) {
	t.Helper()
	repo := NewRepository(dbtest.Open(t))
	svc, err := NewService(repo, nil)
	require.NoError(t, err)
	return svc, repo
}

func TestRegisterApproveAndToggleAvailability(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	profile, err := svc.Register(ctx, RegisterInput{UserID: userID, Name: "  Ravi  "})
	require.NoError(t, err)
	assert.Equal(t, "Ravi", profile.Name)
	assert.Equal(t, enums.AgentStatusPending, profile.Status)
	assert.False(t, profile.IsAvailable)

	_, err = svc.SetAvailability(ctx, userID, true)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())

	_, err = svc.Approve(ctx, profile.ID)
	require.NoError(t, err)
	on, err := svc.SetAvailability(ctx, userID, true)
	require.NoError(t, err)
	assert.True(t, on.IsAvailable)

	me, err := svc.Me(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, enums.AgentStatusApproved, me.Status)
	assert.True(t, me.IsAvailable)

	suspended, err := svc.Suspend(ctx, profile.ID)
	require.NoError(t, err)
	assert.False(t, suspended.IsAvailable)
	assert.Equal(t, enums.AgentStatusSuspended, suspended.Status)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Register(ctx, RegisterInput{UserID: userID, Name: "Asha"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterInput{UserID: userID, Name: "Asha"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestListFiltersByStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Register(ctx, RegisterInput{UserID: uuid.New(), Name: "Asha"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterInput{UserID: uuid.New(), Name: "Bala"})
	require.NoError(t, err)
	_, err = svc.Approve(ctx, a.ID)
	require.NoError(t, err)

	approved := enums.AgentStatusApproved
	rows, err := svc.List(ctx, &approved)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Asha", rows[0].Name)

	all, err := svc.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.Me(ctx, uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
