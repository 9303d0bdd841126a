package slots

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/washfold-backend/pkg/config"
	"github.com/angelmondragon/washfold-backend/pkg/db/dbtest"
	"github.com/angelmondragon/washfold-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/washfold-backend/pkg/db/types"
	pkgerrors "github.com/angelmondragon/washfold-backend/pkg/errors"
)

var testWindows = []config.SlotWindow{
	{Name: "MORNING", Label: "9:00 AM - 1:00 PM"},
	{Name: "EVENING", Label: "3:00 PM - 7:00 PM"},
}

func fixedNow() time.Time {
	return time.Date(2026, time.October, 19, 10, 0, 0, 0, time.UTC)
}

func newTestManager(t *testing.T, capacity int) (Manager, Repository) {
	t.Helper()
	repo := NewRepository(dbtest.Open(t))
	mgr, err := NewManager(ManagerParams{
		Repo:            repo,
		Windows:         testWindows,
		DefaultCapacity: capacity,
		Now:             fixedNow,
	})
	require.NoError(t, err)
	return mgr, repo
}

func tomorrow() dbtypes.Date {
	return dbtypes.NewDate(fixedNow().AddDate(0, 0, 1))
}

func TestListAvailabilityCreatesConfiguredWindows(t *testing.T) {
	mgr, repo := newTestManager(t, 50)
	ctx := context.Background()

	first, err := mgr.ListAvailability(ctx, tomorrow())
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "MORNING", first[0].Window)
	assert.Equal(t, "9:00 AM - 1:00 PM", first[0].Label)
	assert.Equal(t, 50, first[0].MaxCapacity)
	assert.Equal(t, 0, first[0].CurrentBookings)
	assert.True(t, first[0].Available)
	assert.Equal(t, "EVENING", first[1].Window)

	second, err := mgr.ListAvailability(ctx, tomorrow())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	rows, err := repo.ListByDate(ctx, tomorrow())
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestListAvailabilityRejectsPastDates(t *testing.T) {
	mgr, _ := newTestManager(t, 50)
	_, err := mgr.ListAvailability(context.Background(), dbtypes.NewDate(fixedNow().AddDate(0, 0, -1)))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestReserveIncrementsAndRejectsWhenFull(t *testing.T) {
	mgr, repo := newTestManager(t, 2)
	ctx := context.Background()

	slot, err := mgr.Reserve(ctx, nil, tomorrow(), "morning")
	require.NoError(t, err)
	assert.Equal(t, 1, slot.CurrentBookings)

	_, err = mgr.Reserve(ctx, nil, tomorrow(), "MORNING")
	require.NoError(t, err)

	_, err = mgr.Reserve(ctx, nil, tomorrow(), "MORNING")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
	assert.Contains(t, err.Error(), "fully booked")

	stored, err := repo.Find(ctx, tomorrow(), "MORNING")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.CurrentBookings)
}

func TestReserveRejectsDisabledSlot(t *testing.T) {
	mgr, repo := newTestManager(t, 5)
	ctx := context.Background()

	disabled := false
	_, err := mgr.UpdateSlot(ctx, UpdateSlotInput{Date: tomorrow(), Window: "EVENING", Enabled: &disabled})
	require.NoError(t, err)

	_, err = mgr.Reserve(ctx, nil, tomorrow(), "EVENING")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
	assert.Contains(t, err.Error(), "not available")

	stored, err := repo.Find(ctx, tomorrow(), "EVENING")
	require.NoError(t, err)
	assert.Equal(t, 0, stored.CurrentBookings)
}

func TestReserveValidatesInput(t *testing.T) {
	mgr, _ := newTestManager(t, 5)
	ctx := context.Background()

	_, err := mgr.Reserve(ctx, nil, tomorrow(), "NIGHT")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = mgr.Reserve(ctx, nil, dbtypes.NewDate(fixedNow().AddDate(0, 0, -3)), "MORNING")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestReserveLastSeatConcurrently(t *testing.T) {
	mgr, repo := newTestManager(t, 1)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = mgr.Reserve(ctx, nil, tomorrow(), "MORNING")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
	}
	assert.Equal(t, 1, succeeded)

	stored, err := repo.Find(ctx, tomorrow(), "MORNING")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.CurrentBookings)
}

func TestReserveNeverExceedsCapacity(t *testing.T) {
	const capacity = 5
	const attempts = 20
	mgr, repo := newTestManager(t, capacity)
	ctx := context.Background()

	var wg sync.WaitGroup
	var succeeded int32
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := mgr.Reserve(ctx, nil, tomorrow(), "EVENING"); err == nil {
				atomic.AddInt32(&succeeded, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(capacity), succeeded)
	stored, err := repo.Find(ctx, tomorrow(), "EVENING")
	require.NoError(t, err)
	assert.Equal(t, capacity, stored.CurrentBookings)
}

func TestReleaseFloorsAtZero(t *testing.T) {
	mgr, repo := newTestManager(t, 3)
	ctx := context.Background()

	_, err := mgr.Reserve(ctx, nil, tomorrow(), "MORNING")
	require.NoError(t, err)

	require.NoError(t, mgr.Release(ctx, nil, tomorrow(), "MORNING"))
	require.NoError(t, mgr.Release(ctx, nil, tomorrow(), "MORNING"))

	stored, err := repo.Find(ctx, tomorrow(), "MORNING")
	require.NoError(t, err)
	assert.Equal(t, 0, stored.CurrentBookings)

	require.NoError(t, mgr.Release(ctx, nil, dbtypes.NewDate(fixedNow().AddDate(0, 0, 9)), "EVENING"))
}

func TestReserveInsideRolledBackTransaction(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	mgr, err := NewManager(ManagerParams{Repo: repo, Windows: testWindows, DefaultCapacity: 2, Now: fixedNow})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = mgr.ListAvailability(ctx, tomorrow())
	require.NoError(t, err)

	tx := db.Begin()
	_, err = mgr.Reserve(ctx, tx, tomorrow(), "MORNING")
	require.NoError(t, err)
	require.NoError(t, tx.Rollback().Error)

	stored, err := repo.Find(ctx, tomorrow(), "MORNING")
	require.NoError(t, err)
	assert.Equal(t, 0, stored.CurrentBookings)
}

func TestUpdateSlotCapacityBelowBookings(t *testing.T) {
	mgr, _ := newTestManager(t, 3)
	ctx := context.Background()

	_, err := mgr.Reserve(ctx, nil, tomorrow(), "MORNING")
	require.NoError(t, err)
	_, err = mgr.Reserve(ctx, nil, tomorrow(), "MORNING")
	require.NoError(t, err)

	one := 1
	_, err = mgr.UpdateSlot(ctx, UpdateSlotInput{Date: tomorrow(), Window: "MORNING", MaxCapacity: &one})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())

	ten := 10
	view, err := mgr.UpdateSlot(ctx, UpdateSlotInput{Date: tomorrow(), Window: "MORNING", MaxCapacity: &ten})
	require.NoError(t, err)
	assert.Equal(t, 10, view.MaxCapacity)
	assert.Equal(t, 2, view.CurrentBookings)
	assert.True(t, view.Available)
}

// staleFindRepo serves the slot as it looked before any bookings landed.
type staleFindRepo struct {
	Repository
}

func (r staleFindRepo) Find(ctx context.Context, date dbtypes.Date, window string) (*models.Slot, error) {
	slot, err := r.Repository.Find(ctx, date, window)
	if err != nil {
		return nil, err
	}
	slot.CurrentBookings = 0
	return slot, nil
}

func TestUpdateSlotCapacityRechecksBookingsOnWrite(t *testing.T) {
	mgr, repo := newTestManager(t, 3)
	ctx := context.Background()

	_, err := mgr.Reserve(ctx, nil, tomorrow(), "MORNING")
	require.NoError(t, err)
	_, err = mgr.Reserve(ctx, nil, tomorrow(), "MORNING")
	require.NoError(t, err)

	stale, err := NewManager(ManagerParams{
		Repo:            staleFindRepo{Repository: repo},
		Windows:         testWindows,
		DefaultCapacity: 3,
		Now:             fixedNow,
	})
	require.NoError(t, err)

	one := 1
	_, err = stale.UpdateSlot(ctx, UpdateSlotInput{Date: tomorrow(), Window: "MORNING", MaxCapacity: &one})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())

	slot, err := repo.Find(ctx, tomorrow(), "MORNING")
	require.NoError(t, err)
	assert.Equal(t, 3, slot.MaxCapacity)
	assert.Equal(t, 2, slot.CurrentBookings)

	disabled := false
	view, err := stale.UpdateSlot(ctx, UpdateSlotInput{Date: tomorrow(), Window: "MORNING", Enabled: &disabled})
	require.NoError(t, err)
	assert.False(t, view.Enabled)
}

func TestNewManagerValidation(t *testing.T) {
	_, err := NewManager(ManagerParams{})
	require.Error(t, err)
	_, err = NewManager(ManagerParams{Repo: NewRepository(nil)})
	require.Error(t, err)
	_, err = NewManager(ManagerParams{Repo: NewRepository(nil), Windows: testWindows})
	require.Error(t, err)
}
