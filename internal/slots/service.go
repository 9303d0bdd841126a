package slots

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/washfold-backend/pkg/config"
	"github.com/angelmondragon/washfold-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/washfold-backend/pkg/db/types"
	pkgerrors "github.com/angelmondragon/washfold-backend/pkg/errors"
	"github.com/angelmondragon/washfold-backend/pkg/metrics"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	reserveResultReserved    = "reserved"
	reserveResultFull        = "full"
	reserveResultUnavailable = "unavailable"
	reserveResultError       = "error"
)

// Manager grants and releases slot reservations. Reserve and Release accept an
// optional transaction so callers can bind them to a larger unit of work.
type Manager interface {
	Reserve(ctx context.Context, tx *gorm.DB, date dbtypes.Date, window string) (*models.Slot, error)
	Release(ctx context.Context, tx *gorm.DB, date dbtypes.Date, window string) error
	ListAvailability(ctx context.Context, date dbtypes.Date) ([]Availability, error)
	UpdateSlot(ctx context.Context, input UpdateSlotInput) (*Availability, error)
	Windows() []config.SlotWindow
	Today() dbtypes.Date
}

// ManagerParams wires a slot manager.
type ManagerParams struct {
	Repo            Repository
	Windows         []config.SlotWindow
	DefaultCapacity int
	Location        *time.Location
	Metrics         *metrics.DomainMetrics
	Now             func() time.Time
}

type manager struct {
	repo            Repository
	windows         []config.SlotWindow
	labels          map[string]string
	defaultCapacity int
	loc             *time.Location
	metrics         *metrics.DomainMetrics
	now             func() time.Time
}

// NewManager validates the params and returns a Manager.
func NewManager(params ManagerParams) (Manager, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("slots repository required")
	}
	if len(params.Windows) == 0 {
		return nil, fmt.Errorf("at least one slot window required")
	}
	if params.DefaultCapacity <= 0 {
		return nil, fmt.Errorf("default slot capacity must be positive")
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	labels := make(map[string]string, len(params.Windows))
	for _, w := range params.Windows {
		labels[w.Name] = w.Label
	}
	return &manager{
		repo:            params.Repo,
		windows:         params.Windows,
		labels:          labels,
		defaultCapacity: params.DefaultCapacity,
		loc:             loc,
		metrics:         params.Metrics,
		now:             now,
	}, nil
}

func (m *manager) Windows() []config.SlotWindow {
	out := make([]config.SlotWindow, len(m.windows))
	copy(out, m.windows)
	return out
}

// Today is the current calendar day in the service timezone.
func (m *manager) Today() dbtypes.Date {
	return dbtypes.NewDate(m.now().In(m.loc))
}

func (m *manager) Reserve(ctx context.Context, tx *gorm.DB, date dbtypes.Date, window string) (*models.Slot, error) {
	window, err := m.normalizeWindow(window)
	if err != nil {
		return nil, err
	}
	if err := m.rejectPast(date); err != nil {
		return nil, err
	}

	repo := m.repo.WithTx(tx)
	if err := m.ensure(ctx, repo, date, window); err != nil {
		m.metrics.SlotReservation(window, reserveResultError)
		return nil, err
	}

	affected, err := repo.IncrementBookings(ctx, date, window)
	if err != nil {
		m.metrics.SlotReservation(window, reserveResultError)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve slot")
	}

	slot, err := repo.Find(ctx, date, window)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load slot")
	}
	if affected == 1 {
		m.metrics.SlotReservation(window, reserveResultReserved)
		return slot, nil
	}

	if !slot.Enabled {
		m.metrics.SlotReservation(window, reserveResultUnavailable)
		return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("slot %s %s is not available for booking", date, window))
	}
	m.metrics.SlotReservation(window, reserveResultFull)
	return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("slot %s %s is fully booked", date, window)).
		WithDetails(map[string]any{
			"max_capacity":     slot.MaxCapacity,
			"current_bookings": slot.CurrentBookings,
		})
}

// Release gives a booking back. Releasing a slot already at zero, or one that
// was never created, is a no-op.
func (m *manager) Release(ctx context.Context, tx *gorm.DB, date dbtypes.Date, window string) error {
	window = strings.ToUpper(strings.TrimSpace(window))
	if window == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "slot window is required")
	}
	if _, err := m.repo.WithTx(tx).DecrementBookings(ctx, date, window); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release slot")
	}
	return nil
}

func (m *manager) ListAvailability(ctx context.Context, date dbtypes.Date) ([]Availability, error) {
	if err := m.rejectPast(date); err != nil {
		return nil, err
	}
	for _, w := range m.windows {
		if err := m.ensure(ctx, m.repo, date, w.Name); err != nil {
			return nil, err
		}
	}

	rows, err := m.repo.ListByDate(ctx, date)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list slots")
	}
	byWindow := make(map[string]models.Slot, len(rows))
	for _, row := range rows {
		byWindow[row.Window] = row
	}

	out := make([]Availability, 0, len(m.windows))
	for _, w := range m.windows {
		row, ok := byWindow[w.Name]
		if !ok {
			continue
		}
		out = append(out, availabilityFromModel(row))
	}
	return out, nil
}

func (m *manager) UpdateSlot(ctx context.Context, input UpdateSlotInput) (*Availability, error) {
	window, err := m.normalizeWindow(input.Window)
	if err != nil {
		return nil, err
	}
	if input.Date.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slot date is required")
	}
	if input.MaxCapacity == nil && input.Enabled == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nothing to update")
	}
	if input.MaxCapacity != nil && *input.MaxCapacity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max capacity cannot be negative")
	}

	if err := m.ensure(ctx, m.repo, input.Date, window); err != nil {
		return nil, err
	}
	slot, err := m.repo.Find(ctx, input.Date, window)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load slot")
	}

	updates := map[string]any{}
	if input.MaxCapacity != nil {
		if *input.MaxCapacity < slot.CurrentBookings {
			return nil, pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("max capacity cannot be below current bookings (%d)", slot.CurrentBookings))
		}
		updates["max_capacity"] = *input.MaxCapacity
		slot.MaxCapacity = *input.MaxCapacity
	}
	if input.Enabled != nil {
		updates["enabled"] = *input.Enabled
		slot.Enabled = *input.Enabled
	}
	affected, err := m.repo.Update(ctx, slot.ID, input.MaxCapacity, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update slot")
	}
	if affected == 0 {
		// bookings moved past the new capacity after the read above
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "max capacity cannot be below current bookings")
	}

	view := availabilityFromModel(*slot)
	return &view, nil
}

func (m *manager) ensure(ctx context.Context, repo Repository, date dbtypes.Date, window string) error {
	slot := &models.Slot{
		ID:          uuid.New(),
		SlotDate:    date,
		Window:      window,
		Label:       m.labels[window],
		MaxCapacity: m.defaultCapacity,
		Enabled:     true,
	}
	if err := repo.Ensure(ctx, slot); err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create slot")
	}
	return nil
}

func (m *manager) normalizeWindow(window string) (string, error) {
	window = strings.ToUpper(strings.TrimSpace(window))
	if window == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "slot window is required")
	}
	if _, ok := m.labels[window]; !ok {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown slot window: %s", window))
	}
	return window, nil
}

func (m *manager) rejectPast(date dbtypes.Date) error {
	if date.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "slot date is required")
	}
	if date.Before(m.Today()) {
		return pkgerrors.New(pkgerrors.CodeValidation, "cannot book slots for past dates")
	}
	return nil
}
