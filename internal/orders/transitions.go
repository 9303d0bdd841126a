package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/washfold-backend/pkg/db/models"
	"github.com/angelmondragon/washfold-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/washfold-backend/pkg/errors"
	"github.com/angelmondragon/washfold-backend/pkg/outbox"
	"github.com/angelmondragon/washfold-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// TransitionInput describes one status change. Updates are extra order
// columns written by the same conditional UPDATE.
type TransitionInput struct {
	Order   *models.Order
	To      enums.OrderStatus
	Actor   Actor
	Notes   string
	Updates map[string]any
}

// StatusWriter is the only path that changes an order's status. It enforces
// the transition table, appends the history row and emits the outbox event
// inside the caller's transaction.
type StatusWriter interface {
	Transition(ctx context.Context, tx *gorm.DB, input TransitionInput) (bool, error)
}

type statusWriter struct {
	repo   Repository
	outbox outboxPublisher
	now    func() time.Time
}

func NewStatusWriter(repo Repository, publisher outboxPublisher, now func() time.Time) (StatusWriter, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if now == nil {
		now = time.Now
	}
	return &statusWriter{repo: repo, outbox: publisher, now: now}, nil
}

// Transition returns false without writing when the order is already in the
// target status.
func (w *statusWriter) Transition(ctx context.Context, tx *gorm.DB, input TransitionInput) (bool, error) {
	if tx == nil {
		return false, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	order := input.Order
	if order == nil {
		return false, pkgerrors.New(pkgerrors.CodeInternal, "order required")
	}
	if !input.To.IsValid() {
		return false, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", input.To))
	}
	from := order.Status
	if from == input.To {
		return false, nil
	}
	if !from.CanTransitionTo(input.To) {
		return false, stateConflict(order.Status, fmt.Sprintf("cannot move order from %s to %s", from, input.To))
	}

	repo := w.repo.WithTx(tx)
	affected, err := repo.UpdateStatus(ctx, order.ID, from, input.To, input.Updates)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if affected == 0 {
		current, err := repo.FindByID(ctx, order.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return false, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		return false, stateConflict(current.Status, fmt.Sprintf("order status changed concurrently; current status is %s", current.Status))
	}

	entry := &models.OrderStatusHistory{
		ID:             uuid.New(),
		OrderID:        order.ID,
		PreviousStatus: &from,
		NewStatus:      input.To,
		ChangedBy:      input.Actor.String(),
		Notes:          optionalString(input.Notes),
		CreatedAt:      w.now().UTC(),
	}
	if err := repo.AppendHistory(ctx, entry); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         input.Actor.Ref(),
		Data: payloads.OrderStatusChangedEvent{
			OrderID:        order.ID,
			OrderNumber:    order.OrderNumber,
			PreviousStatus: from,
			NewStatus:      input.To,
			ChangedBy:      entry.ChangedBy,
			Notes:          input.Notes,
		},
	}
	if err := w.outbox.Emit(ctx, tx, event); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order status event")
	}

	order.Status = input.To
	return true, nil
}

func stateConflict(current enums.OrderStatus, message string) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, message).
		WithDetails(map[string]any{"current_status": current})
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
