package assignments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/washfold-backend/internal/agents"
	"github.com/angelmondragon/washfold-backend/internal/orders"
	"github.com/angelmondragon/washfold-backend/pkg/db"
	"github.com/angelmondragon/washfold-backend/pkg/db/models"
	"github.com/angelmondragon/washfold-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/washfold-backend/pkg/errors"
	"github.com/angelmondragon/washfold-backend/pkg/outbox"
	"github.com/angelmondragon/washfold-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const noteReassigned = "Reassigned"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// View is an assignment as returned to agents and admins.
type View struct {
	ID             uuid.UUID              `json:"id"`
	OrderID        uuid.UUID              `json:"order_id"`
	AgentID        uuid.UUID              `json:"agent_id"`
	AssignmentType enums.AssignmentType   `json:"assignment_type"`
	Status         enums.AssignmentStatus `json:"status"`
	AssignedAt     time.Time              `json:"assigned_at"`
	AcceptedAt     *time.Time             `json:"accepted_at,omitempty"`
	CompletedAt    *time.Time             `json:"completed_at,omitempty"`
	Notes          *string                `json:"notes,omitempty"`
}

// Service coordinates agents with the pickup and delivery legs of an order.
// Every call updates the assignment and its order in one transaction.
type Service interface {
	AssignPickup(ctx context.Context, orderID, agentID uuid.UUID, actor orders.Actor) (*View, error)
	AssignDelivery(ctx context.Context, orderID, agentID uuid.UUID, actor orders.Actor) (*View, error)
	Accept(ctx context.Context, assignmentID, agentUserID uuid.UUID) (*View, error)
	Reject(ctx context.Context, assignmentID, agentUserID uuid.UUID, reason string) (*View, error)
	CompletePickup(ctx context.Context, assignmentID, agentUserID uuid.UUID) (*View, error)
	CompleteDelivery(ctx context.Context, assignmentID, agentUserID uuid.UUID) (*View, error)
	ListForAgent(ctx context.Context, agentUserID uuid.UUID, status *enums.AssignmentStatus) ([]View, error)
	ListForOrder(ctx context.Context, orderID uuid.UUID) ([]View, error)
}

type ServiceParams struct {
	Repo     Repository
	Orders   orders.Repository
	Status   orders.StatusWriter
	Agents   agents.Repository
	TxRunner txRunner
	Outbox   outboxPublisher
	Now      func() time.Time
}

type service struct {
	repo   Repository
	orders orders.Repository
	status orders.StatusWriter
	agents agents.Repository
	tx     txRunner
	outbox outboxPublisher
	now    func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("assignments repository required")
	case params.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.Status == nil:
		return nil, fmt.Errorf("order status writer required")
	case params.Agents == nil:
		return nil, fmt.Errorf("agents repository required")
	case params.TxRunner == nil:
		return nil, fmt.Errorf("tx runner required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:   params.Repo,
		orders: params.Orders,
		status: params.Status,
		agents: params.Agents,
		tx:     params.TxRunner,
		outbox: params.Outbox,
		now:    now,
	}, nil
}

func (s *service) AssignPickup(ctx context.Context, orderID, agentID uuid.UUID, actor orders.Actor) (*View, error) {
	return s.assign(ctx, legs[enums.AssignmentTypePickup], orderID, agentID, actor)
}

func (s *service) AssignDelivery(ctx context.Context, orderID, agentID uuid.UUID, actor orders.Actor) (*View, error) {
	return s.assign(ctx, legs[enums.AssignmentTypeDelivery], orderID, agentID, actor)
}

// assign supersedes a still-unaccepted assignment on the same leg, so an
// admin can reassign before the agent responds.
func (s *service) assign(ctx context.Context, l leg, orderID, agentID uuid.UUID, actor orders.Actor) (*View, error) {
	var created *models.Assignment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := s.orders.WithTx(tx).FindByID(ctx, orderID)
		if err != nil {
			return lookupError(err, "order not found")
		}
		if !l.accepts(order.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("Order is not ready for %s assignment. Current: %s", l.label, order.Status)).
				WithDetails(map[string]any{"current_status": order.Status})
		}

		agent, err := s.agents.WithTx(tx).FindByID(ctx, agentID)
		if err != nil {
			return lookupError(err, "agent not found")
		}
		if agent.Status != enums.AgentStatusApproved {
			return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("Agent is not approved. Status: %s", agent.Status))
		}
		if !agent.IsAvailable {
			return pkgerrors.New(pkgerrors.CodeConflict, "Agent is not available")
		}

		existing, err := repo.FindActive(ctx, order.ID, l.kind)
		switch {
		case err == nil:
			if existing.Status == enums.AssignmentStatusAccepted {
				return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("The %s is already accepted by an agent", l.label))
			}
			if err := s.move(ctx, tx, existing, enums.AssignmentStatusRejected, map[string]any{"notes": noteReassigned}, actor); err != nil {
				return err
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active assignment")
		}

		now := s.now().UTC()
		assignment := &models.Assignment{
			ID:             uuid.New(),
			OrderID:        order.ID,
			AgentID:        agent.ID,
			AssignmentType: l.kind,
			Status:         enums.AssignmentStatusAssigned,
			AssignedAt:     now,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := repo.Create(ctx, assignment); err != nil {
			if db.IsUniqueViolation(err, activeLegIndex) {
				return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("The order already has an active %s assignment", l.label))
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create assignment")
		}

		if _, err := s.status.Transition(ctx, tx, orders.TransitionInput{
			Order: order,
			To:    l.orderOnAsgn,
			Actor: actor,
			Notes: fmt.Sprintf("Assigned %s to agent %s", l.label, agent.Name),
		}); err != nil {
			return err
		}

		if err := s.emit(ctx, tx, enums.EventAssignmentCreated, assignment, actor); err != nil {
			return err
		}
		created = assignment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return viewFromModel(created), nil
}

func (s *service) Accept(ctx context.Context, assignmentID, agentUserID uuid.UUID) (*View, error) {
	return s.act(ctx, assignmentID, agentUserID, func(tx *gorm.DB, a *models.Assignment, actor orders.Actor) error {
		if a.Status != enums.AssignmentStatusAssigned {
			return assignmentConflict(a.Status, fmt.Sprintf("Assignment cannot be accepted. Current status: %s", a.Status))
		}
		return s.move(ctx, tx, a, enums.AssignmentStatusAccepted, map[string]any{"accepted_at": s.now().UTC()}, actor)
	})
}

// Reject frees the leg and puts the order back where it was before the
// assignment so it can be reassigned.
func (s *service) Reject(ctx context.Context, assignmentID, agentUserID uuid.UUID, reason string) (*View, error) {
	reason = strings.TrimSpace(reason)
	return s.act(ctx, assignmentID, agentUserID, func(tx *gorm.DB, a *models.Assignment, actor orders.Actor) error {
		if a.Status != enums.AssignmentStatusAssigned {
			return assignmentConflict(a.Status, fmt.Sprintf("Assignment cannot be rejected. Current status: %s", a.Status))
		}
		extra := map[string]any{}
		if reason != "" {
			extra["notes"] = reason
		}
		if err := s.move(ctx, tx, a, enums.AssignmentStatusRejected, extra, actor); err != nil {
			return err
		}

		l := legs[a.AssignmentType]
		order, err := s.orders.WithTx(tx).FindByID(ctx, a.OrderID)
		if err != nil {
			return lookupError(err, "order not found")
		}
		if order.Status != l.orderOnAsgn {
			return nil
		}
		note := fmt.Sprintf("Agent rejected %s", l.label)
		if reason != "" {
			note += ": " + reason
		}
		_, err = s.status.Transition(ctx, tx, orders.TransitionInput{
			Order: order,
			To:    l.orderRevert,
			Actor: actor,
			Notes: note,
		})
		return err
	})
}

func (s *service) CompletePickup(ctx context.Context, assignmentID, agentUserID uuid.UUID) (*View, error) {
	return s.complete(ctx, legs[enums.AssignmentTypePickup], assignmentID, agentUserID)
}

func (s *service) CompleteDelivery(ctx context.Context, assignmentID, agentUserID uuid.UUID) (*View, error) {
	return s.complete(ctx, legs[enums.AssignmentTypeDelivery], assignmentID, agentUserID)
}

func (s *service) complete(ctx context.Context, l leg, assignmentID, agentUserID uuid.UUID) (*View, error) {
	return s.act(ctx, assignmentID, agentUserID, func(tx *gorm.DB, a *models.Assignment, actor orders.Actor) error {
		if a.AssignmentType != l.kind {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("This is not a %s assignment", l.label))
		}
		if a.Status != enums.AssignmentStatusAccepted {
			return assignmentConflict(a.Status, fmt.Sprintf("Assignment must be accepted first. Current status: %s", a.Status))
		}
		now := s.now().UTC()
		if err := s.move(ctx, tx, a, l.kind.CompletedStatus(), map[string]any{"completed_at": now}, actor); err != nil {
			return err
		}

		order, err := s.orders.WithTx(tx).FindByID(ctx, a.OrderID)
		if err != nil {
			return lookupError(err, "order not found")
		}
		if _, err := s.status.Transition(ctx, tx, orders.TransitionInput{
			Order:   order,
			To:      l.orderDone,
			Actor:   actor,
			Notes:   fmt.Sprintf("Agent completed %s", l.label),
			Updates: map[string]any{l.stampColumn: now},
		}); err != nil {
			return err
		}

		if l.kind == enums.AssignmentTypeDelivery {
			if err := s.agents.WithTx(tx).IncrementDeliveries(ctx, a.AgentID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment agent deliveries")
			}
		}
		return nil
	})
}

func (s *service) ListForAgent(ctx context.Context, agentUserID uuid.UUID, status *enums.AssignmentStatus) ([]View, error) {
	agent, err := s.agents.FindByUserID(ctx, agentUserID)
	if err != nil {
		return nil, lookupError(err, "agent not found")
	}
	rows, err := s.repo.ListByAgent(ctx, agent.ID, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list assignments")
	}
	return views(rows), nil
}

func (s *service) ListForOrder(ctx context.Context, orderID uuid.UUID) ([]View, error) {
	rows, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list assignments")
	}
	return views(rows), nil
}

// act loads the assignment for the acting agent inside a transaction and runs fn.
func (s *service) act(ctx context.Context, assignmentID, agentUserID uuid.UUID, fn func(tx *gorm.DB, a *models.Assignment, actor orders.Actor) error) (*View, error) {
	var result *models.Assignment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		assignment, err := s.repo.WithTx(tx).FindByID(ctx, assignmentID)
		if err != nil {
			return lookupError(err, "assignment not found")
		}
		agent, err := s.agents.WithTx(tx).FindByUserID(ctx, agentUserID)
		if err != nil {
			return lookupError(err, "agent not found")
		}
		if assignment.AgentID != agent.ID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "Assignment does not belong to this agent")
		}
		actor := orders.Actor{UserID: agentUserID, Role: enums.UserRoleAgent}
		if err := fn(tx, assignment, actor); err != nil {
			return err
		}
		result = assignment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return viewFromModel(result), nil
}

// move applies a conditional status update and emits assignment_updated.
func (s *service) move(ctx context.Context, tx *gorm.DB, a *models.Assignment, to enums.AssignmentStatus, extra map[string]any, actor orders.Actor) error {
	if !a.Status.CanTransitionTo(to) {
		return assignmentConflict(a.Status, fmt.Sprintf("Assignment cannot move from %s to %s", a.Status, to))
	}
	repo := s.repo.WithTx(tx)
	affected, err := repo.UpdateStatus(ctx, a.ID, a.Status, to, extra)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update assignment")
	}
	if affected == 0 {
		current, err := repo.FindByID(ctx, a.ID)
		if err != nil {
			return lookupError(err, "assignment not found")
		}
		return assignmentConflict(current.Status, fmt.Sprintf("Assignment changed concurrently. Current status: %s", current.Status))
	}
	a.Status = to
	if v, ok := extra["notes"].(string); ok {
		a.Notes = &v
	}
	if v, ok := extra["accepted_at"].(time.Time); ok {
		a.AcceptedAt = &v
	}
	if v, ok := extra["completed_at"].(time.Time); ok {
		a.CompletedAt = &v
	}
	return s.emit(ctx, tx, enums.EventAssignmentUpdated, a, actor)
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, a *models.Assignment, actor orders.Actor) error {
	notes := ""
	if a.Notes != nil {
		notes = *a.Notes
	}
	event := outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateAssignment,
		AggregateID:   a.ID,
		Actor:         actor.Ref(),
		Data: payloads.AssignmentEvent{
			AssignmentID:   a.ID,
			OrderID:        a.OrderID,
			AgentID:        a.AgentID,
			AssignmentType: a.AssignmentType,
			Status:         a.Status,
			Notes:          notes,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit assignment event")
	}
	return nil
}

func assignmentConflict(current enums.AssignmentStatus, message string) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, message).
		WithDetails(map[string]any{"current_status": current})
}

func lookupError(err error, notFound string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load record")
}

func viewFromModel(a *models.Assignment) *View {
	return &View{
		ID:             a.ID,
		OrderID:        a.OrderID,
		AgentID:        a.AgentID,
		AssignmentType: a.AssignmentType,
		Status:         a.Status,
		AssignedAt:     a.AssignedAt,
		AcceptedAt:     a.AcceptedAt,
		CompletedAt:    a.CompletedAt,
		Notes:          a.Notes,
	}
}

func views(rows []models.Assignment) []View {
	out := make([]View, 0, len(rows))
	for i := range rows {
		out = append(out, *viewFromModel(&rows[i]))
	}
	return out
}
