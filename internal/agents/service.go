package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/washfold-backend/pkg/db"
	"github.com/angelmondragon/washfold-backend/pkg/db/models"
	"github.com/angelmondragon/washfold-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/washfold-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const msgAgentNotFound = "agent not found"

// Profile is the agent view returned to callers.
type Profile struct {
	ID              uuid.UUID         `json:"id"`
	UserID          uuid.UUID         `json:"user_id"`
	Name            string            `json:"name"`
	Phone           *string           `json:"phone,omitempty"`
	Status          enums.AgentStatus `json:"status"`
	IsAvailable     bool              `json:"is_available"`
	TotalDeliveries int               `json:"total_deliveries"`
	CreatedAt       time.Time         `json:"created_at"`
}

type RegisterInput struct {
	UserID uuid.UUID `json:"-"`
	Name   string    `json:"name" validate:"required,min=2,max=100"`
	Phone  *string   `json:"phone,omitempty" validate:"omitempty,min=7,max=20"`
}

// Service manages agent onboarding and availability. Identity storage lives
// elsewhere; agents are keyed by the user id from the access token.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*Profile, error)
	Me(ctx context.Context, userID uuid.UUID) (*Profile, error)
	SetAvailability(ctx context.Context, userID uuid.UUID, available bool) (*Profile, error)
	Approve(ctx context.Context, agentID uuid.UUID) (*Profile, error)
	Suspend(ctx context.Context, agentID uuid.UUID) (*Profile, error)
	List(ctx context.Context, status *enums.AgentStatus) ([]Profile, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("agents repository required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, now: now}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*Profile, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	now := s.now().UTC()
	agent := &models.Agent{
		ID:        uuid.New(),
		UserID:    input.UserID,
		Name:      name,
		Phone:     input.Phone,
		Status:    enums.AgentStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, agent); err != nil {
		if db.IsUniqueViolation(err, "") || errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "agent profile already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create agent")
	}
	return profileFromModel(agent), nil
}

func (s *service) Me(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	agent, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return profileFromModel(agent), nil
}

// SetAvailability is the agent's own on/off duty toggle. Only approved agents
// can go available.
func (s *service) SetAvailability(ctx context.Context, userID uuid.UUID, available bool) (*Profile, error) {
	agent, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, mapLookupError(err)
	}
	if available && agent.Status != enums.AgentStatusApproved {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("Agent is not approved. Status: %s", agent.Status))
	}
	if err := s.repo.Update(ctx, agent.ID, map[string]any{"is_available": available}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update availability")
	}
	agent.IsAvailable = available
	return profileFromModel(agent), nil
}

func (s *service) Approve(ctx context.Context, agentID uuid.UUID) (*Profile, error) {
	return s.setStatus(ctx, agentID, enums.AgentStatusApproved, nil)
}

// Suspend also takes the agent off duty.
func (s *service) Suspend(ctx context.Context, agentID uuid.UUID) (*Profile, error) {
	off := false
	return s.setStatus(ctx, agentID, enums.AgentStatusSuspended, &off)
}

func (s *service) setStatus(ctx context.Context, agentID uuid.UUID, status enums.AgentStatus, available *bool) (*Profile, error) {
	agent, err := s.repo.FindByID(ctx, agentID)
	if err != nil {
		return nil, mapLookupError(err)
	}
	updates := map[string]any{"status": status}
	if available != nil {
		updates["is_available"] = *available
		agent.IsAvailable = *available
	}
	if err := s.repo.Update(ctx, agent.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update agent status")
	}
	agent.Status = status
	return profileFromModel(agent), nil
}

func (s *service) List(ctx context.Context, status *enums.AgentStatus) ([]Profile, error) {
	rows, err := s.repo.List(ctx, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list agents")
	}
	out := make([]Profile, 0, len(rows))
	for i := range rows {
		out = append(out, *profileFromModel(&rows[i]))
	}
	return out, nil
}

func profileFromModel(agent *models.Agent) *Profile {
	return &Profile{
		ID:              agent.ID,
		UserID:          agent.UserID,
		Name:            agent.Name,
		Phone:           agent.Phone,
		Status:          agent.Status,
		IsAvailable:     agent.IsAvailable,
		TotalDeliveries: agent.TotalDeliveries,
		CreatedAt:       agent.CreatedAt,
	}
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, msgAgentNotFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load agent")
}
