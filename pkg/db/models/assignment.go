package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/washfold-backend/pkg/enums"
)

// Assignment links an agent to one leg (pickup or delivery) of an order.
type Assignment struct {
	ID             uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID              `gorm:"column:order_id;type:uuid;not null"`
	AgentID        uuid.UUID              `gorm:"column:agent_id;type:uuid;not null"`
	AssignmentType enums.AssignmentType   `gorm:"column:assignment_type;not null"`
	Status         enums.AssignmentStatus `gorm:"column:status;not null;default:'ASSIGNED'"`
	AssignedAt     time.Time              `gorm:"column:assigned_at;not null"`
	AcceptedAt     *time.Time             `gorm:"column:accepted_at"`
	CompletedAt    *time.Time             `gorm:"column:completed_at"`
	Notes          *string                `gorm:"column:notes"`
	CreatedAt      time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// Agent is a pickup/delivery agent as seen by the assignment coordinator.
type Agent struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID         `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Name            string            `gorm:"column:name;not null"`
	Phone           *string           `gorm:"column:phone"`
	Status          enums.AgentStatus `gorm:"column:status;not null;default:'PENDING'"`
	IsAvailable     bool              `gorm:"column:is_available;not null;default:false"`
	TotalDeliveries int               `gorm:"column:total_deliveries;not null;default:0"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
