package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/angelmondragon/washfold-backend/pkg/db/types"
)

// Slot is a capacity-bounded pickup window on a given day.
type Slot struct {
	ID              uuid.UUID    `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SlotDate        dbtypes.Date `gorm:"column:slot_date;type:date;not null"`
	Window          string       `gorm:"column:time_window;not null"`
	Label           string       `gorm:"column:label;not null"`
	MaxCapacity     int          `gorm:"column:max_capacity;not null"`
	CurrentBookings int          `gorm:"column:current_bookings;not null;default:0"`
	Enabled         bool         `gorm:"column:enabled;not null;default:true"`
	CreatedAt       time.Time    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time    `gorm:"column:updated_at;autoUpdateTime"`
}
