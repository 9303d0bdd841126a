package slots

import (
	"github.com/angelmondragon/washfold-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/washfold-backend/pkg/db/types"
)

// Availability is the public view of one window on one day.
type Availability struct {
	Date            dbtypes.Date `json:"date"`
	Window          string       `json:"window"`
	Label           string       `json:"label"`
	MaxCapacity     int          `json:"max_capacity"`
	CurrentBookings int          `json:"current_bookings"`
	Enabled         bool         `json:"enabled"`
	Available       bool         `json:"available"`
}

// UpdateSlotInput carries admin changes for a (date, window) slot.
type UpdateSlotInput struct {
	Date        dbtypes.Date
	Window      string
	MaxCapacity *int
	Enabled     *bool
}

func availabilityFromModel(slot models.Slot) Availability {
	return Availability{
		Date:            slot.SlotDate,
		Window:          slot.Window,
		Label:           slot.Label,
		MaxCapacity:     slot.MaxCapacity,
		CurrentBookings: slot.CurrentBookings,
		Enabled:         slot.Enabled,
		Available:       slot.Enabled && slot.CurrentBookings < slot.MaxCapacity,
	}
}
