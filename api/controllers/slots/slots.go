package slots

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/washfold-backend/api/responses"
	"github.com/angelmondragon/washfold-backend/api/validators"
	internalslots "github.com/angelmondragon/washfold-backend/internal/slots"
	dbtypes "github.com/angelmondragon/washfold-backend/pkg/db/types"
	pkgerrors "github.com/angelmondragon/washfold-backend/pkg/errors"
	"github.com/angelmondragon/washfold-backend/pkg/logger"
)

type updateRequest struct {
	MaxCapacity *int  `json:"max_capacity,omitempty" validate:"omitempty,min=0,max=1000"`
	Enabled     *bool `json:"enabled,omitempty"`
}

// Availability lists the pickup windows for ?date=, defaulting to today.
func Availability(mgr internalslots.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if mgr == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "slot manager unavailable"))
			return
		}
		date, err := validators.ParseQueryDate(r, "date")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		day := mgr.Today()
		if date != nil {
			day = *date
		}

		rows, err := mgr.ListAvailability(r.Context(), day)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// AdminUpdate changes capacity or the enabled flag for one window on one day.
func AdminUpdate(mgr internalslots.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if mgr == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "slot manager unavailable"))
			return
		}
		date, err := dbtypes.ParseDate(strings.TrimSpace(chi.URLParam(r, "date")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid slot date"))
			return
		}

		var body updateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := mgr.UpdateSlot(r.Context(), internalslots.UpdateSlotInput{
			Date:        date,
			Window:      chi.URLParam(r, "window"),
			MaxCapacity: body.MaxCapacity,
			Enabled:     body.Enabled,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
