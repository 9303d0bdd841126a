package slots

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	internalslots "github.com/angelmondragon/washfold-backend/internal/slots"
	"github.com/angelmondragon/washfold-backend/pkg/config"
	"github.com/angelmondragon/washfold-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/washfold-backend/pkg/db/types"
)

type stubManager struct {
	today   dbtypes.Date
	listed  dbtypes.Date
	updated internalslots.UpdateSlotInput
}

func (s *stubManager) Reserve(context.Context, *gorm.DB, dbtypes.Date, string) (*models.Slot, error) {
	return nil, nil
}

func (s *stubManager) Release(context.Context, *gorm.DB, dbtypes.Date, string) error { return nil }

func (s *stubManager) ListAvailability(_ context.Context, date dbtypes.Date) ([]internalslots.Availability, error) {
	s.listed = date
	return []internalslots.Availability{{Date: date, Window: "morning", MaxCapacity: 10, Available: true}}, nil
}

func (s *stubManager) UpdateSlot(_ context.Context, input internalslots.UpdateSlotInput) (*internalslots.Availability, error) {
	s.updated = input
	return &internalslots.Availability{Date: input.Date, Window: input.Window}, nil
}

func (s *stubManager) Windows() []config.SlotWindow { return nil }

func (s *stubManager) Today() dbtypes.Date { return s.today }

func TestAvailabilityDefaultsToToday(t *testing.T) {
	today, err := dbtypes.ParseDate("2026-10-19")
	require.NoError(t, err)
	mgr := &stubManager{today: today}

	rec := httptest.NewRecorder()
	Availability(mgr, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/public/v1/slots", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2026-10-19", mgr.listed.String())

	rec = httptest.NewRecorder()
	Availability(mgr, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/public/v1/slots?date=2026-10-25", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2026-10-25", mgr.listed.String())

	rec = httptest.NewRecorder()
	Availability(mgr, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/public/v1/slots?date=25-10-2026", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminUpdateReadsPathAndBody(t *testing.T) {
	mgr := &stubManager{}
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"max_capacity":4,"enabled":false}`))
	rc := chi.NewRouteContext()
	rc.URLParams.Add("date", "2026-10-25")
	rc.URLParams.Add("window", "evening")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))

	rec := httptest.NewRecorder()
	AdminUpdate(mgr, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "evening", mgr.updated.Window)
	require.NotNil(t, mgr.updated.MaxCapacity)
	assert.Equal(t, 4, *mgr.updated.MaxCapacity)
	require.NotNil(t, mgr.updated.Enabled)
	assert.False(t, *mgr.updated.Enabled)
}
