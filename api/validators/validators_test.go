package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/washfold-backend/pkg/errors"
)

type lineItem struct {
	ServiceID string `json:"service_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"min=1"`
}

type createRequest struct {
	Notes string     `json:"notes" validate:"omitempty,max=5"`
	Items []lineItem `json:"items" validate:"required,min=1,dive"`
}

func post(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
}

func details(t *testing.T, err error) map[string]string {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	out, _ := typed.Details().(map[string]string)
	return out
}

func TestDecodeJSONBodyAcceptsValidInput(t *testing.T) {
	var req createRequest
	require.NoError(t, DecodeJSONBody(post(`{"items":[{"service_id":"wash","quantity":2}]}`), &req))
	assert.Equal(t, 2, req.Items[0].Quantity)
}

func TestDecodeJSONBodyFieldErrors(t *testing.T) {
	var req createRequest
	err := DecodeJSONBody(post(`{"notes":"too long","items":[{"quantity":0}]}`), &req)
	got := details(t, err)
	assert.Equal(t, "must be at most 5", got["notes"])
	assert.Equal(t, "is required", got["items[0].service_id"])
	assert.Equal(t, "must be at least 1", got["items[0].quantity"])

	err = DecodeJSONBody(post(`{"items":[]}`), &req)
	assert.Equal(t, "must have at least 1 item(s)", details(t, err)["items"])
}

func TestDecodeJSONBodyRejectsBadPayloads(t *testing.T) {
	cases := map[string]string{
		"empty":    ``,
		"syntax":   `{"items":`,
		"unknown":  `{"items":[{"service_id":"wash","quantity":1}],"tip":5}`,
		"trailing": `{"items":[{"service_id":"wash","quantity":1}]} {}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			var req createRequest
			err := DecodeJSONBody(post(body), &req)
			assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "%v", err)
		})
	}

	var req createRequest
	err := DecodeJSONBody(post(`{"items":[{"service_id":"wash","quantity":"two"}]}`), &req)
	assert.Contains(t, details(t, err), "items.quantity")
}

func TestDecodeJSONBodyLimitsSize(t *testing.T) {
	var req createRequest
	huge := `{"notes":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	err := DecodeJSONBody(post(huge), &req)
	require.Error(t, err)
	assert.Equal(t, "request body is too large", pkgerrors.As(err).Message())
}

func TestParseUUIDParam(t *testing.T) {
	id := uuid.New()
	withParam := func(value string) *http.Request {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("orderID", value)
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}

	got, err := ParseUUIDParam(withParam(id.String()), "orderID")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = ParseUUIDParam(withParam("nope"), "orderID")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	_, err = ParseUUIDParam(withParam(""), "orderID")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestParseQueryHelpers(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?limit=10&bad=x&big=500&date=2026-03-02&when=03/02", nil)

	n, err := ParseQueryInt(r, "limit", 25, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	n, err = ParseQueryInt(r, "missing", 25, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 25, n)
	_, err = ParseQueryInt(r, "bad", 25, 1, 100)
	assert.Error(t, err)
	_, err = ParseQueryInt(r, "big", 25, 1, 100)
	assert.Contains(t, pkgerrors.As(err).Message(), "between 1 and 100")

	date, err := ParseQueryDate(r, "date")
	require.NoError(t, err)
	require.NotNil(t, date)
	none, err := ParseQueryDate(r, "absent")
	require.NoError(t, err)
	assert.Nil(t, none)
	_, err = ParseQueryDate(r, "when")
	assert.Error(t, err)
}
