package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/washfold-backend/pkg/errors"
	"github.com/angelmondragon/washfold-backend/pkg/logger"
	"github.com/angelmondragon/washfold-backend/pkg/types"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) types.APIError {
	t.Helper()
	var env types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env.Error
}

func TestWriteSuccessStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccessStatus(rec, http.StatusCreated, map[string]string{"order_number": "WF-1001"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var env types.SuccessEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	assert.Equal(t, "WF-1001", env.Data.(map[string]any)["order_number"])
}

func TestWriteErrorClientFacingCode(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "responses-test", Output: &buf})
	rec := httptest.NewRecorder()

	err := pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot move from DELIVERED to CANCELLED").
		WithDetails(map[string]any{"from": "DELIVERED"})
	WriteError(context.Background(), logg, rec, err)

	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "STATE_CONFLICT", body.Code)
	assert.Equal(t, "order cannot move from DELIVERED to CANCELLED", body.Message)
	assert.NotNil(t, body.Details)
	assert.Contains(t, buf.String(), `"error_code":"STATE_CONFLICT"`)
}

func TestWriteErrorHidesInternalText(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), nil, rec, errors.New("dial tcp 10.0.0.3:5432: refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "INTERNAL_ERROR", body.Code)
	assert.Equal(t, "internal server error", body.Message)
	assert.Nil(t, body.Details)
}

func TestWriteErrorGatewayUsesPublicMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	err := pkgerrors.Wrap(pkgerrors.CodeGateway, errors.New("502 from square"), "create payment").
		WithDetails(map[string]any{"gateway_status": 502})
	WriteError(context.Background(), nil, rec, err)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "payment gateway unavailable", body.Message)
	assert.Nil(t, body.Details)
}
