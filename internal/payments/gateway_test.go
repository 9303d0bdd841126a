package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	sq "github.com/square/square-go-sdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/washfold-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/washfold-backend/pkg/errors"
	"github.com/angelmondragon/washfold-backend/pkg/square"
)

func TestRESTGatewayCreateIntent(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "key_id", user)
		assert.Equal(t, "key_secret", pass)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_123","status":"created"}`))
	}))
	defer server.Close()

	gateway, err := NewRESTGateway(config.PaymentsConfig{BaseURL: server.URL + "/", KeyID: "key_id", KeySecret: "key_secret"})
	require.NoError(t, err)

	intent, err := gateway.CreateIntent(context.Background(), IntentRequest{AmountMinor: 41300, Currency: "inr", Receipt: "WF-2026-000001"})
	require.NoError(t, err)
	assert.Equal(t, "order_123", intent.RemoteOrderID)
	assert.Equal(t, "gateway", intent.Provider)
	assert.EqualValues(t, 41300, captured["amount"])
	assert.Equal(t, "INR", captured["currency"])
	assert.Equal(t, "WF-2026-000001", captured["receipt"])
}

func TestRESTGatewayMapsFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":"BAD_REQUEST_ERROR"}}`, http.StatusBadRequest)
	}))
	defer server.Close()

	gateway, err := NewRESTGateway(config.PaymentsConfig{BaseURL: server.URL, KeyID: "k", KeySecret: "s"})
	require.NoError(t, err)

	_, err = gateway.CreateIntent(context.Background(), IntentRequest{AmountMinor: 100, Currency: "INR"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeGateway, pkgerrors.As(err).Code())

	server.Close()
	_, err = gateway.CreateIntent(context.Background(), IntentRequest{AmountMinor: 100, Currency: "INR"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeGateway, pkgerrors.As(err).Code())
}

func TestNewRESTGatewayValidatesConfig(t *testing.T) {
	_, err := NewRESTGateway(config.PaymentsConfig{KeyID: "k", KeySecret: "s"})
	assert.ErrorIs(t, err, errGatewayBaseURLRequired)

	_, err = NewRESTGateway(config.PaymentsConfig{BaseURL: "http://gw.test"})
	assert.ErrorIs(t, err, errGatewayKeyRequired)
}

type fakeSquarePayments struct {
	params square.PaymentCreateParams
	err    error
}

func (f *fakeSquarePayments) CreatePayment(_ context.Context, params square.PaymentCreateParams) (*sq.Payment, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	id := "sq_pay_1"
	return &sq.Payment{ID: &id}, nil
}

func TestSquareGatewayDelaysCapture(t *testing.T) {
	client := &fakeSquarePayments{}
	gateway, err := NewSquareGateway(client, "LOC1")
	require.NoError(t, err)

	_, err = gateway.CreateIntent(context.Background(), IntentRequest{AmountMinor: 500, Currency: "USD", Receipt: "WF-2026-000002"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	intent, err := gateway.CreateIntent(context.Background(), IntentRequest{
		AmountMinor: 500,
		Currency:    "USD",
		Receipt:     "WF-2026-000002",
		SourceID:    "cnon:card-nonce-ok",
	})
	require.NoError(t, err)
	assert.Equal(t, "sq_pay_1", intent.RemoteOrderID)
	assert.Equal(t, "square", intent.Provider)
	assert.True(t, client.params.DelayCapture)
	assert.Equal(t, "LOC1", client.params.LocationID)
	assert.Equal(t, "WF-2026-000002", client.params.ReferenceID)

	client.err = errors.New("boom")
	_, err = gateway.CreateIntent(context.Background(), IntentRequest{AmountMinor: 500, Currency: "USD", SourceID: "cnon"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeGateway, pkgerrors.As(err).Code())
}

func TestSignatureHelpers(t *testing.T) {
	sig := CheckoutSignature("secret", "order_1", "pay_1")
	assert.Len(t, sig, 64)
	assert.True(t, signaturesMatch(sig, sig))
	assert.False(t, signaturesMatch(sig, ""))
	assert.False(t, signaturesMatch(sig, CheckoutSignature("secret", "order_1", "pay_2")))
	assert.Equal(t, WebhookSignature("secret", []byte("order_1|pay_1")), sig)
}
