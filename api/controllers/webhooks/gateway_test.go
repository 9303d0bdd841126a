package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/washfold-backend/internal/payments"
	gatewaywebhook "github.com/angelmondragon/washfold-backend/internal/webhooks/gateway"
	pkgerrors "github.com/angelmondragon/washfold-backend/pkg/errors"
)

func TestPaymentWebhook_SuccessAndDuplicate(t *testing.T) {
	svc := &fakePaymentWebhookService{}
	guard := newGuard(t)
	handler := PaymentWebhook(svc, guard, nil)

	payload := []byte(`{"event":"payment.authorized"}`)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", bytes.NewReader(payload))
		req.Header.Set(SignatureHeader, "abc")
		req.Header.Set(gatewaywebhook.EventIDHeader, "evt_1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	assert.Equal(t, 1, svc.calls)
	assert.Equal(t, "abc", svc.signature)
}

func TestPaymentWebhook_MissingSignature(t *testing.T) {
	svc := &fakePaymentWebhookService{}
	handler := PaymentWebhook(svc, newGuard(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, svc.calls)
}

func TestPaymentWebhook_ServiceErrorAllowsRetry(t *testing.T) {
	svc := &fakePaymentWebhookService{err: pkgerrors.New(pkgerrors.CodeSignature, "Invalid webhook signature")}
	store := newInMemoryStore()
	guard, err := gatewaywebhook.NewIdempotencyGuard(store, time.Minute, "payments-webhook")
	require.NoError(t, err)
	handler := PaymentWebhook(svc, guard, nil)

	payload := []byte(`{"event":"payment.failed"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", bytes.NewReader(payload))
	req.Header.Set(SignatureHeader, "bad")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, string(pkgerrors.CodeSignature), body.Error.Code)
	assert.Empty(t, store.data, "failed delivery must not stay marked")

	svc.err = nil
	req = httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", bytes.NewReader(payload))
	req.Header.Set(SignatureHeader, "good")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, svc.calls)
}

func newGuard(t *testing.T) *gatewaywebhook.IdempotencyGuard {
	t.Helper()
	guard, err := gatewaywebhook.NewIdempotencyGuard(newInMemoryStore(), time.Minute, "payments-webhook")
	require.NoError(t, err)
	return guard
}

type fakePaymentWebhookService struct {
	calls     int
	signature string
	err       error
}

func (f *fakePaymentWebhookService) HandleWebhook(_ context.Context, payload []byte, signature string) (*payments.WebhookResult, error) {
	f.calls++
	f.signature = signature
	if f.err != nil {
		return nil, f.err
	}
	return &payments.WebhookResult{Event: "payment.authorized", Handled: true, Status: "PAID"}, nil
}

type inMemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{data: map[string]string{}}
}

func (s *inMemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (s *inMemoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; ok {
		return false, nil
	}
	s.data[key] = fmt.Sprint(value)
	return true, nil
}

func (s *inMemoryStore) IdempotencyKey(scope, id string) string {
	return scope + ":" + id
}

func (s *inMemoryStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}
