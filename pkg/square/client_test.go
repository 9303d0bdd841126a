package square

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	sq "github.com/square/square-go-sdk"
	sqcore "github.com/square/square-go-sdk/core"
	sqoption "github.com/square/square-go-sdk/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/washfold-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/washfold-backend/pkg/errors"
	"github.com/angelmondragon/washfold-backend/pkg/logger"
)

type fakePayments struct {
	req  *sq.CreatePaymentRequest
	resp *sq.CreatePaymentResponse
	err  error
}

func (f *fakePayments) Create(_ context.Context, req *sq.CreatePaymentRequest, _ ...sqoption.RequestOption) (*sq.CreatePaymentResponse, error) {
	f.req = req
	return f.resp, f.err
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "square-test", Output: io.Discard})
}

func TestNewClientValidation(t *testing.T) {
	ctx := context.Background()
	logg := quietLogger()

	_, err := NewClient(ctx, config.SquareConfig{AccessToken: "tok"}, nil)
	assert.ErrorIs(t, err, errLoggerRequired)
	_, err = NewClient(ctx, config.SquareConfig{}, logg)
	assert.ErrorIs(t, err, errAccessTokenRequired)
	_, err = NewClient(ctx, config.SquareConfig{AccessToken: "tok", Env: "staging"}, logg)
	assert.ErrorIs(t, err, errInvalidSquareEnv)

	c, err := NewClient(ctx, config.SquareConfig{AccessToken: "tok", Env: "Production"}, logg)
	require.NoError(t, err)
	assert.Equal(t, "production", c.env)
	assert.NotNil(t, c.payments)
}

func TestCreatePaymentBuildsDelayedCaptureRequest(t *testing.T) {
	id, state := "pay_123", "APPROVED"
	fake := &fakePayments{resp: &sq.CreatePaymentResponse{Payment: &sq.Payment{ID: &id, Status: &state}}}
	c := &Client{payments: fake, logg: quietLogger()}

	payment, err := c.CreatePayment(context.Background(), PaymentCreateParams{
		AmountCents:  41300,
		Currency:     "usd",
		LocationID:   "LOC1",
		SourceID:     "cnon:card-nonce-ok",
		ReferenceID:  " WF-2026-000001 ",
		DelayCapture: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "pay_123", *payment.ID)

	req := fake.req
	require.NotNil(t, req)
	assert.True(t, strings.HasPrefix(req.IdempotencyKey, "wf-payment-"))
	require.NotNil(t, req.AmountMoney)
	assert.EqualValues(t, 41300, *req.AmountMoney.Amount)
	assert.Equal(t, sq.Currency("USD"), *req.AmountMoney.Currency)
	require.NotNil(t, req.Autocomplete)
	assert.False(t, *req.Autocomplete)
	assert.Nil(t, req.CustomerID)
	assert.Equal(t, "WF-2026-000001", *req.ReferenceID)
}

func TestCreatePaymentKeepsCallerKey(t *testing.T) {
	fake := &fakePayments{resp: &sq.CreatePaymentResponse{}}
	c := &Client{payments: fake, logg: quietLogger()}

	_, err := c.CreatePayment(context.Background(), PaymentCreateParams{SourceID: "cnon", IdempotencyKey: "order-7"})
	require.NoError(t, err)
	assert.Equal(t, "order-7", fake.req.IdempotencyKey)
	assert.Nil(t, fake.req.AmountMoney)
}

func TestMapError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want pkgerrors.Code
	}{
		{"transport", errors.New("dial tcp: timeout"), pkgerrors.CodeGateway},
		{"server", sqcore.NewAPIError(http.StatusInternalServerError, errors.New("oops")), pkgerrors.CodeGateway},
		{"not found", sqcore.NewAPIError(http.StatusNotFound, errors.New(`{}`)), pkgerrors.CodeNotFound},
		{"unprocessable", sqcore.NewAPIError(http.StatusUnprocessableEntity, errors.New(`{}`)), pkgerrors.CodeStateConflict},
		{"auth", sqcore.NewAPIError(http.StatusUnauthorized,
			errors.New(`{"errors":[{"category":"AUTHENTICATION_ERROR","code":"UNAUTHORIZED"}]}`)), pkgerrors.CodeUnauthorized},
		{"key reused", sqcore.NewAPIError(http.StatusBadRequest,
			errors.New(`{"errors":[{"category":"INVALID_REQUEST_ERROR","code":"IDEMPOTENCY_KEY_REUSED"}]}`)), pkgerrors.CodeIdempotency},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mapped := mapError(tc.err)
			assert.True(t, pkgerrors.Is(mapped, tc.want), "got %v", mapped)
			assert.ErrorIs(t, mapped, tc.err)
		})
	}
}

func TestFailedCreateReturnsTypedError(t *testing.T) {
	fake := &fakePayments{err: sqcore.NewAPIError(http.StatusTooManyRequests, errors.New(`{}`))}
	c := &Client{payments: fake, logg: quietLogger()}

	_, err := c.CreatePayment(context.Background(), PaymentCreateParams{SourceID: "cnon"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeRateLimit))
}

func TestDecodeErrorsSkipsGarbage(t *testing.T) {
	assert.Empty(t, decodeErrors(sqcore.NewAPIError(http.StatusBadRequest, errors.New("not json"))))
	assert.Empty(t, decodeErrors(sqcore.NewAPIError(http.StatusBadRequest, nil)))

	got := decodeErrors(sqcore.NewAPIError(http.StatusBadRequest,
		errors.New(`{"errors":[null,{"category":"API_ERROR","code":"BAD_REQUEST"}]}`)))
	require.Len(t, got, 1)
	assert.Equal(t, sq.ErrorCodeBadRequest, got[0].GetCode())
}
