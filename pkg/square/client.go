// Package square wraps the Square payments API: credential checks, request
// logging without card data, and mapping of Square failures onto typed errors.
package square

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	sqclient "github.com/square/square-go-sdk/client"
	sqcore "github.com/square/square-go-sdk/core"
	sqoption "github.com/square/square-go-sdk/option"

	"github.com/angelmondragon/washfold-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/washfold-backend/pkg/errors"
	"github.com/angelmondragon/washfold-backend/pkg/logger"
)

var (
	errAccessTokenRequired = errors.New("square: access token is required")
	errInvalidSquareEnv    = errors.New("square: environment must be sandbox or production")
	errLoggerRequired      = errors.New("square: logger is required")
)

var endpoints = map[string]string{
	"sandbox":    "https://connect.squareupsandbox.com",
	"production": "https://connect.squareup.com",
}

type paymentsAPI interface {
	Create(ctx context.Context, req *sq.CreatePaymentRequest, opts ...sqoption.RequestOption) (*sq.CreatePaymentResponse, error)
}

type Client struct {
	payments paymentsAPI
	env      string
	logg     *logger.Logger
}

func NewClient(ctx context.Context, cfg config.SquareConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	env := strings.ToLower(strings.TrimSpace(cfg.Environment()))
	if env == "" {
		env = "sandbox"
	}
	baseURL, ok := endpoints[env]
	if !ok {
		return nil, errInvalidSquareEnv
	}
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		return nil, errAccessTokenRequired
	}

	sdk := sqclient.NewClient(sqoption.WithBaseURL(baseURL), sqoption.WithToken(token))
	logg.Info(logg.WithField(ctx, "square_env", env), "square client ready")
	return &Client{payments: sdk.Payments, env: env, logg: logg}, nil
}

// CreatePayment charges SourceID at the configured location. Without an
// explicit key a fresh "wf-payment-<uuid>" idempotency key is used.
func (c *Client) CreatePayment(ctx context.Context, params PaymentCreateParams) (*sq.Payment, error) {
	key := strings.TrimSpace(params.IdempotencyKey)
	if key == "" {
		key = "wf-payment-" + uuid.NewString()
	}
	ctx = c.logg.WithFields(ctx, map[string]any{
		"square_op":    "create_payment",
		"location_id":  params.LocationID,
		"reference_id": params.ReferenceID,
		"amount_minor": params.AmountCents,
	})

	resp, err := c.payments.Create(ctx, params.request(key))
	if err != nil {
		mapped := mapError(err)
		c.logg.Error(ctx, "square create payment failed", mapped)
		return nil, mapped
	}
	payment := resp.GetPayment()
	if payment != nil {
		c.logg.Info(c.logg.WithFields(ctx, map[string]any{
			"payment_id":     deref(payment.GetID()),
			"payment_status": deref(payment.GetStatus()),
		}), "square payment created")
	}
	return payment, nil
}

// mapError turns a Square API failure into a typed error. Transport errors
// and 5xx responses count as the gateway being unavailable.
func mapError(err error) error {
	var apiErr *sqcore.APIError
	if !errors.As(err, &apiErr) {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "square request failed")
	}
	code := codeForStatus(apiErr.StatusCode)
	for _, detail := range decodeErrors(apiErr) {
		switch {
		case detail.Code == sq.ErrorCodeIdempotencyKeyReused:
			code = pkgerrors.CodeIdempotency
		case detail.Category == sq.ErrorCategoryAuthenticationError:
			code = pkgerrors.CodeUnauthorized
		case detail.Category == sq.ErrorCategoryPaymentMethodError:
			code = pkgerrors.CodeValidation
		default:
			continue
		}
		return pkgerrors.Wrap(code, err, "square rejected the request").WithDetails(map[string]any{
			"square_code": string(detail.Code),
		})
	}
	return pkgerrors.Wrap(code, err, "square rejected the request")
}

// decodeErrors reads the {"errors": [...]} body Square attaches to failures.
func decodeErrors(apiErr *sqcore.APIError) []*sq.Error {
	inner := apiErr.Unwrap()
	if inner == nil {
		return nil
	}
	var body struct {
		Errors []*sq.Error `json:"errors"`
	}
	if json.Unmarshal([]byte(inner.Error()), &body) != nil {
		return nil
	}
	out := body.Errors[:0]
	for _, e := range body.Errors {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

func codeForStatus(status int) pkgerrors.Code {
	switch {
	case status == http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case status == http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case status == http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case status == http.StatusConflict:
		return pkgerrors.CodeConflict
	case status == http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case status == http.StatusUnprocessableEntity:
		return pkgerrors.CodeStateConflict
	case status >= 400 && status < 500:
		return pkgerrors.CodeValidation
	default:
		return pkgerrors.CodeGateway
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
