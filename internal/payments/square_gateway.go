package payments

import (
	"context"
	"errors"
	"strings"

	sq "github.com/square/square-go-sdk"

	pkgerrors "github.com/angelmondragon/washfold-backend/pkg/errors"
	"github.com/angelmondragon/washfold-backend/pkg/square"
)

const squareProviderName = "square"

type squarePaymentCreator interface {
	CreatePayment(ctx context.Context, params square.PaymentCreateParams) (*sq.Payment, error)
}

// SquareGateway opens delayed-capture Square payments as remote orders.
type SquareGateway struct {
	client     squarePaymentCreator
	locationID string
}

func NewSquareGateway(client squarePaymentCreator, locationID string) (*SquareGateway, error) {
	if client == nil {
		return nil, errors.New("square client required")
	}
	locationID = strings.TrimSpace(locationID)
	if locationID == "" {
		return nil, errors.New("square location id required")
	}
	return &SquareGateway{client: client, locationID: locationID}, nil
}

func (g *SquareGateway) Name() string { return squareProviderName }

func (g *SquareGateway) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	if req.AmountMinor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	if strings.TrimSpace(req.SourceID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "source_id is required for square payments")
	}

	payment, err := g.client.CreatePayment(ctx, square.PaymentCreateParams{
		AmountCents:  req.AmountMinor,
		Currency:     req.Currency,
		LocationID:   g.locationID,
		SourceID:     req.SourceID,
		ReferenceID:  req.Receipt,
		Note:         "Order " + req.Receipt,
		DelayCapture: true,
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "create square payment")
	}
	if payment == nil || payment.GetID() == nil || *payment.GetID() == "" {
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "square payment response missing id")
	}
	return &Intent{RemoteOrderID: *payment.GetID(), Provider: squareProviderName}, nil
}
