package webhooks

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/angelmondragon/washfold-backend/api/responses"
	"github.com/angelmondragon/washfold-backend/internal/payments"
	gatewaywebhook "github.com/angelmondragon/washfold-backend/internal/webhooks/gateway"
	pkgerrors "github.com/angelmondragon/washfold-backend/pkg/errors"
	"github.com/angelmondragon/washfold-backend/pkg/logger"
)

// SignatureHeader carries the hex HMAC of the raw body.
const SignatureHeader = "X-Gateway-Signature"

const maxWebhookBody = 1 << 20

type PaymentWebhookService interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*payments.WebhookResult, error)
}

type paymentWebhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

// PaymentWebhook settles or fails payments from gateway deliveries.
func PaymentWebhook(svc PaymentWebhookService, guard paymentWebhookGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		signature := strings.TrimSpace(r.Header.Get(SignatureHeader))
		if signature == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "webhook signature missing"))
			return
		}

		eventID := gatewaywebhook.EventID(r.Header.Get(gatewaywebhook.EventIDHeader), payload)
		alreadyProcessed, err := guard.CheckAndMark(ctx, eventID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadyProcessed {
			responses.WriteSuccess(w, map[string]any{"event_id": eventID, "duplicate": true})
			return
		}

		result, err := svc.HandleWebhook(ctx, payload, signature)
		if err != nil {
			_ = guard.Delete(ctx, eventID)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logCtx := logg.WithFields(ctx, map[string]any{
				"event_id": eventID,
				"event":    result.Event,
				"handled":  result.Handled,
			})
			logg.Info(logCtx, "payments.webhook.processed")
		}
		responses.WriteSuccess(w, result)
	}
}
