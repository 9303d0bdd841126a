package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/washfold-backend/internal/orders"
	"github.com/angelmondragon/washfold-backend/pkg/db"
	"github.com/angelmondragon/washfold-backend/pkg/db/models"
	"github.com/angelmondragon/washfold-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/washfold-backend/pkg/errors"
	"github.com/angelmondragon/washfold-backend/pkg/logger"
	"github.com/angelmondragon/washfold-backend/pkg/metrics"
	"github.com/angelmondragon/washfold-backend/pkg/outbox"
	"github.com/angelmondragon/washfold-backend/pkg/outbox/payloads"
)

const (
	sourceVerify  = "verify"
	sourceWebhook = "webhook"

	eventPaymentAuthorized = "payment.authorized"
	eventPaymentFailed     = "payment.failed"

	paidPaymentIndex = "idx_payments_single_paid"

	msgOrderNotFound   = "Order not found"
	msgPaymentNotFound = "Payment not found"
	msgSignatureFailed = "signature verification failed"
	defaultStoreName   = "Washfold"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service opens gateway payments and settles them from client verification
// or gateway webhooks.
type Service interface {
	CreateIntent(ctx context.Context, customerID, orderID uuid.UUID, input IntentInput) (*IntentView, error)
	Verify(ctx context.Context, customerID uuid.UUID, input VerifyInput) (*PaymentView, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error)
	History(ctx context.Context, customerID, orderID uuid.UUID) ([]PaymentView, error)
	AdminHistory(ctx context.Context, orderID uuid.UUID) ([]PaymentView, error)
}

type ServiceParams struct {
	Repo          Repository
	Orders        orders.Repository
	Status        orders.StatusWriter
	Gateway       Gateway
	TxRunner      txRunner
	Outbox        outboxPublisher
	Metrics       *metrics.DomainMetrics
	KeyID         string
	KeySecret     string
	WebhookSecret string
	StoreName     string
	Logger        *logger.Logger
	Now           func() time.Time
}

type service struct {
	repo          Repository
	orders        orders.Repository
	status        orders.StatusWriter
	gateway       Gateway
	tx            txRunner
	outbox        outboxPublisher
	metrics       *metrics.DomainMetrics
	keyID         string
	keySecret     string
	webhookSecret string
	storeName     string
	logg          *logger.Logger
	now           func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Status == nil {
		return nil, fmt.Errorf("order status writer required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if strings.TrimSpace(params.KeySecret) == "" {
		return nil, fmt.Errorf("payment key secret required")
	}
	if strings.TrimSpace(params.WebhookSecret) == "" {
		return nil, fmt.Errorf("payment webhook secret required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	storeName := strings.TrimSpace(params.StoreName)
	if storeName == "" {
		storeName = defaultStoreName
	}
	return &service{
		repo:          params.Repo,
		orders:        params.Orders,
		status:        params.Status,
		gateway:       params.Gateway,
		tx:            params.TxRunner,
		outbox:        params.Outbox,
		metrics:       params.Metrics,
		keyID:         params.KeyID,
		keySecret:     params.KeySecret,
		webhookSecret: params.WebhookSecret,
		storeName:     storeName,
		logg:          params.Logger,
		now:           now,
	}, nil
}

func (s *service) CreateIntent(ctx context.Context, customerID, orderID uuid.UUID, input IntentInput) (*IntentView, error) {
	order, err := s.loadOwned(ctx, customerID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("Payment can only be started for pending orders. Current: %s", order.Status)).
			WithDetails(map[string]any{"current_status": order.Status})
	}
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "Payment already completed for this order")
	}
	paid, err := s.repo.HasPaid(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing payments")
	}
	if paid {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "Payment already completed for this order")
	}

	amountMinor := order.Currency.MinorUnits(order.TotalAmount)
	if amountMinor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total must be positive to start a payment")
	}
	description := fmt.Sprintf("%s - %s", s.storeName, order.OrderNumber)

	intent, err := s.gateway.CreateIntent(ctx, IntentRequest{
		AmountMinor: amountMinor,
		Currency:    order.Currency.String(),
		Receipt:     order.OrderNumber,
		SourceID:    strings.TrimSpace(input.SourceID),
		Notes: map[string]string{
			"order_id":    order.ID.String(),
			"description": description,
		},
	})
	if err != nil {
		if s.logg != nil {
			s.logg.Error(s.logg.WithOrderID(ctx, order.ID.String()), "payment intent failed", err)
		}
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "create payment intent")
	}

	payment := &models.Payment{
		ID:            uuid.New(),
		OrderID:       order.ID,
		Provider:      intent.Provider,
		RemoteOrderID: intent.RemoteOrderID,
		Amount:        order.TotalAmount,
		Currency:      order.Currency,
		Status:        enums.PaymentStatusPending,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "remote order already recorded")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save payment")
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID.String()), map[string]any{
			"payment_id":      payment.ID.String(),
			"remote_order_id": payment.RemoteOrderID,
			"provider":        payment.Provider,
		})
		s.logg.Info(logCtx, "payment intent created")
	}

	return &IntentView{
		PaymentID:     payment.ID,
		RemoteOrderID: payment.RemoteOrderID,
		Provider:      payment.Provider,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		Amount:        amountMinor,
		Currency:      order.Currency,
		KeyID:         s.keyID,
		Description:   description,
	}, nil
}

func (s *service) Verify(ctx context.Context, customerID uuid.UUID, input VerifyInput) (*PaymentView, error) {
	remoteOrderID := strings.TrimSpace(input.RemoteOrderID)
	remotePaymentID := strings.TrimSpace(input.RemotePaymentID)
	if remoteOrderID == "" || remotePaymentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "remote_order_id and remote_payment_id are required")
	}

	payment, err := s.loadByRemoteOrder(ctx, remoteOrderID)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadOwned(ctx, customerID, payment.OrderID); err != nil {
		return nil, err
	}

	expected := CheckoutSignature(s.keySecret, remoteOrderID, remotePaymentID)
	if !signaturesMatch(expected, input.Signature) {
		if err := s.fail(ctx, payment, &remotePaymentID, msgSignatureFailed, sourceVerify); err != nil {
			return nil, err
		}
		return nil, pkgerrors.New(pkgerrors.CodeSignature, "Payment verification failed")
	}

	signature := strings.ToLower(strings.TrimSpace(input.Signature))
	if err := s.settle(ctx, payment, remotePaymentID, &signature, sourceVerify); err != nil {
		return nil, err
	}
	return s.view(ctx, payment.ID)
}

func (s *service) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	expected := WebhookSignature(s.webhookSecret, payload)
	if !signaturesMatch(expected, signature) {
		s.metrics.PaymentTransition(sourceWebhook, "bad_signature")
		return nil, pkgerrors.New(pkgerrors.CodeSignature, "Invalid webhook signature")
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook payload")
	}
	result := &WebhookResult{Event: envelope.Event}
	entity := envelope.Payload.Payment.Entity

	switch envelope.Event {
	case eventPaymentAuthorized, eventPaymentFailed:
	default:
		if s.logg != nil {
			s.logg.Info(s.logg.WithField(ctx, "event", envelope.Event), "unhandled payment webhook event")
		}
		return result, nil
	}

	if strings.TrimSpace(entity.OrderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook payment entity missing order_id")
	}
	payment, err := s.repo.FindByRemoteOrderID(ctx, entity.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Orders opened outside this service are acknowledged and dropped.
			if s.logg != nil {
				s.logg.Warn(s.logg.WithField(ctx, "remote_order_id", entity.OrderID), "webhook for unknown payment")
			}
			return result, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	result.PaymentID = &payment.ID

	switch envelope.Event {
	case eventPaymentAuthorized:
		if strings.TrimSpace(entity.ID) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook payment entity missing id")
		}
		if err := s.settle(ctx, payment, entity.ID, nil, sourceWebhook); err != nil {
			return nil, err
		}
	case eventPaymentFailed:
		var remotePaymentID *string
		if entity.ID != "" {
			remotePaymentID = &entity.ID
		}
		if err := s.fail(ctx, payment, remotePaymentID, entity.failureReason(), sourceWebhook); err != nil {
			return nil, err
		}
	}

	current, err := s.repo.FindByID(ctx, payment.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload payment")
	}
	result.Handled = true
	result.Status = current.Status.String()
	return result, nil
}

func (s *service) History(ctx context.Context, customerID, orderID uuid.UUID) ([]PaymentView, error) {
	if _, err := s.loadOwned(ctx, customerID, orderID); err != nil {
		return nil, err
	}
	return s.history(ctx, orderID)
}

func (s *service) AdminHistory(ctx context.Context, orderID uuid.UUID) ([]PaymentView, error) {
	if _, err := s.orders.FindByID(ctx, orderID); err != nil {
		return nil, mapOrderLookup(err)
	}
	return s.history(ctx, orderID)
}

func (s *service) history(ctx context.Context, orderID uuid.UUID) ([]PaymentView, error) {
	rows, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	views := make([]PaymentView, 0, len(rows))
	for i := range rows {
		views = append(views, viewFromModel(&rows[i]))
	}
	return views, nil
}

// settle performs the single PENDING to PAID transition and moves a PENDING
// order to PICKUP_ASSIGNED as the system. Whichever of verify or webhook
// loses the race sees zero affected rows and changes nothing.
func (s *service) settle(ctx context.Context, payment *models.Payment, remotePaymentID string, signature *string, source string) error {
	var settled bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		now := s.now().UTC()
		affected, err := s.repo.WithTx(tx).MarkPaid(ctx, payment.ID, remotePaymentID, signature, now)
		if err != nil {
			if db.IsUniqueViolation(err, paidPaymentIndex) {
				return pkgerrors.New(pkgerrors.CodeConflict, "Payment already completed for this order")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment paid")
		}
		if affected == 0 {
			return nil
		}

		order, err := s.orders.WithTx(tx).FindByID(ctx, payment.OrderID)
		if err != nil {
			return mapOrderLookup(err)
		}
		paid := map[string]any{"payment_status": enums.PaymentStatusPaid}
		if order.Status == enums.OrderStatusPending {
			if _, err := s.status.Transition(ctx, tx, orders.TransitionInput{
				Order:   order,
				To:      enums.OrderStatusPickupAssigned,
				Actor:   orders.SystemActor(),
				Notes:   "Payment received",
				Updates: paid,
			}); err != nil {
				return err
			}
		} else {
			if err := s.orders.WithTx(tx).Update(ctx, order.ID, paid); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
			}
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			OccurredAt:    now,
			Data: payloads.OrderPaidEvent{
				OrderID:         order.ID,
				OrderNumber:     order.OrderNumber,
				PaymentID:       payment.ID,
				RemoteOrderID:   payment.RemoteOrderID,
				RemotePaymentID: remotePaymentID,
				Amount:          payment.Amount,
				Currency:        payment.Currency,
				Source:          source,
				PaidAt:          now,
			},
		}
		// at most one order_paid row per order
		if err := s.outbox.EmitIfNotExists(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order paid event")
		}
		settled = true
		return nil
	})
	if err != nil {
		s.metrics.PaymentTransition(source, "error")
		return err
	}
	if !settled {
		s.metrics.PaymentTransition(source, "duplicate")
		return nil
	}

	s.metrics.PaymentTransition(source, "paid")
	if s.logg != nil {
		logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, payment.OrderID.String()), map[string]any{
			"payment_id": payment.ID.String(),
			"source":     source,
		})
		s.logg.Info(logCtx, "payment settled")
	}
	return nil
}

// fail marks a PENDING payment FAILED. Settled payments are left untouched.
func (s *service) fail(ctx context.Context, payment *models.Payment, remotePaymentID *string, reason, source string) error {
	var failed bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		affected, err := s.repo.WithTx(tx).MarkFailed(ctx, payment.ID, remotePaymentID, reason)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment failed")
		}
		if affected == 0 {
			return nil
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventPaymentFailed,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			OccurredAt:    s.now().UTC(),
			Data: payloads.PaymentFailedEvent{
				PaymentID:     payment.ID,
				OrderID:       payment.OrderID,
				RemoteOrderID: payment.RemoteOrderID,
				Reason:        reason,
				Source:        source,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payment failed event")
		}
		failed = true
		return nil
	})
	if err != nil {
		return err
	}
	if failed {
		s.metrics.PaymentTransition(source, "failed")
		if s.logg != nil {
			logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, payment.OrderID.String()), map[string]any{
				"payment_id": payment.ID.String(),
				"reason":     reason,
			})
			s.logg.Warn(logCtx, "payment failed")
		}
	} else {
		s.metrics.PaymentTransition(source, "ignored")
	}
	return nil
}

func (s *service) loadOwned(ctx context.Context, customerID, orderID uuid.UUID) (*models.Order, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, mapOrderLookup(err)
	}
	if order.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgOrderNotFound)
	}
	return order, nil
}

func (s *service) loadByRemoteOrder(ctx context.Context, remoteOrderID string) (*models.Payment, error) {
	payment, err := s.repo.FindByRemoteOrderID(ctx, remoteOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgPaymentNotFound)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	return payment, nil
}

func (s *service) view(ctx context.Context, paymentID uuid.UUID) (*PaymentView, error) {
	payment, err := s.repo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload payment")
	}
	view := viewFromModel(payment)
	return &view, nil
}

func mapOrderLookup(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, msgOrderNotFound)
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}

type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity webhookPaymentEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

type webhookPaymentEntity struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
}

// failureReason is the gateway error code, "Unknown" when the gateway sent
// neither a code nor a description.
func (e webhookPaymentEntity) failureReason() string {
	switch {
	case strings.TrimSpace(e.ErrorCode) != "":
		return strings.TrimSpace(e.ErrorCode)
	case strings.TrimSpace(e.ErrorDescription) != "":
		return strings.TrimSpace(e.ErrorDescription)
	default:
		return "Unknown"
	}
}
