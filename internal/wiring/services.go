package wiring

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/washfold-backend/internal/address"
	"github.com/angelmondragon/washfold-backend/internal/agents"
	"github.com/angelmondragon/washfold-backend/internal/assignments"
	"github.com/angelmondragon/washfold-backend/internal/coupons"
	"github.com/angelmondragon/washfold-backend/internal/orders"
	"github.com/angelmondragon/washfold-backend/internal/payments"
	"github.com/angelmondragon/washfold-backend/internal/pricing"
	"github.com/angelmondragon/washfold-backend/internal/slots"
	"github.com/angelmondragon/washfold-backend/pkg/config"
	"github.com/angelmondragon/washfold-backend/pkg/db"
	"github.com/angelmondragon/washfold-backend/pkg/enums"
	"github.com/angelmondragon/washfold-backend/pkg/logger"
	"github.com/angelmondragon/washfold-backend/pkg/metrics"
	"github.com/angelmondragon/washfold-backend/pkg/outbox"
	"github.com/angelmondragon/washfold-backend/pkg/square"
)

const storeName = "Washfold"

// Services holds the domain services shared by the api and cron binaries.
type Services struct {
	Orders      orders.Service
	Slots       slots.Manager
	Coupons     coupons.Service
	Agents      agents.Service
	Assignments assignments.Service
	Payments    payments.Service
	GatewayName string
}

// Build wires every domain service against one database client.
func Build(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client, m *metrics.DomainMetrics) (*Services, error) {
	gormDB := dbClient.DB()

	loc, err := time.LoadLocation(cfg.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.App.Timezone, err)
	}
	windows, err := cfg.Slots.ParseWindows()
	if err != nil {
		return nil, err
	}
	currency, err := enums.ParseCurrency(cfg.Pricing.Currency)
	if err != nil {
		return nil, fmt.Errorf("pricing currency: %w", err)
	}
	taxRate, err := decimal.NewFromString(cfg.Pricing.TaxRate)
	if err != nil {
		return nil, fmt.Errorf("pricing tax rate: %w", err)
	}

	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)

	slotsMgr, err := slots.NewManager(slots.ManagerParams{
		Repo:            slots.NewRepository(gormDB),
		Windows:         windows,
		DefaultCapacity: cfg.Slots.DefaultCapacity,
		Location:        loc,
		Metrics:         m,
	})
	if err != nil {
		return nil, fmt.Errorf("slots manager: %w", err)
	}

	engine, err := pricing.NewEngine(taxRate)
	if err != nil {
		return nil, err
	}
	quoter, err := pricing.NewQuoter(pricing.NewCatalogRepository(gormDB), engine)
	if err != nil {
		return nil, fmt.Errorf("pricing quoter: %w", err)
	}

	couponSvc, err := coupons.NewService(coupons.NewRepository(gormDB), m, nil)
	if err != nil {
		return nil, err
	}

	ordersRepo := orders.NewRepository(gormDB)
	statusWriter, err := orders.NewStatusWriter(ordersRepo, outboxSvc, nil)
	if err != nil {
		return nil, err
	}
	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Repo:              ordersRepo,
		TxRunner:          dbClient,
		Status:            statusWriter,
		Outbox:            outboxSvc,
		Addresses:         address.NewDirectory(gormDB),
		Slots:             slotsMgr,
		Quoter:            quoter,
		Coupons:           couponSvc,
		OrderNumberPrefix: cfg.Pricing.OrderNumberPrefix,
		Currency:          currency,
		Logger:            logg,
	})
	if err != nil {
		return nil, fmt.Errorf("orders service: %w", err)
	}

	agentsRepo := agents.NewRepository(gormDB)
	agentsSvc, err := agents.NewService(agentsRepo, nil)
	if err != nil {
		return nil, err
	}

	assignmentsSvc, err := assignments.NewService(assignments.ServiceParams{
		Repo:     assignments.NewRepository(gormDB),
		Orders:   ordersRepo,
		Status:   statusWriter,
		Agents:   agentsRepo,
		TxRunner: dbClient,
		Outbox:   outboxSvc,
	})
	if err != nil {
		return nil, fmt.Errorf("assignments service: %w", err)
	}

	gateway, err := NewGateway(ctx, cfg, logg)
	if err != nil {
		return nil, fmt.Errorf("payment gateway: %w", err)
	}
	paymentsSvc, err := payments.NewService(payments.ServiceParams{
		Repo:          payments.NewRepository(gormDB),
		Orders:        ordersRepo,
		Status:        statusWriter,
		Gateway:       gateway,
		TxRunner:      dbClient,
		Outbox:        outboxSvc,
		Metrics:       m,
		KeyID:         cfg.Payments.KeyID,
		KeySecret:     cfg.Payments.KeySecret,
		WebhookSecret: cfg.Payments.WebhookSecret,
		StoreName:     storeName,
		Logger:        logg,
	})
	if err != nil {
		return nil, fmt.Errorf("payments service: %w", err)
	}

	return &Services{
		Orders:      ordersSvc,
		Slots:       slotsMgr,
		Coupons:     couponSvc,
		Agents:      agentsSvc,
		Assignments: assignmentsSvc,
		Payments:    paymentsSvc,
		GatewayName: gateway.Name(),
	}, nil
}

// NewGateway picks the payment gateway named by the payments provider setting.
func NewGateway(ctx context.Context, cfg *config.Config, logg *logger.Logger) (payments.Gateway, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Payments.Provider)) {
	case "", "gateway":
		return payments.NewRESTGateway(cfg.Payments)
	case "square":
		client, err := square.NewClient(ctx, cfg.Square, logg)
		if err != nil {
			return nil, err
		}
		return payments.NewSquareGateway(client, cfg.Square.LocationID)
	default:
		return nil, fmt.Errorf("unsupported payments provider %q", cfg.Payments.Provider)
	}
}
