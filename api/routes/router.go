package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/washfold-backend/api/controllers"
	agentcontrollers "github.com/angelmondragon/washfold-backend/api/controllers/agents"
	assignmentcontrollers "github.com/angelmondragon/washfold-backend/api/controllers/assignments"
	couponcontrollers "github.com/angelmondragon/washfold-backend/api/controllers/coupons"
	ordercontrollers "github.com/angelmondragon/washfold-backend/api/controllers/orders"
	paymentcontrollers "github.com/angelmondragon/washfold-backend/api/controllers/payments"
	slotcontrollers "github.com/angelmondragon/washfold-backend/api/controllers/slots"
	webhookcontrollers "github.com/angelmondragon/washfold-backend/api/controllers/webhooks"
	"github.com/angelmondragon/washfold-backend/api/middleware"
	"github.com/angelmondragon/washfold-backend/internal/agents"
	"github.com/angelmondragon/washfold-backend/internal/assignments"
	"github.com/angelmondragon/washfold-backend/internal/coupons"
	"github.com/angelmondragon/washfold-backend/internal/orders"
	"github.com/angelmondragon/washfold-backend/internal/payments"
	"github.com/angelmondragon/washfold-backend/internal/slots"
	gatewaywebhook "github.com/angelmondragon/washfold-backend/internal/webhooks/gateway"
	"github.com/angelmondragon/washfold-backend/pkg/config"
	"github.com/angelmondragon/washfold-backend/pkg/db"
	"github.com/angelmondragon/washfold-backend/pkg/enums"
	"github.com/angelmondragon/washfold-backend/pkg/logger"
	"github.com/angelmondragon/washfold-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	metricsHandler http.Handler,
	ordersSvc orders.Service,
	slotsMgr slots.Manager,
	couponsSvc coupons.Service,
	agentsSvc agents.Service,
	assignmentsSvc assignments.Service,
	paymentsSvc payments.Service,
	gatewayGuard *gatewaywebhook.IdempotencyGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins...),
	)

	trackPolicy := middleware.NewRateLimitPolicy("track", cfg.RateLimit.TrackingWindow, cfg.RateLimit.TrackingLimit)
	quotePolicy := middleware.NewRateLimitPolicy("quote", cfg.RateLimit.QuoteWindow, cfg.RateLimit.QuoteLimit)

	var limiter redisLimiter
	var idemStore redisIdempotency
	var guard webhookGuard
	if gatewayGuard != nil {
		guard = gatewayGuard
	}
	readyChecks := map[string]controllers.Pinger{}
	if dbP != nil {
		readyChecks["db"] = dbP
	}
	if redisClient != nil {
		limiter = redisClient
		idemStore = redisClient
		readyChecks["redis"] = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readyChecks))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
		r.Get("/v1/slots", slotcontrollers.Availability(slotsMgr, logg))
		r.With(middleware.RateLimit(trackPolicy, limiter, logg)).
			Get("/v1/track/{orderNumber}", ordercontrollers.Track(ordersSvc, logg))
		r.With(middleware.RateLimit(quotePolicy, limiter, logg)).
			Post("/v1/quote", ordercontrollers.Quote(ordersSvc, logg))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/payments", webhookcontrollers.PaymentWebhook(paymentsSvc, guard, logg))
	})

	once := middleware.Idempotent(idemStore, logg, middleware.IdempotencyTTLDefault)
	onceCritical := middleware.Idempotent(idemStore, logg, middleware.IdempotencyTTLCritical)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleCustomer))

			r.Route("/orders", func(r chi.Router) {
				r.With(onceCritical).Post("/", ordercontrollers.Create(ordersSvc, logg))
				r.Get("/", ordercontrollers.List(ordersSvc, logg))
				r.Route("/{orderID}", func(r chi.Router) {
					r.Get("/", ordercontrollers.Detail(ordersSvc, logg))
					r.With(onceCritical).Post("/cancel", ordercontrollers.Cancel(ordersSvc, logg))
					r.With(once).Post("/coupon", ordercontrollers.ApplyCoupon(ordersSvc, logg))
					r.With(onceCritical).Post("/payments/intent", paymentcontrollers.CreateIntent(paymentsSvc, logg))
					r.Get("/payments", paymentcontrollers.History(paymentsSvc, logg))
				})
			})
			r.Post("/coupons/validate", couponcontrollers.Validate(couponsSvc, logg))
			r.With(onceCritical).Post("/payments/verify", paymentcontrollers.Verify(paymentsSvc, logg))
		})

		r.Route("/agent", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleAgent))

			r.Get("/ping", controllers.AgentPing())
			r.With(once).Post("/register", agentcontrollers.Register(agentsSvc, logg))
			r.Get("/me", agentcontrollers.Me(agentsSvc, logg))
			r.Put("/availability", agentcontrollers.SetAvailability(agentsSvc, logg))
			r.Get("/assignments", assignmentcontrollers.AgentList(assignmentsSvc, logg))
			r.Route("/assignments/{assignmentID}", func(r chi.Router) {
				r.Use(once)
				r.Post("/accept", assignmentcontrollers.Accept(assignmentsSvc, logg))
				r.Post("/reject", assignmentcontrollers.Reject(assignmentsSvc, logg))
				r.Post("/complete-pickup", assignmentcontrollers.CompletePickup(assignmentsSvc, logg))
				r.Post("/complete-delivery", assignmentcontrollers.CompleteDelivery(assignmentsSvc, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))

		r.Get("/ping", controllers.AdminPing())

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.AdminList(ordersSvc, logg))
			r.Route("/{orderID}", func(r chi.Router) {
				r.Get("/", ordercontrollers.AdminDetail(ordersSvc, logg))
				r.Put("/status", ordercontrollers.AdminUpdateStatus(ordersSvc, logg))
				r.With(once).Post("/refund", ordercontrollers.AdminRefund(ordersSvc, logg))
				r.Get("/payments", paymentcontrollers.AdminHistory(paymentsSvc, logg))
				r.Get("/assignments", assignmentcontrollers.AdminListForOrder(assignmentsSvc, logg))
				r.With(once).Post("/assign-pickup", assignmentcontrollers.AdminAssignPickup(assignmentsSvc, logg))
				r.With(once).Post("/assign-delivery", assignmentcontrollers.AdminAssignDelivery(assignmentsSvc, logg))
			})
		})

		r.Route("/agents", func(r chi.Router) {
			r.Get("/", agentcontrollers.AdminList(agentsSvc, logg))
			r.With(once).Post("/{agentID}/approve", agentcontrollers.AdminApprove(agentsSvc, logg))
			r.With(once).Post("/{agentID}/suspend", agentcontrollers.AdminSuspend(agentsSvc, logg))
		})

		r.Route("/coupons", func(r chi.Router) {
			r.Get("/", couponcontrollers.AdminList(couponsSvc, logg))
			r.With(once).Post("/", couponcontrollers.AdminCreate(couponsSvc, logg))
			r.Get("/code/{code}", couponcontrollers.AdminGetByCode(couponsSvc, logg))
			r.Put("/{couponID}", couponcontrollers.AdminUpdate(couponsSvc, logg))
			r.Delete("/{couponID}", couponcontrollers.AdminDeactivate(couponsSvc, logg))
			r.Get("/{couponID}/stats", couponcontrollers.AdminStats(couponsSvc, logg))
		})

		r.Put("/slots/{date}/{window}", slotcontrollers.AdminUpdate(slotsMgr, logg))
	})

	return r
}

type redisLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type redisIdempotency = redis.IdempotencyStore

type webhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}
