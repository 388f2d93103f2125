package http

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	accessUsecases "github.com/secforge/billing/internal/application/access/usecases"
	entitlementUsecases "github.com/secforge/billing/internal/application/entitlement/usecases"
	"github.com/secforge/billing/internal/application/payment/paymentgateway"
	paymentUsecases "github.com/secforge/billing/internal/application/payment/usecases"
	webhookUsecases "github.com/secforge/billing/internal/application/webhook/usecases"
	"github.com/secforge/billing/internal/domain/access"
	"github.com/secforge/billing/internal/domain/catalog"
	"github.com/secforge/billing/internal/domain/entitlement"
	"github.com/secforge/billing/internal/domain/plan"
	"github.com/secforge/billing/internal/domain/providerevent"
	"github.com/secforge/billing/internal/domain/purchase"
	"github.com/secforge/billing/internal/domain/subscription"
	"github.com/secforge/billing/internal/infrastructure/auth"
	"github.com/secforge/billing/internal/infrastructure/cache"
	"github.com/secforge/billing/internal/infrastructure/config"
	"github.com/secforge/billing/internal/infrastructure/metrics"
	infraPayment "github.com/secforge/billing/internal/infrastructure/payment"
	"github.com/secforge/billing/internal/infrastructure/repository"
	"github.com/secforge/billing/internal/interfaces/http/handlers"
	"github.com/secforge/billing/internal/interfaces/http/middleware"
	"github.com/secforge/billing/internal/shared/constants"
	"github.com/secforge/billing/internal/shared/db"
	"github.com/secforge/billing/internal/shared/logger"
)

// Container holds all infrastructure components, repositories, use cases and
// handlers, and wires them together.
type Container struct {
	// Core infrastructure
	engine  *gin.Engine
	db      *gorm.DB
	cfg     *config.Config
	log     logger.Interface
	redis   *redis.Client
	metrics *metrics.BillingMetrics

	ladder        *plan.Ladder
	policy        catalog.Policy
	decisionCache access.DecisionCache
	gateway       paymentgateway.PaymentGateway
	txManager     *db.TransactionManager

	repos *repositories
	ucs   *useCases
	hdlrs *allHandlers

	authMiddleware *middleware.AuthMiddleware
	rateLimiter    *middleware.RateLimiter
}

type repositories struct {
	catalogRepo      catalog.Repository
	userPlanRepo     plan.Repository
	purchaseRepo     purchase.Repository
	subscriptionRepo subscription.Repository
	grantRepo        entitlement.Repository
	eventRepo        providerevent.Repository
	factsReader      access.FactsReader
}

type useCases struct {
	grantEngine   *entitlementUsecases.GrantEngine
	accessReads   *accessUsecases.AccessReads
	decide        *accessUsecases.DecideAccessUseCase
	reconstruct   *accessUsecases.ReconstructAccessUseCase
	createOrder   *paymentUsecases.CreateOrderUseCase
	verifyPayment *paymentUsecases.VerifyPaymentUseCase
	handleWebhook *webhookUsecases.HandleWebhookUseCase
}

type allHandlers struct {
	access  *handlers.AccessHandler
	payment *handlers.PaymentHandler
	webhook *handlers.WebhookHandler
	health  *handlers.HealthHandler
}

// NewContainer creates a Container with all dependencies wired together.
// Missing payment credentials do not fail construction.
func NewContainer(gdb *gorm.DB, cfg *config.Config, log logger.Interface) (*Container, error) {
	ladder, err := cfg.Ladder()
	if err != nil {
		return nil, fmt.Errorf("invalid plan ladder: %w", err)
	}

	c := &Container{
		engine:    gin.New(),
		db:        gdb,
		cfg:       cfg,
		log:       log,
		metrics:   metrics.NewBillingMetrics(),
		ladder:    ladder,
		policy:    cfg.Policy(),
		txManager: db.NewTransactionManager(gdb),
	}

	// Section 1: Infrastructure - Redis, Repositories, Gateway
	c.initInfrastructure()

	// Section 2: Use cases
	c.initUseCases()

	// Section 3: Handlers and middlewares
	c.initHandlers()

	return c, nil
}

func (c *Container) initInfrastructure() {
	cfg := c.cfg
	log := c.log

	c.decisionCache = cache.NoopAccessDecisionCache{}
	if cfg.Cache.Enabled {
		c.redis = initRedis(cfg, log)
		if c.redis != nil {
			c.decisionCache = cache.NewRedisAccessDecisionCache(c.redis, cfg.Cache.TTL(), log.Named("decision-cache"))
		}
	}

	c.repos = &repositories{
		catalogRepo:      repository.NewCatalogRepository(c.db, log),
		userPlanRepo:     repository.NewUserPlanRepository(c.db, log),
		purchaseRepo:     repository.NewPurchaseRepository(c.db, log),
		subscriptionRepo: repository.NewSubscriptionRepository(c.db, log),
		grantRepo:        repository.NewGrantRepository(c.db, log),
		eventRepo:        repository.NewProviderEventRepository(c.db, log),
		factsReader:      repository.NewAccessFactsRepository(c.db, log),
	}

	if cfg.Payments.Mock {
		log.Warnw("payment provider running in mock mode; no real charges are made")
		c.gateway = paymentgateway.NewMockGateway(cfg.Payments.WebhookSecret)
	} else {
		if cfg.Payments.KeyID == "" || cfg.Payments.KeySecret == "" {
			log.Warnw("payment provider credentials missing; order creation will fail until configured",
				"provider", cfg.Payments.Provider)
		}
		c.gateway = infraPayment.NewRazorpayGateway(cfg.Payments, log.Named("razorpay"))
	}
}

// initRedis returns nil when Redis is unreachable; the decision cache is
// then disabled and every decision reads the database.
func initRedis(cfg *config.Config, log logger.Interface) *redis.Client {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warnw("failed to connect to Redis, decision cache disabled", "addr", cfg.Redis.GetAddr(), "error", err)
		_ = redisClient.Close()
		return nil
	}
	log.Infow("Redis connection established successfully")
	return redisClient
}

func (c *Container) initUseCases() {
	r := c.repos
	log := c.log

	engine := entitlementUsecases.NewGrantEngine(
		r.purchaseRepo, r.grantRepo, r.userPlanRepo, c.ladder, c.decisionCache, c.txManager, log.Named("grant-engine"),
	)
	reads := accessUsecases.NewAccessReads(r.userPlanRepo, r.catalogRepo, r.grantRepo, c.ladder, log)
	decide := accessUsecases.NewDecideAccessUseCase(r.factsReader, c.decisionCache, c.ladder, c.policy, log)

	handleWebhook := webhookUsecases.NewHandleWebhookUseCase(
		r.eventRepo, r.purchaseRepo, r.subscriptionRepo, c.gateway, engine, c.ladder, c.txManager, log.Named("webhook"),
	)
	handleWebhook.SetRecorder(c.metrics)

	c.ucs = &useCases{
		grantEngine: engine,
		accessReads: reads,
		decide:      decide,
		reconstruct: accessUsecases.NewReconstructAccessUseCase(reads, c.ladder, c.policy, log),
		createOrder: paymentUsecases.NewCreateOrderUseCase(
			decide, reads, r.purchaseRepo, c.gateway, c.ladder, c.cfg.Payments.Currency, log.Named("orders"),
		),
		verifyPayment: paymentUsecases.NewVerifyPaymentUseCase(r.purchaseRepo, c.gateway, engine, c.txManager, log.Named("verify")),
		handleWebhook: handleWebhook,
	}
}

func (c *Container) initHandlers() {
	cfg := c.cfg
	log := c.log

	jwtSvc := auth.NewJWTService(cfg.Auth.JWT.Secret, cfg.Auth.JWT.Issuer, cfg.Auth.JWT.AccessExpMinutes)
	c.authMiddleware = middleware.NewAuthMiddleware(jwtSvc, log)
	c.rateLimiter = middleware.NewRateLimiter(c.redis, "payments", cfg.Server.PaymentRateLimit, time.Minute)

	providers := []string{c.gateway.Name()}
	if cfg.Payments.Provider != "" && cfg.Payments.Provider != c.gateway.Name() {
		providers = append(providers, cfg.Payments.Provider)
	}
	signatureHeader := cfg.Payments.SignatureHeader
	if signatureHeader == "" {
		signatureHeader = constants.HeaderProviderSignature
	}
	eventIDHeader := cfg.Payments.EventIDHeader
	if eventIDHeader == "" {
		eventIDHeader = constants.HeaderProviderEventID
	}

	c.hdlrs = &allHandlers{
		access:  handlers.NewAccessHandler(c.ucs.decide, c.ucs.reconstruct, c.ucs.accessReads, c.metrics, log),
		payment: handlers.NewPaymentHandler(c.ucs.createOrder, c.ucs.verifyPayment, c.metrics, log),
		webhook: handlers.NewWebhookHandler(c.ucs.handleWebhook, providers, signatureHeader, eventIDHeader, log),
		health:  handlers.NewHealthHandler(c.db, c.redis),
	}
}
