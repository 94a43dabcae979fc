package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"helpdesk_backend/internal/ai"
	"helpdesk_backend/internal/auth"
	"helpdesk_backend/internal/config"
	"helpdesk_backend/internal/email"
	"helpdesk_backend/internal/events"
	"helpdesk_backend/internal/handlers"
	"helpdesk_backend/internal/logger"
	"helpdesk_backend/internal/middleware"
	"helpdesk_backend/internal/models"
	"helpdesk_backend/internal/repositories"
	"helpdesk_backend/internal/routes"
	"helpdesk_backend/internal/services"
	"helpdesk_backend/internal/services/payment"
	"helpdesk_backend/internal/validator"
	"helpdesk_backend/internal/workers"
)

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	gormDB, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatal("Failed to get *sql.DB from GORM", "error", err)
	}
	if err = sqlDB.Ping(); err != nil {
		logger.Fatal("Database unavailable", "error", err)
	}
	logger.Info("Database connected")

	if err := autoMigrate(gormDB); err != nil {
		logger.Fatal("Migration failed", "error", err)
	}

	if err := seedFirstAdmin(gormDB, cfg); err != nil {
		logger.Fatal("Failed to seed first admin user", "error", err)
	}

	ginRouter := SetupRouter(cfg, gormDB)

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info(fmt.Sprintf("Server starting on %s", address))
	if err := ginRouter.Run(address); err != nil {
		logger.Fatal("Server startup error", "error", err)
	}
}

func SetupRouter(cfg *config.Config, gormDB *gorm.DB) *gin.Engine {
	container := initializeServices(cfg, gormDB)

	v := validator.New()
	base := handlers.NewBaseHandler(v)
	appHandlers := &handlers.AppHandlers{
		Auth:     handlers.NewAuthHandler(base, container.AuthService),
		Tickets:  handlers.NewTicketHandler(base, container.TicketService),
		Payments: handlers.NewPaymentHandler(base, container.PaymentService),
	}

	ginRouter := initializeGinRouter(cfg)
	authed := middleware.AuthMiddleware(container.TokenIssuer)
	routes.RegisterRoutes(ginRouter, appHandlers, authed)

	return ginRouter
}

// ServiceContainer holds the wired service graph.
type ServiceContainer struct {
	AuthService    services.AuthService
	TicketService  services.TicketService
	PaymentService services.PaymentService
	TokenIssuer    *auth.TokenIssuer
	Dispatcher     events.Dispatcher
}

func initializeServices(cfg *config.Config, gormDB *gorm.DB) *ServiceContainer {
	userRepo := repositories.NewUserRepository(gormDB)
	ticketRepo := repositories.NewTicketRepository(gormDB)
	paymentRepo := repositories.NewPaymentRepository(gormDB)

	issuer := auth.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.TTL)

	var emailProvider email.Provider
	if cfg.Email.SMTPHost != "" {
		emailProvider = email.NewSMTPProvider(
			cfg.Email.SMTPHost, cfg.Email.SMTPPort,
			cfg.Email.SMTPUsername, cfg.Email.SMTPPassword,
			cfg.Email.FromEmail, cfg.Email.FromName,
		)
	} else if !cfg.IsProduction() {
		logger.Warn("SMTP not configured, using mock email provider")
		emailProvider = &MockEmailProvider{}
	}

	var analyzer ai.Analyzer
	if cfg.AI.APIKey != "" {
		analyzer = ai.NewGeminiAnalyzer(cfg.AI.APIKey, cfg.AI.Model)
	} else {
		logger.Warn("AI key not configured, tickets get default analysis")
	}

	gateway := buildGateway(cfg)

	authService := services.NewAuthService(
		userRepo, issuer, emailProvider,
		cfg.Frontend.URL, cfg.Signup.CreditGrant,
		!cfg.IsProduction() && cfg.DevExposeResetLink,
	)
	ticketService := services.NewTicketService(ticketRepo, userRepo, analyzer, emailProvider)
	paymentService := services.NewPaymentService(paymentRepo, userRepo, gateway, services.PaymentSettings{
		AmountINR:     cfg.Payments.AmountINR,
		Credits:       cfg.Payments.Credits,
		PlanID:        cfg.Payments.PlanID,
		WebhookSecret: cfg.Payments.WebhookSecret,
		Mock:          cfg.Payments.Mode == "mock",
	})

	dispatcher := buildDispatcher(cfg, ticketService, authService)
	ticketService.SetDispatcher(dispatcher)
	authService.SetDispatcher(dispatcher)

	return &ServiceContainer{
		AuthService:    authService,
		TicketService:  ticketService,
		PaymentService: paymentService,
		TokenIssuer:    issuer,
		Dispatcher:     dispatcher,
	}
}

// buildGateway selects the payment backend. Mock mode must be explicit;
// placeholder credentials leave the gateway unconfigured rather than
// silently degrading to mock.
func buildGateway(cfg *config.Config) payment.Gateway {
	if cfg.Payments.Mode == "mock" {
		logger.Warn("Payment gateway running in mock mode")
		return payment.NewMockGateway()
	}

	gateway, err := payment.NewRazorpayGateway(cfg.Payments.KeyID, cfg.Payments.KeySecret)
	if err != nil {
		logger.Warn("Payment gateway not configured, order creation disabled", "error", err)
		return nil
	}
	return gateway
}

// buildDispatcher connects to the broker and starts the consumer; without a
// broker the same handlers run inline at dispatch time.
func buildDispatcher(cfg *config.Config, ticketService services.TicketService, authService services.AuthService) events.Dispatcher {
	if cfg.Events.AMQPURL != "" {
		amqpDispatcher, err := events.NewAMQPDispatcher(cfg.Events.AMQPURL)
		if err != nil {
			logger.WithError(err).Warn("event broker unreachable, falling back to inline dispatch")
		} else {
			worker := workers.NewEventWorker(amqpDispatcher, ticketService, authService)
			if err := worker.Start(context.Background()); err != nil {
				logger.WithError(err).Error("failed to start event worker, falling back to inline dispatch")
				amqpDispatcher.Close()
			} else {
				return amqpDispatcher
			}
		}
	}

	worker := workers.NewEventWorker(nil, ticketService, authService)
	return events.NewSyncDispatcher(worker.Handlers())
}

func initializeGinRouter(cfg *config.Config) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.CORS.AllowedOrigins))
	router.Use(middleware.RateLimit(middleware.NewRateLimiter(20, 40)))
	return router
}

func autoMigrate(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return err
	}
	return db.AutoMigrate(
		&models.User{},
		&models.ResolvedTicketRecord{},
		&models.PaymentRecord{},
		&models.Ticket{},
		&models.Payment{},
	)
}

// seedFirstAdmin guarantees at least one admin account exists so the role
// management endpoints are reachable on a fresh install.
func seedFirstAdmin(db *gorm.DB, cfg *config.Config) error {
	if cfg.FirstAdminEmail == "" || cfg.FirstAdminPassword == "" {
		return nil
	}

	var count int64
	if err := db.Model(&models.User{}).Where("role = ?", models.UserRoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := auth.HashPassword(cfg.FirstAdminPassword)
	if err != nil {
		return err
	}

	admin := &models.User{
		Email:            cfg.FirstAdminEmail,
		PasswordHash:     hash,
		Role:             models.UserRoleAdmin,
		CreditsRemaining: cfg.Signup.CreditGrant,
	}
	admin.SetSkills(nil)
	if err := db.Create(admin).Error; err != nil {
		return err
	}
	logger.Info("Seeded first admin user", "email", cfg.FirstAdminEmail)
	return nil
}
