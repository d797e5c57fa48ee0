package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/core/analytics"
	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/core/audit"
	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/core/auth"
	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/core/credits"
	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/core/email"
	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/core/health"
	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/core/imagegen"
	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/core/jobs"
	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/core/payment"
	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/core/ratelimit"
	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/core/scheduler"
	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/core/transform"
	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/core/upload"
	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/shared/config"
	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/shared/database"
	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/shared/metrics"
	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/shared/utils"

	_ "github.com/MuhamadAgungGumelar/neurodecor-be/cmd/api/docs"
)

const auditRetention = 90 * 24 * time.Hour

// @title NeuroDecor API
// @version 2.0
// @description Room staging backend: accounts, credits, WayForPay payments and AI room transforms.
// @contact.name API Support
// @license.name MIT
// @host localhost:3007
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.LoadConfig()
	utils.InitLogger(cfg.Env)
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("Starting NeuroDecor backend")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db := database.NewDB(cfg.DatabaseURL, !cfg.IsProduction())
	defer db.Close()

	// Audit trail
	auditService := audit.NewService(db.GORM)

	// Auth
	userRepo := auth.NewRepository(db.GORM)
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.JWTExpiresIn)
	authOpts := []auth.Option{
		auth.WithAuditRecorder(auditService),
		auth.WithAdminEmails(cfg.AdminEmails),
	}
	if cfg.GoogleClientID != "" {
		authOpts = append(authOpts, auth.WithGoogleVerifier(auth.NewGoogleOAuthService(cfg.GoogleClientID)))
	}
	authService := auth.NewService(userRepo, jwtService, authOpts...)

	// Credits
	creditService := credits.NewService(credits.NewRepository(db.GORM), auditService)

	// Email receipts
	emailProvider, err := email.NewProviderFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize email provider")
	}
	emailService := email.NewService(emailProvider)
	log.Info().Str("provider", emailService.GetProviderName()).Msg("Email service ready")
	receipts := email.NewReceiptMailer(emailService, func(ctx context.Context, userID uuid.UUID) (string, error) {
		user, err := userRepo.GetUserByID(ctx, userID.String())
		if err != nil {
			return "", err
		}
		return user.Email, nil
	}, "NeuroDecor")

	// Payments
	gateway := payment.NewGateway(cfg)
	paymentService := payment.NewService(payment.NewRepository(db.GORM), gateway, payment.ServiceConfig{
		Currency:  cfg.Currency,
		PublicURL: cfg.PublicURL,
		Domain:    cfg.WayForPayDomain,
	}, auditService, receipts)
	log.Info().Str("mode", cfg.PaymentMode).Msg("Payment gateway ready")

	// Image generation and storage
	provider, err := imagegen.NewProvider(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize image provider")
	}
	log.Info().Str("provider", provider.Name()).Msg("Image provider ready")

	storage, err := upload.NewProviderFromConfig(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize upload provider")
	}
	uploadService := upload.NewService(storage)
	log.Info().Str("provider", uploadService.GetProviderName()).Msg("Upload provider ready")

	// Transform queue
	jobService := jobs.NewService(db.GORM)
	transformService := transform.NewService(provider, creditService, jobService, uploadService)
	jobService.RegisterWorker(jobs.WorkerConfig{
		Queue:        transform.Queue,
		Concurrency:  cfg.WorkerConcurrency,
		PollInterval: time.Second,
		Timeout:      3 * time.Minute,
	}, transform.NewJobHandler(provider, uploadService, creditService))
	if err := jobService.StartWorkers(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start transform workers")
	}
	defer jobService.StopWorkers()

	// Housekeeping
	sched := scheduler.NewScheduler(5 * time.Minute)
	mustAddTask(sched, "expire-payments", cfg.ExpirePaymentsCron, func(ctx context.Context) error {
		n, err := paymentService.ReconcileStale(ctx, cfg.PendingPaymentTTL)
		if n > 0 {
			log.Info().Int("count", n).Msg("Reconciled stale payments")
		}
		return err
	})
	mustAddTask(sched, "prune-jobs", cfg.PruneJobsCron, func(ctx context.Context) error {
		n, err := jobService.Cleanup(ctx, cfg.JobRetention)
		if n > 0 {
			log.Info().Int64("count", n).Msg("Pruned finished transform jobs")
		}
		return err
	})
	mustAddTask(sched, "recover-jobs", cfg.RecoverJobsCron, func(ctx context.Context) error {
		n, err := jobService.RecoverStalled(ctx, cfg.JobStallTimeout)
		if n > 0 {
			log.Warn().Int("count", n).Msg("Recovered stalled transform jobs")
		}
		return err
	})
	mustAddTask(sched, "prune-audit-logs", "0 4 * * *", func(ctx context.Context) error {
		_, err := auditService.DeleteOldLogs(ctx, auditRetention)
		return err
	})
	sched.Start()
	defer sched.Stop()

	// Rate limiting for generation endpoints
	limiter, closeLimiter, err := ratelimit.NewFromConfig(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize rate limiter")
	}
	defer closeLimiter()

	// Handlers
	authHandler := auth.NewHandler(authService)
	creditHandler := credits.NewHandler(creditService)
	paymentHandler := payment.NewHandler(paymentService)
	transformHandler := transform.NewHandler(transformService)
	auditHandler := audit.NewHandler(auditService)
	analyticsHandler := analytics.NewHandler(analytics.NewService(db.GORM))
	healthHandler := health.NewHandler(db, health.Services{
		Flux:     !cfg.FluxDemoMode(),
		Payments: paymentService.GatewayConfigured(),
		Provider: provider.Name(),
	}, cfg.Env, cfg.Port)

	app := fiber.New(fiber.Config{
		AppName:      "NeuroDecor API",
		ErrorHandler: utils.ErrorHandler,
		BodyLimit:    11 * 1024 * 1024,
	})

	allowOrigins := "*"
	if len(cfg.AllowedOrigins) > 0 {
		allowOrigins = strings.Join(cfg.AllowedOrigins, ",")
	}
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Admin-Key",
	}))
	app.Use(utils.RequestLogger())
	app.Use(metrics.Middleware())
	app.Use(audit.RequestContext())

	app.Get("/swagger/*", swagger.HandlerDefault)
	app.Get("/metrics", metrics.Handler())
	healthHandler.Register(app)
	if cfg.StaticDir == "" {
		app.Get("/", healthHandler.Root)
	}
	if cfg.UploadProvider == "local" {
		app.Static("/uploads", cfg.UploadDir)
	}

	requireAuth := auth.AuthMiddleware(authService)
	limit := ratelimit.Middleware(limiter, ratelimit.UserOrIP)

	// Auth routes
	authRoutes := app.Group("/api/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Post("/google", authHandler.LoginWithGoogle)
	authRoutes.Get("/me", requireAuth, authHandler.Me)

	// Credits
	app.Get("/api/credits", requireAuth, creditHandler.GetCredits)
	app.Post("/api/credits/deduct", requireAuth, creditHandler.DeductCredits)
	app.Get("/api/credits/history", requireAuth, creditHandler.History)

	// Payments
	app.Get("/api/products", paymentHandler.ListProducts)
	app.Post("/api/create-payment", requireAuth, paymentHandler.CreatePayment)
	app.Post("/api/payment-callback", paymentHandler.PaymentCallback)
	app.Get("/api/payments", requireAuth, paymentHandler.ListPayments)
	app.Get("/api/payments/:orderReference", requireAuth, paymentHandler.GetPayment)
	app.Get("/api/payments/:orderReference/receipt", requireAuth, paymentHandler.GetReceipt)

	// Transforms
	app.Post("/transform", requireAuth, limit, transformHandler.Transform)
	app.Post("/api/transform/jobs", requireAuth, limit, transformHandler.SubmitJob)
	app.Get("/api/transform/jobs", requireAuth, transformHandler.ListJobs)
	app.Get("/api/transform/jobs/:id", requireAuth, transformHandler.GetJob)
	app.Delete("/api/transform/jobs/:id", requireAuth, transformHandler.CancelJob)

	// Admin
	admin := app.Group("/api/admin", auth.AdminMiddleware(authService, cfg.AdminAPIKey))
	admin.Get("/audit", auditHandler.GetLogs)
	admin.Get("/audit/stats", auditHandler.GetStats)
	admin.Get("/stats", analyticsHandler.GetDashboard)
	admin.Get("/export/payments", analyticsHandler.ExportPayments)
	admin.Get("/jobs/stats", jobs.NewHandler(jobService).GetStats)
	admin.Post("/users/:id/credits", creditHandler.AdminAddCredits)

	if cfg.StaticDir != "" {
		serveSPA(app, cfg.StaticDir)
	}

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error().Err(err).Msg("Server stopped")
			stop()
		}
	}()
	log.Info().Msgf("Swagger UI: http://localhost:%s/swagger/", cfg.Port)

	<-ctx.Done()
	log.Info().Msg("Shutting down...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("Forced shutdown")
	}
}

func mustAddTask(s *scheduler.Scheduler, name, spec string, task scheduler.Task) {
	if err := s.AddTask(name, spec, task); err != nil {
		log.Fatal().Err(err).Str("task", name).Msg("Failed to schedule task")
	}
}

// serveSPA serves the built frontend and falls back to index.html for
// client-side routes.
func serveSPA(app *fiber.App, dir string) {
	index := filepath.Join(dir, "index.html")
	app.Static("/", dir)
	app.Get("/*", func(c *fiber.Ctx) error {
		if strings.HasPrefix(c.Path(), "/api/") {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
		}
		return c.SendFile(index)
	})
}
