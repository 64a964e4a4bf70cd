package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xavierca1/field-dispatch/internal/config"
	"github.com/xavierca1/field-dispatch/internal/infra/cache"
	"github.com/xavierca1/field-dispatch/internal/infra/database"
	"github.com/xavierca1/field-dispatch/internal/infra/http/handlers"
	"github.com/xavierca1/field-dispatch/internal/infra/http/middleware"
	"github.com/xavierca1/field-dispatch/internal/infra/integration/sms"
	"github.com/xavierca1/field-dispatch/internal/infra/mail"
	"github.com/xavierca1/field-dispatch/internal/infra/queue"
	"github.com/xavierca1/field-dispatch/internal/infra/worker"
	"github.com/xavierca1/field-dispatch/internal/logger"
	"github.com/xavierca1/field-dispatch/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger depends on ENV, which lives in the config we failed to load
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDBConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("connect to postgres", zap.Error(err))
	}
	defer db.Close()

	if cfg.DBAutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatal("migrate", zap.Error(err))
		}
		log.Info("schema migrated")
	}

	rabbitMQ, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		log.Fatal("connect to rabbitmq", zap.Error(err))
	}
	defer rabbitMQ.Close()

	// 1. Repositories
	techRepo := database.NewTechnicianRepository(db)
	leadRepo := database.NewLeadRepository(db)
	scheduleRepo := database.NewScheduleRepository(db)
	uow := database.NewUnitOfWork(db)

	// 2. Cache (optional)
	var (
		weekCache   usecase.WeekViewCache
		redisHealth handlers.Pinger
	)
	if cfg.RedisAddr != "" {
		redisClient := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer redisClient.Close()
		weekCache = cache.NewWeekViewCache(redisClient, cfg.WeekCacheTTL)
		redisHealth = cache.Pinger{Client: redisClient}
	}

	// 3. Adapters
	producer := queue.NewProducer(rabbitMQ.Ch)

	var smsSender usecase.SMSSender
	if cfg.SMSBaseURL != "" {
		smsSender = sms.NewClient(cfg.SMSBaseURL, cfg.SMSAPIKey, cfg.SMSFrom)
	}
	var emailSender usecase.EmailService
	if cfg.SMTPHost != "" {
		emailSender = mail.NewEmailSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	}

	// 4. Use cases
	notifier := usecase.NewNotificationScheduler(cfg.NotifyLeadTime, cfg.Location, scheduleRepo, producer, log)
	ledger := usecase.NewScheduleLedger(uow, scheduleRepo, notifier, weekCache, log)
	registry := usecase.NewTechnicianRegistry(techRepo, weekCache, cfg.Location, log)
	leads := usecase.NewLeadService(leadRepo, weekCache, log)
	weekView := usecase.NewWeeklyViewBuilder(ledger, registry, leadRepo, cfg.Location, log)
	delivery := usecase.NewNotificationDelivery(scheduleRepo, ledger, smsSender, emailSender, cfg.NotifyCustomer, log)

	// 5. Workers
	consumeCh, err := rabbitMQ.Conn.Channel()
	if err != nil {
		log.Fatal("open consumer channel", zap.Error(err))
	}
	if err := consumeCh.Qos(10, 0, false); err != nil {
		log.Fatal("set consumer prefetch", zap.Error(err))
	}
	consumer := queue.NewWorker(consumeCh, delivery, log)
	go func() {
		if err := consumer.Start(ctx, queue.QueueName); err != nil {
			log.Error("notification consumer stopped", zap.Error(err))
		}
	}()

	dispatcher := worker.NewNotificationDispatchWorker(notifier, cfg.DispatchInterval, log)
	go dispatcher.Start(ctx)

	// 6. Handlers
	techHandler := handlers.NewTechnicianHandler(registry, log)
	scheduleHandler := handlers.NewScheduleHandler(ledger, weekView, cfg.Location, log)
	leadHandler := handlers.NewLeadHandler(leads, log)
	healthHandler := handlers.NewHealthHandler(db, rabbitMQ, redisHealth)
	contactLimiter := middleware.NewRateLimiter(cfg.ContactRatePerMin)

	// 7. Router
	r := newRouter(cfg, log, routes{
		technicians: techHandler,
		schedules:   scheduleHandler,
		leads:       leadHandler,
		health:      healthHandler,
		limiter:     contactLimiter,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("field dispatch listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
	consumeCh.Close()
}

type routes struct {
	technicians *handlers.TechnicianHandler
	schedules   *handlers.ScheduleHandler
	leads       *handlers.LeadHandler
	health      *handlers.HealthHandler
	limiter     *middleware.RateLimiter
}

func newRouter(cfg *config.Config, log *zap.Logger, h routes) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	if cfg.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.RequestLogger(log))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	// no CORS_ORIGINS means same-origin only; go-chi/cors treats an empty list as "*"
	if origins := cfg.AllowedOrigins(); len(origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", middleware.AdminTokenHeader},
			AllowCredentials: cfg.AllowCredentials(),
		}))
	}

	r.Get("/health", h.health.Handle)
	r.Handle("/metrics", promhttp.Handler())

	r.With(h.limiter.Handler).Post("/contact", h.leads.Capture)

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.AdminAuth(cfg.AdminSecret))
		r.Use(chimw.Timeout(30 * time.Second))

		r.Get("/technicians", h.technicians.List)
		r.Post("/technicians", h.technicians.Create)
		r.Get("/technicians/{id}", h.technicians.Get)
		r.Patch("/technicians/{id}", h.technicians.Update)
		r.Delete("/technicians/{id}", h.technicians.Deactivate)

		r.Post("/schedules", h.schedules.Create)
		r.Get("/schedules/week", h.schedules.Week)
		r.Patch("/schedules/{id}", h.schedules.Patch)

		r.Get("/leads", h.leads.List)
		r.Patch("/leads/{id}/status", h.leads.UpdateStatus)
	})

	return r
}
