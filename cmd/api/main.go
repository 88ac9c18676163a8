package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/healthpoint-api/internal/config"
	"github.com/jwalitptl/healthpoint-api/internal/email"
	adminhandler "github.com/jwalitptl/healthpoint-api/internal/handler/admin"
	doctorhandler "github.com/jwalitptl/healthpoint-api/internal/handler/doctor"
	"github.com/jwalitptl/healthpoint-api/internal/handler/health"
	patienthandler "github.com/jwalitptl/healthpoint-api/internal/handler/patient"
	"github.com/jwalitptl/healthpoint-api/internal/middleware"
	"github.com/jwalitptl/healthpoint-api/internal/repository"
	"github.com/jwalitptl/healthpoint-api/internal/repository/memory"
	"github.com/jwalitptl/healthpoint-api/internal/repository/postgres"
	redisrepo "github.com/jwalitptl/healthpoint-api/internal/repository/redis"
	"github.com/jwalitptl/healthpoint-api/internal/router"
	adminService "github.com/jwalitptl/healthpoint-api/internal/service/admin"
	bookingService "github.com/jwalitptl/healthpoint-api/internal/service/booking"
	doctorService "github.com/jwalitptl/healthpoint-api/internal/service/doctor"
	eventService "github.com/jwalitptl/healthpoint-api/internal/service/event"
	"github.com/jwalitptl/healthpoint-api/internal/service/notification"
	patientService "github.com/jwalitptl/healthpoint-api/internal/service/patient"
	paymentService "github.com/jwalitptl/healthpoint-api/internal/service/payment"
	internalworker "github.com/jwalitptl/healthpoint-api/internal/worker"
	"github.com/jwalitptl/healthpoint-api/pkg/auth"
	"github.com/jwalitptl/healthpoint-api/pkg/logger"
	"github.com/jwalitptl/healthpoint-api/pkg/media"
	"github.com/jwalitptl/healthpoint-api/pkg/messaging"
	"github.com/jwalitptl/healthpoint-api/pkg/messaging/redis"
	"github.com/jwalitptl/healthpoint-api/pkg/metrics"
	"github.com/jwalitptl/healthpoint-api/pkg/payment"
	"github.com/jwalitptl/healthpoint-api/pkg/security"
	"github.com/jwalitptl/healthpoint-api/pkg/worker"
)

// stores is the set of repositories the services run on.
type stores struct {
	doctors      repository.DoctorRepository
	patients     repository.PatientRepository
	appointments repository.AppointmentRepository
	ledger       repository.SlotLedger
	outbox       repository.OutboxRepository
	checks       map[string]health.Pinger
	closers      []func() error
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
}

type redisPinger struct {
	client *goredis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func openStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (*stores, *goredis.Client, error) {
	s := &stores{checks: make(map[string]health.Pinger)}

	switch cfg.Store.Driver {
	case "postgres":
		db, err := postgres.NewDB(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		s.closers = append(s.closers, db.Close)

		if cfg.Store.Migrate {
			applied, err := postgres.NewMigrator(db).Up(ctx)
			if err != nil {
				s.Close()
				return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
			}
			log.Info("Migrations applied", "count", applied)
		}

		pg := postgres.NewStore(db)
		s.doctors, s.patients, s.appointments = pg.Doctors, pg.Patients, pg.Appointments
		s.ledger, s.outbox = pg.Ledger, pg.Outbox
		s.checks["postgres"] = pg
	default:
		s.doctors = memory.NewDoctorRepository()
		s.patients = memory.NewPatientRepository()
		s.appointments = memory.NewAppointmentRepository()
		s.ledger = memory.NewLedger()
		s.outbox = memory.NewOutboxRepository()
	}

	var client *goredis.Client
	if cfg.Store.Ledger == "redis" || (cfg.Outbox.Enabled && cfg.Outbox.Broker == "redis") {
		c, err := redis.NewClient(ctx, cfg.ToBrokerConfig())
		if err != nil {
			s.Close()
			return nil, nil, err
		}
		client = c
		s.closers = append(s.closers, client.Close)
		s.checks["redis"] = redisPinger{client: client}
	}
	if cfg.Store.Ledger == "redis" {
		s.ledger = redisrepo.NewSlotLedger(client, "healthpoint")
	}

	return s, client, nil
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewLogger(nil).Fatal(err, "failed to load configuration")
	}

	log := logger.NewLogger(cfg.ToLoggerConfig())

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal(err, "invalid calendar timezone")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(registry, "healthpoint")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, redisClient, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal(err, "failed to open stores")
	}
	defer st.Close()

	store, err := media.NewLocalStore(cfg.Media.Dir, cfg.Media.BaseURL, int64(cfg.Media.MaxSizeMB)<<20)
	if err != nil {
		log.Fatal(err, "failed to prepare media directory")
	}

	tokens := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	hasher := security.NewBcryptHasher(bcrypt.DefaultCost)
	events := eventService.NewEventService(st.outbox)
	gateway := payment.WithBreaker("razorpay", payment.NewRazorpay(cfg.Payment.KeyID, cfg.Payment.KeySecret))

	bookingSvc := bookingService.NewService(st.doctors, st.patients, st.appointments, st.ledger, events, m, log,
		bookingService.Config{ConflictRetries: cfg.Booking.ConflictRetries, Location: loc})
	patientSvc := patientService.NewService(st.patients, st.appointments, hasher, tokens, store, log)
	doctorSvc := doctorService.NewService(st.doctors, st.ledger, hasher, tokens, store, log,
		doctorService.Config{DirectoryTTL: cfg.Cache.DirectoryTTL, Location: loc})
	adminSvc := adminService.NewService(st.doctors, st.patients, st.appointments, tokens,
		adminService.Credentials{Email: cfg.Admin.Email, Password: cfg.Admin.Password})
	paymentSvc := paymentService.NewService(st.appointments, gateway, cfg.Payment.Currency, m, log)

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.CORS.AllowedOrigins

	r := router.NewRouter(
		middleware.NewAuthMiddleware(tokens),
		health.NewHandler(st.checks, registry),
		router.RouterConfig{
			RateLimit:      rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:      cfg.RateLimit.Burst,
			CORSConfig:     corsConfig,
			RequestTimeout: cfg.RequestTimeout(),
			MaxBodySize:    cfg.MaxBodySize(),
			MaxUploadSize:  int64(cfg.Media.MaxSizeMB) << 20,
			MediaDir:       cfg.Media.Dir,
			MediaURL:       cfg.Media.BaseURL,
			Metrics:        m,
		},
		patienthandler.NewHandler(patientSvc, bookingSvc, paymentSvc),
		doctorhandler.NewHandler(doctorSvc, bookingSvc, int(cfg.Cache.DirectoryTTL.Seconds())),
		adminhandler.NewHandler(adminSvc, doctorSvc, bookingSvc),
	)
	r.Setup()

	if cfg.Outbox.Enabled {
		if err := startOutbox(ctx, cfg, st, redisClient, log, m); err != nil {
			log.Fatal(err, "failed to start outbox processor")
		}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Starting server", "addr", srv.Addr, "store", cfg.Store.Driver, "ledger", cfg.Store.Ledger)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err, "failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "server forced to shutdown")
	}

	log.Info("Server exited properly")
}

// startOutbox relays outbox events to the configured broker. With the memory
// broker the notification handlers also run in this process.
func startOutbox(ctx context.Context, cfg *config.Config, st *stores, client *goredis.Client, log *logger.Logger, m *metrics.Metrics) error {
	var broker messaging.Broker
	if cfg.Outbox.Broker == "redis" {
		broker = redis.NewRedisBroker(client, log.Zerolog())
	} else {
		broker = messaging.NewMemoryBroker()
		dispatcher := messaging.NewDispatcher(broker, log.Zerolog())
		notification.NewService(email.New(emailConfig(cfg), log)).Register(dispatcher)
		// subscribe before the processor's first drain publishes anything
		if _, err := dispatcher.Start(ctx, cfg.Redis.Channel); err != nil {
			return err
		}
	}
	st.closers = append(st.closers, broker.Close)

	processor, err := worker.NewOutboxProcessor(st.outbox, broker, cfg.ToWorkerConfig(), log, m)
	if err != nil {
		return err
	}
	go processor.Start(ctx)

	if cfg.Outbox.RetentionDays > 0 && cfg.Outbox.CleanupEvery > 0 {
		cleanup := internalworker.NewOutboxCleanupWorker(st.outbox, cfg.Outbox.RetentionDays, cfg.Outbox.CleanupEvery, log, m)
		go cleanup.Start(ctx)
	}
	return nil
}

func emailConfig(cfg *config.Config) email.Config {
	return email.Config{
		Host:     cfg.Email.Host,
		Port:     cfg.Email.Port,
		Username: cfg.Email.Username,
		Password: cfg.Email.Password,
		From:     cfg.Email.From,
	}
}
