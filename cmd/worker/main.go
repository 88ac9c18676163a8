package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jwalitptl/healthpoint-api/internal/config"
	"github.com/jwalitptl/healthpoint-api/internal/email"
	"github.com/jwalitptl/healthpoint-api/internal/model"
	"github.com/jwalitptl/healthpoint-api/internal/service/notification"
	"github.com/jwalitptl/healthpoint-api/pkg/logger"
	"github.com/jwalitptl/healthpoint-api/pkg/messaging"
	"github.com/jwalitptl/healthpoint-api/pkg/messaging/redis"
)

// The worker consumes appointment events published by the API's outbox
// processor and sends the patient notifications.

var handledMessages = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "healthpoint",
		Subsystem: "worker",
		Name:      "messages_handled_total",
		Help:      "Messages handled by type and status",
	},
	[]string{"type", "status"},
)

func instrument(msgType string, fn messaging.HandlerFunc) messaging.HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) error {
		err := fn(ctx, payload)
		status := "ok"
		if err != nil {
			status = "error"
		}
		handledMessages.WithLabelValues(msgType, status).Inc()
		return err
	}
}

func setupHealthCheck(log *logger.Logger, registry *prometheus.Registry, ping func(context.Context) error) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.GET("/health/live", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	engine.GET("/health/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := ping(ctx); err != nil {
			c.String(http.StatusServiceUnavailable, err.Error())
			return
		}
		c.Status(http.StatusOK)
	})
	engine.GET("/health/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	srv := &http.Server{Addr: ":8081", Handler: engine, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(err, "Health check server failed")
			os.Exit(1)
		}
	}()
	return srv
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewLogger(nil).Fatal(err, "Failed to load config")
	}
	log := logger.NewLogger(cfg.ToLoggerConfig()).WithFields(map[string]interface{}{"component": "worker"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := redis.NewClient(ctx, cfg.ToBrokerConfig())
	if err != nil {
		log.Fatal(err, "Failed to connect to Redis")
	}
	defer client.Close()

	broker := redis.NewRedisBroker(client, log.Zerolog())
	defer broker.Close()

	mail := email.New(email.Config{
		Host:     cfg.Email.Host,
		Port:     cfg.Email.Port,
		Username: cfg.Email.Username,
		Password: cfg.Email.Password,
		From:     cfg.Email.From,
	}, log)
	notifier := notification.NewService(mail)

	dispatcher := messaging.NewDispatcher(broker, log.Zerolog())
	dispatcher.Handle(model.EventAppointmentBooked, instrument(model.EventAppointmentBooked, notifier.HandleBooked))
	dispatcher.Handle(model.EventAppointmentCancelled, instrument(model.EventAppointmentCancelled, notifier.HandleCancelled))

	registry := prometheus.NewRegistry()
	registry.MustRegister(handledMessages)
	health := setupHealthCheck(log, registry, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Shutting down...")
		cancel()
	}()

	log.Info("Worker started", "channel", cfg.Redis.Channel)
	if err := dispatcher.Run(ctx, cfg.Redis.Channel); err != nil {
		log.Error(err, "Dispatcher stopped")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = health.Shutdown(shutdownCtx)
}
