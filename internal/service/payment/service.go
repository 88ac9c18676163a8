// Package payment settles appointment fees through the card gateway.
package payment

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/jwalitptl/healthpoint-api/internal/repository"
	apperrors "github.com/jwalitptl/healthpoint-api/pkg/errors"
	"github.com/jwalitptl/healthpoint-api/pkg/logger"
	"github.com/jwalitptl/healthpoint-api/pkg/metrics"
	"github.com/jwalitptl/healthpoint-api/pkg/payment"
)

type Service struct {
	appointments repository.AppointmentRepository
	gateway      payment.Gateway
	currency     string
	metrics      *metrics.Metrics
	logger       *logger.Logger
}

func NewService(appointments repository.AppointmentRepository, gateway payment.Gateway, currency string, m *metrics.Metrics, log *logger.Logger) *Service {
	if currency == "" {
		currency = "INR"
	}
	return &Service{
		appointments: appointments,
		gateway:      gateway,
		currency:     currency,
		metrics:      m,
		logger:       log.WithFields(map[string]interface{}{"component": "payment"}),
	}
}

// Pay opens a gateway order for the appointment fee. The receipt is the
// appointment id so Verify can find the appointment again.
func (s *Service) Pay(ctx context.Context, appointmentID, patientID uuid.UUID) (*payment.Order, error) {
	appt, err := s.appointments.Get(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, apperrors.Internal(err)
	}
	if appt.UserID != patientID {
		return nil, apperrors.Unauthorized("unauthorized action")
	}
	if appt.Cancelled {
		return nil, apperrors.BadRequest("appointment cancelled or not found", nil)
	}
	if appt.Payment {
		return nil, apperrors.BadRequest("appointment already paid", nil)
	}

	order, err := s.gateway.CreateOrder(ctx, minorUnits(appt.Amount), s.currency, appt.ID.String())
	s.observe("create_order", err)
	if err != nil {
		return nil, s.gatewayError("could not create payment order", err)
	}
	return order, nil
}

// Verify marks the receipt's appointment paid when the gateway reports the
// order as paid.
func (s *Service) Verify(ctx context.Context, orderID string) error {
	order, err := s.gateway.FetchOrder(ctx, orderID)
	s.observe("fetch_order", err)
	if err != nil {
		return s.gatewayError("could not verify payment", err)
	}
	if order.Status != payment.OrderStatusPaid {
		return apperrors.PaymentFailed("payment failed", fmt.Errorf("order %s status %q", order.ID, order.Status))
	}

	id, err := uuid.Parse(order.Receipt)
	if err != nil {
		return apperrors.PaymentFailed("payment receipt does not name an appointment", err)
	}
	if err := s.appointments.MarkPaid(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("appointment", err)
		}
		return apperrors.Internal(fmt.Errorf("mark paid: %w", err))
	}
	s.logger.Info("appointment paid", "appointment_id", id.String(), "order_id", order.ID)
	return nil
}

func (s *Service) observe(op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.PaymentCalls.WithLabelValues(op, status).Inc()
}

func (s *Service) gatewayError(msg string, err error) error {
	s.logger.Error(err, msg)
	if errors.Is(err, payment.ErrGatewayUnavailable) {
		return apperrors.Unavailable("payment gateway unavailable")
	}
	return apperrors.PaymentFailed(msg, err)
}

func minorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
