// Package booking reserves and releases doctor slots and keeps the slot
// ledger consistent with the appointment records.
//
// Every claim in the ledger is owned by exactly one appointment. A booking
// claims first and writes the appointment second, releasing the claim if the
// write fails. A cancellation flags the appointment first and releases the
// claim second. Either way a partial failure leaves a slot claimed rather
// than double-booked.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/healthpoint-api/internal/model"
	"github.com/jwalitptl/healthpoint-api/internal/repository"
	"github.com/jwalitptl/healthpoint-api/internal/service/calendar"
	"github.com/jwalitptl/healthpoint-api/internal/service/event"
	"github.com/jwalitptl/healthpoint-api/pkg/auth"
	apperrors "github.com/jwalitptl/healthpoint-api/pkg/errors"
	"github.com/jwalitptl/healthpoint-api/pkg/logger"
	"github.com/jwalitptl/healthpoint-api/pkg/metrics"
)

const (
	msgDoctorUnavailable = "doctor not available"
	msgSlotUnavailable   = "slot not available"
	msgSlotTaken         = "slot was taken by another booking"
	msgNotOwner          = "unauthorized action"

	// DetailSuggestedSlot names the conflict detail carrying the next free label.
	DetailSuggestedSlot = "suggested_slot"
)

// Actor is the caller of a cancellation.
type Actor struct {
	ID   uuid.UUID
	Role auth.Role
}

type Config struct {
	// ConflictRetries is how many extra attempts a booking makes after losing
	// a claim race. Zero fails on the first conflict.
	ConflictRetries int
	// Location is the clinic timezone used to validate day-keys.
	Location *time.Location
}

type Service struct {
	doctors      repository.DoctorRepository
	patients     repository.PatientRepository
	appointments repository.AppointmentRepository
	ledger       repository.SlotLedger
	events       event.Emitter
	metrics      *metrics.Metrics
	logger       *logger.Logger
	cfg          Config
	newID        func() uuid.UUID
	now          func() time.Time
}

func NewService(
	doctors repository.DoctorRepository,
	patients repository.PatientRepository,
	appointments repository.AppointmentRepository,
	ledger repository.SlotLedger,
	events event.Emitter,
	m *metrics.Metrics,
	log *logger.Logger,
	cfg Config,
) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if events == nil {
		events = event.Nop{}
	}
	return &Service{
		doctors:      doctors,
		patients:     patients,
		appointments: appointments,
		ledger:       ledger,
		events:       events,
		metrics:      m,
		logger:       log.WithFields(map[string]interface{}{"component": "booking"}),
		cfg:          cfg,
		newID:        uuid.New,
		now:          time.Now,
	}
}

// Book reserves slotTime on slotDate with the doctor for the patient.
func (s *Service) Book(ctx context.Context, patientID, doctorID uuid.UUID, slotDate, slotTime string) (*model.Appointment, error) {
	if _, err := model.ParseDayKey(slotDate, s.cfg.Location); err != nil {
		return nil, apperrors.BadRequest("invalid slotDate", err)
	}
	if _, err := model.ParseTimeLabel(slotTime); err != nil {
		return nil, apperrors.BadRequest("invalid slotTime", err)
	}

	for attempt := 0; ; attempt++ {
		appt, err := s.attempt(ctx, patientID, doctorID, slotDate, slotTime)
		if err == nil {
			s.metrics.Bookings.WithLabelValues(metrics.OutcomeBooked).Inc()
			return appt, nil
		}
		if !apperrors.Is(err, apperrors.ErrConflict) || attempt >= s.cfg.ConflictRetries {
			s.metrics.Bookings.WithLabelValues(outcome(err)).Inc()
			return nil, err
		}
		s.logger.Debug("retrying booking after lost claim",
			"doctor_id", doctorID.String(), "slot_date", slotDate, "slot_time", slotTime, "attempt", attempt+1)
	}
}

func outcome(err error) string {
	switch apperrors.CodeOf(err) {
	case apperrors.ErrUnavailable:
		return metrics.OutcomeUnavailable
	case apperrors.ErrConflict:
		return metrics.OutcomeConflict
	default:
		return metrics.OutcomeFailed
	}
}

func (s *Service) attempt(ctx context.Context, patientID, doctorID uuid.UUID, slotDate, slotTime string) (*model.Appointment, error) {
	doctor, err := s.doctors.Get(ctx, doctorID)
	if err != nil {
		return nil, lookupError("doctor", err)
	}
	if !doctor.Available {
		return nil, apperrors.Unavailable(msgDoctorUnavailable)
	}

	held, err := s.ledger.IsClaimed(ctx, doctorID, slotDate, slotTime)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("read ledger: %w", err))
	}
	if held {
		return nil, apperrors.Unavailable(msgSlotUnavailable)
	}

	patient, err := s.patients.Get(ctx, patientID)
	if err != nil {
		return nil, lookupError("patient", err)
	}

	appt := &model.Appointment{
		ID:       s.newID(),
		UserID:   patient.ID,
		DocID:    doctor.ID,
		SlotDate: slotDate,
		SlotTime: slotTime,
		UserData: patient.Snapshot(),
		DocData:  doctor.Snapshot(),
		Amount:   doctor.Fees,
		Date:     s.now(),
	}
	claim := appt.Claim()

	won, err := s.ledger.Claim(ctx, claim)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("claim slot: %w", err))
	}
	if !won {
		s.metrics.LedgerConflict.Inc()
		return nil, s.conflict(ctx, doctorID, slotDate, slotTime)
	}

	if err := s.appointments.Create(ctx, appt); err != nil {
		s.compensate(ctx, claim, err)
		return nil, apperrors.Internal(fmt.Errorf("create appointment: %w", err))
	}

	s.emit(ctx, model.EventAppointmentBooked, appointmentEvent(appt, ""))
	return appt, nil
}

// conflict builds the lost-race error, suggesting the next free label of the
// same day when there is one.
func (s *Service) conflict(ctx context.Context, doctorID uuid.UUID, slotDate, slotTime string) error {
	err := apperrors.Conflict(msgSlotTaken)
	booked, snapErr := s.ledger.Snapshot(ctx, doctorID)
	if snapErr != nil {
		s.logger.Warn("could not compute suggested slot", "doctor_id", doctorID.String(), "error", snapErr.Error())
		return err
	}
	if next := calendar.NextFree(booked, s.now().In(s.cfg.Location), slotDate, slotTime); next != "" {
		err = err.WithDetail(DetailSuggestedSlot, next)
	}
	return err
}

// compensate releases a claim whose appointment could not be written. It
// runs even if the request context is already cancelled.
func (s *Service) compensate(ctx context.Context, claim model.SlotClaim, cause error) {
	released, err := s.ledger.Release(context.WithoutCancel(ctx), claim)
	switch {
	case err != nil:
		s.metrics.Compensations.WithLabelValues("error").Inc()
		s.logger.Error(err, "failed to release claim after appointment write failure",
			"doctor_id", claim.DoctorID.String(),
			"slot_date", claim.SlotDate,
			"slot_time", claim.SlotTime,
			"appointment_id", claim.AppointmentID.String(),
			"cause", cause.Error())
	case !released:
		s.metrics.Compensations.WithLabelValues("missing").Inc()
		s.logger.Warn("claim already gone during compensation",
			"appointment_id", claim.AppointmentID.String())
	default:
		s.metrics.Compensations.WithLabelValues("released").Inc()
	}
}

// Cancel flags the appointment as cancelled and frees its slot. Cancelling
// an already cancelled appointment succeeds without side effects.
func (s *Service) Cancel(ctx context.Context, appointmentID uuid.UUID, actor Actor) error {
	appt, err := s.appointments.Get(ctx, appointmentID)
	if err != nil {
		return lookupError("appointment", err)
	}
	if err := authorize(appt, actor); err != nil {
		return err
	}

	alreadyCancelled := appt.Cancelled
	if err := s.appointments.MarkCancelled(ctx, appt.ID); err != nil {
		return apperrors.Internal(fmt.Errorf("cancel appointment: %w", err))
	}

	if _, err := s.ledger.Release(ctx, appt.Claim()); err != nil {
		// The slot stays claimed; a retried cancel releases it.
		s.logger.Error(err, "failed to release slot after cancellation",
			"appointment_id", appt.ID.String())
		return apperrors.Internal(fmt.Errorf("release slot: %w", err))
	}

	if !alreadyCancelled {
		s.metrics.Cancellations.WithLabelValues(string(actor.Role)).Inc()
		s.emit(ctx, model.EventAppointmentCancelled, appointmentEvent(appt, string(actor.Role)))
	}
	return nil
}

func authorize(appt *model.Appointment, actor Actor) error {
	switch actor.Role {
	case auth.RoleAdmin:
		return nil
	case auth.RolePatient:
		if appt.UserID != actor.ID {
			return apperrors.Unauthorized(msgNotOwner)
		}
		return nil
	case auth.RoleDoctor:
		if appt.DocID != actor.ID {
			return apperrors.Unauthorized(msgNotOwner)
		}
		return nil
	default:
		return apperrors.Forbidden("unknown role")
	}
}

// Complete marks a doctor's own appointment as completed.
func (s *Service) Complete(ctx context.Context, appointmentID, doctorID uuid.UUID) error {
	appt, err := s.appointments.Get(ctx, appointmentID)
	if err != nil {
		return lookupError("appointment", err)
	}
	if appt.DocID != doctorID {
		return apperrors.Unauthorized(msgNotOwner)
	}
	if appt.Cancelled {
		return apperrors.BadRequest("appointment is cancelled", nil)
	}
	if err := s.appointments.MarkCompleted(ctx, appt.ID); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Appointment, error) {
	out, err := s.appointments.ListByUser(ctx, patientID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return out, nil
}

func (s *Service) ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Appointment, error) {
	out, err := s.appointments.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return out, nil
}

func (s *Service) ListAll(ctx context.Context) ([]*model.Appointment, error) {
	out, err := s.appointments.List(ctx)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return out, nil
}

func (s *Service) emit(ctx context.Context, eventType string, payload model.AppointmentEvent) {
	if err := s.events.Emit(ctx, eventType, payload); err != nil {
		s.logger.Error(err, "failed to emit event",
			"event_type", eventType,
			"appointment_id", payload.AppointmentID.String())
	}
}

func appointmentEvent(appt *model.Appointment, cancelledBy string) model.AppointmentEvent {
	return model.AppointmentEvent{
		AppointmentID: appt.ID,
		PatientName:   appt.UserData.Name,
		PatientEmail:  appt.UserData.Email,
		DoctorName:    appt.DocData.Name,
		SlotDate:      appt.SlotDate,
		SlotTime:      appt.SlotTime,
		Amount:        appt.Amount,
		CancelledBy:   cancelledBy,
	}
}

func lookupError(resource string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound(resource, err)
	}
	return apperrors.Internal(fmt.Errorf("get %s: %w", resource, err))
}
