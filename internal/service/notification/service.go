// Package notification turns appointment events into patient emails.
package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jwalitptl/healthpoint-api/internal/email"
	"github.com/jwalitptl/healthpoint-api/internal/model"
	"github.com/jwalitptl/healthpoint-api/pkg/messaging"
)

type Service struct {
	mail email.Service
}

func NewService(mail email.Service) *Service {
	return &Service{mail: mail}
}

// Register installs the event handlers on the dispatcher.
func (s *Service) Register(d *messaging.Dispatcher) {
	d.Handle(model.EventAppointmentBooked, s.HandleBooked)
	d.Handle(model.EventAppointmentCancelled, s.HandleCancelled)
}

func (s *Service) HandleBooked(ctx context.Context, payload json.RawMessage) error {
	ev, err := decode(payload)
	if err != nil {
		return err
	}
	body := fmt.Sprintf("Hi %s,\n\nYour appointment with %s on %s at %s is confirmed. Fee: %.2f.\n",
		ev.PatientName, ev.DoctorName, displayDate(ev.SlotDate), ev.SlotTime, ev.Amount)
	return s.mail.Send(ctx, ev.PatientEmail, "Appointment confirmed", body)
}

func (s *Service) HandleCancelled(ctx context.Context, payload json.RawMessage) error {
	ev, err := decode(payload)
	if err != nil {
		return err
	}
	body := fmt.Sprintf("Hi %s,\n\nYour appointment with %s on %s at %s was cancelled",
		ev.PatientName, ev.DoctorName, displayDate(ev.SlotDate), ev.SlotTime)
	if ev.CancelledBy != "" {
		body += " by the " + ev.CancelledBy
	}
	return s.mail.Send(ctx, ev.PatientEmail, "Appointment cancelled", body+".\n")
}

func decode(payload json.RawMessage) (*model.AppointmentEvent, error) {
	var ev model.AppointmentEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("invalid appointment event: %w", err)
	}
	if ev.PatientEmail == "" {
		return nil, fmt.Errorf("appointment event %s has no patient email", ev.AppointmentID)
	}
	return &ev, nil
}

// displayDate renders a day-key such as 15_6_2025 as 15 Jun 2025.
func displayDate(dayKey string) string {
	t, err := model.ParseDayKey(dayKey, nil)
	if err != nil {
		return dayKey
	}
	return t.Format("2 Jan 2006")
}
