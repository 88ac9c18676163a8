package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/healthpoint-api/internal/model"
	"github.com/jwalitptl/healthpoint-api/internal/repository"
)

type AppointmentRepository struct {
	mu           sync.RWMutex
	appointments map[uuid.UUID]*model.Appointment

	// FailCreate makes Create return the error. Used by tests.
	FailCreate error
}

func NewAppointmentRepository() *AppointmentRepository {
	return &AppointmentRepository{appointments: make(map[uuid.UUID]*model.Appointment)}
}

func (r *AppointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailCreate != nil {
		return r.FailCreate
	}
	if appointment.ID == uuid.Nil {
		appointment.ID = uuid.New()
	}
	if _, exists := r.appointments[appointment.ID]; exists {
		return fmt.Errorf("appointment %s: %w", appointment.ID, repository.ErrDuplicate)
	}
	if appointment.Date.IsZero() {
		appointment.Date = time.Now()
	}
	cp := *appointment
	r.appointments[appointment.ID] = &cp
	return nil
}

func (r *AppointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.appointments[id]
	if !ok {
		return nil, fmt.Errorf("appointment %s: %w", id, repository.ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func (r *AppointmentRepository) filter(keep func(*model.Appointment) bool) []*model.Appointment {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Appointment, 0)
	for _, a := range r.appointments {
		if keep(a) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

func (r *AppointmentRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Appointment, error) {
	return r.filter(func(a *model.Appointment) bool { return a.UserID == userID }), nil
}

func (r *AppointmentRepository) ListByDoctor(ctx context.Context, docID uuid.UUID) ([]*model.Appointment, error) {
	return r.filter(func(a *model.Appointment) bool { return a.DocID == docID }), nil
}

func (r *AppointmentRepository) List(ctx context.Context) ([]*model.Appointment, error) {
	return r.filter(func(*model.Appointment) bool { return true }), nil
}

func (r *AppointmentRepository) Latest(ctx context.Context, limit int) ([]*model.Appointment, error) {
	all := r.filter(func(*model.Appointment) bool { return true })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *AppointmentRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.appointments), nil
}

func (r *AppointmentRepository) update(id uuid.UUID, fn func(*model.Appointment)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok {
		return fmt.Errorf("appointment %s: %w", id, repository.ErrNotFound)
	}
	fn(a)
	return nil
}

func (r *AppointmentRepository) MarkCancelled(ctx context.Context, id uuid.UUID) error {
	return r.update(id, func(a *model.Appointment) { a.Cancelled = true })
}

func (r *AppointmentRepository) MarkPaid(ctx context.Context, id uuid.UUID) error {
	return r.update(id, func(a *model.Appointment) { a.Payment = true })
}

func (r *AppointmentRepository) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	return r.update(id, func(a *model.Appointment) { a.IsCompleted = true })
}

func (r *AppointmentRepository) SyncUserSnapshot(ctx context.Context, userID uuid.UUID, snapshot model.PatientSnapshot) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, a := range r.appointments {
		if a.UserID == userID {
			a.UserData = snapshot
			n++
		}
	}
	return n, nil
}
