// Package memory holds map-backed repositories. They back the local
// development profile and every service test.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/healthpoint-api/internal/model"
	"github.com/jwalitptl/healthpoint-api/internal/repository"
)

type DoctorRepository struct {
	mu      sync.RWMutex
	doctors map[uuid.UUID]*model.Doctor
}

func NewDoctorRepository() *DoctorRepository {
	return &DoctorRepository{doctors: make(map[uuid.UUID]*model.Doctor)}
}

func (r *DoctorRepository) Create(ctx context.Context, doctor *model.Doctor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range r.doctors {
		if strings.EqualFold(d.Email, doctor.Email) {
			return fmt.Errorf("doctor %s: %w", doctor.Email, repository.ErrDuplicate)
		}
	}
	if doctor.ID == uuid.Nil {
		doctor.ID = uuid.New()
	}
	now := time.Now()
	doctor.CreatedAt, doctor.UpdatedAt = now, now

	cp := *doctor
	cp.SlotsBooked = nil
	r.doctors[doctor.ID] = &cp
	return nil
}

func (r *DoctorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.doctors[id]
	if !ok {
		return nil, fmt.Errorf("doctor %s: %w", id, repository.ErrNotFound)
	}
	cp := *d
	return &cp, nil
}

func (r *DoctorRepository) GetByEmail(ctx context.Context, email string) (*model.Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, d := range r.doctors {
		if strings.EqualFold(d.Email, email) {
			cp := *d
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("doctor %s: %w", email, repository.ErrNotFound)
}

func (r *DoctorRepository) List(ctx context.Context) ([]*model.Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Doctor, 0, len(r.doctors))
	for _, d := range r.doctors {
		cp := *d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *DoctorRepository) SetAvailable(ctx context.Context, id uuid.UUID, available bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.doctors[id]
	if !ok {
		return fmt.Errorf("doctor %s: %w", id, repository.ErrNotFound)
	}
	d.Available = available
	d.UpdatedAt = time.Now()
	return nil
}

func (r *DoctorRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.doctors), nil
}
