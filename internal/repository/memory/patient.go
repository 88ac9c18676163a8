package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/healthpoint-api/internal/model"
	"github.com/jwalitptl/healthpoint-api/internal/repository"
)

type PatientRepository struct {
	mu       sync.RWMutex
	patients map[uuid.UUID]*model.Patient

	// FailUpdate makes Update return the error. Used by tests.
	FailUpdate error
}

func NewPatientRepository() *PatientRepository {
	return &PatientRepository{patients: make(map[uuid.UUID]*model.Patient)}
}

func (r *PatientRepository) Create(ctx context.Context, patient *model.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.patients {
		if strings.EqualFold(p.Email, patient.Email) {
			return fmt.Errorf("patient %s: %w", patient.Email, repository.ErrDuplicate)
		}
	}
	if patient.ID == uuid.Nil {
		patient.ID = uuid.New()
	}
	now := time.Now()
	patient.CreatedAt, patient.UpdatedAt = now, now

	cp := *patient
	r.patients[patient.ID] = &cp
	return nil
}

func (r *PatientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.patients[id]
	if !ok {
		return nil, fmt.Errorf("patient %s: %w", id, repository.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (r *PatientRepository) GetByEmail(ctx context.Context, email string) (*model.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.patients {
		if strings.EqualFold(p.Email, email) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("patient %s: %w", email, repository.ErrNotFound)
}

func (r *PatientRepository) Update(ctx context.Context, patient *model.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailUpdate != nil {
		return r.FailUpdate
	}
	existing, ok := r.patients[patient.ID]
	if !ok {
		return fmt.Errorf("patient %s: %w", patient.ID, repository.ErrNotFound)
	}
	cp := *patient
	cp.CreatedAt = existing.CreatedAt
	cp.UpdatedAt = time.Now()
	r.patients[patient.ID] = &cp
	return nil
}

func (r *PatientRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.patients), nil
}
