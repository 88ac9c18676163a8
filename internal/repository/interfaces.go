package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/healthpoint-api/internal/model"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
)

// All repository interfaces in one file
type (
	DoctorRepository interface {
		Create(ctx context.Context, doctor *model.Doctor) error
		Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
		GetByEmail(ctx context.Context, email string) (*model.Doctor, error)
		List(ctx context.Context) ([]*model.Doctor, error)
		SetAvailable(ctx context.Context, id uuid.UUID, available bool) error
		Count(ctx context.Context) (int, error)
	}

	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		GetByEmail(ctx context.Context, email string) (*model.Patient, error)
		Update(ctx context.Context, patient *model.Patient) error
		Count(ctx context.Context) (int, error)
	}

	// AppointmentRepository never deletes. After Create only the cancelled,
	// payment and completion flags change, plus the user snapshot.
	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Appointment, error)
		ListByDoctor(ctx context.Context, docID uuid.UUID) ([]*model.Appointment, error)
		List(ctx context.Context) ([]*model.Appointment, error)
		Latest(ctx context.Context, limit int) ([]*model.Appointment, error)
		Count(ctx context.Context) (int, error)
		MarkCancelled(ctx context.Context, id uuid.UUID) error
		MarkPaid(ctx context.Context, id uuid.UUID) error
		MarkCompleted(ctx context.Context, id uuid.UUID) error
		// SyncUserSnapshot overwrites userData on every appointment of the user
		// and returns the number of rows touched.
		SyncUserSnapshot(ctx context.Context, userID uuid.UUID, snapshot model.PatientSnapshot) (int64, error)
	}

	// SlotLedger is the keyed store of claimed (doctor, day-key, time-label)
	// triples. Claim and Release are atomic per triple.
	SlotLedger interface {
		// Claim records the triple for claim.AppointmentID. It returns false
		// when the triple is already held.
		Claim(ctx context.Context, claim model.SlotClaim) (bool, error)
		// Release removes the triple only if claim.AppointmentID owns it.
		// It returns false when nothing was removed.
		Release(ctx context.Context, claim model.SlotClaim) (bool, error)
		IsClaimed(ctx context.Context, doctorID uuid.UUID, dayKey, timeLabel string) (bool, error)
		Snapshot(ctx context.Context, doctorID uuid.UUID) (model.SlotsBooked, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		// MarkFailed records the error and bumps retry_count. The event
		// becomes FAILED once retry_count reaches maxRetries.
		MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, maxRetries int) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}

	// Pinger is implemented by stores that can report readiness.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)
