package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/healthpoint-api/internal/repository"
)

// Store bundles the Postgres repositories over one connection pool.
type Store struct {
	BaseRepository
	Doctors      repository.DoctorRepository
	Patients     repository.PatientRepository
	Appointments repository.AppointmentRepository
	Ledger       repository.SlotLedger
	Outbox       repository.OutboxRepository
}

func NewStore(db *sqlx.DB) *Store {
	base := NewBaseRepository(db)
	return &Store{
		BaseRepository: base,
		Doctors:        NewDoctorRepository(base),
		Patients:       NewPatientRepository(base),
		Appointments:   NewAppointmentRepository(base),
		Ledger:         NewSlotLedger(base),
		Outbox:         NewOutboxRepository(base),
	}
}
