package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/healthpoint-api/internal/model"
	"github.com/jwalitptl/healthpoint-api/internal/repository"
)

// slotLedger keeps one doctor_slots row per claim. The primary key makes
// Claim a single conditional insert, so no application lock is needed.
type slotLedger struct {
	BaseRepository
}

func NewSlotLedger(base BaseRepository) repository.SlotLedger {
	return &slotLedger{base}
}

func (l *slotLedger) Claim(ctx context.Context, claim model.SlotClaim) (bool, error) {
	res, err := l.db.ExecContext(ctx, `
		INSERT INTO doctor_slots (doctor_id, slot_date, slot_time, appointment_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (doctor_id, slot_date, slot_time) DO NOTHING
	`, claim.DoctorID, claim.SlotDate, claim.SlotTime, claim.AppointmentID)
	if err != nil {
		return false, mapError(err, "failed to claim slot")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, mapError(err, "failed to claim slot")
	}
	return n == 1, nil
}

func (l *slotLedger) Release(ctx context.Context, claim model.SlotClaim) (bool, error) {
	res, err := l.db.ExecContext(ctx, `
		DELETE FROM doctor_slots
		WHERE doctor_id = $1 AND slot_date = $2 AND slot_time = $3 AND appointment_id = $4
	`, claim.DoctorID, claim.SlotDate, claim.SlotTime, claim.AppointmentID)
	if err != nil {
		return false, mapError(err, "failed to release slot")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, mapError(err, "failed to release slot")
	}
	return n == 1, nil
}

func (l *slotLedger) IsClaimed(ctx context.Context, doctorID uuid.UUID, dayKey, timeLabel string) (bool, error) {
	var held bool
	err := l.db.GetContext(ctx, &held, `
		SELECT EXISTS (
			SELECT 1 FROM doctor_slots WHERE doctor_id = $1 AND slot_date = $2 AND slot_time = $3
		)
	`, doctorID, dayKey, timeLabel)
	if err != nil {
		return false, mapError(err, "failed to read slot")
	}
	return held, nil
}

func (l *slotLedger) Snapshot(ctx context.Context, doctorID uuid.UUID) (model.SlotsBooked, error) {
	var rows []model.SlotClaim
	err := l.db.SelectContext(ctx, &rows, `
		SELECT doctor_id, slot_date, slot_time, appointment_id
		FROM doctor_slots
		WHERE doctor_id = $1
		ORDER BY slot_date, to_timestamp(slot_time, 'HH12:MI AM')
	`, doctorID)
	if err != nil {
		return nil, mapError(err, "failed to read ledger for doctor %s", doctorID)
	}

	out := make(model.SlotsBooked)
	for _, row := range rows {
		out[row.SlotDate] = append(out[row.SlotDate], row.SlotTime)
	}
	return out, nil
}
