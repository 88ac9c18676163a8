package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/jwalitptl/healthpoint-api/internal/model"
)

type slotKey struct {
	doctor uuid.UUID
	day    string
	label  string
}

// Ledger is a SlotLedger guarded by a single mutex.
type Ledger struct {
	mu     sync.Mutex
	claims map[slotKey]uuid.UUID
}

func NewLedger() *Ledger {
	return &Ledger{claims: make(map[slotKey]uuid.UUID)}
}

func (l *Ledger) Claim(ctx context.Context, claim model.SlotClaim) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	key := slotKey{claim.DoctorID, claim.SlotDate, claim.SlotTime}
	if _, held := l.claims[key]; held {
		return false, nil
	}
	l.claims[key] = claim.AppointmentID
	return true, nil
}

func (l *Ledger) Release(ctx context.Context, claim model.SlotClaim) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	key := slotKey{claim.DoctorID, claim.SlotDate, claim.SlotTime}
	if owner, held := l.claims[key]; !held || owner != claim.AppointmentID {
		return false, nil
	}
	delete(l.claims, key)
	return true, nil
}

func (l *Ledger) IsClaimed(ctx context.Context, doctorID uuid.UUID, dayKey, timeLabel string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, held := l.claims[slotKey{doctorID, dayKey, timeLabel}]
	return held, nil
}

func (l *Ledger) Snapshot(ctx context.Context, doctorID uuid.UUID) (model.SlotsBooked, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(model.SlotsBooked)
	for key := range l.claims {
		if key.doctor == doctorID {
			out[key.day] = append(out[key.day], key.label)
		}
	}
	for day := range out {
		model.SortTimeLabels(out[day])
	}
	return out, nil
}
