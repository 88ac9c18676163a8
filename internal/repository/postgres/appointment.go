package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/healthpoint-api/internal/model"
	"github.com/jwalitptl/healthpoint-api/internal/repository"
)

const appointmentColumns = `id, user_id, doc_id, slot_date, slot_time, user_data, doc_data,
	amount, date, cancelled, payment, is_completed`

type appointmentRepository struct {
	BaseRepository
}

func NewAppointmentRepository(base BaseRepository) repository.AppointmentRepository {
	return &appointmentRepository{base}
}

func (r *appointmentRepository) Create(ctx context.Context, a *model.Appointment) error {
	query := `
		INSERT INTO appointments (` + appointmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Date.IsZero() {
		a.Date = time.Now()
	}

	_, err := r.db.ExecContext(ctx, query,
		a.ID,
		a.UserID,
		a.DocID,
		a.SlotDate,
		a.SlotTime,
		a.UserData,
		a.DocData,
		a.Amount,
		a.Date,
		a.Cancelled,
		a.Payment,
		a.IsCompleted,
	)
	return mapError(err, "failed to create appointment %s", a.ID)
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	var a model.Appointment
	err := r.db.GetContext(ctx, &a, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	if err != nil {
		return nil, mapError(err, "failed to get appointment %s", id)
	}
	return &a, nil
}

func (r *appointmentRepository) selectMany(ctx context.Context, where string, args ...interface{}) ([]*model.Appointment, error) {
	var out []*model.Appointment
	query := `SELECT ` + appointmentColumns + ` FROM appointments ` + where
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, mapError(err, "failed to list appointments")
	}
	return out, nil
}

func (r *appointmentRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Appointment, error) {
	return r.selectMany(ctx, `WHERE user_id = $1 ORDER BY date DESC`, userID)
}

func (r *appointmentRepository) ListByDoctor(ctx context.Context, docID uuid.UUID) ([]*model.Appointment, error) {
	return r.selectMany(ctx, `WHERE doc_id = $1 ORDER BY date DESC`, docID)
}

func (r *appointmentRepository) List(ctx context.Context) ([]*model.Appointment, error) {
	return r.selectMany(ctx, `ORDER BY date DESC`)
}

func (r *appointmentRepository) Latest(ctx context.Context, limit int) ([]*model.Appointment, error) {
	return r.selectMany(ctx, `ORDER BY date DESC LIMIT $1`, limit)
}

func (r *appointmentRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM appointments`); err != nil {
		return 0, mapError(err, "failed to count appointments")
	}
	return n, nil
}

// MarkCancelled only ever sets the flag; it is never cleared.
func (r *appointmentRepository) MarkCancelled(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `UPDATE appointments SET cancelled = TRUE WHERE id = $1`, id)
	return expectOne(res, err, "failed to cancel appointment %s", id)
}

func (r *appointmentRepository) MarkPaid(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `UPDATE appointments SET payment = TRUE WHERE id = $1`, id)
	return expectOne(res, err, "failed to mark appointment %s paid", id)
}

func (r *appointmentRepository) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `UPDATE appointments SET is_completed = TRUE WHERE id = $1`, id)
	return expectOne(res, err, "failed to complete appointment %s", id)
}

func (r *appointmentRepository) SyncUserSnapshot(ctx context.Context, userID uuid.UUID, snapshot model.PatientSnapshot) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE appointments SET user_data = user_data || $1::jsonb WHERE user_id = $2`, snapshot, userID)
	if err != nil {
		return 0, mapError(err, "failed to sync user snapshot for %s", userID)
	}
	return res.RowsAffected()
}
