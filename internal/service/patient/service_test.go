package patient

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/healthpoint-api/internal/model"
	"github.com/jwalitptl/healthpoint-api/internal/repository/memory"
	"github.com/jwalitptl/healthpoint-api/pkg/auth"
	apperrors "github.com/jwalitptl/healthpoint-api/pkg/errors"
	"github.com/jwalitptl/healthpoint-api/pkg/logger"
	"github.com/jwalitptl/healthpoint-api/pkg/media"
	"github.com/jwalitptl/healthpoint-api/pkg/security"
)

type stubStore struct {
	url string
	err error
}

func (s stubStore) Save(ctx context.Context, content io.Reader) (string, error) {
	return s.url, s.err
}

type fixture struct {
	svc          *Service
	patients     *memory.PatientRepository
	appointments *memory.AppointmentRepository
	ledger       *memory.Ledger
	tokens       auth.JWTService
}

func newFixture(store media.Store) *fixture {
	f := &fixture{
		patients:     memory.NewPatientRepository(),
		appointments: memory.NewAppointmentRepository(),
		ledger:       memory.NewLedger(),
		tokens:       auth.NewJWTService("test-secret", "healthpoint", time.Hour),
	}
	f.svc = NewService(f.patients, f.appointments, security.NewBcryptHasher(bcrypt.MinCost), f.tokens, store, logger.Nop())
	return f
}

func register(t *testing.T, f *fixture) uuid.UUID {
	t.Helper()
	token, err := f.svc.Register(context.Background(), model.RegisterRequest{
		Name: "Asha", Email: "Asha@Example.com", Password: "correct-horse",
	})
	require.NoError(t, err)

	claims, err := f.tokens.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, auth.RolePatient, claims.Role)
	return uuid.MustParse(claims.Subject)
}

func TestRegisterAppliesDefaults(t *testing.T) {
	f := newFixture(stubStore{})
	id := register(t, f)

	p, err := f.svc.GetProfile(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", p.Email)
	assert.Equal(t, model.DefaultPhone, p.Phone)
	assert.Equal(t, model.NotSelected, p.Gender)
	assert.Equal(t, model.NotSelected, p.DOB)
	assert.NotEqual(t, "correct-horse", p.PasswordHash)
}

func TestRegisterRejectsDuplicateAndWeakPassword(t *testing.T) {
	f := newFixture(stubStore{})
	register(t, f)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, model.RegisterRequest{Name: "A", Email: "asha@example.com", Password: "another-pass"})
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))

	_, err = f.svc.Register(ctx, model.RegisterRequest{Name: "B", Email: "b@example.com", Password: "short"})
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
}

func TestLogin(t *testing.T) {
	f := newFixture(stubStore{})
	register(t, f)
	ctx := context.Background()

	token, err := f.svc.Login(ctx, model.LoginRequest{Email: "ASHA@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, err = f.svc.Login(ctx, model.LoginRequest{Email: "asha@example.com", Password: "wrong-horse"})
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))

	_, err = f.svc.Login(ctx, model.LoginRequest{Email: "nobody@example.com", Password: "correct-horse"})
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))
}

func seedAppointments(t *testing.T, f *fixture, patientID, otherID uuid.UUID) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	doc := uuid.New()
	for i, owner := range []uuid.UUID{patientID, patientID, otherID} {
		appt := &model.Appointment{
			UserID:   owner,
			DocID:    doc,
			SlotDate: "15_6_2025",
			SlotTime: []string{"10:00 AM", "10:30 AM", "11:00 AM"}[i],
			UserData: model.PatientSnapshot{ID: owner, Name: "Before"},
		}
		require.NoError(t, f.appointments.Create(ctx, appt))
		won, err := f.ledger.Claim(ctx, appt.Claim())
		require.NoError(t, err)
		require.True(t, won)
	}
	return doc
}

func TestUpdateProfileSyncsOnlyOwnAppointments(t *testing.T) {
	f := newFixture(stubStore{url: "/media/new.png"})
	id := register(t, f)
	other := uuid.New()
	doc := seedAppointments(t, f, id, other)
	ctx := context.Background()

	before, err := f.ledger.Snapshot(ctx, doc)
	require.NoError(t, err)

	p, err := f.svc.UpdateProfile(ctx, id, model.ProfileUpdate{
		Name:    "Asha Rao",
		Phone:   "9876543210",
		DOB:     "1990-04-01",
		Gender:  "Female",
		Address: &model.Address{Line1: "12 MG Road"},
	}, strings.NewReader("image"))
	require.NoError(t, err)
	assert.Equal(t, "/media/new.png", p.Image)

	own, err := f.appointments.ListByUser(ctx, id)
	require.NoError(t, err)
	require.Len(t, own, 2)
	for _, a := range own {
		assert.Equal(t, "Asha Rao", a.UserData.Name)
		assert.Equal(t, "12 MG Road", a.UserData.Address.Line1)
		assert.Equal(t, "/media/new.png", a.UserData.Image)
	}

	theirs, err := f.appointments.ListByUser(ctx, other)
	require.NoError(t, err)
	require.Len(t, theirs, 1)
	assert.Equal(t, "Before", theirs[0].UserData.Name)

	after, err := f.ledger.Snapshot(ctx, doc)
	require.NoError(t, err)
	assert.Len(t, before["15_6_2025"], 3)
	assert.Equal(t, before, after)
}

func TestUpdateProfileFailureSkipsSync(t *testing.T) {
	f := newFixture(stubStore{})
	id := register(t, f)
	seedAppointments(t, f, id, uuid.New())
	f.patients.FailUpdate = errors.New("write failed")

	_, err := f.svc.UpdateProfile(context.Background(), id, model.ProfileUpdate{Name: "Changed"}, nil)
	require.True(t, apperrors.Is(err, apperrors.ErrInternal))

	own, _ := f.appointments.ListByUser(context.Background(), id)
	for _, a := range own {
		assert.Equal(t, "Before", a.UserData.Name)
	}
}

func TestUpdateProfileRejectsBadImage(t *testing.T) {
	f := newFixture(stubStore{err: media.ErrInvalidContentType})
	id := register(t, f)

	_, err := f.svc.UpdateProfile(context.Background(), id, model.ProfileUpdate{Name: "Changed"}, strings.NewReader("text"))
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))

	p, _ := f.svc.GetProfile(context.Background(), id)
	assert.Equal(t, "Asha", p.Name)
}

func TestUpdateProfileKeepsImageWithoutUpload(t *testing.T) {
	f := newFixture(stubStore{url: "/media/unused.png"})
	id := register(t, f)

	p, err := f.svc.UpdateProfile(context.Background(), id, model.ProfileUpdate{Name: "Changed"}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultAvatar, p.Image)
}
