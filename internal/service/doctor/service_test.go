package doctor

import (
	"context"
	"encoding/json"
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
	"github.com/jwalitptl/healthpoint-api/pkg/security"
)

type stubStore struct{}

func (stubStore) Save(ctx context.Context, content io.Reader) (string, error) {
	return "/media/doc.png", nil
}

func newService(t *testing.T) (*Service, *memory.Ledger, auth.JWTService) {
	t.Helper()
	ledger := memory.NewLedger()
	tokens := auth.NewJWTService("secret", "healthpoint", time.Hour)
	svc := NewService(memory.NewDoctorRepository(), ledger, security.NewBcryptHasher(bcrypt.MinCost),
		tokens, stubStore{}, logger.Nop(), Config{DirectoryTTL: time.Hour, Location: time.UTC})
	return svc, ledger, tokens
}

func addRequest(email string) model.AddDoctorRequest {
	return model.AddDoctorRequest{
		Name:       "Dr. Rao",
		Email:      email,
		Password:   "stethoscope",
		Speciality: "General physician",
		Degree:     "MBBS",
		Experience: "4 Years",
		About:      "Primary care",
		Fees:       500,
		Address:    `{"line1":"17th Cross","line2":"Richmond"}`,
	}
}

func TestAddDoctor(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	d, err := svc.Add(ctx, addRequest("rao@clinic.test"), strings.NewReader("png"))
	require.NoError(t, err)
	assert.True(t, d.Available)
	assert.Equal(t, "/media/doc.png", d.Image)
	assert.Equal(t, "Richmond", d.Address.Line2)

	_, err = svc.Add(ctx, addRequest("RAO@clinic.test"), strings.NewReader("png"))
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))

	_, err = svc.Add(ctx, addRequest("other@clinic.test"), nil)
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))

	bad := addRequest("third@clinic.test")
	bad.Address = "not json"
	_, err = svc.Add(ctx, bad, strings.NewReader("png"))
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
}

func TestDirectoryCarriesLiveLedgerWithoutPassword(t *testing.T) {
	svc, ledger, _ := newService(t)
	ctx := context.Background()

	d, err := svc.Add(ctx, addRequest("rao@clinic.test"), strings.NewReader("png"))
	require.NoError(t, err)

	list, err := svc.Directory(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Empty(t, list[0].SlotsBooked)

	_, err = ledger.Claim(ctx, model.SlotClaim{DoctorID: d.ID, SlotDate: "15_6_2025", SlotTime: "10:00 AM", AppointmentID: uuid.New()})
	require.NoError(t, err)

	list, err = svc.Directory(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00 AM"}, list[0].SlotsBooked["15_6_2025"])

	raw, err := json.Marshal(list[0])
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "password")
	assert.NotContains(t, string(raw), list[0].PasswordHash)
	assert.Contains(t, string(raw), `"slots_booked"`)
}

func TestToggleAvailabilityRefreshesDirectory(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	d, err := svc.Add(ctx, addRequest("rao@clinic.test"), strings.NewReader("png"))
	require.NoError(t, err)
	_, err = svc.Directory(ctx)
	require.NoError(t, err)

	available, err := svc.ToggleAvailability(ctx, d.ID)
	require.NoError(t, err)
	assert.False(t, available)

	list, err := svc.Directory(ctx)
	require.NoError(t, err)
	assert.False(t, list[0].Available)

	_, err = svc.ToggleAvailability(ctx, uuid.New())
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestLoginIssuesDoctorToken(t *testing.T) {
	svc, _, tokens := newService(t)
	ctx := context.Background()

	d, err := svc.Add(ctx, addRequest("rao@clinic.test"), strings.NewReader("png"))
	require.NoError(t, err)

	token, err := svc.Login(ctx, model.LoginRequest{Email: "rao@clinic.test", Password: "stethoscope"})
	require.NoError(t, err)
	claims, err := tokens.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleDoctor, claims.Role)
	assert.Equal(t, d.ID.String(), claims.Subject)

	_, err = svc.Login(ctx, model.LoginRequest{Email: "rao@clinic.test", Password: "wrong-password"})
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))
}

func TestCalendarSkipsClaimedSlots(t *testing.T) {
	svc, ledger, _ := newService(t)
	ctx := context.Background()
	svc.now = func() time.Time { return time.Date(2025, 6, 15, 6, 0, 0, 0, time.UTC) }

	d, err := svc.Add(ctx, addRequest("rao@clinic.test"), strings.NewReader("png"))
	require.NoError(t, err)
	_, err = ledger.Claim(ctx, model.SlotClaim{DoctorID: d.ID, SlotDate: "15_6_2025", SlotTime: "10:00 AM", AppointmentID: uuid.New()})
	require.NoError(t, err)

	days, err := svc.Calendar(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, days, 7)
	assert.Equal(t, "15_6_2025", days[0].Key)
	assert.Equal(t, "10:30 AM", days[0].Slots[0].Label)
	assert.Len(t, days[1].Slots, 22)

	_, err = svc.Calendar(ctx, uuid.New())
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}
