package router

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	adminhandler "github.com/jwalitptl/healthpoint-api/internal/handler/admin"
	doctorhandler "github.com/jwalitptl/healthpoint-api/internal/handler/doctor"
	"github.com/jwalitptl/healthpoint-api/internal/handler/health"
	patienthandler "github.com/jwalitptl/healthpoint-api/internal/handler/patient"
	"github.com/jwalitptl/healthpoint-api/internal/middleware"
	"github.com/jwalitptl/healthpoint-api/internal/repository/memory"
	"github.com/jwalitptl/healthpoint-api/internal/service/admin"
	"github.com/jwalitptl/healthpoint-api/internal/service/booking"
	"github.com/jwalitptl/healthpoint-api/internal/service/calendar"
	"github.com/jwalitptl/healthpoint-api/internal/service/doctor"
	"github.com/jwalitptl/healthpoint-api/internal/service/event"
	"github.com/jwalitptl/healthpoint-api/internal/service/patient"
	"github.com/jwalitptl/healthpoint-api/internal/service/payment"
	"github.com/jwalitptl/healthpoint-api/pkg/auth"
	apperrors "github.com/jwalitptl/healthpoint-api/pkg/errors"
	"github.com/jwalitptl/healthpoint-api/pkg/logger"
	"github.com/jwalitptl/healthpoint-api/pkg/media"
	"github.com/jwalitptl/healthpoint-api/pkg/metrics"
	pkgpayment "github.com/jwalitptl/healthpoint-api/pkg/payment"
	"github.com/jwalitptl/healthpoint-api/pkg/security"
)

var pngHeader = []byte{
	0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A,
	0x00, 0x00, 0x00, 0x0D, 'I', 'H', 'D', 'R',
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x02, 0x00, 0x00, 0x00,
}

type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Code    apperrors.ErrorCode `json:"code"`
}

type testServer struct {
	engine *gin.Engine
	outbox *memory.OutboxRepository
}

type noGateway struct{}

func (noGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*pkgpayment.Order, error) {
	return nil, pkgpayment.ErrGatewayUnavailable
}

func (noGateway) FetchOrder(ctx context.Context, orderID string) (*pkgpayment.Order, error) {
	return nil, pkgpayment.ErrGatewayUnavailable
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := logger.Nop()
	m := metrics.NewMetrics(prometheus.NewRegistry(), "test")

	doctors := memory.NewDoctorRepository()
	patients := memory.NewPatientRepository()
	appointments := memory.NewAppointmentRepository()
	ledger := memory.NewLedger()
	outbox := memory.NewOutboxRepository()

	tokens := auth.NewJWTService("secret", "healthpoint", time.Hour)
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	store, err := media.NewLocalStore(t.TempDir(), "/media", 1<<20)
	require.NoError(t, err)

	bookingSvc := booking.NewService(doctors, patients, appointments, ledger, event.NewEventService(outbox), m, log, booking.Config{})
	patientSvc := patient.NewService(patients, appointments, hasher, tokens, store, log)
	doctorSvc := doctor.NewService(doctors, ledger, hasher, tokens, store, log, doctor.Config{})
	adminSvc := admin.NewService(doctors, patients, appointments, tokens, admin.Credentials{Email: "admin@healthpoint.test", Password: "admin-pass"})
	paymentSvc := payment.NewService(appointments, noGateway{}, "INR", m, log)

	r := NewRouter(
		middleware.NewAuthMiddleware(tokens),
		health.NewHandler(nil, prometheus.NewRegistry()),
		RouterConfig{Metrics: m, CORSConfig: middleware.DefaultCORSConfig()},
		patienthandler.NewHandler(patientSvc, bookingSvc, paymentSvc),
		doctorhandler.NewHandler(doctorSvc, bookingSvc, 0),
		adminhandler.NewHandler(adminSvc, doctorSvc, bookingSvc),
	)
	r.Setup()
	return &testServer{engine: r.Engine(), outbox: outbox}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.serve(t, req)
}

func (s *testServer) serve(t *testing.T, req *http.Request) (int, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func token(t *testing.T, env envelope) string {
	t.Helper()
	var tok struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &tok))
	require.NotEmpty(t, tok.Token)
	return tok.Token
}

func (s *testServer) addDoctor(t *testing.T, adminToken string) string {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := map[string]string{
		"name": "Dr. Rao", "email": "rao@clinic.test", "password": "stethoscope",
		"speciality": "General physician", "degree": "MBBS", "experience": "4 Years",
		"about": "Primary care", "fees": "500", "address": `{"line1":"17th Cross","line2":"Richmond"}`,
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("image", "doc.png")
	require.NoError(t, err)
	_, err = fw.Write(pngHeader)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/add-doctor", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+adminToken)
	code, env := s.serve(t, req)
	require.Equal(t, http.StatusCreated, code, env.Message)

	var d struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &d))
	return d.ID
}

func TestBookingFlow(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodPost, "/api/v1/admin/login", "", map[string]string{"email": "admin@healthpoint.test", "password": "admin-pass"})
	require.Equal(t, http.StatusOK, code)
	adminToken := token(t, env)
	docID := s.addDoctor(t, adminToken)

	code, env = s.do(t, http.MethodPost, "/api/v1/user/register", "", map[string]string{"name": "Asha", "email": "asha@example.com", "password": "correct-horse"})
	require.Equal(t, http.StatusCreated, code, env.Message)
	asha := token(t, env)

	code, env = s.do(t, http.MethodPost, "/api/v1/user/register", "", map[string]string{"name": "Ravi", "email": "ravi@example.com", "password": "correct-horse"})
	require.Equal(t, http.StatusCreated, code)
	ravi := token(t, env)

	code, env = s.do(t, http.MethodGet, "/api/v1/doctor/slots/"+docID, "", nil)
	require.Equal(t, http.StatusOK, code)
	var days []calendar.Day
	require.NoError(t, json.Unmarshal(env.Data, &days))
	require.NotEmpty(t, days)
	day, slot := days[len(days)-1].Key, days[len(days)-1].Slots[0].Label

	book := map[string]string{"docId": docID, "slotDate": day, "slotTime": slot}
	code, env = s.do(t, http.MethodPost, "/api/v1/user/book-appointment", asha, book)
	require.Equal(t, http.StatusCreated, code, env.Message)
	var appt struct {
		ID     string  `json:"id"`
		Amount float64 `json:"amount"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &appt))
	assert.Equal(t, float64(500), appt.Amount)

	code, env = s.do(t, http.MethodPost, "/api/v1/user/book-appointment", ravi, book)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "slot not available", env.Message)
	assert.Equal(t, apperrors.ErrUnavailable, env.Code)

	code, env = s.do(t, http.MethodGet, "/api/v1/doctor/list", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"`+slot+`"`)
	assert.NotContains(t, string(env.Data), "password")

	code, _ = s.do(t, http.MethodPost, "/api/v1/user/cancel-appointment", ravi, map[string]string{"appointmentId": appt.ID})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/user/cancel-appointment", asha, map[string]string{"appointmentId": appt.ID})
	require.Equal(t, http.StatusOK, code)

	code, env = s.do(t, http.MethodPost, "/api/v1/user/book-appointment", ravi, book)
	assert.Equal(t, http.StatusCreated, code, env.Message)

	code, env = s.do(t, http.MethodGet, "/api/v1/admin/dashboard", adminToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"appointments":2`)

	code, _ = s.do(t, http.MethodPost, "/api/v1/user/payment-razorpay", asha, map[string]string{"appointmentId": appt.ID})
	assert.Equal(t, http.StatusBadRequest, code)

	assert.Len(t, s.outbox.Events(), 3)
}

func TestBookingRejectsMalformedSlot(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodPost, "/api/v1/user/register", "", map[string]string{"name": "Asha", "email": "asha@example.com", "password": "correct-horse"})
	require.Equal(t, http.StatusCreated, code)
	asha := token(t, env)

	code, env = s.do(t, http.MethodPost, "/api/v1/user/book-appointment", asha,
		map[string]string{"docId": "9b2f3c1e-5d4a-4f7e-8c6b-1a2b3c4d5e6f", "slotDate": "15/6/2025", "slotTime": "10:00"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.Success)
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)
	code, env := s.do(t, http.MethodPost, "/api/v1/user/register", "", map[string]string{"name": "A", "email": "not-an-email", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation failed", env.Message)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/api/v1/user/get-profile", "/api/v1/doctor/appointments", "/api/v1/admin/dashboard"} {
		code, _ := s.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, code, path)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health/live", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "UP"))
}
