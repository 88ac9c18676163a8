package admin

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/jwalitptl/healthpoint-api/internal/model"
	"github.com/jwalitptl/healthpoint-api/internal/repository"
	"github.com/jwalitptl/healthpoint-api/pkg/auth"
	apperrors "github.com/jwalitptl/healthpoint-api/pkg/errors"
)

// LatestLimit is how many recent appointments the dashboard shows.
const LatestLimit = 5

type Credentials struct {
	Email    string
	Password string
}

type Service struct {
	doctors      repository.DoctorRepository
	patients     repository.PatientRepository
	appointments repository.AppointmentRepository
	tokens       auth.JWTService
	creds        Credentials
}

func NewService(
	doctors repository.DoctorRepository,
	patients repository.PatientRepository,
	appointments repository.AppointmentRepository,
	tokens auth.JWTService,
	creds Credentials,
) *Service {
	return &Service{
		doctors:      doctors,
		patients:     patients,
		appointments: appointments,
		tokens:       tokens,
		creds:        creds,
	}
}

// Login checks the configured administrator credentials.
func (s *Service) Login(req model.LoginRequest) (string, error) {
	if s.creds.Email == "" || s.creds.Password == "" {
		return "", apperrors.Unauthorized("invalid credentials")
	}
	emailOK := strings.EqualFold(strings.TrimSpace(req.Email), s.creds.Email)
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.creds.Password)) == 1
	if !emailOK || !passOK {
		return "", apperrors.Unauthorized("invalid credentials")
	}

	token, err := s.tokens.Generate("admin", auth.RoleAdmin, s.creds.Email)
	if err != nil {
		return "", apperrors.Internal(err)
	}
	return token, nil
}

func (s *Service) Dashboard(ctx context.Context) (*model.DashboardData, error) {
	doctors, err := s.doctors.Count(ctx)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("count doctors: %w", err))
	}
	patients, err := s.patients.Count(ctx)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("count patients: %w", err))
	}
	appointments, err := s.appointments.Count(ctx)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("count appointments: %w", err))
	}
	latest, err := s.appointments.Latest(ctx, LatestLimit)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("latest appointments: %w", err))
	}

	return &model.DashboardData{
		Doctors:            doctors,
		Appointments:       appointments,
		Patients:           patients,
		LatestAppointments: latest,
	}, nil
}
