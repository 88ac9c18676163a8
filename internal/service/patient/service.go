package patient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/healthpoint-api/internal/model"
	"github.com/jwalitptl/healthpoint-api/internal/repository"
	"github.com/jwalitptl/healthpoint-api/pkg/auth"
	apperrors "github.com/jwalitptl/healthpoint-api/pkg/errors"
	"github.com/jwalitptl/healthpoint-api/pkg/logger"
	"github.com/jwalitptl/healthpoint-api/pkg/media"
	"github.com/jwalitptl/healthpoint-api/pkg/security"
)

const msgInvalidCredentials = "invalid credentials"

type Service struct {
	patients     repository.PatientRepository
	appointments repository.AppointmentRepository
	hasher       security.PasswordHasher
	tokens       auth.JWTService
	media        media.Store
	logger       *logger.Logger
}

func NewService(
	patients repository.PatientRepository,
	appointments repository.AppointmentRepository,
	hasher security.PasswordHasher,
	tokens auth.JWTService,
	store media.Store,
	log *logger.Logger,
) *Service {
	return &Service{
		patients:     patients,
		appointments: appointments,
		hasher:       hasher,
		tokens:       tokens,
		media:        store,
		logger:       log.WithFields(map[string]interface{}{"component": "patient"}),
	}
}

// Register creates a patient account with default profile fields and
// returns a session token.
func (s *Service) Register(ctx context.Context, req model.RegisterRequest) (string, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, security.ErrPasswordTooShort) || errors.Is(err, security.ErrPasswordTooLong) {
			return "", apperrors.BadRequest("please enter a strong password", err)
		}
		return "", apperrors.Internal(err)
	}

	p := &model.Patient{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: hash,
		Image:        model.DefaultAvatar,
		Phone:        model.DefaultPhone,
		Gender:       model.NotSelected,
		DOB:          model.NotSelected,
	}
	if err := s.patients.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return "", apperrors.BadRequest("email already registered", err)
		}
		return "", apperrors.Internal(fmt.Errorf("create patient: %w", err))
	}

	s.logger.Info("patient registered", "patient_id", p.ID.String())
	return s.issue(p)
}

func (s *Service) Login(ctx context.Context, req model.LoginRequest) (string, error) {
	p, err := s.patients.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", apperrors.Unauthorized(msgInvalidCredentials)
		}
		return "", apperrors.Internal(err)
	}
	if err := s.hasher.Compare(p.PasswordHash, req.Password); err != nil {
		return "", apperrors.Unauthorized(msgInvalidCredentials)
	}
	return s.issue(p)
}

func (s *Service) issue(p *model.Patient) (string, error) {
	token, err := s.tokens.Generate(p.ID.String(), auth.RolePatient, p.Email)
	if err != nil {
		return "", apperrors.Internal(err)
	}
	return token, nil
}

func (s *Service) GetProfile(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	p, err := s.patients.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("patient", err)
		}
		return nil, apperrors.Internal(err)
	}
	return p, nil
}

// UpdateProfile saves the profile and then rewrites the patient snapshot on
// every appointment of the patient. image may be nil. The slot ledger is
// never touched, and nothing is synced when the profile write fails.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, update model.ProfileUpdate, image io.Reader) (*model.Patient, error) {
	p, err := s.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	if image != nil {
		url, err := s.media.Save(ctx, image)
		if err != nil {
			return nil, mediaError(err)
		}
		update.Image = url
	}

	p.Name = update.Name
	p.Phone = update.Phone
	p.DOB = update.DOB
	p.Gender = update.Gender
	if update.Address != nil {
		p.Address = *update.Address
	}
	if update.Image != "" {
		p.Image = update.Image
	}

	if err := s.patients.Update(ctx, p); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("update patient: %w", err))
	}

	n, err := s.appointments.SyncUserSnapshot(ctx, p.ID, p.Snapshot())
	if err != nil {
		s.logger.Error(err, "profile saved but appointment snapshots not synced", "patient_id", p.ID.String())
		return nil, apperrors.Internal(fmt.Errorf("sync appointments: %w", err))
	}
	s.logger.Debug("profile synced", "patient_id", p.ID.String(), "appointments", n)
	return p, nil
}

func mediaError(err error) error {
	if media.IsRejected(err) {
		return apperrors.BadRequest("invalid image", err)
	}
	return apperrors.Internal(fmt.Errorf("store image: %w", err))
}
