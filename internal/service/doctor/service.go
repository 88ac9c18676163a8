// Package doctor manages doctor accounts, the public directory and the
// per-doctor slot calendar.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/healthpoint-api/internal/model"
	"github.com/jwalitptl/healthpoint-api/internal/repository"
	"github.com/jwalitptl/healthpoint-api/internal/service/calendar"
	"github.com/jwalitptl/healthpoint-api/pkg/auth"
	apperrors "github.com/jwalitptl/healthpoint-api/pkg/errors"
	"github.com/jwalitptl/healthpoint-api/pkg/logger"
	"github.com/jwalitptl/healthpoint-api/pkg/media"
	"github.com/jwalitptl/healthpoint-api/pkg/security"
)

const directoryKey = "directory"

type Config struct {
	// DirectoryTTL bounds how long the doctor list is served from cache.
	DirectoryTTL time.Duration
	Location     *time.Location
}

type Service struct {
	doctors repository.DoctorRepository
	ledger  repository.SlotLedger
	hasher  security.PasswordHasher
	tokens  auth.JWTService
	media   media.Store
	cache   *cache.Cache
	loc     *time.Location
	logger  *logger.Logger
	now     func() time.Time
}

func NewService(
	doctors repository.DoctorRepository,
	ledger repository.SlotLedger,
	hasher security.PasswordHasher,
	tokens auth.JWTService,
	store media.Store,
	log *logger.Logger,
	cfg Config,
) *Service {
	if cfg.DirectoryTTL <= 0 {
		cfg.DirectoryTTL = time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Service{
		doctors: doctors,
		ledger:  ledger,
		hasher:  hasher,
		tokens:  tokens,
		media:   store,
		cache:   cache.New(cfg.DirectoryTTL, 2*cfg.DirectoryTTL),
		loc:     cfg.Location,
		logger:  log.WithFields(map[string]interface{}{"component": "doctor"}),
		now:     time.Now,
	}
}

// Add registers a doctor. The image is required.
func (s *Service) Add(ctx context.Context, req model.AddDoctorRequest, image io.Reader) (*model.Doctor, error) {
	if image == nil {
		return nil, apperrors.BadRequest("image is required", nil)
	}
	address, err := model.ParseAddress(req.Address)
	if err != nil || address == nil {
		return nil, apperrors.BadRequest("invalid address", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, security.ErrPasswordTooShort) || errors.Is(err, security.ErrPasswordTooLong) {
			return nil, apperrors.BadRequest("please enter a strong password", err)
		}
		return nil, apperrors.Internal(err)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.doctors.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.BadRequest("email already registered", nil)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Internal(err)
	}

	url, err := s.media.Save(ctx, image)
	if err != nil {
		if media.IsRejected(err) {
			return nil, apperrors.BadRequest("invalid image", err)
		}
		return nil, apperrors.Internal(fmt.Errorf("store image: %w", err))
	}

	d := &model.Doctor{
		Name:         req.Name,
		Email:        email,
		PasswordHash: hash,
		Image:        url,
		Speciality:   req.Speciality,
		Degree:       req.Degree,
		Experience:   req.Experience,
		About:        req.About,
		Fees:         req.Fees,
		Address:      *address,
		Available:    true,
	}
	if err := s.doctors.Create(ctx, d); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.BadRequest("email already registered", err)
		}
		return nil, apperrors.Internal(fmt.Errorf("create doctor: %w", err))
	}

	s.cache.Delete(directoryKey)
	s.logger.Info("doctor added", "doctor_id", d.ID.String())
	return d, nil
}

func (s *Service) Login(ctx context.Context, req model.LoginRequest) (string, error) {
	d, err := s.doctors.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", apperrors.Unauthorized("invalid credentials")
		}
		return "", apperrors.Internal(err)
	}
	if err := s.hasher.Compare(d.PasswordHash, req.Password); err != nil {
		return "", apperrors.Unauthorized("invalid credentials")
	}

	token, err := s.tokens.Generate(d.ID.String(), auth.RoleDoctor, d.Email)
	if err != nil {
		return "", apperrors.Internal(err)
	}
	return token, nil
}

// Directory lists every doctor with the slots currently claimed in the
// ledger. The doctor rows are cached; the ledger is always read live.
func (s *Service) Directory(ctx context.Context) ([]*model.Doctor, error) {
	var doctors []*model.Doctor
	if cached, found := s.cache.Get(directoryKey); found {
		doctors = cached.([]*model.Doctor)
	} else {
		list, err := s.doctors.List(ctx)
		if err != nil {
			return nil, apperrors.Internal(fmt.Errorf("list doctors: %w", err))
		}
		s.cache.Set(directoryKey, list, cache.DefaultExpiration)
		doctors = list
	}

	out := make([]*model.Doctor, 0, len(doctors))
	for _, d := range doctors {
		booked, err := s.ledger.Snapshot(ctx, d.ID)
		if err != nil {
			return nil, apperrors.Internal(fmt.Errorf("read ledger: %w", err))
		}
		cp := *d
		cp.SlotsBooked = booked
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	d, err := s.doctors.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("doctor", err)
		}
		return nil, apperrors.Internal(err)
	}
	booked, err := s.ledger.Snapshot(ctx, id)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("read ledger: %w", err))
	}
	d.SlotsBooked = booked
	return d, nil
}

// ToggleAvailability flips the doctor's availability and returns the new value.
func (s *Service) ToggleAvailability(ctx context.Context, id uuid.UUID) (bool, error) {
	d, err := s.doctors.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, apperrors.NotFound("doctor", err)
		}
		return false, apperrors.Internal(err)
	}
	if err := s.doctors.SetAvailable(ctx, id, !d.Available); err != nil {
		return false, apperrors.Internal(fmt.Errorf("set availability: %w", err))
	}
	s.cache.Delete(directoryKey)
	return !d.Available, nil
}

// Calendar returns the offerable slots of the doctor for the rolling window,
// computed in the clinic timezone.
func (s *Service) Calendar(ctx context.Context, id uuid.UUID) ([]calendar.Day, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return calendar.Collect(d.SlotsBooked, s.now().In(s.loc)), nil
}
