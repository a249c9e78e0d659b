package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/exeats-api/internal/dto"
	"github.com/noah-isme/exeats-api/internal/models"
	"github.com/noah-isme/exeats-api/internal/repository"
)

// AuthService checks tutor credentials and manages tutor settings.
type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (models.Tutor, error)
	UpdateName(ctx context.Context, tutor models.Tutor, req dto.SettingsRequest) (dto.TutorResponse, error)
	ListTutors(ctx context.Context) ([]dto.TutorResponse, error)
}

type authService struct {
	tutors    repository.TutorRepository
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
}

// NewAuthService constructs the tutor authentication service.
func NewAuthService(tutors repository.TutorRepository, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) AuthService {
	return &authService{
		tutors:    tutors,
		validator: validate,
		activity:  activity,
		logger:    logger.With().Str("component", "auth_service").Logger(),
	}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (models.Tutor, error) {
	req.Email = models.NormaliseEmail(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return models.Tutor{}, err
	}

	tutor, err := s.tutors.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Info().Str("email", maskEmail(req.Email)).Msg("login for unknown tutor")
			return models.Tutor{}, ErrInvalidCredentials
		}
		return models.Tutor{}, err
	}

	if !tutor.CheckPassword(req.Password) {
		s.logger.Info().Uint("tutor_id", tutor.ID).Msg("login with wrong password")
		return models.Tutor{}, ErrInvalidCredentials
	}

	record(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    tutor.ID,
		ActorRole:  tutor.Role(),
		Action:     ActionTutorLogin,
		EntityType: "tutor",
		EntityID:   uintPtr(tutor.ID),
	})

	return tutor, nil
}

func (s *authService) UpdateName(ctx context.Context, tutor models.Tutor, req dto.SettingsRequest) (dto.TutorResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return dto.TutorResponse{}, err
	}

	updated, err := s.tutors.UpdateName(ctx, tutor.ID, req.Name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TutorResponse{}, ErrTutorNotFound
		}
		return dto.TutorResponse{}, err
	}

	record(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    tutor.ID,
		ActorRole:  tutor.Role(),
		Action:     ActionTutorRenamed,
		EntityType: "tutor",
		EntityID:   uintPtr(tutor.ID),
		Metadata:   map[string]interface{}{"name": updated.Name},
	})

	return dto.NewTutorResponse(updated), nil
}

func (s *authService) ListTutors(ctx context.Context) ([]dto.TutorResponse, error) {
	tutors, err := s.tutors.List(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NewTutorResponseSlice(tutors), nil
}

func maskEmail(email string) string {
	if email == "" {
		return ""
	}
	local, domain, found := strings.Cut(email, "@")
	if !found || local == "" {
		return "***"
	}
	if len(local) <= 2 {
		return local[:1] + "***@" + domain
	}
	return local[:1] + "***" + local[len(local)-1:] + "@" + domain
}
