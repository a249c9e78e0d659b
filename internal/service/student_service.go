package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/exeats-api/internal/dto"
	"github.com/noah-isme/exeats-api/internal/models"
	"github.com/noah-isme/exeats-api/internal/repository"
	"github.com/noah-isme/exeats-api/internal/roster"
)

// StudentService manages a tutor's student directory.
type StudentService interface {
	List(ctx context.Context, tutor models.Tutor) ([]dto.StudentResponse, error)
	BulkAdd(ctx context.Context, tutor models.Tutor, text string) (dto.ImportStudentsResponse, error)
	Delete(ctx context.Context, tutor models.Tutor, ids []uint) (int64, error)
	ToggleAlert(ctx context.Context, tutor models.Tutor, id uint) (dto.StudentResponse, error)
}

type studentService struct {
	students repository.StudentRepository
	parsers  []roster.Parser
	activity ActivityRecorder
	logger   zerolog.Logger
}

// NewStudentService constructs the student service. Rosters are parsed with
// roster.DefaultParsers unless parsers are given.
func NewStudentService(students repository.StudentRepository, activity ActivityRecorder, logger zerolog.Logger, parsers ...roster.Parser) StudentService {
	if len(parsers) == 0 {
		parsers = roster.DefaultParsers()
	}
	return &studentService{
		students: students,
		parsers:  parsers,
		activity: activity,
		logger:   logger.With().Str("component", "student_service").Logger(),
	}
}

func (s *studentService) List(ctx context.Context, tutor models.Tutor) ([]dto.StudentResponse, error) {
	students, err := s.students.ListByTutor(ctx, tutor.ID)
	if err != nil {
		return nil, err
	}
	return dto.NewStudentResponseSlice(students), nil
}

// BulkAdd creates a student for every parsed entry whose email is not
// already used by any student in the system. Entries created before a
// failure are kept.
func (s *studentService) BulkAdd(ctx context.Context, tutor models.Tutor, text string) (dto.ImportStudentsResponse, error) {
	result, err := roster.Parse(text, s.parsers...)
	if err != nil {
		if errors.Is(err, roster.ErrUnrecognisedFormat) {
			return dto.ImportStudentsResponse{}, ErrUnrecognisedRoster
		}
		return dto.ImportStudentsResponse{}, err
	}

	response := dto.ImportStudentsResponse{Format: result.Format, Rejected: result.Rejected}
	if response.Rejected == nil {
		response.Rejected = []string{}
	}

	for _, entry := range result.Entries {
		exists, err := s.students.EmailExists(ctx, entry.Email)
		if err != nil {
			return response, err
		}
		if exists {
			response.Skipped++
			continue
		}

		student := models.Student{TutorID: tutor.ID, Name: entry.Name, Email: entry.Email}
		if err := s.students.Create(ctx, &student); err != nil {
			s.logger.Error().Err(err).Int("added", response.Added).Msg("student import interrupted")
			return response, err
		}
		response.Added++
	}

	s.logger.Info().
		Uint("tutor_id", tutor.ID).
		Str("format", response.Format).
		Int("added", response.Added).
		Int("skipped", response.Skipped).
		Int("rejected", len(response.Rejected)).
		Msg("roster imported")

	record(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    tutor.ID,
		ActorRole:  tutor.Role(),
		Action:     ActionStudentsImported,
		EntityType: "student",
		Metadata: map[string]interface{}{
			"format":   response.Format,
			"added":    response.Added,
			"skipped":  response.Skipped,
			"rejected": len(response.Rejected),
		},
	})

	return response, nil
}

func (s *studentService) Delete(ctx context.Context, tutor models.Tutor, ids []uint) (int64, error) {
	deleted, err := s.students.DeleteForTutor(ctx, tutor.ID, ids)
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		record(ctx, s.activity, s.logger, ActivityEntry{
			ActorID:    tutor.ID,
			ActorRole:  tutor.Role(),
			Action:     ActionStudentsDeleted,
			EntityType: "student",
			Metadata:   map[string]interface{}{"count": deleted, "ids": ids},
		})
	}
	return deleted, nil
}

func (s *studentService) ToggleAlert(ctx context.Context, tutor models.Tutor, id uint) (dto.StudentResponse, error) {
	student, err := s.students.ToggleAlert(ctx, tutor.ID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.StudentResponse{}, ErrStudentNotFound
		}
		return dto.StudentResponse{}, err
	}

	record(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    tutor.ID,
		ActorRole:  tutor.Role(),
		Action:     ActionStudentAlert,
		EntityType: "student",
		EntityID:   uintPtr(student.ID),
		Metadata:   map[string]interface{}{"alert": student.Alert},
	})

	return dto.NewStudentResponse(student), nil
}
