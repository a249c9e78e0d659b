package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/exeats-api/internal/dto"
	"github.com/noah-isme/exeats-api/internal/models"
	"github.com/noah-isme/exeats-api/internal/notifier"
	"github.com/noah-isme/exeats-api/internal/observability"
	"github.com/noah-isme/exeats-api/internal/repository"
	"github.com/noah-isme/exeats-api/internal/signuplink"
)

// ConfirmationSubject is the subject of booking confirmation emails.
const ConfirmationSubject = "Terminal exeat confirmation"

// BookingService serves the unauthenticated signup pages. Students are only
// ever identified through their signup token.
type BookingService interface {
	Options(ctx context.Context, token string, now time.Time) (dto.SignupPage, error)
	Book(ctx context.Context, token string, slotID uint, now time.Time) (dto.BookingResponse, error)
}

// BookingConfig holds the settings used in confirmation emails.
type BookingConfig struct {
	BaseURL  string
	Location *time.Location
}

type bookingService struct {
	resolver *signuplink.Resolver
	slots    repository.SlotRepository
	tutors   repository.TutorRepository
	notifier notifier.Notifier
	feed     FeedService
	activity ActivityRecorder
	cfg      BookingConfig
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// NewBookingService constructs the booking service. feed and activity may be nil.
func NewBookingService(resolver *signuplink.Resolver, slots repository.SlotRepository, tutors repository.TutorRepository, mailer notifier.Notifier, feed FeedService, activity ActivityRecorder, cfg BookingConfig, logger zerolog.Logger) BookingService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &bookingService{
		resolver: resolver,
		slots:    slots,
		tutors:   tutors,
		notifier: mailer,
		feed:     feed,
		activity: activity,
		cfg:      cfg,
		logger:   logger.With().Str("component", "booking_service").Logger(),
		tracer:   observability.Tracer("service/booking"),
	}
}

func (s *bookingService) resolve(ctx context.Context, token string) (models.Student, error) {
	student, err := s.resolver.Resolve(ctx, token)
	if err != nil {
		if errors.Is(err, signuplink.ErrInvalidToken) {
			return models.Student{}, ErrInvalidSignupToken
		}
		return models.Student{}, err
	}
	return student, nil
}

// Options lists the future slots of the student's tutor, marking the one the
// student holds.
func (s *bookingService) Options(ctx context.Context, token string, now time.Time) (dto.SignupPage, error) {
	student, err := s.resolve(ctx, token)
	if err != nil {
		return dto.SignupPage{}, err
	}

	slots, err := s.slots.ListFrom(ctx, student.TutorID, now)
	if err != nil {
		return dto.SignupPage{}, err
	}

	page := dto.SignupPage{
		Student: student.Name,
		Slots:   make([]dto.SignupSlot, 0, len(slots)),
	}
	if tutor, err := s.tutors.GetByID(ctx, student.TutorID); err == nil {
		page.Tutor = tutor.Name
	}

	for _, slot := range slots {
		option := dto.NewSignupSlot(slot, student.ID, s.cfg.Location)
		if option.Mine && page.Current == nil {
			current := option
			page.Current = &current
		}
		page.Slots = append(page.Slots, option)
	}

	return page, nil
}

// Book claims slotID for the student behind token. A slot that is taken,
// belongs to another tutor or does not exist yields the unavailable status
// and leaves the student's existing booking alone. The confirmation email is
// best effort and never undoes the booking.
func (s *bookingService) Book(ctx context.Context, token string, slotID uint, now time.Time) (dto.BookingResponse, error) {
	ctx, span := s.tracer.Start(ctx, "booking.book", trace.WithAttributes(
		attribute.Int64("booking.slot_id", int64(slotID)),
	))
	defer span.End()

	student, err := s.resolve(ctx, token)
	if err != nil {
		span.SetStatus(codes.Error, "invalid token")
		return dto.BookingResponse{}, err
	}
	span.SetAttributes(attribute.Int64("booking.student_id", int64(student.ID)))

	logger := s.logger.With().Uint("student_id", student.ID).Uint("slot_id", slotID).Logger()

	previous, err := s.slots.FutureForStudent(ctx, student.ID, now)
	if err != nil {
		logger.Warn().Err(err).Msg("could not load current booking")
		previous = nil
	}

	slot, err := s.slots.Allocate(ctx, student.TutorID, slotID, student.ID, now)
	if err != nil {
		if errors.Is(err, repository.ErrSlotUnavailable) {
			observability.BookingsTotal().WithLabelValues(dto.BookingStatusUnavailable).Inc()
			logger.Info().Msg("slot unavailable")
			return dto.BookingResponse{Status: dto.BookingStatusUnavailable}, nil
		}
		observability.BookingsTotal().WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "allocation failed")
		return dto.BookingResponse{}, fmt.Errorf("allocate slot: %w", err)
	}
	observability.BookingsTotal().WithLabelValues(dto.BookingStatusBooked).Inc()

	var released *uint
	if previous != nil && previous.ID != slot.ID {
		released = uintPtr(previous.ID)
	}

	metadata := map[string]interface{}{"slot_id": slot.ID, "starts_at": slot.StartsAt}
	if released != nil {
		metadata["released_slot_id"] = *released
	}
	record(ctx, s.activity, logger, ActivityEntry{
		ActorID:    student.ID,
		ActorRole:  models.RoleStudent,
		Action:     ActionSlotBooked,
		EntityType: "slot",
		EntityID:   uintPtr(slot.ID),
		Metadata:   metadata,
	})

	if s.feed != nil {
		event := dto.BookingEvent{
			Type:           dto.FeedEventBooked,
			TutorID:        slot.TutorID,
			SlotID:         slot.ID,
			StudentID:      student.ID,
			StudentName:    student.Name,
			StartsAt:       slot.StartsAt,
			Location:       slot.Location,
			ReleasedSlotID: released,
			OccurredAt:     now.UTC(),
		}
		if err := s.feed.Publish(ctx, event); err != nil {
			logger.Warn().Err(err).Msg("failed to fan out booking event")
		}
	}

	option := dto.NewSignupSlot(slot, student.ID, s.cfg.Location)
	response := dto.BookingResponse{Status: dto.BookingStatusBooked, Slot: &option}

	if err := s.notifier.Send(ctx, s.confirmation(student, slot)); err != nil {
		span.RecordError(err)
		logger.Warn().Err(err).Msg("confirmation email failed")
	} else {
		response.EmailSent = true
	}

	logger.Info().Bool("email_sent", response.EmailSent).Msg("slot booked")
	return response, nil
}

func (s *bookingService) confirmation(student models.Student, slot models.Slot) notifier.Message {
	link := signuplink.URL(s.cfg.BaseURL, s.resolver.Codec().Encode(student))
	start := slot.StartsAt.In(s.cfg.Location).Format(dto.SlotTimeLayout)

	text := fmt.Sprintf("Dear %s,\n\nYour terminal exeat is booked for %s at %s.\n\nTo change your booking, visit %s\n",
		student.Name, start, slot.Location, link)

	return notifier.Message{
		To:      student.Email,
		Subject: ConfirmationSubject,
		Text:    text,
	}
}
