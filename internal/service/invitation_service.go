package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
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

const (
	// InvitationSubject is the subject of invitation emails.
	InvitationSubject = "Terminal exeat signup"
	// LinkPlaceholder is replaced with each recipient's own signup link.
	LinkPlaceholder = "[link]"
)

// InvitationService emails students their signup links.
type InvitationService interface {
	Overview(ctx context.Context, tutor models.Tutor, now time.Time) (dto.InvitationOverview, error)
	Send(ctx context.Context, tutor models.Tutor, req dto.InvitationRequest) (dto.InvitationResult, error)
}

// InvitationConfig holds link and dedupe settings.
type InvitationConfig struct {
	BaseURL   string
	DedupeTTL time.Duration
}

type invitationService struct {
	students  repository.StudentRepository
	slots     repository.SlotRepository
	codec     signuplink.Codec
	notifier  notifier.Notifier
	cache     *redis.Client
	validator *validator.Validate
	activity  ActivityRecorder
	cfg       InvitationConfig
	markup    *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewInvitationService constructs the invitation service. cache may be nil,
// which disables duplicate suppression.
func NewInvitationService(students repository.StudentRepository, slots repository.SlotRepository, codec signuplink.Codec, mailer notifier.Notifier, cache *redis.Client, validate *validator.Validate, activity ActivityRecorder, cfg InvitationConfig, logger zerolog.Logger) InvitationService {
	if cfg.DedupeTTL <= 0 {
		cfg.DedupeTTL = 10 * time.Minute
	}
	return &invitationService{
		students:  students,
		slots:     slots,
		codec:     codec,
		notifier:  mailer,
		cache:     cache,
		validator: validate,
		activity:  activity,
		cfg:       cfg,
		markup:    bluemonday.UGCPolicy(),
		logger:    logger.With().Str("component", "invitation_service").Logger(),
		tracer:    observability.Tracer("service/invitation"),
	}
}

// Overview lists the tutor's students by name with their signup link and
// the start and attendance of the latest slot they hold.
func (s *invitationService) Overview(ctx context.Context, tutor models.Tutor, now time.Time) (dto.InvitationOverview, error) {
	students, err := s.students.ListByTutor(ctx, tutor.ID)
	if err != nil {
		return dto.InvitationOverview{}, err
	}

	ids := make([]uint, 0, len(students))
	for _, student := range students {
		ids = append(ids, student.ID)
	}
	latest, err := s.slots.LatestForStudents(ctx, ids)
	if err != nil {
		return dto.InvitationOverview{}, err
	}

	overview := dto.InvitationOverview{
		Tutor:    dto.NewTutorResponse(tutor),
		Students: make([]dto.InvitationStudent, 0, len(students)),
	}
	for _, student := range students {
		row := dto.InvitationStudent{
			ID:        student.ID,
			Name:      student.Name,
			Email:     student.Email,
			Alert:     student.Alert,
			SignupURL: signuplink.URL(s.cfg.BaseURL, s.codec.Encode(student)),
		}
		if slot, ok := latest[student.ID]; ok {
			start := slot.StartsAt
			attended := slot.Attended
			row.LastSlotStart = &start
			row.LastSlotAttended = &attended
			row.HasFutureBooking = !slot.StartsAt.Before(now)
		}
		overview.Students = append(overview.Students, row)
	}

	return overview, nil
}

// Send emails every selected student of the tutor, substituting their own
// link into a fresh copy of the body. Replies go to the tutor. Delivery
// failures are counted, not returned.
func (s *invitationService) Send(ctx context.Context, tutor models.Tutor, req dto.InvitationRequest) (dto.InvitationResult, error) {
	ctx, span := s.tracer.Start(ctx, "invitations.send", trace.WithAttributes(
		attribute.Int("invitations.requested", len(req.StudentIDs)),
	))
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		span.SetStatus(codes.Error, "validation failed")
		return dto.InvitationResult{}, err
	}

	students, err := s.students.ListByIDsForTutor(ctx, tutor.ID, req.StudentIDs)
	if err != nil {
		span.RecordError(err)
		return dto.InvitationResult{}, err
	}
	if len(students) == 0 {
		return dto.InvitationResult{}, ErrNoRecipients
	}

	result := dto.InvitationResult{FailedRecipients: []string{}}
	checksum := bodyChecksum(req.Body)

	messages := make([]notifier.Message, 0, len(students))
	keys := make([]string, 0, len(students))
	for _, student := range students {
		key := dedupeKey(student.ID, checksum)
		if s.isDuplicate(ctx, key) {
			result.Duplicates++
			observability.InvitationsTotal().WithLabelValues("duplicate").Inc()
			continue
		}
		messages = append(messages, s.invitation(tutor, student, req.Body))
		keys = append(keys, key)
	}

	for i, outcome := range s.notifier.SendBatch(ctx, messages) {
		if outcome.Sent() {
			result.Sent++
			observability.InvitationsTotal().WithLabelValues("sent").Inc()
			continue
		}
		s.release(ctx, keys[i])
		result.Failed++
		result.FailedRecipients = append(result.FailedRecipients, outcome.Recipient)
		observability.InvitationsTotal().WithLabelValues("failed").Inc()
		s.logger.Warn().Err(outcome.Err).Str("recipient", maskEmail(outcome.Recipient)).Msg("invitation not delivered")
	}

	span.SetAttributes(
		attribute.Int("invitations.sent", result.Sent),
		attribute.Int("invitations.failed", result.Failed),
		attribute.Int("invitations.duplicates", result.Duplicates),
	)

	record(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    tutor.ID,
		ActorRole:  tutor.Role(),
		Action:     ActionInvitationsSent,
		EntityType: "student",
		Metadata: map[string]interface{}{
			"sent":       result.Sent,
			"failed":     result.Failed,
			"duplicates": result.Duplicates,
			"checksum":   checksum,
		},
	})

	return result, nil
}

func (s *invitationService) invitation(tutor models.Tutor, student models.Student, body string) notifier.Message {
	link := signuplink.URL(s.cfg.BaseURL, s.codec.Encode(student))

	text := strings.ReplaceAll(body, LinkPlaceholder, link)

	// The body is plain text; angle brackets are content, not markup.
	markup := html.EscapeString(strings.ReplaceAll(body, "\r\n", "\n"))
	markup = strings.ReplaceAll(markup, "\n", "<br>\n")
	anchor := fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(link), html.EscapeString(link))
	markup = s.markup.Sanitize(strings.ReplaceAll(markup, LinkPlaceholder, anchor))

	return notifier.Message{
		To:      student.Email,
		Subject: InvitationSubject,
		Text:    text,
		HTML:    markup,
		ReplyTo: tutor.Email,
	}
}

func dedupeKey(studentID uint, checksum string) string {
	return fmt.Sprintf("invitations:dedupe:%d:%s", studentID, checksum)
}

// isDuplicate claims key for the dedupe window. Cache errors let the
// invitation through.
func (s *invitationService) isDuplicate(ctx context.Context, key string) bool {
	if s.cache == nil {
		return false
	}

	ok, err := s.cache.SetNX(ctx, key, 1, s.cfg.DedupeTTL).Result()
	if err != nil {
		s.logger.Warn().Err(err).Msg("invitation dedupe unavailable")
		return false
	}
	return !ok
}

// release lets a failed invitation be retried straight away.
func (s *invitationService) release(ctx context.Context, key string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, key).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to release invitation dedupe key")
	}
}

func bodyChecksum(body string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(body)))
	return hex.EncodeToString(sum[:])
}
