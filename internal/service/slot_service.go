package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/exeats-api/internal/dto"
	"github.com/noah-isme/exeats-api/internal/models"
	"github.com/noah-isme/exeats-api/internal/repository"
)

const (
	defaultSlotMinutes = 10
	maxSlotsPerBatch   = 500
	suggestionWindow   = 50
	suggestedStartHour = 9
)

// SlotService manages a tutor's bookable slots.
type SlotService interface {
	Create(ctx context.Context, tutor models.Tutor, req dto.CreateSlotsRequest) (int, error)
	Delete(ctx context.Context, tutor models.Tutor, ids []uint) (int64, error)
	Upcoming(ctx context.Context, tutor models.Tutor, now time.Time) ([]dto.SlotResponse, error)
	Today(ctx context.Context, tutor models.Tutor, now time.Time) ([]dto.SlotResponse, error)
	History(ctx context.Context, tutor models.Tutor, now time.Time) ([]dto.SlotResponse, error)
	ToggleAttended(ctx context.Context, tutor models.Tutor, id uint) (dto.SlotResponse, error)
	Suggestions(ctx context.Context, tutor models.Tutor, now time.Time) (dto.SlotSuggestion, error)
}

type slotService struct {
	slots     repository.SlotRepository
	validator *validator.Validate
	activity  ActivityRecorder
	location  *time.Location
	logger    zerolog.Logger
}

// NewSlotService constructs the slot service. Times are parsed and shown in loc.
func NewSlotService(slots repository.SlotRepository, validate *validator.Validate, activity ActivityRecorder, loc *time.Location, logger zerolog.Logger) SlotService {
	if loc == nil {
		loc = time.UTC
	}
	return &slotService{
		slots:     slots,
		validator: validate,
		activity:  activity,
		location:  loc,
		logger:    logger.With().Str("component", "slot_service").Logger(),
	}
}

// Create materialises one slot per duration step from the start while the
// step is before the end. The slot at the start is always created.
func (s *slotService) Create(ctx context.Context, tutor models.Tutor, req dto.CreateSlotsRequest) (int, error) {
	req.Location = strings.TrimSpace(req.Location)
	if err := s.validator.Struct(req); err != nil {
		return 0, err
	}

	starts, err := s.plan(req)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, start := range starts {
		slot := models.Slot{TutorID: tutor.ID, StartsAt: start, Location: req.Location}
		if err := s.slots.Create(ctx, &slot); err != nil {
			s.logger.Error().Err(err).Int("created", created).Msg("slot batch interrupted")
			return created, err
		}
		created++
	}

	record(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    tutor.ID,
		ActorRole:  tutor.Role(),
		Action:     ActionSlotsCreated,
		EntityType: "slot",
		Metadata: map[string]interface{}{
			"count":    created,
			"location": req.Location,
			"start":    req.Start,
		},
	})

	return created, nil
}

func (s *slotService) plan(req dto.CreateSlotsRequest) ([]time.Time, error) {
	start, err := time.ParseInLocation(dto.SlotTimeLayout, strings.TrimSpace(req.Start), s.location)
	if err != nil {
		return nil, ErrInvalidSlotTime
	}

	end := start
	if strings.TrimSpace(req.End) != "" {
		end, err = time.ParseInLocation(dto.SlotTimeLayout, strings.TrimSpace(req.End), s.location)
		if err != nil {
			return nil, ErrInvalidSlotTime
		}
	}

	duration := req.DurationMinutes
	if duration <= 0 {
		duration = defaultSlotMinutes
	}
	step := time.Duration(duration) * time.Minute

	var starts []time.Time
	current := start
	for {
		starts = append(starts, current)
		if len(starts) > maxSlotsPerBatch {
			return nil, ErrTooManySlots
		}
		current = current.Add(step)
		if !current.Before(end) {
			break
		}
	}
	return starts, nil
}

func (s *slotService) Delete(ctx context.Context, tutor models.Tutor, ids []uint) (int64, error) {
	deleted, err := s.slots.DeleteForTutor(ctx, tutor.ID, ids)
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		record(ctx, s.activity, s.logger, ActivityEntry{
			ActorID:    tutor.ID,
			ActorRole:  tutor.Role(),
			Action:     ActionSlotsDeleted,
			EntityType: "slot",
			Metadata:   map[string]interface{}{"count": deleted, "ids": ids},
		})
	}
	return deleted, nil
}

func (s *slotService) Upcoming(ctx context.Context, tutor models.Tutor, now time.Time) ([]dto.SlotResponse, error) {
	return s.listFrom(ctx, tutor, now)
}

// Today lists slots from local midnight, so slots earlier today stay visible.
func (s *slotService) Today(ctx context.Context, tutor models.Tutor, now time.Time) ([]dto.SlotResponse, error) {
	local := now.In(s.location)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.location)
	return s.listFrom(ctx, tutor, midnight)
}

func (s *slotService) listFrom(ctx context.Context, tutor models.Tutor, from time.Time) ([]dto.SlotResponse, error) {
	slots, err := s.slots.ListFrom(ctx, tutor.ID, from)
	if err != nil {
		return nil, err
	}
	return dto.NewSlotResponseSlice(slots, s.location), nil
}

func (s *slotService) History(ctx context.Context, tutor models.Tutor, now time.Time) ([]dto.SlotResponse, error) {
	slots, err := s.slots.ListPastAllocated(ctx, tutor.ID, now)
	if err != nil {
		return nil, err
	}
	return dto.NewSlotResponseSlice(slots, s.location), nil
}

func (s *slotService) ToggleAttended(ctx context.Context, tutor models.Tutor, id uint) (dto.SlotResponse, error) {
	slot, err := s.slots.ToggleAttended(ctx, tutor.ID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SlotResponse{}, ErrSlotNotFound
		}
		return dto.SlotResponse{}, err
	}

	record(ctx, s.activity, s.logger, ActivityEntry{
		ActorID:    tutor.ID,
		ActorRole:  tutor.Role(),
		Action:     ActionSlotAttended,
		EntityType: "slot",
		EntityID:   uintPtr(slot.ID),
		Metadata:   map[string]interface{}{"attended": slot.Attended},
	})

	return dto.NewSlotResponse(slot, s.location), nil
}

// Suggestions pre-fills the next batch: 09:00 tomorrow, the location of the
// newest slot and the usual gap between the tutor's recent slots.
func (s *slotService) Suggestions(ctx context.Context, tutor models.Tutor, now time.Time) (dto.SlotSuggestion, error) {
	local := now.In(s.location)
	tomorrow := time.Date(local.Year(), local.Month(), local.Day()+1, suggestedStartHour, 0, 0, 0, s.location)

	suggestion := dto.SlotSuggestion{
		SuggestedStart:  tomorrow.Format(dto.SlotTimeLayout),
		DurationMinutes: defaultSlotMinutes,
	}

	recent, err := s.slots.Recent(ctx, tutor.ID, suggestionWindow)
	if err != nil {
		return suggestion, err
	}
	if len(recent) > 0 {
		suggestion.Location = recent[0].Location
	}
	suggestion.DurationMinutes = typicalGapMinutes(recent)

	return suggestion, nil
}

// typicalGapMinutes returns the unique mode of the gaps between consecutive
// slot starts, the median when the mode is shared, and the default when
// fewer than two slots exist.
func typicalGapMinutes(slots []models.Slot) int {
	if len(slots) < 2 {
		return defaultSlotMinutes
	}

	starts := make([]time.Time, 0, len(slots))
	for _, slot := range slots {
		starts = append(starts, slot.StartsAt)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	var gaps []int
	for i := 1; i < len(starts); i++ {
		gap := int(starts[i].Sub(starts[i-1]) / time.Minute)
		if gap > 0 {
			gaps = append(gaps, gap)
		}
	}
	if len(gaps) == 0 {
		return defaultSlotMinutes
	}

	if mode, ok := uniqueMode(gaps); ok {
		return mode
	}
	return median(gaps)
}

func uniqueMode(values []int) (int, bool) {
	counts := make(map[int]int, len(values))
	best, bestCount, tied := 0, 0, false
	for _, v := range values {
		counts[v]++
	}
	for v, count := range counts {
		switch {
		case count > bestCount:
			best, bestCount, tied = v, count, false
		case count == bestCount:
			tied = true
		}
	}
	return best, !tied
}

func median(values []int) int {
	sorted := append([]int(nil), values...)
	sort.Ints(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
