package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exeats-api/internal/dto"
	"github.com/noah-isme/exeats-api/internal/models"
	"github.com/noah-isme/exeats-api/internal/repository"
)

func newSlotService(t *testing.T) (SlotService, *stubActivityRecorder, models.Tutor, *time.Location, repository.SlotRepository) {
	t.Helper()
	db := setupServiceDB(t)
	tutor := createTutor(t, db, "Tutor", "tutor@example.com")
	loc := london(t)
	activity := &stubActivityRecorder{}
	repo := repository.NewSlotRepository(db)
	return NewSlotService(repo, testValidator(), activity, loc, testLogger()), activity, tutor, loc, repo
}

func startsOf(t *testing.T, svc SlotService, tutor models.Tutor, from time.Time) []string {
	t.Helper()
	slots, err := svc.Upcoming(context.Background(), tutor, from)
	require.NoError(t, err)
	out := make([]string, 0, len(slots))
	for _, slot := range slots {
		out = append(out, slot.Start)
	}
	return out
}

func TestSlotServiceCreateStepsUntilEnd(t *testing.T) {
	svc, activity, tutor, loc, _ := newSlotService(t)

	created, err := svc.Create(context.Background(), tutor, dto.CreateSlotsRequest{
		Start:           "10/01/30 09:00",
		End:             "10/01/30 10:00",
		DurationMinutes: 10,
		Location:        " Porters' Lodge ",
	})
	require.NoError(t, err)
	require.Equal(t, 6, created)

	from := time.Date(2030, time.January, 10, 0, 0, 0, 0, loc)
	require.Equal(t, []string{
		"10/01/30 09:00", "10/01/30 09:10", "10/01/30 09:20",
		"10/01/30 09:30", "10/01/30 09:40", "10/01/30 09:50",
	}, startsOf(t, svc, tutor, from))
	require.Equal(t, []string{ActionSlotsCreated}, activity.actions())
}

func TestSlotServiceCreateAlwaysMakesOneSlot(t *testing.T) {
	tests := []struct {
		name string
		end  string
	}{
		{name: "end equals start", end: "10/01/30 09:00"},
		{name: "end before start", end: "10/01/30 08:00"},
		{name: "no end", end: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, _, tutor, _, _ := newSlotService(t)
			created, err := svc.Create(context.Background(), tutor, dto.CreateSlotsRequest{
				Start:    "10/01/30 09:00",
				End:      tc.end,
				Location: "Library",
			})
			require.NoError(t, err)
			require.Equal(t, 1, created)
		})
	}
}

func TestSlotServiceDurationDefaultsToTenMinutes(t *testing.T) {
	for _, duration := range []int{0, -5, 10} {
		t.Run(fmt.Sprintf("duration_%d", duration), func(t *testing.T) {
			svc, _, tutor, loc, _ := newSlotService(t)
			created, err := svc.Create(context.Background(), tutor, dto.CreateSlotsRequest{
				Start:           "10/01/30 09:00",
				End:             "10/01/30 09:30",
				DurationMinutes: duration,
				Location:        "Library",
			})
			require.NoError(t, err)
			require.Equal(t, 3, created)

			from := time.Date(2030, time.January, 10, 0, 0, 0, 0, loc)
			require.Equal(t, []string{"10/01/30 09:00", "10/01/30 09:10", "10/01/30 09:20"}, startsOf(t, svc, tutor, from))
		})
	}
}

func TestSlotServiceCreateStoresLondonTime(t *testing.T) {
	svc, _, tutor, _, repo := newSlotService(t)

	_, err := svc.Create(context.Background(), tutor, dto.CreateSlotsRequest{Start: "01/07/30 09:00", Location: "Library"})
	require.NoError(t, err)

	slots, err := repo.Recent(context.Background(), tutor.ID, 1)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	require.True(t, slots[0].StartsAt.Equal(time.Date(2030, time.July, 1, 8, 0, 0, 0, time.UTC)))
}

func TestSlotServiceCreateRejectsBadInput(t *testing.T) {
	svc, _, tutor, _, _ := newSlotService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, tutor, dto.CreateSlotsRequest{Start: "2030-01-10 09:00", Location: "Library"})
	require.ErrorIs(t, err, ErrInvalidSlotTime)

	_, err = svc.Create(ctx, tutor, dto.CreateSlotsRequest{Start: "10/01/30 09:00", End: "tomorrow", Location: "Library"})
	require.ErrorIs(t, err, ErrInvalidSlotTime)

	_, err = svc.Create(ctx, tutor, dto.CreateSlotsRequest{Start: "10/01/30 09:00", End: "10/01/31 09:00", DurationMinutes: 1, Location: "Library"})
	require.ErrorIs(t, err, ErrTooManySlots)

	_, err = svc.Create(ctx, tutor, dto.CreateSlotsRequest{Start: "10/01/30 09:00", Location: "   "})
	require.Error(t, err)
}

func TestSlotServiceToggleAttendedScopedToTutor(t *testing.T) {
	db := setupServiceDB(t)
	owner := createTutor(t, db, "Owner", "owner@example.com")
	other := createTutor(t, db, "Other", "other@example.com")
	slot := createSlot(t, db, owner.ID, time.Now().Add(-time.Hour), "Library", nil)

	svc := NewSlotService(repository.NewSlotRepository(db), testValidator(), nil, time.UTC, testLogger())

	_, err := svc.ToggleAttended(context.Background(), other, slot.ID)
	require.ErrorIs(t, err, ErrSlotNotFound)

	toggled, err := svc.ToggleAttended(context.Background(), owner, slot.ID)
	require.NoError(t, err)
	require.True(t, toggled.Attended)
}

func TestSlotServiceTodayIncludesEarlierSlots(t *testing.T) {
	db := setupServiceDB(t)
	tutor := createTutor(t, db, "Tutor", "tutor@example.com")
	loc := london(t)
	now := time.Date(2030, time.March, 4, 14, 0, 0, 0, loc)

	createSlot(t, db, tutor.ID, now.Add(-24*time.Hour), "Library", nil)
	morning := createSlot(t, db, tutor.ID, now.Add(-5*time.Hour), "Library", nil)
	later := createSlot(t, db, tutor.ID, now.Add(time.Hour), "Library", nil)

	svc := NewSlotService(repository.NewSlotRepository(db), testValidator(), nil, loc, testLogger())

	today, err := svc.Today(context.Background(), tutor, now)
	require.NoError(t, err)
	require.Len(t, today, 2)
	require.Equal(t, morning.ID, today[0].ID)
	require.Equal(t, later.ID, today[1].ID)

	upcoming, err := svc.Upcoming(context.Background(), tutor, now)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	require.Equal(t, later.ID, upcoming[0].ID)
}

func TestSlotServiceHistoryListsAllocatedPastSlotsNewestFirst(t *testing.T) {
	db := setupServiceDB(t)
	tutor := createTutor(t, db, "Tutor", "tutor@example.com")
	student := createStudent(t, db, tutor.ID, "Ada", "ada@cam.ac.uk")
	now := time.Now()

	older := createSlot(t, db, tutor.ID, now.Add(-48*time.Hour), "Library", &student.ID)
	newer := createSlot(t, db, tutor.ID, now.Add(-24*time.Hour), "Library", &student.ID)
	createSlot(t, db, tutor.ID, now.Add(-12*time.Hour), "Library", nil)
	createSlot(t, db, tutor.ID, now.Add(24*time.Hour), "Library", &student.ID)

	svc := NewSlotService(repository.NewSlotRepository(db), testValidator(), nil, time.UTC, testLogger())

	history, err := svc.History(context.Background(), tutor, now)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, newer.ID, history[0].ID)
	require.Equal(t, older.ID, history[1].ID)
	require.NotNil(t, history[0].AllocatedTo)
	require.Equal(t, "Ada", history[0].AllocatedTo.Name)
}

func TestSlotServiceSuggestions(t *testing.T) {
	db := setupServiceDB(t)
	tutor := createTutor(t, db, "Tutor", "tutor@example.com")
	loc := london(t)
	base := time.Date(2030, time.May, 1, 9, 0, 0, 0, loc)

	createSlot(t, db, tutor.ID, base, "Hall", nil)
	createSlot(t, db, tutor.ID, base.Add(15*time.Minute), "Hall", nil)
	createSlot(t, db, tutor.ID, base.Add(30*time.Minute), "Hall", nil)
	createSlot(t, db, tutor.ID, base.Add(40*time.Minute), "Library", nil)

	svc := NewSlotService(repository.NewSlotRepository(db), testValidator(), nil, loc, testLogger())

	now := time.Date(2030, time.May, 1, 23, 30, 0, 0, loc)
	suggestion, err := svc.Suggestions(context.Background(), tutor, now)
	require.NoError(t, err)
	require.Equal(t, "02/05/30 09:00", suggestion.SuggestedStart)
	require.Equal(t, "Library", suggestion.Location)
	require.Equal(t, 15, suggestion.DurationMinutes)
}

func TestSlotServiceSuggestionsWithoutHistory(t *testing.T) {
	svc, _, tutor, _, _ := newSlotService(t)

	suggestion, err := svc.Suggestions(context.Background(), tutor, time.Now())
	require.NoError(t, err)
	require.Equal(t, "", suggestion.Location)
	require.Equal(t, 10, suggestion.DurationMinutes)
}

func TestTypicalGapMinutes(t *testing.T) {
	base := time.Date(2030, time.May, 1, 9, 0, 0, 0, time.UTC)
	slotsAt := func(offsets ...int) []models.Slot {
		slots := make([]models.Slot, 0, len(offsets))
		for _, offset := range offsets {
			slots = append(slots, models.Slot{StartsAt: base.Add(time.Duration(offset) * time.Minute)})
		}
		return slots
	}

	tests := []struct {
		name  string
		slots []models.Slot
		want  int
	}{
		{name: "no slots", slots: nil, want: 10},
		{name: "single slot", slots: slotsAt(0), want: 10},
		{name: "unique mode", slots: slotsAt(0, 20, 40, 45), want: 20},
		{name: "unordered input", slots: slotsAt(45, 0, 40, 20), want: 20},
		{name: "tied mode uses median", slots: slotsAt(0, 5, 35), want: 17},
		{name: "odd median", slots: slotsAt(0, 5, 15, 45), want: 10},
		{name: "duplicate starts ignored", slots: slotsAt(0, 0, 0), want: 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, typicalGapMinutes(tc.slots))
		})
	}
}
