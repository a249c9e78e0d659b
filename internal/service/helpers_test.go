package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/exeats-api/internal/dto"
	"github.com/noah-isme/exeats-api/internal/models"
	"github.com/noah-isme/exeats-api/internal/notifier"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func london(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)
	return loc
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared&_foreign_keys=on", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func createTutor(t *testing.T, db *gorm.DB, name, email string) models.Tutor {
	t.Helper()
	tutor := models.Tutor{Name: name, Email: email}
	require.NoError(t, tutor.SetPassword("correct horse"))
	require.NoError(t, db.Create(&tutor).Error)
	return tutor
}

func createStudent(t *testing.T, db *gorm.DB, tutorID uint, name, email string) models.Student {
	t.Helper()
	student := models.Student{TutorID: tutorID, Name: name, Email: email}
	require.NoError(t, db.Create(&student).Error)
	return student
}

func createSlot(t *testing.T, db *gorm.DB, tutorID uint, start time.Time, location string, allocatedTo *uint) models.Slot {
	t.Helper()
	slot := models.Slot{TutorID: tutorID, StartsAt: start.UTC(), Location: location, AllocatedToID: allocatedTo}
	require.NoError(t, db.Create(&slot).Error)
	return slot
}

func loadSlot(t *testing.T, db *gorm.DB, id uint) models.Slot {
	t.Helper()
	var slot models.Slot
	require.NoError(t, db.First(&slot, id).Error)
	return slot
}

type recordingNotifier struct {
	mu      sync.Mutex
	sent    []notifier.Message
	failFor map[string]bool
}

func (n *recordingNotifier) Send(_ context.Context, msg notifier.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.failFor[msg.To] {
		return errors.New("provider rejected message")
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *recordingNotifier) SendBatch(ctx context.Context, msgs []notifier.Message) []notifier.Result {
	results := make([]notifier.Result, 0, len(msgs))
	for _, msg := range msgs {
		results = append(results, notifier.Result{Recipient: msg.To, Err: n.Send(ctx, msg)})
	}
	return results
}

func (n *recordingNotifier) messages() []notifier.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notifier.Message(nil), n.sent...)
}

type stubActivityRecorder struct {
	mu      sync.Mutex
	entries []ActivityEntry
}

func (s *stubActivityRecorder) Record(_ context.Context, entry ActivityEntry) (dto.ActivityResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return dto.ActivityResponse{Action: entry.Action, EntityType: entry.EntityType, EntityID: entry.EntityID}, nil
}

func (s *stubActivityRecorder) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, entry.Action)
	}
	return out
}

type stubFeed struct {
	mu     sync.Mutex
	events []dto.BookingEvent
}

func (f *stubFeed) Publish(_ context.Context, event dto.BookingEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *stubFeed) Subscribe(uint) (<-chan dto.BookingEvent, func()) {
	ch := make(chan dto.BookingEvent)
	return ch, func() {}
}

func (f *stubFeed) Start(context.Context) {}

func inDays(days int) time.Time {
	return time.Now().Add(time.Duration(days) * 24 * time.Hour)
}
