package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exeats-api/internal/models"
	"github.com/noah-isme/exeats-api/internal/repository"
)

func TestStudentServiceBulkAddSkipsEmailsUsedAnywhere(t *testing.T) {
	db := setupServiceDB(t)
	tutor := createTutor(t, db, "Tutor", "tutor@example.com")
	other := createTutor(t, db, "Other", "other@example.com")
	createStudent(t, db, other.ID, "Existing", "abc12@cam.ac.uk")

	activity := &stubActivityRecorder{}
	svc := NewStudentService(repository.NewStudentRepository(db), activity, testLogger())

	result, err := svc.BulkAdd(context.Background(), tutor, "Lovelace, Ada, ada1\nNew Person, ABC12\nGrace Hopper, gh@example.com\n\n")
	require.NoError(t, err)
	require.Equal(t, "comma", result.Format)
	require.Equal(t, 2, result.Added)
	require.Equal(t, 1, result.Skipped)
	require.Empty(t, result.Rejected)
	require.Equal(t, []string{ActionStudentsImported}, activity.actions())

	students, err := svc.List(context.Background(), tutor)
	require.NoError(t, err)
	require.Len(t, students, 2)
	require.Equal(t, "Ada Lovelace", students[0].Name)
	require.Equal(t, "ada1@cam.ac.uk", students[0].Email)
	require.Equal(t, "Grace Hopper", students[1].Name)
}

func TestStudentServiceBulkAddSkipsRepeatsWithinImport(t *testing.T) {
	db := setupServiceDB(t)
	tutor := createTutor(t, db, "Tutor", "tutor@example.com")
	svc := NewStudentService(repository.NewStudentRepository(db), nil, testLogger())

	result, err := svc.BulkAdd(context.Background(), tutor, `"Ada Lovelace" <ada@example.com>, Ada L <ADA@example.com>`)
	require.NoError(t, err)
	require.Equal(t, 1, result.Added)
	require.Equal(t, 1, result.Skipped)
}

func TestStudentServiceBulkAddRejectsUnknownFormat(t *testing.T) {
	db := setupServiceDB(t)
	tutor := createTutor(t, db, "Tutor", "tutor@example.com")
	svc := NewStudentService(repository.NewStudentRepository(db), nil, testLogger())

	_, err := svc.BulkAdd(context.Background(), tutor, "   \n  ")
	require.ErrorIs(t, err, ErrUnrecognisedRoster)
}

func TestStudentServiceToggleAlertScopedToTutor(t *testing.T) {
	db := setupServiceDB(t)
	owner := createTutor(t, db, "Owner", "owner@example.com")
	other := createTutor(t, db, "Other", "other@example.com")
	student := createStudent(t, db, owner.ID, "Ada", "ada@cam.ac.uk")
	svc := NewStudentService(repository.NewStudentRepository(db), nil, testLogger())

	_, err := svc.ToggleAlert(context.Background(), other, student.ID)
	require.ErrorIs(t, err, ErrStudentNotFound)

	toggled, err := svc.ToggleAlert(context.Background(), owner, student.ID)
	require.NoError(t, err)
	require.True(t, toggled.Alert)
}

func TestStudentServiceDeleteReleasesBookings(t *testing.T) {
	db := setupServiceDB(t)
	tutor := createTutor(t, db, "Tutor", "tutor@example.com")
	other := createTutor(t, db, "Other", "other@example.com")
	student := createStudent(t, db, tutor.ID, "Ada", "ada@cam.ac.uk")
	foreign := createStudent(t, db, other.ID, "Grace", "grace@cam.ac.uk")
	slot := createSlot(t, db, tutor.ID, inDays(3), "Library", &student.ID)

	activity := &stubActivityRecorder{}
	svc := NewStudentService(repository.NewStudentRepository(db), activity, testLogger())

	deleted, err := svc.Delete(context.Background(), tutor, []uint{student.ID, foreign.ID})
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)
	require.Nil(t, loadSlot(t, db, slot.ID).AllocatedToID)
	require.Equal(t, []string{ActionStudentsDeleted}, activity.actions())

	var remaining int64
	require.NoError(t, db.Model(&models.Student{}).Count(&remaining).Error)
	require.Equal(t, int64(1), remaining)
}
