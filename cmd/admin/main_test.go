package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/exeats-api/internal/models"
	"github.com/noah-isme/exeats-api/internal/repository"
)

func newTestAdmin(t *testing.T, passwords ...string) (admin, *gorm.DB, *bytes.Buffer) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:admin_%s?mode=memory&cache=shared", name)), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))

	var out bytes.Buffer
	prompts := append([]string(nil), passwords...)
	a := admin{
		tutors: repository.NewTutorRepository(db),
		migrate: func(context.Context, bool) error {
			return nil
		},
		readPassword: func(string) (string, error) {
			if len(prompts) == 0 {
				return "", fmt.Errorf("no more input")
			}
			next := prompts[0]
			prompts = prompts[1:]
			return next, nil
		},
		out: &out,
	}
	return a, db, &out
}

func TestAddUserPromptsForPassword(t *testing.T) {
	a, db, out := newTestAdmin(t, "correct horse", "correct horse")

	err := a.run(context.Background(), []string{"adduser", "-name", "Dr Tutor", "-email", "Tutor@Example.com", "-admin"})
	require.NoError(t, err)
	require.Contains(t, out.String(), "<tutor@example.com>")

	var tutor models.Tutor
	require.NoError(t, db.Where("email = ?", "tutor@example.com").First(&tutor).Error)
	require.True(t, tutor.IsAdmin)
	require.True(t, tutor.CheckPassword("correct horse"))
}

func TestAddUserRejectsMismatchedOrShortPasswords(t *testing.T) {
	a, _, _ := newTestAdmin(t, "correct horse", "battery staple")
	err := a.run(context.Background(), []string{"adduser", "-name", "Dr Tutor", "-email", "tutor@example.com"})
	require.ErrorContains(t, err, "do not match")

	err = a.run(context.Background(), []string{"adduser", "-name", "Dr Tutor", "-email", "tutor@example.com", "-password", "short"})
	require.ErrorContains(t, err, "at least")

	err = a.run(context.Background(), []string{"adduser", "-email", "tutor@example.com"})
	require.ErrorContains(t, err, "required")
}

func TestResetPassword(t *testing.T) {
	a, db, _ := newTestAdmin(t)
	require.NoError(t, a.run(context.Background(), []string{"adduser", "-name", "Dr Tutor", "-email", "tutor@example.com", "-password", "first password"}))

	require.NoError(t, a.run(context.Background(), []string{"resetpassword", "-email", "TUTOR@example.com", "-password", "second password"}))

	var tutor models.Tutor
	require.NoError(t, db.Where("email = ?", "tutor@example.com").First(&tutor).Error)
	require.True(t, tutor.CheckPassword("second password"))
	require.False(t, tutor.CheckPassword("first password"))

	err := a.run(context.Background(), []string{"resetpassword", "-email", "nobody@example.com", "-password", "whatever123"})
	require.ErrorContains(t, err, "no tutor")
}

func TestMigrateAndUsage(t *testing.T) {
	a, _, out := newTestAdmin(t)
	var gotDown []bool
	a.migrate = func(_ context.Context, down bool) error {
		gotDown = append(gotDown, down)
		return nil
	}

	require.NoError(t, a.run(context.Background(), []string{"migrate"}))
	require.NoError(t, a.run(context.Background(), []string{"migrate", "-down"}))
	require.Equal(t, []bool{false, true}, gotDown)
	require.Contains(t, out.String(), "rolled back")

	require.ErrorIs(t, a.run(context.Background(), nil), errUsage)
	require.ErrorIs(t, a.run(context.Background(), []string{"dance"}), errUsage)
}
