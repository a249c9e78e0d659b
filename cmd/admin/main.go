// Command exeats-admin manages tutor accounts and the database schema.
//
//	exeats-admin adduser -name "Dr Tutor" -email tutor@example.com [-admin]
//	exeats-admin resetpassword -email tutor@example.com
//	exeats-admin migrate [-down]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/term"
	"gorm.io/gorm"

	"github.com/noah-isme/exeats-api/internal/config"
	"github.com/noah-isme/exeats-api/internal/database"
	"github.com/noah-isme/exeats-api/internal/models"
	"github.com/noah-isme/exeats-api/internal/repository"
)

const minPasswordLength = 8

var errUsage = errors.New("usage: exeats-admin <adduser|resetpassword|migrate> [flags]")

type admin struct {
	tutors       repository.TutorRepository
	migrate      func(ctx context.Context, down bool) error
	readPassword func(prompt string) (string, error)
	out          io.Writer
}

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	a := admin{
		tutors:       repository.NewTutorRepository(db),
		migrate:      gooseMigrate(db, logger),
		readPassword: promptPassword,
		out:          os.Stdout,
	}

	if err := a.run(context.Background(), os.Args[1:]); err != nil {
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, errUsage)
			os.Exit(2)
		}
		logger.Fatal().Err(err).Msg("command failed")
	}
}

func (a admin) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	switch args[0] {
	case "adduser":
		return a.addUser(ctx, args[1:])
	case "resetpassword":
		return a.resetPassword(ctx, args[1:])
	case "migrate":
		return a.runMigrations(ctx, args[1:])
	default:
		return errUsage
	}
}

func (a admin) addUser(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	name := fs.String("name", "", "tutor display name")
	email := fs.String("email", "", "tutor login email")
	password := fs.String("password", "", "password (prompted when empty)")
	isAdmin := fs.Bool("admin", false, "grant administrator access")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if strings.TrimSpace(*name) == "" || strings.TrimSpace(*email) == "" {
		return fmt.Errorf("adduser: -name and -email are required")
	}

	secret, err := a.passwordOrPrompt(*password)
	if err != nil {
		return err
	}

	tutor := models.Tutor{Name: strings.TrimSpace(*name), Email: *email, IsAdmin: *isAdmin}
	if err := tutor.SetPassword(secret); err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := a.tutors.Create(ctx, &tutor); err != nil {
		return fmt.Errorf("create tutor: %w", err)
	}

	fmt.Fprintf(a.out, "created tutor %d <%s>\n", tutor.ID, tutor.Email)
	return nil
}

func (a admin) resetPassword(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	email := fs.String("email", "", "tutor login email")
	password := fs.String("password", "", "new password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*email) == "" {
		return fmt.Errorf("resetpassword: -email is required")
	}

	tutor, err := a.tutors.GetByEmail(ctx, models.NormaliseEmail(*email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("no tutor with email %s", *email)
		}
		return err
	}

	secret, err := a.passwordOrPrompt(*password)
	if err != nil {
		return err
	}
	if err := tutor.SetPassword(secret); err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := a.tutors.UpdatePassword(ctx, tutor.ID, tutor.PasswordHash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	fmt.Fprintf(a.out, "password reset for %s\n", tutor.Email)
	return nil
}

func (a admin) runMigrations(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	down := fs.Bool("down", false, "roll back the latest migration")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.migrate(ctx, *down); err != nil {
		return err
	}
	if *down {
		fmt.Fprintln(a.out, "rolled back one migration")
	} else {
		fmt.Fprintln(a.out, "migrations applied")
	}
	return nil
}

func (a admin) passwordOrPrompt(given string) (string, error) {
	if given == "" {
		first, err := a.readPassword("Password: ")
		if err != nil {
			return "", err
		}
		again, err := a.readPassword("Password (again): ")
		if err != nil {
			return "", err
		}
		if first != again {
			return "", fmt.Errorf("passwords do not match")
		}
		given = first
	}

	if len(given) < minPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	return given, nil
}

func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(secret), nil
}

func gooseMigrate(db *gorm.DB, logger zerolog.Logger) func(ctx context.Context, down bool) error {
	return func(ctx context.Context, down bool) error {
		migrator, err := database.NewMigrator(db, logger)
		if err != nil {
			return err
		}
		if down {
			return migrator.Down(ctx)
		}
		return migrator.Up(ctx)
	}
}
