package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LegacySignupSalt is the salt historic signup links were generated with.
// Changing it invalidates every link already sent to students.
const LegacySignupSalt = "zzov5!5!2onxl"

// Config holds runtime configuration values for the exeat signup service.
type Config struct {
	AppName     string
	AppEnv      string
	AppPort     string
	BaseURL     string
	TimeZone    string
	DatabaseURL string
	AutoMigrate bool
	RedisURL    string
	NATSURL     string
	FeedChannel string

	SessionSecret     string
	SessionTTL        time.Duration
	SessionCookieName string
	SignupSalt        string

	MailProvider          string
	SendgridAPIKey        string
	MailFromName          string
	MailFromAddress       string
	MailOverrideRecipient string
	MailSubjectPrefix     string
	InvitationDedupeTTL   time.Duration

	DeploySecret         string
	DeployTimeout        time.Duration
	DeployWorkdir        string
	DeployPullCommand    string
	DeployMigrateCommand string
	DeployStaticCommand  string

	LoginRateLimit  int
	SignupRateLimit int
	RateLimitWindow time.Duration

	location *time.Location
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Location returns the timezone slot times are entered and displayed in.
func (c Config) Location() *time.Location {
	if c.location != nil {
		return c.location
	}
	if loc, err := time.LoadLocation(c.TimeZone); err == nil {
		return loc
	}
	return time.UTC
}

// IsProduction reports whether the service runs with production settings.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("EXEATS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "Exeat Signup")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.base_url", "http://localhost:8080")
	v.SetDefault("app.timezone", "Europe/London")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("feed.channel", "exeats:bookings")
	v.SetDefault("session.ttl", "336h")
	v.SetDefault("session.cookie_name", "exeats_session")
	v.SetDefault("signup.salt", LegacySignupSalt)
	v.SetDefault("mail.provider", "log")
	v.SetDefault("mail.from_name", "Exeat System")
	v.SetDefault("mail.from_address", "exeatsystem@gmail.com")
	v.SetDefault("invitations.dedupe_ttl", "10m")
	v.SetDefault("deploy.timeout", "60s")
	v.SetDefault("deploy.workdir", ".")
	v.SetDefault("deploy.pull_command", "git pull --ff-only")
	v.SetDefault("deploy.migrate_command", "./bin/exeats-admin migrate")
	v.SetDefault("ratelimit.login_max", 10)
	v.SetDefault("ratelimit.signup_max", 30)
	v.SetDefault("ratelimit.window", "1m")
}

func fromViper(v *viper.Viper) (Config, error) {
	durations := map[string]time.Duration{}
	for _, key := range []string{"session.ttl", "invitations.dedupe_ttl", "deploy.timeout", "ratelimit.window"} {
		parsed, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", key, err)
		}
		durations[key] = parsed
	}

	cfg := Config{
		AppName:     v.GetString("app.name"),
		AppEnv:      v.GetString("app.env"),
		AppPort:     v.GetString("app.port"),
		BaseURL:     strings.TrimRight(v.GetString("app.base_url"), "/"),
		TimeZone:    v.GetString("app.timezone"),
		DatabaseURL: v.GetString("database.url"),
		AutoMigrate: v.GetBool("database.auto_migrate"),
		RedisURL:    v.GetString("redis.url"),
		NATSURL:     v.GetString("nats.url"),
		FeedChannel: v.GetString("feed.channel"),

		SessionSecret:     v.GetString("session.secret"),
		SessionTTL:        durations["session.ttl"],
		SessionCookieName: v.GetString("session.cookie_name"),
		SignupSalt:        v.GetString("signup.salt"),

		MailProvider:          strings.ToLower(v.GetString("mail.provider")),
		SendgridAPIKey:        v.GetString("mail.sendgrid_api_key"),
		MailFromName:          v.GetString("mail.from_name"),
		MailFromAddress:       v.GetString("mail.from_address"),
		MailOverrideRecipient: strings.TrimSpace(v.GetString("mail.override_recipient")),
		MailSubjectPrefix:     v.GetString("mail.subject_prefix"),
		InvitationDedupeTTL:   durations["invitations.dedupe_ttl"],

		DeploySecret:         v.GetString("deploy.secret"),
		DeployTimeout:        durations["deploy.timeout"],
		DeployWorkdir:        v.GetString("deploy.workdir"),
		DeployPullCommand:    v.GetString("deploy.pull_command"),
		DeployMigrateCommand: v.GetString("deploy.migrate_command"),
		DeployStaticCommand:  v.GetString("deploy.static_command"),

		LoginRateLimit:  v.GetInt("ratelimit.login_max"),
		SignupRateLimit: v.GetInt("ratelimit.signup_max"),
		RateLimitWindow: durations["ratelimit.window"],
	}

	if cfg.SessionSecret == "" {
		return Config{}, fmt.Errorf("session secret must be provided")
	}

	if cfg.SignupSalt == "" {
		return Config{}, fmt.Errorf("signup salt must not be empty")
	}

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return Config{}, fmt.Errorf("invalid timezone %q: %w", cfg.TimeZone, err)
	}
	cfg.location = loc

	switch cfg.MailProvider {
	case "log":
	case "sendgrid":
		if cfg.SendgridAPIKey == "" {
			return Config{}, fmt.Errorf("sendgrid api key must be provided when mail provider is sendgrid")
		}
	default:
		return Config{}, fmt.Errorf("unsupported mail provider %q", cfg.MailProvider)
	}

	if cfg.DeployTimeout <= 0 {
		cfg.DeployTimeout = time.Minute
	}

	return cfg, nil
}
