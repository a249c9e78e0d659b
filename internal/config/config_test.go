package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("EXEATS_SESSION_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "Exeat Signup", cfg.AppName)
	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, LegacySignupSalt, cfg.SignupSalt)
	require.Equal(t, "log", cfg.MailProvider)
	require.Equal(t, 14*24*time.Hour, cfg.SessionTTL)
	require.Equal(t, time.Minute, cfg.DeployTimeout)
	require.Equal(t, "Europe/London", cfg.Location().String())
}

func TestLoadRequiresSessionSecret(t *testing.T) {
	t.Setenv("EXEATS_SESSION_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsSendgridWithoutKey(t *testing.T) {
	t.Setenv("EXEATS_SESSION_SECRET", "secret")
	t.Setenv("EXEATS_MAIL_PROVIDER", "sendgrid")

	_, err := Load()
	require.ErrorContains(t, err, "sendgrid api key")
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	t.Setenv("EXEATS_SESSION_SECRET", "secret")
	t.Setenv("EXEATS_DEPLOY_TIMEOUT", "soon")

	_, err := Load()
	require.ErrorContains(t, err, "deploy.timeout")
}

func TestHTTPAddressKeepsColonPrefix(t *testing.T) {
	cfg := Config{AppPort: ":9000"}
	require.Equal(t, ":9000", cfg.HTTPAddress())
}
