package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("SECRET_KEY", "secret")
		t.Setenv("DATABASE_URL", "sqlite://ldapauth.db")

		cfg, err := LoadConfig()
		require.NoError(t, err)

		assert.Equal(t, DefaultSettingsPrefix, cfg.SettingsPrefix)
		assert.Equal(t, 10*time.Second, cfg.LdapTimeoutDuration())
		assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
		assert.Equal(t, DefaultLdapProbeSchedule, cfg.LdapProbeSchedule)
		assert.Equal(t, DefaultLoginRateLimit, cfg.LoginRateLimit)
		assert.False(t, cfg.CaptchaDisabled)
		assert.Equal(t, "secret", cfg.CaptchaKey())
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("SECRET_KEY", "secret")
		t.Setenv("DATABASE_URL", "postgres://localhost/auth")
		t.Setenv("SETTINGS_PREFIX", "MyPlugin")
		t.Setenv("LDAP_TIMEOUT", "3")
		t.Setenv("LDAP_PROBE_DISABLED", "true")
		t.Setenv("LOGIN_RATE_LIMIT", "0")
		t.Setenv("CAPTCHA_DISABLED", "true")
		t.Setenv("CAPTCHA_HMAC_KEY", "captcha-key")

		cfg, err := LoadConfig()
		require.NoError(t, err)

		assert.Equal(t, "myplugin", cfg.SettingsPrefix)
		assert.Equal(t, 3*time.Second, cfg.LdapTimeoutDuration())
		assert.True(t, cfg.LdapProbeDisabled)
		assert.Zero(t, cfg.LoginRateLimit)
		assert.True(t, cfg.CaptchaDisabled)
		assert.Equal(t, "captcha-key", cfg.CaptchaKey())
	})

	t.Run("missing required", func(t *testing.T) {
		t.Setenv("SECRET_KEY", "")
		t.Setenv("DATABASE_URL", "")

		_, err := LoadConfig()
		assert.ErrorContains(t, err, "SecretKey")
	})

	t.Run("timeout out of range", func(t *testing.T) {
		t.Setenv("SECRET_KEY", "secret")
		t.Setenv("DATABASE_URL", "sqlite://ldapauth.db")
		t.Setenv("LDAP_TIMEOUT", "-1")

		_, err := LoadConfig()
		assert.ErrorContains(t, err, "LdapTimeout")
	})
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "s****t", maskSecret("secret"))
	assert.Equal(t, "**", maskSecret("ab"))
	assert.Equal(t, "", maskSecret(""))
}
