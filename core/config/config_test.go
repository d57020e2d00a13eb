package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		WhatsApp: WhatsAppConfig{
			Token:         "EAAG-token",
			PhoneNumberID: "1055512345",
			VerifyToken:   "verify-me",
		},
		Server:   ServerConfig{Port: 10000},
		Database: DatabaseConfig{Host: "localhost", Port: "5432"},
	}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, Normalize(cfg))

	require.Equal(t, "https://graph.facebook.com", cfg.WhatsApp.APIBaseURL)
	require.Equal(t, "v21.0", cfg.WhatsApp.APIVersion)
	require.Equal(t, "0.0.0.0", cfg.Server.Listen)
	require.Equal(t, 1500, cfg.Engine.TypingDelayMinMS)
	require.Equal(t, 3000, cfg.Engine.TypingDelayMaxMS)
	require.Equal(t, 5, cfg.Engine.RetryWindowMinutes)
	require.Equal(t, "America/Lima", cfg.Engine.Timezone)
}

func TestNormalizeRequiredFields(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing token", func(c *Config) { c.WhatsApp.Token = "" }},
		{"missing phone id", func(c *Config) { c.WhatsApp.PhoneNumberID = "" }},
		{"missing verify token", func(c *Config) { c.WhatsApp.VerifyToken = "" }},
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"notify token without chat", func(c *Config) { c.Notify.TelegramToken = "123:abc" }},
		{"inverted delays", func(c *Config) {
			c.Engine.TypingDelayMinMS = 2000
			c.Engine.TypingDelayMaxMS = 100
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			require.Error(t, Normalize(cfg))
		})
	}
}

func TestLoadReadsDatabaseSection(t *testing.T) {
	yaml := `
whatsapp:
  token: "EAAG-token"
  phone_number_id: "1055512345"
  verify_token: "verify-me"
server:
  port: 10000
database:
  host: "db.internal"
  port: "5433"
  user: "leadbot"
  name: "leadbot"
  sslmode: "require"
  max_connections: 10
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "db.internal", cfg.Database.Host)
	require.Equal(t, "5433", cfg.Database.Port)
	require.Equal(t, "require", cfg.Database.SSLMode)
	require.Equal(t, 10, cfg.Database.MaxConnections)
}

func TestNormalizeTrimsBaseURL(t *testing.T) {
	cfg := validConfig()
	cfg.WhatsApp.APIBaseURL = "https://graph.example.test/"
	require.NoError(t, Normalize(cfg))
	require.Equal(t, "https://graph.example.test", cfg.WhatsApp.APIBaseURL)
}
