package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bharatcrest/hrmatcher/internal/models"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 993, cfg.Mailbox.Port)
	assert.True(t, cfg.Mailbox.UseTLS)
	assert.Equal(t, "media/resumes", cfg.Resumes.Dir)
	assert.Equal(t, 7, cfg.Resumes.RetentionDays)
	assert.Zero(t, cfg.Resumes.FetchLimit)
	assert.Equal(t, "gemini-1.5-pro", cfg.Gemini.Model)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Server.Port, cfg.Server.Port)
	assert.Equal(t, Default().Resumes.Dir, cfg.Resumes.Dir)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: "9090"
mailbox:
  host: imap.example.com
  port: 143
  username: hr@example.com
  password: secret
  use_tls: false
resumes:
  dir: /data/resumes
  retention_days: 14
  fetch_limit: 50
redis:
  addr: localhost:6379
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "imap.example.com", cfg.Mailbox.Host)
	assert.Equal(t, 143, cfg.Mailbox.Port)
	assert.False(t, cfg.Mailbox.UseTLS)
	assert.Equal(t, "/data/resumes", cfg.Resumes.Dir)
	assert.Equal(t, 14, cfg.Resumes.RetentionDays)
	assert.Equal(t, 50, cfg.Resumes.FetchLimit)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a mapping"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("IMAP_HOST", "imap.corp.example.com")
	t.Setenv("IMAP_PORT", "1993")
	t.Setenv("IMAP_USERNAME", "recruiting@corp.example.com")
	t.Setenv("IMAP_PASSWORD", "hunter2")
	t.Setenv("RESUME_RETENTION_DAYS", "30")
	t.Setenv("RESUME_FETCH_LIMIT", "25")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "imap.corp.example.com", cfg.Mailbox.Host)
	assert.Equal(t, 1993, cfg.Mailbox.Port)
	assert.Equal(t, "recruiting@corp.example.com", cfg.Mailbox.Username)
	assert.Equal(t, "hunter2", cfg.Mailbox.Password)
	assert.Equal(t, 30, cfg.Resumes.RetentionDays)
	assert.Equal(t, 25, cfg.Resumes.FetchLimit)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "test-key", cfg.Gemini.APIKey)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mailbox:\n  host: from-file.example.com\n"), 0o644))
	t.Setenv("IMAP_HOST", "from-env.example.com")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env.example.com", cfg.Mailbox.Host)
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.Mailbox.Host = "imap.example.com"
	valid.Mailbox.Username = "hr@example.com"
	valid.Mailbox.Password = "secret"
	assert.NoError(t, valid.Validate())

	missingHost := Default()
	missingHost.Mailbox.Username = "hr@example.com"
	missingHost.Mailbox.Password = "secret"
	assert.Error(t, missingHost.Validate())

	missingPassword := Default()
	missingPassword.Mailbox.Host = "imap.example.com"
	missingPassword.Mailbox.Username = "hr@example.com"
	assert.Error(t, missingPassword.Validate())

	negativeRetention := Default()
	negativeRetention.Mailbox.Host = "imap.example.com"
	negativeRetention.Mailbox.Username = "hr@example.com"
	negativeRetention.Mailbox.Password = "secret"
	negativeRetention.Resumes.RetentionDays = -1
	assert.Error(t, negativeRetention.Validate())
}

func TestMailboxConfig(t *testing.T) {
	cfg := Default()
	cfg.Mailbox.Host = "imap.example.com"
	cfg.Mailbox.Username = "hr@example.com"
	cfg.Mailbox.Password = "secret"

	mc := cfg.MailboxConfig()
	assert.Equal(t, "imap.example.com", mc.Host)
	assert.Equal(t, 993, mc.Port)
	assert.True(t, mc.UseTLS)
	assert.Equal(t, models.ProtocolRetrieval, mc.Protocol)
	assert.Equal(t, "imap.example.com:993", mc.Addr())
}
