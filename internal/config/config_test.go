package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server:      ServerConfig{AnalysisPath: "/video/%s/analysis"},
		Storage:     StorageConfig{Endpoint: "s3.local", AccessKey: "ak", SecretKey: "sk"},
		OpenAI:      OpenAIConfig{APIKey: "sk-openai"},
		YouTube:     YouTubeConfig{APIKey: "yt"},
		Entitlement: EntitlementConfig{APIKey: "ent"},
		Auth:        AuthConfig{IssuerURL: "https://auth.example.com", HMACSecret: "secret"},
		Chat:        ChatConfig{MaxSteps: 5},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	cfg := validConfig()
	cfg.OpenAI.APIKey = ""
	cfg.Auth.HMACSecret = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai.api_key is required")
	assert.Contains(t, err.Error(), "auth.hmac_secret or auth.public_key_pem is required")
}

func TestLoadDefaultsAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\nchat:\n  max_steps: 3\n"), 0o600))

	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	t.Setenv("AUTH_ISSUER_URL", "https://issuer.example.com")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Chat.MaxSteps)
	assert.Equal(t, 30*time.Second, cfg.Chat.MaxDuration)
	assert.Equal(t, "sk-from-env", cfg.OpenAI.APIKey)
	assert.Equal(t, "https://issuer.example.com", cfg.Auth.IssuerURL)
	assert.Equal(t, "dall-e-3", cfg.OpenAI.ImageModel)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestDSN(t *testing.T) {
	sqlite := DatabaseConfig{Driver: "sqlite", Path: "/tmp/x.db"}
	assert.Equal(t, "/tmp/x.db", sqlite.DSN())

	pg := DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "u", Password: "p", DBName: "ck", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=ck sslmode=disable", pg.DSN())
}
