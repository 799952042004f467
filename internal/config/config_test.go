package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestConfig() *Config {
	return &Config{
		JWTSecret:      "test-secret",
		Port:           "8480",
		DBPassword:     "password",
		MediaStore:     "local",
		MediaUploadDir: "/tmp/uploads",
		Env:            "test",
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8480", cfg.Port)
	assert.Equal(t, "echofeed", cfg.DBName)
	assert.Equal(t, "local", cfg.MediaStore)
	assert.Equal(t, "/media", cfg.MediaBaseURL)
	assert.NotEmpty(t, cfg.JWTSecret)
}

func TestConfigValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, validTestConfig().Validate())
	})

	t.Run("missing jwt secret", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.JWTSecret = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown media store", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.MediaStore = "s3"
		assert.Error(t, cfg.Validate())
	})

	t.Run("cloudinary requires credentials", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.MediaStore = "cloudinary"
		assert.Error(t, cfg.Validate())

		cfg.CloudinaryCloudName = "demo"
		cfg.CloudinaryAPIKey = "key"
		cfg.CloudinaryAPISecret = "secret"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("production rejects default secret", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Env = "production"
		cfg.JWTSecret = "your-secret-key-change-in-production"
		cfg.DBPassword = "something-strong"
		assert.Error(t, cfg.Validate())
	})

	t.Run("production requires long secret and strong db password", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Env = "production"
		cfg.JWTSecret = strings.Repeat("s", 32)
		cfg.DBPassword = "password"
		assert.Error(t, cfg.Validate())

		cfg.DBPassword = "something-strong"
		assert.NoError(t, cfg.Validate())
	})
}
