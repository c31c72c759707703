package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:                      "development",
		Port:                     "8000",
		DBDriver:                 "postgres",
		DBSSLMode:                "require",
		DBPassword:               "secure-password",
		JWTSecret:                "secure-secret-at-least-32-chars-long",
		AccessTokenExpireMinutes: 60,
		ImageMaxUploadSizeMB:     10,
		S3Bucket:                 "istancool-media",
	}
}

func TestConfig_ValidateSSLMode(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		sslMode     string
		expectError bool
	}{
		{"Production with empty SSL mode", "production", "", true},
		{"Production with disable SSL mode", "production", "disable", true},
		{"Production with require SSL mode", "production", "require", false},
		{"Prod with verify-full SSL mode", "prod", "verify-full", false},
		{"Development with disable SSL mode", "development", "disable", false},
		{"Test with empty SSL mode", "test", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			c.Env = tt.env
			c.DBSSLMode = tt.sslMode

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateProductionSecrets(t *testing.T) {
	c := validConfig()
	c.Env = "production"
	c.JWTSecret = defaultJWTSecret
	assert.Error(t, c.Validate())

	c = validConfig()
	c.Env = "production"
	c.JWTSecret = "short"
	assert.Error(t, c.Validate())

	c = validConfig()
	c.Env = "production"
	c.S3Bucket = ""
	assert.Error(t, c.Validate())
}

func TestConfig_ValidateRejectsUnknownDriver(t *testing.T) {
	c := validConfig()
	c.DBDriver = "mysql"
	assert.Error(t, c.Validate())
}

func TestLoadConfig_EnvOverridesAndNormalization(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Setenv("APP_ENV", "development")
	t.Setenv("DB_SSLMODE", "  DISABLE  ")
	t.Setenv("MEDIA_FOLDER", "/covers/")
	t.Setenv("PORT", "9100")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, "covers", c.MediaFolder)
	assert.Equal(t, "9100", c.Port)
	assert.Equal(t, 15, c.ResetTokenExpireMinutes)
}

func TestConfig_DSN(t *testing.T) {
	c := validConfig()
	c.DBHost = "db"
	c.DBUser = "u"
	c.DBName = "blog"
	c.DBPort = "5432"
	assert.Equal(t, "host=db user=u password=secure-password dbname=blog port=5432 sslmode=require TimeZone=UTC", c.DSN())
}
