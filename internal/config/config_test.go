package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
api:
  base_url: "http://localhost:8000"
  timeout: 2

database:
  host: "localhost"
  port: 5432
  name: "testdb"
  user: "testuser"
  password: "testpass"
  ssl_mode: "disable"

mirror:
  schedule: "*/10 * * * *"
  bootstrap_limit: 2000
  metrics_port: 9091

logging:
  level: "debug"
  format: "json"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	assert.NoError(t, err)

	// Test loading configuration
	config, err := Load(configPath)
	assert.NoError(t, err)
	assert.NotNil(t, config)

	// Verify loaded values
	assert.Equal(t, "http://localhost:8000", config.API.BaseURL)
	assert.Equal(t, 2, config.API.Timeout)
	assert.Equal(t, "localhost", config.Database.Host)
	assert.Equal(t, "testdb", config.Database.Name)
	assert.Equal(t, "*/10 * * * *", config.Mirror.Schedule)
	assert.Equal(t, 2000, config.Mirror.BootstrapLimit)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestLoadWithEnvOverride(t *testing.T) {
	// Set environment variables
	t.Setenv("APP_API_BASE_URL", "http://envhost:8000")
	t.Setenv("APP_DATABASE_PORT", "5433")

	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
api:
  base_url: $APP_API_BASE_URL

database:
  host: "localhost"
  port: $APP_DATABASE_PORT
  name: "testdb"
  user: "testuser"
  password: "testpass"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	assert.NoError(t, err)

	// Test loading configuration
	config, err := Load(configPath)
	assert.NoError(t, err)
	assert.NotNil(t, config)

	// Verify environment variables override config file
	assert.Equal(t, "http://envhost:8000", config.API.BaseURL)
	assert.Equal(t, 5433, config.Database.Port)
}

func TestLoadAppliesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
api:
  base_url: "http://localhost:8000"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	assert.NoError(t, err)

	config, err := Load(configPath)
	assert.NoError(t, err)

	assert.Equal(t, 5, config.API.Timeout)
	assert.Equal(t, 5432, config.Database.Port)
	assert.Equal(t, "disable", config.Database.SSLMode)
	assert.Equal(t, "*/5 * * * *", config.Mirror.Schedule)
	assert.Equal(t, 5000, config.Mirror.BootstrapLimit)
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, "json", config.Logging.Format)
}

func TestConnString(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db",
		Port:     5432,
		Name:     "openfmb",
		User:     "openfmb",
		Password: "secret",
		SSLMode:  "disable",
	}

	assert.Equal(t,
		"host=db port=5432 user=openfmb password=secret dbname=openfmb sslmode=disable",
		cfg.ConnString(),
	)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("does-not-exist.yaml")
	assert.Error(t, err)
}
