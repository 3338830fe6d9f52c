//go:build integration
// +build integration

package integration_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevmartinez/openfmb-go/internal/mirror"
	"github.com/kevmartinez/openfmb-go/internal/store"
	"github.com/kevmartinez/openfmb-go/openfmb"
)

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func setupTestDB(t *testing.T) (*store.PostgresRepo, *sql.DB) {
	dbHost := getEnvOrDefault("DB_HOST", "db")
	dbPort := getEnvOrDefault("DB_PORT", "5432")
	dbUser := getEnvOrDefault("DB_USER", "openfmb")
	dbPass := getEnvOrDefault("DB_PASSWORD", "openfmb")
	dbName := getEnvOrDefault("DB_NAME", "openfmb")

	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		dbHost, dbPort, dbUser, dbPass, dbName,
	)

	repo, err := store.NewPostgresRepo(connStr)
	require.NoError(t, err, "Failed to connect to test database")

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)

	_, err = db.Exec("TRUNCATE measurements")
	require.NoError(t, err, "Failed to truncate measurements table")

	return repo, db
}

// fakeOpenFMBServer serves a minimal OpenFMB API over httptest: one device
// with a fixed page of historical measurements.
func fakeOpenFMBServer(t *testing.T, deviceID uuid.UUID, measurements []openfmb.Measurement) *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/test-db", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"database_version": "PostgreSQL 14.2"})
	})
	mux.HandleFunc("/devices", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"count":        1,
			"device_uuids": []uuid.UUID{deviceID},
		})
	})
	mux.HandleFunc(fmt.Sprintf("/devices/%s/historical", deviceID), func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"measurements": measurements})
	})
	mux.HandleFunc(fmt.Sprintf("/devices/%s/last-state", deviceID), func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"latest_measurement": measurements[len(measurements)-1]})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestMirrorBootstrapAgainstPostgres(t *testing.T) {
	repo, db := setupTestDB(t)
	defer repo.Close()
	defer db.Close()

	deviceID := uuid.New()
	base := time.Now().UTC().Truncate(time.Second).Add(-time.Hour)

	var measurements []openfmb.Measurement
	for i := 0; i < 10; i++ {
		measurements = append(measurements, openfmb.Measurement{
			DeviceID:  deviceID,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Data:      map[string]any{"voltage": 230.0 + float64(i)},
		})
	}

	srv := fakeOpenFMBServer(t, deviceID, measurements)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	client := openfmb.NewClient(srv.URL, openfmb.WithLogger(logger))
	require.True(t, client.CheckHealth(context.Background()))

	svc := mirror.NewService(client, repo, logger, "*/5 * * * *", 5000)
	require.NoError(t, svc.Bootstrap(context.Background()))

	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM measurements WHERE device_id = $1", deviceID).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(measurements), count)

	latest, err := repo.LatestTimestamp(context.Background(), deviceID)
	require.NoError(t, err)
	assert.WithinDuration(t, measurements[len(measurements)-1].Timestamp, latest, time.Second)
}

func TestClientAgainstFakeService(t *testing.T) {
	deviceID := uuid.New()
	base := time.Now().UTC().Truncate(time.Second)

	measurements := []openfmb.Measurement{
		{DeviceID: deviceID, Timestamp: base, Data: map[string]any{"voltage": 229.9}},
	}
	srv := fakeOpenFMBServer(t, deviceID, measurements)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	client := openfmb.NewClient(srv.URL, openfmb.WithLogger(logger))

	devices, err := client.Devices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, devices.Count)

	state, err := client.LastState(context.Background(), deviceID)
	require.NoError(t, err)
	assert.WithinDuration(t, base, state.Timestamp, time.Second)
}
