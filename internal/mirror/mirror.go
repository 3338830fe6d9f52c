// Package mirror periodically copies device telemetry from an OpenFMB API
// into local storage, so control applications can query history without
// round-tripping to the service.
package mirror

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/kevmartinez/openfmb-go/internal/store"
	"github.com/kevmartinez/openfmb-go/openfmb"
)

// syncLimit caps how many records a periodic sync pulls per device.
const syncLimit = 1000

// DeviceAPI is the slice of the OpenFMB client the mirror needs.
type DeviceAPI interface {
	Devices(ctx context.Context) (*openfmb.DeviceList, error)
	HistoricalData(ctx context.Context, deviceID uuid.UUID, q openfmb.HistoricalQuery) ([]openfmb.Measurement, error)
}

// Service drives the mirroring loop.
type Service struct {
	client         DeviceAPI
	repo           store.MeasurementRepository
	logger         *logrus.Logger
	cron           *cron.Cron
	schedule       string
	bootstrapLimit int
}

func NewService(client DeviceAPI, repo store.MeasurementRepository, logger *logrus.Logger, schedule string, bootstrapLimit int) *Service {
	if bootstrapLimit <= 0 {
		bootstrapLimit = openfmb.MaxLimit
	}
	return &Service{
		client:         client,
		repo:           repo,
		logger:         logger,
		cron:           cron.New(),
		schedule:       schedule,
		bootstrapLimit: bootstrapLimit,
	}
}

// Bootstrap pulls the deepest history the configured limit allows for every
// device known to the service.
func (s *Service) Bootstrap(ctx context.Context) error {
	devices, err := s.client.Devices(ctx)
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}

	for _, id := range devices.DeviceUUIDs {
		if err := s.syncDevice(ctx, id, s.bootstrapLimit, time.Time{}); err != nil {
			return fmt.Errorf("failed to bootstrap device %s: %w", id, err)
		}
	}
	return nil
}

// Start schedules the periodic sync
func (s *Service) Start() error {
	_, err := s.cron.AddFunc(s.schedule, s.collect)
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// collect syncs every known device from its newest stored timestamp forward
func (s *Service) collect() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	devices, err := s.client.Devices(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list devices")
		return
	}

	for _, id := range devices.DeviceUUIDs {
		since, err := s.repo.LatestTimestamp(ctx, id)
		if err != nil {
			s.logger.WithError(err).WithField("device", id).Error("Failed to read sync watermark")
			continue
		}
		if err := s.syncDevice(ctx, id, syncLimit, since); err != nil {
			s.logger.WithError(err).WithField("device", id).Error("Failed to sync device")
		}
	}
}

func (s *Service) syncDevice(ctx context.Context, id uuid.UUID, limit int, since time.Time) error {
	q := openfmb.HistoricalQuery{Limit: limit}
	if !since.IsZero() {
		q.Start = since
	}

	measurements, err := s.client.HistoricalData(ctx, id, q)
	if err != nil {
		return err
	}
	if len(measurements) == 0 {
		return nil
	}

	records := make([]store.Record, len(measurements))
	for i, m := range measurements {
		records[i] = store.Record{
			Time:     m.Timestamp,
			DeviceID: id,
			Data:     m.Data,
		}
	}

	return s.repo.BatchInsertMeasurements(ctx, records)
}

// Stop the scheduler
func (s *Service) Stop() {
	s.cron.Stop()
}
