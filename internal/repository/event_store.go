package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ilker/tracker-server/internal/models"
	"github.com/ilker/tracker-server/internal/retention"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Fetch names the associations resolved alongside an event. Only the
// associations listed are guaranteed to be populated on returned events.
type Fetch []string

var (
	// FetchUserAndDevice populates Event.User and Event.Device.
	FetchUserAndDevice = Fetch{"User", "Device"}
	// FetchUser populates Event.User only.
	FetchUser = Fetch{"User"}
)

func (f Fetch) apply(q *gorm.DB) *gorm.DB {
	for _, assoc := range f {
		q = q.Preload(assoc)
	}
	return q
}

// EventStore owns persistence of Event records.
type EventStore struct {
	db     *gorm.DB
	logger zerolog.Logger
}

func NewEventStore(db *gorm.DB, logger zerolog.Logger) *EventStore {
	return &EventStore{
		db:     db,
		logger: logger.With().Str("component", "event_store").Logger(),
	}
}

// CreateEvents inserts all events in one transaction. On failure nothing is
// written. Inserted events get their EventID filled in.
func (s *EventStore) CreateEvents(ctx context.Context, events []models.Event) Result {
	if len(events) == 0 {
		return ok(0)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).Create(&events).Error
	})
	if err != nil {
		s.logger.Error().Err(err).Int("count", len(events)).Msg("failed to create events")
		return failed(err)
	}
	return ok(int64(len(events)))
}

// GetAllEvents returns every event with User and Device populated.
func (s *EventStore) GetAllEvents(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	err := FetchUserAndDevice.apply(s.db.WithContext(ctx)).
		Order("event_id").
		Find(&events).Error
	return events, err
}

// GetEventByID returns the event with User populated, or ErrEventNotFound.
func (s *EventStore) GetEventByID(ctx context.Context, id uint) (*models.Event, error) {
	var event models.Event
	err := FetchUser.apply(s.db.WithContext(ctx)).
		Where("event_id = ?", id).
		First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// GetEventsByDevice returns a device's events newest first, with User
// populated.
func (s *EventStore) GetEventsByDevice(ctx context.Context, devID uint) ([]models.Event, error) {
	var events []models.Event
	err := FetchUser.apply(s.db.WithContext(ctx)).
		Where("dev_id = ?", devID).
		Order("move_time DESC").
		Order("event_id DESC").
		Find(&events).Error
	return events, err
}

// LatestEventForDevice returns the device's most recent event, or
// ErrEventNotFound when it has none.
func (s *EventStore) LatestEventForDevice(ctx context.Context, devID uint) (*models.Event, error) {
	var event models.Event
	err := FetchUser.apply(s.db.WithContext(ctx)).
		Where("dev_id = ?", devID).
		Order("move_time DESC").
		Order("event_id DESC").
		First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// CommitChanges writes pending modifications of the given events in one
// transaction. Loaded associations are not written back.
func (s *EventStore) CommitChanges(ctx context.Context, events ...*models.Event) Result {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, e := range events {
			if err := tx.Omit(clause.Associations).Save(e).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Int("count", len(events)).Msg("failed to commit event changes")
		return failed(err)
	}
	return ok(int64(len(events)))
}

// RemoveEvent deletes the event if it exists. A missing event is reported as
// false with a successful Result; it is not a failure.
func (s *EventStore) RemoveEvent(ctx context.Context, id uint) (bool, Result) {
	res := s.db.WithContext(ctx).Where("event_id = ?", id).Delete(&models.Event{})
	if res.Error != nil {
		s.logger.Error().Err(res.Error).Uint("event_id", id).Msg("failed to remove event")
		return false, failed(res.Error)
	}
	return res.RowsAffected > 0, ok(res.RowsAffected)
}

// CleanupEvents applies the retention policy in a single transaction. A
// failure rolls back deletions for every device and is logged.
func (s *EventStore) CleanupEvents(ctx context.Context, cutoff time.Time, minEventCount int) (retention.Report, Result) {
	var report retention.Report
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		report, err = retention.Prune(tx, cutoff, minEventCount)
		return err
	})
	if err != nil {
		s.logger.Error().Err(err).Time("cutoff", cutoff).Msg("failed to clean up events")
		return retention.Report{}, failed(err)
	}
	return report, ok(report.EventsDeleted)
}

// Cleanup adapts CleanupEvents to retention.CleanupFunc.
func (s *EventStore) Cleanup(ctx context.Context, cutoff time.Time, minEventCount int) (retention.Report, error) {
	report, res := s.CleanupEvents(ctx, cutoff, minEventCount)
	return report, res.Err()
}

// DeviceEventStats is a per-device summary of stored events.
type DeviceEventStats struct {
	DevID      uint
	DevName    string
	EventCount int64
	OldestMove time.Time
	NewestMove time.Time
}

// EventStats summarizes event counts per device, ordered by device id.
func (s *EventStore) EventStats(ctx context.Context) ([]DeviceEventStats, error) {
	type row struct {
		DevID      uint
		DevName    string
		EventCount int64
	}
	var rows []row
	err := s.db.WithContext(ctx).
		Table("events").
		Select("events.dev_id AS dev_id, devices.name AS dev_name, COUNT(events.event_id) AS event_count").
		Joins("JOIN devices ON devices.dev_id = events.dev_id").
		Group("events.dev_id, devices.name").
		Order("events.dev_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := make([]DeviceEventStats, 0, len(rows))
	for _, r := range rows {
		st := DeviceEventStats{DevID: r.DevID, DevName: r.DevName, EventCount: r.EventCount}

		// MIN/MAX over the text column would come back as strings on sqlite,
		// so read the boundary rows instead.
		var oldest, newest models.Event
		if err := s.db.WithContext(ctx).Where("dev_id = ?", r.DevID).Order("move_time ASC").First(&oldest).Error; err != nil {
			return nil, err
		}
		if err := s.db.WithContext(ctx).Where("dev_id = ?", r.DevID).Order("move_time DESC").First(&newest).Error; err != nil {
			return nil, err
		}
		st.OldestMove = oldest.MoveTime
		st.NewestMove = newest.MoveTime
		stats = append(stats, st)
	}
	return stats, nil
}
