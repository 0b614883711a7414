package repository

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ilker/tracker-server/internal/config"
	"github.com/ilker/tracker-server/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewDatabase(&config.DatabaseConfig{
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newTestStore(t *testing.T) (*EventStore, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	return NewEventStore(db, zerolog.Nop()), db
}

func seedUser(t *testing.T, db *gorm.DB, name string) models.User {
	t.Helper()
	u := models.User{Name: name}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func seedDevice(t *testing.T, db *gorm.DB, name string) models.Device {
	t.Helper()
	d := models.Device{Name: name}
	require.NoError(t, db.Create(&d).Error)
	return d
}

var baseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// seedEvents creates n events for the device, one day apart starting at
// baseTime, and returns them oldest first.
func seedEvents(t *testing.T, store *EventStore, dev models.Device, user models.User, n int) []models.Event {
	t.Helper()
	events := make([]models.Event, n)
	for i := range events {
		events[i] = models.Event{
			DevID:    dev.DevID,
			UserID:   user.UserID,
			MoveTime: baseTime.AddDate(0, 0, i),
			LocName:  "loc",
			Company:  "acme",
			Comment:  "",
		}
	}
	res := store.CreateEvents(t.Context(), events)
	require.True(t, res.Success, res.Message)
	return events
}

func countEvents(t *testing.T, db *gorm.DB, devID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Event{}).Where("dev_id = ?", devID).Count(&n).Error)
	return n
}

func eventIDs(t *testing.T, db *gorm.DB, devID uint) []uint {
	t.Helper()
	var ids []uint
	require.NoError(t, db.Model(&models.Event{}).Where("dev_id = ?", devID).Order("move_time").Pluck("event_id", &ids).Error)
	return ids
}
