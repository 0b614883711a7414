// Package retention bounds the per-device event history.
//
// A device keeps at least MinEventCount events no matter how old they are,
// and events at or after the cutoff are never removed. Everything else is
// pruned oldest first.
package retention

import (
	"time"

	"github.com/ilker/tracker-server/internal/models"
	"gorm.io/gorm"
)

type Policy struct {
	MaxAge        time.Duration
	MinEventCount int
}

// Cutoff is the boundary below which events become eligible for pruning.
func (p Policy) Cutoff(now time.Time) time.Time {
	return now.Add(-p.MaxAge)
}

// Report summarizes one pruning pass.
type Report struct {
	DevicesPruned int
	EventsDeleted int64
}

// Prune deletes, per device, the oldest events older than cutoff until the
// device is left with minEventCount events. It does not open a transaction
// itself; callers pass one so a failure leaves every device untouched.
func Prune(tx *gorm.DB, cutoff time.Time, minEventCount int) (Report, error) {
	var report Report
	cutoff = cutoff.UTC()
	floor := int64(minEventCount)

	devIDs, err := candidateDevices(tx, cutoff, floor)
	if err != nil {
		return report, err
	}

	for _, devID := range devIDs {
		// Recount: the candidate query and this one are separate reads.
		var total int64
		if err := tx.Model(&models.Event{}).Where("dev_id = ?", devID).Count(&total).Error; err != nil {
			return report, err
		}
		if total <= floor {
			continue
		}

		var eventIDs []uint
		err := tx.Model(&models.Event{}).
			Where("dev_id = ? AND move_time < ?", devID, cutoff).
			Order("move_time ASC").
			Order("event_id ASC").
			Limit(int(total-floor)).
			Pluck("event_id", &eventIDs).Error
		if err != nil {
			return report, err
		}
		if len(eventIDs) == 0 {
			continue
		}

		res := tx.Where("event_id IN ?", eventIDs).Delete(&models.Event{})
		if res.Error != nil {
			return report, res.Error
		}
		report.DevicesPruned++
		report.EventsDeleted += res.RowsAffected
	}

	return report, nil
}

// candidateDevices returns devices that have at least one event older than
// cutoff and more than floor events in total.
func candidateDevices(tx *gorm.DB, cutoff time.Time, floor int64) ([]uint, error) {
	var devIDs []uint
	err := tx.Model(&models.Event{}).
		Select("dev_id").
		Group("dev_id").
		Having("SUM(CASE WHEN move_time < ? THEN 1 ELSE 0 END) > 0 AND COUNT(event_id) > ?", cutoff, floor).
		Order("dev_id").
		Pluck("dev_id", &devIDs).Error
	return devIDs, err
}
