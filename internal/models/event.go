package models

import (
	"strconv"
	"time"

	"gorm.io/gorm"
)

// Column length limits. Longer values are clipped on write, not rejected.
const (
	MaxLocNameLen = 100
	MaxCompanyLen = 100
	MaxCommentLen = 500
)

// Event records one relocation of a device, attributed to a user.
type Event struct {
	EventID  uint      `gorm:"column:event_id;primaryKey"`
	DevID    uint      `gorm:"column:dev_id;not null;index:idx_events_dev_time,priority:1"`
	UserID   uint      `gorm:"column:user_id;not null;index"`
	MoveTime time.Time `gorm:"column:move_time;not null;index:idx_events_dev_time,priority:2"`
	LocName  string    `gorm:"column:loc_name;not null"`
	Company  string    `gorm:"column:company;not null"`
	Comment  string    `gorm:"column:comment;not null"`

	// Loaded for reads only. The FK constraints on events come from the
	// parents' Events fields.
	Device Device `gorm:"foreignKey:DevID;references:DevID;-:migration"`
	User   User   `gorm:"foreignKey:UserID;references:UserID;-:migration"`
}

func (Event) TableName() string {
	return "events"
}

// BeforeSave runs on both create and update. Times are kept in UTC so that
// the stored text form orders correctly.
func (e *Event) BeforeSave(tx *gorm.DB) error {
	e.MoveTime = e.MoveTime.UTC()
	e.Truncate()
	return nil
}

// Truncate clips the free-text fields to their column limits.
func (e *Event) Truncate() {
	e.LocName = truncate(e.LocName, MaxLocNameLen)
	e.Company = truncate(e.Company, MaxCompanyLen)
	e.Comment = truncate(e.Comment, MaxCommentLen)
}

// truncate counts characters, not bytes.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// EventResponse is the external representation of an Event. Identifiers are
// strings; MoveTime is ISO-8601 or null.
type EventResponse struct {
	EventID  string  `json:"event_id"`
	DevID    string  `json:"dev_id"`
	UserID   string  `json:"user_id"`
	MoveTime *string `json:"move_time"`
	LocName  string  `json:"loc_name"`
	Company  string  `json:"company"`
	Comment  string  `json:"comment"`
	UserName string  `json:"user_name,omitempty"`
	DevName  string  `json:"dev_name,omitempty"`
}

// ToResponse includes user_name and dev_name only when those associations
// were loaded.
func (e *Event) ToResponse() EventResponse {
	resp := EventResponse{
		EventID:  strconv.FormatUint(uint64(e.EventID), 10),
		DevID:    strconv.FormatUint(uint64(e.DevID), 10),
		UserID:   strconv.FormatUint(uint64(e.UserID), 10),
		LocName:  e.LocName,
		Company:  e.Company,
		Comment:  e.Comment,
		UserName: e.User.Name,
		DevName:  e.Device.Name,
	}
	if !e.MoveTime.IsZero() {
		ts := e.MoveTime.UTC().Format(time.RFC3339)
		resp.MoveTime = &ts
	}
	return resp
}

var moveTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseMoveTime accepts RFC 3339 and naive ISO-8601 timestamps. Naive
// values are taken as UTC.
func ParseMoveTime(s string) (time.Time, error) {
	var err error
	for _, layout := range moveTimeLayouts {
		var t time.Time
		t, err = time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}
