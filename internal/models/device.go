package models

import (
	"time"
)

// Device is a tracked piece of equipment.
type Device struct {
	DevID     uint      `gorm:"column:dev_id;primaryKey" json:"dev_id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Serial    string    `gorm:"size:100;index" json:"serial"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Events []Event `gorm:"foreignKey:DevID;references:DevID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Device) TableName() string {
	return "devices"
}
