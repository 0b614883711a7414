package models

import (
	"time"
)

// User is a person that devices are moved by. Users are managed through the
// admin API; deleting one removes its events.
type User struct {
	UserID    uint      `gorm:"column:user_id;primaryKey" json:"user_id"`
	Name      string    `gorm:"size:60;not null" json:"name"`
	Email     string    `gorm:"size:100" json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Events []Event `gorm:"foreignKey:UserID;references:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (User) TableName() string {
	return "users"
}
