package model

import "time"

// Registration 活动报名表，对应 registrations
// (event_id, user_id) 唯一
type Registration struct {
	RegistrationID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"registration_id"`
	EventID        string    `gorm:"type:uuid;not null;uniqueIndex:uk_registrations_event_user" json:"event_id"`
	UserID         string    `gorm:"type:uuid;not null;uniqueIndex:uk_registrations_event_user" json:"user_id"`
	CreatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`

	// 关联
	Event *Event `gorm:"foreignKey:EventID;references:EventID" json:"event,omitempty"`
	User  *User  `gorm:"foreignKey:UserID;references:UserID"   json:"user,omitempty"`
}

// TableName 指定表名
func (Registration) TableName() string { return "registrations" }
