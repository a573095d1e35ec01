package model

import (
	"time"

	"gorm.io/datatypes"
)

// 活动状态
const (
	EventStatusActive  = "active"
	EventStatusExpired = "expired"
)

// Event 校园活动表，对应 events
// Status 为空表示未显式设置，由服务端按日期推导；
// ExpiredAt 由定时任务写入，仅作记录，不参与状态推导
type Event struct {
	EventID     string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"event_id"`
	Title       string         `gorm:"type:varchar(200);not null"                     json:"title"`
	Description string         `gorm:"type:text"                                      json:"description"`
	Date        datatypes.Date `gorm:"type:date;not null"                             json:"date"`
	Location    string         `gorm:"type:varchar(200)"                              json:"location"`
	Poster      string         `gorm:"type:varchar(255)"                              json:"poster"`
	Status      string         `gorm:"type:varchar(20);not null;default:''"           json:"status"`
	Quota       int            `gorm:"not null;default:0"                             json:"quota"` // 仅展示，不做名额限制
	ExpiredAt   *time.Time     `gorm:"type:timestamptz"                               json:"expired_at,omitempty"`
	SoftDeleteModel
}

// TableName 指定表名
func (Event) TableName() string { return "events" }

// Day 活动日期（time.Time 形式）
func (e *Event) Day() time.Time { return time.Time(e.Date) }
