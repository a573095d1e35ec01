package service

import (
	"time"

	"emis-vote/backend/internal/model"
)

// DeriveEventStatus 计算活动最终状态
//
// 显式状态优先；未设置时将活动日期与当前时间都截断到 loc 时区的自然日，
// 活动日早于今天为 expired，否则为 active（当天仍为 active）。
// 活动状态只在此处计算，SQL 过滤条件（EventRepository.List / MarkExpired）与之保持一致。
func DeriveEventStatus(explicit string, date, now time.Time, loc *time.Location) string {
	if explicit != "" {
		return explicit
	}
	if loc == nil {
		loc = time.UTC
	}
	today := truncateDay(now.In(loc), loc)
	// 活动日期是不带时区的日历日，直接取年月日
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	if day.Before(today) {
		return model.EventStatusExpired
	}
	return model.EventStatusActive
}

// todayString 返回 loc 时区下的今天（YYYY-MM-DD），供 SQL 过滤使用
func todayString(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format(dateLayout)
}

func truncateDay(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
