package models

import (
	"fmt"
	"time"
)

// LimitConfiguration лимиты экранного времени ребёнка (в минутах).
// nil означает, что лимит не задан.
type LimitConfiguration struct {
	DailyLimit  *int `json:"daily_limit" gorm:"column:daily_limit"`
	WeeklyLimit *int `json:"weekly_limit" gorm:"column:weekly_limit"`
	Enabled     bool `json:"enabled" gorm:"column:enabled"`
}

// Ref короткий отпечаток конфигурации, сохраняется в записи за день
func (l LimitConfiguration) Ref() string {
	daily, weekly := "-", "-"
	if l.DailyLimit != nil {
		daily = fmt.Sprint(*l.DailyLimit)
	}
	if l.WeeklyLimit != nil {
		weekly = fmt.Sprint(*l.WeeklyLimit)
	}
	return fmt.Sprintf("d=%s;w=%s;on=%t", daily, weekly, l.Enabled)
}

// ScreenTimeRecord одна строка на (ребёнок, календарный день)
type ScreenTimeRecord struct {
	ID          uint      `json:"-" gorm:"primaryKey"`
	ChildID     uint      `json:"child_id" gorm:"not null;uniqueIndex:idx_screen_time_child_day,priority:1"`
	Day         time.Time `json:"day" gorm:"type:date;not null;uniqueIndex:idx_screen_time_child_day,priority:2"`
	MinutesUsed int       `json:"minutes_used" gorm:"not null"`
	LimitRef    string    `json:"limit_ref" gorm:"type:varchar(64)"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DayOf возвращает календарную дату t в часовом поясе loc,
// представленную как полночь UTC (так она хранится в колонке date).
func DayOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
