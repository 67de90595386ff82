package services

import "PinguinTube/models"

const (
	BlockReasonDaily  = "daily_limit_exceeded"
	BlockReasonWeekly = "weekly_limit_exceeded"
)

// Decision результат проверки лимитов. Блокировка рекомендательная:
// устройство применяет её само.
type Decision struct {
	Blocked bool
	Reason  string
}

// Evaluate чистая функция. Граница строгая: ровно исчерпанный лимит ещё не блокирует.
func Evaluate(limits models.LimitConfiguration, totalToday, weeklySum int) Decision {
	if !limits.Enabled {
		return Decision{}
	}
	if limits.DailyLimit != nil && totalToday > *limits.DailyLimit {
		return Decision{Blocked: true, Reason: BlockReasonDaily}
	}
	if limits.WeeklyLimit != nil && weeklySum > *limits.WeeklyLimit {
		return Decision{Blocked: true, Reason: BlockReasonWeekly}
	}
	return Decision{}
}

// crossedLimit true, если приращение перевело итог через лимит (prev <= limit < next)
func crossedLimit(limit *int, prev, next int) bool {
	return limit != nil && prev <= *limit && next > *limit
}
