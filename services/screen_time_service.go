package services

import (
	"PinguinTube/apperrors"
	"PinguinTube/interfaces"
	"PinguinTube/models"
	"PinguinTube/repositories"
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	MaxSummaryDays = 365
	// Больше суток за один отчёт устройство прислать не может
	MaxUsageDelta = 24 * 60

	weekDays = 7
)

type UsageResult struct {
	TotalToday  int    `json:"total_today"`
	WeeklyTotal int    `json:"weekly_total"`
	Blocked     bool   `json:"blocked"`
	Reason      string `json:"reason,omitempty"`
	Duplicate   bool   `json:"duplicate,omitempty"`
}

type Summary struct {
	ChildID        uint                      `json:"child_id"`
	RangeDays      int                       `json:"range_days"`
	From           time.Time                 `json:"from"`
	To             time.Time                 `json:"to"`
	TotalMinutes   int                       `json:"total_minutes"`
	AverageMinutes float64                   `json:"average_minutes"`
	PerDay         []models.ScreenTimeRecord `json:"per_day"`
}

type ScreenTimeService struct {
	Ledger    repositories.ScreenTimeRepository
	ChildRepo repositories.ChildRepository
	Family    *FamilyService
	Notifier  interfaces.Notifier
	Logger    *zap.Logger
	Location  *time.Location
	Now       func() time.Time
}

func NewScreenTimeService(ledger repositories.ScreenTimeRepository, childRepo repositories.ChildRepository, family *FamilyService, notifier interfaces.Notifier, logger *zap.Logger, loc *time.Location) *ScreenTimeService {
	return &ScreenTimeService{
		Ledger:    ledger,
		ChildRepo: childRepo,
		Family:    family,
		Notifier:  notifier,
		Logger:    logger,
		Location:  loc,
		Now:       time.Now,
	}
}

func (s *ScreenTimeService) today() time.Time {
	return models.DayOf(s.Now(), s.Location)
}

// ReportUsage прибавляет минуты к сегодняшней записи и сразу оценивает лимиты.
// sequence > 0 включает защиту от повторной отправки того же отчёта.
func (s *ScreenTimeService) ReportUsage(ctx context.Context, session models.DeviceSession, minutesDelta int, sequence int64) (UsageResult, error) {
	if minutesDelta < 0 {
		return UsageResult{}, apperrors.Validation("minutes must not be negative")
	}
	if minutesDelta > MaxUsageDelta {
		return UsageResult{}, apperrors.Validation("minutes must be at most %d", MaxUsageDelta)
	}
	if sequence < 0 {
		return UsageResult{}, apperrors.Validation("sequence must not be negative")
	}

	child, err := s.ChildRepo.FindByID(ctx, session.ChildID)
	if err != nil {
		return UsageResult{}, err
	}

	today := s.today()
	record, applied, err := s.Ledger.Increment(ctx, repositories.UsageIncrement{
		ChildID:   child.ID,
		Day:       today,
		Delta:     minutesDelta,
		LimitRef:  child.Limits.Ref(),
		SessionID: session.ID,
		Sequence:  sequence,
	})
	if err != nil {
		return UsageResult{}, err
	}

	// прошлые дни плюс результат этого инкремента: у параллельных отчётов интервалы не пересекаются
	previous, err := s.sumRange(ctx, child.ID, today.AddDate(0, 0, -(weekDays-1)), today.AddDate(0, 0, -1))
	if err != nil {
		return UsageResult{}, err
	}
	weekly := previous + record.MinutesUsed

	decision := Evaluate(child.Limits, record.MinutesUsed, weekly)
	result := UsageResult{
		TotalToday:  record.MinutesUsed,
		WeeklyTotal: weekly,
		Blocked:     decision.Blocked,
		Reason:      decision.Reason,
		Duplicate:   !applied,
	}

	if !applied {
		s.Logger.Debug("duplicate usage report ignored",
			zap.String("session_id", session.ID),
			zap.Int64("sequence", sequence))
		return result, nil
	}

	if child.Limits.Enabled && minutesDelta > 0 {
		s.notifyCrossing(ctx, child, record.MinutesUsed, weekly, minutesDelta)
	}
	return result, nil
}

// notifyCrossing шлёт событие один раз на каждый лимит, в момент его пересечения
func (s *ScreenTimeService) notifyCrossing(ctx context.Context, child models.Child, totalToday, weekly, delta int) {
	limits := child.Limits
	if crossedLimit(limits.DailyLimit, totalToday-delta, totalToday) {
		s.notifyLimit(ctx, child, interfaces.Event{
			Reason:     BlockReasonDaily,
			TotalToday: totalToday,
			Limit:      *limits.DailyLimit,
		})
	}
	if crossedLimit(limits.WeeklyLimit, weekly-delta, weekly) {
		s.notifyLimit(ctx, child, interfaces.Event{
			Reason:      BlockReasonWeekly,
			TotalToday:  totalToday,
			WeeklyTotal: weekly,
			Limit:       *limits.WeeklyLimit,
		})
	}
}

func (s *ScreenTimeService) notifyLimit(ctx context.Context, child models.Child, event interfaces.Event) {
	event.Type = interfaces.EventLimitExceeded
	event.FamilyID = child.FamilyID
	event.ChildID = child.ID
	event.ChildName = child.Name
	event.OccurredAt = s.Now()

	s.Logger.Info("screen time limit exceeded",
		zap.Uint("child_id", child.ID),
		zap.String("reason", event.Reason),
		zap.Int("total_today", event.TotalToday),
		zap.Int("weekly_total", event.WeeklyTotal),
		zap.Int("limit", event.Limit))
	s.Notifier.Notify(ctx, event)
}

func (s *ScreenTimeService) sumRange(ctx context.Context, childID uint, from, to time.Time) (int, error) {
	records, err := s.Ledger.ListRange(ctx, childID, from, to)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, r := range records {
		total += r.MinutesUsed
	}
	return total, nil
}

// ResetToday обнуляет только сегодняшний день. Запись не удаляется, история не трогается.
func (s *ScreenTimeService) ResetToday(ctx context.Context, parentUID string, childID uint) error {
	if _, err := s.Family.AuthorizeChild(ctx, parentUID, childID); err != nil {
		return err
	}
	today := s.today()
	if err := s.Ledger.Reset(ctx, childID, today); err != nil {
		return err
	}
	s.Logger.Info("screen time reset", zap.Uint("child_id", childID), zap.String("day", today.Format("2006-01-02")))
	return nil
}

// GetSummary агрегат за последние rangeDays дней включая сегодня
func (s *ScreenTimeService) GetSummary(ctx context.Context, parentUID string, childID uint, rangeDays int) (Summary, error) {
	if _, err := s.Family.AuthorizeChild(ctx, parentUID, childID); err != nil {
		return Summary{}, err
	}
	return s.summary(ctx, childID, rangeDays)
}

func (s *ScreenTimeService) summary(ctx context.Context, childID uint, rangeDays int) (Summary, error) {
	if rangeDays < 1 || rangeDays > MaxSummaryDays {
		return Summary{}, apperrors.Validation("days must be between 1 and %d", MaxSummaryDays)
	}

	to := s.today()
	from := to.AddDate(0, 0, -(rangeDays - 1))
	records, err := s.Ledger.ListRange(ctx, childID, from, to)
	if err != nil {
		return Summary{}, err
	}
	if records == nil {
		records = []models.ScreenTimeRecord{}
	}

	total := 0
	for _, r := range records {
		total += r.MinutesUsed
	}
	return Summary{
		ChildID:        childID,
		RangeDays:      rangeDays,
		From:           from,
		To:             to,
		TotalMinutes:   total,
		AverageMinutes: float64(total) / float64(rangeDays),
		PerDay:         records,
	}, nil
}

func (s *ScreenTimeService) SetLimits(ctx context.Context, parentUID string, childID uint, limits models.LimitConfiguration) (models.LimitConfiguration, error) {
	if limits.DailyLimit != nil && *limits.DailyLimit < 0 {
		return models.LimitConfiguration{}, apperrors.Validation("daily_limit must not be negative")
	}
	if limits.WeeklyLimit != nil && *limits.WeeklyLimit < 0 {
		return models.LimitConfiguration{}, apperrors.Validation("weekly_limit must not be negative")
	}
	if _, err := s.Family.AuthorizeChild(ctx, parentUID, childID); err != nil {
		return models.LimitConfiguration{}, err
	}
	if err := s.ChildRepo.UpdateLimits(ctx, childID, limits); err != nil {
		return models.LimitConfiguration{}, err
	}
	s.Logger.Info("limits updated", zap.Uint("child_id", childID), zap.String("limit_ref", limits.Ref()))
	return limits, nil
}
