package impl

import (
	"PinguinTube/models"
	"PinguinTube/repositories"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ScreenTimeRepositoryImpl struct {
	DB *gorm.DB
}

func NewScreenTimeRepository(db *gorm.DB) repositories.ScreenTimeRepository {
	return &ScreenTimeRepositoryImpl{DB: db}
}

// Increment использует INSERT ... ON CONFLICT DO UPDATE с прибавлением на стороне базы,
// поэтому параллельные отчёты за один день не теряют приращения.
func (r *ScreenTimeRepositoryImpl) Increment(ctx context.Context, inc repositories.UsageIncrement) (models.ScreenTimeRecord, bool, error) {
	var record models.ScreenTimeRecord
	applied := false

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if inc.Sequence > 0 {
			res := tx.Model(&models.DeviceSession{}).
				Where("id = ? AND last_usage_seq < ?", inc.SessionID, inc.Sequence).
				Update("last_usage_seq", inc.Sequence)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return r.current(tx, inc, &record)
			}
		}

		row := models.ScreenTimeRecord{
			ChildID:     inc.ChildID,
			Day:         inc.Day,
			MinutesUsed: inc.Delta,
			LimitRef:    inc.LimitRef,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "child_id"}, {Name: "day"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"minutes_used": gorm.Expr("screen_time_records.minutes_used + EXCLUDED.minutes_used"),
				"limit_ref":    gorm.Expr("EXCLUDED.limit_ref"),
				"updated_at":   gorm.Expr("EXCLUDED.updated_at"),
			}),
		}).Create(&row).Error
		if err != nil {
			return err
		}
		applied = true
		return tx.Where("child_id = ? AND day = ?", inc.ChildID, inc.Day).First(&record).Error
	})
	if err != nil {
		return models.ScreenTimeRecord{}, false, err
	}
	return record, applied, nil
}

// current читает запись без изменений; отсутствующая запись это ноль минут
func (r *ScreenTimeRepositoryImpl) current(tx *gorm.DB, inc repositories.UsageIncrement, record *models.ScreenTimeRecord) error {
	err := tx.Where("child_id = ? AND day = ?", inc.ChildID, inc.Day).First(record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		*record = models.ScreenTimeRecord{ChildID: inc.ChildID, Day: inc.Day}
		return nil
	}
	return err
}

func (r *ScreenTimeRepositoryImpl) Reset(ctx context.Context, childID uint, day time.Time) error {
	return r.DB.WithContext(ctx).Model(&models.ScreenTimeRecord{}).
		Where("child_id = ? AND day = ?", childID, day).
		Update("minutes_used", 0).Error
}

func (r *ScreenTimeRepositoryImpl) ListRange(ctx context.Context, childID uint, from, to time.Time) ([]models.ScreenTimeRecord, error) {
	var records []models.ScreenTimeRecord
	err := r.DB.WithContext(ctx).
		Where("child_id = ? AND day BETWEEN ? AND ?", childID, from, to).
		Order("day ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
