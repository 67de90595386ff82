package repositories

import (
	"PinguinTube/models"
	"context"
	"time"
)

// UsageIncrement одно приращение экранного времени.
// Sequence > 0 включает защиту от повторов: приращение применяется только
// если Sequence больше последнего применённого для SessionID.
type UsageIncrement struct {
	ChildID   uint
	Day       time.Time
	Delta     int
	LimitRef  string
	SessionID string
	Sequence  int64
}

type ScreenTimeRepository interface {
	// Increment атомарно прибавляет Delta к записи за день (создаёт её при отсутствии).
	// applied=false означает, что Sequence уже был применён и запись не изменилась.
	Increment(ctx context.Context, inc UsageIncrement) (record models.ScreenTimeRecord, applied bool, err error)
	// Reset обнуляет минуты за день, не удаляя запись
	Reset(ctx context.Context, childID uint, day time.Time) error
	// ListRange записи в интервале [from, to] включительно, по возрастанию дня
	ListRange(ctx context.Context, childID uint, from, to time.Time) ([]models.ScreenTimeRecord, error)
}
