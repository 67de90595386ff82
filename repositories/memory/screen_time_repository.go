package memory

import (
	"PinguinTube/models"
	"PinguinTube/repositories"
	"context"
	"sort"
	"time"
)

type ScreenTimeRepository struct {
	store *Store
}

var _ repositories.ScreenTimeRepository = (*ScreenTimeRepository)(nil)

// Increment держит блокировку шарда ребёнка на всё чтение-изменение-запись.
// Порядок блокировок: шард, затем sessionsMu.
func (r *ScreenTimeRepository) Increment(_ context.Context, inc repositories.UsageIncrement) (models.ScreenTimeRecord, bool, error) {
	sh := r.store.shard(inc.ChildID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	key := inc.Day.Format(dayKeyLayout)
	if inc.Sequence > 0 && !r.advanceSequence(inc.SessionID, inc.Sequence) {
		if rec, ok := sh.records[key]; ok {
			return *rec, false, nil
		}
		return models.ScreenTimeRecord{ChildID: inc.ChildID, Day: inc.Day}, false, nil
	}

	rec, ok := sh.records[key]
	if !ok {
		rec = &models.ScreenTimeRecord{ChildID: inc.ChildID, Day: inc.Day}
		sh.records[key] = rec
	}
	rec.MinutesUsed += inc.Delta
	rec.LimitRef = inc.LimitRef
	rec.UpdatedAt = time.Now()
	return *rec, true, nil
}

func (r *ScreenTimeRepository) advanceSequence(sessionID string, seq int64) bool {
	r.store.sessionsMu.Lock()
	defer r.store.sessionsMu.Unlock()
	session, ok := r.store.sessions[sessionID]
	if !ok || session.LastUsageSeq >= seq {
		return false
	}
	session.LastUsageSeq = seq
	return true
}

func (r *ScreenTimeRepository) Reset(_ context.Context, childID uint, day time.Time) error {
	sh := r.store.shard(childID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if rec, ok := sh.records[day.Format(dayKeyLayout)]; ok {
		rec.MinutesUsed = 0
		rec.UpdatedAt = time.Now()
	}
	return nil
}

func (r *ScreenTimeRepository) ListRange(_ context.Context, childID uint, from, to time.Time) ([]models.ScreenTimeRecord, error) {
	sh := r.store.shard(childID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	var result []models.ScreenTimeRecord
	for _, rec := range sh.records {
		if rec.Day.Before(from) || rec.Day.After(to) {
			continue
		}
		result = append(result, *rec)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Day.Before(result[j].Day)
	})
	return result, nil
}
