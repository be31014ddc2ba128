package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aliyevr/timetrack/internal/model"
	"github.com/aliyevr/timetrack/internal/repository"
)

// QuotaService answers the remaining-hours question: given a user and a
// month, how much of the organization-wide quota is left after the user's
// completed entries are subtracted.  Results are cached in Redis per
// user+month and invalidated whenever one of the user's entries changes;
// with a nil client every call recomputes from the database.
type QuotaService struct {
	Quotas  *repository.QuotaRepo
	Entries *repository.EntryRepo
	Redis   *redis.Client
	TTL     time.Duration
}

// NewQuotaService wires the service.  A zero ttl defaults to five
// minutes, matching the frontend's refetch interval.
func NewQuotaService(quotas *repository.QuotaRepo, entries *repository.EntryRepo, rdb *redis.Client, ttl time.Duration) *QuotaService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QuotaService{Quotas: quotas, Entries: entries, Redis: rdb, TTL: ttl}
}

// Remaining describes a user's position against one month's quota.
type Remaining struct {
	Month          string  `json:"month"`
	MonthlyHours   float64 `json:"monthly_hours"`
	CompletedHours float64 `json:"completed_hours"`
	RemainingHours float64 `json:"remaining_hours"`
}

func cacheKey(userID uint64, month string) string {
	return fmt.Sprintf("quota:remaining:%d:%s", userID, month)
}

// RemainingForUser computes remaining = quota.monthly_hours − Σ completed
// durations of the user's entries whose start or end falls in the month.
// repository.ErrQuotaNotFound passes through when the month has no quota.
func (s *QuotaService) RemainingForUser(ctx context.Context, userID uint64, month string) (Remaining, error) {
	quota, err := s.Quotas.GetByMonth(ctx, month)
	if err != nil {
		return Remaining{}, err
	}

	if s.Redis != nil {
		if v, err := s.Redis.Get(ctx, cacheKey(userID, month)).Result(); err == nil {
			if completed, err := strconv.ParseFloat(v, 64); err == nil {
				return buildRemaining(quota, completed), nil
			}
		}
	}

	start, end := model.MonthBounds(month)
	completed, err := s.Entries.CompletedHoursForMonth(ctx, userID, start, end)
	if err != nil {
		return Remaining{}, err
	}
	if s.Redis != nil {
		_ = s.Redis.Set(ctx, cacheKey(userID, month),
			strconv.FormatFloat(completed, 'f', -1, 64), s.TTL).Err()
	}
	return buildRemaining(quota, completed), nil
}

// Invalidate drops the cached summaries a changed entry could affect.
// Both the start and end month are cleared since an entry may straddle a
// month boundary.
func (s *QuotaService) Invalidate(ctx context.Context, userID uint64, start time.Time, end *time.Time) {
	if s.Redis == nil {
		return
	}
	months := map[string]struct{}{start.UTC().Format("2006-01"): {}}
	if end != nil {
		months[end.UTC().Format("2006-01")] = struct{}{}
	}
	for m := range months {
		_ = s.Redis.Del(ctx, cacheKey(userID, m)).Err()
	}
}

func buildRemaining(q model.MonthlyQuota, completed float64) Remaining {
	completed = math.Round(completed*100) / 100
	return Remaining{
		Month:          q.Month,
		MonthlyHours:   q.MonthlyHours,
		CompletedHours: completed,
		RemainingHours: math.Round((q.MonthlyHours-completed)*100) / 100,
	}
}
