package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"portfolio-be/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testQuota = domain.Quota{Limit: 10, Window: 24 * time.Hour}

// runVisitRepositorySuite exercises any VisitRepository against the same expectations
func runVisitRepositorySuite(t *testing.T, newRepo func(t *testing.T) VisitRepository) {
	ctx := context.Background()
	base := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

	t.Run("empty store counts zero", func(t *testing.T) {
		repo := newRepo(t)
		count, err := repo.CountVisits(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
		assert.NoError(t, repo.Health(ctx))
	})

	t.Run("admits up to the limit then rejects without inserting", func(t *testing.T) {
		repo := newRepo(t)

		for i := 1; i <= 10; i++ {
			decision, err := repo.RecordVisit(ctx, "203.0.113.5", base.Add(time.Duration(i)*time.Minute), testQuota)
			require.NoError(t, err)
			require.True(t, decision.Admitted, "visit %d", i)
			assert.Equal(t, int64(i), decision.Used)
			require.NotNil(t, decision.Record)
			assert.Equal(t, "203.0.113.5", decision.Record.IP)
			assert.NotZero(t, decision.Record.ID)

			count, err := repo.CountVisits(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(i), count)
		}

		now := base.Add(11 * time.Minute)
		decision, err := repo.RecordVisit(ctx, "203.0.113.5", now, testQuota)
		require.NoError(t, err)
		assert.False(t, decision.Admitted)
		assert.Nil(t, decision.Record)
		assert.Equal(t, int64(10), decision.Used)
		assert.Equal(t, int64(0), decision.Remaining())
		// oldest counted visit was at base+1m, so it leaves the window at base+24h+1m
		assert.Equal(t, 24*time.Hour-10*time.Minute, decision.RetryAfter)

		used, err := repo.CountVisitsSince(ctx, "203.0.113.5", now.Add(-testQuota.Window))
		require.NoError(t, err)
		assert.Equal(t, decision.Used, used, "quota check outside a write agrees with the one inside it")

		count, err := repo.CountVisits(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(10), count)
	})

	t.Run("quota is per ip", func(t *testing.T) {
		repo := newRepo(t)
		for i := 0; i < 10; i++ {
			_, err := repo.RecordVisit(ctx, "198.51.100.1", base, testQuota)
			require.NoError(t, err)
		}

		decision, err := repo.RecordVisit(ctx, "198.51.100.2", base, testQuota)
		require.NoError(t, err)
		assert.True(t, decision.Admitted)
		assert.Equal(t, int64(9), decision.Remaining())
	})

	t.Run("window rolls forward", func(t *testing.T) {
		repo := newRepo(t)
		for i := 0; i < 10; i++ {
			_, err := repo.RecordVisit(ctx, "192.0.2.7", base, testQuota)
			require.NoError(t, err)
		}

		decision, err := repo.RecordVisit(ctx, "192.0.2.7", base.Add(24*time.Hour-time.Second), testQuota)
		require.NoError(t, err)
		assert.False(t, decision.Admitted)

		decision, err = repo.RecordVisit(ctx, "192.0.2.7", base.Add(24*time.Hour+time.Second), testQuota)
		require.NoError(t, err)
		assert.True(t, decision.Admitted)
		assert.Equal(t, int64(1), decision.Used)

		since, err := repo.CountVisitsSince(ctx, "192.0.2.7", base.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), since)

		total, err := repo.CountVisits(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(11), total)
	})

	t.Run("concurrent requests from one ip never exceed the limit", func(t *testing.T) {
		repo := newRepo(t)

		const attempts = 25
		var wg sync.WaitGroup
		var mu sync.Mutex
		admitted := 0
		errs := make([]error, 0)

		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				decision, err := repo.RecordVisit(ctx, "203.0.113.99", base, testQuota)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					errs = append(errs, err)
					return
				}
				if decision.Admitted {
					admitted++
				}
			}()
		}
		wg.Wait()

		require.Empty(t, errs)
		assert.Equal(t, 10, admitted)

		count, err := repo.CountVisitsSince(ctx, "203.0.113.99", base.Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(10), count)
	})
}

func TestEvaluateQuota(t *testing.T) {
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		used      int64
		oldest    *time.Time
		admitted  bool
		retry     time.Duration
		remaining int64
	}{
		{name: "no visits", used: 0, admitted: true, remaining: 10},
		{name: "one below limit", used: 9, admitted: true, remaining: 1},
		{name: "at limit", used: 10, oldest: timePtr(now.Add(-23 * time.Hour)), admitted: false, retry: time.Hour},
		{name: "over limit", used: 12, oldest: timePtr(now.Add(-time.Hour)), admitted: false, retry: 23 * time.Hour},
		{name: "oldest about to expire", used: 10, oldest: timePtr(now.Add(-24 * time.Hour)), admitted: false, retry: time.Second},
		{name: "unknown oldest", used: 10, admitted: false, retry: 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := evaluateQuota("203.0.113.5", tt.used, tt.oldest, now, testQuota)
			assert.Equal(t, tt.admitted, d.Admitted)
			assert.Equal(t, tt.retry, d.RetryAfter)
			assert.Equal(t, tt.remaining, d.Remaining())
			assert.Equal(t, int64(10), d.Limit)
		})
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
