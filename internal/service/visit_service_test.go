package service

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-be/internal/domain"
	"portfolio-be/pkg/errors"
	"portfolio-be/pkg/logger"
)

// fakeVisitRepo is an in-memory VisitRepository that counts store access
type fakeVisitRepo struct {
	mu          sync.Mutex
	records     []domain.VisitRecord
	countCalls  int
	recordCalls int
	countErr    error
	recordErr   error
	// runs after the count is read, before it is returned
	onCount func()
}

func (r *fakeVisitRepo) seed(n int, ip string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := 0; i < n; i++ {
		r.records = append(r.records, domain.VisitRecord{ID: int64(len(r.records) + 1), IP: ip, CreatedAt: at})
	}
}

func (r *fakeVisitRepo) calls() (count, record int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.countCalls, r.recordCalls
}

func (r *fakeVisitRepo) CountVisits(ctx context.Context) (int64, error) {
	r.mu.Lock()
	r.countCalls++
	n, err := int64(len(r.records)), r.countErr
	hook := r.onCount
	r.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *fakeVisitRepo) CountVisitsSince(ctx context.Context, ip string, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, rec := range r.records {
		if rec.IP == ip && !rec.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *fakeVisitRepo) RecordVisit(ctx context.Context, ip string, now time.Time, quota domain.Quota) (*domain.QuotaDecision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recordCalls++
	if r.recordErr != nil {
		return nil, r.recordErr
	}

	var used int64
	for _, rec := range r.records {
		if rec.IP == ip && !rec.CreatedAt.Before(now.Add(-quota.Window)) {
			used++
		}
	}
	if used >= quota.Limit {
		return &domain.QuotaDecision{IP: ip, Used: used, Limit: quota.Limit, RetryAfter: time.Hour}, nil
	}

	rec := domain.VisitRecord{ID: int64(len(r.records) + 1), IP: ip, CreatedAt: now}
	r.records = append(r.records, rec)
	return &domain.QuotaDecision{IP: ip, Admitted: true, Used: used + 1, Limit: quota.Limit, Record: &rec}, nil
}

func (r *fakeVisitRepo) Health(ctx context.Context) error { return nil }
func (r *fakeVisitRepo) Close() error                     { return nil }

func newTestVisitService(repo *fakeVisitRepo) (*visitService, *fakeClock) {
	clock := newFakeClock()
	cache := NewMemoryCountCache(DefaultCountTTL, clock.Now)
	quota := domain.Quota{Limit: DefaultDailyLimit, Window: DefaultWindow}
	return newVisitService(repo, cache, quota, logger.NewNop(), clock.Now), clock
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var appErr *errors.AppError
	require.True(t, stderrors.As(err, &appErr), "expected AppError, got %v", err)
	return appErr.StatusCode
}

func TestVisitService_Scenario(t *testing.T) {
	repo := &fakeVisitRepo{}
	repo.seed(42, "198.51.100.1", newFakeClock().Now().Add(-48*time.Hour))
	svc, _ := newTestVisitService(repo)
	ctx := context.Background()

	count, err := svc.GetCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)

	result, err := svc.RecordVisit(ctx, "203.0.113.5")
	require.NoError(t, err)
	require.True(t, result.Decision.Admitted)
	assert.Equal(t, int64(43), result.Count)

	countCalls, _ := repo.calls()
	count, err = svc.GetCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(43), count)
	afterGet, _ := repo.calls()
	assert.Equal(t, countCalls, afterGet, "read after write served from cache")

	_, err = svc.RecordVisit(ctx, "not-an-ip")
	require.Error(t, err)
	assert.Equal(t, 400, statusOf(t, err))

	_, recordCalls := repo.calls()
	assert.Equal(t, 1, recordCalls, "invalid ip never reaches the store")

	count, err = svc.GetCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(43), count)
}

func TestVisitService_DailyQuota(t *testing.T) {
	repo := &fakeVisitRepo{}
	repo.seed(43, "198.51.100.1", newFakeClock().Now().Add(-48*time.Hour))
	svc, clock := newTestVisitService(repo)
	ctx := context.Background()

	for i := int64(1); i <= 10; i++ {
		clock.Advance(time.Minute)
		result, err := svc.RecordVisit(ctx, "203.0.113.5")
		require.NoError(t, err)
		require.True(t, result.Decision.Admitted, "visit %d", i)
		assert.Equal(t, 43+i, result.Count, "count increments by exactly one")
		assert.Equal(t, 10-i, result.Decision.Remaining())
	}

	result, err := svc.RecordVisit(ctx, "203.0.113.5")
	require.NoError(t, err)
	assert.False(t, result.Decision.Admitted)
	assert.Equal(t, int64(0), result.Count)

	count, err := svc.GetCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(53), count)

	// the rolling window moves past the first ten visits
	clock.Advance(24 * time.Hour)
	result, err = svc.RecordVisit(ctx, "203.0.113.5")
	require.NoError(t, err)
	assert.True(t, result.Decision.Admitted)
	assert.Equal(t, int64(54), result.Count)
}

func TestVisitService_CacheHitWithinTTL(t *testing.T) {
	repo := &fakeVisitRepo{}
	repo.seed(5, "192.0.2.1", time.Time{})
	svc, clock := newTestVisitService(repo)
	ctx := context.Background()

	first, err := svc.GetCount(ctx)
	require.NoError(t, err)

	clock.Advance(DefaultCountTTL - time.Millisecond)
	second, err := svc.GetCount(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	countCalls, _ := repo.calls()
	assert.Equal(t, 1, countCalls)
}

func TestVisitService_RecomputeAfterTTL(t *testing.T) {
	repo := &fakeVisitRepo{}
	repo.seed(5, "192.0.2.1", time.Time{})
	svc, clock := newTestVisitService(repo)
	ctx := context.Background()

	count, err := svc.GetCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)

	// written by another instance; invisible until the ttl passes
	repo.seed(2, "192.0.2.2", time.Time{})
	count, err = svc.GetCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)

	clock.Advance(DefaultCountTTL)
	count, err = svc.GetCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)

	countCalls, _ := repo.calls()
	assert.Equal(t, 2, countCalls, "exactly one recomputation")

	direct, err := repo.CountVisits(ctx)
	require.NoError(t, err)
	assert.Equal(t, direct, count)
}

func TestVisitService_RecomputeFailureIsNotMaskedByStaleCount(t *testing.T) {
	repo := &fakeVisitRepo{}
	repo.seed(5, "192.0.2.1", time.Time{})
	svc, clock := newTestVisitService(repo)
	ctx := context.Background()

	_, err := svc.GetCount(ctx)
	require.NoError(t, err)

	clock.Advance(DefaultCountTTL)
	repo.mu.Lock()
	repo.countErr = stderrors.New("connection reset")
	repo.mu.Unlock()

	_, err = svc.GetCount(ctx)
	require.Error(t, err)
	assert.Equal(t, 500, statusOf(t, err))
	assert.NotContains(t, err.(*errors.AppError).Message, "connection reset")
}

func TestVisitService_RecordFailureLeavesCacheAlone(t *testing.T) {
	repo := &fakeVisitRepo{}
	repo.seed(5, "192.0.2.1", time.Time{})
	svc, _ := newTestVisitService(repo)
	ctx := context.Background()

	_, err := svc.GetCount(ctx)
	require.NoError(t, err)

	repo.mu.Lock()
	repo.recordErr = stderrors.New("disk full")
	repo.mu.Unlock()

	_, err = svc.RecordVisit(ctx, "203.0.113.5")
	require.Error(t, err)
	assert.Equal(t, 500, statusOf(t, err))

	cached, gen, ok := svc.cache.Get(ctx)
	assert.True(t, ok, "cache still fresh")
	assert.Equal(t, int64(5), cached)
	assert.Equal(t, uint64(0), gen, "no invalidation without a write")
}

func TestVisitService_RejectedVisitLeavesCacheAlone(t *testing.T) {
	repo := &fakeVisitRepo{}
	svc, _ := newTestVisitService(repo)
	ctx := context.Background()
	repo.seed(10, "203.0.113.5", svc.now())

	_, err := svc.GetCount(ctx)
	require.NoError(t, err)

	result, err := svc.RecordVisit(ctx, "203.0.113.5")
	require.NoError(t, err)
	assert.False(t, result.Decision.Admitted)

	_, _, ok := svc.cache.Get(ctx)
	assert.True(t, ok)
	countCalls, _ := repo.calls()
	assert.Equal(t, 1, countCalls)
}

func TestVisitService_ConcurrentStaleReadsShareOneQuery(t *testing.T) {
	release := make(chan struct{})
	repo := &fakeVisitRepo{}
	repo.seed(3, "192.0.2.1", time.Time{})
	repo.onCount = func() { <-release }
	svc, _ := newTestVisitService(repo)
	ctx := context.Background()

	const readers = 20
	var wg sync.WaitGroup
	results := make([]int64, readers)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			count, err := svc.GetCount(ctx)
			assert.NoError(t, err)
			results[i] = count
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, count := range results {
		assert.Equal(t, int64(3), count)
	}
	countCalls, _ := repo.calls()
	assert.Equal(t, 1, countCalls)
}

func TestVisitService_WriteDuringRecomputeIsNotOverwritten(t *testing.T) {
	repo := &fakeVisitRepo{}
	repo.seed(42, "198.51.100.1", time.Time{})
	svc, _ := newTestVisitService(repo)
	ctx := context.Background()

	inFlight := make(chan struct{})
	release := make(chan struct{})
	var first atomic.Bool
	repo.onCount = func() {
		if first.CompareAndSwap(false, true) {
			close(inFlight)
			<-release
		}
	}

	readDone := make(chan int64)
	go func() {
		count, err := svc.GetCount(ctx)
		assert.NoError(t, err)
		readDone <- count
	}()

	<-inFlight
	result, err := svc.RecordVisit(ctx, "203.0.113.5")
	require.NoError(t, err)
	assert.Equal(t, int64(43), result.Count)

	close(release)
	assert.Equal(t, int64(42), <-readDone, "the overlapping read reports its own snapshot")

	count, err := svc.GetCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(43), count, "the stale snapshot must not replace the post-write count")
}

// gatedSetCache blocks the first Set until released, holding a recompute
// between its store query and its cache write
type gatedSetCache struct {
	CountCache
	gated   atomic.Bool
	reached chan struct{}
	release chan struct{}
}

func (c *gatedSetCache) Set(ctx context.Context, count int64, gen uint64) {
	if c.gated.CompareAndSwap(false, true) {
		close(c.reached)
		<-c.release
	}
	c.CountCache.Set(ctx, count, gen)
}

func TestVisitService_WriteBetweenRecomputeAndCacheFillIsNotOverwritten(t *testing.T) {
	repo := &fakeVisitRepo{}
	repo.seed(42, "198.51.100.1", time.Time{})
	clock := newFakeClock()
	cache := &gatedSetCache{
		CountCache: NewMemoryCountCache(DefaultCountTTL, clock.Now),
		reached:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	quota := domain.Quota{Limit: DefaultDailyLimit, Window: DefaultWindow}
	svc := newVisitService(repo, cache, quota, logger.NewNop(), clock.Now)
	ctx := context.Background()

	readDone := make(chan int64)
	go func() {
		count, err := svc.GetCount(ctx)
		assert.NoError(t, err)
		readDone <- count
	}()

	<-cache.reached
	result, err := svc.RecordVisit(ctx, "203.0.113.5")
	require.NoError(t, err)
	assert.Equal(t, int64(43), result.Count)

	close(cache.release)
	assert.Equal(t, int64(42), <-readDone)

	count, err := svc.GetCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(43), count, "read after a successful write includes it")
}
