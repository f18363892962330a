package report

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/payroll/store"
)

// countingStore records how often the timesheet is read.
type countingStore struct {
	payroll.Store
	loads int
}

func (c *countingStore) LoadTimesheet(ctx context.Context) ([]payroll.TimesheetRow, error) {
	c.loads++
	return c.Store.LoadTimesheet(ctx)
}

func shift(employee int64, month time.Month, day int, hours string, group payroll.JobGroup) payroll.TimesheetRow {
	return payroll.TimesheetRow{
		DateLogged:  payroll.NewDate(2023, month, day),
		HoursWorked: decimal.RequireFromString(hours),
		EmployeeID:  employee,
		JobGroup:    group,
		IngestionID: "ing-" + month.String(),
	}
}

func seed(t *testing.T, s payroll.Store, identifier string, rows ...payroll.TimesheetRow) {
	t.Helper()
	ctx := context.Background()
	err := s.WithTx(ctx, func(tx payroll.IngestTx) error {
		if err := tx.RecordIngestion(ctx, payroll.IngestionRecord{ID: identifier, Identifier: identifier, RowCount: len(rows)}); err != nil {
			return err
		}
		return tx.AppendRows(ctx, rows)
	})
	require.NoError(t, err)
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, NewRedisCache(client, time.Minute)
}

func TestGenerate_EmptyStore(t *testing.T) {
	svc := NewService(store.NewMemory(), nil, nil, zap.NewNop())

	_, err := svc.Generate(context.Background())
	assert.ErrorIs(t, err, payroll.ErrEmptyReportSource)
}

func TestGenerate_WithoutCache(t *testing.T) {
	backing := &countingStore{Store: store.NewMemory()}
	seed(t, backing, "jan", shift(1, time.January, 3, "10", payroll.JobGroupA))
	svc := NewService(backing, nil, nil, nil)

	for i := 0; i < 2; i++ {
		reports, err := svc.Generate(context.Background())
		require.NoError(t, err)
		require.Len(t, reports, 1)
		assert.Equal(t, "$200.00", reports[0].AmountPaid)
	}
	assert.Equal(t, 2, backing.loads)
}

func TestGenerate_ServesFromRedisUntilInvalidated(t *testing.T) {
	// GIVEN: A report service backed by redis
	mr, cache := setupTestRedis(t)
	backing := &countingStore{Store: store.NewMemory()}
	seed(t, backing, "jan", shift(1, time.January, 3, "10", payroll.JobGroupA))
	svc := NewService(backing, payroll.NewPayCalculator(), cache, zap.NewNop())
	ctx := context.Background()

	// WHEN: Generating twice
	first, err := svc.Generate(ctx)
	require.NoError(t, err)
	second, err := svc.Generate(ctx)
	require.NoError(t, err)

	// THEN: Storage is read once and both results match
	assert.Equal(t, 1, backing.loads)
	assert.Equal(t, first, second)
	assert.True(t, mr.Exists(DefaultCacheKey))
	assert.Equal(t, time.Minute, mr.TTL(DefaultCacheKey))

	// WHEN: New rows arrive and the cache is invalidated
	seed(t, backing, "feb", shift(2, time.February, 20, "2", payroll.JobGroupB))
	svc.Invalidate(ctx)
	third, err := svc.Generate(ctx)
	require.NoError(t, err)

	// THEN: The report is rebuilt from storage
	assert.Equal(t, 2, backing.loads)
	require.Len(t, third, 2)
	assert.Equal(t, "$60.00", third[1].AmountPaid)
	assert.Equal(t, payroll.Resolve(2023, time.February, 20), third[1].PayPeriod)
}

func TestGenerate_CacheFailureFallsBackToStore(t *testing.T) {
	mr, cache := setupTestRedis(t)
	backing := &countingStore{Store: store.NewMemory()}
	seed(t, backing, "jan", shift(1, time.January, 3, "1", payroll.JobGroupB))
	svc := NewService(backing, nil, cache, zap.NewNop())

	mr.Close()

	reports, err := svc.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "$30.00", reports[0].AmountPaid)
}

func TestRedisCache_CorruptEntry(t *testing.T) {
	mr, cache := setupTestRedis(t)
	require.NoError(t, mr.Set(DefaultCacheKey, "not json"))

	_, ok, err := cache.Get(context.Background())
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestRedisCache_Miss(t *testing.T) {
	_, cache := setupTestRedis(t)

	reports, ok, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, reports)
}

// slowReadStore returns the rows it read, then blocks once until released,
// so an ingestion can land between the read and the cache write.
type slowReadStore struct {
	payroll.Store
	once    sync.Once
	read    chan struct{}
	release chan struct{}
}

func newSlowReadStore(backing payroll.Store) *slowReadStore {
	return &slowReadStore{Store: backing, read: make(chan struct{}), release: make(chan struct{})}
}

func (s *slowReadStore) LoadTimesheet(ctx context.Context) ([]payroll.TimesheetRow, error) {
	rows, err := s.Store.LoadTimesheet(ctx)
	s.once.Do(func() {
		close(s.read)
		<-s.release
	})
	return rows, err
}

func TestGenerate_InvalidationDuringBuildIsNotOverwritten(t *testing.T) {
	// GIVEN: A report build that has read January but not yet cached it
	mr, cache := setupTestRedis(t)
	backing := newSlowReadStore(store.NewMemory())
	seed(t, backing, "jan", shift(1, time.January, 3, "10", payroll.JobGroupA))
	svc := NewService(backing, nil, cache, zap.NewNop())
	ctx := context.Background()

	done := make(chan []payroll.PayrollReport)
	go func() {
		reports, err := svc.Generate(ctx)
		assert.NoError(t, err)
		done <- reports
	}()
	<-backing.read

	// WHEN: February is ingested and the cache invalidated before the build finishes
	seed(t, backing, "feb", shift(2, time.February, 20, "2", payroll.JobGroupB))
	svc.Invalidate(ctx)
	close(backing.release)
	assert.Len(t, <-done, 1)

	// THEN: The outdated build was not cached and the next report includes February
	assert.False(t, mr.Exists(DefaultCacheKey))
	reports, err := svc.Generate(ctx)
	require.NoError(t, err)
	assert.Len(t, reports, 2)
}

func TestRefresh_ReplacesCachedReport(t *testing.T) {
	mr, cache := setupTestRedis(t)
	backing := &countingStore{Store: store.NewMemory()}
	seed(t, backing, "jan", shift(1, time.January, 3, "10", payroll.JobGroupA))
	svc := NewService(backing, nil, cache, zap.NewNop())
	ctx := context.Background()

	stale := []payroll.PayrollReport{{EmployeeID: 9, AmountPaid: "$1.00"}}
	require.NoError(t, cache.Put(ctx, 0, stale))

	reports, err := svc.Refresh(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "$200.00", reports[0].AmountPaid)

	cached, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, reports, cached)
	assert.True(t, mr.Exists(DefaultCacheKey))
}

func TestRedisCache_PutWithOldVersionIsDropped(t *testing.T) {
	mr, cache := setupTestRedis(t)
	ctx := context.Background()

	version, err := cache.Version(ctx)
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(ctx))

	require.NoError(t, cache.Put(ctx, version, []payroll.PayrollReport{{EmployeeID: 1}}))
	assert.False(t, mr.Exists(DefaultCacheKey))

	current, err := cache.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, version+1, current)
	require.NoError(t, cache.Put(ctx, current, []payroll.PayrollReport{{EmployeeID: 1}}))
	assert.True(t, mr.Exists(DefaultCacheKey))
}
