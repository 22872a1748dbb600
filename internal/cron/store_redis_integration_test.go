//go:build integration

package cron

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate redis container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	opts, err := redis.ParseURL(connStr)
	require.NoError(t, err)
	rdb := redis.NewClient(opts)
	t.Cleanup(func() { _ = rdb.Close() })

	return NewRedisStore(rdb)
}

func sampleJob(id string) CronJob {
	return CronJob{
		ID:       id,
		Name:     "integration-job",
		Enabled:  true,
		Schedule: CronSchedule{Kind: ScheduleKindEvery, PeriodMs: 60_000},
		Payload:  CronPayload{Kind: PayloadKindSystemEvent, Message: "hi"},
	}
}

func TestRedisStoreSaveAndLoadJobsRoundTrip(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveJob(ctx, sampleJob("job-1")))
	require.NoError(t, store.SaveJob(ctx, sampleJob("job-2")))

	jobs, err := store.LoadJobs(ctx)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

func TestRedisStoreDeleteJobRemovesJobAndRuns(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveJob(ctx, sampleJob("job-1")))
	require.NoError(t, store.AppendRun(ctx, "job-1", CronRunRecord{
		JobID:        "job-1",
		StartedAtMs:  time.Now().UnixMilli(),
		FinishedAtMs: time.Now().UnixMilli(),
		Status:       RunStatusOk,
	}))

	require.NoError(t, store.DeleteJob(ctx, "job-1"))

	jobs, err := store.LoadJobs(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs)

	runs, err := store.GetRuns(ctx, "job-1", 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRedisStoreAppendRunTrimsToMaxStoredRuns(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveJob(ctx, sampleJob("job-1")))

	for i := 0; i < maxStoredRunsPerJob+10; i++ {
		require.NoError(t, store.AppendRun(ctx, "job-1", CronRunRecord{
			JobID:       "job-1",
			StartedAtMs: int64(i),
			Status:      RunStatusOk,
		}))
	}

	runs, err := store.GetRuns(ctx, "job-1", 0)
	require.NoError(t, err)
	assert.Len(t, runs, maxStoredRunsPerJob)
	assert.Equal(t, int64(10), runs[0].StartedAtMs)
}
