package cron

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	redisJobsKey      = "moltis:cron:jobs"
	redisRunsKeyPrefix = "moltis:cron:runs:"
	maxStoredRunsPerJob = 500
)

// RedisStore persists CronJob entities in a Redis hash (id -> JSON job) and
// run history in a per-job capped list, following the same client-wrapping
// shape as the rest of the pack's Redis adapters.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps an already-connected redis.Client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) LoadJobs(ctx context.Context) ([]CronJob, error) {
	raw, err := s.rdb.HGetAll(ctx, redisJobsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("cron: load jobs: %w", err)
	}
	jobs := make([]CronJob, 0, len(raw))
	for id, v := range raw {
		var job CronJob
		if err := json.Unmarshal([]byte(v), &job); err != nil {
			return nil, fmt.Errorf("cron: decode job %s: %w", id, err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (s *RedisStore) SaveJob(ctx context.Context, job CronJob) error {
	return s.putJob(ctx, job)
}

func (s *RedisStore) UpdateJob(ctx context.Context, job CronJob) error {
	return s.putJob(ctx, job)
}

func (s *RedisStore) putJob(ctx context.Context, job CronJob) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("cron: encode job %s: %w", job.ID, err)
	}
	if err := s.rdb.HSet(ctx, redisJobsKey, job.ID, encoded).Err(); err != nil {
		return fmt.Errorf("cron: save job %s: %w", job.ID, err)
	}
	return nil
}

func (s *RedisStore) DeleteJob(ctx context.Context, id string) error {
	if err := s.rdb.HDel(ctx, redisJobsKey, id).Err(); err != nil {
		return fmt.Errorf("cron: delete job %s: %w", id, err)
	}
	if err := s.rdb.Del(ctx, redisRunsKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("cron: delete runs for job %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) GetRuns(ctx context.Context, jobID string, limit int) ([]CronRunRecord, error) {
	if limit <= 0 {
		limit = maxStoredRunsPerJob
	}
	raw, err := s.rdb.LRange(ctx, redisRunsKeyPrefix+jobID, int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("cron: get runs for job %s: %w", jobID, err)
	}
	runs := make([]CronRunRecord, 0, len(raw))
	for _, v := range raw {
		var run CronRunRecord
		if err := json.Unmarshal([]byte(v), &run); err != nil {
			return nil, fmt.Errorf("cron: decode run for job %s: %w", jobID, err)
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func (s *RedisStore) AppendRun(ctx context.Context, jobID string, run CronRunRecord) error {
	encoded, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("cron: encode run for job %s: %w", jobID, err)
	}
	key := redisRunsKeyPrefix + jobID
	pipe := s.rdb.TxPipeline()
	pipe.RPush(ctx, key, encoded)
	pipe.LTrim(ctx, key, -maxStoredRunsPerJob, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cron: append run for job %s: %w", jobID, err)
	}
	return nil
}
