package cron

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopSystemEvent() SystemEventFn { return func(string) {} }

func noopAgentTurn() AgentTurnFn {
	return func(ctx context.Context, req AgentTurnRequest) (AgentTurnResult, error) {
		return AgentTurnResult{Output: "ok"}, nil
	}
}

func countingSystemEvent(counter *atomic.Int64) SystemEventFn {
	return func(string) { counter.Add(1) }
}

func countingAgentTurn(counter *atomic.Int64) AgentTurnFn {
	return func(ctx context.Context, req AgentTurnRequest) (AgentTurnResult, error) {
		counter.Add(1)
		return AgentTurnResult{Output: "done"}, nil
	}
}

func agentTurnJob(name string) CronJobCreate {
	return CronJobCreate{
		Name:     name,
		Schedule: CronSchedule{Kind: ScheduleKindEvery, PeriodMs: 60_000},
		Payload: CronPayload{
			Kind:    PayloadKindAgentTurn,
			Message: "hi",
		},
		SessionTarget: SessionTargetIsolated,
		Enabled:       true,
	}
}

func TestAddAndList(t *testing.T) {
	svc := NewService(NewMemoryStore(), noopSystemEvent(), noopAgentTurn())

	job, err := svc.Add(context.Background(), agentTurnJob("test"))
	require.NoError(t, err)

	jobs := svc.List()
	require.Len(t, jobs, 1)
	assert.Equal(t, job.ID, jobs[0].ID)
	assert.NotNil(t, jobs[0].State.NextRunAtMs)
}

func TestAddValidatesSessionTarget(t *testing.T) {
	svc := NewService(NewMemoryStore(), noopSystemEvent(), noopAgentTurn())

	create := agentTurnJob("bad")
	create.SessionTarget = SessionTargetMain
	create.Schedule = CronSchedule{Kind: ScheduleKindAt, AtMs: 9_999_999_999_999}

	_, err := svc.Add(context.Background(), create)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sessionTarget=main requires payload kind=systemEvent")
}

func TestUpdateJob(t *testing.T) {
	svc := NewService(NewMemoryStore(), noopSystemEvent(), noopAgentTurn())

	job, err := svc.Add(context.Background(), agentTurnJob("orig"))
	require.NoError(t, err)

	newName := "renamed"
	updated, err := svc.Update(context.Background(), job.ID, CronJobPatch{Name: &newName})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
}

func TestRemoveJob(t *testing.T) {
	svc := NewService(NewMemoryStore(), noopSystemEvent(), noopAgentTurn())

	job, err := svc.Add(context.Background(), agentTurnJob("del"))
	require.NoError(t, err)

	require.NoError(t, svc.Remove(context.Background(), job.ID))
	assert.Empty(t, svc.List())
}

func TestStatusExcludesSystemJobs(t *testing.T) {
	svc := NewService(NewMemoryStore(), noopSystemEvent(), noopAgentTurn())

	_, err := svc.Add(context.Background(), CronJobCreate{
		Name:          "heartbeat",
		Schedule:      CronSchedule{Kind: ScheduleKindEvery, PeriodMs: 60_000},
		Payload:       CronPayload{Kind: PayloadKindSystemEvent, Text: "tick"},
		SessionTarget: SessionTargetMain,
		Enabled:       true,
		System:        true,
	})
	require.NoError(t, err)

	status := svc.Status()
	assert.False(t, status.Running)
	assert.Equal(t, 0, status.JobCount)
}

func TestForceRunExecutesAgentTurn(t *testing.T) {
	var counter atomic.Int64
	svc := NewService(NewMemoryStore(), noopSystemEvent(), countingAgentTurn(&counter))

	create := agentTurnJob("force")
	create.Schedule = CronSchedule{Kind: ScheduleKindEvery, PeriodMs: 999_999_999}
	job, err := svc.Add(context.Background(), create)
	require.NoError(t, err)

	require.NoError(t, svc.Run(context.Background(), job.ID, false))
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, counter.Load())
}

func TestRunDisabledFailsWithoutForce(t *testing.T) {
	svc := NewService(NewMemoryStore(), noopSystemEvent(), noopAgentTurn())

	create := agentTurnJob("disabled")
	create.Enabled = false
	job, err := svc.Add(context.Background(), create)
	require.NoError(t, err)

	assert.Error(t, svc.Run(context.Background(), job.ID, false))
	assert.NoError(t, svc.Run(context.Background(), job.ID, true))
}

func TestSystemEventExecution(t *testing.T) {
	var counter atomic.Int64
	svc := NewService(NewMemoryStore(), countingSystemEvent(&counter), noopAgentTurn())

	create := CronJobCreate{
		Name:          "sys",
		Schedule:      CronSchedule{Kind: ScheduleKindEvery, PeriodMs: 60_000},
		Payload:       CronPayload{Kind: PayloadKindSystemEvent, Text: "ping"},
		SessionTarget: SessionTargetMain,
		Enabled:       true,
	}
	job, err := svc.Add(context.Background(), create)
	require.NoError(t, err)

	require.NoError(t, svc.Run(context.Background(), job.ID, true))
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, counter.Load())
}

func TestStartStop(t *testing.T) {
	svc := NewService(NewMemoryStore(), noopSystemEvent(), noopAgentTurn())

	require.NoError(t, svc.Start(context.Background()))
	assert.True(t, svc.Status().Running)

	svc.Stop()
	assert.False(t, svc.Status().Running)
}

func TestOneShotDisabledAfterRun(t *testing.T) {
	svc := NewService(NewMemoryStore(), noopSystemEvent(), noopAgentTurn())

	create := agentTurnJob("oneshot")
	create.Schedule = CronSchedule{Kind: ScheduleKindAt, AtMs: 1000} // far in the past
	job, err := svc.Add(context.Background(), create)
	require.NoError(t, err)

	require.NoError(t, svc.Run(context.Background(), job.ID, true))
	time.Sleep(100 * time.Millisecond)

	jobs := svc.List()
	idx := indexOf(jobs, job.ID)
	require.GreaterOrEqual(t, idx, 0)
	assert.False(t, jobs[idx].Enabled, "one-shot job should be disabled after run")
}

func TestRateLimiting(t *testing.T) {
	svc := NewService(NewMemoryStore(), noopSystemEvent(), noopAgentTurn(),
		WithRateLimit(RateLimitConfig{MaxPerWindow: 3, Window: time.Minute}))

	for i := 0; i < 3; i++ {
		_, err := svc.Add(context.Background(), agentTurnJob("test"))
		require.NoError(t, err)
	}

	_, err := svc.Add(context.Background(), agentTurnJob("test"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit exceeded")
}

func TestRateLimitingSkipsSystemJobs(t *testing.T) {
	svc := NewService(NewMemoryStore(), noopSystemEvent(), noopAgentTurn(),
		WithRateLimit(RateLimitConfig{MaxPerWindow: 1, Window: time.Minute}))

	create := func() CronJobCreate {
		return CronJobCreate{
			Name:          "system-job",
			Schedule:      CronSchedule{Kind: ScheduleKindEvery, PeriodMs: 60_000},
			Payload:       CronPayload{Kind: PayloadKindSystemEvent, Text: "heartbeat"},
			SessionTarget: SessionTargetMain,
			Enabled:       true,
			System:        true,
		}
	}

	for i := 0; i < 3; i++ {
		_, err := svc.Add(context.Background(), create())
		require.NoError(t, err)
	}
	assert.Len(t, svc.List(), 3)
}

func TestStartExecutesDueJobsAndRecordsRuns(t *testing.T) {
	var counter atomic.Int64
	svc := NewService(NewMemoryStore(), noopSystemEvent(), countingAgentTurn(&counter))

	create := agentTurnJob("live-timer")
	create.Schedule = CronSchedule{Kind: ScheduleKindEvery, PeriodMs: 25}
	job, err := svc.Add(context.Background(), create)
	require.NoError(t, err)

	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for counter.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	require.Greater(t, counter.Load(), int64(0), "cron scheduler did not execute any due jobs in time")

	runs, err := svc.Runs(context.Background(), job.ID, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, runs, "expected at least one persisted run record")
}

func TestClearStuckJobsHandlesFutureRunningAtWithoutOverflow(t *testing.T) {
	svc := NewService(NewMemoryStore(), noopSystemEvent(), noopAgentTurn())

	job, err := svc.Add(context.Background(), agentTurnJob("future-running-at"))
	require.NoError(t, err)

	now := nowMs()
	future := now + 1000
	svc.updateJobState(job.ID, func(state *CronJobState) {
		state.RunningAtMs = &future
	})

	svc.clearStuckJobs(now)

	jobs := svc.List()
	idx := indexOf(jobs, job.ID)
	require.GreaterOrEqual(t, idx, 0)
	require.NotNil(t, jobs[idx].State.RunningAtMs)
	assert.Equal(t, future, *jobs[idx].State.RunningAtMs)
	assert.Nil(t, jobs[idx].State.LastError)
}

func TestSaturatingSub(t *testing.T) {
	assert.EqualValues(t, 0, saturatingSub(5, 10))
	assert.EqualValues(t, 5, saturatingSub(10, 5))
}
