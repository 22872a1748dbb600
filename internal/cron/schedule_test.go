package cron

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeNextRunEvery(t *testing.T) {
	next, err := ComputeNextRun(CronSchedule{Kind: ScheduleKindEvery, PeriodMs: 1000}, 2500)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.EqualValues(t, 3000, *next)
}

func TestComputeNextRunEveryWithAnchorInFuture(t *testing.T) {
	anchor := int64(5000)
	next, err := ComputeNextRun(CronSchedule{Kind: ScheduleKindEvery, PeriodMs: 1000, AnchorMs: &anchor}, 0)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.EqualValues(t, 5000, *next)
}

func TestComputeNextRunAtInPastReturnsNil(t *testing.T) {
	next, err := ComputeNextRun(CronSchedule{Kind: ScheduleKindAt, AtMs: 1000}, 5000)
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestComputeNextRunAtInFuture(t *testing.T) {
	next, err := ComputeNextRun(CronSchedule{Kind: ScheduleKindAt, AtMs: 9999}, 0)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.EqualValues(t, 9999, *next)
}

func TestComputeNextRunCronExpr(t *testing.T) {
	next, err := ComputeNextRun(CronSchedule{Kind: ScheduleKindCron, Expr: "0 0 * * *"}, 0)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Greater(t, *next, int64(0))
}

func TestComputeNextRunInvalidCronExpr(t *testing.T) {
	_, err := ComputeNextRun(CronSchedule{Kind: ScheduleKindCron, Expr: "not a cron"}, 0)
	assert.Error(t, err)
}
