package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/moltis-ai/moltis/internal/telemetry"
)

// stuckThreshold is the max time a job may sit in "running" before the
// scheduler considers it abandoned and clears it.
const stuckThreshold = 2 * time.Hour

// pollInterval is how long the timer loop sleeps when no job has a next run.
const pollInterval = 60 * time.Second

// SystemEventFn synchronously injects text into the main session.
type SystemEventFn func(text string)

// AgentTurnFn runs an isolated agent turn and returns its result.
type AgentTurnFn func(ctx context.Context, req AgentTurnRequest) (AgentTurnResult, error)

// NotifyFn receives job lifecycle notifications for bridging onto the
// Broadcast Bus.
type NotifyFn func(CronNotification)

// Option configures a Service at construction.
type Option func(*Service)

// WithNotify registers a notification sink for job Created/Updated/Removed.
func WithNotify(fn NotifyFn) Option {
	return func(s *Service) { s.onNotify = fn }
}

// WithRateLimit overrides the default job-creation rate limit.
func WithRateLimit(config RateLimitConfig) Option {
	return func(s *Service) { s.rateLimiter = newRateLimiter(config) }
}

// WithLogger overrides the service's logger. Defaults to a no-op logger.
func WithLogger(log telemetry.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithMetrics overrides the service's metrics sink. Defaults to a no-op sink.
func WithMetrics(m telemetry.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// Service is the cron scheduler: a store-backed set of jobs, a timer loop,
// and execution dispatch to injected collaborators.
type Service struct {
	store       Store
	onSystemEvent SystemEventFn
	onAgentTurn   AgentTurnFn
	onNotify      NotifyFn
	rateLimiter   *rateLimiter
	log           telemetry.Logger
	metrics       telemetry.Metrics

	mu      sync.RWMutex
	jobs    []CronJob
	running bool

	wake     chan struct{}
	loopDone chan struct{}
}

// NewService constructs a Service. onSystemEvent and onAgentTurn are
// required collaborators; options configure everything else.
func NewService(store Store, onSystemEvent SystemEventFn, onAgentTurn AgentTurnFn, opts ...Option) *Service {
	s := &Service{
		store:         store,
		onSystemEvent: onSystemEvent,
		onAgentTurn:   onAgentTurn,
		rateLimiter:   newRateLimiter(DefaultRateLimitConfig()),
		log:           telemetry.NewNoopLogger(),
		metrics:       telemetry.NewNoopMetrics(),
		wake:          make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func nowMs() int64 {
	return time.Now().UnixMilli()
}

func (s *Service) notify(n CronNotification) {
	if s.onNotify != nil {
		s.onNotify(n)
	}
}

// Start loads jobs from the store, recomputes their next-run times, and
// spawns the timer loop.
func (s *Service) Start(ctx context.Context) error {
	loaded, err := s.store.LoadJobs(ctx)
	if err != nil {
		return fmt.Errorf("cron: load jobs: %w", err)
	}
	s.log.Info(ctx, "loaded cron jobs", "count", len(loaded))

	s.mu.Lock()
	s.jobs = loaded
	now := nowMs()
	for i := range s.jobs {
		if s.jobs[i].Enabled {
			next, err := ComputeNextRun(s.jobs[i].Schedule, now)
			if err == nil {
				s.jobs[i].State.NextRunAtMs = next
			}
		}
	}
	s.running = true
	s.loopDone = make(chan struct{})
	s.mu.Unlock()

	go s.timerLoop()
	return nil
}

// Stop halts the timer loop and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	done := s.loopDone
	s.mu.Unlock()

	s.wakeNow()
	if done != nil {
		<-done
	}
	s.log.Info(context.Background(), "cron service stopped")
}

func (s *Service) wakeNow() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Service) isRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Add validates, persists, and schedules a new job.
func (s *Service) Add(ctx context.Context, create CronJobCreate) (*CronJob, error) {
	now := nowMs()
	id := uuid.NewString()
	if create.ID != nil {
		id = *create.ID
	}
	job := CronJob{
		ID:             id,
		Name:           create.Name,
		Enabled:        create.Enabled,
		DeleteAfterRun: create.DeleteAfterRun,
		System:         create.System,
		Schedule:       create.Schedule,
		Payload:        create.Payload,
		SessionTarget:  create.SessionTarget,
		Sandbox:        create.Sandbox,
		CreatedAtMs:    now,
		UpdatedAtMs:    now,
	}

	if err := validateJobSpec(job); err != nil {
		return nil, err
	}

	if !create.System {
		if err := s.rateLimiter.check(nowMs()); err != nil {
			return nil, err
		}
	}

	if job.Enabled {
		next, err := ComputeNextRun(job.Schedule, now)
		if err != nil {
			return nil, err
		}
		job.State.NextRunAtMs = next
	}

	if err := s.store.SaveJob(ctx, job); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.jobs = append(s.jobs, job)
	s.mu.Unlock()

	s.wakeNow()
	s.notify(CronNotification{Kind: NotificationKindCreated, Job: &job})
	s.log.Info(ctx, "cron job added", "id", job.ID, "name", job.Name)
	return &job, nil
}

// Update applies non-nil patch fields to an existing job.
func (s *Service) Update(ctx context.Context, id string, patch CronJobPatch) (*CronJob, error) {
	now := nowMs()

	s.mu.Lock()
	idx := indexOf(s.jobs, id)
	if idx < 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("job not found: %s", id)
	}
	job := s.jobs[idx]

	if patch.Name != nil {
		job.Name = *patch.Name
	}
	if patch.Schedule != nil {
		job.Schedule = *patch.Schedule
	}
	if patch.Payload != nil {
		job.Payload = *patch.Payload
	}
	if patch.SessionTarget != nil {
		job.SessionTarget = *patch.SessionTarget
	}
	if patch.Enabled != nil {
		job.Enabled = *patch.Enabled
	}
	if patch.DeleteAfterRun != nil {
		job.DeleteAfterRun = *patch.DeleteAfterRun
	}
	if patch.Sandbox != nil {
		job.Sandbox = *patch.Sandbox
	}
	job.UpdatedAtMs = now

	if err := validateJobSpec(job); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	if job.Enabled {
		next, err := ComputeNextRun(job.Schedule, now)
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
		job.State.NextRunAtMs = next
	} else {
		job.State.NextRunAtMs = nil
	}

	s.jobs[idx] = job
	s.mu.Unlock()

	if err := s.store.UpdateJob(ctx, job); err != nil {
		return nil, err
	}

	s.wakeNow()
	s.notify(CronNotification{Kind: NotificationKindUpdated, Job: &job})
	s.log.Info(ctx, "cron job updated", "id", job.ID)
	return &job, nil
}

// Remove deletes a job from the store and the in-memory set.
func (s *Service) Remove(ctx context.Context, id string) error {
	if err := s.store.DeleteJob(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	s.jobs = removeByID(s.jobs, id)
	s.mu.Unlock()

	s.notify(CronNotification{Kind: NotificationKindRemoved, JobID: id})
	s.log.Info(ctx, "cron job removed", "id", id)
	return nil
}

// List returns a cloned snapshot of all jobs.
func (s *Service) List() []CronJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]CronJob, len(s.jobs))
	for i, j := range s.jobs {
		out[i] = j.Clone()
	}
	return out
}

// Run force-runs a job immediately, rejecting disabled jobs unless force is
// set. Marks the job running before executing to prevent a concurrent timer
// tick from double-dispatching it.
func (s *Service) Run(ctx context.Context, id string, force bool) error {
	s.mu.RLock()
	idx := indexOf(s.jobs, id)
	if idx < 0 {
		s.mu.RUnlock()
		return fmt.Errorf("job not found: %s", id)
	}
	job := s.jobs[idx].Clone()
	s.mu.RUnlock()

	if !job.Enabled && !force {
		return fmt.Errorf("job is disabled (use force=true to override)")
	}

	now := nowMs()
	s.updateJobState(id, func(state *CronJobState) {
		state.RunningAtMs = &now
	})

	s.executeJob(ctx, job)
	return nil
}

// Runs returns run history for a job, most recent last.
func (s *Service) Runs(ctx context.Context, jobID string, limit int) ([]CronRunRecord, error) {
	return s.store.GetRuns(ctx, jobID, limit)
}

// Status summarizes scheduler state, excluding system jobs from counts.
func (s *Service) Status() CronStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var jobCount, enabledCount int
	var nextRun *int64
	for _, j := range s.jobs {
		if j.System {
			continue
		}
		jobCount++
		if j.Enabled {
			enabledCount++
		}
		if j.State.NextRunAtMs != nil && (nextRun == nil || *j.State.NextRunAtMs < *nextRun) {
			v := *j.State.NextRunAtMs
			nextRun = &v
		}
	}

	s.metrics.RecordGauge("cron.jobs_scheduled", float64(jobCount))

	return CronStatus{
		Running:      s.running,
		JobCount:     jobCount,
		EnabledCount: enabledCount,
		NextRunAtMs:  nextRun,
	}
}

func (s *Service) timerLoop() {
	defer close(s.loopDone)
	for {
		if !s.isRunning() {
			return
		}

		sleepFor := s.msUntilNextWake()
		if sleepFor > 0 {
			timer := time.NewTimer(time.Duration(sleepFor) * time.Millisecond)
			select {
			case <-timer.C:
			case <-s.wake:
				timer.Stop()
				s.log.Debug(context.Background(), "timer loop woken by notify")
				continue
			}
		}

		if !s.isRunning() {
			return
		}

		s.processDueJobs()
	}
}

func (s *Service) msUntilNextWake() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := nowMs()
	min := int64(-1)
	for _, j := range s.jobs {
		if !j.Enabled || j.State.NextRunAtMs == nil {
			continue
		}
		delta := saturatingSub(*j.State.NextRunAtMs, now)
		if min < 0 || delta < min {
			min = delta
		}
	}
	if min < 0 {
		return pollInterval.Milliseconds()
	}
	return min
}

func (s *Service) processDueJobs() {
	now := nowMs()

	s.mu.Lock()
	var due []CronJob
	for i := range s.jobs {
		j := &s.jobs[i]
		if j.Enabled && j.State.NextRunAtMs != nil && *j.State.NextRunAtMs <= now && j.State.RunningAtMs == nil {
			j.State.RunningAtMs = &now
			due = append(due, j.Clone())
		}
	}
	s.mu.Unlock()

	s.clearStuckJobs(now)

	for _, job := range due {
		go s.executeJob(context.Background(), job)
	}
}

func (s *Service) executeJob(ctx context.Context, job CronJob) {
	started := nowMs()
	s.log.Info(ctx, "executing cron job", "id", job.ID, "name", job.Name)
	s.metrics.IncCounter("cron.executions_total", 1)

	var (
		output       *string
		inputTokens  *uint64
		outputTokens *uint64
		status       RunStatus
		errMsg       *string
	)

	switch job.Payload.Kind {
	case PayloadKindSystemEvent:
		s.onSystemEvent(job.Payload.Text)
		fixed := "system event injected"
		output = &fixed
		status = RunStatusOk
	case PayloadKindAgentTurn:
		req := AgentTurnRequest{
			Message:       job.Payload.Message,
			Model:         job.Payload.Model,
			TimeoutSec:    job.Payload.TimeoutSec,
			Deliver:       job.Payload.Deliver,
			Channel:       job.Payload.Channel,
			To:            job.Payload.To,
			SessionTarget: job.SessionTarget,
			Sandbox:       job.Sandbox,
		}
		result, err := s.onAgentTurn(ctx, req)
		if err != nil {
			status = RunStatusError
			msg := err.Error()
			errMsg = &msg
			s.log.Error(ctx, "cron job failed", "id", job.ID, "error", err)
			s.metrics.IncCounter("cron.errors_total", 1)
		} else {
			status = RunStatusOk
			output = &result.Output
			inputTokens = result.InputTokens
			outputTokens = result.OutputTokens
			if result.InputTokens != nil {
				s.metrics.IncCounter("cron.input_tokens_total", float64(*result.InputTokens))
			}
			if result.OutputTokens != nil {
				s.metrics.IncCounter("cron.output_tokens_total", float64(*result.OutputTokens))
			}
		}
	}

	finished := nowMs()
	durationMs := finished - started
	s.metrics.RecordTimer("cron.execution_duration_seconds", time.Duration(durationMs)*time.Millisecond)

	run := CronRunRecord{
		JobID:        job.ID,
		StartedAtMs:  started,
		FinishedAtMs: finished,
		Status:       status,
		Error:        errMsg,
		DurationMs:   durationMs,
		Output:       output,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
	}
	if err := s.store.AppendRun(ctx, job.ID, run); err != nil {
		s.log.Warn(ctx, "failed to record cron run", "error", err)
	}

	now := nowMs()
	nextRun, _ := ComputeNextRun(job.Schedule, now)

	s.updateJobState(job.ID, func(state *CronJobState) {
		state.RunningAtMs = nil
		state.LastRunAtMs = &finished
		st := status
		state.LastStatus = &st
		state.LastError = errMsg
		state.LastDurationMs = &durationMs
		state.NextRunAtMs = nextRun
	})

	if nextRun == nil {
		if job.DeleteAfterRun {
			_ = s.Remove(ctx, job.ID)
			s.log.Info(ctx, "one-shot job deleted after run", "id", job.ID)
		} else {
			s.mu.Lock()
			idx := indexOf(s.jobs, job.ID)
			if idx >= 0 {
				s.jobs[idx].Enabled = false
			}
			var updated *CronJob
			if idx >= 0 {
				u := s.jobs[idx].Clone()
				updated = &u
			}
			s.mu.Unlock()
			if updated != nil {
				_ = s.store.UpdateJob(ctx, *updated)
			}
		}
	} else {
		s.mu.RLock()
		idx := indexOf(s.jobs, job.ID)
		var updated *CronJob
		if idx >= 0 {
			u := s.jobs[idx].Clone()
			updated = &u
		}
		s.mu.RUnlock()
		if updated != nil {
			_ = s.store.UpdateJob(ctx, *updated)
		}
	}

	s.log.Info(ctx, "cron job finished", "id", job.ID, "status", status, "durationMs", durationMs)
}

func (s *Service) updateJobState(id string, f func(*CronJobState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := indexOf(s.jobs, id)
	if idx < 0 {
		return
	}
	f(&s.jobs[idx].State)
}

func (s *Service) clearStuckJobs(now int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.jobs {
		j := &s.jobs[i]
		if j.State.RunningAtMs == nil {
			continue
		}
		if saturatingSub(now, *j.State.RunningAtMs) > stuckThreshold.Milliseconds() {
			s.log.Warn(context.Background(), "clearing stuck cron job", "id", j.ID)
			j.State.RunningAtMs = nil
			errStatus := RunStatusError
			j.State.LastStatus = &errStatus
			msg := "stuck: exceeded 2h timeout"
			j.State.LastError = &msg
			s.metrics.IncCounter("cron.stuck_jobs_cleared_total", 1)
		}
	}
}

func indexOf(jobs []CronJob, id string) int {
	for i, j := range jobs {
		if j.ID == id {
			return i
		}
	}
	return -1
}

func removeByID(jobs []CronJob, id string) []CronJob {
	out := jobs[:0]
	for _, j := range jobs {
		if j.ID != id {
			out = append(out, j)
		}
	}
	return out
}

// validateJobSpec enforces the sessionTarget/payload compatibility matrix.
func validateJobSpec(job CronJob) error {
	switch job.SessionTarget.Kind {
	case SessionTargetKindMain:
		if job.Payload.Kind != PayloadKindSystemEvent {
			return fmt.Errorf("sessionTarget=main requires payload kind=systemEvent")
		}
	case SessionTargetKindIsolated, SessionTargetKindNamed:
		if job.Payload.Kind != PayloadKindAgentTurn {
			return fmt.Errorf("sessionTarget=isolated/named requires payload kind=agentTurn")
		}
	}
	return nil
}
