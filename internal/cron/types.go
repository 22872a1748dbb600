// Package cron implements the timer-driven job scheduler: a store-backed set
// of CronJob entities, a sliding-window rate limiter, and a wake-or-sleep
// timer loop that dispatches due jobs to an injected execution backend.
package cron

// RunStatus is the terminal outcome of one job execution.
type RunStatus string

const (
	RunStatusOk    RunStatus = "ok"
	RunStatusError RunStatus = "error"
)

// SessionTargetKind discriminates where a job's output is delivered.
type SessionTargetKind string

const (
	SessionTargetKindMain     SessionTargetKind = "main"
	SessionTargetKindIsolated SessionTargetKind = "isolated"
	SessionTargetKindNamed    SessionTargetKind = "named"
)

// SessionTarget selects which session a job's payload runs against. Name is
// set only when Kind == SessionTargetKindNamed.
type SessionTarget struct {
	Kind SessionTargetKind `json:"kind"`
	Name string            `json:"name,omitempty"`
}

var (
	SessionTargetMain     = SessionTarget{Kind: SessionTargetKindMain}
	SessionTargetIsolated = SessionTarget{Kind: SessionTargetKindIsolated}
)

// NamedSessionTarget targets a specific named session.
func NamedSessionTarget(name string) SessionTarget {
	return SessionTarget{Kind: SessionTargetKindNamed, Name: name}
}

// ScheduleKind discriminates a CronSchedule.
type ScheduleKind string

const (
	ScheduleKindEvery ScheduleKind = "every"
	ScheduleKindAt    ScheduleKind = "at"
	ScheduleKindCron  ScheduleKind = "cron"
)

// CronSchedule is one of a fixed period, a one-shot instant, or a five-field
// cron expression. Exactly the fields relevant to Kind are populated.
type CronSchedule struct {
	Kind ScheduleKind `json:"kind"`

	// Kind == ScheduleKindEvery.
	PeriodMs int64  `json:"periodMs,omitempty"`
	AnchorMs *int64 `json:"anchorMs,omitempty"`

	// Kind == ScheduleKindAt.
	AtMs int64 `json:"atMs,omitempty"`

	// Kind == ScheduleKindCron.
	Expr string `json:"expr,omitempty"`
}

// PayloadKind discriminates a CronPayload.
type PayloadKind string

const (
	PayloadKindSystemEvent PayloadKind = "systemEvent"
	PayloadKindAgentTurn   PayloadKind = "agentTurn"
)

// CronPayload is one of SystemEvent or AgentTurn.
type CronPayload struct {
	Kind PayloadKind `json:"kind"`

	// Kind == PayloadKindSystemEvent.
	Text string `json:"text,omitempty"`

	// Kind == PayloadKindAgentTurn.
	Message    string  `json:"message,omitempty"`
	Model      *string `json:"model,omitempty"`
	TimeoutSec *int    `json:"timeoutSec,omitempty"`
	Deliver    bool    `json:"deliver,omitempty"`
	Channel    *string `json:"channel,omitempty"`
	To         *string `json:"to,omitempty"`
}

// CronSandboxConfig carries working-directory and resource-limit hints
// forwarded opaquely to an isolated agent turn.
type CronSandboxConfig struct {
	WorkingDir  *string `json:"workingDir,omitempty"`
	MaxCPUMs    *int    `json:"maxCpuMs,omitempty"`
	MaxMemoryMB *int    `json:"maxMemoryMb,omitempty"`
	NetworkMode *string `json:"networkMode,omitempty"`
}

// CronJobState is the mutable, derived portion of a CronJob.
type CronJobState struct {
	NextRunAtMs   *int64     `json:"nextRunAtMs,omitempty"`
	RunningAtMs   *int64     `json:"runningAtMs,omitempty"`
	LastRunAtMs   *int64     `json:"lastRunAtMs,omitempty"`
	LastStatus    *RunStatus `json:"lastStatus,omitempty"`
	LastError     *string    `json:"lastError,omitempty"`
	LastDurationMs *int64    `json:"lastDurationMs,omitempty"`
}

// CronJob is a scheduled unit of work.
type CronJob struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Enabled         bool              `json:"enabled"`
	DeleteAfterRun  bool              `json:"deleteAfterRun"`
	System          bool              `json:"system"`
	Schedule        CronSchedule      `json:"schedule"`
	Payload         CronPayload       `json:"payload"`
	SessionTarget   SessionTarget     `json:"sessionTarget"`
	Sandbox         CronSandboxConfig `json:"sandbox"`
	State           CronJobState      `json:"state"`
	CreatedAtMs     int64             `json:"createdAtMs"`
	UpdatedAtMs     int64             `json:"updatedAtMs"`
}

// Clone returns a deep-enough copy safe to hand outside the lock guarding
// the in-memory job list.
func (j CronJob) Clone() CronJob {
	clone := j
	if j.State.NextRunAtMs != nil {
		v := *j.State.NextRunAtMs
		clone.State.NextRunAtMs = &v
	}
	if j.State.RunningAtMs != nil {
		v := *j.State.RunningAtMs
		clone.State.RunningAtMs = &v
	}
	if j.State.LastRunAtMs != nil {
		v := *j.State.LastRunAtMs
		clone.State.LastRunAtMs = &v
	}
	if j.State.LastStatus != nil {
		v := *j.State.LastStatus
		clone.State.LastStatus = &v
	}
	if j.State.LastError != nil {
		v := *j.State.LastError
		clone.State.LastError = &v
	}
	if j.State.LastDurationMs != nil {
		v := *j.State.LastDurationMs
		clone.State.LastDurationMs = &v
	}
	return clone
}

// CronJobCreate are the fields accepted when adding a job.
type CronJobCreate struct {
	ID             *string
	Name           string
	Schedule       CronSchedule
	Payload        CronPayload
	SessionTarget  SessionTarget
	DeleteAfterRun bool
	Enabled        bool
	System         bool
	Sandbox        CronSandboxConfig
}

// CronJobPatch carries optional fields to overlay onto an existing job; a
// nil field leaves the current value untouched.
type CronJobPatch struct {
	Name           *string
	Schedule       *CronSchedule
	Payload        *CronPayload
	SessionTarget  *SessionTarget
	Enabled        *bool
	DeleteAfterRun *bool
	Sandbox        *CronSandboxConfig
}

// CronRunRecord is one persisted execution outcome.
type CronRunRecord struct {
	JobID        string    `json:"jobId"`
	StartedAtMs  int64     `json:"startedAtMs"`
	FinishedAtMs int64     `json:"finishedAtMs"`
	Status       RunStatus `json:"status"`
	Error        *string   `json:"error,omitempty"`
	DurationMs   int64     `json:"durationMs"`
	Output       *string   `json:"output,omitempty"`
	InputTokens  *uint64   `json:"inputTokens,omitempty"`
	OutputTokens *uint64   `json:"outputTokens,omitempty"`
}

// CronStatus summarizes scheduler state, excluding system jobs from counts.
type CronStatus struct {
	Running      bool   `json:"running"`
	JobCount     int    `json:"jobCount"`
	EnabledCount int    `json:"enabledCount"`
	NextRunAtMs  *int64 `json:"nextRunAtMs,omitempty"`
}

// NotificationKind discriminates a CronNotification.
type NotificationKind string

const (
	NotificationKindCreated NotificationKind = "created"
	NotificationKindUpdated NotificationKind = "updated"
	NotificationKindRemoved NotificationKind = "removed"
)

// CronNotification is emitted on job CRUD for the Broadcast Bus.
type CronNotification struct {
	Kind  NotificationKind
	Job   *CronJob // set for Created/Updated
	JobID string   // set for Removed
}

// AgentTurnRequest is passed to the injected AgentTurnFn collaborator.
type AgentTurnRequest struct {
	Message       string
	Model         *string
	TimeoutSec    *int
	Deliver       bool
	Channel       *string
	To            *string
	SessionTarget SessionTarget
	Sandbox       CronSandboxConfig
}

// AgentTurnResult is the outcome of an isolated agent turn.
type AgentTurnResult struct {
	Output       string
	InputTokens  *uint64
	OutputTokens *uint64
}
