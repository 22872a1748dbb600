// Package app wires concrete domain backends (the Agent Run Loop, Cron
// Service, MCP OAuth providers) into the internal/services capability
// interfaces that transports depend on.
package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/moltis-ai/moltis/internal/cron"
	"github.com/moltis-ai/moltis/internal/services"
)

// CronService adapts internal/cron.Service's typed API to the generic
// params/result shape services.CronService speaks.
type CronService struct {
	svc *cron.Service
}

// NewCronService wraps an already-constructed cron.Service.
func NewCronService(svc *cron.Service) *CronService {
	return &CronService{svc: svc}
}

func (s *CronService) List(ctx context.Context) (any, error) {
	return s.svc.List(), nil
}

func (s *CronService) Status(ctx context.Context) (any, error) {
	return s.svc.Status(), nil
}

func (s *CronService) Add(ctx context.Context, params any) (any, error) {
	var create cron.CronJobCreate
	if err := decodeParams(params, &create); err != nil {
		return nil, services.NewError(services.CodeInvalid, "cron: invalid job: %v", err)
	}
	job, err := s.svc.Add(ctx, create)
	if err != nil {
		return nil, fmt.Errorf("cron: add job: %w", err)
	}
	return job, nil
}

type updateParams struct {
	ID    string            `json:"id"`
	Patch cron.CronJobPatch `json:"patch"`
}

func (s *CronService) Update(ctx context.Context, params any) (any, error) {
	var p updateParams
	if err := decodeParams(params, &p); err != nil {
		return nil, services.NewError(services.CodeInvalid, "cron: invalid update: %v", err)
	}
	job, err := s.svc.Update(ctx, p.ID, p.Patch)
	if err != nil {
		return nil, fmt.Errorf("cron: update job: %w", err)
	}
	return job, nil
}

type idParams struct {
	ID string `json:"id"`
}

func (s *CronService) Remove(ctx context.Context, params any) (any, error) {
	var p idParams
	if err := decodeParams(params, &p); err != nil {
		return nil, services.NewError(services.CodeInvalid, "cron: invalid id: %v", err)
	}
	if err := s.svc.Remove(ctx, p.ID); err != nil {
		return nil, fmt.Errorf("cron: remove job: %w", err)
	}
	return map[string]any{"ok": true}, nil
}

type runParams struct {
	ID    string `json:"id"`
	Force bool   `json:"force"`
}

func (s *CronService) Run(ctx context.Context, params any) (any, error) {
	var p runParams
	if err := decodeParams(params, &p); err != nil {
		return nil, services.NewError(services.CodeInvalid, "cron: invalid run request: %v", err)
	}
	if err := s.svc.Run(ctx, p.ID, p.Force); err != nil {
		return nil, fmt.Errorf("cron: run job: %w", err)
	}
	return map[string]any{"ok": true}, nil
}

type runsParams struct {
	JobID string `json:"jobId"`
	Limit int    `json:"limit"`
}

func (s *CronService) Runs(ctx context.Context, params any) (any, error) {
	var p runsParams
	if err := decodeParams(params, &p); err != nil {
		return nil, services.NewError(services.CodeInvalid, "cron: invalid runs request: %v", err)
	}
	runs, err := s.svc.Runs(ctx, p.JobID, p.Limit)
	if err != nil {
		return nil, fmt.Errorf("cron: load runs: %w", err)
	}
	return runs, nil
}

// decodeParams round-trips params (typically a map[string]any decoded from
// transport JSON) through encoding/json into a concrete struct, mirroring
// how the services package represents dynamic params/results as any.
func decodeParams(params any, out any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

var _ services.CronService = (*CronService)(nil)
