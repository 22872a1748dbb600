package services

import "context"

// SkillsService manages installable skill packages and their repos.
type SkillsService interface {
	Status(ctx context.Context) (any, error)
	Bins(ctx context.Context) (any, error)
	Install(ctx context.Context, params any) (any, error)
	Update(ctx context.Context, params any) (any, error)
	List(ctx context.Context) (any, error)
	Remove(ctx context.Context, params any) (any, error)
	ReposList(ctx context.Context) (any, error)
	// ReposListFull returns the full repo list with per-skill details, for
	// search. Heavyweight.
	ReposListFull(ctx context.Context) (any, error)
	ReposRemove(ctx context.Context, params any) (any, error)
	EmergencyDisable(ctx context.Context) (any, error)
	SkillEnable(ctx context.Context, params any) (any, error)
	SkillDisable(ctx context.Context, params any) (any, error)
	SkillTrust(ctx context.Context, params any) (any, error)
	SkillDetail(ctx context.Context, params any) (any, error)
	InstallDep(ctx context.Context, params any) (any, error)
	SecurityStatus(ctx context.Context) (any, error)
	SecurityScan(ctx context.Context) (any, error)
}

// NoopSkillsService is the stub used by Services' default bundle; a full
// implementation would delegate to a skills-management backend.
type NoopSkillsService struct{}

func (NoopSkillsService) Status(ctx context.Context) (any, error) {
	return map[string]any{"installed": []any{}}, nil
}

func (NoopSkillsService) Bins(ctx context.Context) (any, error) { return []any{}, nil }

func (NoopSkillsService) Install(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("skills service not configured")
}

func (NoopSkillsService) Update(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("skills service not configured")
}

func (NoopSkillsService) List(ctx context.Context) (any, error) { return []any{}, nil }

func (NoopSkillsService) Remove(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("skills service not configured")
}

func (NoopSkillsService) ReposList(ctx context.Context) (any, error) { return []any{}, nil }

func (NoopSkillsService) ReposListFull(ctx context.Context) (any, error) { return []any{}, nil }

func (NoopSkillsService) ReposRemove(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("skills service not configured")
}

func (NoopSkillsService) EmergencyDisable(ctx context.Context) (any, error) {
	return map[string]any{"ok": true}, nil
}

func (NoopSkillsService) SkillEnable(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("skills service not configured")
}

func (NoopSkillsService) SkillDisable(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("skills service not configured")
}

func (NoopSkillsService) SkillTrust(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("skills service not configured")
}

func (NoopSkillsService) SkillDetail(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("skills service not configured")
}

func (NoopSkillsService) InstallDep(ctx context.Context, params any) (any, error) {
	return nil, Unavailable("skills service not configured")
}

func (NoopSkillsService) SecurityStatus(ctx context.Context) (any, error) {
	return map[string]any{"ok": true}, nil
}

func (NoopSkillsService) SecurityScan(ctx context.Context) (any, error) {
	return nil, Unavailable("skills service not configured")
}
