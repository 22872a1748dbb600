package hooks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/moltis-ai/moltis/internal/telemetry"
)

const (
	defaultCircuitBreakerThreshold = 3
	defaultCircuitBreakerCooldown  = 60 * time.Second
)

type entry struct {
	handler Handler
	stats   *Stats
}

// Registry routes dispatched payloads to registered handlers, enforcing
// priority order, circuit breaking, and dry-run semantics.
type Registry struct {
	log telemetry.Logger

	mu       sync.RWMutex
	handlers map[Event][]entry
	byName   map[string]*Stats

	circuitBreakerThreshold uint64
	circuitBreakerCooldown  time.Duration
	dryRun                  bool
}

// Option configures a Registry at construction.
type Option func(*Registry)

// WithCircuitBreaker overrides the default consecutive-failure threshold and
// cooldown before a handler is re-enabled.
func WithCircuitBreaker(threshold int, cooldown time.Duration) Option {
	return func(r *Registry) {
		r.circuitBreakerThreshold = uint64(threshold)
		r.circuitBreakerCooldown = cooldown
	}
}

// WithDryRun puts the registry in dry-run mode: Block and Modify outcomes
// are logged but never applied.
func WithDryRun(dryRun bool) Option {
	return func(r *Registry) { r.dryRun = dryRun }
}

// WithLogger overrides the registry's logger. Defaults to a no-op logger.
func WithLogger(log telemetry.Logger) Option {
	return func(r *Registry) { r.log = log }
}

// NewRegistry constructs an empty Registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		log:                     telemetry.NewNoopLogger(),
		handlers:                make(map[Event][]entry),
		byName:                  make(map[string]*Stats),
		circuitBreakerThreshold: defaultCircuitBreakerThreshold,
		circuitBreakerCooldown:  defaultCircuitBreakerCooldown,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds handler to every event it subscribes to, re-sorting each
// affected event's handler list by descending priority. All registrations of
// the same handler share a single Stats object.
func (r *Registry) Register(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats, ok := r.byName[h.Name()]
	if !ok {
		stats = &Stats{}
		r.byName[h.Name()] = stats
	}

	for _, ev := range h.Events() {
		list := append(r.handlers[ev], entry{handler: h, stats: stats})
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].handler.Priority() > list[j].handler.Priority()
		})
		r.handlers[ev] = list
	}
}

// HasHandlers reports whether any handler subscribes to event.
func (r *Registry) HasHandlers(event Event) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers[event]) > 0
}

// HandlerStats returns the shared Stats object for a handler by name.
func (r *Registry) HandlerStats(name string) (*Stats, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byName[name]
	return s, ok
}

// HandlerNames returns deduplicated, sorted handler names.
func (r *Registry) HandlerNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch routes payload to parallel or sequential dispatch based on
// payload.Event().IsReadOnly().
func (r *Registry) Dispatch(ctx context.Context, payload Payload) (Action, error) {
	r.mu.RLock()
	list := append([]entry(nil), r.handlers[payload.Event()]...)
	r.mu.RUnlock()

	if len(list) == 0 {
		return Continue(), nil
	}

	if payload.Event().IsReadOnly() {
		r.dispatchParallel(ctx, list, payload)
		return Continue(), nil
	}
	return r.dispatchSequential(ctx, list, payload, false)
}

// DispatchSync dispatches sequentially using each handler's synchronous
// path. Intended for hot paths that must not suspend.
func (r *Registry) DispatchSync(payload Payload) (Action, error) {
	r.mu.RLock()
	list := append([]entry(nil), r.handlers[payload.Event()]...)
	r.mu.RUnlock()

	if len(list) == 0 {
		return Continue(), nil
	}
	return r.dispatchSequential(context.Background(), list, payload, true)
}

func (r *Registry) dispatchParallel(ctx context.Context, list []entry, payload Payload) {
	var wg sync.WaitGroup
	for _, e := range list {
		if e.stats.checkCircuitBreaker(r.circuitBreakerThreshold, r.circuitBreakerCooldown) {
			continue
		}
		e := e
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			action, err := e.handler.Handle(ctx, payload)
			latency := time.Since(start)
			if err != nil {
				e.stats.recordFailure(latency)
				r.log.Warn(ctx, "hook handler failed", "handler", e.handler.Name(), "event", string(payload.Event()), "error", err)
				return
			}
			e.stats.recordSuccess(latency)
			if action.Kind != ActionContinue {
				r.log.Debug(ctx, "hook handler outcome ignored for read-only event", "handler", e.handler.Name(), "event", string(payload.Event()))
			}
		}()
	}
	wg.Wait()
}

func (r *Registry) dispatchSequential(ctx context.Context, list []entry, payload Payload, sync bool) (Action, error) {
	var lastModify *Action

	for _, e := range list {
		if e.stats.checkCircuitBreaker(r.circuitBreakerThreshold, r.circuitBreakerCooldown) {
			continue
		}

		start := time.Now()
		var (
			action Action
			err    error
		)
		if sync {
			action, err = handleSync(ctx, e.handler, payload)
		} else {
			action, err = e.handler.Handle(ctx, payload)
		}
		latency := time.Since(start)

		if err != nil {
			e.stats.recordFailure(latency)
			r.log.Warn(ctx, "hook handler failed", "handler", e.handler.Name(), "event", string(payload.Event()), "error", err)
			continue
		}
		e.stats.recordSuccess(latency)

		switch action.Kind {
		case ActionContinue:
			// proceed
		case ActionModify:
			if r.dryRun {
				r.log.Info(ctx, "dry-run: ignoring modify", "handler", e.handler.Name(), "event", string(payload.Event()))
				continue
			}
			act := action
			lastModify = &act
		case ActionBlock:
			if r.dryRun {
				r.log.Info(ctx, "dry-run: ignoring block", "handler", e.handler.Name(), "event", string(payload.Event()), "reason", action.Reason)
				continue
			}
			return action, nil
		}
	}

	if lastModify != nil {
		return *lastModify, nil
	}
	return Continue(), nil
}
