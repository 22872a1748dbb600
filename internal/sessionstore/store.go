// Package sessionstore provides the append-only per-session message log and
// metadata index consumed by chat send, compact, share, fork, and
// context-assembly paths. Messages mirror internal/llm/model's message
// shape; implementations serialize via Message's own JSON codec so concrete
// Part types round-trip without a bespoke schema per part kind.
package sessionstore

import (
	"context"

	"github.com/moltis-ai/moltis/internal/llm/model"
)

// Store is the façade the core depends on. Append is atomic with respect to
// concurrent readers of the same key; callers serialize logically related
// writes (e.g. user-then-assistant) by issuing them from the same goroutine.
type Store interface {
	// Append adds msg to the end of the session's message log.
	Append(ctx context.Context, key string, msg *model.Message) error

	// Read returns the full ordered message log for the session.
	Read(ctx context.Context, key string) ([]*model.Message, error)

	// Count returns the number of messages currently stored for the session.
	Count(ctx context.Context, key string) (int, error)

	// Clear removes every message and the metadata index entry for the
	// session.
	Clear(ctx context.Context, key string) error

	// ReplaceHistory atomically discards the existing log and stores msgs in
	// its place. Used by compact and fork.
	ReplaceHistory(ctx context.Context, key string, msgs []*model.Message) error
}

// Metadata is the per-session index entry tracked alongside the message log.
type Metadata struct {
	Key          string
	Label        string
	Model        string
	Provider     string
	MessageCount int
	CreatedAtMs  int64
	UpdatedAtMs  int64
}

// MetadataStore tracks the label/model/count/timestamp index described
// alongside the message log. A concrete Store may also implement this
// interface; callers type-assert for it rather than requiring it of every
// Store (the in-memory test double keeps it optional).
type MetadataStore interface {
	UpsertMetadata(ctx context.Context, meta Metadata) error
	LoadMetadata(ctx context.Context, key string) (Metadata, bool, error)
}
