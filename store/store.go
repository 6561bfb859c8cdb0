// Package store provides the append-only conversation store: an ordered
// message log per conversation, keyed by conversation id. The log is the
// sole source of truth for pipeline state; implementations only ever
// append, never rewrite history.
package store

import (
	"context"
	"errors"

	"github.com/roundwise/roundwise/types"
)

// ErrNotFound is returned when a conversation id does not exist.
var ErrNotFound = errors.New("conversation not found")

// Store is the conversation persistence contract.
type Store interface {
	// Create allocates a new empty conversation and returns its id.
	Create(ctx context.Context) (string, error)

	// Get returns a conversation with its full ordered message log.
	Get(ctx context.Context, id string) (*types.Conversation, error)

	// List returns conversation summaries ordered by creation time
	// descending.
	List(ctx context.Context) ([]types.ConversationSummary, error)

	// Append adds one message to the end of a conversation's log.
	Append(ctx context.Context, id string, msg types.Message) error

	// Close releases underlying resources.
	Close() error
}
