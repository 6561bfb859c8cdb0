// Package progress tracks which stage a conversation is currently
// executing. The tracker is a rebuildable index for quick status queries
// only; the conversation log remains the sole source of truth and a lost
// marker is always safe.
package progress

import "context"

// Tracker records the in-flight stage per conversation.
type Tracker interface {
	// Set marks a conversation as currently executing the named stage.
	Set(ctx context.Context, conversationID, stage string) error

	// Clear removes a conversation's marker.
	Clear(ctx context.Context, conversationID string) error

	// Get returns the in-flight stage, or "" when none is recorded.
	Get(ctx context.Context, conversationID string) (string, error)
}
