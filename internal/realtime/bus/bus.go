package bus

import (
	"context"

	"github.com/fabwatch/fabwatch-backend/internal/sse"
)

// Bus carries dashboard events between processes: the engine publishes,
// API instances forward to their connected SSE clients.
type Bus interface {
	Publish(ctx context.Context, msg sse.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m sse.SSEMessage)) error
	Close() error
}
