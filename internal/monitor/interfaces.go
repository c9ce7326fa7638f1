package monitor

import (
	"context"

	"github.com/samvad-hq/reqwatch/pkg/publishers"
)

// EventPublisher publishes settlement events downstream. *publishers.Fanout
// satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}
