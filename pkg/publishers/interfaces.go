package publishers

import "context"

// Publisher delivers settlement events to one downstream sink. Publishers
// holding connections also implement io.Closer; Fanout.Close releases them.
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
}
