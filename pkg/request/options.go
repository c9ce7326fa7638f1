package request

import (
	"time"

	"github.com/samvad-hq/reqwatch/pkg/payload"
)

// Options controls how often a controller may fire and how responses are decoded.
// Debounce wins when both Debounce and Throttle are positive.
type Options struct {
	Debounce     time.Duration
	Throttle     time.Duration
	ResponseType payload.Type
	Logger       Logger
}

func normalizeOptions(opts Options) Options {
	if opts.Debounce < 0 {
		opts.Debounce = 0
	}
	if opts.Throttle < 0 {
		opts.Throttle = 0
	}
	if opts.ResponseType == "" {
		opts.ResponseType = payload.TypeAuto
	}
	opts.Logger = ensureLogger(opts.Logger)
	return opts
}

// strategy names the fire policy for logging.
func (o Options) strategy() string {
	switch {
	case o.Debounce > 0:
		return "debounce"
	case o.Throttle > 0:
		return "throttle"
	default:
		return "immediate"
	}
}
