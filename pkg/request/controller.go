// Package request issues an HTTP request through a pluggable transport and
// exposes its lifecycle as observable state. Callers can cancel the in-flight
// attempt or fire it again, optionally debounced or throttled.
package request

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/samvad-hq/reqwatch/pkg/httpclient"
	"github.com/samvad-hq/reqwatch/pkg/payload"
	"github.com/samvad-hq/reqwatch/pkg/ratelimit"
	"github.com/samvad-hq/reqwatch/pkg/reactive"
)

// Controller owns one request target and its state record.
type Controller struct {
	target string
	cfg    httpclient.RequestConfig
	client httpclient.Client
	opts   Options
	log    Logger

	ctx  context.Context
	stop context.CancelCauseFunc

	store    *reactive.Store[State]
	response *reactive.Ref[httpclient.Response]
	data     *reactive.Ref[any]
	finished *reactive.Ref[bool]
	canceled *reactive.Ref[bool]
	err      *reactive.Ref[error]

	trigger *ratelimit.Limited

	mu            sync.Mutex
	queued        bool
	attempt       uint64
	cancelAttempt context.CancelCauseFunc
	settled       chan struct{}
	settledClosed bool
	closed        bool
	wg            sync.WaitGroup
}

// New builds a controller for target and fires the first request through the
// selected policy. ctx bounds every attempt; cancelling it has the same effect
// as Close on in-flight work.
func New(ctx context.Context, client httpclient.Client, target string, cfg httpclient.RequestConfig, opts Options) (*Controller, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, ErrEmptyTarget
	}
	if client == nil {
		return nil, ErrNilClient
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := payload.ParseType(string(opts.ResponseType)); err != nil {
		return nil, err
	}

	opts = normalizeOptions(opts)
	runCtx, stop := context.WithCancelCause(ctx)

	c := &Controller{
		target:  target,
		cfg:     cfg,
		client:  client,
		opts:    opts,
		log:     opts.Logger,
		ctx:     runCtx,
		stop:    stop,
		store:   reactive.NewStore(State{}),
		settled: make(chan struct{}),
	}
	c.response = reactive.Field(c.store, func(s State) httpclient.Response { return s.Response })
	c.data = reactive.Field(c.store, func(s State) any { return s.Data })
	c.finished = reactive.Field(c.store, func(s State) bool { return s.Finished })
	c.canceled = reactive.Field(c.store, func(s State) bool { return s.Canceled })
	c.err = reactive.Field(c.store, func(s State) error { return s.Err })

	switch {
	case opts.Debounce > 0:
		c.trigger = ratelimit.Debounce(c.fireQueued, opts.Debounce)
	case opts.Throttle > 0:
		c.trigger = ratelimit.Throttle(c.fire, opts.Throttle)
	default:
		c.trigger = ratelimit.Passthrough(c.fire)
	}

	c.log.DebugObj("request controller created", "request_controller", map[string]any{
		"target":   c.target,
		"method":   c.method(),
		"strategy": opts.strategy(),
	})

	c.Refetch()
	return c, nil
}

// Refetch fires the request again, subject to the debounce/throttle policy.
// A debounced call counts as pending from now on: Wait blocks for it and
// Cancel drops it.
func (c *Controller) Refetch() {
	if c.opts.Debounce > 0 {
		c.queue()
	}
	c.trigger.Call()
}

// Cancel aborts the in-flight attempt, if any, and marks the state canceled.
// The flag is set even when the attempt already settled. A debounced fire
// that is still waiting on its timer is dropped and settles at once as a
// canceled attempt without reaching the transport. A later Refetch starts a
// fresh attempt with its own cancellation handle.
func (c *Controller) Cancel(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cause := &cancelError{reason: reason}
	if c.cancelAttempt != nil {
		c.cancelAttempt(cause)
		c.cancelAttempt = nil
	}

	if c.queued && !c.closed {
		c.queued = false
		c.trigger.Cancel()
		c.attempt++
		seq := c.attempt
		err := fmt.Errorf("%w: %w", cause, context.Canceled)
		c.store.Update(func(s *State) {
			s.Attempt = seq
			s.Finished = true
			s.Canceled = true
			s.Err = err
		})
		c.markSettled()

		c.log.DebugObj("pending request dropped", "request_cancel", map[string]any{
			"target":  c.target,
			"attempt": seq,
			"reason":  reason,
		})
		return
	}

	c.store.Update(func(s *State) { s.Canceled = true })

	c.log.DebugObj("request cancel requested", "request_cancel", map[string]any{
		"target":  c.target,
		"attempt": c.attempt,
		"reason":  reason,
	})
}

// Close stops pending debounced calls, aborts the in-flight attempt and
// releases the state dispatcher. Settlements arriving afterwards are dropped.
func (c *Controller) Close() {
	c.trigger.Stop()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stop(errClosed)
	c.markSettled()
	c.mu.Unlock()

	c.wg.Wait()
	c.store.Close()
}

// Snapshot returns a consistent copy of the whole state record.
func (c *Controller) Snapshot() State { return c.store.Get() }

// Subscribe registers fn for state changes. Notifications are coalesced and
// delivered one at a time on the controller's dispatcher goroutine; fn must
// not block for long.
func (c *Controller) Subscribe(fn func(State)) (unsubscribe func()) {
	return c.store.Subscribe(fn)
}

// Response is the last successful raw response.
func (c *Controller) Response() *reactive.Ref[httpclient.Response] { return c.response }

// Data is the payload extracted from the last successful response.
func (c *Controller) Data() *reactive.Ref[any] { return c.data }

// Finished reports whether the current attempt settled.
func (c *Controller) Finished() *reactive.Ref[bool] { return c.finished }

// Canceled reports whether Cancel was called during the current attempt.
func (c *Controller) Canceled() *reactive.Ref[bool] { return c.canceled }

// Err is the failure of the current attempt.
func (c *Controller) Err() *reactive.Ref[error] { return c.err }

// Target returns the request URL.
func (c *Controller) Target() string { return c.target }

// Wait blocks until the latest attempt settles or ctx is done. A debounced
// Refetch that has not fired yet counts as the latest attempt. An attempt
// that is superseded before settling keeps the caller waiting for its
// replacement. A throttled Refetch dropped inside its window starts nothing,
// so Wait returns the current state.
func (c *Controller) Wait(ctx context.Context) (State, error) {
	c.mu.Lock()
	settled := c.settled
	c.mu.Unlock()

	select {
	case <-settled:
		return c.Snapshot(), nil
	case <-ctx.Done():
		return c.Snapshot(), ctx.Err()
	}
}

// queue records a debounced fire waiting on its timer.
func (c *Controller) queue() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.queued = true
	c.renewSettled()
}

// fireQueued runs when the debounce timer expires. A fire dropped by Cancel
// in the meantime is skipped.
func (c *Controller) fireQueued() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.queued {
		return
	}
	c.queued = false
	c.start()
}

// fire starts a new attempt. It never blocks on the network.
func (c *Controller) fire() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.start()
}

// start launches an attempt. Caller holds c.mu.
func (c *Controller) start() {
	if c.closed {
		return
	}
	if c.cancelAttempt != nil {
		c.cancelAttempt(errSuperseded)
	}

	c.attempt++
	seq := c.attempt
	ctx, cancel := context.WithCancelCause(c.ctx)
	c.cancelAttempt = cancel
	c.renewSettled()

	c.store.Update(func(s *State) {
		s.Attempt = seq
		s.Finished = false
		s.Canceled = false
		s.Err = nil
	})

	c.wg.Add(1)
	go c.perform(ctx, cancel, seq)
}

func (c *Controller) perform(ctx context.Context, cancel context.CancelCauseFunc, seq uint64) {
	defer c.wg.Done()
	defer cancel(nil)

	start := time.Now()
	c.log.DebugObj("request attempt started", "request_attempt", map[string]any{
		"target":  c.target,
		"attempt": seq,
	})

	resp, err := c.client.Do(ctx, c.target, c.cfg)
	if err == nil && resp == nil {
		err = ErrNoResponse
	}

	var data any
	if err == nil {
		data, err = payload.Decode(c.opts.ResponseType, resp.Header().Get("Content-Type"), resp.Body())
		if err != nil {
			err = fmt.Errorf("decode response: %w", err)
		}
	}
	if err != nil {
		if cause := context.Cause(ctx); errors.Is(cause, ErrCanceled) {
			err = fmt.Errorf("%w: %w", cause, err)
		}
	}

	c.settle(seq, resp, data, err, time.Since(start))
}

func (c *Controller) settle(seq uint64, resp httpclient.Response, data any, err error, elapsed time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || seq != c.attempt {
		c.log.DebugObj("request settlement discarded", "request_discarded", map[string]any{
			"target":  c.target,
			"attempt": seq,
			"current": c.attempt,
		})
		return
	}

	c.store.Update(func(s *State) {
		if err != nil {
			s.Err = err
		} else {
			s.Response = resp
			s.Data = data
			s.Err = nil
		}
		s.Finished = true
	})
	c.cancelAttempt = nil
	if !c.queued {
		c.markSettled()
	}

	if err != nil {
		c.log.WarnObj("request attempt failed", "request_error", map[string]any{
			"target":     c.target,
			"attempt":    seq,
			"elapsed_ms": elapsed.Milliseconds(),
			"canceled":   errors.Is(err, ErrCanceled),
			"error":      err.Error(),
		})
		return
	}
	c.log.DebugObj("request attempt succeeded", "request_result", map[string]any{
		"target":      c.target,
		"attempt":     seq,
		"elapsed_ms":  elapsed.Milliseconds(),
		"status_code": resp.StatusCode(),
	})
}

// renewSettled gives Wait a fresh channel for the next attempt. Caller holds c.mu.
func (c *Controller) renewSettled() {
	if c.settledClosed {
		c.settled = make(chan struct{})
		c.settledClosed = false
	}
}

// markSettled releases Wait callers. Caller holds c.mu.
func (c *Controller) markSettled() {
	if !c.settledClosed {
		close(c.settled)
		c.settledClosed = true
	}
}

func (c *Controller) method() string {
	if m := strings.TrimSpace(c.cfg.Method); m != "" {
		return strings.ToUpper(m)
	}
	return "GET"
}
