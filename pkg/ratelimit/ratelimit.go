// Package ratelimit wraps zero-argument trigger functions in debounce or
// throttle policies.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limited is a rate-limited trigger. Call may run, delay or drop the wrapped
// function depending on the policy.
type Limited struct {
	call   func()
	stop   func()
	cancel func() bool
}

// Call invokes the trigger under its policy.
func (l *Limited) Call() {
	if l == nil || l.call == nil {
		return
	}
	l.call()
}

// Stop cancels any pending delayed invocation and turns later calls into no-ops.
func (l *Limited) Stop() {
	if l == nil || l.stop == nil {
		return
	}
	l.stop()
}

// Cancel drops an invocation that is waiting on a timer and reports whether
// there was one. Later calls behave normally.
func (l *Limited) Cancel() bool {
	if l == nil || l.cancel == nil {
		return false
	}
	return l.cancel()
}

// Passthrough runs fn synchronously on every call.
func Passthrough(fn func()) *Limited {
	var mu sync.Mutex
	stopped := false
	return &Limited{
		call: func() {
			mu.Lock()
			s := stopped
			mu.Unlock()
			if !s {
				fn()
			}
		},
		stop: func() {
			mu.Lock()
			stopped = true
			mu.Unlock()
		},
	}
}

// Debounce delays fn until wait has elapsed since the last call. Every call
// inside the window restarts the timer; only the last one runs, on a timer
// goroutine.
func Debounce(fn func(), wait time.Duration) *Limited {
	d := &debouncer{fn: fn, wait: wait}
	return &Limited{call: d.call, stop: d.stop, cancel: d.cancel}
}

type debouncer struct {
	mu      sync.Mutex
	fn      func()
	wait    time.Duration
	timer   *time.Timer
	stopped bool
}

func (d *debouncer) call() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.wait, d.fn)
}

func (d *debouncer) cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer == nil {
		return false
	}
	pending := d.timer.Stop()
	d.timer = nil
	return pending
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Throttle runs fn at most once per window. The first call in a window runs
// synchronously; later calls in the same window are dropped.
func Throttle(fn func(), window time.Duration) *Limited {
	t := &throttler{
		fn:      fn,
		limiter: rate.NewLimiter(rate.Every(window), 1),
	}
	return &Limited{call: t.call, stop: t.stop}
}

type throttler struct {
	mu      sync.Mutex
	fn      func()
	limiter *rate.Limiter
	stopped bool
}

func (t *throttler) call() {
	t.mu.Lock()
	allowed := !t.stopped && t.limiter.Allow()
	t.mu.Unlock()

	if allowed {
		t.fn()
	}
}

func (t *throttler) stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}
