package ratelimit

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassthroughRunsEveryCall(t *testing.T) {
	var calls atomic.Int32
	l := Passthrough(func() { calls.Add(1) })

	l.Call()
	l.Call()
	assert.Equal(t, int32(2), calls.Load())

	l.Stop()
	l.Call()
	assert.Equal(t, int32(2), calls.Load())
}

func TestDebounceCoalescesBurstIntoTrailingCall(t *testing.T) {
	var (
		calls   atomic.Int32
		firedAt atomic.Int64
	)
	l := Debounce(func() {
		calls.Add(1)
		firedAt.Store(time.Now().UnixNano())
	}, 100*time.Millisecond)
	defer l.Stop()

	l.Call()
	time.Sleep(50 * time.Millisecond)
	l.Call()
	time.Sleep(50 * time.Millisecond)
	l.Call()
	lastCall := time.Now()

	assert.Equal(t, int32(0), calls.Load())
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	delay := time.Duration(firedAt.Load() - lastCall.UnixNano())
	assert.GreaterOrEqual(t, delay, 90*time.Millisecond)

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDebounceStopCancelsPendingCall(t *testing.T) {
	var calls atomic.Int32
	l := Debounce(func() { calls.Add(1) }, 30*time.Millisecond)

	l.Call()
	l.Stop()
	l.Call()

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestThrottleLeadingEdgeDropsCallsInWindow(t *testing.T) {
	var calls atomic.Int32
	l := Throttle(func() { calls.Add(1) }, 100*time.Millisecond)
	defer l.Stop()

	for i := 0; i < 5; i++ {
		l.Call()
		time.Sleep(2 * time.Millisecond)
	}
	assert.Equal(t, int32(1), calls.Load())

	time.Sleep(150 * time.Millisecond)
	l.Call()
	assert.Equal(t, int32(2), calls.Load())
}

func TestThrottleStop(t *testing.T) {
	var calls atomic.Int32
	l := Throttle(func() { calls.Add(1) }, time.Millisecond)

	l.Stop()
	l.Call()
	assert.Equal(t, int32(0), calls.Load())
}

func TestDebounceCancelDropsPendingCallOnly(t *testing.T) {
	var calls atomic.Int32
	l := Debounce(func() { calls.Add(1) }, 30*time.Millisecond)
	defer l.Stop()

	assert.False(t, l.Cancel())

	l.Call()
	assert.True(t, l.Cancel())
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())

	l.Call()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, l.Cancel())
}

func TestCancelIsNoopWithoutTimer(t *testing.T) {
	assert.False(t, Passthrough(func() {}).Cancel())
	assert.False(t, Throttle(func() {}, time.Second).Cancel())
}
