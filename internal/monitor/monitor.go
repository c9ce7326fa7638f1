// Package monitor keeps one request controller per watched target and turns
// their settled attempts into published events.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/samvad-hq/reqwatch/internal/domain"
	"github.com/samvad-hq/reqwatch/internal/logger"
	"github.com/samvad-hq/reqwatch/internal/storage"
	"github.com/samvad-hq/reqwatch/pkg/httpclient"
	"github.com/samvad-hq/reqwatch/pkg/publishers"
	"github.com/samvad-hq/reqwatch/pkg/request"
	"github.com/samvad-hq/reqwatch/pkg/targets"
)

const eventBuffer = 64

// ErrUnknownTarget is returned for operations on a target id the service does not watch.
var ErrUnknownTarget = errors.New("unknown target")

// Service coordinates controllers across all watched targets.
type Service struct {
	client    httpclient.Client
	publisher EventPublisher
	store     storage.Store
	log       logger.Logger
	defaults  targets.Defaults

	mu      sync.RWMutex
	watches map[string]*watch
	order   []string
	started bool

	events chan domain.Settlement
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type watch struct {
	target      targets.Target
	ctrl        *request.Controller
	unsubscribe func()

	mu   sync.Mutex
	last uint64
}

// NewService wires a monitor with its transport, event sink and digest store.
func NewService(client httpclient.Client, pub EventPublisher, store storage.Store, log logger.Logger, defaults targets.Defaults) *Service {
	if log == nil {
		log = &logger.NopLogger{}
	}
	if store == nil {
		store, _ = storage.NewStore("none", "", storage.Options{})
	}
	return &Service{
		client:    client,
		publisher: pub,
		store:     store,
		log:       log,
		defaults:  defaults,
		watches:   make(map[string]*watch),
		events:    make(chan domain.Settlement, eventBuffer),
	}
}

// Start creates a controller for every target, which fires its first request
// immediately, and starts the publish loop. ctx bounds every request.
func (s *Service) Start(ctx context.Context, tgts []targets.Target) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("monitor service is not initialized")
	}
	if len(tgts) == 0 {
		return fmt.Errorf("no targets configured for monitoring")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("monitor service already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.started = true

	s.wg.Add(1)
	go s.publishLoop(ctx)

	var errs []error
	for _, t := range tgts {
		if _, exists := s.watches[t.ID]; exists {
			errs = append(errs, fmt.Errorf("duplicate target %s", t.ID))
			continue
		}
		w, err := s.startWatch(ctx, t)
		if err != nil {
			errs = append(errs, fmt.Errorf("start target %s: %w", t.ID, err))
			s.log.ErrorObj("target watch failed to start", "target_error", map[string]any{
				"target_id": t.ID,
				"error":     err.Error(),
			})
			continue
		}
		s.watches[t.ID] = w
		s.order = append(s.order, t.ID)
	}

	s.log.InfoObj("monitor started", "monitor_state", map[string]any{
		"targets_count": len(s.order),
		"failed_count":  len(errs),
	})
	return errors.Join(errs...)
}

func (s *Service) startWatch(ctx context.Context, t targets.Target) (*watch, error) {
	debounce, throttle := t.RateLimits(s.defaults)
	ctrl, err := request.New(ctx, s.client, t.URL, t.RequestConfig(s.defaults), request.Options{
		Debounce:     debounce,
		Throttle:     throttle,
		ResponseType: t.PayloadType(),
		Logger:       s.log,
	})
	if err != nil {
		return nil, err
	}

	w := &watch{target: t, ctrl: ctrl}
	observe := func(st request.State) { s.observe(ctx, w, st) }
	w.unsubscribe = ctrl.Subscribe(observe)
	// The first attempt may have settled before the subscription existed.
	observe(ctrl.Snapshot())
	return w, nil
}

// observe enqueues each settled attempt once. Attempts superseded before a
// notification is delivered are never reported.
func (s *Service) observe(ctx context.Context, w *watch, st request.State) {
	if !st.Finished || st.Attempt == 0 {
		return
	}

	w.mu.Lock()
	if st.Attempt <= w.last {
		w.mu.Unlock()
		return
	}
	w.last = st.Attempt
	w.mu.Unlock()

	select {
	case s.events <- newSettlement(w.target, st):
	case <-ctx.Done():
	}
}

func (s *Service) publishLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case st := <-s.events:
			if err := s.handle(ctx, st); err != nil {
				s.log.ErrorObj("settlement publish failed", "publish_error", map[string]any{
					"target_id": st.TargetID,
					"attempt":   st.Attempt,
					"error":     err.Error(),
				})
			}
		}
	}
}

// handle publishes a settlement unless it repeats an already published
// payload. Failures are always published and reset change detection for the
// target so that the next success is reported.
func (s *Service) handle(ctx context.Context, st domain.Settlement) error {
	if st.Outcome == domain.OutcomeSuccess {
		seen, err := s.store.Seen(st.TargetID, st.Digest)
		if err != nil {
			return fmt.Errorf("check digest: %w", err)
		}
		if seen {
			s.log.DebugObj("settlement unchanged; skipping publish", "settlement_skipped", map[string]any{
				"target_id": st.TargetID,
				"attempt":   st.Attempt,
				"digest":    st.Digest,
			})
			return nil
		}
	} else if err := s.store.Forget(st.TargetID); err != nil {
		s.log.WarnObj("digest reset failed", "storage_error", map[string]any{
			"target_id": st.TargetID,
			"error":     err.Error(),
		})
	}

	if s.publisher == nil {
		return nil
	}
	delivered, err := s.publisher.Publish(ctx, publishers.NewEvent(st))
	if delivered > 0 && st.Outcome == domain.OutcomeSuccess {
		if markErr := s.store.Mark(st.TargetID, st.Digest); markErr != nil {
			err = errors.Join(err, fmt.Errorf("mark digest: %w", markErr))
		}
	}

	s.log.InfoObj("settlement published", "settlement_result", map[string]any{
		"target_id":   st.TargetID,
		"attempt":     st.Attempt,
		"outcome":     st.Outcome,
		"status_code": st.StatusCode,
		"delivered":   delivered,
	})
	return err
}

// RefetchAll fires every controller again, subject to its rate limit.
func (s *Service) RefetchAll() {
	for _, w := range s.snapshotWatches() {
		w.ctrl.Refetch()
	}
}

// Refetch fires the controller of one target.
func (s *Service) Refetch(id string) error {
	w, err := s.lookup(id)
	if err != nil {
		return err
	}
	w.ctrl.Refetch()
	return nil
}

// Cancel aborts the in-flight attempt of one target.
func (s *Service) Cancel(id, reason string) error {
	w, err := s.lookup(id)
	if err != nil {
		return err
	}
	w.ctrl.Cancel(reason)
	return nil
}

// State returns the current state of one target.
func (s *Service) State(id string) (request.State, error) {
	w, err := s.lookup(id)
	if err != nil {
		return request.State{}, err
	}
	return w.ctrl.Snapshot(), nil
}

// TargetIDs lists watched targets in start order.
func (s *Service) TargetIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// Close stops all controllers and the publish loop.
func (s *Service) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	watches := make([]*watch, 0, len(s.order))
	for _, id := range s.order {
		watches = append(watches, s.watches[id])
	}
	s.watches = make(map[string]*watch)
	s.order = nil
	cancel := s.cancel
	s.mu.Unlock()

	for _, w := range watches {
		w.unsubscribe()
		w.ctrl.Close()
	}
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *Service) lookup(id string) (*watch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.watches[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, id)
	}
	return w, nil
}

func (s *Service) snapshotWatches() []*watch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*watch, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.watches[id])
	}
	return out
}
