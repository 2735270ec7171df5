package client

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// VisibilitySource reports foreground/background transitions.
// Subscribe returns a func that detaches the listener.
type VisibilitySource interface {
	Subscribe(listener func(visible bool)) (unsubscribe func())
}

// Scheduler renews the stored access token before it expires. When renewal
// fails it clears storage and tells every session-expired subscriber.
type Scheduler struct {
	storage    TokenStorage
	refresh    func(ctx context.Context) error
	interval   time.Duration
	now        func() time.Time
	visibility VisibilitySource
	log        *zap.Logger

	inFlight atomic.Bool

	subMu       sync.Mutex
	subscribers map[uint64]func()
	nextSubID   uint64

	runMu   sync.Mutex
	running bool
	cancel  context.CancelFunc
	detach  func()
}

type SchedulerOption func(*Scheduler)

func WithInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

func WithVisibility(source VisibilitySource) SchedulerOption {
	return func(s *Scheduler) { s.visibility = source }
}

func WithLogger(log *zap.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if log != nil {
			s.log = log
		}
	}
}

func NewScheduler(storage TokenStorage, refresh func(ctx context.Context) error, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		storage:     storage,
		refresh:     refresh,
		interval:    DefaultCheckInterval,
		now:         time.Now,
		log:         zap.NewNop(),
		subscribers: make(map[uint64]func()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start checks once right away, then on every tick and every return to the
// foreground. Calling Start on a running scheduler does nothing.
func (s *Scheduler) Start(ctx context.Context) {
	s.runMu.Lock()
	if s.running {
		s.runMu.Unlock()
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	wake := make(chan struct{}, 1)
	if s.visibility != nil {
		s.detach = s.visibility.Subscribe(func(visible bool) {
			if !visible {
				return
			}
			select {
			case wake <- struct{}{}:
			default:
			}
		})
	}

	go s.loop(runCtx, wake)
	s.runMu.Unlock()

	s.Check(runCtx)
}

func (s *Scheduler) loop(ctx context.Context, wake <-chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-wake:
		}
		if ctx.Err() != nil {
			return
		}
		s.Check(ctx)
	}
}

// Stop halts the timer and detaches the visibility listener. A refresh
// already in progress is left to finish and is not treated as a failure.
// Stop does not wait for it, so subscribers may call Stop. It is safe to
// call more than once.
func (s *Scheduler) Stop() {
	s.runMu.Lock()
	if !s.running {
		s.runMu.Unlock()
		return
	}
	s.running = false
	cancel, detach := s.cancel, s.detach
	s.cancel, s.detach = nil, nil
	s.runMu.Unlock()

	if detach != nil {
		detach()
	}
	cancel()
}

// Running reports whether Start has been called without a matching Stop.
func (s *Scheduler) Running() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.running
}

// Check refreshes the token when it is expired or close to expiry. A call
// that arrives while a refresh is running returns immediately. A refresh
// that has started runs to completion even if ctx is cancelled or Stop is
// called, so a token pair the server already rotated is never dropped.
func (s *Scheduler) Check(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return
	}
	defer s.inFlight.Store(false)

	raw, ok := s.storage.AccessToken()
	if !ok {
		return
	}

	// An undecodable token has no expiry and is renewed like an expired one.
	token := AccessToken{value: raw, expiresAt: decodeExpiry(raw)}
	if !token.NeedsRefresh(s.now()) {
		return
	}

	if err := s.refresh(context.WithoutCancel(ctx)); err != nil {
		s.log.Warn("Token refresh failed, clearing session", zap.Error(err))
		if err := s.storage.Clear(); err != nil {
			s.log.Error("Failed to clear token storage", zap.Error(err))
		}
		s.notifySessionExpired()
		return
	}
	s.log.Debug("Access token refreshed")
}

// OnSessionExpired registers cb and returns a func that removes it.
func (s *Scheduler) OnSessionExpired(cb func()) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = cb
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subscribers, id)
		s.subMu.Unlock()
	}
}

func (s *Scheduler) notifySessionExpired() {
	s.subMu.Lock()
	callbacks := make([]func(), 0, len(s.subscribers))
	for _, cb := range s.subscribers {
		callbacks = append(callbacks, cb)
	}
	s.subMu.Unlock()

	for _, cb := range callbacks {
		cb()
	}
}

// VisibilityNotifier is a VisibilitySource driven by explicit SetVisible calls.
// Listeners only hear actual transitions.
type VisibilityNotifier struct {
	mu        sync.Mutex
	visible   bool
	listeners map[uint64]func(bool)
	nextID    uint64
}

func NewVisibilityNotifier() *VisibilityNotifier {
	return &VisibilityNotifier{visible: true, listeners: make(map[uint64]func(bool))}
}

func (n *VisibilityNotifier) Subscribe(listener func(visible bool)) func() {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.listeners[id] = listener
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.listeners, id)
		n.mu.Unlock()
	}
}

func (n *VisibilityNotifier) SetVisible(visible bool) {
	n.mu.Lock()
	if n.visible == visible {
		n.mu.Unlock()
		return
	}
	n.visible = visible
	listeners := make([]func(bool), 0, len(n.listeners))
	for _, l := range n.listeners {
		listeners = append(listeners, l)
	}
	n.mu.Unlock()

	for _, l := range listeners {
		l(visible)
	}
}

func (n *VisibilityNotifier) Listeners() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.listeners)
}
