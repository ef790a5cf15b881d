// Package session holds the signed-in user's session state. Every change
// arrives as an Event and is applied by one reducer goroutine; readers only
// ever see immutable snapshots.
package session

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/tendant/pehub/pkg/pehub"
	"github.com/tendant/pehub/pkg/pehub/logging"
)

// ErrClosed is returned when dispatching to a closed holder
var ErrClosed = errors.New("session holder closed")

// EventKind names a session transition.
type EventKind int

const (
	SignedIn EventKind = iota + 1
	ProfileLoaded
	SignedOut
)

func (k EventKind) String() string {
	switch k {
	case SignedIn:
		return "signed_in"
	case ProfileLoaded:
		return "profile_loaded"
	case SignedOut:
		return "signed_out"
	}
	return "unknown"
}

// Event is a discrete session change. Actor is set for SignedIn, Profile
// for ProfileLoaded.
type Event struct {
	Kind    EventKind
	Actor   pehub.Actor
	Profile *pehub.Profile
}

// Snapshot is the session state at one version. Its Profile is a private
// copy and must be treated as read-only.
type Snapshot struct {
	Version  uint64
	Actor    pehub.Actor
	Profile  *pehub.Profile
	Loading  bool
	IsAdmin  bool
	SignedIn bool
}

// ProfileLoader fetches the profile for a freshly signed-in actor.
// pehub.Service satisfies it through EnsureProfile.
type ProfileLoader interface {
	EnsureProfile(ctx context.Context, actor pehub.Actor) (*pehub.Profile, error)
}

type envelope struct {
	event Event
	done  chan Snapshot
}

// Holder is the injectable session state.
type Holder struct {
	events  chan envelope
	current atomic.Pointer[Snapshot]
	quit    chan struct{}
	stopped chan struct{}
	closed  atomic.Bool

	loader   ProfileLoader
	logger   *logging.Logger
	watchers []func(Snapshot)
	ctx      context.Context
	cancel   context.CancelFunc
}

// Option configures a Holder
type Option func(*Holder)

// WithProfileLoader makes SignedIn trigger a profile load that is applied
// as a ProfileLoaded event.
func WithProfileLoader(l ProfileLoader) Option {
	return func(h *Holder) {
		h.loader = l
	}
}

// WithWatcher registers a function called from the reducer after every
// applied event.
func WithWatcher(fn func(Snapshot)) Option {
	return func(h *Holder) {
		h.watchers = append(h.watchers, fn)
	}
}

// WithLogger sets the logger
func WithLogger(l *logging.Logger) Option {
	return func(h *Holder) {
		h.logger = l
	}
}

// New starts the reducer. Call Close to stop it.
func New(opts ...Option) *Holder {
	h := &Holder{
		events:  make(chan envelope, 16),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.ctx, h.cancel = context.WithCancel(context.Background())
	h.current.Store(&Snapshot{})
	go h.run()
	return h
}

// Snapshot returns the latest state without blocking the reducer.
func (h *Holder) Snapshot() Snapshot {
	return *h.current.Load()
}

// Dispatch queues ev and waits until it has been applied, returning the
// resulting snapshot.
func (h *Holder) Dispatch(ctx context.Context, ev Event) (Snapshot, error) {
	if h.closed.Load() {
		return Snapshot{}, ErrClosed
	}
	env := envelope{event: ev, done: make(chan Snapshot, 1)}
	select {
	case h.events <- env:
	case <-h.quit:
		return Snapshot{}, ErrClosed
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	select {
	case snap := <-env.done:
		return snap, nil
	case <-h.stopped:
		return Snapshot{}, ErrClosed
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// SignIn is shorthand for dispatching SignedIn.
func (h *Holder) SignIn(ctx context.Context, actor pehub.Actor) (Snapshot, error) {
	return h.Dispatch(ctx, Event{Kind: SignedIn, Actor: actor})
}

// SignOut is shorthand for dispatching SignedOut.
func (h *Holder) SignOut(ctx context.Context) (Snapshot, error) {
	return h.Dispatch(ctx, Event{Kind: SignedOut})
}

// Close stops the reducer and cancels any profile load.
func (h *Holder) Close() {
	if h.closed.Swap(true) {
		return
	}
	h.cancel()
	close(h.quit)
	<-h.stopped
}

func (h *Holder) run() {
	defer close(h.stopped)
	for {
		select {
		case env := <-h.events:
			next := reduce(*h.current.Load(), env.event)
			if next.Version != h.current.Load().Version {
				h.current.Store(&next)
				for _, w := range h.watchers {
					w(next)
				}
				if env.event.Kind == SignedIn && h.loader != nil {
					go h.loadProfile(next.Version, next.Actor)
				}
			} else {
				h.logger.Debug("session event ignored", "event", env.event.Kind.String())
			}
			env.done <- next
		case <-h.quit:
			return
		}
	}
}

// loadProfile runs outside the reducer and reports back through an event.
// A result arriving after another sign-in or sign-out is dropped by reduce.
func (h *Holder) loadProfile(version uint64, actor pehub.Actor) {
	profile, err := h.loader.EnsureProfile(h.ctx, actor)
	if err != nil {
		h.logger.Warn("failed to load profile", "user_id", actor.UserID, "error", err)
		profile = nil
	}
	ev := Event{Kind: ProfileLoaded, Actor: actor, Profile: profile}
	if _, err := h.Dispatch(h.ctx, ev); err != nil && !errors.Is(err, ErrClosed) && !errors.Is(err, context.Canceled) {
		h.logger.Warn("failed to apply loaded profile", "user_id", actor.UserID, "version", version, "error", err)
	}
}

// reduce is the only place session state changes. It returns prev unchanged
// for events that do not apply.
func reduce(prev Snapshot, ev Event) Snapshot {
	switch ev.Kind {
	case SignedIn:
		if ev.Actor.IsZero() {
			return prev
		}
		return Snapshot{
			Version:  prev.Version + 1,
			Actor:    ev.Actor,
			SignedIn: true,
			Loading:  true,
		}
	case ProfileLoaded:
		if !prev.SignedIn || ev.Actor.UserID != prev.Actor.UserID {
			return prev
		}
		next := prev
		next.Version++
		next.Loading = false
		next.Profile = nil
		next.IsAdmin = false
		if ev.Profile != nil {
			p := *ev.Profile
			next.Profile = &p
			next.IsAdmin = p.IsAdmin()
		}
		return next
	case SignedOut:
		if !prev.SignedIn {
			return prev
		}
		return Snapshot{Version: prev.Version + 1}
	}
	return prev
}
