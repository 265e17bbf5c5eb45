package call

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/crm-portal/portal-agent/internal/apperror"
)

// Backend is the REST side of the call lifecycle.
type Backend interface {
	InitiateCall(ctx context.Context, recipientID int64, callType Type) (*Session, error)
	AnswerCall(ctx context.Context, id int64) (*Session, error)
	RejectCall(ctx context.Context, id int64) (*Session, error)
	EndCall(ctx context.Context, id int64) (*Session, error)
	ActiveCall(ctx context.Context) (*Session, error)
	Heartbeat(ctx context.Context) error
}

// ProfileContext supplies the authenticated user. The controller only reads it.
type ProfileContext interface {
	CurrentUser() (userID int64, ok bool)
}

// Options tune the controller timings.
type Options struct {
	// DisplayWindow is how long rejected, cancelled and failed calls stay visible.
	DisplayWindow time.Duration
	// HeartbeatInterval is the presence ping cadence.
	HeartbeatInterval time.Duration
	// ActionTimeout bounds background REST calls.
	ActionTimeout time.Duration
	// RecentlyFinished is how many finished call ids are remembered.
	RecentlyFinished int
}

// DefaultOptions returns the standard timings.
func DefaultOptions() Options {
	return Options{
		DisplayWindow:     3 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		ActionTimeout:     10 * time.Second,
		RecentlyFinished:  32,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()

	if o.DisplayWindow <= 0 {
		o.DisplayWindow = def.DisplayWindow
	}

	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = def.HeartbeatInterval
	}

	if o.ActionTimeout <= 0 {
		o.ActionTimeout = def.ActionTimeout
	}

	if o.RecentlyFinished <= 0 {
		o.RecentlyFinished = def.RecentlyFinished
	}

	return o
}

// Controller reconciles local actions and pushed events into the one current call.
type Controller struct {
	backend Backend
	profile ProfileContext
	opts    Options
	now     func() time.Time

	mu         sync.Mutex
	state      State
	gen        uint64
	clearTimer *time.Timer
	finished   *recentIDs
	listeners  []Listener
	starting   bool
	closed     bool
	// rejecting is the id of an optimistic reject whose REST call is in flight.
	rejecting  int64

	// emitMu keeps listener delivery in transition order.
	emitMu sync.Mutex

	wg      sync.WaitGroup
	done    chan struct{}
	baseCtx context.Context //nolint:containedctx
	cancel  context.CancelFunc
}

// NewController creates a controller in PhaseNone.
func NewController(backend Backend, profile ProfileContext, opts Options) *Controller {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	return &Controller{
		backend:  backend,
		profile:  profile,
		opts:     opts,
		now:      time.Now,
		state:    State{Phase: PhaseNone},
		finished: newRecentIDs(opts.RecentlyFinished),
		done:     make(chan struct{}),
		baseCtx:  ctx,
		cancel:   cancel,
	}
}

// OnChange registers a listener for state changes.
func (c *Controller) OnChange(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.listeners = append(c.listeners, l)
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state.Clone()
}

// StartCall places an outgoing call. The state moves to pending(outgoing)
// once the backend created the session.
func (c *Controller) StartCall(ctx context.Context, recipientID int64, callType Type) (*Session, error) {
	if recipientID <= 0 {
		return nil, apperror.NewValidation("recipient_id", "must be a positive user id")
	}

	if !callType.Valid() {
		return nil, apperror.NewValidation("call_type", "must be audio or video")
	}

	me, ok := c.profile.CurrentUser()
	if !ok {
		return nil, ErrNotAuthenticated
	}

	if recipientID == me {
		return nil, apperror.NewValidation("recipient_id", "cannot call yourself")
	}

	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return nil, ErrClosed
	case c.starting || c.state.Phase != PhaseNone:
		c.mu.Unlock()
		return nil, ErrCallInProgress
	}

	c.starting = true
	c.mu.Unlock()

	session, err := c.backend.InitiateCall(ctx, recipientID, callType)
	if err == nil && session == nil {
		err = ErrEmptyResponse
	}

	var busy bool

	c.apply(func() []Change {
		c.starting = false

		if err != nil || c.finished.has(session.ID) {
			return nil
		}

		cur := c.state.Session

		switch {
		case c.state.Phase == PhaseNone:
			return []Change{c.setState(PhasePending, DirectionOutgoing, session.Clone(), CauseLocal, nil)}
		case cur != nil && cur.ID == session.ID:
			// the pushed call-initiated was faster than the response
			if c.state.Phase == PhasePending && !session.OlderThan(cur) {
				return []Change{c.setState(PhasePending, DirectionOutgoing, session.Clone(), CauseLocal, nil)}
			}

			return nil
		default:
			busy = true
			c.finished.add(session.ID)
			c.spawnLocked("end", session.ID, c.endRemote)

			return nil
		}
	})

	if err != nil {
		log.Error().Err(err).Int64("recipient_id", recipientID).Msg("failed to initiate call")
		return nil, err
	}

	if busy {
		return nil, ErrCallInProgress
	}

	return session.Clone(), nil
}

// Answer accepts the ringing incoming call. The state moves to active at once;
// if the backend refuses, the previous state is restored unless something else
// happened in between.
func (c *Controller) Answer(ctx context.Context) (*Session, error) {
	return c.respond(ctx, PhaseActive, c.backend.AnswerCall)
}

// Reject declines the ringing incoming call. The state moves to rejected at
// once and clears after the display window.
func (c *Controller) Reject(ctx context.Context) (*Session, error) {
	return c.respond(ctx, PhaseRejected, c.backend.RejectCall)
}

func (c *Controller) respond(
	ctx context.Context,
	target Phase,
	remote func(context.Context, int64) (*Session, error),
) (*Session, error) {
	var (
		prev State
		id   int64
		gen  uint64
		err  error
	)

	c.apply(func() []Change {
		if c.closed {
			err = ErrClosed
			return nil
		}

		if c.state.Phase != PhasePending || c.state.Direction != DirectionIncoming {
			err = ErrNoIncomingCall
			return nil
		}

		prev = c.state.Clone()
		optimistic := c.state.Session.Clone()
		id = optimistic.ID
		now := c.now()

		var finished *Session

		if target == PhaseActive {
			optimistic.Status = StatusActive
			optimistic.StartedAt = &now
		} else {
			optimistic.finish(StatusRejected, now)
			finished = optimistic
			c.rejecting = id
		}

		change := c.setState(target, DirectionIncoming, optimistic, CauseLocal, finished)
		gen = c.gen

		return []Change{change}
	})

	if err != nil {
		return nil, err
	}

	session, rerr := remote(ctx, id)
	if rerr == nil && session == nil {
		rerr = ErrEmptyResponse
	}

	c.apply(func() []Change {
		if c.rejecting == id {
			c.rejecting = 0
		}

		if rerr != nil {
			if c.gen != gen {
				return nil
			}

			c.finished.remove(id)

			return []Change{c.setState(prev.Phase, prev.Direction, prev.Session, CauseLocal, nil)}
		}

		cur := c.state.Session
		if c.state.Phase != target || cur == nil || cur.ID != id || session.OlderThan(cur) {
			return nil
		}

		if target == PhaseRejected {
			// keep the running display timer
			c.state.Session = session.Clone()
			return []Change{c.snapshot(CauseLocal, nil)}
		}

		return []Change{c.setState(target, DirectionIncoming, session.Clone(), CauseLocal, nil)}
	})

	if rerr != nil {
		log.Error().Err(rerr).Int64("call_id", id).Str("action", string(target)).Msg("call action failed")
		return nil, rerr
	}

	return session.Clone(), nil
}

// End hangs up. The state clears immediately and the backend is told in the
// background. On a rejected, cancelled or failed call End dismisses the notice.
func (c *Controller) End() error {
	var err error

	c.apply(func() []Change {
		switch {
		case c.closed:
			err = ErrClosed
			return nil
		case c.state.Phase == PhaseActive,
			c.state.Phase == PhasePending && c.state.Direction == DirectionOutgoing:
			final := c.state.Session.Clone()
			status := StatusEnded

			if c.state.Phase == PhasePending {
				status = StatusCancelled
			}

			final.finish(status, c.now())
			c.spawnLocked("end", final.ID, c.endRemote)

			return c.toNone(CauseLocal, final)
		case c.state.Phase.displayed():
			return c.toNone(CauseLocal, nil)
		case c.state.Phase == PhasePending:
			err = ErrNoIncomingCall
			return nil
		default:
			err = ErrNoCall
			return nil
		}
	})

	return err
}

// HandleEvent applies a pushed call event.
func (c *Controller) HandleEvent(ev Event) {
	c.apply(func() []Change {
		if c.closed {
			return nil
		}

		changes, outcome := c.handleEventLocked(ev)
		events.WithLabelValues(string(ev.Type), outcome).Inc()

		log.Debug().Str("event", string(ev.Type)).Int64("call_id", ev.Session.ID).
			Str("outcome", outcome).Str("phase", string(c.state.Phase)).Msg("call event")

		return changes
	})
}

func (c *Controller) handleEventLocked(ev Event) ([]Change, string) {
	me, ok := c.profile.CurrentUser()
	if !ok {
		return nil, "unauthenticated"
	}

	s := ev.Session.Clone()
	if !s.Involves(me) {
		return nil, "not-involved"
	}

	cur := c.state.Session

	if c.finished.has(s.ID) {
		if c.rejecting == s.ID && cur != nil && cur.ID == s.ID && !s.OlderThan(cur) &&
			(ev.Type.Terminal() || s.Status.Terminal()) {
			// the server finished the call while our reject is in flight: its
			// payload wins and the optimistic state can no longer be rolled back
			c.rejecting = 0

			return []Change{c.setState(confirmedPhase(ev.Type, s), c.state.Direction, s, CauseEvent, s)}, "confirmed"
		}

		return nil, "finished"
	}

	if cur != nil && cur.ID != s.ID {
		return c.handleForeignLocked(ev.Type, s, me)
	}

	if s.OlderThan(cur) {
		return nil, "stale"
	}

	phase, dir := c.state.Phase, c.state.Direction

	if cur == nil {
		switch {
		case ev.Type != EventInitiated:
			if ev.Type.Terminal() || s.Status.Terminal() {
				// reordered: the end overtook the start
				c.finished.add(s.ID)
			}

			return nil, "ignored"
		case s.Status.Terminal():
			c.finished.add(s.ID)
			return nil, "ignored"
		case s.RecipientID == me:
			return []Change{c.setState(PhasePending, DirectionIncoming, s, CauseEvent, nil)}, "applied"
		case s.InitiatorID == me:
			return []Change{c.setState(PhasePending, DirectionOutgoing, s, CauseEvent, nil)}, "applied"
		default:
			return nil, "ignored"
		}
	}

	if s.Status == StatusFailed && (phase == PhasePending || phase == PhaseActive) {
		return []Change{c.setState(PhaseFailed, dir, s, CauseEvent, s)}, "applied"
	}

	switch ev.Type {
	case EventInitiated:
		if phase == PhasePending {
			return []Change{c.setState(PhasePending, dir, s, CauseEvent, nil)}, "applied"
		}
	case EventAnswered:
		if phase == PhasePending || phase == PhaseActive {
			return []Change{c.setState(PhaseActive, dir, s, CauseEvent, nil)}, "applied"
		}
	case EventRejected:
		if phase == PhasePending {
			return []Change{c.setState(PhaseRejected, dir, s, CauseEvent, s)}, "applied"
		}
	case EventEnded:
		switch phase {
		case PhaseActive:
			return c.toNone(CauseEvent, s), "applied"
		case PhasePending:
			return []Change{c.setState(PhaseCancelled, dir, s, CauseEvent, s)}, "applied"
		}
	}

	return nil, "ignored"
}

// confirmedPhase maps a terminal payload for a locally rejected call.
func confirmedPhase(t EventType, s *Session) Phase {
	switch {
	case s.Status == StatusFailed:
		return PhaseFailed
	case t == EventEnded:
		return PhaseCancelled
	default:
		return PhaseRejected
	}
}

// handleForeignLocked deals with events for a call other than the current one.
func (c *Controller) handleForeignLocked(t EventType, s *Session, me int64) ([]Change, string) {
	held := c.state.Held

	switch {
	case held != nil && held.ID == s.ID:
		if s.OlderThan(held) {
			return nil, "stale"
		}

		if t == EventInitiated && !s.Status.Terminal() {
			c.state.Held = s
			return []Change{c.snapshot(CauseEvent, nil)}, "held"
		}

		// answered elsewhere or finished: nothing left to promote
		c.state.Held = nil
		c.finished.add(s.ID)

		return []Change{c.snapshot(CauseEvent, nil)}, "released"
	case t == EventInitiated && s.RecipientID == me && !s.Status.Terminal():
		if held == nil {
			c.state.Held = s
			return []Change{c.snapshot(CauseEvent, nil)}, "held"
		}

		c.finished.add(s.ID)
		c.spawnLocked("reject", s.ID, c.rejectRemote)

		return nil, "overflow"
	case t.Terminal():
		c.finished.add(s.ID)
		return nil, "ignored"
	default:
		return nil, "ignored"
	}
}

// setState performs a transition. It cancels a pending display timer and
// schedules a new one for displayed phases. Callers hold mu.
func (c *Controller) setState(phase Phase, dir Direction, session *Session, cause Cause, finished *Session) Change {
	if c.clearTimer != nil {
		c.clearTimer.Stop()
		c.clearTimer = nil
	}

	c.gen++

	if phase == PhaseNone {
		dir = ""
		session = nil
	}

	c.state.Phase = phase
	c.state.Direction = dir
	c.state.Session = session

	if finished != nil {
		c.finished.add(finished.ID)
	}

	if phase.displayed() {
		gen := c.gen
		c.clearTimer = time.AfterFunc(c.opts.DisplayWindow, func() {
			c.expire(gen)
		})
	}

	transitions.WithLabelValues(string(phase)).Inc()

	return c.snapshot(cause, finished)
}

// toNone clears the current call and promotes a held call. Callers hold mu.
func (c *Controller) toNone(cause Cause, finished *Session) []Change {
	held := c.state.Held
	c.state.Held = nil

	changes := []Change{c.setState(PhaseNone, "", nil, cause, finished)}

	if held != nil && !c.finished.has(held.ID) {
		changes = append(changes, c.setState(PhasePending, DirectionIncoming, held, CausePromotion, nil))
	}

	return changes
}

func (c *Controller) snapshot(cause Cause, finished *Session) Change {
	return Change{
		State:    c.state.Clone(),
		Cause:    cause,
		Finished: finished.Clone(),
	}
}

func (c *Controller) expire(gen uint64) {
	c.apply(func() []Change {
		if c.closed || c.gen != gen {
			return nil
		}

		return c.toNone(CauseTimer, nil)
	})
}

// apply runs fn under mu and delivers the changes it produced in order.
func (c *Controller) apply(fn func() []Change) {
	c.mu.Lock()
	changes := fn()
	listeners := slices.Clone(c.listeners)
	c.emitMu.Lock()
	c.mu.Unlock()

	defer c.emitMu.Unlock()

	for _, change := range changes {
		for _, l := range listeners {
			l(change)
		}
	}
}

// spawnLocked runs a fire-and-forget REST call. Callers hold mu.
func (c *Controller) spawnLocked(op string, id int64, fn func(context.Context, int64) error) {
	if c.closed {
		log.Warn().Str("op", op).Int64("call_id", id).Msg("controller closed, skipping background call action")
		return
	}

	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		ctx, cancel := context.WithTimeout(c.baseCtx, c.opts.ActionTimeout)
		defer cancel()

		if err := fn(ctx, id); err != nil {
			log.Warn().Err(err).Str("op", op).Int64("call_id", id).Msg("background call action failed")
		}
	}()
}

func (c *Controller) endRemote(ctx context.Context, id int64) error {
	_, err := c.backend.EndCall(ctx, id)
	return err
}

func (c *Controller) rejectRemote(ctx context.Context, id int64) error {
	_, err := c.backend.RejectCall(ctx, id)
	return err
}

// Close stops the display timer and waits for background REST calls.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	c.closed = true
	close(c.done)

	if c.clearTimer != nil {
		c.clearTimer.Stop()
		c.clearTimer = nil
	}
	c.mu.Unlock()

	c.wg.Wait()
	c.cancel()
}
