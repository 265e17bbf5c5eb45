package call

// Phase is the controller's view of the current call.
type Phase string

const (
	PhaseNone      Phase = "none"
	PhasePending   Phase = "pending"
	PhaseActive    Phase = "active"
	PhaseRejected  Phase = "rejected"
	PhaseCancelled Phase = "cancelled"
	PhaseFailed    Phase = "failed"
)

// displayed reports whether the phase is shown for the display window and then cleared.
func (p Phase) displayed() bool {
	return p == PhaseRejected || p == PhaseCancelled || p == PhaseFailed
}

// Direction tells whether the current user placed or receives the call.
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// State is what the UI renders. Session is nil iff Phase is PhaseNone.
type State struct {
	Phase     Phase     `json:"phase"`
	Direction Direction `json:"direction,omitempty"`
	Session   *Session  `json:"session,omitempty"`
	// Held is a second incoming call waiting for the current one to finish.
	Held *Session `json:"held,omitempty"`
}

// Clone returns a deep copy.
func (s State) Clone() State {
	s.Session = s.Session.Clone()
	s.Held = s.Held.Clone()

	return s
}

// Cause tells what triggered a change.
type Cause string

const (
	CauseLocal     Cause = "local"
	CauseEvent     Cause = "event"
	CauseTimer     Cause = "timer"
	CauseRecovery  Cause = "recovery"
	CausePromotion Cause = "promotion"
)

// Change is delivered to listeners after every state change.
type Change struct {
	State State `json:"state"`
	Cause Cause `json:"cause"`
	// Finished is the final copy of a call that left the controller.
	Finished *Session `json:"finished,omitempty"`
}

// Listener receives changes in the order they happened. Listeners run
// synchronously while the controller holds its delivery lock: calling any
// Controller method from a listener, State included, can deadlock, and a slow
// listener delays every following transition. Hand work that blocks (disk,
// network) to another goroutine.
type Listener func(Change)
