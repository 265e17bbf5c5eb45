package auth

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

var permissionLoads = promauto.NewCounterVec( //nolint:gochecknoglobals
	prometheus.CounterOpts{
		Name: "permission_loads_total",
		Help: "Number of employee permission loads, differentiated by result.",
	},
	[]string{"result"},
)

// RoleSource delivers the role catalog the employee permissions are derived from.
type RoleSource interface {
	ListRoles(ctx context.Context) ([]Role, error)
}

// LoadState is the state of the employee permission load.
type LoadState string

const (
	LoadIdle    LoadState = "idle"
	LoadLoading LoadState = "loading"
	LoadReady   LoadState = "ready"
	LoadFailed  LoadState = "failed"
)

// Snapshot is a consistent copy of the engine state.
type Snapshot struct {
	Actor       *Actor        `json:"actor"`
	Permissions PermissionSet `json:"-"`
	State       LoadState     `json:"state"`
	Error       string        `json:"error,omitempty"`
	Generation  uint64        `json:"generation"`
}

// PermissionsPending reports whether the actor is an employee whose permissions
// are not usable yet (loading or failed). Menus render empty in that case.
func (s Snapshot) PermissionsPending() bool {
	return s.Actor != nil && s.Actor.ProfileType == ProfileEmployee && s.State != LoadReady
}

// HasPermission evaluates the check against the snapshot.
func (s Snapshot) HasPermission(resource, action string) Decision {
	if s.PermissionsPending() {
		return Decision{Reason: ReasonPending}
	}

	return HasPermission(s.Actor, s.Permissions, resource, action)
}

// HasAny reports whether at least one of the keys (resource.action) is granted.
func (s Snapshot) HasAny(keys ...string) bool {
	for _, key := range keys {
		resource, action, ok := ParseKey(key)
		if ok && s.HasPermission(resource, action).Granted {
			return true
		}
	}

	return false
}

// HasAll reports whether every key (resource.action) is granted.
func (s Snapshot) HasAll(keys ...string) bool {
	for _, key := range keys {
		resource, action, ok := ParseKey(key)
		if !ok || !s.HasPermission(resource, action).Granted {
			return false
		}
	}

	return true
}

// Engine owns the current actor and its loaded permissions.
// It is safe for concurrent use; it is the only writer of its state.
type Engine struct {
	mu         sync.RWMutex
	source     RoleSource
	actor      *Actor
	perms      PermissionSet
	state      LoadState
	lastErr    error
	generation uint64
}

// NewEngine creates an engine loading employee roles from source.
func NewEngine(source RoleSource) *Engine {
	return &Engine{
		source: source,
		state:  LoadIdle,
	}
}

// SetActor replaces the current actor. For employees the role permissions are
// loaded synchronously; any load still in flight for the previous actor is
// superseded and its result dropped. A nil actor logs out.
func (e *Engine) SetActor(ctx context.Context, actor *Actor) error {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.actor = actor.Clone()
	e.perms = nil
	e.lastErr = nil

	switch {
	case actor == nil:
		e.state = LoadIdle
	case actor.ProfileType.FullAccess():
		e.state = LoadReady
	default:
		e.state = LoadLoading
	}

	needsLoad := e.state == LoadLoading
	e.mu.Unlock()

	if !needsLoad {
		return nil
	}

	return e.load(ctx, gen)
}

// Reload fetches the employee permissions again, e.g. after a failure or
// after one of the actor's roles was changed.
func (e *Engine) Reload(ctx context.Context) error {
	e.mu.Lock()
	if e.actor == nil {
		e.mu.Unlock()
		return ErrNoActor
	}

	if e.actor.ProfileType.FullAccess() {
		e.mu.Unlock()
		return nil
	}

	e.generation++
	gen := e.generation
	e.state = LoadLoading
	e.lastErr = nil
	e.mu.Unlock()

	return e.load(ctx, gen)
}

func (e *Engine) load(ctx context.Context, gen uint64) error {
	if e.source == nil {
		e.fail(gen, ErrNoRoleSource)
		return ErrNoRoleSource
	}

	roles, err := e.source.ListRoles(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.generation {
		permissionLoads.WithLabelValues("stale").Inc()
		log.Debug().Uint64("generation", gen).Uint64("current", e.generation).
			Msg("dropping stale permission load")

		return ErrStaleLoad
	}

	if err != nil {
		e.state = LoadFailed
		e.lastErr = err
		permissionLoads.WithLabelValues("failed").Inc()
		log.Error().Err(err).Int64("actor_id", e.actor.ID).Msg("failed to load employee permissions")

		return err
	}

	e.perms = UnionPermissions(roles, e.actor.RoleIDs)
	e.state = LoadReady
	permissionLoads.WithLabelValues("ok").Inc()
	log.Debug().Int64("actor_id", e.actor.ID).Int("permissions", len(e.perms)).Msg("employee permissions loaded")

	return nil
}

func (e *Engine) fail(gen uint64, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen == e.generation {
		e.state = LoadFailed
		e.lastErr = err
	}
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	snap := Snapshot{
		Actor:       e.actor.Clone(),
		Permissions: e.perms.Clone(),
		State:       e.state,
		Generation:  e.generation,
	}

	if e.lastErr != nil {
		snap.Error = e.lastErr.Error()
	}

	return snap
}

// Actor returns a copy of the current actor, or nil.
func (e *Engine) Actor() *Actor {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.actor.Clone()
}

// HasPermission checks the current actor. Employees are denied while their
// permissions are loading or failed to load.
func (e *Engine) HasPermission(resource, action string) Decision {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.actor != nil && e.actor.ProfileType == ProfileEmployee && e.state != LoadReady {
		return Decision{Reason: ReasonPending}
	}

	return HasPermission(e.actor, e.perms, resource, action)
}

// CanAccess checks read access for the current actor.
func (e *Engine) CanAccess(resource string) bool {
	return e.HasPermission(resource, ActionRead).Granted
}

// HasAny reports whether at least one of the keys (resource.action) is granted.
func (e *Engine) HasAny(keys ...string) bool {
	return e.Snapshot().HasAny(keys...)
}

// HasAll reports whether every key (resource.action) is granted.
func (e *Engine) HasAll(keys ...string) bool {
	return e.Snapshot().HasAll(keys...)
}

// HoldsRole reports whether the current actor is an employee assigned to roleID.
func (e *Engine) HoldsRole(roleID int64) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.actor.HoldsRole(roleID)
}

// CurrentUser returns the id of the current actor.
func (e *Engine) CurrentUser() (int64, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.actor == nil || e.actor.ID <= 0 {
		return 0, false
	}

	return e.actor.ID, true
}
