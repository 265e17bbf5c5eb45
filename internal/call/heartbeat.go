package call

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/crm-portal/portal-agent/internal/apperror"
)

// SendHeartbeat pings the backend once while a user is authenticated.
// Failures are logged and counted; the error is returned for callers that care.
func (c *Controller) SendHeartbeat(ctx context.Context) error {
	if _, ok := c.profile.CurrentUser(); !ok {
		return nil
	}

	if err := c.backend.Heartbeat(ctx); err != nil {
		heartbeatFailures.Inc()
		log.Warn().Err(err).Msg("call heartbeat failed")

		return err
	}

	return nil
}

// RunHeartbeat sends a heartbeat immediately and then every HeartbeatInterval
// until ctx is done or the controller is closed. Failures never stop the loop.
func (c *Controller) RunHeartbeat(ctx context.Context) {
	ticker := time.NewTicker(c.opts.HeartbeatInterval)
	defer ticker.Stop()

	_ = c.SendHeartbeat(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-ticker.C:
			_ = c.SendHeartbeat(ctx)
		}
	}
}

// CheckExistingCall recovers a call that was already running when the session
// started (e.g. after a restart mid-call). A 404 is the normal "no call" outcome.
func (c *Controller) CheckExistingCall(ctx context.Context) error {
	me, ok := c.profile.CurrentUser()
	if !ok {
		return nil
	}

	session, err := c.backend.ActiveCall(ctx)

	switch {
	case apperror.IsNotFound(err):
		log.Debug().Msg("no active call to recover")
		return nil
	case err != nil:
		log.Warn().Err(err).Msg("failed to check for an active call")
		return err
	case session == nil || session.ID <= 0:
		return nil
	}

	if session.JWTCredential != "" {
		if cred, cerr := ParseCredential(session.JWTCredential); cerr != nil {
			log.Warn().Err(cerr).Int64("call_id", session.ID).Msg("recovered call carries an unreadable credential")
		} else if cred.Expired(c.now()) {
			log.Warn().Int64("call_id", session.ID).Time("expires_at", cred.ExpiresAt).
				Msg("recovered call credential is expired")
		}
	}

	c.apply(func() []Change {
		if c.closed || c.finished.has(session.ID) {
			return nil
		}

		if session.Status.Terminal() {
			c.finished.add(session.ID)
			return nil
		}

		cur := c.state.Session
		if cur != nil && (cur.ID != session.ID || session.OlderThan(cur)) {
			return nil
		}

		phase := PhasePending
		if session.Status == StatusActive {
			phase = PhaseActive
		}

		dir := DirectionIncoming
		if session.InitiatorID == me {
			dir = DirectionOutgoing
		}

		// never step back from active to pending
		if cur != nil && c.state.Phase == PhaseActive {
			phase = PhaseActive
		}

		return []Change{c.setState(phase, dir, session.Clone(), CauseRecovery, nil)}
	})

	return nil
}
