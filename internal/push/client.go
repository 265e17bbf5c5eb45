// Package push receives call events over a Pusher protocol websocket and hands
// them to the call controller.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/crm-portal/portal-agent/internal/api"
	"github.com/crm-portal/portal-agent/internal/apperror"
	"github.com/crm-portal/portal-agent/internal/call"
	"github.com/crm-portal/portal-agent/internal/config"
	"github.com/crm-portal/portal-agent/internal/logger"
)

// Status is the connection state shown to the UI.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusSubscribed   Status = "subscribed"
	StatusStopped      Status = "stopped"
)

// Authorizer signs private channel subscriptions.
type Authorizer interface {
	AuthorizeChannel(ctx context.Context, path, socketID, channel string) (*api.ChannelAuth, error)
}

// Handler consumes parsed call events.
type Handler interface {
	HandleEvent(ev call.Event)
}

// Options tune the transport.
type Options struct {
	URL               string
	AuthPath          string
	ActivityTimeout   time.Duration
	PongTimeout       time.Duration
	WriteTimeout      time.Duration
	ReconnectInterval time.Duration
	ReconnectBurst    int
}

// OptionsFromConfig converts the push config section.
func OptionsFromConfig(cfg config.Push) Options {
	return Options{
		URL:               cfg.URL,
		AuthPath:          cfg.AuthPath,
		ActivityTimeout:   time.Duration(cfg.ActivityTimeout) * time.Second,
		PongTimeout:       time.Duration(cfg.PongTimeout) * time.Second,
		ReconnectInterval: time.Duration(cfg.ReconnectInterval) * time.Second,
		ReconnectBurst:    cfg.ReconnectBurst,
	}
}

func (o Options) withDefaults() Options {
	if o.ActivityTimeout <= 0 {
		o.ActivityTimeout = 120 * time.Second
	}

	if o.PongTimeout <= 0 {
		o.PongTimeout = 30 * time.Second
	}

	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}

	if o.ReconnectInterval <= 0 {
		o.ReconnectInterval = 2 * time.Second
	}

	if o.ReconnectBurst <= 0 {
		o.ReconnectBurst = 1
	}

	if o.AuthPath == "" {
		o.AuthPath = "/broadcasting/auth"
	}

	return o
}

// Client keeps one subscription to the private user channel alive.
type Client struct {
	opts    Options
	auth    Authorizer
	handler Handler
	profile call.ProfileContext
	dialer  *websocket.Dialer
	limiter *rate.Limiter
	log     zerolog.Logger

	mu       sync.Mutex
	status   Status
	socketID string
	lastErr  error

	writeMu sync.Mutex
}

// New creates a push client.
func New(opts Options, auth Authorizer, handler Handler, profile call.ProfileContext) *Client {
	opts = opts.withDefaults()

	return &Client{
		opts:    opts,
		auth:    auth,
		handler: handler,
		profile: profile,
		dialer: &websocket.Dialer{
			HandshakeTimeout: opts.WriteTimeout,
		},
		limiter: rate.NewLimiter(rate.Every(opts.ReconnectInterval), opts.ReconnectBurst),
		log:     logger.Component("push"),
		status:  StatusDisconnected,
	}
}

// Status returns the connection state and the last connection error.
func (c *Client) Status() (Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.status, c.lastErr
}

func (c *Client) setStatus(s Status, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.status = s
	if err != nil {
		c.lastErr = err
	}
}

// Run connects and reconnects until ctx is done or the server refuses the
// client for good. It returns nil on cancellation.
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			c.setStatus(StatusStopped, nil)
			return nil //nolint:nilerr
		}

		err := c.session(ctx)

		if ctx.Err() != nil {
			c.setStatus(StatusStopped, nil)
			return nil
		}

		if fatal(err) {
			connections.WithLabelValues("refused").Inc()
			c.setStatus(StatusStopped, err)
			c.log.Error().Err(err).Msg("push connection refused, not reconnecting")

			return err
		}

		connections.WithLabelValues("lost").Inc()
		c.setStatus(StatusDisconnected, err)
		c.log.Warn().Err(err).Msg("push connection lost, reconnecting")

		var se *serverError
		if errors.As(err, &se) && se.later {
			select {
			case <-ctx.Done():
				c.setStatus(StatusStopped, nil)
				return nil
			case <-time.After(c.opts.ReconnectInterval):
			}
		}
	}
}

func fatal(err error) bool {
	var refused *RefusedError

	return errors.As(err, &refused) ||
		apperror.IsAuth(err) ||
		errors.Is(err, ErrNotAuthenticated) ||
		errors.Is(err, ErrSubscriptionRejected)
}

func (c *Client) url() (string, error) {
	u, err := url.Parse(c.opts.URL)
	if err != nil {
		return "", err //nolint:wrapcheck
	}

	q := u.Query()
	if q.Get("protocol") == "" {
		q.Set("protocol", protocolVersion)
		q.Set("client", "portal-agent")
	}

	u.RawQuery = q.Encode()

	return u.String(), nil
}

// session runs one connection from dial to loss.
func (c *Client) session(ctx context.Context) error {
	userID, ok := c.profile.CurrentUser()
	if !ok {
		return ErrNotAuthenticated
	}

	target, err := c.url()
	if err != nil {
		return &RefusedError{Message: err.Error()}
	}

	c.setStatus(StatusConnecting, nil)

	conn, _, err := c.dialer.DialContext(ctx, target, nil)
	if err != nil {
		return &apperror.TransportError{Operation: "DIAL", URL: target, Err: err}
	}
	defer conn.Close()

	activity, err := c.handshake(ctx, conn, UserChannel(userID))
	if err != nil {
		return err
	}

	return c.readLoop(ctx, conn, UserChannel(userID), activity)
}

// handshake waits for connection_established and subscribes the user channel.
func (c *Client) handshake(ctx context.Context, conn *websocket.Conn, channel string) (time.Duration, error) {
	_ = conn.SetReadDeadline(time.Now().Add(c.opts.PongTimeout))

	var m message
	if err := conn.ReadJSON(&m); err != nil {
		return 0, closeError(err)
	}

	if m.Event == eventError {
		if err := c.serverErr(m); err != nil {
			return 0, err
		}
	}

	if m.Event != eventConnectionEstablished {
		return 0, fmt.Errorf("%w: %s", ErrUnexpectedHandshake, m.Event)
	}

	var est connectionEstablished
	if err := decodeData(m.Data, &est); err != nil || est.SocketID == "" {
		return 0, fmt.Errorf("%w: no socket id", ErrUnexpectedHandshake)
	}

	activity := c.opts.ActivityTimeout
	if server := time.Duration(est.ActivityTimeout) * time.Second; server > 0 && server < activity {
		activity = server
	}

	c.mu.Lock()
	c.socketID = est.SocketID
	c.mu.Unlock()

	signed, err := c.auth.AuthorizeChannel(ctx, c.opts.AuthPath, est.SocketID, channel)
	if err != nil {
		return 0, err
	}

	data, _ := json.Marshal(subscribeData{Channel: channel, Auth: signed.Auth, ChannelData: signed.ChannelData}) //nolint:errchkjson

	if err := c.write(conn, message{Event: eventSubscribe, Data: data}); err != nil {
		return 0, err
	}

	c.log.Debug().Str("socket_id", est.SocketID).Str("channel", channel).Msg("push subscribing")

	return activity, nil
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, channel string, activity time.Duration) error {
	frames := make(chan message)
	errs := make(chan error, 1)
	done := make(chan struct{})

	defer close(done)

	go func() {
		for {
			// an unanswered ping surfaces as a read timeout
			_ = conn.SetReadDeadline(time.Now().Add(activity + c.opts.PongTimeout))

			var m message
			if err := conn.ReadJSON(&m); err != nil {
				errs <- err
				return
			}

			select {
			case frames <- m:
			case <-done:
				return
			}
		}
	}()

	idle := time.NewTimer(activity)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			c.writeMu.Lock()
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			c.writeMu.Unlock()

			return ctx.Err()
		case err := <-errs:
			return closeError(err)
		case m := <-frames:
			idle.Reset(activity)

			if err := c.handleFrame(conn, channel, m); err != nil {
				return err
			}
		case <-idle.C:
			if err := c.write(conn, message{Event: eventPing, Data: json.RawMessage(`{}`)}); err != nil {
				return err
			}

			idle.Reset(activity)
		}
	}
}

func (c *Client) handleFrame(conn *websocket.Conn, channel string, m message) error {
	switch m.Event {
	case eventPing:
		received.WithLabelValues("ping").Inc()
		return c.write(conn, message{Event: eventPong, Data: json.RawMessage(`{}`)})
	case eventPong:
		received.WithLabelValues("pong").Inc()
		return nil
	case eventSubscriptionSucceeded:
		c.setStatus(StatusSubscribed, nil)
		c.log.Info().Str("channel", m.Channel).Msg("push subscribed")

		return nil
	case eventSubscriptionError:
		return fmt.Errorf("%w: %s", ErrSubscriptionRejected, string(m.Data))
	case eventError:
		return c.serverErr(m)
	}

	if m.Channel != channel {
		received.WithLabelValues("foreign").Inc()
		return nil
	}

	if !call.IsCallEvent(m.Event) {
		received.WithLabelValues("ignored").Inc()
		return nil
	}

	ev, err := call.ParseEvent(m.Event, m.Data)
	if err != nil {
		received.WithLabelValues("malformed").Inc()
		c.log.Warn().Err(err).Str("event", m.Event).Msg("dropping malformed call event")

		return nil
	}

	received.WithLabelValues("call").Inc()
	c.handler.HandleEvent(ev)

	return nil
}

// serverErr turns a pusher:error frame into the matching error. Errors
// without a code are informational.
func (c *Client) serverErr(m message) error {
	var data errorData
	_ = decodeData(m.Data, &data)

	if data.Code == nil {
		c.log.Warn().Str("message", data.Message).Msg("push server error")
		return nil
	}

	switch classify(*data.Code) {
	case actionStop:
		return &RefusedError{Code: *data.Code, Message: data.Message}
	case actionReconnectLater:
		return &serverError{code: *data.Code, message: data.Message, later: true}
	default:
		return &serverError{code: *data.Code, message: data.Message}
	}
}

func (c *Client) write(conn *websocket.Conn, m message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))

	if err := conn.WriteJSON(m); err != nil {
		return &apperror.TransportError{Operation: "WRITE", URL: c.opts.URL, Err: err}
	}

	return nil
}

// closeError maps websocket close codes onto the protocol ranges.
func closeError(err error) error {
	var ce *websocket.CloseError
	if errors.As(err, &ce) && ce.Code >= 4000 && ce.Code < 4300 {
		switch classify(ce.Code) {
		case actionStop:
			return &RefusedError{Code: ce.Code, Message: ce.Text}
		case actionReconnectLater:
			return &serverError{code: ce.Code, message: ce.Text, later: true}
		default:
			return &serverError{code: ce.Code, message: ce.Text}
		}
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", ErrPongTimeout, err)
	}

	return &apperror.TransportError{Operation: "READ", Err: err}
}

// SocketID returns the socket id of the current connection.
func (c *Client) SocketID() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.socketID
}
