package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crm-portal/portal-agent/internal/api"
	"github.com/crm-portal/portal-agent/internal/apperror"
	"github.com/crm-portal/portal-agent/internal/call"
)

const testUser int64 = 10

type fakeProfile struct{ id int64 }

func (p fakeProfile) CurrentUser() (int64, bool) { return p.id, p.id > 0 }

type fakeAuthorizer struct {
	err      error
	channels []string
	mu       sync.Mutex
}

func (a *fakeAuthorizer) AuthorizeChannel(_ context.Context, path, socketID, channel string) (*api.ChannelAuth, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.channels = append(a.channels, path+" "+channel)

	if a.err != nil {
		return nil, a.err
	}

	return &api.ChannelAuth{Auth: "key:" + socketID}, nil
}

type recordingHandler struct {
	events chan call.Event
}

func (h *recordingHandler) HandleEvent(ev call.Event) {
	h.events <- ev
}

// fakeServer runs script for every websocket connection.
type fakeServer struct {
	srv      *httptest.Server
	connects atomic.Int32
}

func newFakeServer(t *testing.T, script func(t *testing.T, conn *websocket.Conn, n int32)) *fakeServer {
	t.Helper()

	fs := &fakeServer{}
	upgrader := websocket.Upgrader{}

	fs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "7", r.URL.Query().Get("protocol"))

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		script(t, conn, fs.connects.Add(1))
	}))
	t.Cleanup(fs.srv.Close)

	return fs
}

func (fs *fakeServer) url() string {
	return "ws" + strings.TrimPrefix(fs.srv.URL, "http") + "/app/key"
}

func send(t *testing.T, conn *websocket.Conn, event, channel string, data any) {
	t.Helper()

	raw, err := json.Marshal(data)
	require.NoError(t, err)

	assert.NoError(t, conn.WriteJSON(message{Event: event, Channel: channel, Data: raw}))
}

// establish sends connection_established and answers the subscribe frame.
func establish(t *testing.T, conn *websocket.Conn, activity int) bool {
	t.Helper()

	inner, _ := json.Marshal(connectionEstablished{SocketID: "1.2", ActivityTimeout: activity})
	send(t, conn, eventConnectionEstablished, "", string(inner))

	var sub message
	if err := conn.ReadJSON(&sub); err != nil {
		return false
	}

	var data subscribeData

	assert.Equal(t, eventSubscribe, sub.Event)
	assert.NoError(t, decodeData(sub.Data, &data))
	assert.Equal(t, UserChannel(testUser), data.Channel)
	assert.Equal(t, "key:1.2", data.Auth)

	send(t, conn, eventSubscriptionSucceeded, data.Channel, "{}")

	return true
}

func waitClosed(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func testOptions(url string) Options {
	return Options{
		URL:               url,
		ActivityTimeout:   time.Second,
		PongTimeout:       time.Second,
		ReconnectInterval: 10 * time.Millisecond,
		ReconnectBurst:    1,
	}
}

func runClient(t *testing.T, c *Client) (context.CancelFunc, <-chan error) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- c.Run(ctx)
	}()

	t.Cleanup(cancel)

	return cancel, done
}

func TestClient_DispatchesCallEvents(t *testing.T) {
	fs := newFakeServer(t, func(t *testing.T, conn *websocket.Conn, _ int32) {
		if !establish(t, conn, 0) {
			return
		}

		channel := UserChannel(testUser)

		send(t, conn, "call-initiated", UserChannel(99), `{"call":{"id":4}}`)
		send(t, conn, "message-sent", channel, `{}`)
		send(t, conn, "call-answered", channel, `{"call":{}}`)
		send(t, conn, ".call-initiated", channel,
			`{"call":{"id":5,"status":"pending","initiator_id":20,"recipient_id":10}}`)
		send(t, conn, "call-ended", channel, map[string]any{"id": 5, "status": "ended"})

		waitClosed(conn)
	})

	authorizer := &fakeAuthorizer{}
	handler := &recordingHandler{events: make(chan call.Event, 4)}
	c := New(testOptions(fs.url()), authorizer, handler, fakeProfile{id: testUser})

	cancel, done := runClient(t, c)

	first := <-handler.events
	assert.Equal(t, call.EventInitiated, first.Type)
	assert.Equal(t, int64(5), first.Session.ID)

	second := <-handler.events
	assert.Equal(t, call.EventEnded, second.Type)

	assert.Eventually(t, func() bool {
		status, _ := c.Status()
		return status == StatusSubscribed
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "1.2", c.SocketID())
	assert.Equal(t, []string{"/broadcasting/auth private-user.10"}, authorizer.channels)

	cancel()
	require.NoError(t, <-done)

	status, _ := c.Status()
	assert.Equal(t, StatusStopped, status)
	assert.Empty(t, handler.events)
}

func TestClient_AnswersServerPing(t *testing.T) {
	pong := make(chan struct{})

	fs := newFakeServer(t, func(t *testing.T, conn *websocket.Conn, _ int32) {
		if !establish(t, conn, 0) {
			return
		}

		send(t, conn, eventPing, "", map[string]any{})

		var m message
		if err := conn.ReadJSON(&m); err == nil && m.Event == eventPong {
			close(pong)
		}

		waitClosed(conn)
	})

	c := New(testOptions(fs.url()), &fakeAuthorizer{}, &recordingHandler{}, fakeProfile{id: testUser})
	runClient(t, c)

	select {
	case <-pong:
	case <-time.After(2 * time.Second):
		t.Fatal("no pong received")
	}
}

func TestClient_PingsWhenIdle(t *testing.T) {
	ping := make(chan struct{})

	fs := newFakeServer(t, func(t *testing.T, conn *websocket.Conn, _ int32) {
		if !establish(t, conn, 0) {
			return
		}

		var m message
		if err := conn.ReadJSON(&m); err == nil && m.Event == eventPing {
			close(ping)
			send(t, conn, eventPong, "", map[string]any{})
		}

		waitClosed(conn)
	})

	opts := testOptions(fs.url())
	opts.ActivityTimeout = 50 * time.Millisecond

	c := New(opts, &fakeAuthorizer{}, &recordingHandler{}, fakeProfile{id: testUser})
	runClient(t, c)

	select {
	case <-ping:
	case <-time.After(2 * time.Second):
		t.Fatal("no ping sent")
	}
}

func TestClient_ReconnectsAfterLoss(t *testing.T) {
	fs := newFakeServer(t, func(t *testing.T, conn *websocket.Conn, n int32) {
		if !establish(t, conn, 0) {
			return
		}

		if n == 1 {
			// drop the first connection
			return
		}

		waitClosed(conn)
	})

	c := New(testOptions(fs.url()), &fakeAuthorizer{}, &recordingHandler{}, fakeProfile{id: testUser})
	runClient(t, c)

	assert.Eventually(t, func() bool {
		status, _ := c.Status()
		return fs.connects.Load() == 2 && status == StatusSubscribed
	}, 2*time.Second, 10*time.Millisecond)
}

func TestClient_StopsOnRefusal(t *testing.T) {
	fs := newFakeServer(t, func(t *testing.T, conn *websocket.Conn, _ int32) {
		send(t, conn, eventError, "", map[string]any{"message": "Application disabled", "code": 4003})
		waitClosed(conn)
	})

	c := New(testOptions(fs.url()), &fakeAuthorizer{}, &recordingHandler{}, fakeProfile{id: testUser})
	_, done := runClient(t, c)

	err := <-done

	var refused *RefusedError
	require.ErrorAs(t, err, &refused)
	assert.Equal(t, 4003, refused.Code)
	assert.Equal(t, int32(1), fs.connects.Load())

	status, lastErr := c.Status()
	assert.Equal(t, StatusStopped, status)
	assert.Equal(t, err, lastErr)
}

func TestClient_StopsOnAuthFailure(t *testing.T) {
	fs := newFakeServer(t, func(t *testing.T, conn *websocket.Conn, _ int32) {
		inner, _ := json.Marshal(connectionEstablished{SocketID: "1.2"})
		send(t, conn, eventConnectionEstablished, "", string(inner))
		waitClosed(conn)
	})

	authorizer := &fakeAuthorizer{err: apperror.NewAuth(http.StatusForbidden, "")}
	c := New(testOptions(fs.url()), authorizer, &recordingHandler{}, fakeProfile{id: testUser})
	_, done := runClient(t, c)

	err := <-done
	assert.True(t, apperror.IsAuth(err))
}

func TestClient_RequiresUser(t *testing.T) {
	c := New(testOptions("ws://127.0.0.1:1/app/key"), &fakeAuthorizer{}, &recordingHandler{}, fakeProfile{})

	err := c.Run(context.Background())
	require.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestClassify(t *testing.T) {
	testCases := []struct {
		code     int
		expected errorAction
	}{
		{code: 4000, expected: actionStop},
		{code: 4099, expected: actionStop},
		{code: 4100, expected: actionReconnectLater},
		{code: 4201, expected: actionReconnect},
		{code: 1006, expected: actionReconnect},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, classify(tc.code), tc.code)
	}
}

func TestCloseError(t *testing.T) {
	err := closeError(&websocket.CloseError{Code: 4009, Text: "unauthorized"})

	var refused *RefusedError
	require.ErrorAs(t, err, &refused)

	err = closeError(&websocket.CloseError{Code: 4150, Text: "over quota"})

	var se *serverError
	require.ErrorAs(t, err, &se)
	assert.True(t, se.later)

	assert.True(t, apperror.IsTransport(closeError(&websocket.CloseError{Code: websocket.CloseAbnormalClosure})))
}
