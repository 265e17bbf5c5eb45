package call

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEvent(t *testing.T) {
	testCases := []struct {
		name          string
		event         string
		data          string
		expectedType  EventType
		expectedID    int64
		expectedError error
	}{
		{
			name:         "wrapped session",
			event:        "call-initiated",
			data:         `{"call":{"id":5,"room_name":"r","call_type":"video","status":"pending","initiator_id":1,"recipient_id":2}}`,
			expectedType: EventInitiated,
			expectedID:   5,
		},
		{
			name:         "raw session",
			event:        "call-answered",
			data:         `{"id":6,"status":"active","version":3}`,
			expectedType: EventAnswered,
			expectedID:   6,
		},
		{
			name:         "json string payload with dotted name",
			event:        ".call-ended",
			data:         `"{\"call\":{\"id\":7,\"status\":\"ended\"}}"`,
			expectedType: EventEnded,
			expectedID:   7,
		},
		{
			name:          "unknown event",
			event:         "message-sent",
			data:          `{"id":1}`,
			expectedError: ErrUnknownEvent,
		},
		{
			name:          "missing id",
			event:         "call-rejected",
			data:          `{"call":{"status":"rejected"}}`,
			expectedError: ErrInvalidEvent,
		},
		{
			name:          "malformed payload",
			event:         "call-rejected",
			data:          `{"call":`,
			expectedError: ErrInvalidEvent,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ev, err := ParseEvent(tc.event, []byte(tc.data))
			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expectedType, ev.Type)
			assert.Equal(t, tc.expectedID, ev.Session.ID)
		})
	}
}

func TestParseEvent_KeepsRevision(t *testing.T) {
	ev, err := ParseEvent("call-answered", []byte(`{"call":{"id":6,"status":"active","version":3,"jwt_token":"x"}}`))
	require.NoError(t, err)

	assert.Equal(t, int64(3), ev.Session.Revision)
	assert.Equal(t, StatusActive, ev.Session.Status)
	assert.Equal(t, "x", ev.Session.JWTCredential)
}

func TestIsCallEvent(t *testing.T) {
	assert.True(t, IsCallEvent("call-ended"))
	assert.True(t, IsCallEvent(".call-initiated"))
	assert.False(t, IsCallEvent("pusher:ping"))
}

func TestSessionOlderThan(t *testing.T) {
	early := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	late := early.Add(time.Second)

	testCases := []struct {
		name     string
		a, b     *Session
		expected bool
	}{
		{name: "lower revision", a: &Session{Revision: 1}, b: &Session{Revision: 2}, expected: true},
		{name: "same revision", a: &Session{Revision: 2}, b: &Session{Revision: 2}},
		{
			name:     "revision beats timestamp",
			a:        &Session{Revision: 3, UpdatedAt: &early},
			b:        &Session{Revision: 2, UpdatedAt: &late},
			expected: false,
		},
		{name: "older timestamp", a: &Session{UpdatedAt: &early}, b: &Session{UpdatedAt: &late}, expected: true},
		{name: "no stamps", a: &Session{}, b: &Session{}},
		{name: "nil other", a: &Session{Revision: 1}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.a.OlderThan(tc.b))
		})
	}
}

func TestSessionClone(t *testing.T) {
	started := time.Now()
	d := 4
	s := &Session{ID: 1, ParticipantIDs: []int64{1, 2}, StartedAt: &started, DurationSeconds: &d}

	c := s.Clone()
	c.ParticipantIDs[0] = 9
	*c.DurationSeconds = 10

	assert.Equal(t, int64(1), s.ParticipantIDs[0])
	assert.Equal(t, 4, *s.DurationSeconds)
	assert.True(t, s.Involves(2))
	assert.Nil(t, (*Session)(nil).Clone())
}

func TestParseCredential(t *testing.T) {
	expires := time.Now().Add(time.Hour).Truncate(time.Second)

	flat, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"room": "support-42",
		"sub":  "user-10",
		"iss":  "media",
		"exp":  expires.Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	grant, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"video": map[string]any{"room": "sales-7"},
		"sub":   "user-20",
	}).SignedString([]byte("other-secret"))
	require.NoError(t, err)

	cred, err := ParseCredential(flat)
	require.NoError(t, err)
	assert.Equal(t, "support-42", cred.Room)
	assert.Equal(t, "user-10", cred.Identity)
	assert.Equal(t, "media", cred.Issuer)
	assert.True(t, cred.ExpiresAt.Equal(expires))
	assert.False(t, cred.Expired(time.Now()))
	assert.True(t, cred.Expired(expires.Add(time.Second)))

	cred, err = ParseCredential(grant)
	require.NoError(t, err)
	assert.Equal(t, "sales-7", cred.Room)
	assert.False(t, cred.Expired(time.Now()))

	_, err = ParseCredential("")
	require.ErrorIs(t, err, ErrInvalidCredential)

	_, err = ParseCredential("not.a.token")
	require.ErrorIs(t, err, ErrInvalidCredential)
}

func TestRecentIDs(t *testing.T) {
	r := newRecentIDs(2)

	r.add(1)
	r.add(2)
	r.add(2)
	assert.True(t, r.has(1))

	r.add(3)
	assert.False(t, r.has(1))
	assert.True(t, r.has(2))
	assert.True(t, r.has(3))

	r.remove(3)
	assert.False(t, r.has(3))
}
