package call

import (
	"slices"
	"time"
)

// Type is the media type of a call.
type Type string

const (
	TypeAudio Type = "audio"
	TypeVideo Type = "video"
)

// Valid reports whether t is a supported call type.
func (t Type) Valid() bool {
	return t == TypeAudio || t == TypeVideo
}

// Status is the server side status of a call.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRinging   Status = "ringing"
	StatusActive    Status = "active"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
	StatusMissed    Status = "missed"
	StatusEnded     Status = "ended"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transition of the call is possible.
func (s Status) Terminal() bool {
	switch s {
	case StatusRejected, StatusCancelled, StatusMissed, StatusEnded, StatusFailed:
		return true
	default:
		return false
	}
}

// Session is the client copy of one call. It is replaced wholesale on every
// authoritative update and only patched by local optimistic actions.
type Session struct {
	ID              int64      `json:"id"`
	RoomName        string     `json:"room_name"`
	CallType        Type       `json:"call_type"`
	Status          Status     `json:"status"`
	InitiatorID     int64      `json:"initiator_id"`
	RecipientID     int64      `json:"recipient_id"`
	ParticipantIDs  []int64    `json:"participant_ids,omitempty"`
	JWTCredential   string     `json:"jwt_token,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	DurationSeconds *int       `json:"duration_seconds,omitempty"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
	// Revision is a monotonic version maintained by the backend. Zero means unknown.
	Revision int64 `json:"version,omitempty"`
}

// Clone returns a deep copy. Cloning nil returns nil.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}

	out := *s
	out.ParticipantIDs = slices.Clone(s.ParticipantIDs)
	out.StartedAt = cloneTime(s.StartedAt)
	out.EndedAt = cloneTime(s.EndedAt)
	out.UpdatedAt = cloneTime(s.UpdatedAt)

	if s.DurationSeconds != nil {
		d := *s.DurationSeconds
		out.DurationSeconds = &d
	}

	return &out
}

// OlderThan reports whether s is a stale copy compared to other. Revisions win
// over timestamps; without comparable stamps nothing is considered stale.
func (s *Session) OlderThan(other *Session) bool {
	if s == nil || other == nil {
		return false
	}

	if s.Revision > 0 && other.Revision > 0 {
		return s.Revision < other.Revision
	}

	if s.UpdatedAt != nil && other.UpdatedAt != nil {
		return s.UpdatedAt.Before(*other.UpdatedAt)
	}

	return false
}

// Involves reports whether userID is a party of the call.
func (s *Session) Involves(userID int64) bool {
	return s.InitiatorID == userID || s.RecipientID == userID || slices.Contains(s.ParticipantIDs, userID)
}

// finish stamps local end data on s.
func (s *Session) finish(status Status, now time.Time) {
	s.Status = status
	s.EndedAt = &now

	if s.StartedAt != nil {
		d := int(now.Sub(*s.StartedAt).Seconds())
		s.DurationSeconds = &d
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	v := *t

	return &v
}
