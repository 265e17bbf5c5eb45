package push

import (
	"encoding/json"
	"strconv"
)

// Pusher protocol event names.
const (
	eventConnectionEstablished = "pusher:connection_established"
	eventError                 = "pusher:error"
	eventPing                  = "pusher:ping"
	eventPong                  = "pusher:pong"
	eventSubscribe             = "pusher:subscribe"
	eventSubscriptionSucceeded = "pusher_internal:subscription_succeeded"
	eventSubscriptionError     = "pusher:subscription_error"

	protocolVersion = "7"
)

// message is one frame of the Pusher protocol. Data is either a JSON string
// holding encoded JSON or a JSON value.
type message struct {
	Event   string          `json:"event"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type connectionEstablished struct {
	SocketID        string `json:"socket_id"`
	ActivityTimeout int    `json:"activity_timeout"`
}

type subscribeData struct {
	Channel     string `json:"channel"`
	Auth        string `json:"auth"`
	ChannelData string `json:"channel_data,omitempty"`
}

type errorData struct {
	Message string `json:"message"`
	Code    *int   `json:"code"`
}

// decodeData unmarshals a data field that may be string encoded.
func decodeData(raw json.RawMessage, out any) error {
	if len(raw) > 0 && raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return err //nolint:wrapcheck
		}

		raw = json.RawMessage(inner)
	}

	return json.Unmarshal(raw, out) //nolint:wrapcheck
}

// UserChannel is the private channel of a user.
func UserChannel(userID int64) string {
	return "private-user." + strconv.FormatInt(userID, 10)
}

// errorAction tells what to do after a pusher:error or close code.
type errorAction int

const (
	actionReconnect errorAction = iota
	actionReconnectLater
	actionStop
)

// classify follows the protocol code ranges: 4000-4099 must not reconnect,
// 4100-4199 reconnect after backing off, 4200-4299 reconnect at once.
func classify(code int) errorAction {
	switch {
	case code >= 4000 && code < 4100:
		return actionStop
	case code >= 4100 && code < 4200:
		return actionReconnectLater
	default:
		return actionReconnect
	}
}
