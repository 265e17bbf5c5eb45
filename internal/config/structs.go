package config

import (
	"github.com/crm-portal/portal-agent/internal/logger"
)

// Config overall data structure.
type Config struct {
	DevMode bool // enable dev mode for development
	Title   string
	DB      DB
	Log     logger.Log
	API     API
	Push    Push
	Calls   Calls
	Bridge  Bridge
	Profile Profile
}

// DB holds the local store settings.
type DB struct {
	Path          string // sqlite file, ":memory:" keeps history in memory only
	HistoryLimit  int    // max call records returned by one history query
	RetentionDays int    // call records older than this are purged at start, 0 keeps all
	KeepRecords   int    // newest call records kept at start, 0 keeps all
}

// API holds the portal backend REST settings.
type API struct {
	BaseURL    string // e.g. https://portal.example.com/api
	Token      string // static bearer token, used when TokenURL is empty
	TokenURL   string // oauth2 client credentials endpoint
	ClientID   string
	Secret     string
	Scopes     []string
	Timeout    int // request timeout in seconds
	RetryCount int
	UserAgent  string
	Debug      bool // log every request/response through the resty logger
}

// Push holds the websocket push transport settings.
type Push struct {
	Enabled           bool
	URL               string // ws(s)://host:port/app/{key}
	AuthPath          string // channel authorization endpoint relative to API.BaseURL
	ActivityTimeout   int    // seconds of silence before a ping is sent
	PongTimeout       int    // seconds to wait for a pong before reconnecting
	ReconnectInterval int    // minimum seconds between reconnect attempts
	ReconnectBurst    int
}

// Calls holds the call session controller timings.
type Calls struct {
	DisplayWindow     int // milliseconds rejected/cancelled/failed calls stay visible
	HeartbeatInterval int // seconds between presence pings
	ActionTimeout     int // seconds a background call action may take
	RecentlyFinished  int // finished call ids remembered to drop late events
}

// Bridge implements the local JSON bridge settings.
type Bridge struct {
	Address        string // listening address, empty means all interfaces
	Port           int    // listening port
	URL            string // base url the UI uses to reach the bridge
	Token          string // bearer token required by the UI, generated when empty
	ShutDownTime   int    // wait time for shutdown in seconds
	CleanPath      bool   // use clean path middleware to allow multi slash requests
	DisableRecover bool   // disable recover middleware
}

// Profile is a static actor, used when the backend profile endpoint is not available.
type Profile struct {
	Static         bool
	ID             int64
	Name           string
	Type           string // vendor-owner, employee, customer
	OrganizationID int64
	RoleIDs        []int64
}
