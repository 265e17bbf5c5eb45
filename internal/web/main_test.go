package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/crm-portal/portal-agent/internal/api"
	"github.com/crm-portal/portal-agent/internal/auth"
	"github.com/crm-portal/portal-agent/internal/call"
	"github.com/crm-portal/portal-agent/internal/config"
	"github.com/crm-portal/portal-agent/internal/db/models"
	"github.com/crm-portal/portal-agent/internal/push"
	"github.com/crm-portal/portal-agent/internal/roles"
	"github.com/crm-portal/portal-agent/internal/web/handler"
)

const testToken = "bridge-token"

var catalog = []auth.Role{ //nolint:gochecknoglobals
	{ID: 1, Name: "Administrator", IsSystemRole: true},
	{
		ID:   2,
		Name: "Sales",
		Permissions: []auth.Permission{
			{ID: 1, Resource: auth.ResourceCustomers, Action: auth.ActionRead},
			{ID: 2, Resource: auth.ResourceCalls, Action: auth.ActionRead},
			{ID: 3, Resource: auth.ResourceCalls, Action: auth.ActionCreate},
		},
	},
}

type fakeRoles struct{}

func (fakeRoles) ListRoles(context.Context) ([]auth.Role, error) {
	return append([]auth.Role(nil), catalog...), nil
}

func (fakeRoles) CreateRole(_ context.Context, in api.RoleInput) (*auth.Role, error) {
	return &auth.Role{ID: 3, Name: in.Name}, nil
}

func (fakeRoles) UpdateRole(_ context.Context, id int64, in api.RoleInput) (*auth.Role, error) {
	return &auth.Role{ID: id, Name: in.Name}, nil
}

func (fakeRoles) DeleteRole(context.Context, int64) error { return nil }

func (fakeRoles) PermissionsByResource(context.Context) (map[string][]auth.Permission, error) {
	return map[string][]auth.Permission{
		auth.ResourceCalls: {{ID: 3, Action: auth.ActionCreate}, {ID: 2, Action: auth.ActionRead}},
	}, nil
}

func (fakeRoles) AssignPermissions(_ context.Context, roleID int64, ids []int64) (*auth.Role, error) {
	perms := make([]auth.Permission, 0, len(ids))
	for _, id := range ids {
		perms = append(perms, auth.Permission{ID: id})
	}

	return &auth.Role{ID: roleID, Name: "Sales", Permissions: perms}, nil
}

type fakeCalls struct{}

func (fakeCalls) InitiateCall(_ context.Context, recipientID int64, callType call.Type) (*call.Session, error) {
	return &call.Session{
		ID: 50, RoomName: "room-50", CallType: callType, Status: call.StatusPending,
		InitiatorID: 10, RecipientID: recipientID,
	}, nil
}

func (fakeCalls) AnswerCall(context.Context, int64) (*call.Session, error) { return nil, nil }

func (fakeCalls) RejectCall(context.Context, int64) (*call.Session, error) { return nil, nil }

func (fakeCalls) EndCall(_ context.Context, id int64) (*call.Session, error) {
	return &call.Session{ID: id, Status: call.StatusEnded}, nil
}

func (fakeCalls) ActiveCall(context.Context) (*call.Session, error) { return nil, nil }

func (fakeCalls) Heartbeat(context.Context) error { return nil }

type fakePush struct{}

func (fakePush) Status() (push.Status, error) { return push.StatusSubscribed, nil }

func (fakePush) SocketID() string { return "1.2" }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.CallRecord{}))

	return db
}

func newTestConfig() *config.Config {
	return &config.Config{
		Title:  "portal-agent test",
		DB:     config.DB{HistoryLimit: 10},
		Bridge: config.Bridge{Token: testToken, CleanPath: true},
	}
}

type fixture struct {
	service *Service
	engine  *auth.Engine
	calls   *call.Controller
	db      *gorm.DB
}

func newFixture(t *testing.T, actor *auth.Actor) *fixture {
	t.Helper()

	engine := auth.NewEngine(fakeRoles{})
	require.NoError(t, engine.SetActor(context.Background(), actor))

	controller := call.NewController(fakeCalls{}, engine, call.Options{
		DisplayWindow:     time.Second,
		HeartbeatInterval: time.Hour,
	})
	t.Cleanup(controller.Close)

	roleService, err := roles.New(fakeRoles{}, engine)
	require.NoError(t, err)

	db := newTestDB(t)

	service, err := New(newTestConfig(), &handler.Deps{
		DB:     db,
		Engine: engine,
		Calls:  controller,
		Roles:  roleService,
		Push:   fakePush{},
	})
	require.NoError(t, err)

	return &fixture{service: service, engine: engine, calls: controller, db: db}
}

func (f *fixture) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+testToken)

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.service.App.Test(req, -1)
	require.NoError(t, err)

	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}

	return resp.StatusCode, out
}

func owner() *auth.Actor {
	return &auth.Actor{ID: 10, Name: "Olivia", ProfileType: auth.ProfileVendorOwner, OrganizationID: 1}
}

func employee() *auth.Actor {
	return &auth.Actor{ID: 10, Name: "Eli", ProfileType: auth.ProfileEmployee, OrganizationID: 1, RoleIDs: []int64{2}}
}

func TestNew_NilArguments(t *testing.T) {
	_, err := New(nil, &handler.Deps{})
	require.ErrorIs(t, err, handler.ErrNilDeps)

	_, err = New(newTestConfig(), &handler.Deps{})
	require.ErrorIs(t, err, handler.ErrNilDeps)
}

func TestNew_GeneratesToken(t *testing.T) {
	engine := auth.NewEngine(fakeRoles{})
	controller := call.NewController(fakeCalls{}, engine, call.Options{})
	t.Cleanup(controller.Close)

	cfg := newTestConfig()
	cfg.Bridge.Token = ""

	service, err := New(cfg, &handler.Deps{Engine: engine, Calls: controller})
	require.NoError(t, err)
	assert.Len(t, service.Token(), 36)
}

func TestPublicEndpoints(t *testing.T) {
	f := newFixture(t, owner())

	for _, path := range []string{"/checkalive", "/metrics"} {
		resp, err := f.service.App.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	resp, err := f.service.App.Test(httptest.NewRequest(http.MethodGet, "/api/profile", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	f.service.alive.Store(false)

	resp, err = f.service.App.Test(httptest.NewRequest(http.MethodGet, "/checkalive", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestProfile(t *testing.T) {
	f := newFixture(t, employee())

	status, body := f.do(t, http.MethodGet, "/api/profile", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ready", body["state"])
	assert.Equal(t, false, body["pending"])
	assert.ElementsMatch(t, []any{"calls.create", "calls.read", "customers.read"}, body["permissions"])

	status, body = f.do(t, http.MethodPost, "/api/profile/reload", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ready", body["state"])
}

func TestPermissionCheck(t *testing.T) {
	testCases := []struct {
		name    string
		actor   *auth.Actor
		query   string
		status  int
		granted bool
		reason  string
	}{
		{name: "owner full access", actor: owner(), query: "resource=roles&action=update", status: 200, granted: true, reason: "full-access"},
		{name: "employee role", actor: employee(), query: "resource=customers", status: 200, granted: true, reason: "role"},
		{name: "employee denied", actor: employee(), query: "resource=roles&action=update", status: 200, reason: "denied"},
		{name: "employee any", actor: employee(), query: "any=roles.update,calls.read", status: 200, granted: true, reason: "role"},
		{name: "employee all", actor: employee(), query: "all=roles.update,calls.read", status: 200, reason: "denied"},
		{name: "missing resource", actor: owner(), query: "", status: 400},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, tc.actor)

			status, body := f.do(t, http.MethodGet, "/api/permissions/check?"+tc.query, "")
			require.Equal(t, tc.status, status)

			if tc.status == http.StatusOK {
				assert.Equal(t, tc.granted, body["granted"])
				assert.Equal(t, tc.reason, body["reason"])
			}
		})
	}
}

func TestMenu(t *testing.T) {
	f := newFixture(t, employee())

	status, body := f.do(t, http.MethodGet, "/api/menu?path=/customers", "")
	require.Equal(t, http.StatusOK, status)

	items, ok := body["menu"].([]any)
	require.True(t, ok)

	labels := make([]string, 0, len(items))
	for _, item := range items {
		labels = append(labels, item.(map[string]any)["label"].(string))
	}

	assert.Equal(t, []string{"Dashboard", "Sales", "Calls"}, labels)
	assert.GreaterOrEqual(t, body["count"], float64(len(items)))

	nav, ok := body["navigation"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Customers", nav["page_title"])
	assert.Len(t, nav["breadcrumbs"], 3)

	// logged out
	require.NoError(t, f.engine.SetActor(context.Background(), nil))

	status, body = f.do(t, http.MethodGet, "/api/menu", "")
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["menu"])
	assert.InDelta(t, 0, body["count"], 0)
}

func TestCalls(t *testing.T) {
	f := newFixture(t, employee())

	status, body := f.do(t, http.MethodPost, "/api/calls", `{"recipient_id":0,"call_type":"fax"}`)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Len(t, body["errors"], 2)

	status, _ = f.do(t, http.MethodPost, "/api/calls", `{"recipient_id":`)
	require.Equal(t, http.StatusBadRequest, status)

	status, body = f.do(t, http.MethodPost, "/api/calls", `{"recipient_id":20,"call_type":"video"}`)
	require.Equal(t, http.StatusCreated, status)
	assert.InDelta(t, 50, body["id"], 0)

	status, body = f.do(t, http.MethodGet, "/api/calls/state", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "pending", body["phase"])
	assert.Equal(t, "outgoing", body["direction"])
	assert.Equal(t, "subscribed", body["push"])
	assert.Equal(t, "1.2", body["push_socket_id"])

	status, body = f.do(t, http.MethodPost, "/api/calls", `{"recipient_id":21,"call_type":"audio"}`)
	require.Equal(t, http.StatusConflict, status)
	assert.NotEmpty(t, body["error"])

	status, _ = f.do(t, http.MethodPost, "/api/calls/answer", "")
	require.Equal(t, http.StatusConflict, status)

	status, _ = f.do(t, http.MethodGet, "/api/calls/credential", "")
	require.Equal(t, http.StatusNotFound, status)

	status, body = f.do(t, http.MethodPost, "/api/calls/end", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "none", body["phase"])

	status, _ = f.do(t, http.MethodPost, "/api/calls/end", "")
	require.Equal(t, http.StatusConflict, status)
}

func TestCalls_StartNeedsPermission(t *testing.T) {
	f := newFixture(t, &auth.Actor{ID: 10, ProfileType: auth.ProfileEmployee, RoleIDs: []int64{1}})

	status, body := f.do(t, http.MethodPost, "/api/calls", `{"recipient_id":20,"call_type":"audio"}`)
	require.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "denied", body["reason"])
}

func TestHistory(t *testing.T) {
	f := newFixture(t, owner())

	now := time.Now().UTC()
	require.NoError(t, f.db.Create(&models.CallRecord{CallID: 7, PeerID: 20, Status: "ended", FinishedAt: now}).Error)
	require.NoError(t, f.db.Create(&models.CallRecord{CallID: 8, PeerID: 30, Status: "rejected", FinishedAt: now}).Error)

	status, body := f.do(t, http.MethodGet, "/api/history", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["records"], 2)

	status, body = f.do(t, http.MethodGet, "/api/history?peer_id=30", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["records"], 1)

	status, body = f.do(t, http.MethodGet, "/api/history/7", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ended", body["status"])

	status, _ = f.do(t, http.MethodGet, "/api/history/abc", "")
	require.Equal(t, http.StatusBadRequest, status)

	status, _ = f.do(t, http.MethodDelete, "/api/history/7", "")
	require.Equal(t, http.StatusNoContent, status)

	status, _ = f.do(t, http.MethodGet, "/api/history/7", "")
	require.Equal(t, http.StatusNotFound, status)
}

func TestRoles(t *testing.T) {
	f := newFixture(t, owner())

	status, body := f.do(t, http.MethodGet, "/api/roles", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["roles"], 2)

	status, body = f.do(t, http.MethodGet, "/api/permissions/by-resource", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["groups"], 1)

	status, body = f.do(t, http.MethodPut, "/api/roles/2/permissions", `{"permission_ids":[]}`)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["permissions"])

	status, body = f.do(t, http.MethodPut, "/api/roles/2/permissions", `{"permission_ids":[1,-1]}`)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "permission_ids[1]", body["field"])

	status, _ = f.do(t, http.MethodDelete, "/api/roles/1", "")
	require.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = f.do(t, http.MethodPost, "/api/roles", `{"name":"Support"}`)
	require.Equal(t, http.StatusCreated, status)
}

func TestRoles_InvalidID(t *testing.T) {
	f := newFixture(t, owner())

	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{name: "update", method: http.MethodPut, path: "/api/roles/abc", body: `{"name":"Support"}`},
		{name: "delete", method: http.MethodDelete, path: "/api/roles/abc"},
		{name: "delete zero", method: http.MethodDelete, path: "/api/roles/0"},
		{name: "assign", method: http.MethodPut, path: "/api/roles/abc/permissions", body: `{"permission_ids":[]}`},
		{name: "assign negative", method: http.MethodPut, path: "/api/roles/-2/permissions", body: `{"permission_ids":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := f.do(t, tt.method, tt.path, tt.body)
			require.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, "id", body["field"])
		})
	}
}

func TestRoles_EmployeeForbidden(t *testing.T) {
	f := newFixture(t, employee())

	status, _ := f.do(t, http.MethodGet, "/api/roles", "")
	require.Equal(t, http.StatusForbidden, status)
}
