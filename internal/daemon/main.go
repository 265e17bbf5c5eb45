// Package daemon wires the agent components together and runs them.
package daemon

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/crm-portal/portal-agent/internal/api"
	"github.com/crm-portal/portal-agent/internal/auth"
	"github.com/crm-portal/portal-agent/internal/call"
	"github.com/crm-portal/portal-agent/internal/config"
	"github.com/crm-portal/portal-agent/internal/db"
	"github.com/crm-portal/portal-agent/internal/push"
	"github.com/crm-portal/portal-agent/internal/roles"
	"github.com/crm-portal/portal-agent/internal/web"
	"github.com/crm-portal/portal-agent/internal/web/handler"
)

// Daemon represents the main application daemon.
type Daemon struct {
	cfg    *config.Config
	db     *gorm.DB
	client *api.Client
	engine *auth.Engine
	calls  *call.Controller
	roles  *roles.Service
	push   *push.Client
	bridge *web.Service
	record *historyWriter
}

// CallOptions converts the calls config section.
func CallOptions(cfg config.Calls) call.Options {
	return call.Options{
		DisplayWindow:     time.Duration(cfg.DisplayWindow) * time.Millisecond,
		HeartbeatInterval: time.Duration(cfg.HeartbeatInterval) * time.Second,
		ActionTimeout:     time.Duration(cfg.ActionTimeout) * time.Second,
		RecentlyFinished:  cfg.RecentlyFinished,
	}
}

// New creates a new Daemon instance with the provided configuration.
// The local store is closed again when a later component fails.
func New(cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}

	store, err := db.Open(cfg)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	d := &Daemon{
		cfg:    cfg,
		db:     store,
		client: api.New(cfg.API),
	}

	if err = d.wire(); err != nil {
		d.closeDB()
		return nil, err
	}

	return d, nil
}

func (d *Daemon) wire() error {
	var err error

	d.engine = auth.NewEngine(d.client)
	d.calls = call.NewController(d.client, d.engine, CallOptions(d.cfg.Calls))
	d.record = newHistoryWriter(d.db, d.engine, time.Now)
	d.calls.OnChange(d.record.Listener())

	if d.roles, err = roles.New(d.client, d.engine); err != nil {
		return err //nolint:wrapcheck
	}

	deps := &handler.Deps{
		DB:     d.db,
		Engine: d.engine,
		Calls:  d.calls,
		Roles:  d.roles,
	}

	if d.cfg.Push.Enabled {
		d.push = push.New(push.OptionsFromConfig(d.cfg.Push), d.client, d.calls, d.engine)
		deps.Push = d.push
	}

	if d.bridge, err = web.New(d.cfg, deps); err != nil {
		return err //nolint:wrapcheck
	}

	return nil
}

func (d *Daemon) closeDB() {
	sqlDB, err := d.db.DB()
	if err != nil {
		return
	}

	if err = sqlDB.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close local store")
	}
}

// Start logs the actor in, starts the background loops and serves the bridge
// until a shutdown signal arrives or ctx is done. The local store is closed
// when Start returns.
func (d *Daemon) Start(ctx context.Context) error {
	defer d.closeDB()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	actor, err := ResolveActor(ctx, d.cfg.Profile, d.client)
	if err != nil {
		return err
	}

	// a failed employee permission load leaves an empty menu, the UI can reload
	if err = d.engine.SetActor(ctx, actor); err != nil {
		log.Warn().Err(err).Int64("actor_id", actor.ID).Msg("permissions not loaded")
	}

	log.Info().Int64("actor_id", actor.ID).Str("profile_type", string(actor.ProfileType)).Msg("actor logged in")

	purgeHistory(d.db, d.cfg.DB.RetentionDays, d.cfg.DB.KeepRecords, time.Now())

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()
		d.record.Run(ctx)
	}()

	if err = d.calls.CheckExistingCall(ctx); err != nil {
		log.Warn().Err(err).Msg("could not check for a running call")
	}

	wg.Add(1)

	go func() {
		defer wg.Done()
		d.calls.RunHeartbeat(ctx)
	}()

	if d.push != nil {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if err := d.push.Run(ctx); err != nil {
				log.Error().Err(err).Msg("push transport stopped, call events are no longer received")
			}
		}()
	}

	if d.cfg.Bridge.Token == "" {
		// the UI launcher reads the generated token from stdout
		_, _ = fmt.Fprintf(os.Stdout, "BRIDGE_TOKEN=%s\n", d.bridge.Token())
	}

	bridgeErr := make(chan error, 1)

	go func() {
		bridgeErr <- d.bridge.Start()
	}()

	go d.bridge.WaitShutdown(ctx)

	err = <-bridgeErr

	d.calls.Close()
	cancel()
	wg.Wait()

	return err //nolint:wrapcheck
}
