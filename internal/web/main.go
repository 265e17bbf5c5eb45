// Package web is the local JSON bridge the UI process talks to.
package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/crm-portal/portal-agent/internal/auth"
	"github.com/crm-portal/portal-agent/internal/config"
	fiberlog "github.com/crm-portal/portal-agent/internal/logger/adapter/fiber"
	"github.com/crm-portal/portal-agent/internal/web/handler"
	"github.com/crm-portal/portal-agent/internal/web/handler/calls"
	"github.com/crm-portal/portal-agent/internal/web/handler/history"
	"github.com/crm-portal/portal-agent/internal/web/handler/menu"
	"github.com/crm-portal/portal-agent/internal/web/handler/profile"
	"github.com/crm-portal/portal-agent/internal/web/handler/roles"
	authmiddleware "github.com/crm-portal/portal-agent/internal/web/middleware/auth"
)

// Service represents the bridge service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
	token        string
}

// Start starts the bridge on the configured address and blocks until it stopped.
func (s *Service) Start() error {
	addr := net.JoinHostPort(s.cfg.Bridge.Address, strconv.Itoa(s.cfg.Bridge.Port))

	log.Info().Str("addr", addr).Msg("bridge listening")

	if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err //nolint:wrapcheck
	}

	return nil
}

// Token returns the bearer token the UI has to present.
func (s *Service) Token() string {
	return s.token
}

// WaitShutdown waits for SIGINT or SIGTERM or for ctx to be done and then
// stops the bridge.
func (s *Service) WaitShutdown(ctx context.Context) {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(irqSig)

	select {
	case sig := <-irqSig:
		log.Info().Msgf("shutdown request (signal: %v)", sig)
	case <-ctx.Done():
		log.Info().Msg("shutdown request (context done)")
	}

	s.Shutdown()
}

// Shutdown answers 503 on /checkalive for ShutDownTime seconds and then stops
// the http server.
func (s *Service) Shutdown() {
	if !s.fastShutDown && s.cfg.Bridge.ShutDownTime > 0 {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let the UI notice",
			s.cfg.Bridge.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Bridge.ShutDownTime) * time.Second)
	}

	log.Info().Msg("stopping http server ...")

	if err := s.App.Shutdown(); err != nil {
		log.Error().Err(err).Msg("")
	}

	log.Info().Msg("http server was stopped ... good bye...")
}

// New creates the bridge with all handlers registered.
func New(cfg *config.Config, deps *handler.Deps) (*Service, error) {
	if cfg == nil || deps == nil || deps.Engine == nil {
		return nil, handler.ErrNilDeps
	}

	app := fiber.New(
		fiber.Config{
			ReadBufferSize:        8192,
			AppName:               cfg.Title,
			CaseSensitive:         true,
			Prefork:               false,
			Immutable:             true,
			DisableStartupMessage: true,
		},
	)

	service := &Service{
		cfg:          cfg,
		App:          app,
		fastShutDown: cfg.DevMode,
		token:        cfg.Bridge.Token,
	}
	service.alive.Store(true)

	if service.token == "" {
		service.token = uuid.NewString()
		log.Warn().Msg("no bridge token configured, generated one for this run")
	}

	if !cfg.Bridge.DisableRecover {
		app.Use(recover.New(recover.Config{EnableStackTrace: cfg.DevMode}))
	}

	if cfg.Bridge.CleanPath {
		app.Use(cleanPath)
	}

	app.Use(fiberlog.New(fiberlog.Config{
		Config:        cfg.Log,
		CheckAliveURI: handler.CheckAlivePath,
	}))

	app.Get(handler.CheckAlivePath, service.checkAlive)
	app.Get(handler.MetricsPath, adaptor.HTTPHandler(promhttp.Handler()))

	app.Use(authmiddleware.New(authmiddleware.Config{
		Token:  service.token,
		Public: []string{handler.CheckAlivePath, handler.MetricsPath},
	}))
	app.Use(auth.AddPermissionsToLocals(deps.Engine))

	handlers := []handler.Service{
		&profile.Handler,
		&menu.Handler,
		&calls.Handler,
	}

	if deps.DB != nil {
		handlers = append(handlers, &history.Handler)
	}

	if deps.Roles != nil {
		handlers = append(handlers, &roles.Handler)
	}

	for _, h := range handlers {
		if err := h.Init(app, cfg, deps); err != nil {
			return nil, err //nolint:wrapcheck
		}
	}

	return service, nil
}

func (s *Service) checkAlive(c *fiber.Ctx) error {
	if !s.alive.Load() {
		return c.SendStatus(fiber.StatusServiceUnavailable)
	}

	return c.SendString("OK")
}

// cleanPath collapses duplicate slashes and dot segments.
func cleanPath(c *fiber.Ctx) error {
	p := c.Path()
	if strings.Contains(p, "//") || strings.Contains(p, "/.") {
		c.Path(path.Clean("/" + p))
	}

	return c.Next()
}
