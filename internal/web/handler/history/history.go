// Package history serves the local call history.
package history

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/crm-portal/portal-agent/internal/auth"
	"github.com/crm-portal/portal-agent/internal/config"
	historydb "github.com/crm-portal/portal-agent/internal/db/controller/history"
	"github.com/crm-portal/portal-agent/internal/db/models"
	"github.com/crm-portal/portal-agent/internal/web/handler"
)

const (
	// Path is the root of the history routes.
	Path = handler.APIPath + "/history"

	maxLimit = 500
)

// Service is the history handler service.
type Service struct {
	handler.Service
	db    *gorm.DB
	limit int
}

// Handler is the history handler.
var Handler = Service{} //nolint:gochecknoglobals

// Init registers the history routes.
func (s *Service) Init(router fiber.Router, cfg *config.Config, deps *handler.Deps) error {
	if router == nil || cfg == nil || deps == nil || deps.DB == nil || deps.Engine == nil {
		return handler.ErrNilDeps
	}

	s.db = deps.DB
	s.limit = cfg.DB.HistoryLimit

	read := auth.RequirePermission(deps.Engine, auth.ResourceCalls, auth.ActionRead)

	router.Get(Path, read, s.List)
	router.Get(Path+"/:id", read, s.Get)
	router.Delete(Path+"/:id",
		auth.RequirePermission(deps.Engine, auth.ResourceCalls, auth.ActionDelete),
		s.Delete,
	)

	return nil
}

// List returns the newest records, ?limit= caps the result, ?peer_id= filters by peer.
func (s *Service) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", s.limit)
	if limit <= 0 || limit > maxLimit {
		limit = maxLimit
	}

	var (
		records []models.CallRecord
		err     error
	)

	if peer := c.QueryInt("peer_id"); peer > 0 {
		records, err = historydb.ListWithPeer(s.db, int64(peer), limit)
	} else {
		records, err = historydb.List(s.db, limit)
	}

	if err != nil {
		return handler.Error(c, err)
	}

	if records == nil {
		records = []models.CallRecord{}
	}

	return c.JSON(fiber.Map{"records": records})
}

// Get returns one record.
func (s *Service) Get(c *fiber.Ctx) error {
	id, ok, err := handler.ParamID(c, "id")
	if !ok {
		return err
	}

	rec, err := historydb.Get(s.db, id)
	if err != nil {
		return notFound(c, err)
	}

	return c.JSON(rec)
}

// Delete removes one record.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, ok, err := handler.ParamID(c, "id")
	if !ok {
		return err
	}

	if err = historydb.Delete(s.db, id); err != nil {
		return notFound(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func notFound(c *fiber.Ctx, err error) error {
	if errors.Is(err, historydb.ErrCallRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(handler.ErrorResponse{Error: err.Error()})
	}

	return handler.Error(c, err)
}
