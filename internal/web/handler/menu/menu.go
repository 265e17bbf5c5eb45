// Package menu serves the navigation menu visible to the current actor.
package menu

import (
	"github.com/gofiber/fiber/v2"

	"github.com/crm-portal/portal-agent/internal/auth"
	"github.com/crm-portal/portal-agent/internal/config"
	"github.com/crm-portal/portal-agent/internal/web/handler"
	"github.com/crm-portal/portal-agent/internal/web/navigation"
)

// Path is the path of the menu endpoint.
const Path = handler.APIPath + "/menu"

// Response is the filtered menu plus the navigation context of ?path=.
type Response struct {
	Menu       []navigation.MenuItem `json:"menu"`
	Navigation *navigation.Context   `json:"navigation"`
	Pending    bool                  `json:"pending"`
	Count      int                   `json:"count"`
}

// Service is the menu handler service.
type Service struct {
	handler.Service
	engine *auth.Engine
	tree   func(auth.ProfileType) []navigation.MenuItem
}

// Handler is the menu handler.
var Handler = Service{} //nolint:gochecknoglobals

// Init registers the menu route.
func (s *Service) Init(router fiber.Router, cfg *config.Config, deps *handler.Deps) error {
	if router == nil || cfg == nil || deps == nil || deps.Engine == nil {
		return handler.ErrNilDeps
	}

	s.engine = deps.Engine
	if s.tree == nil {
		s.tree = navigation.DefaultTree
	}

	router.Get(Path, s.Get)

	return nil
}

// Get returns the menu of the current actor. While an employee's permissions
// are pending the menu is empty.
func (s *Service) Get(c *fiber.Ctx) error {
	snap := auth.SnapshotFromLocals(c, s.engine)

	var visible []navigation.MenuItem

	if snap.Actor != nil {
		visible = navigation.VisibleMenuFor(snap, s.tree(snap.Actor.ProfileType))
	} else {
		visible = make([]navigation.MenuItem, 0)
	}

	return c.JSON(Response{
		Menu:       visible,
		Navigation: navigation.NewContext(visible, c.Query("path")),
		Pending:    snap.PermissionsPending(),
		Count:      navigation.CountItems(visible),
	})
}
