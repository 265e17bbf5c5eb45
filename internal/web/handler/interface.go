package handler

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/crm-portal/portal-agent/internal/auth"
	"github.com/crm-portal/portal-agent/internal/call"
	"github.com/crm-portal/portal-agent/internal/config"
	"github.com/crm-portal/portal-agent/internal/push"
	"github.com/crm-portal/portal-agent/internal/roles"
)

// PushStatus reports the state of the push connection.
type PushStatus interface {
	Status() (push.Status, error)
	SocketID() string
}

// Deps are the components the bridge handlers work on.
type Deps struct {
	DB     *gorm.DB
	Engine *auth.Engine
	Calls  *call.Controller
	Roles  *roles.Service
	// Push is nil when the push transport is disabled.
	Push PushStatus
}

// Service is the interface for a bridge handler service.
type Service interface {
	Init(router fiber.Router, cfg *config.Config, deps *Deps) error
}
