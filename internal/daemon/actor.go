package daemon

import (
	"context"

	"github.com/pkg/errors"

	"github.com/crm-portal/portal-agent/internal/auth"
	"github.com/crm-portal/portal-agent/internal/config"
)

// ProfileSource returns the authenticated actor from the backend.
type ProfileSource interface {
	Me(ctx context.Context) (*auth.Actor, error)
}

// ResolveActor returns the static profile when one is configured and asks the
// backend otherwise.
func ResolveActor(ctx context.Context, cfg config.Profile, src ProfileSource) (*auth.Actor, error) {
	if cfg.Static {
		pt, err := auth.ParseProfileType(cfg.Type)
		if err != nil {
			return nil, errors.Wrap(err, "static profile")
		}

		return &auth.Actor{
			ID:             cfg.ID,
			Name:           cfg.Name,
			ProfileType:    pt,
			OrganizationID: cfg.OrganizationID,
			RoleIDs:        append([]int64(nil), cfg.RoleIDs...),
		}, nil
	}

	if src == nil {
		return nil, ErrNoProfileSource
	}

	actor, err := src.Me(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load profile")
	}

	return actor, nil
}
