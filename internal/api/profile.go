package api

import (
	"context"
	"net/http"

	"github.com/crm-portal/portal-agent/internal/auth"
)

// profile is the /auth/me payload.
type profile struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	ProfileType    string  `json:"profile_type"`
	OrganizationID int64   `json:"organization_id"`
	RoleIDs        []int64 `json:"role_ids"`
	Roles          []struct {
		ID int64 `json:"id"`
	} `json:"roles"`
}

// Me returns the authenticated actor.
func (c *Client) Me(ctx context.Context) (*auth.Actor, error) {
	var p profile

	if err := c.do(ctx, http.MethodGet, "/auth/me", "profile", nil, &p, "user"); err != nil {
		return nil, err
	}

	pt, err := auth.ParseProfileType(p.ProfileType)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	roleIDs := p.RoleIDs
	if len(roleIDs) == 0 {
		for _, r := range p.Roles {
			roleIDs = append(roleIDs, r.ID)
		}
	}

	return &auth.Actor{
		ID:             p.ID,
		Name:           p.Name,
		ProfileType:    pt,
		OrganizationID: p.OrganizationID,
		RoleIDs:        roleIDs,
	}, nil
}

// ChannelAuth is the signature allowing a socket to subscribe a private channel.
type ChannelAuth struct {
	Auth        string `json:"auth"`
	ChannelData string `json:"channel_data,omitempty"`
}

type channelAuthRequest struct {
	SocketID    string `json:"socket_id"`
	ChannelName string `json:"channel_name"`
}

// AuthorizeChannel asks the backend to sign a private channel subscription.
func (c *Client) AuthorizeChannel(ctx context.Context, path, socketID, channel string) (*ChannelAuth, error) {
	var out ChannelAuth

	body := channelAuthRequest{SocketID: socketID, ChannelName: channel}
	if err := c.do(ctx, http.MethodPost, path, "channel", body, &out); err != nil {
		return nil, err
	}

	if out.Auth == "" {
		return nil, ErrNoChannelAuth
	}

	return &out, nil
}
