package call

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credential is the decoded room token of a session.
type Credential struct {
	Room      string    `json:"room"`
	Identity  string    `json:"identity"`
	Issuer    string    `json:"issuer,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the credential is past its expiry at now.
// A credential without expiry never expires.
func (c *Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// credentialClaims accepts both the flat room claim and the video grant layout
// media servers use.
type credentialClaims struct {
	Room  string `json:"room,omitempty"`
	Video *struct {
		Room string `json:"room"`
	} `json:"video,omitempty"`
	jwt.RegisteredClaims
}

// ParseCredential decodes the room JWT of a session without verifying its
// signature; the signing key belongs to the media server.
func ParseCredential(token string) (*Credential, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidCredential)
	}

	claims := &credentialClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	cred := &Credential{
		Room:     claims.Room,
		Identity: claims.Subject,
		Issuer:   claims.Issuer,
	}

	if cred.Room == "" && claims.Video != nil {
		cred.Room = claims.Video.Room
	}

	if claims.ExpiresAt != nil {
		cred.ExpiresAt = claims.ExpiresAt.Time
	}

	return cred, nil
}
