// Package auth provides the token middleware of the local bridge.
//
// The bridge listens on localhost for the UI process. Every request except the
// public probe paths has to carry the configured token:
//
//	Authorization: Bearer <Bridge.Token>
//
// Usage:
//
//	app.Use(authmiddleware.New(authmiddleware.Config{
//		Token:  cfg.Bridge.Token,
//		Public: []string{"/checkalive"},
//	}))
package auth
