package config

import (
	"errors"
)

var (
	// ErrEmptyBridgeURL error if config bridge.URL is empty.
	ErrEmptyBridgeURL = errors.New("toml config bridge.url can not be empty")

	// ErrBridgePortCanNotBeZero error if config bridge listening port is 0.
	ErrBridgePortCanNotBeZero = errors.New("toml config bridge.port listening port can not be 0")

	// ErrEmptyAPIBaseURL error if config api.baseurl is empty.
	ErrEmptyAPIBaseURL = errors.New("toml config api.baseurl can not be empty")

	// ErrEmptyPushURL error if push is enabled without url.
	ErrEmptyPushURL = errors.New("toml config push.url can not be empty when push is enabled")

	// ErrStaticProfileIncomplete error if a static profile misses its id or type.
	ErrStaticProfileIncomplete = errors.New("toml config profile needs id and type when static")
)
