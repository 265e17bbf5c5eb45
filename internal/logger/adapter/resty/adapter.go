// Package resty routes the resty client logger into zerolog.
package resty

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Adapter implements the resty.Logger interface.
type Adapter struct {
	logger zerolog.Logger
}

// New returns an adapter writing to the global logger with component "api".
func New() *Adapter {
	return NewWithLogger(log.With().Str("component", "api").Logger())
}

// NewWithLogger returns an adapter writing to l.
func NewWithLogger(l zerolog.Logger) *Adapter {
	return &Adapter{logger: l}
}

// Errorf logs at error level.
func (a *Adapter) Errorf(format string, v ...interface{}) {
	a.logger.Error().Msg(message(format, v...))
}

// Warnf logs at warn level.
func (a *Adapter) Warnf(format string, v ...interface{}) {
	a.logger.Warn().Msg(message(format, v...))
}

// Debugf logs at debug level. Resty uses it for the request/response dumps.
func (a *Adapter) Debugf(format string, v ...interface{}) {
	a.logger.Debug().Msg(message(format, v...))
}

func message(format string, v ...interface{}) string {
	return strings.TrimSpace(fmt.Sprintf(format, v...))
}
