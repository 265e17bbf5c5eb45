// Package config handles input from etc/*.toml files
package config

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// EnvConfigJSON names the environment variable holding a JSON config override.
const EnvConfigJSON = "PORTAL_AGENT_CONFIG_JSON"

const (
	defaultShutDownTime      = 5
	defaultAPITimeout        = 10
	defaultRetryCount        = 2
	defaultAuthPath          = "/broadcasting/auth"
	defaultActivityTimeout   = 120
	defaultPongTimeout       = 30
	defaultReconnectInterval = 2
	defaultReconnectBurst    = 3
	defaultDisplayWindow     = 3000
	defaultHeartbeat         = 30
	defaultActionTimeout     = 10
	defaultRecentlyFinished  = 32
	defaultHistoryLimit      = 100
	defaultDBPath            = "./var/portal-agent.db"
)

// ReadConfig from config file.
func ReadConfig(path string) (Config, error) {
	var (
		c             Config
		JSONConfigEnv string
		err           error
	)

	// Read main configuration
	if path == "" {
		path = "./etc/"
	}

	// zero is a valid retry count, so its default is seeded before decoding
	c.API.RetryCount = defaultRetryCount

	if _, err = toml.DecodeFile(path+"main.toml", &c); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	// override it from env
	JSONConfigEnv = os.Getenv(EnvConfigJSON)

	if JSONConfigEnv != "" {
		c, err = decodeAndMergeConfig(c, JSONConfigEnv)
		if err != nil {
			return c, err
		}
	}

	return c, validate(&c)
}

func decodeAndMergeConfig(c Config, configAsJSON string) (Config, error) {
	err := json.Unmarshal([]byte(configAsJSON), &c)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to read json config override")
	}

	return c, nil
}

// DumpConfig config as TOML String.
func DumpConfig(c *Config) (string, error) {
	var buffer bytes.Buffer
	t := toml.NewEncoder(&buffer)

	if err := t.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// DumpConfigJSON config as JSON String.
func DumpConfigJSON(c *Config) (string, error) {
	var buffer bytes.Buffer
	j := json.NewEncoder(&buffer)
	j.SetIndent("", "  ")

	if err := j.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// validate the settings the agent can not run without and fill in defaults.
func validate(c *Config) error {
	invalidErrMessage := "invalid config"

	if c.Bridge.Port == 0 {
		return errors.Wrap(ErrBridgePortCanNotBeZero, invalidErrMessage)
	}

	if c.Bridge.URL == "" {
		return errors.Wrap(ErrEmptyBridgeURL, invalidErrMessage)
	}

	if c.API.BaseURL == "" {
		return errors.Wrap(ErrEmptyAPIBaseURL, invalidErrMessage)
	}

	if c.Push.Enabled && c.Push.URL == "" {
		return errors.Wrap(ErrEmptyPushURL, invalidErrMessage)
	}

	if c.Profile.Static && (c.Profile.ID <= 0 || c.Profile.Type == "") {
		return errors.Wrap(ErrStaticProfileIncomplete, invalidErrMessage)
	}

	setDefaults(c)

	return nil
}

func setDefaults(c *Config) {
	defaultInt(&c.Bridge.ShutDownTime, defaultShutDownTime)
	defaultInt(&c.API.Timeout, defaultAPITimeout)
	defaultInt(&c.Push.ActivityTimeout, defaultActivityTimeout)
	defaultInt(&c.Push.PongTimeout, defaultPongTimeout)
	defaultInt(&c.Push.ReconnectInterval, defaultReconnectInterval)
	defaultInt(&c.Push.ReconnectBurst, defaultReconnectBurst)
	defaultInt(&c.Calls.DisplayWindow, defaultDisplayWindow)
	defaultInt(&c.Calls.HeartbeatInterval, defaultHeartbeat)
	defaultInt(&c.Calls.ActionTimeout, defaultActionTimeout)
	defaultInt(&c.Calls.RecentlyFinished, defaultRecentlyFinished)
	defaultInt(&c.DB.HistoryLimit, defaultHistoryLimit)

	if c.API.RetryCount < 0 {
		c.API.RetryCount = 0
	}

	if c.Push.AuthPath == "" {
		c.Push.AuthPath = defaultAuthPath
	}

	if c.DB.Path == "" {
		c.DB.Path = defaultDBPath
	}

	if c.API.UserAgent == "" {
		c.API.UserAgent = "portal-agent"
	}
}

func defaultInt(v *int, def int) {
	if *v <= 0 {
		*v = def
	}
}
