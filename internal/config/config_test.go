package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func configPath(t *testing.T) string {
	t.Helper()

	// Get the project root by going up from internal/config
	projectRoot, err := filepath.Abs("../../")
	if err != nil {
		t.Fatalf("failed to get project root: %v", err)
	}

	return filepath.Join(projectRoot, "etc") + string(filepath.Separator)
}

func TestReadConfig(t *testing.T) {
	cfg, err := ReadConfig(configPath(t))
	if err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}

	if cfg.Title == "" {
		t.Error("Config.Title should not be empty")
	}

	if cfg.Bridge.Port == 0 {
		t.Error("Bridge.Port should not be 0")
	}

	if cfg.API.BaseURL == "" {
		t.Error("API.BaseURL should not be empty")
	}

	if cfg.Calls.DisplayWindow != 3000 {
		t.Errorf("Calls.DisplayWindow = %v, want 3000", cfg.Calls.DisplayWindow)
	}

	if cfg.Push.AuthPath != "/broadcasting/auth" {
		t.Errorf("Push.AuthPath = %v, want /broadcasting/auth", cfg.Push.AuthPath)
	}

	if cfg.Log.AppName == "" {
		t.Error("Log.AppName should not be empty")
	}
}

func TestReadConfigMissingFile(t *testing.T) {
	if _, err := ReadConfig(t.TempDir() + string(filepath.Separator)); err == nil {
		t.Error("ReadConfig() expected an error for a missing main.toml")
	}
}

func validConfig() Config {
	return Config{
		API: API{BaseURL: "http://localhost:8000/api"},
		Bridge: Bridge{
			Port: 8787,
			URL:  "http://127.0.0.1:8787",
		},
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:    "missing port",
			mutate:  func(c *Config) { c.Bridge.Port = 0 },
			wantErr: ErrBridgePortCanNotBeZero,
		},
		{
			name:    "missing URL",
			mutate:  func(c *Config) { c.Bridge.URL = "" },
			wantErr: ErrEmptyBridgeURL,
		},
		{
			name:    "missing api base url",
			mutate:  func(c *Config) { c.API.BaseURL = "" },
			wantErr: ErrEmptyAPIBaseURL,
		},
		{
			name:    "push without url",
			mutate:  func(c *Config) { c.Push.Enabled = true },
			wantErr: ErrEmptyPushURL,
		},
		{
			name: "incomplete static profile",
			mutate: func(c *Config) {
				c.Profile.Static = true
				c.Profile.ID = 4
			},
			wantErr: ErrStaticProfileIncomplete,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := validate(&cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := validConfig()

	if err := validate(&cfg); err != nil {
		t.Fatalf("validate() error = %v", err)
	}

	if cfg.Bridge.ShutDownTime != defaultShutDownTime {
		t.Errorf("Bridge.ShutDownTime = %v, want %v", cfg.Bridge.ShutDownTime, defaultShutDownTime)
	}

	if cfg.Calls.HeartbeatInterval != defaultHeartbeat {
		t.Errorf("Calls.HeartbeatInterval = %v, want %v", cfg.Calls.HeartbeatInterval, defaultHeartbeat)
	}

	if cfg.DB.Path != defaultDBPath {
		t.Errorf("DB.Path = %v, want %v", cfg.DB.Path, defaultDBPath)
	}
}

func TestReadConfigWithJSONOverride(t *testing.T) {
	jsonOverride := `{"Title":"Test Override","Bridge":{"Port":9090},"Calls":{"DisplayWindow":500}}`
	t.Setenv(EnvConfigJSON, jsonOverride)

	cfg, err := ReadConfig(configPath(t))
	if err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}

	if cfg.Title != "Test Override" {
		t.Errorf("Title = %v, want %v", cfg.Title, "Test Override")
	}

	if cfg.Bridge.Port != 9090 {
		t.Errorf("Bridge.Port = %v, want %v", cfg.Bridge.Port, 9090)
	}

	// untouched fields of an overridden section survive
	if cfg.Bridge.URL == "" {
		t.Error("Bridge.URL should survive the override")
	}

	if cfg.Calls.DisplayWindow != 500 {
		t.Errorf("Calls.DisplayWindow = %v, want %v", cfg.Calls.DisplayWindow, 500)
	}
}

func TestReadConfigRetryCount(t *testing.T) {
	const base = `[Bridge]
Port = 8787
URL = "http://127.0.0.1:8787"

[API]
BaseURL = "http://localhost:8000/api"
`

	tests := []struct {
		name     string
		api      string
		override string
		want     int
	}{
		{name: "omitted", want: defaultRetryCount},
		{name: "explicit zero", api: "RetryCount = 0\n", want: 0},
		{name: "explicit five", api: "RetryCount = 5\n", want: 5},
		{name: "negative", api: "RetryCount = -1\n", want: 0},
		{name: "zero from json override", override: `{"API":{"RetryCount":0}}`, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir() + string(filepath.Separator)
			if err := os.WriteFile(dir+"main.toml", []byte(base+tt.api), 0o600); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}

			t.Setenv(EnvConfigJSON, tt.override)

			cfg, err := ReadConfig(dir)
			if err != nil {
				t.Fatalf("ReadConfig() error = %v", err)
			}

			if cfg.API.RetryCount != tt.want {
				t.Errorf("API.RetryCount = %v, want %v", cfg.API.RetryCount, tt.want)
			}
		})
	}
}

func TestReadConfigWithBrokenJSONOverride(t *testing.T) {
	t.Setenv(EnvConfigJSON, `{"Title":`)

	if _, err := ReadConfig(configPath(t)); err == nil {
		t.Error("ReadConfig() expected an error for a broken override")
	}
}

func TestDumpConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Title = "Test"
	cfg.DevMode = true

	tomlStr, err := DumpConfig(&cfg)
	if err != nil {
		t.Fatalf("DumpConfig() error = %v", err)
	}

	if !strings.Contains(tomlStr, "Test") {
		t.Error("DumpConfig() output should contain Title")
	}

	if !strings.Contains(tomlStr, "[Bridge]") {
		t.Error("DumpConfig() output should contain the Bridge table")
	}
}

func TestDumpConfigJSON(t *testing.T) {
	cfg := validConfig()
	cfg.Title = "Test"

	jsonStr, err := DumpConfigJSON(&cfg)
	if err != nil {
		t.Fatalf("DumpConfigJSON() error = %v", err)
	}

	if !strings.Contains(jsonStr, `"Title": "Test"`) {
		t.Error("DumpConfigJSON() output should contain Title")
	}
}
