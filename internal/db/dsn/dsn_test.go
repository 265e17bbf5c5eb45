package dsn

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crm-portal/portal-agent/internal/config"
)

func TestCreate(t *testing.T) {
	testCases := []struct {
		name   string
		path   string
		prefix string
	}{
		{name: "empty path", path: "", prefix: MemoryPath},
		{name: "memory", path: ":memory:", prefix: MemoryPath},
		{name: "file", path: "./var/agent.db", prefix: "file:./var/agent.db?"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &config.Config{DB: config.DB{Path: tc.path}}

			out := Create(cfg)
			assert.True(t, strings.HasPrefix(out, tc.prefix), out)

			if tc.prefix != MemoryPath {
				assert.Contains(t, out, "_pragma=busy_timeout%285000%29")
				assert.Contains(t, out, "_pragma=journal_mode%28WAL%29")
			}
		})
	}
}
