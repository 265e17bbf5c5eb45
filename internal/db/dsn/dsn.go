// Package dsn provides Data Source Name construction utilities for database connections.
package dsn

import (
	"net/url"

	"github.com/crm-portal/portal-agent/internal/config"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Create builds the sqlite Data Source Name from the configuration.
// File databases wait on locks and use write-ahead logging.
func Create(cfg *config.Config) string {
	if cfg.DB.Path == "" || cfg.DB.Path == MemoryPath {
		return MemoryPath
	}

	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")

	return "file:" + cfg.DB.Path + "?" + q.Encode()
}
