package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crm-portal/portal-agent/internal/config"
	"github.com/crm-portal/portal-agent/internal/db/models"
)

func TestOpen(t *testing.T) {
	testCases := []struct {
		name string
		path string
	}{
		{name: "memory", path: ":memory:"},
		{name: "file in new directory", path: filepath.Join(t.TempDir(), "var", "agent.db")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db, err := Open(&config.Config{DB: config.DB{Path: tc.path}})
			require.NoError(t, err)

			assert.True(t, db.Migrator().HasTable(&models.CallRecord{}))

			sqlDB, err := db.DB()
			require.NoError(t, err)
			assert.NoError(t, sqlDB.Close())
		})
	}
}
