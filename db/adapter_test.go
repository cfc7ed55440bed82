package db

import (
	"path/filepath"
	"testing"

	"github.com/kasuganosora/charsheet/config"
	"github.com/kasuganosora/charsheet/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAndMigrate_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "audit.db")
	gdb, err := OpenAndMigrate(config.DatabaseConfig{Mode: ModeSQLite, SQLitePath: path})
	require.NoError(t, err)
	assert.True(t, gdb.Migrator().HasTable(&model.AuditLog{}))
	assert.FileExists(t, path)
}

func TestOpen_UnknownMode(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Mode: "embedded_xml"})
	assert.EqualError(t, err, `db: unknown mode "embedded_xml"`)
}

func TestOpen_MySQLEmptyDSN(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Mode: ModeMySQL})
	assert.EqualError(t, err, "mysql: empty dsn")
}
