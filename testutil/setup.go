// Package testutil builds the stores tests need without external services.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/kasuganosora/charsheet/cache"
	"github.com/kasuganosora/charsheet/config"
	dbadapter "github.com/kasuganosora/charsheet/db"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// SetupTestDB opens a migrated SQLite database in a per-test temp dir.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := dbadapter.OpenAndMigrate(config.DatabaseConfig{
		Mode:       dbadapter.ModeSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err, "SetupTestDB")
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// SetupTestCache creates LocalCache and LocalPubSub (no Redis required).
func SetupTestCache(t *testing.T) (cache.Cache, cache.PubSub) {
	t.Helper()
	return newCache(t, cache.CacheConfig{})
}

// SetupRedisCache runs an in-process miniredis and returns the Redis-backed
// cache and pub/sub against it.
func SetupRedisCache(t *testing.T) (cache.Cache, cache.PubSub, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, ps := newCache(t, cache.CacheConfig{RedisAddr: mr.Addr()})
	return c, ps, mr
}

func newCache(t *testing.T, cfg cache.CacheConfig) (cache.Cache, cache.PubSub) {
	c, err := cache.NewCache(cfg)
	require.NoError(t, err, "NewCache")
	ps, err := cache.NewPubSub(cfg)
	require.NoError(t, err, "NewPubSub")
	return c, ps
}
