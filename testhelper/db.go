// Package testhelper opens throwaway in-memory databases for package tests.
package testhelper

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/camden-git/familytreebackend/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// memoryDSN names a shared-cache in-memory database private to one test.
func memoryDSN() string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
}

// NewGormDB returns a migrated GORM handle on a fresh in-memory database.
func NewGormDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.InitGormDB(memoryDSN(), logger.Silent)
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrateModels(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

// NewLedgerDB returns a raw SQL handle with the import ledger table on a fresh
// in-memory database.
func NewLedgerDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.InitDB(memoryDSN())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}
