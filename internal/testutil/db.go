// Package testutil holds helpers shared by package tests.
package testutil

import (
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"socialhub/internal/repository"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const driverName = "sqlite3_fk"

var registerOnce sync.Once

// NewDB returns a migrated GORM database backed by a SQLite file in a
// temporary directory, with foreign keys enforced.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	registerOnce.Do(func() {
		sql.Register(driverName, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				_, err := conn.Exec("PRAGMA foreign_keys = ON", nil)
				return err
			},
		})
	})

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.New(sqlite.Config{
		DriverName: driverName,
		DSN:        path + "?_busy_timeout=5000",
	}), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	// One writer keeps SQLite from reporting SQLITE_BUSY under concurrent tests.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := repository.InitSchema(db); err != nil {
		t.Fatal(err)
	}
	return db
}
