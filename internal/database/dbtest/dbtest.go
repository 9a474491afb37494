package dbtest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ctfwatch/ctfwatch/pkg/models"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New returns an isolated in-memory SQLite database with the
// events schema applied. The Postgres migrations are not used here because
// they rely on Postgres-only types.
func New(tb testing.TB) *gorm.DB {
	tb.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(tb.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		tb.Fatalf("failed to init db %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("failed to get sql db %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.Event{}); err != nil {
		tb.Fatalf("failed to migrate db %v", err)
	}
	tb.Cleanup(func() {
		sqlDB.Close()
	})
	return db
}
