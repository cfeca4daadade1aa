package repos

import (
	"database/sql"
	"testing"

	"github.com/campuslink/notification-server/models"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// testDB opens an in-memory database with the userdata schema attached so
// the schema-qualified table names resolve the same way they do against
// postgres. A single connection keeps the attach visible to every query.
func testDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqldb.SetMaxOpenConns(1)
	t.Cleanup(func() { sqldb.Close() })

	db := bun.NewDB(sqldb, sqlitedialect.New())
	models.InitModelRegistrations(db)

	stmts := []string{
		`ATTACH DATABASE ':memory:' AS userdata`,
		`CREATE TABLE userdata.notifications (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			recipient_id INTEGER NOT NULL,
			category TEXT NOT NULL,
			title TEXT NOT NULL,
			body TEXT NOT NULL,
			related_id INTEGER,
			related_type TEXT,
			scope_tag TEXT,
			urgent INTEGER NOT NULL DEFAULT 0,
			read INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX userdata.uq_notifications_event
			ON notifications (category, related_type, related_id, recipient_id)
			WHERE related_id IS NOT NULL`,
		`CREATE TABLE userdata.users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			role TEXT NOT NULL,
			program TEXT,
			email_notices INTEGER NOT NULL DEFAULT 0,
			verified INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE userdata.classes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			code TEXT NOT NULL,
			name TEXT NOT NULL,
			program TEXT
		)`,
		`CREATE TABLE userdata.classes_users (
			class_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			PRIMARY KEY (class_id, user_id)
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("setup schema: %v", err)
		}
	}

	return db
}
