package db

import (
	"testing"

	"guestbot/internal/db/dbtest"
)

func TestAutoMigrateAndIndexes(t *testing.T) {
	gdb := dbtest.Open(t)
	if err := AutoMigrateAndIndexes(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// idempotent
	if err := AutoMigrateAndIndexes(gdb); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	for _, table := range []string{"users", "push_jobs", "push_delivery_logs", "admin_users"} {
		if !gdb.Migrator().HasTable(table) {
			t.Fatalf("missing table %s", table)
		}
	}
	if !gdb.Migrator().HasIndex("push_jobs", "idx_push_pending") {
		t.Fatal("missing idx_push_pending")
	}
}
