package shared

import (
	"context"
	"database/sql"
	"testing"
)

// openMemoryDB opens a single-connection in-memory database so every query sees the same schema.
func openMemoryDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	ConfigureDatabase(db, 1, 1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrationRunner(t *testing.T) {
	ctx := context.Background()

	t.Run("loadMigrations", func(t *testing.T) {
		migrations, err := loadMigrations()
		if err != nil {
			t.Fatalf("failed to load migrations: %v", err)
		}

		if len(migrations) == 0 {
			t.Fatal("expected at least one migration")
		}

		for i := 1; i < len(migrations); i++ {
			if migrations[i].Version <= migrations[i-1].Version {
				t.Errorf("migrations not sorted: version %d comes after %d", migrations[i].Version, migrations[i-1].Version)
			}
		}

		for _, m := range migrations {
			if m.Up == "" || m.Down == "" {
				t.Errorf("migration version %d missing up or down SQL", m.Version)
			}
			if m.Name == "" {
				t.Errorf("migration version %d has no name", m.Version)
			}
		}
	})

	t.Run("RunMigrations And Rollback", func(t *testing.T) {
		db := openMemoryDB(t)

		if err := RunMigrations(ctx, db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		version, err := CurrentVersion(ctx, db)
		if err != nil {
			t.Fatalf("CurrentVersion() error = %v", err)
		}
		if version == 0 {
			t.Fatal("expected at least one migration to be applied")
		}

		if _, err := db.Exec("SELECT 1 FROM history LIMIT 1"); err != nil {
			t.Errorf("history table should exist after migrations: %v", err)
		}

		if err := RollbackMigration(ctx, db); err != nil {
			t.Fatalf("failed to rollback migration: %v", err)
		}

		after, err := CurrentVersion(ctx, db)
		if err != nil {
			t.Fatalf("CurrentVersion() after rollback error = %v", err)
		}
		if after >= version {
			t.Errorf("expected schema version to decrease after rollback, got %d (was %d)", after, version)
		}
	})

	t.Run("Rollback With Nothing Applied", func(t *testing.T) {
		db := openMemoryDB(t)

		if err := RunMigrations(ctx, db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
		for {
			v, _ := CurrentVersion(ctx, db)
			if v == 0 {
				break
			}
			if err := RollbackMigration(ctx, db); err != nil {
				t.Fatalf("rollback failed: %v", err)
			}
		}

		if err := RollbackMigration(ctx, db); err == nil {
			t.Error("expected error rolling back an empty schema")
		}
	})

	t.Run("Idempotent Migrations", func(t *testing.T) {
		db := openMemoryDB(t)

		if err := RunMigrations(ctx, db); err != nil {
			t.Fatalf("failed to run migrations first time: %v", err)
		}

		if err := RunMigrations(ctx, db); err != nil {
			t.Fatalf("failed to run migrations second time: %v", err)
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
			t.Fatalf("failed to query schema_migrations: %v", err)
		}

		migrations, _ := loadMigrations()
		if count != len(migrations) {
			t.Errorf("expected %d migrations to be applied, got %d", len(migrations), count)
		}
	})
}

func TestStripComments(t *testing.T) {
	got := stripComments("-- header\nCREATE TABLE x (id INT) -- trailing\n\n")
	if got != "CREATE TABLE x (id INT)" {
		t.Errorf("stripComments() = %q", got)
	}
}
