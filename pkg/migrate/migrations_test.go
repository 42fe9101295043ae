package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/angelmondragon/marketplace-checkout/pkg/migrate"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	versions, err := migrate.Validate(migrate.Migrations())
	if err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
	want := []int64{20260301120000, 20260301120100, 20260301120200}
	if len(versions) != len(want) {
		t.Fatalf("expected %d migrations, got %v", len(want), versions)
	}
	for i := range want {
		if versions[i] != want[i] {
			t.Fatalf("expected versions %v, got %v", want, versions)
		}
	}
}

func TestValidateRejectsBadFiles(t *testing.T) {
	cases := map[string]fstest.MapFS{
		"bad name":    {"create_orders.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")}},
		"no down":     {"20260101000000_orders.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n")}},
		"short stamp": {"2026_orders.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")}},
	}
	for name, fsys := range cases {
		if _, err := migrate.Validate(fsys); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}

	ok := fstest.MapFS{
		"README.md":                 {Data: []byte("notes")},
		"20260101000000_orders.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
	}
	if versions, err := migrate.Validate(ok); err != nil || len(versions) != 1 {
		t.Fatalf("expected one valid migration, got %v (%v)", versions, err)
	}
}

func TestParseVersion(t *testing.T) {
	if v, err := migrate.ParseVersion(" 20260301120100 "); err != nil || v != 20260301120100 {
		t.Fatalf("unexpected parse result %d (%v)", v, err)
	}
	for _, bad := range []string{"", "2026", "2026030112010x"} {
		if _, err := migrate.ParseVersion(bad); err == nil {
			t.Errorf("expected %q to be rejected", bad)
		}
	}
}

func TestOrdersMigrationEnforcesIdempotency(t *testing.T) {
	matches, err := fs.Glob(migrate.Migrations(), "*_create_orders_tables.sql")
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no orders migration file found")
	}

	data, err := fs.ReadFile(migrate.Migrations(), matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS checkout_confirmations",
		"session_id UUID PRIMARY KEY",
		"CONSTRAINT uq_orders_session_vendor UNIQUE (session_id, vendor_id)",
		"REFERENCES orders(id) ON DELETE CASCADE",
		"CHECK (total_cents >= 0)",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	path, err := migrate.Scaffold(dir, "Add Vendor Hours!", now)
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if filepath.Base(path) != "20261018093000_add_vendor_hours.sql" {
		t.Fatalf("unexpected filename %s", path)
	}
	if _, err := migrate.Validate(os.DirFS(dir)); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
	if _, err := migrate.Scaffold(dir, "add vendor hours", now); err == nil {
		t.Fatalf("expected existing migration to be refused")
	}
	if _, err := migrate.Scaffold(dir, "  ", now); err == nil {
		t.Fatalf("expected blank name to fail")
	}
}
