package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vaulted-markets/vaulted-backend/pkg/migrate"
)

func TestRegistryMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_registry.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no registry migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS categories",
		"CREATE TABLE IF NOT EXISTS fingerprints",
		"CREATE TABLE IF NOT EXISTS assets",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_assets_category_serial",
		"CHECK (stock_remaining >= 0)",
		"DROP TABLE IF EXISTS assets",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMarketMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_market.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no market migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS listings",
		"CREATE TABLE IF NOT EXISTS rent_records",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_listings_active_asset",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_rent_records_asset",
		"CHECK (price_micros > 0)",
		"DROP TABLE IF EXISTS rent_records",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}
