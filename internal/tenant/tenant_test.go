package tenant

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultSeeds(t *testing.T) {
	seeds := DefaultSeeds()
	if len(seeds) != 3 {
		t.Fatalf("got %d seeds, want 3", len(seeds))
	}
	if seeds[0].TenantID != "BANK001" || seeds[0].PGSchema != "bank001" || seeds[0].CHDatabase != "bank001_dw" {
		t.Errorf("first seed = %+v", seeds[0])
	}
}

func TestLoadSeeds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tenants.yaml")
	content := `
tenants:
  - tenant_id: ACME01
    name: Acme Bank
    pg_schema: acme01
    ch_database: acme01_dw
    external_url: http://bank.acme.test/api
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	seeds, err := LoadSeeds(path)
	if err != nil {
		t.Fatalf("LoadSeeds: %v", err)
	}
	if len(seeds) != 1 {
		t.Fatalf("got %d tenants, want 1", len(seeds))
	}
	if seeds[0].TenantID != "ACME01" || seeds[0].ExternalURL != "http://bank.acme.test/api" {
		t.Errorf("seed = %+v", seeds[0])
	}
}

func TestLoadSeedsRejectsIncomplete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tenants.yaml")
	if err := os.WriteFile(path, []byte("tenants:\n  - tenant_id: ACME01\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSeeds(path); err == nil {
		t.Error("expected error for incomplete tenant entry")
	}
}

func TestLoadSeedsRejectsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tenants.yaml")
	if err := os.WriteFile(path, []byte("tenants: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSeeds(path); err == nil {
		t.Error("expected error for empty seed file")
	}
}

func TestByID(t *testing.T) {
	seeds := DefaultSeeds()
	if _, ok := ByID(seeds, "BANK002"); !ok {
		t.Error("BANK002 not found")
	}
	if _, ok := ByID(seeds, "NOPE"); ok {
		t.Error("unknown tenant found")
	}
}
