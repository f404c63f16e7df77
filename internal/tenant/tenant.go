// Package tenant holds the read-only tenant descriptor the engine receives
// at construction, plus the provisioning seeds used by the CLI. The tenant
// registry itself is an external collaborator.
package tenant

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tenant is the snapshot of one tenant's routing data: its Postgres schema,
// its ClickHouse database and the staging area it syncs from.
type Tenant struct {
	TenantID    string `yaml:"tenant_id"`
	Name        string `yaml:"name"`
	PGSchema    string `yaml:"pg_schema"`
	CHDatabase  string `yaml:"ch_database"`
	ExternalURL string `yaml:"external_url"`
}

// DefaultSeeds returns the built-in demo tenants.
func DefaultSeeds() []Tenant {
	return []Tenant{
		{TenantID: "BANK001", Name: "Bank 001", PGSchema: "bank001", CHDatabase: "bank001_dw"},
		{TenantID: "BANK002", Name: "Bank 002", PGSchema: "bank002", CHDatabase: "bank002_dw"},
		{TenantID: "BANK003", Name: "Bank 003", PGSchema: "bank003", CHDatabase: "bank003_dw"},
	}
}

type seedFile struct {
	Tenants []Tenant `yaml:"tenants"`
}

// LoadSeeds reads tenants from a YAML seed file.
func LoadSeeds(path string) ([]Tenant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tenant seeds: %w", err)
	}
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse tenant seeds: %w", err)
	}
	if len(f.Tenants) == 0 {
		return nil, fmt.Errorf("tenant seeds %s: no tenants defined", path)
	}
	for i, t := range f.Tenants {
		if t.TenantID == "" || t.PGSchema == "" || t.CHDatabase == "" {
			return nil, fmt.Errorf("tenant seeds %s: entry %d is missing tenant_id, pg_schema or ch_database", path, i)
		}
	}
	return f.Tenants, nil
}

// ByID finds a tenant in a seed list.
func ByID(tenants []Tenant, tenantID string) (Tenant, bool) {
	for _, t := range tenants {
		if t.TenantID == tenantID {
			return t, true
		}
	}
	return Tenant{}, false
}
