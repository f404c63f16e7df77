package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/izgi-a/findata-adapter/internal/adapter/model"
	"github.com/izgi-a/findata-adapter/internal/tenant"
	"github.com/izgi-a/findata-adapter/pkg/core/config"
	"github.com/izgi-a/findata-adapter/pkg/core/logging"
)

var (
	cfgFile     string
	tenantsFile string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "findata",
	Short: "Multi-tenant financial data ingest adapter",
	Long: `findata pulls staged credit and payment plan files per tenant,
validates and normalizes every record and atomically replaces the
tenant's analytical tables in ClickHouse.

Commands:
  init-warehouse    - create tenant databases and fact/staging tables
  provision-tenants - create tenant schemas and default sync configs
  load-csv          - load a CSV export into the staging store
  sync              - run one sync for a tenant and loan type
  profile           - profile a tenant's fact data`,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./configs/findata.toml if present)")
	rootCmd.PersistentFlags().StringVar(&tenantsFile, "tenants", "", "tenant seed file (default: built-in BANK001-BANK003)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

const defaultConfigPath = "configs/findata.toml"

func loadConfig() (*config.Config, error) {
	// A .env next to the binary is a developer convenience; absence is fine.
	_ = godotenv.Load()

	path := cfgFile
	if path == "" {
		if _, err := os.Stat(defaultConfigPath); err == nil {
			path = defaultConfigPath
		}
	}
	return config.Load(path)
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	return logging.New("findata", level)
}

func newRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
}

func resolveTenants() ([]tenant.Tenant, error) {
	if tenantsFile == "" {
		return tenant.DefaultSeeds(), nil
	}
	return tenant.LoadSeeds(tenantsFile)
}

func resolveTenant(tenantID string) (tenant.Tenant, error) {
	tenants, err := resolveTenants()
	if err != nil {
		return tenant.Tenant{}, err
	}
	t, ok := tenant.ByID(tenants, tenantID)
	if !ok {
		return tenant.Tenant{}, fmt.Errorf("unknown tenant %q", tenantID)
	}
	return t, nil
}

func parseLoanType(value string) (model.LoanType, error) {
	lt := model.LoanType(strings.ToUpper(strings.TrimSpace(value)))
	if !lt.Valid() {
		return "", fmt.Errorf("loan type must be RETAIL or COMMERCIAL, got %q", value)
	}
	return lt, nil
}

func parseFileType(value string) (model.FileType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "credit":
		return model.FileTypeCredit, nil
	case "payment_plan", "payment":
		return model.FileTypePayment, nil
	default:
		return "", fmt.Errorf("file type must be credit or payment_plan, got %q", value)
	}
}
