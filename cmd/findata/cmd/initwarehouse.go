package cmd

import (
	"github.com/spf13/cobra"

	"github.com/izgi-a/findata-adapter/internal/adapter/warehouse"
)

var initWarehouseCmd = &cobra.Command{
	Use:   "init-warehouse",
	Short: "Create tenant ClickHouse databases and tables",
	Long: `Creates each tenant's ClickHouse database with the fact_credit,
fact_payment, staging_credit and staging_payment tables. Existing
databases and tables are left untouched.`,
	RunE: runInitWarehouse,
}

func init() {
	rootCmd.AddCommand(initWarehouseCmd)
}

func runInitWarehouse(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	tenants, err := resolveTenants()
	if err != nil {
		return err
	}

	opts := warehouse.ConnectOptions{
		Host:     cfg.ClickHouse.Host,
		Port:     cfg.ClickHouse.Port,
		Username: cfg.ClickHouse.User,
		Password: cfg.ClickHouse.Password,
	}
	for _, t := range tenants {
		if err := warehouse.InitDatabase(cmd.Context(), opts, t.CHDatabase); err != nil {
			return err
		}
		logger.Info().Str("tenant", t.TenantID).Str("database", t.CHDatabase).Msg("warehouse initialized")
	}
	return nil
}
