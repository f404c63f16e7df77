package cmd

import (
	"github.com/spf13/cobra"

	"github.com/izgi-a/findata-adapter/internal/adapter/metastore"
	"github.com/izgi-a/findata-adapter/internal/adapter/model"
)

var provisionExternalURL string

var provisionCmd = &cobra.Command{
	Use:   "provision-tenants",
	Short: "Create tenant schemas and default sync configurations",
	Long: `Creates each tenant's Postgres schema with the sync_configurations,
sync_logs and validation_errors tables, then seeds a RETAIL and a
COMMERCIAL sync configuration. Existing rows are kept.`,
	RunE: runProvision,
}

func init() {
	rootCmd.AddCommand(provisionCmd)
	provisionCmd.Flags().StringVar(&provisionExternalURL, "external-url", "http://localhost:8000/bank/api",
		"staging area URL recorded in new sync configurations")
}

func runProvision(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	ctx := cmd.Context()

	tenants, err := resolveTenants()
	if err != nil {
		return err
	}

	pool, err := metastore.ConnectPool(ctx, cfg.Postgres.DSN())
	if err != nil {
		return err
	}
	defer pool.Close()

	for _, t := range tenants {
		if err := metastore.EnsureSchema(ctx, pool, t.PGSchema); err != nil {
			return err
		}
		store := metastore.New(pool, t.PGSchema, logger)

		externalURL := t.ExternalURL
		if externalURL == "" {
			externalURL = provisionExternalURL
		}
		for _, loanType := range []model.LoanType{model.LoanTypeRetail, model.LoanTypeCommercial} {
			err := store.UpsertSyncConfiguration(ctx, model.SyncConfiguration{
				LoanType:            loanType,
				ExternalBankURL:     externalURL,
				SyncIntervalMinutes: 60,
				IsEnabled:           true,
			})
			if err != nil {
				return err
			}
		}
		logger.Info().Str("tenant", t.TenantID).Str("schema", t.PGSchema).Msg("tenant provisioned")
	}
	return nil
}
