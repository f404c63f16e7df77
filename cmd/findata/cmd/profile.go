package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/izgi-a/findata-adapter/internal/adapter/profile"
	"github.com/izgi-a/findata-adapter/internal/adapter/warehouse"
)

var (
	profileTenantID string
	profileLoanType string
	profileDataType string
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Profile a tenant's fact data",
	Long: `Computes numeric distributions, categorical frequencies, null ratios
and column completeness for one loan type, straight from the fact
tables.`,
	RunE: runProfile,
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.Flags().StringVar(&profileTenantID, "tenant", "", "tenant id (e.g. BANK001)")
	profileCmd.Flags().StringVar(&profileLoanType, "loan-type", "", "RETAIL or COMMERCIAL")
	profileCmd.Flags().StringVar(&profileDataType, "data-type", "credit", "credit or payment")
	_ = profileCmd.MarkFlagRequired("tenant")
	_ = profileCmd.MarkFlagRequired("loan-type")
}

func runProfile(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	t, err := resolveTenant(profileTenantID)
	if err != nil {
		return err
	}
	loanType, err := parseLoanType(profileLoanType)
	if err != nil {
		return err
	}
	if profileDataType != "credit" && profileDataType != "payment" {
		return fmt.Errorf("data type must be credit or payment, got %q", profileDataType)
	}

	conn, err := warehouse.Connect(warehouse.ConnectOptions{
		Host:     cfg.ClickHouse.Host,
		Port:     cfg.ClickHouse.Port,
		Username: cfg.ClickHouse.User,
		Password: cfg.ClickHouse.Password,
	}, t.CHDatabase)
	if err != nil {
		return err
	}
	defer conn.Close()

	result, err := profile.NewEngine(conn, logger).Profile(cmd.Context(), loanType, profileDataType)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
