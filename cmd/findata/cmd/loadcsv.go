package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/izgi-a/findata-adapter/internal/extbank/loader"
	"github.com/izgi-a/findata-adapter/internal/extbank/staging"
)

var (
	loadTenantID string
	loadLoanType string
	loadFileType string
	loadPath     string
)

var loadCSVCmd = &cobra.Command{
	Use:   "load-csv",
	Short: "Load a CSV export into the staging store",
	Long: `Reads a semicolon-delimited CSV export and appends its rows to the
tenant's staged upload, ready for the next sync.`,
	RunE: runLoadCSV,
}

func init() {
	rootCmd.AddCommand(loadCSVCmd)
	loadCSVCmd.Flags().StringVar(&loadTenantID, "tenant", "", "tenant id (e.g. BANK001)")
	loadCSVCmd.Flags().StringVar(&loadLoanType, "loan-type", "", "RETAIL or COMMERCIAL")
	loadCSVCmd.Flags().StringVar(&loadFileType, "file-type", "", "credit or payment_plan")
	loadCSVCmd.Flags().StringVar(&loadPath, "file", "", "path to the CSV file")
	_ = loadCSVCmd.MarkFlagRequired("tenant")
	_ = loadCSVCmd.MarkFlagRequired("loan-type")
	_ = loadCSVCmd.MarkFlagRequired("file-type")
	_ = loadCSVCmd.MarkFlagRequired("file")
}

func runLoadCSV(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	t, err := resolveTenant(loadTenantID)
	if err != nil {
		return err
	}
	loanType, err := parseLoanType(loadLoanType)
	if err != nil {
		return err
	}
	fileType, err := parseFileType(loadFileType)
	if err != nil {
		return err
	}

	rdb := newRedis(cfg)
	defer rdb.Close()

	store := staging.New(rdb, cfg.Sync.ChunkSize, logger)
	rows, err := loader.New(store, logger).LoadFile(cmd.Context(), t.TenantID, loanType, fileType, loadPath)
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %d rows -> %s:%s:%s\n", rows, t.TenantID, loanType, fileType)
	return nil
}
