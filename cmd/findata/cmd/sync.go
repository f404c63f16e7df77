package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/izgi-a/findata-adapter/internal/adapter/lock"
	"github.com/izgi-a/findata-adapter/internal/adapter/metastore"
	"github.com/izgi-a/findata-adapter/internal/adapter/model"
	adaptersync "github.com/izgi-a/findata-adapter/internal/adapter/sync"
	"github.com/izgi-a/findata-adapter/internal/adapter/telemetry"
	"github.com/izgi-a/findata-adapter/internal/adapter/warehouse"
	"github.com/izgi-a/findata-adapter/internal/extbank/staging"
	"github.com/izgi-a/findata-adapter/pkg/core/cache"
)

var (
	syncTenantID string
	syncLoanType string
	syncWait     bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync for a tenant and loan type",
	Long: `Runs the full sync pipeline synchronously: fetch staged uploads,
validate, normalize, stage into ClickHouse and commit as an atomic
partition swap. Exits non-zero unless the sync completes.`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().StringVar(&syncTenantID, "tenant", "", "tenant id (e.g. BANK001)")
	syncCmd.Flags().StringVar(&syncLoanType, "loan-type", "", "RETAIL or COMMERCIAL")
	syncCmd.Flags().BoolVar(&syncWait, "wait", false, "wait for a concurrent sync instead of failing fast")
	_ = syncCmd.MarkFlagRequired("tenant")
	_ = syncCmd.MarkFlagRequired("loan-type")
}

func runSync(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	ctx := cmd.Context()

	t, err := resolveTenant(syncTenantID)
	if err != nil {
		return err
	}
	loanType, err := parseLoanType(syncLoanType)
	if err != nil {
		return err
	}

	rdb := newRedis(cfg)
	defer rdb.Close()

	pool, err := metastore.ConnectPool(ctx, cfg.Postgres.DSN())
	if err != nil {
		return err
	}
	defer pool.Close()

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

	store := staging.New(rdb, cfg.Sync.ChunkSize, logger)
	engine := adaptersync.NewEngine(
		t,
		adaptersync.NewFetcher(store, t.TenantID),
		warehouse.NewManager(conn, t.CHDatabase, logger),
		metastore.New(pool, t.PGSchema, logger),
		lock.New(rdb, time.Duration(cfg.Sync.LockTTLSeconds)*time.Second),
		cache.New(rdb, logger),
		telemetry.New(prometheus.DefaultRegisterer),
		adaptersync.Options{MaxErrorRate: cfg.Sync.MaxErrorRate},
		logger,
	)

	syncLog := engine.Sync(ctx, loanType, syncWait)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(syncLog); err != nil {
		return err
	}
	if syncLog.Status != model.StatusCompleted {
		return fmt.Errorf("sync %s/%s finished with status %s", t.TenantID, loanType, syncLog.Status)
	}
	return nil
}
