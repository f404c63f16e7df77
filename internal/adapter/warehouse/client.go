// Package warehouse owns the tenant's ClickHouse connection: schema
// bootstrap, staging inserts, the atomic partition swap and the distinct
// loan id lookup used by cross-file validation.
package warehouse

import (
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// ConnectOptions carries the ClickHouse endpoint settings from configuration.
type ConnectOptions struct {
	Host     string
	Port     int
	Username string
	Password string
}

// Connect opens a native-protocol connection scoped to one database. Pass
// "default" for server-level operations such as database creation.
func Connect(opts ConnectOptions, database string) (driver.Conn, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", opts.Host, opts.Port)},
		Auth: clickhouse.Auth{
			Database: database,
			Username: opts.Username,
			Password: opts.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse connect %s: %w", database, err)
	}
	return conn, nil
}
