package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	"bridged-token-ledger/internal/storage/clickhouse"
)

// RunClickhouseMigrations applies all embedded SQL files in lexical order.
// ClickHouse does not support multi-statement exec, so each file must hold a
// single statement.
func RunClickhouseMigrations(ctx context.Context, conn *clickhouse.Conn) error {
	files, err := listSQL(ClickhouseFS, "clickhouse")
	if err != nil {
		return fmt.Errorf("read embedded clickhouse migrations: %w", err)
	}

	for _, file := range files {
		data, err := fs.ReadFile(ClickhouseFS, "clickhouse/"+file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		if err := conn.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
	}

	return nil
}
