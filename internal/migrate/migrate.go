package migrate

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	"telecrm/pkg/utils"
)

//go:embed schema.sql
var schema string

// Statements returns the schema split into individual statements.
func Statements() []string {
	parts := strings.Split(schema, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if stmt := strings.TrimSpace(stripComments(p)); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

func stripComments(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "--") {
			continue
		}
		kept = append(kept, l)
	}
	return strings.Join(kept, "\n")
}

// Apply creates missing tables and indexes in one transaction. Every statement
// is idempotent.
func Apply(ctx context.Context, db *sql.DB) error {
	return utils.WithTx(ctx, db, nil, func(ctx context.Context, tx *sql.Tx) error {
		for i, stmt := range Statements() {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migrate: statement %d: %w", i+1, err)
			}
		}
		return nil
	})
}
