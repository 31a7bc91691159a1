package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
)

//go:embed schema.sql
var schemaSQL string

// Statements splits a DDL script into individual statements.  The MySQL
// driver rejects multi-statement queries unless multiStatements is set,
// so each statement is executed on its own.  Lines starting with "--" are
// dropped.
func Statements(script string) []string {
	var b strings.Builder
	for _, line := range strings.Split(script, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	out := make([]string, 0)
	for _, stmt := range strings.Split(b.String(), ";") {
		if s := strings.TrimSpace(stmt); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Migrate creates the service tables if they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	return Exec(ctx, db, schemaSQL)
}

// Exec runs every statement of script in order.
func Exec(ctx context.Context, db *sql.DB, script string) error {
	for i, stmt := range Statements(script) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i+1, err)
		}
	}
	return nil
}
