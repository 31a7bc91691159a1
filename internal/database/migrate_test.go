package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatements(t *testing.T) {
	script := "-- header\nCREATE TABLE a (id INT);\n\n  -- note\nCREATE TABLE b (\n id INT\n);\n"
	stmts := Statements(script)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (id INT)", stmts[0])
	assert.Contains(t, stmts[1], "CREATE TABLE b")
}

func TestEmbeddedSchemaCoversAllTables(t *testing.T) {
	stmts := Statements(schemaSQL)
	require.Len(t, stmts, 6)
	for _, table := range []string{"failed_payments", "bookings", "orders", "order_items", "books", "audit_logs"} {
		found := false
		for _, s := range stmts {
			if strings.Contains(s, "EXISTS "+table+" (") {
				found = true
			}
		}
		assert.True(t, found, table)
	}
}

func TestDSNCountsMatchedRows(t *testing.T) {
	dsn := DSN("app", "secret", "localhost", "3306", "recovery")
	assert.Equal(t, "app:secret@tcp(localhost:3306)/recovery?charset=utf8mb4&parseTime=true&loc=UTC&clientFoundRows=true", dsn)
	assert.Contains(t, DSN("app", "", "h", "1", "d"), "app@tcp(h:1)/d?")
}
