package logger

import (
	"context"
	"testing"

	obscontext "github.com/smallbiznis/comanda/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestDescribeSQL(t *testing.T) {
	cases := []struct {
		sql      string
		op       string
		relation string
	}{
		{`SELECT * FROM "tables" WHERE id = $1`, "SELECT", "tables"},
		{"INSERT INTO orders (id, table_id) VALUES (?, ?)", "INSERT", "orders"},
		{"UPDATE tables SET version = version + 1 WHERE id = ? AND version = ?", "UPDATE", "tables"},
		{"DELETE FROM orders WHERE table_id = ?", "DELETE", "orders"},
		{"WITH recent AS (SELECT id FROM sales) SELECT * FROM recent", "SELECT", "sales"},
		{"PRAGMA foreign_keys = ON", "UNKNOWN", ""},
	}
	for _, tc := range cases {
		op, relation := describeSQL(tc.sql)
		assert.Equal(t, tc.op, op, tc.sql)
		assert.Equal(t, tc.relation, relation, tc.sql)
	}
}

func TestWithContextAddsRequestFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := zap.New(core)

	ctx := obscontext.WithRequestID(context.Background(), "req-1")
	ctx = obscontext.WithActor(ctx, "cashier", "42")
	ctx = obscontext.WithTerminal(ctx, "caja-1")

	WithTable(WithContext(ctx, base), " 77 ").Info("sale finalized")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "req-1", fields["request_id"])
		assert.Equal(t, "cashier", fields["actor_role"])
		assert.Equal(t, "42", fields["actor_id"])
		assert.Equal(t, "caja-1", fields["terminal_id"])
		assert.Equal(t, "77", fields["table_id"])
	}
}
