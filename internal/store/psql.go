// Package store holds one repository per table. Queries are built with
// squirrel and scanned with scany.
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func psql() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// buildUpdateClause creates the SET clause for ON CONFLICT DO UPDATE
// e.g., "email = EXCLUDED.email, updated_at = EXCLUDED.updated_at"
func buildUpdateClause(fields map[string]any) string {
	columns := make([]string, 0, len(fields))
	for field := range fields {
		columns = append(columns, field)
	}
	sort.Strings(columns)

	parts := make([]string, len(columns))
	for i, column := range columns {
		parts[i] = fmt.Sprintf("%s = EXCLUDED.%s", column, column)
	}
	return strings.Join(parts, ", ")
}

func exec(ctx context.Context, q querier, builder sq.Sqlizer, what string) (int64, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to generate %s query: %w", what, err)
	}

	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to %s: %w", what, err)
	}

	return tag.RowsAffected(), nil
}
