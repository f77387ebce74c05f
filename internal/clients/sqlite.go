package clients

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/agentic-research/apiout/internal/serializer"
	_ "modernc.org/sqlite"
)

// SQLite runs read queries against a SQLite database.
type SQLite struct{}

// Query opens dsn and runs params["query"] with params["args"] bound to
// its placeholders. Each row becomes an object keyed by column name, in
// column order. Text columns are returned as stored, so JSON documents in
// them stay strings until a path walks into them.
func (SQLite) Query(ctx context.Context, dsn string, params any) ([]any, error) {
	query, args, err := queryParams(params)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	defer func() { _ = db.Close() }() // safe to ignore

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	records := []any{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := serializer.NewObject()
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				values[i] = string(b)
			}
			row.Set(col, values[i])
		}
		records = append(records, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return records, nil
}

func queryParams(params any) (string, []any, error) {
	keys, values, err := entries(params)
	if err != nil {
		return "", nil, err
	}
	var query string
	var args []any
	for i, k := range keys {
		switch k {
		case "query":
			s, ok := values[i].(string)
			if !ok {
				return "", nil, fmt.Errorf("query must be a string, got %T", values[i])
			}
			query = s
		case "args":
			list, ok := values[i].([]any)
			if !ok {
				return "", nil, fmt.Errorf("args must be a list, got %T", values[i])
			}
			args = list
		}
	}
	if query == "" {
		return "", nil, fmt.Errorf("no query specified")
	}
	return query, args, nil
}
