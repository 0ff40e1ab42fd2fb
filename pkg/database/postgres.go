package database

import (
	"context"
	"fmt"
	"log/slog"

	"ecomtools/pkg/models"

	"github.com/jackc/pgx/v5"
)

type postgresSource struct {
	conn *pgx.Conn
}

func openPostgres(ctx context.Context, dsn string) (Source, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	slog.Debug("connected", "driver", "postgres", "host", conn.Config().Host)
	return &postgresSource{conn: conn}, nil
}

func (s *postgresSource) LoadTable(ctx context.Context, table string) (models.RawTable, error) {
	if err := checkTable(table); err != nil {
		return models.RawTable{}, err
	}
	rows, err := s.conn.Query(ctx, "SELECT * FROM "+pgx.Identifier{table}.Sanitize())
	if err != nil {
		return models.RawTable{}, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var raw models.RawTable
	for _, fd := range rows.FieldDescriptions() {
		raw.Header = append(raw.Header, fd.Name)
	}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return models.RawTable{}, err
		}
		rec := make([]string, len(values))
		for i, v := range values {
			if rec[i], err = stringify(v); err != nil {
				return models.RawTable{}, fmt.Errorf("column %s: %w", raw.Header[i], err)
			}
		}
		raw.Rows = append(raw.Rows, rec)
	}
	if err := rows.Err(); err != nil {
		return models.RawTable{}, err
	}
	slog.Debug("table loaded", "driver", "postgres", "table", table, "rows", len(raw.Rows))
	return raw, nil
}

func (s *postgresSource) Close() error {
	return s.conn.Close(context.Background())
}
