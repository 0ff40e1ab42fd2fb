// Package database loads raw transaction tables from MySQL/MariaDB, PostgreSQL or SQLite.
package database

import (
	"context"
	"database/sql/driver"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"ecomtools/pkg/models"
)

// Source reads a whole table as strings, ready for normalization.
type Source interface {
	LoadTable(ctx context.Context, table string) (models.RawTable, error)
	Close() error
}

var tableName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Open picks the driver from the DSN scheme:
//
//	mysql://, mariadb://, or a native go-sql-driver DSN  → MySQL
//	postgres://, postgresql://                          → PostgreSQL (pgx)
//	sqlite://path, file:path                            → SQLite
func Open(ctx context.Context, dsn string) (Source, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return openPostgres(ctx, dsn)
	case strings.HasPrefix(dsn, "sqlite://"), strings.HasPrefix(dsn, "file:"):
		return openSQLite(ctx, dsn)
	case dsn == "":
		return nil, fmt.Errorf("%w: empty dsn", models.ErrInvalidConfig)
	}
	return openMySQL(ctx, dsn)
}

func checkTable(table string) error {
	if !tableName.MatchString(table) {
		return fmt.Errorf("%w: invalid table name %q", models.ErrInvalidConfig, table)
	}
	return nil
}

// stringify renders a driver value the way the normalizer expects to read it.
func stringify(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int:
		return strconv.Itoa(x), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), nil
	case bool:
		return strconv.FormatBool(x), nil
	case driver.Valuer:
		inner, err := x.Value()
		if err != nil {
			return "", err
		}
		if _, again := inner.(driver.Valuer); again {
			return fmt.Sprint(inner), nil
		}
		return stringify(inner)
	}
	return fmt.Sprint(v), nil
}
