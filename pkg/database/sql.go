package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"ecomtools/pkg/models"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// sqlSource serves any database/sql driver.
type sqlSource struct {
	db     *sql.DB
	driver string
}

func openMySQL(ctx context.Context, dsn string) (Source, error) {
	mysqlDSN, err := toMySQLDSN(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	slog.Debug("connected", "driver", "mysql", "dsn", redact(mysqlDSN))
	return &sqlSource{db: db, driver: "mysql"}, nil
}

// toMySQLDSN converts mariadb:// and mysql:// URLs to the go-sql-driver format.
// Anything else is assumed to be a native DSN already.
func toMySQLDSN(dsn string) (string, error) {
	if strings.HasPrefix(dsn, "mariadb://") || strings.HasPrefix(dsn, "mysql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("parse dsn: %w", err)
		}
		user := ""
		pass := ""
		if u.User != nil {
			user = u.User.Username()
			pw, _ := u.User.Password()
			pass = pw
		}
		host := u.Host
		db := strings.TrimPrefix(u.Path, "/")
		if user == "" || host == "" || db == "" {
			return "", fmt.Errorf("%w: incomplete dsn (user/host/db)", models.ErrInvalidConfig)
		}
		return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&interpolateParams=true",
			user, pass, host, db), nil
	}
	return dsn, nil
}

func openSQLite(ctx context.Context, dsn string) (Source, error) {
	path := strings.TrimPrefix(dsn, "sqlite://")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// :memory: databases live in a single connection.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	slog.Debug("connected", "driver", "sqlite", "path", path)
	return &sqlSource{db: db, driver: "sqlite"}, nil
}

func (s *sqlSource) LoadTable(ctx context.Context, table string) (models.RawTable, error) {
	if err := checkTable(table); err != nil {
		return models.RawTable{}, err
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s", table))
	if err != nil {
		return models.RawTable{}, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	header, err := rows.Columns()
	if err != nil {
		return models.RawTable{}, err
	}
	raw := models.RawTable{Header: header}
	values := make([]any, len(header))
	ptrs := make([]any, len(header))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return models.RawTable{}, err
		}
		rec := make([]string, len(values))
		for i, v := range values {
			if rec[i], err = stringify(v); err != nil {
				return models.RawTable{}, fmt.Errorf("column %s: %w", header[i], err)
			}
		}
		raw.Rows = append(raw.Rows, rec)
	}
	if err := rows.Err(); err != nil {
		return models.RawTable{}, err
	}
	slog.Debug("table loaded", "driver", s.driver, "table", table, "rows", len(raw.Rows))
	return raw, nil
}

func (s *sqlSource) Close() error { return s.db.Close() }

// redact hides the password of a go-sql-driver DSN.
func redact(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	colon := strings.Index(dsn, ":")
	if at < 0 || colon < 0 || colon > at {
		return dsn
	}
	return dsn[:colon+1] + "***" + dsn[at:]
}
