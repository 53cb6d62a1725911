package connect

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/alexanderjulianmartinez/schema-inspect/internal/config"
	"github.com/alexanderjulianmartinez/schema-inspect/internal/source"
	mysqlsource "github.com/alexanderjulianmartinez/schema-inspect/internal/source/mysql"
	"github.com/alexanderjulianmartinez/schema-inspect/internal/source/postgres"
	"github.com/alexanderjulianmartinez/schema-inspect/internal/source/sqlite"
)

const pingTimeout = 5 * time.Second

// Dialect maps a database/sql driver name to the catalog dialect it speaks.
func Dialect(driver string) (string, error) {
	switch driver {
	case config.DriverPostgres, config.DriverPgx:
		return postgres.Dialect, nil
	case config.DriverMySQL:
		return mysqlsource.Dialect, nil
	case config.DriverSQLite:
		return sqlite.Dialect, nil
	default:
		return "", fmt.Errorf("unsupported driver %q", driver)
	}
}

// NewInspector returns the catalog inspector for driver.
func NewInspector(driver string, log zerolog.Logger, timeout time.Duration) (source.Inspector, error) {
	dialect, err := Dialect(driver)
	if err != nil {
		return nil, err
	}
	switch dialect {
	case postgres.Dialect:
		return postgres.NewInspector(log, timeout), nil
	case mysqlsource.Dialect:
		return mysqlsource.NewInspector(log, timeout), nil
	default:
		return sqlite.NewInspector(log, timeout), nil
	}
}

// Open opens and pings the configured database and pairs it with the matching
// inspector. The caller owns the returned *sql.DB and must close it.
func Open(ctx context.Context, cfg config.SourceConfig, log zerolog.Logger) (*sql.DB, source.Inspector, error) {
	insp, err := NewInspector(cfg.Driver, log, cfg.QueryTimeout)
	if err != nil {
		return nil, nil, err
	}

	log.Debug().
		Str("driver", cfg.Driver).
		Str("dsn", RedactDSN(cfg.DSN)).
		Msg("opening database")

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", source.ErrConnection, err)
	}
	if cfg.MaxOpenConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConnections)
		db.SetMaxIdleConns(cfg.MaxOpenConnections)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("%w: %s ping failed: %v", source.ErrConnection, cfg.Driver, err)
	}
	return db, insp, nil
}

var kvPassword = regexp.MustCompile(`(?i)(password\s*=\s*)('(?:[^'\\]|\\.)*'|\S+)`)

// RedactDSN hides the password of a URL, MySQL or key/value style DSN.
func RedactDSN(dsn string) string {
	if strings.Contains(dsn, "://") {
		if u, err := url.Parse(dsn); err == nil {
			return u.Redacted()
		}
	}
	if strings.Contains(dsn, "@") {
		if cfg, err := mysql.ParseDSN(dsn); err == nil {
			if cfg.Passwd != "" {
				cfg.Passwd = "xxxxx"
			}
			return cfg.FormatDSN()
		}
	}
	return kvPassword.ReplaceAllString(dsn, "${1}xxxxx")
}
