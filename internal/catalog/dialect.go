package catalog

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// Dialect selects SQL driver, identifier quoting and placeholder style.
type Dialect string

const (
	// MySQL is the production shop database.
	MySQL Dialect = "mysql"
	// Postgres is supported for managed deployments.
	Postgres Dialect = "postgres"
	// SQLite backs local development and tests.
	SQLite Dialect = "sqlite"
)

// ParseDialect maps a DB_DRIVER value to a Dialect. Empty means MySQL.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mysql", "mariadb":
		return MySQL, nil
	case "postgres", "postgresql", "pg":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return "", fmt.Errorf("catalog: unknown DB_DRIVER %q, valid values: mysql, postgres, sqlite", s)
	}
}

// driverName is the database/sql driver registered for the dialect.
func (d Dialect) driverName() string {
	return string(d)
}

// DisplayName is the dialect name given to the LLM when it writes SQL.
func (d Dialect) DisplayName() string {
	switch d {
	case Postgres:
		return "PostgreSQL"
	case SQLite:
		return "SQLite"
	default:
		return "MySQL"
	}
}

// Quote quotes an identifier. "order" is a reserved word in every dialect.
func (d Dialect) Quote(ident string) string {
	if d == MySQL {
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// Placeholder returns the n-th (1-based) bind parameter marker.
func (d Dialect) Placeholder(n int) string {
	if d == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// BuildDSN assembles a driver DSN from the discrete DB_* settings.
func BuildDSN(d Dialect, host, user, password, name string) string {
	switch d {
	case Postgres:
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(user, password),
			Host:     host,
			Path:     "/" + name,
			RawQuery: "sslmode=disable",
		}
		return u.String()
	case SQLite:
		return name
	default:
		cfg := mysql.NewConfig()
		cfg.User = user
		cfg.Passwd = password
		cfg.Net = "tcp"
		cfg.Addr = host
		cfg.DBName = name
		cfg.ParseTime = true
		cfg.Params = map[string]string{"charset": "utf8mb4"}
		return cfg.FormatDSN()
	}
}
