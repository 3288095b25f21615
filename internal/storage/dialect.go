package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Driver names accepted in Connection.Driver.
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Connection holds what is needed to reach the backing store.
// For sqlite, Path is the database file; for the network drivers the
// host fields are used unless DSN is set explicitly.
type Connection struct {
	Driver   string
	Path     string
	DSN      string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string
}

// dialect captures the per-engine differences the stores rely on.
type dialect struct {
	name            string // database/sql driver name
	migrateDialect  string // sql-migrate dialect name
	dollarParams    bool   // $1, $2 … instead of ?
	createCountries string
	tableExists     string // one bind param: table name
}

var dialects = map[string]dialect{
	DriverSQLite: {
		name:           "sqlite",
		migrateDialect: "sqlite3",
		createCountries: `CREATE TABLE IF NOT EXISTS countries (
			name TEXT,
			population INTEGER,
			area REAL,
			region TEXT
		)`,
		tableExists: `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`,
	},
	DriverMySQL: {
		name:           "mysql",
		migrateDialect: "mysql",
		createCountries: `CREATE TABLE IF NOT EXISTS countries (
			name TEXT,
			population BIGINT,
			area DOUBLE,
			region TEXT
		)`,
		tableExists: `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?`,
	},
	DriverPostgres: {
		name:           "postgres",
		migrateDialect: "postgres",
		dollarParams:   true,
		createCountries: `CREATE TABLE IF NOT EXISTS countries (
			name TEXT,
			population BIGINT,
			area DOUBLE PRECISION,
			region TEXT
		)`,
		tableExists: `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = ?`,
	},
}

func lookupDialect(driver string) (dialect, error) {
	if driver == "" {
		driver = DriverSQLite
	}
	d, ok := dialects[driver]
	if !ok {
		return dialect{}, fmt.Errorf("unsupported driver: %s", driver)
	}
	return d, nil
}

// rebind rewrites ? placeholders for engines that use numbered parameters.
func (d dialect) rebind(query string) string {
	if !d.dollarParams {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// BuildDSN constructs the driver-specific data source name for c.
func BuildDSN(c Connection) (string, error) {
	if c.DSN != "" {
		return c.DSN, nil
	}
	switch c.Driver {
	case "", DriverSQLite:
		return buildSQLiteDSN(c)
	case DriverMySQL:
		return buildMySQLDSN(c), nil
	case DriverPostgres:
		return buildPostgresDSN(c), nil
	default:
		return "", fmt.Errorf("unsupported driver: %s", c.Driver)
	}
}

// buildSQLiteDSN makes sure the parent directory exists and enables WAL with
// a busy timeout.
func buildSQLiteDSN(c Connection) (string, error) {
	if c.Path == "" {
		return "", fmt.Errorf("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(c.Path), 0755); err != nil {
		return "", fmt.Errorf("create db directory: %w", err)
	}
	return c.Path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", nil
}

func buildMySQLDSN(c Connection) string {
	port := c.Port
	if port == 0 {
		port = 3306
	}
	// Format: user:password@tcp(host:port)/dbname?parseTime=true
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		c.Username, c.Password, c.Host, port, c.Database,
	)
	if c.SSLMode == "require" {
		dsn += "&tls=true"
	}
	return dsn
}

func buildPostgresDSN(c Connection) string {
	port := c.Port
	if port == 0 {
		port = 5432
	}
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, port, c.Username, c.Password, c.Database, sslMode,
	)
}
