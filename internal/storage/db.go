package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	migrate "github.com/rubenv/sql-migrate"
	sqldblogger "github.com/simukti/sqldb-logger"
)

// ErrStore marks failures of the backing store (schema, clear, insert, commit, query).
var ErrStore = errors.New("store error")

//go:embed migrations/*.sql
var dbMigrations embed.FS

// DB wraps the database connection together with its dialect.
type DB struct {
	conn    *sql.DB
	dialect dialect
}

// Options tune how the connection is opened.
type Options struct {
	// TraceSQL logs every statement at debug level.
	TraceSQL bool
}

// Open connects to the store described by c and runs pending migrations.
// The countries table itself is not created here; it belongs to the loader.
func Open(c Connection, opts Options) (*DB, error) {
	d, err := lookupDialect(c.Driver)
	if err != nil {
		return nil, err
	}
	dsn, err := BuildDSN(c)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(d.name, dsn)
	if err != nil {
		return nil, storeErr("open "+d.name, err)
	}
	if opts.TraceSQL {
		traced := sqldblogger.OpenDriver(dsn, conn.Driver(), &statementLogger{})
		conn.Close()
		conn = traced
	}
	if d.name == DriverSQLite {
		// SQLite only supports one writer; a single connection avoids SQLITE_BUSY.
		conn.SetMaxOpenConns(1)
	}

	db := &DB{conn: conn, dialect: d}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, storeErr("migrate", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the connection is usable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Driver returns the configured driver name.
func (db *DB) Driver() string {
	return db.dialect.name
}

func (db *DB) migrate() error {
	src := migrate.EmbedFileSystemMigrationSource{
		FileSystem: dbMigrations,
		Root:       "migrations",
	}
	n, err := migrate.Exec(db.conn, db.dialect.migrateDialect, src, migrate.Up)
	if err != nil {
		return err
	}
	if n > 0 {
		slog.Debug("storage: applied migrations", "count", n, "driver", db.dialect.name)
	}
	return nil
}

func (db *DB) tableExists(ctx context.Context, table string) (bool, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, db.dialect.rebind(db.dialect.tableExists), table).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// storeErr wraps err so callers can match it with errors.Is(err, ErrStore).
func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}

type statementLogger struct{}

func (statementLogger) Log(ctx context.Context, level sqldblogger.Level, msg string, data map[string]interface{}) {
	lvl := slog.LevelDebug
	if level == sqldblogger.LevelError {
		lvl = slog.LevelError
	}
	slog.Log(ctx, lvl, "storage: "+msg, "data", data)
}
