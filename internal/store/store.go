package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"tisops-insights-go/internal/logger"
)

const (
	DriverSQLite = "sqlite3"
	DriverMySQL  = "mysql"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidEntry = errors.New("invalid registry entry")
)

// newBackOff bounds every retried database call.
var newBackOff = func() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 10 * time.Second
	return b
}

type Store struct {
	db     *sql.DB
	driver string
	log    *logrus.Entry
}

// New wraps an already open handle. The schema is not touched.
func New(db *sql.DB, driver string) *Store {
	return &Store{
		db:     db,
		driver: driver,
		log:    logger.New().WithField("component", "store").WithField("driver", driver),
	}
}

// InitDB opens the database, waits for it to answer and applies the schema.
func InitDB(driver, dsn string) (*Store, error) {
	schema, ok := schemas[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	s := New(db, driver)

	if err := s.retry(context.Background(), "ping", db.Ping); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	if driver == DriverMySQL {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	} else {
		// a single writer avoids "database is locked" on concurrent imports
		db.SetMaxOpenConns(1)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	return s, nil
}

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

// transient reports whether err is worth another attempt: a dropped or
// refused connection, or a busy sqlite file. Query, scan and schema errors
// are final.
func transient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked
	}
	return false
}

func (s *Store) retry(ctx context.Context, op string, fn func() error) error {
	attempt := 0
	return backoff.RetryNotify(
		func() error {
			attempt++
			err := fn()
			if err != nil && !transient(err) {
				return backoff.Permanent(err)
			}
			return err
		},
		backoff.WithContext(newBackOff(), ctx),
		func(err error, wait time.Duration) {
			s.log.WithFields(logrus.Fields{
				"op":      op,
				"attempt": attempt,
				"wait":    wait.String(),
			}).WithError(err).Warn("database call failed, retrying")
		},
	)
}

var schemas = map[string][]string{
	DriverSQLite: {
		`CREATE TABLE IF NOT EXISTS registry_entries (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			kind          TEXT NOT NULL,
			match_key     TEXT NOT NULL,
			display_value TEXT NOT NULL,
			priority      INTEGER NOT NULL DEFAULT 0,
			is_active     INTEGER NOT NULL DEFAULT 1,
			created_at    DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_registry_kind ON registry_entries(kind)`,
		`CREATE TABLE IF NOT EXISTS incidents (
			request_id          TEXT PRIMARY KEY,
			subject             TEXT DEFAULT '',
			technician          TEXT DEFAULT '',
			priority            TEXT DEFAULT '',
			request_status      TEXT DEFAULT '',
			aplicativos         TEXT DEFAULT '',
			categorizacion      TEXT DEFAULT '',
			modulo              TEXT DEFAULT '',
			recurrencia         TEXT DEFAULT '',
			created_time        TEXT DEFAULT '',
			parent_ticket_id    TEXT DEFAULT '',
			linked_ticket_count INTEGER NOT NULL DEFAULT 0,
			import_batch        TEXT DEFAULT '',
			imported_at         DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	},
	DriverMySQL: {
		`CREATE TABLE IF NOT EXISTS registry_entries (
			id            BIGINT AUTO_INCREMENT PRIMARY KEY,
			kind          VARCHAR(32) NOT NULL,
			match_key     VARCHAR(255) NOT NULL,
			display_value VARCHAR(255) NOT NULL,
			priority      INT NOT NULL DEFAULT 0,
			is_active     TINYINT(1) NOT NULL DEFAULT 1,
			created_at    TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_registry_kind (kind)
		)`,
		`CREATE TABLE IF NOT EXISTS incidents (
			request_id          VARCHAR(64) PRIMARY KEY,
			subject             TEXT,
			technician          VARCHAR(255) DEFAULT '',
			priority            VARCHAR(64) DEFAULT '',
			request_status      VARCHAR(128) DEFAULT '',
			aplicativos         VARCHAR(255) DEFAULT '',
			categorizacion      VARCHAR(255) DEFAULT '',
			modulo              VARCHAR(255) DEFAULT '',
			recurrencia         VARCHAR(64) DEFAULT '',
			created_time        VARCHAR(64) DEFAULT '',
			parent_ticket_id    VARCHAR(64) DEFAULT '',
			linked_ticket_count INT NOT NULL DEFAULT 0,
			import_batch        VARCHAR(64) DEFAULT '',
			imported_at         TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	},
}
