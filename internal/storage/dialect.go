package storage

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/student-auth/studentauth/internal/errors"
)

// Dialect captures the differences between the supported SQL databases.
type Dialect struct {
	// Name is the database/sql driver name.
	Name string
}

var (
	// Postgres is the production dialect, backed by github.com/lib/pq.
	Postgres = Dialect{Name: "postgres"}

	// SQLite is the embedded dialect, backed by modernc.org/sqlite.
	SQLite = Dialect{Name: "sqlite"}
)

// DialectFor returns the dialect for a configured driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case Postgres.Name:
		return Postgres, nil
	case SQLite.Name:
		return SQLite, nil
	default:
		return Dialect{}, errors.NewInvalidConfig("database.driver", fmt.Sprintf("unsupported driver %q", driver))
	}
}

// Rebind rewrites '?' placeholders into the dialect's syntax. Queries in
// this package are written with '?' and never contain literal question marks.
func (d Dialect) Rebind(query string) string {
	if d.Name != Postgres.Name {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
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

// isUniqueViolation reports whether err is a unique constraint failure.
func (d Dialect) isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if stderrors.As(err, &liteErr) {
		return liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}

// Open connects to the database, verifies connectivity with retry and
// returns the pool.
func Open(ctx context.Context, d Dialect, dsn string, retry RetryConfig) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.NewDatabaseUnavailable("no connection string configured")
	}
	db, err := sql.Open(d.Name, dsn)
	if err != nil {
		return nil, errors.NewDatabaseUnavailable(err.Error())
	}

	if d.Name == SQLite.Name {
		// Every connection to ":memory:" is a separate database, and SQLite
		// serializes writers anyway.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
	}

	result := ExecuteWithRetry(ctx, retry, func() error {
		return db.PingContext(ctx)
	})
	if !result.Success {
		db.Close()
		return nil, errors.NewDatabaseUnavailable((&RetryableError{Result: result}).Error())
	}
	return db, nil
}
