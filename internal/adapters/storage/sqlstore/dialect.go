package sqlstore

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Supported driver names, as registered with database/sql.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

type dialect struct {
	driver        string
	timestampType string
	positional    bool
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverSQLite:
		return dialect{driver: driver, timestampType: "TIMESTAMP"}, nil
	case DriverPostgres:
		return dialect{driver: driver, timestampType: "TIMESTAMPTZ", positional: true}, nil
	default:
		return dialect{}, fmt.Errorf("unsupported storage driver %q", driver)
	}
}

// rebind rewrites ? placeholders as $1, $2, ... for postgres.
func (d dialect) rebind(query string) string {
	if !d.positional {
		return query
	}

	var (
		b strings.Builder
		n int
	)

	b.Grow(len(query) + 8)

	for _, r := range query {
		if r != '?' {
			b.WriteRune(r)
			continue
		}

		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}

	return b.String()
}

func (d dialect) schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS posts (
			id         TEXT PRIMARY KEY,
			title      TEXT NOT NULL,
			content    TEXT NOT NULL,
			tags       TEXT NOT NULL DEFAULT '[]',
			status     TEXT NOT NULL,
			author     TEXT NOT NULL,
			slug       TEXT UNIQUE,
			created_at ` + d.timestampType + ` NOT NULL,
			updated_at ` + d.timestampType + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_updated_at ON posts (updated_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_status ON posts (status)`,
	}
}

// isUniqueViolation recognises unique constraint failures of both drivers.
func isUniqueViolation(err error) bool {
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	return false
}

// violatedColumn guesses which unique column failed from the driver message.
func violatedColumn(err error) string {
	msg := err.Error()
	if strings.Contains(msg, "slug") {
		return "slug"
	}

	return "id"
}
