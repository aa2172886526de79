package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hlop3z/litestore/internal/alerr"
	"github.com/hlop3z/litestore/internal/dialect"
	"github.com/hlop3z/litestore/internal/introspect"
)

// Version tracking table schema:
// CREATE TABLE litestore_versions (
//     table_name  TEXT PRIMARY KEY,
//     version     TEXT NOT NULL,
//     fingerprint TEXT,
//     applied_at  TEXT NOT NULL
// )

// DB is the subset of *sql.DB, *sql.Conn and *sql.Tx the engine runs against.
type DB interface {
	introspect.Querier
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// AppliedVersion is the last version migrated for one table.
type AppliedVersion struct {
	Table       string
	Version     string
	Fingerprint string
	AppliedAt   time.Time
}

// VersionManager handles the litestore_versions bookkeeping table.
type VersionManager struct {
	db      DB
	dialect dialect.Dialect
}

// NewVersionManager creates a new VersionManager.
func NewVersionManager(db DB, d dialect.Dialect) *VersionManager {
	return &VersionManager{
		db:      db,
		dialect: d,
	}
}

// EnsureTable creates the bookkeeping table if it doesn't exist.
func (v *VersionManager) EnsureTable(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    table_name  TEXT PRIMARY KEY,
    version     TEXT NOT NULL,
    fingerprint TEXT,
    applied_at  TEXT NOT NULL
)`, v.dialect.QuoteIdent(introspect.VersionsTable))

	if _, err := v.db.ExecContext(ctx, query); err != nil {
		return alerr.WrapEngine(err, "create versions table", introspect.VersionsTable, query)
	}
	return nil
}

// Get returns the recorded version of table, or nil when none was recorded.
func (v *VersionManager) Get(ctx context.Context, table string) (*AppliedVersion, error) {
	query := fmt.Sprintf(
		"SELECT table_name, version, fingerprint, applied_at FROM %s WHERE table_name = ?",
		v.dialect.QuoteIdent(introspect.VersionsTable),
	)

	rec, err := scanVersion(v.db.QueryRowContext(ctx, query, table))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, alerr.WrapEngine(err, "read applied version", table, query)
	}
	return rec, nil
}

// List returns every recorded version ordered by table name.
func (v *VersionManager) List(ctx context.Context) ([]AppliedVersion, error) {
	query := fmt.Sprintf(
		"SELECT table_name, version, fingerprint, applied_at FROM %s ORDER BY table_name ASC",
		v.dialect.QuoteIdent(introspect.VersionsTable),
	)

	rows, err := v.db.QueryContext(ctx, query)
	if err != nil {
		return nil, alerr.WrapEngine(err, "list applied versions", introspect.VersionsTable, query)
	}
	defer rows.Close()

	var out []AppliedVersion
	for rows.Next() {
		rec, err := scanVersion(rows)
		if err != nil {
			return nil, alerr.WrapEngine(err, "scan applied version", introspect.VersionsTable, query)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, alerr.WrapEngine(err, "list applied versions", introspect.VersionsTable, query)
	}
	return out, nil
}

// Record stores the version and fingerprint a table was migrated to.
func (v *VersionManager) Record(ctx context.Context, rec AppliedVersion) error {
	if rec.AppliedAt.IsZero() {
		rec.AppliedAt = time.Now()
	}
	query := fmt.Sprintf(
		"INSERT OR REPLACE INTO %s (table_name, version, fingerprint, applied_at) VALUES (?, ?, ?, ?)",
		v.dialect.QuoteIdent(introspect.VersionsTable),
	)

	_, err := v.db.ExecContext(ctx, query,
		rec.Table, rec.Version, rec.Fingerprint, rec.AppliedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return alerr.WrapEngine(err, "record applied version", rec.Table, query)
	}
	return nil
}

// Forget removes the record of table. Used when a table is dropped.
func (v *VersionManager) Forget(ctx context.Context, table string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE table_name = ?", v.dialect.QuoteIdent(introspect.VersionsTable))
	if _, err := v.db.ExecContext(ctx, query, table); err != nil {
		return alerr.WrapEngine(err, "forget applied version", table, query)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVersion(row rowScanner) (*AppliedVersion, error) {
	var (
		rec         AppliedVersion
		fingerprint sql.NullString
		appliedAt   string
	)
	if err := row.Scan(&rec.Table, &rec.Version, &fingerprint, &appliedAt); err != nil {
		return nil, err
	}
	rec.Fingerprint = fingerprint.String
	if t, err := time.Parse(time.RFC3339, appliedAt); err == nil {
		rec.AppliedAt = t
	}
	return &rec, nil
}

// CompareVersions compares dotted version strings segment by segment.
// Numeric segments compare as numbers, so 0.0.10 > 0.0.9; missing segments
// count as zero. Returns -1, 0 or 1.
func CompareVersions(a, b string) int {
	as := strings.Split(strings.TrimSpace(a), ".")
	bs := strings.Split(strings.TrimSpace(b), ".")

	for i := 0; i < max(len(as), len(bs)); i++ {
		x, y := segment(as, i), segment(bs, i)

		xn, xerr := strconv.Atoi(x)
		yn, yerr := strconv.Atoi(y)
		if xerr == nil && yerr == nil {
			if xn != yn {
				if xn < yn {
					return -1
				}
				return 1
			}
			continue
		}
		if c := strings.Compare(x, y); c != 0 {
			return c
		}
	}
	return 0
}

func segment(parts []string, i int) string {
	if i >= len(parts) || parts[i] == "" {
		return "0"
	}
	return parts[i]
}
