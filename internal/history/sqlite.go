package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/funnyzak/reqplay/internal/logger"

	_ "modernc.org/sqlite"
)

const sqliteDriverName = "sqlite"

// ErrStoreMissing indicates the history database file does not exist.
// Opening through database/sql would silently create an empty file, so the
// path is checked up front.
var ErrStoreMissing = errors.New("history database does not exist")

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store reads recorded requests from a sqlite history database. The replay
// tool never writes to it.
type Store struct {
	db    *sql.DB
	path  string
	table string
	log   logger.Logger
}

// Open opens the history database at path. It fails fast when the file is
// missing.
func Open(path, table string, log logger.Logger) (*Store, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve history path: %w", err)
	}
	if _, err := os.Stat(absPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrStoreMissing, absPath)
		}
		return nil, fmt.Errorf("stat history database: %w", err)
	}
	if !identPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid history table name %q", table)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&mode=ro", filepath.ToSlash(absPath))
	db, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	db.SetMaxOpenConns(1)

	return &Store{db: db, path: absPath, table: table, log: log}, nil
}

// Path returns the resolved database path.
func (s *Store) Path() string {
	return s.path
}

// Records returns every row of the history table projected onto the fixed
// column set, in insertion order. Query failures degrade to an empty result
// set with a logged error: callers treat "no rows" as a valid outcome and
// report it as an absence of processable records.
func (s *Store) Records(ctx context.Context) []Record {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid", strings.Join(Columns, ", "), s.table)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		s.log.Error("history query failed", "db", s.path, "table", s.table, "error", err)
		return nil
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec   Record
			label sql.NullString
			body  []byte
			code  sql.NullInt64
		)
		if err := rows.Scan(&rec.ID, &label, &rec.Method, &rec.Path, &body, &code); err != nil {
			s.log.Error("history row scan failed", "db", s.path, "error", err)
			return nil
		}
		rec.Label = label.String
		rec.Body = append([]byte(nil), body...)
		rec.ResponseCode = int(code.Int64)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		s.log.Error("history iteration failed", "db", s.path, "error", err)
		return nil
	}
	return records
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
