// Package storage persists dimension options in SQLite.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"budgetfilter/internal/dimension"
	"budgetfilter/internal/log"
)

const driverName = "sqlite"

func init() {
	sqlx.BindDriver(driverName, sqlx.QUESTION)
}

// optionRow mirrors a dimension_options row.
type optionRow struct {
	Field    string `db:"field"`
	Code     string `db:"code"`
	Label    string `db:"label"`
	Position int    `db:"position"`
}

// OptionStore is the SQLite-backed option source.
type OptionStore struct {
	db     *sqlx.DB
	logger *log.Logger
}

// Open creates the database directory if needed, migrates the schema and
// returns a ready store.
func Open(dbPath string, logger *log.Logger) (*OptionStore, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	return &OptionStore{db: db, logger: logger.WithComponent(log.ComponentStorage)}, nil
}

// Close closes the database.
func (s *OptionStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (s *OptionStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Options returns the stored options of field in position order.
func (s *OptionStore) Options(ctx context.Context, field dimension.Field) ([]dimension.Option, error) {
	var rows []optionRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT field, code, label, position FROM dimension_options WHERE field = ? ORDER BY position, code`,
		string(field))
	if err != nil {
		return nil, fmt.Errorf("select %s options: %w", field, err)
	}

	opts := make([]dimension.Option, len(rows))
	for i, r := range rows {
		opts[i] = dimension.Option{Code: r.Code, Label: r.Label}
	}
	return opts, nil
}

// ReplaceOptions swaps every option of field in one transaction.
// Duplicate and blank codes are dropped, first occurrence wins.
func (s *OptionStore) ReplaceOptions(ctx context.Context, field dimension.Field, opts []dimension.Option) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM dimension_options WHERE field = ?`, string(field)); err != nil {
		return fmt.Errorf("delete %s options: %w", field, err)
	}

	seen := make(map[string]struct{}, len(opts))
	position := 0
	for _, o := range opts {
		code := strings.TrimSpace(o.Code)
		if code == "" {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}

		label := strings.TrimSpace(o.Label)
		if label == "" {
			label = code
		}
		row := optionRow{Field: string(field), Code: code, Label: label, Position: position}
		if _, err = tx.NamedExecContext(ctx,
			`INSERT INTO dimension_options (field, code, label, position) VALUES (:field, :code, :label, :position)`,
			row); err != nil {
			return fmt.Errorf("insert %s option %q: %w", field, code, err)
		}
		position++
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit %s options: %w", field, err)
	}

	s.logger.InfoContext(ctx, "Dimension options replaced",
		log.FieldField, string(field),
		log.FieldCount, position)
	return nil
}

// Count returns the number of stored options per field.
func (s *OptionStore) Count(ctx context.Context) (map[dimension.Field]int, error) {
	var rows []struct {
		Field string `db:"field"`
		N     int    `db:"n"`
	}
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT field, COUNT(*) AS n FROM dimension_options GROUP BY field`); err != nil {
		return nil, fmt.Errorf("count options: %w", err)
	}
	out := make(map[dimension.Field]int, len(rows))
	for _, r := range rows {
		out[dimension.Field(r.Field)] = r.N
	}
	return out, nil
}
