package infra

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// SQLExecutor defines the contract required by repositories for executing SQL queries.
type SQLExecutor interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
}

// Transactor runs fn inside one database transaction. The executor handed to
// fn applies the same marker checks as the runner.
type Transactor interface {
	InTx(ctx context.Context, fn func(SQLExecutor) error) error
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ErrMissingMarker is returned for queries that do not start with a --sql <uuid> line.
var ErrMissingMarker = errors.New("sql marker missing or invalid")

var markerRegexp = regexp.MustCompile(`^--sql [0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// SQLRunner executes marked queries against the pool and logs them by marker.
type SQLRunner struct {
	Pool   *pgxpool.Pool
	Logger zerolog.Logger
}

func NewSQLRunner(pool *pgxpool.Pool, logger zerolog.Logger) *SQLRunner {
	return &SQLRunner{Pool: pool, Logger: logger.With().Str("component", "sql").Logger()}
}

func (r *SQLRunner) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	return markedExec(ctx, r.Pool, r.Logger, query, args...)
}

func (r *SQLRunner) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return markedQueryRow(ctx, r.Pool, r.Logger, query, args...)
}

func (r *SQLRunner) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return markedQuery(ctx, r.Pool, r.Logger, query, args...)
}

// InTx commits when fn returns nil and rolls back otherwise.
func (r *SQLRunner) InTx(ctx context.Context, fn func(SQLExecutor) error) error {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(txRunner{tx: tx, logger: r.Logger}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			r.Logger.Error().Err(rbErr).Msg("sql rollback failed")
		}
		return err
	}
	return tx.Commit(ctx)
}

type txRunner struct {
	tx     pgx.Tx
	logger zerolog.Logger
}

func (t txRunner) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	return markedExec(ctx, t.tx, t.logger, query, args...)
}

func (t txRunner) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return markedQueryRow(ctx, t.tx, t.logger, query, args...)
}

func (t txRunner) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return markedQuery(ctx, t.tx, t.logger, query, args...)
}

func markedExec(ctx context.Context, db querier, logger zerolog.Logger, query string, args ...any) (pgconn.CommandTag, error) {
	marker, trimmed, err := ExtractMarker(query)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	start := time.Now()
	tag, err := db.Exec(ctx, trimmed, args...)
	if err != nil {
		logger.Error().Err(err).Str("marker", marker).Msg("sql exec failed")
		return tag, err
	}
	logger.Debug().
		Str("marker", marker).
		Int64("rows", tag.RowsAffected()).
		Dur("elapsed", time.Since(start)).
		Msg("sql exec")
	return tag, nil
}

func markedQueryRow(ctx context.Context, db querier, logger zerolog.Logger, query string, args ...any) pgx.Row {
	marker, trimmed, err := ExtractMarker(query)
	if err != nil {
		return errorRow{err: err}
	}
	logger.Debug().Str("marker", marker).Msg("sql query_row")
	row := db.QueryRow(ctx, trimmed, args...)
	return loggingRow{row: row, logger: logger, marker: marker}
}

func markedQuery(ctx context.Context, db querier, logger zerolog.Logger, query string, args ...any) (pgx.Rows, error) {
	marker, trimmed, err := ExtractMarker(query)
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("marker", marker).Msg("sql query")
	rows, err := db.Query(ctx, trimmed, args...)
	if err != nil {
		logger.Error().Err(err).Str("marker", marker).Msg("sql query failed")
		return nil, err
	}
	return rows, nil
}

// IsNoRows reports whether err signals an empty result set.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsUniqueViolation reports whether err is a Postgres unique_violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type loggingRow struct {
	row    pgx.Row
	logger zerolog.Logger
	marker string
}

func (l loggingRow) Scan(dest ...any) error {
	err := l.row.Scan(dest...)
	// Empty results are expected control flow for lookups and claims.
	if err != nil && !IsNoRows(err) {
		l.logger.Error().Err(err).Str("marker", l.marker).Msg("sql scan failed")
	}
	return err
}

type errorRow struct {
	err error
}

func (e errorRow) Scan(dest ...any) error {
	return e.err
}

// ExtractMarker splits a marked query into its marker id and executable SQL.
func ExtractMarker(query string) (string, string, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return "", "", errors.New("empty query")
	}
	lines := strings.Split(trimmed, "\n")
	markerLine := strings.TrimSpace(lines[0])
	if !markerRegexp.MatchString(markerLine) {
		return "", "", ErrMissingMarker
	}
	return strings.TrimPrefix(markerLine, "--sql "), strings.Join(lines[1:], "\n"), nil
}

var (
	_ SQLExecutor = (*SQLRunner)(nil)
	_ Transactor  = (*SQLRunner)(nil)
	_ SQLExecutor = txRunner{}
)
