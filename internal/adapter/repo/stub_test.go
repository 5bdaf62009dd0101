package repo

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"contentgen/internal/infra"
)

type call struct {
	query string
	args  []any
}

// stubExecutor answers QueryRow with the scripted row for the query's marker.
type stubExecutor struct {
	rows  map[string]stubRow
	execs []call
	calls []call
	err   error
}

func newStubExecutor() *stubExecutor {
	return &stubExecutor{rows: map[string]stubRow{}}
}

func (s *stubExecutor) on(query string, row stubRow) {
	marker, _, err := infra.ExtractMarker(query)
	if err != nil {
		panic(err)
	}
	s.rows[marker] = row
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.execs = append(s.execs, call{query: query, args: args})
	return pgconn.NewCommandTag("UPDATE 1"), s.err
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	s.calls = append(s.calls, call{query: query, args: args})
	marker, _, err := infra.ExtractMarker(query)
	if err != nil {
		return stubRow{err: err}
	}
	row, ok := s.rows[marker]
	if !ok {
		return stubRow{err: pgx.ErrNoRows}
	}
	return row
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

// stubTxExecutor runs InTx callbacks against the same scripted executor.
type stubTxExecutor struct {
	*stubExecutor
	txs int
}

func (s *stubTxExecutor) InTx(ctx context.Context, fn func(infra.SQLExecutor) error) error {
	s.txs++
	return fn(s.stubExecutor)
}

type stubRow struct {
	values []any
	err    error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("scan: got %d destinations, have %d values", len(dest), len(r.values))
	}
	for i, v := range r.values {
		if v == nil {
			continue
		}
		target := reflect.ValueOf(dest[i]).Elem()
		target.Set(reflect.ValueOf(v))
	}
	return nil
}
