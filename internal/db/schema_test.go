package db

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

type recordingExecer struct {
	sql string
	err error
}

func (r *recordingExecer) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	r.sql = sql
	return pgconn.CommandTag{}, r.err
}

func TestSchemaDeclaresArtifactIndexUniqueness(t *testing.T) {
	if !strings.Contains(Schema, "unique (job_id, item_index)") {
		t.Fatal("artifacts must be unique per (job_id, item_index)")
	}
	if !strings.Contains(Schema, "credit_ledger_reference_once") {
		t.Fatal("ledger must enforce one charge/refund per reference")
	}
}

func TestMigrateExecutesSchema(t *testing.T) {
	exec := &recordingExecer{}
	if err := Migrate(context.Background(), exec); err != nil {
		t.Fatalf("Migrate returned error: %v", err)
	}
	if exec.sql != Schema {
		t.Fatal("Migrate did not execute the embedded schema")
	}
}

func TestMigrateWrapsError(t *testing.T) {
	boom := errors.New("boom")
	err := Migrate(context.Background(), &recordingExecer{err: boom})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
