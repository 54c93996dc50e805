package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/pgEdge/pgedge-retail-etl/internal/db"
)

// metadataDB answers the metadata lookups made before a run starts.
type metadataDB struct {
	db.DB
	tableExists bool
	runID       string
	runErr      error
}

func (m *metadataDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if strings.Contains(sql, "information_schema.tables") {
		return valueRow{value: m.tableExists}
	}
	if m.runErr != nil {
		return valueRow{err: m.runErr}
	}
	return valueRow{value: m.runID}
}

type valueRow struct {
	value any
	err   error
}

func (r valueRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	switch d := dest[0].(type) {
	case *bool:
		*d = r.value.(bool)
	case *string:
		*d = r.value.(string)
	}
	return nil
}

func TestStageRecordsTiming(t *testing.T) {
	p := New(nil, Config{RunID: "r1"})
	summary := &Summary{}

	calls := 0
	if err := p.stage(summary, StageSchema, func() error {
		calls++
		return nil
	}); err != nil {
		t.Fatalf("stage failed: %v", err)
	}

	if calls != 1 {
		t.Errorf("Expected stage function to run once, ran %d times", calls)
	}
	if len(summary.Stages) != 1 || summary.Stages[0].Stage != StageSchema {
		t.Errorf("Unexpected stage timings: %+v", summary.Stages)
	}
}

func TestStageWrapsError(t *testing.T) {
	p := New(nil, Config{})
	summary := &Summary{}
	boom := errors.New("boom")

	err := p.stage(summary, StageStaging, func() error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("Expected wrapped error, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "staging stage failed") {
		t.Errorf("Error should name the stage: %v", err)
	}
	if len(summary.Stages) != 0 {
		t.Errorf("Failed stage should not be recorded: %+v", summary.Stages)
	}
}

func TestPreviousRun(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name    string
		conn    *metadataDB
		want    string
		wantErr error
	}{
		{name: "no metadata table", conn: &metadataDB{}, want: ""},
		{name: "no run recorded", conn: &metadataDB{tableExists: true, runErr: pgx.ErrNoRows}, want: ""},
		{name: "run recorded", conn: &metadataDB{tableExists: true, runID: "r0"}, want: "r0"},
		{name: "query error", conn: &metadataDB{tableExists: true, runErr: boom}, wantErr: boom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(tt.conn, Config{}).previousRun(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
			}
			if got != tt.want {
				t.Errorf("Expected previous run %q, got %q", tt.want, got)
			}
		})
	}
}
