package datagen

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pgEdge/pgedge-retail-etl/internal/logging"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{1024 * 1024, "1.00 MB"},
		{5 * 1024 * 1024 * 1024, "5.00 GB"},
		{2 * 1024 * 1024 * 1024 * 1024, "2.00 TB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatSize(tt.bytes); got != tt.want {
				t.Errorf("FormatSize(%d) = %q, want %q", tt.bytes, got, tt.want)
			}
		})
	}
}

func TestDefaultBatchConfig(t *testing.T) {
	cfg := DefaultBatchConfig()
	if cfg.BatchSize != 1000 {
		t.Errorf("Expected BatchSize 1000, got %d", cfg.BatchSize)
	}
	if cfg.ProgressInterval != 10000 {
		t.Errorf("Expected ProgressInterval 10000, got %d", cfg.ProgressInterval)
	}
}

func TestProgressReporter(t *testing.T) {
	var buf bytes.Buffer
	logging.Init(logging.Config{Level: "info", Output: &buf})
	defer logging.Init(logging.DefaultConfig())

	p := NewProgressReporter("stg_retail_transactions", 0, 100)
	p.Update(60)
	if strings.Contains(buf.String(), "Loading rows") {
		t.Error("Should not log before crossing the interval")
	}

	p.Update(60)
	out := buf.String()
	if !strings.Contains(out, "Loading rows") {
		t.Fatalf("Expected progress line, got %q", out)
	}
	if strings.Contains(out, "percent") {
		t.Errorf("Percent should be omitted when the total is unknown: %q", out)
	}

	p.Done()
	if !strings.Contains(buf.String(), "Table complete") {
		t.Error("Expected completion line")
	}
	if p.Rows() != 120 {
		t.Errorf("Expected 120 rows, got %d", p.Rows())
	}
}

func TestProgressReporterWithTotal(t *testing.T) {
	var buf bytes.Buffer
	logging.Init(logging.Config{Level: "info", Output: &buf})
	defer logging.Init(logging.DefaultConfig())

	p := NewProgressReporter("sales.csv", 200, 100)
	p.Update(100)
	if !strings.Contains(buf.String(), `"percent":50`) {
		t.Errorf("Expected percent field, got %q", buf.String())
	}
}

func TestProgressReporterDefaultInterval(t *testing.T) {
	p := NewProgressReporter("t", 0, 0)
	if p.progressInterval != DefaultBatchConfig().ProgressInterval {
		t.Errorf("Expected default interval, got %d", p.progressInterval)
	}
}
