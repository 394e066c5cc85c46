//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveCycle(t *testing.T) {
	c := NewCollector()
	c.ObserveCycle("security", OutcomeCommitted, 2, 10*time.Millisecond)
	c.ObserveCycle("security", OutcomeFailed, 0, time.Millisecond)

	if got := testutil.ToFloat64(c.cycles.WithLabelValues("security", OutcomeCommitted)); got != 1 {
		t.Errorf("Expected 1 committed cycle, got %v", got)
	}
	if got := testutil.ToFloat64(c.cycles.WithLabelValues("security", OutcomeFailed)); got != 1 {
		t.Errorf("Expected 1 failed cycle, got %v", got)
	}
	if got := testutil.ToFloat64(c.rowsStaged.WithLabelValues("security")); got != 2 {
		t.Errorf("Expected 2 staged rows, got %v", got)
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.ObserveCycle("security", OutcomeCommitted, 1, time.Second)
	c.ObserveMergeDropped("locate", 3)
	if c.Registry() != nil {
		t.Error("Expected nil registry for nil collector")
	}
}

func TestHandler(t *testing.T) {
	c := NewCollector()
	c.ObserveMergeDropped("locate", 3)

	srv := httptest.NewServer(c.Handler(func(context.Context) error { return nil }))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics error: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	if !strings.Contains(string(body), `refsync_merge_rows_dropped_total{view="locate"} 3`) {
		t.Errorf("Expected merge drop counter in output, got:\n%s", body)
	}

	unhealthy := httptest.NewServer(c.Handler(func(context.Context) error { return errors.New("down") }))
	defer unhealthy.Close()
	resp2, err := http.Get(unhealthy.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health error: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", resp2.StatusCode)
	}
}

func TestWriteTextfile(t *testing.T) {
	c := NewCollector()
	c.ObserveMergeDropped("locate", 2)

	path := filepath.Join(t.TempDir(), "refsync.prom")
	if err := c.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", path, err)
	}

	out := string(data)
	if !strings.Contains(out, `refsync_merge_rows_dropped_total{view="locate"} 2`) {
		t.Errorf("Expected merge drop counter in output, got:\n%s", out)
	}
	if strings.Contains(out, "go_goroutines") {
		t.Errorf("Expected runtime metrics to be left out, got:\n%s", out)
	}
}
