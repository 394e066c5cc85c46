//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestWithCycleJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Output: &buf})
	defer Init(DefaultConfig())

	l := WithCycle("c-1", "security")
	l.Info().Int64("rows", 2).Msg("Cycle committed")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse log line %q: %v", buf.String(), err)
	}
	if entry["cycle_id"] != "c-1" {
		t.Errorf("Expected cycle_id 'c-1', got '%v'", entry["cycle_id"])
	}
	if entry["entity"] != "security" {
		t.Errorf("Expected entity 'security', got '%v'", entry["entity"])
	}
	if entry["message"] != "Cycle committed" {
		t.Errorf("Expected message 'Cycle committed', got '%v'", entry["message"])
	}
}

func TestInitLevel(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Output: &buf})
	defer Init(DefaultConfig())

	Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("Expected info to be filtered at warn level, got %q", buf.String())
	}
	Warn().Msg("shown")
	if buf.Len() == 0 {
		t.Error("Expected warn line to be written")
	}
}

func TestInitBadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "loud", Output: &buf})
	defer Init(DefaultConfig())

	Debug().Msg("hidden")
	Info().Msg("shown")
	if !bytes.Contains(buf.Bytes(), []byte("shown")) || bytes.Contains(buf.Bytes(), []byte("hidden")) {
		t.Errorf("Expected only the info line, got %q", buf.String())
	}
}
