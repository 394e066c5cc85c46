//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package feed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/pgEdge/pgedge-refsync/internal/catalog/jpmlocate"
	"github.com/pgEdge/pgedge-refsync/internal/config"
)

// objectStore serves path-style GET requests (/bucket/key) from memory.
type objectStore struct {
	mu       sync.Mutex
	objects  map[string]string
	requests []string
}

func (m *objectStore) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req.Method+" "+req.URL.Path)

	body, ok := m.objects[strings.TrimPrefix(req.URL.Path, "/")]
	if req.Method != http.MethodGet || !ok {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Body:       io.NopCloser(bytes.NewReader(nil)),
			Header:     http.Header{},
		}, nil
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header: http.Header{
			"Content-Length": {fmt.Sprintf("%d", len(body))},
			"Content-Type":   {"text/plain"},
			"ETag":           {"\"etag\""},
		},
	}, nil
}

func newTestS3Source(store *objectStore) *s3Source {
	return &s3Source{
		httpClient:  &http.Client{Transport: store},
		credentials: credentials.NewStaticCredentialsProvider("AKIA", "SECRET", ""),
	}
}

func s3Feed(key string) *config.FeedConfig {
	return &config.FeedConfig{
		Name:      "jpm-s3",
		Source:    config.SourceS3,
		Bucket:    "refdata",
		Key:       key,
		Endpoint:  "https://mock.s3.local",
		PathStyle: true,
	}
}

func TestS3SourceReadsCSVAndJSON(t *testing.T) {
	store := &objectStore{objects: map[string]string{
		"refdata/locate/jpm.csv":  "FundName|Currency|RebateRate\nFUND1|USD|0.05\nFUND2|EUR|0.01\n",
		"refdata/locate/jpm.json": `[{"FundName":"FUND3","Currency":"GBP","RebateRate":"0.02"}]`,
	}}
	src := newTestS3Source(store)
	ctx := context.Background()
	e := jpmlocate.New()

	f := s3Feed("locate/jpm.csv")
	f.Delimiter = "|"
	recs, err := src.Read(ctx, f, e)
	if err != nil {
		t.Fatalf("Read(csv) error: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(recs))
	}
	if got := recs[1].Get("FundName").String(); got != "FUND2" {
		t.Errorf("Expected FUND2, got %s", got)
	}

	recs, err = src.Read(ctx, s3Feed("locate/jpm.json"), e)
	if err != nil {
		t.Fatalf("Read(json) error: %v", err)
	}
	if len(recs) != 1 || recs[0].Get("Currency").String() != "GBP" {
		t.Errorf("Unexpected json records: %v", recs)
	}

	if len(store.requests) != 2 || store.requests[0] != "GET /refdata/locate/jpm.csv" {
		t.Errorf("Unexpected requests: %v", store.requests)
	}
}

func TestS3SourceMissingObject(t *testing.T) {
	src := newTestS3Source(&objectStore{objects: map[string]string{}})

	_, err := src.Read(context.Background(), s3Feed("missing.csv"), jpmlocate.New())
	if err == nil {
		t.Fatal("Expected error for a missing object, got nil")
	}
	if !strings.Contains(err.Error(), "s3://refdata/missing.csv") {
		t.Errorf("Expected error to name the object, got %v", err)
	}
}
