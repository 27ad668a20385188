package s3blob

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

type memWriter struct {
	objects      map[string][]byte
	contentTypes map[string]string
}

func newMemWriter() *memWriter {
	return &memWriter{objects: map[string][]byte{}, contentTypes: map[string]string{}}
}

func (m *memWriter) Put(_ context.Context, p string, data io.Reader, contentType string) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m.objects[p] = b
	m.contentTypes[p] = contentType
	return nil
}

func (m *memWriter) PutMultipart(_ context.Context, p string, data io.Reader, _ int64) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m.objects[p] = b
	return nil
}

func TestArchiveSessionLayout(t *testing.T) {
	w := newMemWriter()
	a := NewArchiver(w, "/sessions/", "abc123")

	start := time.Date(2024, 3, 9, 23, 30, 0, 0, time.UTC)
	summary := domain.SessionSummary{StartedAt: start, EndedAt: start.Add(time.Hour), Scans: 12, TradeCount: 2, FinalPnL: 0.4}
	trades := []domain.Trade{
		{ID: "t1", MarketID: "m1", Outcome: domain.OutcomeYes, Price: 0.45, Size: 10},
		{ID: "t2", MarketID: "m1", Outcome: domain.OutcomeNo, Price: 0.5, Size: 10},
	}

	dir, err := a.ArchiveSession(context.Background(), summary, trades, nil)
	if err != nil {
		t.Fatalf("ArchiveSession: %v", err)
	}
	if dir != "sessions/2024-03-09/abc123" {
		t.Fatalf("dir = %q", dir)
	}

	if _, ok := w.objects[dir+"/opportunities.jsonl"]; ok {
		t.Error("empty opportunity journal uploaded")
	}

	lines := 0
	sc := bufio.NewScanner(bytes.NewReader(w.objects[dir+"/trades.jsonl"]))
	for sc.Scan() {
		var tr domain.Trade
		if err := json.Unmarshal(sc.Bytes(), &tr); err != nil {
			t.Fatalf("line %d: %v", lines, err)
		}
		lines++
	}
	if lines != 2 {
		t.Errorf("trades.jsonl has %d lines, want 2", lines)
	}
	if ct := w.contentTypes[dir+"/trades.jsonl"]; ct != jsonlContentType {
		t.Errorf("content type = %q", ct)
	}

	var got sessionSummaryFile
	if err := json.Unmarshal(w.objects[dir+"/summary.json"], &got); err != nil {
		t.Fatalf("summary.json: %v", err)
	}
	if got.SessionID != "abc123" || got.Scans != 12 || got.TradeCount != 2 {
		t.Errorf("summary = %+v", got)
	}
}

func TestNormaliseEndpoint(t *testing.T) {
	tests := []struct {
		in     string
		ssl    bool
		expect string
	}{
		{"minio:9000", false, "http://minio:9000"},
		{"s3.example.com", true, "https://s3.example.com"},
		{"https://r2.example.com", false, "https://r2.example.com"},
	}
	for _, tt := range tests {
		if got := normaliseEndpoint(tt.in, tt.ssl); got != tt.expect {
			t.Errorf("normaliseEndpoint(%q, %v) = %q, want %q", tt.in, tt.ssl, got, tt.expect)
		}
	}
}

func TestClientOptions(t *testing.T) {
	var o s3.Options
	ClientConfig{Endpoint: "minio:9000", ForcePathStyle: true}.apply(&o)
	if o.BaseEndpoint == nil || *o.BaseEndpoint != "http://minio:9000" || !o.UsePathStyle {
		t.Fatalf("options = %+v", o)
	}

	o = s3.Options{}
	ClientConfig{Region: "us-east-1"}.apply(&o)
	if o.BaseEndpoint != nil || o.UsePathStyle {
		t.Fatalf("AWS options = %+v", o)
	}
}
