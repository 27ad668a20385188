package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

const (
	jsonlContentType = "application/x-ndjson"
	jsonContentType  = "application/json"
)

// Archiver implements domain.SessionArchiver. A session lands under
//
//	{prefix}/{YYYY-MM-DD}/{sessionID}/summary.json
//	{prefix}/{YYYY-MM-DD}/{sessionID}/trades.jsonl
//	{prefix}/{YYYY-MM-DD}/{sessionID}/opportunities.jsonl
//
// where the date is the session start in UTC.
type Archiver struct {
	writer    domain.BlobWriter
	prefix    string
	sessionID string
}

// NewArchiver creates an Archiver for one session.
func NewArchiver(writer domain.BlobWriter, prefix, sessionID string) *Archiver {
	return &Archiver{
		writer:    writer,
		prefix:    strings.Trim(prefix, "/"),
		sessionID: sessionID,
	}
}

// sessionSummaryFile is the JSON shape of summary.json.
type sessionSummaryFile struct {
	SessionID     string  `json:"session_id"`
	StartedAt     string  `json:"started_at"`
	EndedAt       string  `json:"ended_at"`
	Scans         int     `json:"scans"`
	Opportunities int     `json:"opportunities"`
	TradeCount    int     `json:"trade_count"`
	FinalPnL      float64 `json:"final_pnl"`
	FinalPnLPct   float64 `json:"final_pnl_pct"`
	TotalValue    float64 `json:"total_value"`
}

// ArchiveSession uploads the summary and, when non-empty, the trade and
// opportunity journals. It returns the session directory key.
func (a *Archiver) ArchiveSession(ctx context.Context, summary domain.SessionSummary, trades []domain.Trade, opps []domain.ArbitrageOpportunity) (string, error) {
	dir := a.sessionDir(summary)

	if len(trades) > 0 {
		if err := putJSONL(ctx, a.writer, path.Join(dir, "trades.jsonl"), trades); err != nil {
			return "", fmt.Errorf("s3blob: archive trades: %w", err)
		}
	}
	if len(opps) > 0 {
		if err := putJSONL(ctx, a.writer, path.Join(dir, "opportunities.jsonl"), opps); err != nil {
			return "", fmt.Errorf("s3blob: archive opportunities: %w", err)
		}
	}

	body, err := json.MarshalIndent(sessionSummaryFile{
		SessionID:     a.sessionID,
		StartedAt:     summary.StartedAt.UTC().Format(time.RFC3339),
		EndedAt:       summary.EndedAt.UTC().Format(time.RFC3339),
		Scans:         summary.Scans,
		Opportunities: summary.Opportunities,
		TradeCount:    summary.TradeCount,
		FinalPnL:      summary.FinalPnL,
		FinalPnLPct:   summary.FinalPnLPct,
		TotalValue:    summary.TotalValue,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("s3blob: marshal summary: %w", err)
	}
	if err := a.writer.Put(ctx, path.Join(dir, "summary.json"), bytes.NewReader(body), jsonContentType); err != nil {
		return "", fmt.Errorf("s3blob: archive summary: %w", err)
	}
	return dir, nil
}

func (a *Archiver) sessionDir(summary domain.SessionSummary) string {
	day := summary.StartedAt.UTC().Format("2006-01-02")
	if a.prefix == "" {
		return path.Join(day, a.sessionID)
	}
	return path.Join(a.prefix, day, a.sessionID)
}

// putJSONL switches to a multipart upload once the payload outgrows a single
// part.
func putJSONL[T any](ctx context.Context, w domain.BlobWriter, key string, records []T) error {
	buf, err := marshalJSONL(records)
	if err != nil {
		return err
	}
	if int64(len(buf)) > minPartSize {
		return w.PutMultipart(ctx, key, bytes.NewReader(buf), minPartSize)
	}
	return w.Put(ctx, key, bytes.NewReader(buf), jsonlContentType)
}

// marshalJSONL writes one compact JSON value per line.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

var _ domain.SessionArchiver = (*Archiver)(nil)
