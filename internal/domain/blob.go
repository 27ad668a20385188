package domain

import (
	"context"
	"io"
)

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// SessionArchiver writes the journal of a finished run to cold storage.
type SessionArchiver interface {
	ArchiveSession(ctx context.Context, summary SessionSummary, trades []Trade, opps []ArbitrageOpportunity) (string, error)
}
