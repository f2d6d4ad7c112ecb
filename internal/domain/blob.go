package domain

import (
	"context"
	"io"
	"time"
)

// BlobWriter uploads objects to cold storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver moves aged settlement data out of the primary store into cold
// storage. Archival never deletes from the primary store; deletion is a
// separate, explicit operator step after the archive has been verified.
type Archiver interface {
	ArchiveEntries(ctx context.Context, before time.Time) (int64, error)
	ArchiveAuditLog(ctx context.Context, before time.Time) (int64, error)
}
