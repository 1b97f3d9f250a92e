// Package storage issues upload targets for report files. The portal never
// proxies file bytes; clients upload straight to object storage against a
// presigned URL and the report row keeps only the key.
package storage

import (
	"context"
	"time"
)

// UploadTarget tells a client where to put the file.
type UploadTarget struct {
	// Key is the object key the report row records.
	Key string
	// URL is a presigned PUT URL, valid until ExpiresAt.
	URL       string
	ExpiresAt time.Time
}

// Provider issues upload targets.
type Provider interface {
	// UploadTargetFor returns a presigned target for the given object key.
	UploadTargetFor(ctx context.Context, key string) (UploadTarget, error)
}
