package storage

import (
	"context"
	"time"
)

// Stub returns deterministic targets without touching a real object store.
// Used in tests and local development without MinIO.
type Stub struct {
	BaseURL string
}

func NewStub() *Stub {
	return &Stub{BaseURL: "stub://uploads/"}
}

func (s *Stub) UploadTargetFor(_ context.Context, key string) (UploadTarget, error) {
	return UploadTarget{
		Key:       key,
		URL:       s.BaseURL + key,
		ExpiresAt: time.Now().Add(presignExpiry),
	}, nil
}
