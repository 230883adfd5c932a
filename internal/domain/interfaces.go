package domain

import (
	"context"
)

// RecordStore is the durable document store holding one FeedbackRecord
// per patient. Insert fails with ErrDuplicateRecord when the unique
// patient_id constraint is violated.
type RecordStore interface {
	Insert(ctx context.Context, rec *FeedbackRecord) error
	FindByPatientID(ctx context.Context, patientID int) (*FeedbackRecord, error)
	Find(ctx context.Context, filter Filter) ([]FeedbackRecord, error)
	Count(ctx context.Context, filter Filter) (int64, error)
	UpdateByPatientID(ctx context.Context, patientID int, patch map[string]interface{}) (int64, error)
	DeleteByPatientID(ctx context.Context, patientID int) (int64, error)
	Close(ctx context.Context) error
}

// Cache is the best-effort key-value mirror of submitted records.
// Write-only in this service; never a source of truth.
type Cache interface {
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// SessionStore holds per-client session markers keyed by session id.
// Get returns (nil, nil) when no session exists.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (*SessionData, error)
	Save(ctx context.Context, sessionID string, data *SessionData) error
	Delete(ctx context.Context, sessionID string) error
	Close() error
}

// ChartRenderer turns a computed series into an opaque image artifact
// reference. Rendering itself is an external presentation concern.
type ChartRenderer interface {
	Render(ctx context.Context, kind ChartKind, series Series) (string, error)
}
