package jobs

import (
	"context"
	"time"
)

// Store persists job records so the board survives restarts.
type Store interface {
	LoadRecords(ctx context.Context) ([]*Record, error)
	UpsertRecord(ctx context.Context, record *Record) error
	DeleteRecord(ctx context.Context, messageID string) error
	DeleteRecordsByAuthor(ctx context.Context, authorID string) (int64, error)
	// DeleteRecordsBefore removes records created before cutoff.
	DeleteRecordsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
