package persistence

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/MimeLyc/job-board-moderator/internal/jobs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version := migrationVersion(entry.Name())
		if version <= 0 {
			continue
		}
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", entry.Name(), err)
		}
		if exists > 0 {
			continue
		}
		// embed.FS always uses forward slashes
		content, err := migrationFiles.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// migrationVersion extracts the leading integer from a migration filename (e.g. "001_init.sql" → 1).
func migrationVersion(name string) int {
	for i, c := range name {
		if c < '0' || c > '9' {
			if i == 0 {
				return 0
			}
			n, _ := strconv.Atoi(name[:i])
			return n
		}
	}
	n, _ := strconv.Atoi(name)
	return n
}

func (s *SQLiteStore) LoadRecords(ctx context.Context) ([]*jobs.Record, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT message_id, author_id, channel_id, tags_json, created_at, updated_at
		 FROM job_records
		 ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]*jobs.Record, 0)
	for rows.Next() {
		var item jobs.Record
		var tagsJSON string
		if err := rows.Scan(
			&item.MessageID,
			&item.AuthorID,
			&item.ChannelID,
			&tagsJSON,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(tagsJSON), &item.Tags); err != nil {
			return nil, fmt.Errorf("decode tags of %s: %w", item.MessageID, err)
		}
		ret = append(ret, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *SQLiteStore) UpsertRecord(ctx context.Context, record *jobs.Record) error {
	if record == nil {
		return fmt.Errorf("record is nil")
	}
	tagsJSON, err := json.Marshal(record.Tags)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO job_records (
			message_id, author_id, channel_id, tags_json, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(message_id) DO UPDATE SET
			author_id=excluded.author_id,
			channel_id=excluded.channel_id,
			tags_json=excluded.tags_json,
			updated_at=excluded.updated_at`,
		record.MessageID,
		record.AuthorID,
		record.ChannelID,
		string(tagsJSON),
		record.CreatedAt.UTC(),
		record.UpdatedAt.UTC(),
	)
	return err
}

func (s *SQLiteStore) DeleteRecord(ctx context.Context, messageID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM job_records WHERE message_id = ?`, messageID)
	return err
}

func (s *SQLiteStore) DeleteRecordsByAuthor(ctx context.Context, authorID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM job_records WHERE author_id = ?`, authorID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteRecordsBefore removes job_records rows created before cutoff.
func (s *SQLiteStore) DeleteRecordsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM job_records WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) SaveReport(ctx context.Context, entry ReportEntry) error {
	createdAt := entry.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO moderation_reports (
			id, reason, author_id, channel_id, message_id, summary, delivered, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			delivered=excluded.delivered`,
		entry.ID,
		entry.Reason,
		entry.AuthorID,
		entry.ChannelID,
		entry.MessageID,
		entry.Summary,
		boolToInt(entry.Delivered),
		createdAt,
	)
	return err
}

// RecentReports returns up to limit reports, newest first.
func (s *SQLiteStore) RecentReports(ctx context.Context, limit int) ([]ReportEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, reason, author_id, channel_id, message_id, summary, delivered, created_at
		 FROM moderation_reports
		 ORDER BY created_at DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]ReportEntry, 0)
	for rows.Next() {
		var item ReportEntry
		var delivered int
		if err := rows.Scan(
			&item.ID,
			&item.Reason,
			&item.AuthorID,
			&item.ChannelID,
			&item.MessageID,
			&item.Summary,
			&delivered,
			&item.CreatedAt,
		); err != nil {
			return nil, err
		}
		item.Delivered = delivered == 1
		ret = append(ret, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
