package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Entry statuses.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Entry is one finished job in the artifact ledger.
type Entry struct {
	ID           string
	Provider     string
	Model        string
	Prompt       string
	Summary      string // first heading or paragraph of the answer
	MarkdownPath string // empty when the job failed before rendering
	PDFPath      string
	Status       string
	ErrorKind    string
	ErrorMessage string
	CreatedAt    time.Time
	FinishedAt   time.Time
}

// History is the SQLite ledger of jobs and the artifacts they produced.
type History struct {
	db *sql.DB
}

func NewHistory(dataDir string) (*History, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "history.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	history := &History{db: db}

	if err := history.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return history, nil
}

func (h *History) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS artifacts (
		id TEXT PRIMARY KEY,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		prompt TEXT NOT NULL,
		summary TEXT DEFAULT '',
		markdown_path TEXT,
		pdf_path TEXT,
		status TEXT NOT NULL,
		error_kind TEXT,
		error_message TEXT,
		created_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_artifacts_created ON artifacts(created_at);
	`

	_, err := h.db.Exec(schema)
	return err
}

// Record stores entry, assigning an ID and timestamps when they are unset.
func (h *History) Record(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if entry.FinishedAt.IsZero() {
		entry.FinishedAt = now
	}
	// Timestamps are compared as text, so they share one zone.
	entry.CreatedAt = entry.CreatedAt.UTC()
	entry.FinishedAt = entry.FinishedAt.UTC()

	query := `
	INSERT OR REPLACE INTO artifacts (id, provider, model, prompt, summary, markdown_path, pdf_path, status, error_kind, error_message, created_at, finished_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := h.db.ExecContext(ctx, query,
		entry.ID,
		entry.Provider,
		entry.Model,
		entry.Prompt,
		entry.Summary,
		entry.MarkdownPath,
		entry.PDFPath,
		entry.Status,
		entry.ErrorKind,
		entry.ErrorMessage,
		entry.CreatedAt,
		entry.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record artifact: %w", err)
	}
	return nil
}

const selectColumns = `id, provider, model, prompt, summary, markdown_path, pdf_path, status, error_kind, error_message, created_at, finished_at`

func (h *History) Load(ctx context.Context, id string) (*Entry, error) {
	row := h.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM artifacts WHERE id = ?`, id)

	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Recent returns up to limit entries, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := h.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM artifacts ORDER BY created_at DESC, finished_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			continue
		}
		entries = append(entries, *entry)
	}

	return entries, rows.Err()
}

// LastSucceeded returns the newest entry that produced a PDF, or nil.
func (h *History) LastSucceeded(ctx context.Context) (*Entry, error) {
	row := h.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM artifacts WHERE status = ? ORDER BY created_at DESC LIMIT 1`, StatusSucceeded)

	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return entry, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*Entry, error) {
	var entry Entry
	var summary, mdPath, pdfPath, errKind, errMsg sql.NullString

	err := s.Scan(
		&entry.ID,
		&entry.Provider,
		&entry.Model,
		&entry.Prompt,
		&summary,
		&mdPath,
		&pdfPath,
		&entry.Status,
		&errKind,
		&errMsg,
		&entry.CreatedAt,
		&entry.FinishedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.Summary = summary.String
	entry.MarkdownPath = mdPath.String
	entry.PDFPath = pdfPath.String
	entry.ErrorKind = errKind.String
	entry.ErrorMessage = errMsg.String
	return &entry, nil
}

func (h *History) Close() error {
	if h.db != nil {
		return h.db.Close()
	}
	return nil
}
