// package repositories provides the persistence layer for upload history.
//
// History is reporting only: resumption decisions always consult the remote
// photoset state, never this database.
package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dcheno/flickrup/internal/shared"
	"github.com/dcheno/flickrup/internal/tasks"
)

// Upload is one persisted upload history row.
type Upload struct {
	ID         string
	RunID      string
	PhotoID    string
	SetID      string
	Title      string
	SourcePath string
	UploadedAt time.Time
}

// Run summarizes the persisted uploads of one run.
type Run struct {
	RunID     string
	Uploads   int
	StartedAt time.Time
	EndedAt   time.Time
}

// UploadRepository stores and queries upload history rows. It implements
// [tasks.Recorder] so an engine can write history as uploads complete.
type UploadRepository struct {
	db *sql.DB
}

// NewUploadRepository creates a new UploadRepository with the given database connection
func NewUploadRepository(db *sql.DB) *UploadRepository {
	return &UploadRepository{db: db}
}

// RecordUpload persists one successful upload. Safe for concurrent use by
// engine workers.
func (r *UploadRepository) RecordUpload(rec tasks.UploadRecord) error {
	if rec.RunID == "" || rec.PhotoID == "" {
		return fmt.Errorf("%w: upload record requires a run ID and a photo ID", shared.ErrInvalidArgument)
	}

	uploadedAt := rec.UploadedAt
	if uploadedAt.IsZero() {
		uploadedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO uploads (id, run_id, photo_id, set_id, title, source_path, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		shared.GenerateID(),
		rec.RunID,
		rec.PhotoID,
		rec.SetID,
		rec.Title,
		rec.SourcePath,
		uploadedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert upload record: %w", err)
	}

	return nil
}

// Get retrieves a single upload row by ID
func (r *UploadRepository) Get(id string) (*Upload, error) {
	query := `
		SELECT id, run_id, photo_id, set_id, title, source_path, uploaded_at
		FROM uploads
		WHERE id = ?
	`

	upload, err := scanUpload(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: upload %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan upload: %w", err)
	}

	return upload, nil
}

// ListByRun retrieves all uploads recorded by one run, oldest first
func (r *UploadRepository) ListByRun(runID string) ([]Upload, error) {
	query := `
		SELECT id, run_id, photo_id, set_id, title, source_path, uploaded_at
		FROM uploads
		WHERE run_id = ?
		ORDER BY uploaded_at ASC, id ASC
	`

	return r.list(query, runID)
}

// ListRecent retrieves the most recently recorded uploads, newest first
func (r *UploadRepository) ListRecent(limit int) ([]Upload, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, run_id, photo_id, set_id, title, source_path, uploaded_at
		FROM uploads
		ORDER BY uploaded_at DESC, id DESC
		LIMIT ?
	`

	return r.list(query, limit)
}

// CountByRun reports how many uploads one run recorded
func (r *UploadRepository) CountByRun(runID string) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM uploads WHERE run_id = ?", runID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count uploads: %w", err)
	}
	return count, nil
}

// ListRuns summarizes all recorded runs, most recent first
func (r *UploadRepository) ListRuns() ([]Run, error) {
	query := `
		SELECT run_id, COUNT(*), MIN(uploaded_at), MAX(uploaded_at)
		FROM uploads
		GROUP BY run_id
		ORDER BY MAX(uploaded_at) DESC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run     Run
			started string
			ended   string
		)
		// Aggregates lose the column's declared type, so the driver hands the
		// timestamps back as strings.
		if err := rows.Scan(&run.RunID, &run.Uploads, &started, &ended); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.StartedAt = parseTimestamp(started)
		run.EndedAt = parseTimestamp(ended)
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

func (r *UploadRepository) list(query string, args ...any) ([]Upload, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query uploads: %w", err)
	}
	defer rows.Close()

	var uploads []Upload
	for rows.Next() {
		upload, err := scanUpload(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan upload: %w", err)
		}
		uploads = append(uploads, *upload)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return uploads, nil
}

var timestampFormats = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUpload(row rowScanner) (*Upload, error) {
	var (
		upload Upload
		setID  sql.NullString
	)

	err := row.Scan(&upload.ID, &upload.RunID, &upload.PhotoID, &setID, &upload.Title, &upload.SourcePath, &upload.UploadedAt)
	if err != nil {
		return nil, err
	}

	if setID.Valid {
		upload.SetID = setID.String
	}

	return &upload, nil
}
