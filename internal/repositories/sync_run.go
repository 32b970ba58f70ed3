package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/likesync/internal/models"
	"github.com/desertthunder/likesync/internal/shared"
)

var _ models.Repository[*models.SyncRun] = (*SyncRunRepository)(nil)

const syncRunColumns = `id, sequence, collection_id, collection_name, status, created, dry_run,
	liked_count, candidate_count, written_count, skipped_count, rejected_count, fingerprint,
	error_message, started_at, finished_at, created_at, updated_at, deleted_at`

// SyncRunRepository implements models.Repository[*models.SyncRun] for pass history.
//
// Handles run CRUD operations with soft delete support.
type SyncRunRepository struct {
	db *sql.DB
}

// NewSyncRunRepository creates a new SyncRunRepository with the given database connection
func NewSyncRunRepository(db *sql.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

// Create inserts a new run into the database with generated ID and sequence
func (r *SyncRunRepository) Create(ctx context.Context, run *models.SyncRun) error {
	sequence, err := NextSequence(ctx, r.db, "sync_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	run.SetID(shared.GenerateID())
	run.SetSequence(sequence)

	if err := run.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	s := run.Summary()
	query := `
		INSERT INTO sync_runs (
			id, sequence, collection_id, collection_name, status, created, dry_run,
			liked_count, candidate_count, written_count, skipped_count, rejected_count, fingerprint,
			error_message, started_at, finished_at, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		run.ID(),
		run.Sequence(),
		s.CollectionID,
		s.CollectionName,
		string(run.Status()),
		s.Created,
		s.DryRun,
		s.LikedCount,
		s.CandidateCount,
		s.WrittenCount,
		s.SkippedCount,
		s.RejectedCount,
		s.Fingerprint,
		nullString(run.ErrorMessage()),
		run.StartedAt(),
		nullTime(run.FinishedAt()),
		run.CreatedAt(),
		run.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync run: %w", err)
	}

	return nil
}

// Get retrieves a run by ID, excluding soft-deleted runs
func (r *SyncRunRepository) Get(ctx context.Context, id string) (*models.SyncRun, error) {
	query := `SELECT ` + syncRunColumns + ` FROM sync_runs WHERE id = ? AND deleted_at IS NULL`
	return scanSyncRun(r.db.QueryRowContext(ctx, query, id))
}

// Latest retrieves the most recent run
func (r *SyncRunRepository) Latest(ctx context.Context) (*models.SyncRun, error) {
	query := `SELECT ` + syncRunColumns + ` FROM sync_runs WHERE deleted_at IS NULL ORDER BY sequence DESC LIMIT 1`
	return scanSyncRun(r.db.QueryRowContext(ctx, query))
}

// Update stores the run's status, summary and timing
func (r *SyncRunRepository) Update(ctx context.Context, run *models.SyncRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	now := time.Now()
	run.SetUpdatedAt(now)

	s := run.Summary()
	query := `
		UPDATE sync_runs
		SET collection_id = ?, collection_name = ?, status = ?, created = ?, dry_run = ?,
			liked_count = ?, candidate_count = ?, written_count = ?, skipped_count = ?, rejected_count = ?,
			fingerprint = ?, error_message = ?, finished_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		s.CollectionID,
		s.CollectionName,
		string(run.Status()),
		s.Created,
		s.DryRun,
		s.LikedCount,
		s.CandidateCount,
		s.WrittenCount,
		s.SkippedCount,
		s.RejectedCount,
		s.Fingerprint,
		nullString(run.ErrorMessage()),
		nullTime(run.FinishedAt()),
		now,
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update sync run: %w", err)
	}

	return requireRow(result, run.ID())
}

// Delete soft-deletes a run by ID
func (r *SyncRunRepository) Delete(ctx context.Context, id string) error {
	query := `UPDATE sync_runs SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete sync run: %w", err)
	}

	return requireRow(result, id)
}

// List retrieves runs matching the given criteria, newest first, excluding soft-deleted runs.
//
// Supported criteria: "status" (string), "dry_run" (bool), "limit" (int).
func (r *SyncRunRepository) List(ctx context.Context, criteria map[string]any) ([]*models.SyncRun, error) {
	query := `SELECT ` + syncRunColumns + ` FROM sync_runs WHERE deleted_at IS NULL`
	args := []any{}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	if dryRun, ok := criteria["dry_run"].(bool); ok {
		query += " AND dry_run = ?"
		args = append(args, dryRun)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.SyncRun
	for rows.Next() {
		run, err := scanSyncRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanSyncRun scans a row from [sql.Row] or [sql.Rows] into a [models.SyncRun]
func scanSyncRun(row scanner) (*models.SyncRun, error) {
	var (
		id         string
		sequence   int
		status     string
		summary    models.SyncSummary
		errMessage sql.NullString
		startedAt  time.Time
		finishedAt sql.NullTime
		createdAt  time.Time
		updatedAt  time.Time
		deletedAt  sql.NullTime
	)

	err := row.Scan(
		&id, &sequence, &summary.CollectionID, &summary.CollectionName, &status, &summary.Created, &summary.DryRun,
		&summary.LikedCount, &summary.CandidateCount, &summary.WrittenCount, &summary.SkippedCount,
		&summary.RejectedCount, &summary.Fingerprint,
		&errMessage, &startedAt, &finishedAt, &createdAt, &updatedAt, &deletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan sync run: %w", err)
	}

	var finished *time.Time
	if finishedAt.Valid {
		finished = &finishedAt.Time
	}

	run := models.NewSyncRun(sequence, startedAt)
	run.SetID(id)
	run.SetCreatedAt(createdAt)
	run.SetUpdatedAt(updatedAt)
	run.Restore(models.RunStatus(status), summary, errMessage.String, finished)
	if deletedAt.Valid {
		run.SetDeletedAt(&deletedAt.Time)
	}

	return run, nil
}

func requireRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrRunNotFound, id)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
