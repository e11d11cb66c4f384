package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// ImportRun is one ledger entry: an uploaded file committed, or queued to be committed,
// into a tree.
type ImportRun struct {
	ID                    int64   `json:"id"`
	Fingerprint           string  `json:"fingerprint"`
	TreeID                string  `json:"tree_id"`
	Filename              string  `json:"filename"`
	Format                string  `json:"format"`
	Status                string  `json:"status"`
	PeopleImported        int     `json:"people_imported"`
	PeopleSkipped         int     `json:"people_skipped"`
	RelationshipsImported int     `json:"relationships_imported"`
	RelationshipsSkipped  int     `json:"relationships_skipped"`
	ParseErrors           int     `json:"parse_errors"`
	ParseWarnings         int     `json:"parse_warnings"`
	Generations           int     `json:"generations"`
	Error                 *string `json:"error,omitempty"`
	CreatedAt             int64   `json:"created_at"`
	UpdatedAt             int64   `json:"updated_at"`
}

var importRunColumns = []string{
	"id", "fingerprint", "tree_id", "filename", "format", "status",
	"people_imported", "people_skipped", "relationships_imported", "relationships_skipped",
	"parse_errors", "parse_warnings", "generations", "error", "created_at", "updated_at",
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanImportRun(row rowScanner) (ImportRun, error) {
	var run ImportRun
	err := row.Scan(&run.ID, &run.Fingerprint, &run.TreeID, &run.Filename, &run.Format, &run.Status,
		&run.PeopleImported, &run.PeopleSkipped, &run.RelationshipsImported, &run.RelationshipsSkipped,
		&run.ParseErrors, &run.ParseWarnings, &run.Generations, &run.Error, &run.CreatedAt, &run.UpdatedAt)
	return run, err
}

// CreateImportRun inserts a queued run and returns its id
func CreateImportRun(db Querier, fingerprint, treeID, filename, format string) (int64, error) {
	now := time.Now().Unix()
	queryBuilder := psql.Insert("import_runs").
		Columns("fingerprint", "tree_id", "filename", "format", "status", "created_at", "updated_at").
		Values(fingerprint, treeID, filename, format, StatusQueued, now, now).
		Suffix("RETURNING id")

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build SQL for CreateImportRun: %w", err)
	}

	var runID int64
	err = db.QueryRow(sqlStr, args...).Scan(&runID)
	if err != nil {
		return 0, fmt.Errorf("failed to execute CreateImportRun for %s into tree %s: %w", filename, treeID, err)
	}
	return runID, nil
}

// MarkImportRunProcessing moves a run to processing and clears a previous error
func MarkImportRunProcessing(db Querier, runID int64) error {
	queryBuilder := psql.Update("import_runs").
		Set("status", StatusProcessing).
		Set("error", nil).
		Set("updated_at", time.Now().Unix()).
		Where(sq.Eq{"id": runID})

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build SQL for MarkImportRunProcessing: %w", err)
	}
	result, err := db.Exec(sqlStr, args...)
	if err != nil {
		return fmt.Errorf("failed to mark import run %d processing: %w", runID, err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetImportRunResult stores the outcome of a run. A non-nil taskErr marks it failed.
func SetImportRunResult(db Querier, run ImportRun, taskErr error) error {
	status := StatusDone
	var errStr *string
	if taskErr != nil {
		status = StatusError
		s := taskErr.Error()
		errStr = &s
	}

	queryBuilder := psql.Update("import_runs").
		Set("status", status).
		Set("format", run.Format).
		Set("people_imported", run.PeopleImported).
		Set("people_skipped", run.PeopleSkipped).
		Set("relationships_imported", run.RelationshipsImported).
		Set("relationships_skipped", run.RelationshipsSkipped).
		Set("parse_errors", run.ParseErrors).
		Set("parse_warnings", run.ParseWarnings).
		Set("generations", run.Generations).
		Set("error", errStr).
		Set("updated_at", time.Now().Unix()).
		Where(sq.Eq{"id": run.ID})

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build SQL for SetImportRunResult: %w", err)
	}
	result, err := db.Exec(sqlStr, args...)
	if err != nil {
		return fmt.Errorf("failed to store result of import run %d: %w", run.ID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		log.Printf("Warning: Could not get RowsAffected for SetImportRunResult ID %d: %v", run.ID, err)
		return nil
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetImportRun retrieves a run by id
func GetImportRun(db Querier, runID int64) (ImportRun, error) {
	queryBuilder := psql.Select(importRunColumns...).
		From("import_runs").
		Where(sq.Eq{"id": runID}).
		Limit(1)

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return ImportRun{}, fmt.Errorf("failed to build SQL for GetImportRun: %w", err)
	}
	run, err := scanImportRun(db.QueryRow(sqlStr, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ImportRun{}, sql.ErrNoRows
		}
		return ImportRun{}, fmt.Errorf("failed to query or scan import run %d: %w", runID, err)
	}
	return run, nil
}

// FindImportRunByFingerprint returns the latest run of the same content into the same
// tree that is queued, processing or done. Failed runs do not count.
func FindImportRunByFingerprint(db Querier, treeID, fingerprint string) (ImportRun, error) {
	queryBuilder := psql.Select(importRunColumns...).
		From("import_runs").
		Where(sq.Eq{"tree_id": treeID, "fingerprint": fingerprint}).
		Where(sq.NotEq{"status": StatusError}).
		OrderBy("id DESC").
		Limit(1)

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return ImportRun{}, fmt.Errorf("failed to build SQL for FindImportRunByFingerprint: %w", err)
	}
	run, err := scanImportRun(db.QueryRow(sqlStr, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ImportRun{}, sql.ErrNoRows
		}
		return ImportRun{}, fmt.Errorf("failed to query import run by fingerprint for tree %s: %w", treeID, err)
	}
	return run, nil
}

// ListImportRuns returns the runs of a tree, newest first
func ListImportRuns(db Querier, treeID string) ([]ImportRun, error) {
	queryBuilder := psql.Select(importRunColumns...).
		From("import_runs").
		Where(sq.Eq{"tree_id": treeID}).
		OrderBy("id DESC")

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL for ListImportRuns: %w", err)
	}
	rows, err := db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute ListImportRuns query: %w", err)
	}
	defer rows.Close()

	runs := []ImportRun{}
	for rows.Next() {
		run, err := scanImportRun(rows)
		if err != nil {
			log.Printf("Error scanning import run row: %v", err)
			continue
		}
		runs = append(runs, run)
	}
	if err = rows.Err(); err != nil {
		return runs, fmt.Errorf("error iterating import run rows: %w", err)
	}
	return runs, nil
}

// ListUnfinishedImportRuns returns queued and processing runs, oldest first. They are
// left over from a previous process and are failed on startup.
func ListUnfinishedImportRuns(db Querier) ([]ImportRun, error) {
	queryBuilder := psql.Select(importRunColumns...).
		From("import_runs").
		Where(sq.Eq{"status": []string{StatusQueued, StatusProcessing}}).
		OrderBy("id ASC")

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL for ListUnfinishedImportRuns: %w", err)
	}
	rows, err := db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute ListUnfinishedImportRuns query: %w", err)
	}
	defer rows.Close()

	runs := []ImportRun{}
	for rows.Next() {
		run, err := scanImportRun(rows)
		if err != nil {
			log.Printf("Error scanning import run row: %v", err)
			continue
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
