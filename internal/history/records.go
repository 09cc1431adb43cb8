package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"batchproc/internal/driver"
	"batchproc/internal/events"
)

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const recordColumns = "id, run_id, sequence, process, outcome, message, error, started_at, finished_at"

// Record is one stored unit outcome.
type Record struct {
	ID         int64
	RunID      string
	Sequence   int
	Process    string
	Outcome    string
	Message    string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Result resolves the stored outcome to a result code. It reports false
// for units that faulted or never completed.
func (r Record) Result() (events.ResultCode, bool) {
	code, err := events.ParseResultCode(r.Outcome)
	if err != nil {
		return events.ResultGeneralFailure, false
	}
	return code, true
}

// Duration is the wall time the unit ran.
func (r Record) Duration() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// RecordUnit stores a unit outcome. It satisfies driver.Recorder.
func (s *Store) RecordUnit(ctx context.Context, result driver.UnitResult) error {
	errText := ""
	if result.Fault != nil {
		errText = result.Fault.Error()
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO unit_runs (run_id, sequence, process, outcome, message, error, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		result.RunID,
		result.Sequence,
		result.Process,
		result.Outcome(),
		result.Message,
		errText,
		result.StartedAt.UTC().Format(timeLayout),
		result.FinishedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert unit run: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		"SELECT "+recordColumns+" FROM unit_runs ORDER BY started_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query recent runs: %w", err)
	}
	return collect(rows)
}

// ByRun returns every record of one run in sequence order.
func (s *Store) ByRun(ctx context.Context, runID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		"SELECT "+recordColumns+" FROM unit_runs WHERE run_id = ? ORDER BY sequence", strings.TrimSpace(runID))
	if err != nil {
		return nil, fmt.Errorf("query run %s: %w", runID, err)
	}
	return collect(rows)
}

// Clear removes every record and returns how many were deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, "DELETE FROM unit_runs")
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	return res.RowsAffected()
}

func collect(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()
	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (Record, error) {
	var (
		record      Record
		startedRaw  string
		finishedRaw string
	)
	if err := scanner.Scan(
		&record.ID,
		&record.RunID,
		&record.Sequence,
		&record.Process,
		&record.Outcome,
		&record.Message,
		&record.Error,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return Record{}, fmt.Errorf("scan unit run: %w", err)
	}
	record.StartedAt = parseTime(startedRaw)
	record.FinishedAt = parseTime(finishedRaw)
	return record, nil
}

func parseTime(raw string) time.Time {
	ts, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return ts
}
