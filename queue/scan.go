package queue

import (
	"database/sql"

	"github.com/cheapskatecoder/draconic/errors"
)

// rowScanner is satisfied by both *sql.Row and *sql.Rows, letting
// scanJob share its column-binding logic between Get (single row) and
// the List*/ListByStatus (multi-row) queries. Grounded on the teacher's
// scan.go split between ScanJobFromRow and ScanJobFromRows, collapsed
// here into one function parameterized over the common Scan method.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*Job, error) {
	var job Job
	var priority, status string
	var payload []byte
	var lastErrorCode, lastErrorMessage sql.NullString
	var startedAt, finishedAt sql.NullTime

	err := row.Scan(
		&job.ID, &job.Type, &priority, &payload, &job.CPUUnits, &job.MemoryMB,
		&job.MaxAttempts, &job.BackoffMultiplier, &job.TimeoutSeconds,
		&status, &job.Attempt, &lastErrorCode, &lastErrorMessage,
		&job.CreatedAt, &job.UpdatedAt, &startedAt, &finishedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Priority = Priority(priority)
	job.Status = Status(status)
	job.Payload = payload
	if lastErrorCode.Valid {
		job.LastErrorCode = ErrorCode(lastErrorCode.String)
	}
	if lastErrorMessage.Valid {
		job.LastErrorMessage = lastErrorMessage.String
	}
	if startedAt.Valid {
		t := startedAt.Time
		job.StartedAt = &t
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		job.FinishedAt = &t
	}

	return &job, nil
}

func scanJobs(rows *sql.Rows) ([]*Job, error) {
	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan job row")
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}
