package queue

import (
	"database/sql"
	"time"

	"github.com/cheapskatecoder/draconic/errors"
)

// Store is the authoritative, durable map id -> Job (spec.md §4.4).
// Grounded on pulse/async.Store's *sql.DB-backed constructed value and
// CAS-by-WHERE-clause idiom, generalized from the teacher's
// pulse/async job schema to the Job shape this spec requires.
type Store struct {
	db *sql.DB
}

// NewStore wraps an already-migrated *sql.DB.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const jobColumns = `id, type, priority, payload, cpu_units, memory_mb,
	max_attempts, backoff_multiplier, timeout_seconds,
	status, attempt, last_error_code, last_error_message,
	created_at, updated_at, started_at, finished_at`

// Create persists a newly submitted job.
func (s *Store) Create(job *Job) error {
	_, err := s.db.Exec(`
		INSERT INTO jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Type, string(job.Priority), []byte(job.Payload), job.CPUUnits, job.MemoryMB,
		job.MaxAttempts, job.BackoffMultiplier, job.TimeoutSeconds,
		string(job.Status), job.Attempt, nullableString(string(job.LastErrorCode)), nullableString(job.LastErrorMessage),
		job.CreatedAt, job.UpdatedAt, nullableTime(job.StartedAt), nullableTime(job.FinishedAt),
	)
	if err != nil {
		return errors.Wrapf(err, "create job %s", job.ID)
	}
	return nil
}

// Get returns the job by id, or ErrNotFound if it doesn't exist.
func (s *Store) Get(id string) (*Job, error) {
	row := s.db.QueryRow(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(ErrNotFound, "job %s", id)
		}
		return nil, errors.Wrapf(err, "get job %s", id)
	}
	return job, nil
}

// ErrNotFound is returned when a job id has no record in the store.
var ErrNotFound = errors.New("job not found")

// Update persists the full job record unconditionally, bumping
// updated_at. Used for fields the Admission Controller and Executor Pool
// own outright (attempt, started_at) once they already hold the status
// transition via CASStatus.
func (s *Store) Update(job *Job) error {
	job.UpdatedAt = time.Now()
	_, err := s.db.Exec(`
		UPDATE jobs SET
			status = ?, attempt = ?, last_error_code = ?, last_error_message = ?,
			updated_at = ?, started_at = ?, finished_at = ?
		WHERE id = ?`,
		string(job.Status), job.Attempt, nullableString(string(job.LastErrorCode)), nullableString(job.LastErrorMessage),
		job.UpdatedAt, nullableTime(job.StartedAt), nullableTime(job.FinishedAt),
		job.ID,
	)
	if err != nil {
		return errors.Wrapf(err, "update job %s", job.ID)
	}
	return nil
}

// CASStatus atomically transitions id from expected to next, guarding
// every status transition so a late timeout can never overwrite a
// successful completion (spec.md §4.4). Returns false (no error) if the
// current status did not match expected.
func (s *Store) CASStatus(id string, expected, next Status) (bool, error) {
	result, err := s.db.Exec(`
		UPDATE jobs SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(next), time.Now(), id, string(expected))
	if err != nil {
		return false, errors.Wrapf(err, "cas status job %s %s->%s", id, expected, next)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrapf(err, "cas status rows affected job %s", id)
	}
	return n == 1, nil
}

// ListByStatus returns every job currently in the given status, ordered
// by priority tier (CRITICAL first) then creation order, for
// observability.
func (s *Store) ListByStatus(status Status) ([]*Job, error) {
	rows, err := s.db.Query(`
		SELECT `+jobColumns+` FROM jobs WHERE status = ?
		ORDER BY CASE priority WHEN 'CRITICAL' THEN 0 WHEN 'HIGH' THEN 1 WHEN 'NORMAL' THEN 2 ELSE 3 END, created_at`, string(status))
	if err != nil {
		return nil, errors.Wrapf(err, "list jobs by status %s", status)
	}
	defer rows.Close()
	return scanJobs(rows)
}

// List returns every job, ordered by creation time, for the Core API's
// List operation.
func (s *Store) List() ([]*Job, error) {
	rows, err := s.db.Query(`SELECT ` + jobColumns + ` FROM jobs ORDER BY created_at`)
	if err != nil {
		return nil, errors.Wrap(err, "list jobs")
	}
	defer rows.Close()
	return scanJobs(rows)
}

// PutDLQ records a dead-lettered job in the dlq table.
func (s *Store) PutDLQ(job *Job) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO dlq (job_id, reason, error_code, error_message, attempt, dead_lettered_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		job.ID, "attempts exhausted or permanent error", string(job.LastErrorCode), job.LastErrorMessage, job.Attempt, time.Now())
	if err != nil {
		return errors.Wrapf(err, "put dlq record job %s", job.ID)
	}
	return nil
}

// DeleteDLQ removes a job's dead-letter record, used once DLQRetry has
// returned it to READY.
func (s *Store) DeleteDLQ(jobID string) error {
	_, err := s.db.Exec(`DELETE FROM dlq WHERE job_id = ?`, jobID)
	if err != nil {
		return errors.Wrapf(err, "delete dlq record job %s", jobID)
	}
	return nil
}

// ListDLQ returns every job ID currently in the dead-letter queue.
func (s *Store) ListDLQ() ([]string, error) {
	rows, err := s.db.Query(`SELECT job_id FROM dlq ORDER BY dead_lettered_at`)
	if err != nil {
		return nil, errors.Wrap(err, "list dlq")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scan dlq row")
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AddEdges persists the parent->child edges recorded by the
// DependencyGraph, so they survive process restarts.
func (s *Store) AddEdges(childID string, parentIDs []string) error {
	for _, parentID := range parentIDs {
		if _, err := s.db.Exec(`INSERT OR IGNORE INTO job_edges (parent_id, child_id) VALUES (?, ?)`, parentID, childID); err != nil {
			return errors.Wrapf(err, "add edge %s -> %s", parentID, childID)
		}
	}
	return nil
}

// Children returns the child job IDs recorded for parentID.
func (s *Store) Children(parentID string) ([]string, error) {
	rows, err := s.db.Query(`SELECT child_id FROM job_edges WHERE parent_id = ?`, parentID)
	if err != nil {
		return nil, errors.Wrapf(err, "list children of %s", parentID)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scan job_edges row")
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
