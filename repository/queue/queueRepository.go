// repository/queue/queueRepository.go
//
// Durable job queue for webhook processing, backed by a Postgres table.
// Claiming uses FOR UPDATE SKIP LOCKED so multiple workers never double-pick
// a job.
package queuerepo

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type JobStatus string

const (
	JobPending   JobStatus = "PENDING"
	JobCompleted JobStatus = "COMPLETED"
	JobDead      JobStatus = "DEAD"
)

type Job struct {
	ID        int64
	Provider  string
	Payload   []byte
	Signature string
	Attempts  int
}

var ErrEmpty = errors.New("queue empty")

type Repo interface {
	Enqueue(ctx context.Context, provider, signature string, payload []byte) (int64, error)

	// Claim hands the oldest runnable job to fn while holding its row lock.
	// fn's outcome decides the job's next state; the claim transaction
	// commits both together.
	Claim(ctx context.Context, fn func(ctx context.Context, job Job) Outcome) error

	CountByStatus(ctx context.Context, status JobStatus) (int64, error)
}

// Outcome tells the queue what to do with a claimed job.
type Outcome struct {
	Status  JobStatus // JobPending reschedules
	NextRun time.Time // only for rescheduled jobs
	Err     string
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

func (r *repo) Enqueue(ctx context.Context, provider, signature string, payload []byte) (int64, error) {
	const q = `
INSERT INTO webhook_jobs (provider, signature, payload)
VALUES ($1,$2,$3)
RETURNING id`
	var id int64
	if err := r.db.QueryRowContext(ctx, q, provider, signature, payload).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repo) Claim(ctx context.Context, fn func(ctx context.Context, job Job) Outcome) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const pick = `
SELECT id, provider, payload, signature, attempts
FROM webhook_jobs
WHERE status='PENDING' AND next_run_at <= NOW()
ORDER BY created_at
LIMIT 1
FOR UPDATE SKIP LOCKED`
	var job Job
	err = tx.QueryRowContext(ctx, pick).Scan(&job.ID, &job.Provider, &job.Payload, &job.Signature, &job.Attempts)
	if errors.Is(err, sql.ErrNoRows) {
		_ = tx.Rollback()
		return ErrEmpty
	}
	if err != nil {
		return err
	}

	out := fn(ctx, job)

	switch out.Status {
	case JobPending:
		const q = `
UPDATE webhook_jobs
SET attempts = attempts + 1, next_run_at = $2, last_error = NULLIF($3,'')
WHERE id = $1`
		_, err = tx.ExecContext(ctx, q, job.ID, out.NextRun, out.Err)
	default:
		const q = `
UPDATE webhook_jobs
SET status = $2, attempts = attempts + 1, last_error = NULLIF($3,'')
WHERE id = $1`
		_, err = tx.ExecContext(ctx, q, job.ID, string(out.Status), out.Err)
	}
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (r *repo) CountByStatus(ctx context.Context, status JobStatus) (int64, error) {
	const q = `SELECT COUNT(*) FROM webhook_jobs WHERE status=$1`
	var n int64
	err := r.db.QueryRowContext(ctx, q, string(status)).Scan(&n)
	return n, err
}
