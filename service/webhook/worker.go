package webhooksvc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	queuerepo "github.com/itzmejanak/ChargeGhar-sub001/repository/queue"
	"github.com/itzmejanak/ChargeGhar-sub001/util/apperr"
)

const (
	// Lookup retries cover webhooks that arrive before the intent row is
	// visible; beyond this the job goes to the dead-letter state for manual
	// reconciliation.
	maxLookupAttempts = 5
	// Verification retries cover transient gateway API failures; beyond this
	// the intent is force-failed.
	maxVerifyAttempts = 5
	// Balance conflicts at settlement need an operator; a couple of retries
	// absorb transient races first.
	maxBalanceAttempts = 3
)

type action int

const (
	actionComplete action = iota
	actionRetry
	actionDead
	actionFailIntent
)

// classify maps a pipeline error and the attempt count so far to what the
// queue should do with the job. attempts counts completed attempts before
// this one.
func classify(err error, attempts int) action {
	if err == nil {
		return actionComplete
	}
	switch apperr.CodeOf(err) {
	case apperr.CodeInvalidWebhook:
		// Bad signature or shape: retrying cannot help.
		return actionDead
	case apperr.CodeUnresolvedIntent:
		if attempts+1 >= maxLookupAttempts {
			return actionDead
		}
		return actionRetry
	case apperr.CodeGatewayVerification:
		if attempts+1 >= maxVerifyAttempts {
			return actionFailIntent
		}
		return actionRetry
	case apperr.CodeInsufficientBalance:
		if attempts+1 >= maxBalanceAttempts {
			return actionDead
		}
		return actionRetry
	case apperr.CodeExpiredIntent:
		// Money moved at the gateway for an intent the sweep expired;
		// only manual reconciliation can resolve it.
		return actionDead
	}
	// Persistence and unknown failures: retry until they succeed.
	return actionRetry
}

// backoffAt mirrors the queue's linear backoff: 10s, 20s, 30s, ...
func backoffAt(attempts int) time.Duration {
	return time.Duration(attempts*10+10) * time.Second
}

// Worker consumes the durable webhook queue. One claimed job at a time per
// worker; per-intent serialization comes from the conditional transitions in
// the reconciler.
type Worker struct {
	queue    queuerepo.Repo
	rec      Reconciler
	log      *slog.Logger
	interval time.Duration
}

func NewWorker(queue queuerepo.Repo, rec Reconciler, log *slog.Logger, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Worker{queue: queue, rec: rec, log: log, interval: interval}
}

func (w *Worker) Start(ctx context.Context) {
	go func() {
		w.log.Info("webhook worker started", "interval", w.interval)
		t := time.NewTicker(w.interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				w.drain(ctx)
			}
		}
	}()
}

func (w *Worker) drain(ctx context.Context) {
	for {
		err := w.queue.Claim(ctx, w.handle)
		if errors.Is(err, queuerepo.ErrEmpty) {
			return
		}
		if err != nil {
			w.log.Error("webhook job claim failed", "err", err)
			return
		}
	}
}

func (w *Worker) handle(ctx context.Context, job queuerepo.Job) queuerepo.Outcome {
	err := w.rec.Process(ctx, job.Provider, job.Signature, job.Payload)

	switch classify(err, job.Attempts) {
	case actionComplete:
		return queuerepo.Outcome{Status: queuerepo.JobCompleted}

	case actionDead:
		w.log.Error("webhook job dead-lettered",
			"job_id", job.ID, "provider", job.Provider, "attempts", job.Attempts+1, "err", err)
		return queuerepo.Outcome{Status: queuerepo.JobDead, Err: err.Error()}

	case actionFailIntent:
		reason := "gateway verification failed after retries"
		if failErr := w.rec.FailAfterRetries(ctx, job.Provider, job.Signature, job.Payload, reason); failErr != nil {
			w.log.Error("force-fail after verification retries failed",
				"job_id", job.ID, "err", failErr)
			return queuerepo.Outcome{Status: queuerepo.JobPending,
				NextRun: time.Now().Add(backoffAt(job.Attempts)), Err: failErr.Error()}
		}
		return queuerepo.Outcome{Status: queuerepo.JobCompleted, Err: err.Error()}

	default:
		w.log.Warn("webhook job retry scheduled",
			"job_id", job.ID, "provider", job.Provider, "attempts", job.Attempts+1, "err", err)
		return queuerepo.Outcome{Status: queuerepo.JobPending,
			NextRun: time.Now().Add(backoffAt(job.Attempts)), Err: err.Error()}
	}
}
