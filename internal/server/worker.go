package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/varqopt/internal/runner"
	"github.com/cwbudde/varqopt/internal/solver"
	"github.com/cwbudde/varqopt/internal/store"
)

// progressInterval throttles SSE progress events and trace flushes.
const progressInterval = 500 * time.Millisecond

// runJob executes a solve job in the background.
// If runStore is not nil the cost trace and the final record are persisted
// under the job's ID.
func runJob(ctx context.Context, jm *JobManager, runStore store.Store, r *runner.Runner, m *jobMetrics, jobID string) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}
	solverName := job.Spec.Solver

	if err := ctx.Err(); err != nil {
		markJobCancelled(jm, m, jobID, solverName)
		return err
	}

	err := jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateRunning
	})
	if err != nil {
		return err
	}
	m.running.Inc()
	defer m.running.Dec()

	slog.Info("Starting job", "job_id", jobID, "solver", solverName, "input", job.Spec.Input())

	var trace *store.TraceWriter
	if runStore != nil {
		trace, err = store.NewTraceWriter(runStore.RunDir(jobID), false)
		if err != nil {
			markJobFailed(jm, m, jobID, solverName, err)
			return err
		}
	}

	evaluations := m.evaluations.WithLabelValues(solverName)
	observer := func(e solver.Evaluation) {
		evaluations.Inc()
		jm.UpdateJob(jobID, func(j *Job) {
			if j.Evaluations == 0 || e.Cost < j.BestCost {
				j.BestCost = e.Cost
			}
			j.Evaluations = e.Index
			j.LastCost = e.Cost
		})
		if trace != nil {
			if err := trace.Write(store.TraceEntry{Evaluation: e.Index, Cost: e.Cost, Timestamp: time.Now()}); err != nil {
				slog.Warn("Failed to write trace entry", "job_id", jobID, "error", err)
			}
		}
	}

	start := time.Now()
	progressDone := make(chan struct{})
	monitorStopped := make(chan struct{})
	go func() {
		defer close(monitorStopped)
		monitorProgress(ctx, jm, trace, jobID, progressDone)
	}()

	rec, err := r.Run(ctx, jobID, job.Spec, observer)
	close(progressDone)
	<-monitorStopped
	if trace != nil {
		// the trace is complete before the job is reported done
		if cerr := trace.Close(); cerr != nil {
			slog.Warn("Failed to close trace", "job_id", jobID, "error", cerr)
		}
	}
	m.duration.WithLabelValues(solverName).Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			markJobCancelled(jm, m, jobID, solverName)
			return ctx.Err()
		}
		markJobFailed(jm, m, jobID, solverName, err)
		return err
	}

	if runStore != nil {
		if err := runStore.SaveRun(jobID, rec); err != nil {
			markJobFailed(jm, m, jobID, solverName, fmt.Errorf("failed to save run: %w", err))
			return err
		}
	}

	endTime := time.Now()
	err = jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		j.Record = rec
		j.Evaluations = rec.FuncEvals
		j.EndTime = &endTime
	})
	if err != nil {
		return err
	}
	m.finished.WithLabelValues(solverName, string(StateCompleted)).Inc()

	slog.Info("Job completed",
		"job_id", jobID,
		"elapsed", time.Since(start),
		"cost", rec.Cost,
		"evaluations", rec.FuncEvals,
		"converged", rec.Converged,
	)

	broadcastState(jm, jobID)
	return nil
}

// monitorProgress periodically broadcasts progress events and flushes the
// trace during optimization.
func monitorProgress(ctx context.Context, jm *JobManager, trace *store.TraceWriter, jobID string, done chan struct{}) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, exists := jm.GetJob(jobID)
			if !exists {
				return
			}
			jm.broadcaster.Broadcast(progressOf(job))

			if trace != nil {
				if err := trace.Flush(); err != nil {
					slog.Warn("Failed to flush trace", "job_id", jobID, "error", err)
				}
			}
		}
	}
}

func broadcastState(jm *JobManager, jobID string) {
	if job, ok := jm.GetJob(jobID); ok {
		jm.broadcaster.Broadcast(progressOf(job))
	}
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, m *jobMetrics, jobID, solverName string, err error) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	m.finished.WithLabelValues(solverName, string(StateFailed)).Inc()
	slog.Error("Job failed", "job_id", jobID, "error", err)
	broadcastState(jm, jobID)
}

// markJobCancelled marks a job as cancelled
func markJobCancelled(jm *JobManager, m *jobMetrics, jobID, solverName string) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCancelled
		j.EndTime = &endTime
	})
	m.finished.WithLabelValues(solverName, string(StateCancelled)).Inc()
	slog.Info("Job cancelled", "job_id", jobID)
	broadcastState(jm, jobID)
}
