package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/akolanti/landbot/internal/config"
	"github.com/akolanti/landbot/internal/domain/jobModel"
	"github.com/akolanti/landbot/internal/metrics"
)

func executeJob(job jobModel.Job) {
	start := time.Now()
	defer func() {
		metrics.CaptureJobMetrics(string(job.Status), time.Since(start))
	}()
	ctxTrace := context.WithValue(context.Background(), config.TRACE_ID_KEY, job.TraceId)
	ctx, cancel := context.WithTimeout(ctxTrace, jobTimeout)
	defer cancel()
	log := logger.FromContext(ctx).With("jobId", job.Id)
	log.Debug("Processing job", "type", job.JobType)

	job.Status = jobModel.JobStatusRunning
	job.CurrentStep = jobModel.IngestProcessing
	saveJobState(ctx, job)

	if job.JobType == jobModel.JobTypeIngest {
		job = _ragService.IngestDocument(ctx, job)
	} else {
		log.Warn("Unknown job type", "type", job.JobType)
		job.Status = jobModel.JobStatusError
		job.CurrentStep = jobModel.Error
		job.Error = jobModel.JobError{Code: 400, Message: "unknown job type"}
	}

	if job.Status != jobModel.JobStatusError {
		job.Status = jobModel.JobStatusComplete
		job.CurrentStep = jobModel.Complete
	}
	job.EndTime = time.Now()
	// the final state must land even if the job ran out its deadline
	saveJobState(context.WithoutCancel(ctx), job)
	log.Info("Job finished", "status", job.Status, "chunks", job.JobPayload.ChunksIngested)
}

func removeWorker(reason string) {
	workerWaitGroup.Done()
	count := atomic.AddInt64(&currentWorkerCount, -1)
	logger.Info("Removed worker", "reason", reason, "workerCount", count)
	metrics.DecrementActiveWorkerCount()
}

func saveJobState(ctx context.Context, job jobModel.Job) {
	if err := _jobService.JobStore.SaveJob(ctx, job); err != nil {
		logger.FromContext(ctx).Error("Failed to save job state", "jobId", job.Id, "error", err)
	}
}
