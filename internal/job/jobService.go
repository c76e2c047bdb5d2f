package job

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/akolanti/landbot/internal/adapter/utils"
	"github.com/akolanti/landbot/internal/config"
	"github.com/akolanti/landbot/internal/domain/jobModel"
	"github.com/akolanti/landbot/internal/metrics"
	"github.com/akolanti/landbot/pkg/logger_i"
)

type Service struct {
	JobChannel        chan jobModel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
	logger            *logger_i.Logger
}

type ServiceConfig struct {
	JobChannel        chan jobModel.Job
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
}

func InitJobService(cfg ServiceConfig) *Service {
	return &Service{
		JobChannel:        cfg.JobChannel,
		DispatcherChannel: cfg.DispatcherChannel,
		JobStore:          cfg.JobStore,
		logger:            logger_i.NewLogger("JobService"),
	}
}

type IngestRequest struct {
	DocumentName string
	Path         string
	// Temporary marks Path as an upload owned by the job.
	Temporary bool
}

// EnqueueIngest records a QUEUED job and hands it to the worker pool. The send blocks
// when the buffer is full so a burst of uploads cannot overwhelm the embedder.
func (s *Service) EnqueueIngest(ctx context.Context, req IngestRequest) (jobModel.Job, error) {
	traceId, _ := ctx.Value(config.TRACE_ID_KEY).(string)
	newJob := jobModel.Job{
		Id:          utils.GetNewUUID(),
		TraceId:     traceId,
		JobType:     jobModel.JobTypeIngest,
		CreatedTime: time.Now(),
		Status:      jobModel.JobStatusQueued,
		CurrentStep: jobModel.IngestInit,
		JobPayload: jobModel.JobPayload{
			IngestFileName: req.DocumentName,
			IngestURL:      req.Path,
			RemoveAfter:    req.Temporary,
		},
	}
	log := s.logger.FromContext(ctx).With("jobId", newJob.Id)

	if err := s.JobStore.SaveJob(ctx, newJob); err != nil {
		log.Error("Failed to record queued job", "error", err)
		return newJob, err
	}

	metrics.IncrementJobsInQueue()
	select {
	case s.JobChannel <- newJob:
	case <-ctx.Done():
		metrics.DecrementJobsInQueue()
		s.JobStore.DeleteJob(context.WithoutCancel(ctx), newJob.Id)
		return newJob, ctx.Err()
	}
	log.Info("Queued ingest job", "document", req.DocumentName)

	// ingestion is slow external work, so every job asks for a worker; idle ones retire
	count := atomic.AddInt64(&s.RequestCount, 1)
	metrics.StartDispatcherSignalCount()
	select {
	case s.DispatcherChannel <- true:
	default:
		log.Debug("Dispatcher busy, signal dropped", "requestCount", count)
	}
	return newJob, nil
}

func (s *Service) GetJob(ctx context.Context, id string) (jobModel.Job, bool) {
	if id == "" {
		return jobModel.Job{}, false
	}
	return s.JobStore.GetJob(ctx, id)
}
