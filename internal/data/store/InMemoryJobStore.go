package store

import (
	"context"
	"sync"
	"time"

	"github.com/akolanti/landbot/internal/config"
	"github.com/akolanti/landbot/internal/domain/jobModel"
	"github.com/akolanti/landbot/pkg/logger_i"
)

var inMemLogger = logger_i.NewLogger("InMem JobStore")

type memJob struct {
	job     jobModel.Job
	expires time.Time
}

// InMemoryJobStore backs ingestion status when redis is offline. Entries expire after
// the same TTL as the redis store and do not survive a restart.
type InMemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]memJob
	ttl  time.Duration
}

func InitInMemoryJobStore() *InMemoryJobStore {
	return &InMemoryJobStore{
		jobs: make(map[string]memJob),
		ttl:  config.RedisJobStoreTTL,
	}
}

func (s *InMemoryJobStore) SaveJob(ctx context.Context, job jobModel.Job) error {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.Id] = memJob{job: job, expires: now.Add(s.ttl)}
	for id, entry := range s.jobs {
		if now.After(entry.expires) {
			delete(s.jobs, id)
		}
	}
	inMemLogger.FromContext(ctx).Debug("Saved job to store", "jobId", job.Id, "status", job.Status)
	return nil
}

func (s *InMemoryJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, found := s.jobs[jobId]
	if !found || time.Now().After(entry.expires) {
		return jobModel.Job{}, false
	}
	return entry.job, true
}

func (s *InMemoryJobStore) DeleteJob(ctx context.Context, jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, jobID)
}
