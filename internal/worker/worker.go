package worker

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/akolanti/landbot/internal/config"
	"github.com/akolanti/landbot/internal/job"
	"github.com/akolanti/landbot/internal/metrics"
	"github.com/akolanti/landbot/internal/rag"
	"github.com/akolanti/landbot/pkg/logger_i"
)

var (
	_jobService        *job.Service
	stopWorkerChannel  chan bool
	workerWaitGroup    *sync.WaitGroup
	dispatcherChannel  chan bool
	currentWorkerCount int64
	logger             = logger_i.NewLogger("WorkerPool")
	_ragService        rag.Service
	minWorkerCount     = config.MinWorkerCount
	idleTimeout        = config.IdleWorkerTimeout
	jobTimeout         = config.IngestJobTimeout
)

func InitServices(jobService *job.Service, ragService rag.Service) {
	_jobService = jobService
	_ragService = ragService
	dispatcherChannel = jobService.DispatcherChannel
}

func InitWorkerPool(stopWorkerChan chan bool, waitGroup *sync.WaitGroup) {
	stopWorkerChannel = stopWorkerChan
	workerWaitGroup = waitGroup
	logger.Info("Initializing worker pool")
	go dispatcher()
}

func dispatcher() {
	createWorker()
	logger.Info("Dispatcher started")
	for {
		select {
		case _, ok := <-dispatcherChannel:
			if !ok {
				return
			}
			if atomic.LoadInt64(&currentWorkerCount) < config.MaxWorkerCount {
				logger.Info("Creating new worker", "workerCount", atomic.LoadInt64(&currentWorkerCount))
				createWorker()
			}
		case <-stopWorkerChannel:
			return
		}
	}
}

func createWorker() {
	workerWaitGroup.Add(1)
	atomic.AddInt64(&currentWorkerCount, 1)
	go worker()
	metrics.IncrementActiveWorkerCount()
}

func worker() {
	for {
		select {
		case currentJob := <-_jobService.JobChannel:
			executeJob(currentJob)
			metrics.DecrementJobsInQueue()

		case <-stopWorkerChannel:
			removeWorker("Stop worker signal received")
			return

		case <-time.After(idleTimeout):
			if retireIdle() {
				return
			}
		}
	}
}

// retireIdle removes the calling worker unless the pool is already at its floor.
func retireIdle() bool {
	for {
		count := atomic.LoadInt64(&currentWorkerCount)
		if count <= atomic.LoadInt64(&minWorkerCount) {
			return false
		}
		if atomic.CompareAndSwapInt64(&currentWorkerCount, count, count-1) {
			workerWaitGroup.Done()
			metrics.DecrementActiveWorkerCount()
			logger.Info("Removed worker", "reason", "idle timeout", "workerCount", count-1)
			return true
		}
	}
}
