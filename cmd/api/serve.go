package main

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/akolanti/landbot/internal/config"
	"github.com/akolanti/landbot/internal/data/store"
	"github.com/akolanti/landbot/internal/domain/jobModel"
	"github.com/akolanti/landbot/internal/handlers"
	"github.com/akolanti/landbot/internal/job"
	"github.com/akolanti/landbot/internal/middleware"
	"github.com/akolanti/landbot/internal/server"
	"github.com/akolanti/landbot/internal/worker"
	"github.com/akolanti/landbot/pkg/logger_i"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the ingest worker pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd, os.Stdout)
			if err != nil {
				return err
			}
			if addr, _ := cmd.Flags().GetString("listen-addr"); addr != "" {
				a.settings.ListenAddr = addr
			}
			uploadDir, _ := cmd.Flags().GetString("upload-dir")
			runServer(a, uploadDir)
			return nil
		},
	}
	cmd.Flags().String("listen-addr", "", "server listen address (default LISTEN_ADDR or "+config.ServerListenAddr+")")
	cmd.Flags().String("upload-dir", "", "directory for ingest uploads waiting for a worker")
	return cmd
}

func runServer(a *app, uploadDir string) {
	logger := logger_i.NewLogger("main")

	//init buffered job channel
	jobChannel := make(chan jobModel.Job, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel := make(chan bool, 1)
	var workerWaitGroup sync.WaitGroup

	//init job service and job store
	serviceConfig := job.ServiceConfig{
		JobChannel:        jobChannel,
		DispatcherChannel: dispatcherChannel,
	}
	if jobStore := store.GetRedisJobStore(a.ctx); jobStore != nil {
		serviceConfig.JobStore = jobStore
	} else {
		logger.Error("Redis job store is offline, job status is kept in memory")
		serviceConfig.JobStore = store.InitInMemoryJobStore()
	}
	logger.Info("Starting job service")
	jobService := job.InitJobService(serviceConfig)

	//init worker pool
	worker.InitServices(jobService, a.rag)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	h := handlers.NewHandler(handlers.Deps{
		Chat:      a.chat,
		Jobs:      jobService,
		RAG:       a.rag,
		ModelName: a.modelName,
		UploadDir: uploadDir,
	})
	router := server.NewRouter(h, middleware.New(a.settings))

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    a.Close,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(a.settings.ListenAddr, router)

	<-stopExecution
	logger.Info("Server stopped")
}
