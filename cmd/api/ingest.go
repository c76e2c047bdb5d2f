package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/akolanti/landbot/internal/adapter/utils"
	"github.com/akolanti/landbot/internal/config"
	"github.com/akolanti/landbot/internal/domain/jobModel"
	"github.com/akolanti/landbot/internal/rag/ingest"
	"github.com/spf13/cobra"
)

func newIngestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [files...]",
		Short: "Load documents into the knowledge base",
		Long:  "Embeds PDF, DOCX and TXT files into the knowledge collection. --defaults loads the built-in land-law facts.",
		RunE: func(cmd *cobra.Command, args []string) error {
			withDefaults, _ := cmd.Flags().GetBool("defaults")
			if len(args) == 0 && !withDefaults {
				return errors.New("nothing to ingest: pass files or --defaults")
			}
			for _, path := range args {
				if !ingest.Supported(path) {
					return fmt.Errorf("%s: unsupported file type", path)
				}
			}

			a, err := bootstrap(cmd, os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			var jobs []jobModel.Job
			if withDefaults {
				jobs = append(jobs, newIngestJob(config.DefaultKnowledgeDocName, ""))
			}
			for _, path := range args {
				jobs = append(jobs, newIngestJob(filepath.Base(path), path))
			}

			out := cmd.OutOrStdout()
			var failures int
			for _, j := range jobs {
				ctx, cancel := context.WithTimeout(a.ctx, config.IngestJobTimeout)
				res := a.rag.IngestDocument(ctx, j)
				cancel()
				if res.Status != jobModel.JobStatusComplete {
					failures++
					fmt.Fprintf(out, "FAILED  %s: %s\n", j.JobPayload.IngestFileName, res.Error.Message)
					continue
				}
				fmt.Fprintf(out, "OK      %s: %d chunks\n", j.JobPayload.IngestFileName, res.JobPayload.ChunksIngested)
			}
			if failures > 0 {
				return fmt.Errorf("%d of %d documents failed", failures, len(jobs))
			}
			return nil
		},
	}
	cmd.Flags().Bool("defaults", false, "ingest the default knowledge base")
	return cmd
}

func newIngestJob(name string, path string) jobModel.Job {
	return jobModel.Job{
		Id:          utils.GetNewUUID(),
		JobType:     jobModel.JobTypeIngest,
		CreatedTime: time.Now(),
		Status:      jobModel.JobStatusRunning,
		CurrentStep: jobModel.IngestInit,
		JobPayload: jobModel.JobPayload{
			IngestFileName: name,
			IngestURL:      path,
		},
	}
}
