package ingest

import (
	"context"
	"os"
	"time"

	"github.com/akolanti/landbot/internal/config"
	"github.com/akolanti/landbot/internal/domain/commonModels"
	"github.com/akolanti/landbot/internal/domain/jobModel"
	"github.com/akolanti/landbot/internal/rag/embedding"
	"github.com/akolanti/landbot/internal/rag/vectorDB"
	"github.com/akolanti/landbot/pkg/logger_i"
)

type rawPage struct {
	Number  int    `json:"number"`
	Content string `json:"content"`
}

var logger = logger_i.NewLogger("Document Ingestion")

// ProcessDocumentIngestion runs one ingest job to completion. Uploaded files are removed
// afterwards; the default knowledge job has no file.
func ProcessDocumentIngestion(ctx context.Context, job jobModel.Job, e embedding.Embedder, vectorDatabase vectorDB.DataProcessor) jobModel.Job {
	log := logger.FromContext(ctx).With("jobId", job.Id)

	docName := job.JobPayload.IngestFileName
	docPath := job.JobPayload.IngestURL
	isDefaults := docName == config.DefaultKnowledgeDocName && docPath == ""
	if docPath != "" && job.JobPayload.RemoveAfter {
		defer func() {
			if err := os.Remove(docPath); err != nil && !os.IsNotExist(err) {
				log.Error("Error removing file", "path", docPath, "error", err)
			}
		}()
	}

	log.Debug("Processing document", "filename", docName, "path", docPath)

	job.CurrentStep = jobModel.IngestProcessing
	if err := vectorDatabase.CreateCollection(ctx, config.EmbeddingDBName); err != nil {
		log.Error("Error creating collection", "error", err)
		return failed(job, "Error preparing knowledge collection")
	}

	docType := commonModels.TXT
	if !isDefaults {
		docType = getDocType(docPath)
	}
	if docType == commonModels.ERR {
		log.Error("Unsupported document type", "path", docPath)
		return failed(job, "Unsupported document type")
	}

	doc := commonModels.Document{
		Id:                  job.Id,
		Name:                docName,
		LastIngestTimestamp: time.Now(),
		ContentType:         docType,
	}

	job.CurrentStep = jobModel.IngestExtracting
	var rawPages []rawPage
	if isDefaults {
		rawPages = DefaultKnowledgePages()
	} else {
		var err error
		rawPages, err = extractText(docPath, doc.ContentType)
		if err != nil {
			log.Error("Error extracting document", "error", err)
			return failed(job, "Error extracting document content")
		}
	}

	chunks, err := PrepareChunks(rawPages, doc, e.ModelName())
	if err != nil {
		log.Error("Error splitting document", "error", err)
		return failed(job, "Error splitting document content")
	}
	if len(chunks) == 0 {
		return failed(job, "Document has no extractable text")
	}
	log.Debug("Prepared chunks", "pages", len(rawPages), "chunks", len(chunks))

	job.CurrentStep = jobModel.IngestEmbedding
	stored, err := BatchIngest(ctx, chunks, vectorDatabase, e)
	job.JobPayload.ChunksIngested = stored
	if err != nil {
		log.Error("Error ingesting document", "error", err, "stored", stored)
		return failed(job, "Error embedding document content")
	}

	job.Status = jobModel.JobStatusComplete
	job.CurrentStep = jobModel.Complete
	log.Info("Document ingested", "chunks", stored)
	return job
}

func failed(job jobModel.Job, message string) jobModel.Job {
	job.Status = jobModel.JobStatusError
	job.Error.Message = message
	return job
}
