package handlers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/akolanti/landbot/internal/adapter"
	"github.com/akolanti/landbot/internal/adapter/utils"
	"github.com/akolanti/landbot/internal/chatbot"
	"github.com/akolanti/landbot/internal/config"
	"github.com/akolanti/landbot/internal/job"
	"github.com/akolanti/landbot/internal/rag/ingest"
)

// PostIngestHandler godoc
// @Summary      Upload a document for ingestion
// @Description  Receives a file via multipart/form-data, stores it temporarily and queues an ingestion job.
// @Tags         Knowledge
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        document_name  formData  string  false  "Display name, defaults to the file name"
// @Param        document       formData  file    true   "PDF, DOCX, ODT, RTF, TXT or MD file"
// @Success      202  {object}  api.InitJobResponse
// @Failure      400  {object}  api.ErrorResponse "Missing file, unsupported type or file too large"
// @Failure      500  {object}  api.ErrorResponse "Storage error"
// @Router       /api/chatbot/knowledge/ingest/ [post]
func (h *Handler) PostIngestHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !validateContext(ctx) {
		return
	}
	log := logRH.FromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadBytes)
	if err := r.ParseMultipartForm(config.MaxUploadBytes); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "File too large or bad request", string(chatbot.ErrorInvalidInput), err.Error())
		return
	}

	fileReader, fileMetadata, err := r.FormFile("document")
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "Could not retrieve file", string(chatbot.ErrorInvalidInput), "")
		return
	}
	defer fileReader.Close()

	original := filepath.Base(fileMetadata.Filename)
	if !ingest.Supported(original) {
		WriteErrorResponse(w, http.StatusBadRequest, "Unsupported document type", string(chatbot.ErrorInvalidInput), filepath.Ext(original))
		return
	}
	docName := strings.TrimSpace(r.FormValue("document_name"))
	if docName == "" {
		docName = original
	}

	targetDir, err := h.getTargetDirectory()
	if err != nil {
		log.Error("Couldn't get target directory", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "Storage error", string(chatbot.ErrorInternal), "")
		return
	}
	tempFilePath := filepath.Join(targetDir, fmt.Sprintf("%d-%s", time.Now().UnixNano(), original))
	if err := saveUpload(tempFilePath, fileReader); err != nil {
		log.Error("Couldn't store upload", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "Write error", string(chatbot.ErrorInternal), "")
		return
	}

	queued, err := h.jobs.EnqueueIngest(ctx, job.IngestRequest{DocumentName: docName, Path: tempFilePath, Temporary: true})
	if err != nil {
		_ = os.Remove(tempFilePath)
		WriteErrorResponse(w, http.StatusInternalServerError, "Could not queue ingestion", string(chatbot.ErrorInternal), "")
		return
	}
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(queued.Id))
}

func saveUpload(path string, src io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(path)
		return err
	}
	return dst.Close()
}

// GetStatusHandler godoc
// @Summary      Get ingestion job status
// @Tags         Knowledge
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  api.JobResponse
// @Failure      404  {object}  api.ErrorResponse
// @Router       /api/chatbot/knowledge/status/{id} [get]
func (h *Handler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !validateContext(ctx) {
		return
	}
	id := utils.GetChiURLParam(r, "id")
	result, isFound := h.jobs.GetJob(ctx, id)
	if !isFound {
		WriteErrorResponse(w, http.StatusNotFound, "Job not found", string(chatbot.ErrorNotFound), id)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(result))
}

// SearchHandler godoc
// @Summary      Search the knowledge base
// @Tags         Knowledge
// @Produce      json
// @Param        q      query     string  true   "Search text"
// @Param        limit  query     int     false  "Max results (default 5)"
// @Success      200    {object}  api.SearchResponse
// @Failure      400    {object}  api.ErrorResponse
// @Failure      502    {object}  api.ErrorResponse
// @Router       /api/chatbot/knowledge/search/ [get]
func (h *Handler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "Paramètre q requis", string(chatbot.ErrorInvalidInput), "")
		return
	}
	limit, err := queryInt(r, "limit", config.SearchTopK)
	if err != nil || limit == 0 || limit > 20 {
		WriteErrorResponse(w, http.StatusBadRequest, "limit doit être compris entre 1 et 20", string(chatbot.ErrorInvalidInput), "")
		return
	}

	passages, err := h.rag.Search(ctx, q, limit)
	if err != nil {
		logRH.FromContext(ctx).Error("Knowledge search failed", "error", err)
		WriteErrorResponse(w, http.StatusBadGateway, "Recherche indisponible", string(chatbot.ErrorUpstream), "")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToSearchResponse(q, passages))
}
