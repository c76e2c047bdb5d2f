package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/akolanti/landbot/internal/adapter/utils"
	"github.com/akolanti/landbot/internal/config"
	"github.com/akolanti/landbot/internal/domain/commonModels"
	"github.com/akolanti/landbot/internal/rag/embedding"
	"github.com/akolanti/landbot/internal/rag/vectorDB"
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	maxChunkSize = 1000 // characters
	chunkOverlap = 150
	batchSize    = 100
)

var splitter = textsplitter.NewRecursiveCharacter(
	textsplitter.WithChunkSize(maxChunkSize),
	textsplitter.WithChunkOverlap(chunkOverlap),
	textsplitter.WithSeparators([]string{"\n\n", "\n", ". ", " ", ""}),
)

func getDocType(docPath string) commonModels.DocType {
	switch strings.ToLower(filepath.Ext(docPath)) {
	case ".pdf":
		return commonModels.PDF
	case ".docx", ".odt", ".rtf":
		return commonModels.DOCX
	case ".txt", ".md":
		return commonModels.TXT
	default:
		return commonModels.ERR
	}
}

// Supported reports whether a file name has an extension the extractors understand.
func Supported(name string) bool {
	return getDocType(name) != commonModels.ERR
}

func extractText(path string, contentType commonModels.DocType) ([]rawPage, error) {
	switch contentType {
	case commonModels.PDF:
		return extractPDF(path)
	case commonModels.DOCX, commonModels.TXT:
		return extractdocxTxtRtf(path)
	default:
		return nil, fmt.Errorf("unsupported content type: %s", contentType)
	}
}

// PrepareChunks splits every page and tags each chunk with its page and position.
func PrepareChunks(pages []rawPage, doc commonModels.Document, embeddingModel string) ([]commonModels.DocChunk, error) {
	var allChunks []commonModels.DocChunk

	for _, page := range pages {
		content := strings.TrimSpace(page.Content)
		if content == "" {
			continue
		}
		stringChunks, err := splitter.SplitText(content)
		if err != nil {
			return nil, fmt.Errorf("split page %d: %w", page.Number, err)
		}

		for i, text := range stringChunks {
			if strings.TrimSpace(text) == "" {
				continue
			}
			allChunks = append(allChunks, commonModels.DocChunk{
				Doc:            doc,
				ChunkId:        utils.GetNewUUID(),
				Chunk:          text,
				PageNum:        page.Number,
				ChunkPageOrder: i,
				EmbeddingModel: embeddingModel,
			})
		}
	}

	return allChunks, nil
}

// BatchIngest embeds and upserts chunks batchSize at a time and returns how many were stored.
func BatchIngest(ctx context.Context, chunks []commonModels.DocChunk, vectorDB vectorDB.DataProcessor, embedder embedding.Embedder) (int, error) {
	log := logger.FromContext(ctx)
	stored := 0

	for i := 0; i < len(chunks); i += batchSize {
		if err := ctx.Err(); err != nil {
			return stored, err
		}
		end := min(i+batchSize, len(chunks))
		currentBatch := chunks[i:end]

		texts := make([]string, len(currentBatch))
		for j, c := range currentBatch {
			texts[j] = c.Chunk
		}

		log.Debug("Starting embedding call", "batchStart", i, "batchLength", len(currentBatch))
		vectors, err := embedder.BatchEmbedding(ctx, texts)
		if err != nil {
			return stored, fmt.Errorf("embedding batch failed: %w", err)
		}

		err = vectorDB.UpsertBatch(ctx, config.EmbeddingDBName, currentBatch, vectors)
		if err != nil {
			return stored, fmt.Errorf("upserting to qdrant failed: %w", err)
		}
		stored += len(currentBatch)
	}

	return stored, nil
}

// DefaultKnowledgePages exposes the built-in passages as one page each so they ingest
// through the same path as uploaded files.
func DefaultKnowledgePages() []rawPage {
	pages := make([]rawPage, len(config.DefaultKnowledge))
	for i, text := range config.DefaultKnowledge {
		pages[i] = rawPage{Number: i + 1, Content: text}
	}
	return pages
}
