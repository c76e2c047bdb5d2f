package qdrantDB

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/akolanti/landbot/internal/config"
	"github.com/akolanti/landbot/internal/domain/commonModels"
	"github.com/akolanti/landbot/pkg/logger_i"
	"github.com/qdrant/go-client/qdrant"
)

var logger = logger_i.NewLogger("Qdrant")
var quadrantInstance *qdrant.Client
var once sync.Once
var dimension = uint64(config.EmbeddingOutputDimensionality)
var collectionName = config.EmbeddingDBName

type ClientHolder struct {
	QObj *qdrant.Client
}

// GetQuadrantClient connects once and makes sure both collections exist. It returns nil
// when qdrant is unreachable.
func GetQuadrantClient(ctx context.Context, host string, port int) *ClientHolder {

	once.Do(func() {
		res := newClient(ctx, host, port)
		if res != nil {
			quadrantInstance = res
			initCacheCollection(ctx, quadrantInstance)
			go closeQdrant(ctx, quadrantInstance)
		}
	})

	if quadrantInstance == nil {
		return nil
	}
	return &ClientHolder{
		QObj: quadrantInstance,
	}
}

func newClient(ctx context.Context, host string, port int) *qdrant.Client {
	if host == "" || port == 0 {
		host = config.QdrantHost
		port = config.QdrantGrpcPort
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     host,
		Port:     port,
		UseTLS:   config.QdrantUseTLS,
		PoolSize: uint(config.QdrantPoolSize),
	})
	if err != nil {
		logger.Error("could not instantiate", "host", host, "port", port, "error", err)
		return nil
	}

	err = createCollection(ctx, client, config.EmbeddingDBName)
	if err != nil {
		logger.Error("could not create collection", "collectionName", config.EmbeddingDBName, "error", err)
		_ = client.Close()
		return nil
	}

	return client
}

func closeQdrant(ctx context.Context, qi *qdrant.Client) {
	<-ctx.Done()
	logger.Info("Shutting down Qdrant")
	err := qi.Close()
	if err != nil {
		logger.Error("could not close Qdrant", "error", err)
	}
	logger.Info("Closed Qdrant")
}

func (db *ClientHolder) Search(ctx context.Context, vectorFloat []float32, limit uint64) ([]commonModels.Passage, error) {
	loggr := logger.FromContext(ctx)
	if limit == 0 {
		limit = config.SearchTopK
	}
	result, err := db.QObj.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collectionName,
		Query:          qdrant.NewQuery(vectorFloat...),
		Limit:          qdrant.PtrOf(limit),
		WithPayload:    qdrant.NewWithPayload(true),
	})

	if err != nil {
		loggr.Error("Error querying Qdrant", "error", err)
		return nil, err
	}

	passages := make([]commonModels.Passage, 0, len(result))
	for _, hit := range result {
		content := hit.Payload["content"].GetStringValue()
		if content == "" {
			continue
		}
		passages = append(passages, commonModels.Passage{
			Content: content,
			DocName: hit.Payload["doc_name"].GetStringValue(),
			PageNum: hit.Payload["page_num"].GetIntegerValue(),
			Score:   hit.Score,
		})
	}

	loggr.Debug("Found matches", "count", len(passages))
	return passages, nil
}

func (db *ClientHolder) CreateCollection(ctx context.Context, collectionName string) error {
	return createCollection(ctx, db.QObj, collectionName)
}

func (db *ClientHolder) Ping(ctx context.Context) error {
	_, err := db.QObj.HealthCheck(ctx)
	return err
}

func (db *ClientHolder) UpsertBatch(ctx context.Context, collectionName string, chunks []commonModels.DocChunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("mismatch: got %d chunks but %d vectors", len(chunks), len(vectors))
	}

	qdrantPoints := make([]*qdrant.PointStruct, 0, len(chunks))

	for i, chunk := range chunks {
		if len(vectors[i]) == 0 {
			continue
		}
		qdrantPoints = append(qdrantPoints, &qdrant.PointStruct{
			Id:      qdrant.NewID(chunk.ChunkId),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"content":         chunk.Chunk,
				"page_num":        chunk.PageNum,
				"source_doc_id":   chunk.Doc.Id,
				"doc_name":        chunk.Doc.Name,
				"chunk_order":     chunk.ChunkPageOrder,
				"chunk_id":        chunk.ChunkId,
				"embedding_model": chunk.EmbeddingModel,
				"ingested_at":     chunk.Doc.LastIngestTimestamp.Unix(),
			}),
		})
	}
	if len(qdrantPoints) == 0 {
		return errors.New("no embedded chunks to upsert")
	}

	_, err := db.QObj.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collectionName,
		Points:         qdrantPoints,
		Wait:           qdrant.PtrOf(true),
	})

	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}

	return nil

}

func createCollection(ctx context.Context, client *qdrant.Client, collectionName string) error {
	if collectionName == "" {
		return errors.New("empty collection name")
	}

	exists, err := client.CollectionExists(ctx, collectionName)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	return client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
}
