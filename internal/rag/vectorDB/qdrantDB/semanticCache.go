package qdrantDB

import (
	"context"
	"time"

	"github.com/akolanti/landbot/internal/config"
	"github.com/qdrant/go-client/qdrant"
)

func initCacheCollection(ctx context.Context, client *qdrant.Client) {
	err := createCollection(ctx, client, config.SemanticCacheDBName)
	if err != nil {
		logger.FromContext(ctx).Error("Semantic cache collection creation failed", "error", err)
	}
}

// GetCachedAnswer returns the stored answer of the closest earlier question when it
// scores at least CacheSimilarityCutoff.
func (db *ClientHolder) GetCachedAnswer(ctx context.Context, queryVector []float32) (string, bool, error) {
	loggr := logger.FromContext(ctx)

	searchResult, err := db.QObj.Query(ctx, &qdrant.QueryPoints{
		CollectionName: config.SemanticCacheDBName,
		Query:          qdrant.NewQuery(queryVector...),
		Limit:          qdrant.PtrOf(uint64(1)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		loggr.Error("Cache query failed", "error", err)
		return "", false, err
	}
	if len(searchResult) == 0 {
		return "", false, nil
	}

	if searchResult[0].Score < config.CacheSimilarityCutoff {
		loggr.Debug("Cache miss", "score", searchResult[0].Score)
		return "", false, nil
	}

	answer := searchResult[0].Payload["answer"].GetStringValue()
	if answer == "" {
		return "", false, nil
	}
	loggr.Info("Semantic cache hit", "score", searchResult[0].Score)
	return answer, true, nil
}

func (db *ClientHolder) SaveToCache(ctx context.Context, id string, vector []float32, question string, answer string) error {
	_, err := db.QObj.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: config.SemanticCacheDBName,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewID(id),
				Vectors: qdrant.NewVectors(vector...),
				Payload: qdrant.NewValueMap(map[string]any{
					"question":  question,
					"answer":    answer,
					"timestamp": time.Now().Unix(),
				}),
			},
		},
	})
	if err != nil {
		logger.FromContext(ctx).Error("Saving answer to cache failed", "error", err)
	}
	return err
}
