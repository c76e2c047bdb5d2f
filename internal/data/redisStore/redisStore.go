package redisStore

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/akolanti/landbot/internal/config"
	"github.com/akolanti/landbot/pkg/logger_i"
	"github.com/redis/go-redis/v9"
)

var (
	instances = make(map[int]*Store)
	mu        sync.RWMutex
	logger    = logger_i.NewLogger("Redis Store")
	once      sync.Once

	options = Options{Addr: config.RedisAddr}
)

type Options struct {
	Addr     string
	Password string
}

type Store struct {
	client *redis.Client
	Type   int
}

// Configure sets the connection used by stores created afterwards.
func Configure(opts Options) {
	mu.Lock()
	defer mu.Unlock()
	if opts.Addr == "" {
		opts.Addr = config.RedisAddr
	}
	options = opts
}

// GetRedisStore returns the shared store for a redis logical DB, or nil when redis is unreachable.
func GetRedisStore(ctx context.Context, DBType int) *Store {

	mu.RLock()
	instance, exists := instances[DBType]
	mu.RUnlock()

	if exists {
		return instance
	}

	mu.Lock()
	defer mu.Unlock()

	if instance, exists = instances[DBType]; exists {
		return instance
	}
	return createNewStore(ctx, DBType)

}

func closeRedisStores(ctx context.Context) {
	<-ctx.Done()
	logger.Info("Closing Redis Stores")
	mu.Lock()
	defer mu.Unlock()
	for dbType, store := range instances {
		if err := store.client.Close(); err != nil {
			logger.Error("Error closing redis client", "db", dbType, "error", err)
		}
		delete(instances, dbType)
	}
	logger.Info("Redis Store Closed successfully")
}

func createNewStore(ctx context.Context, dbType int) *Store {
	log := logger.With("db", strconv.Itoa(dbType), "addr", options.Addr)
	newClient := redis.NewClient(&redis.Options{
		Addr:                  options.Addr,
		Password:              options.Password,
		DB:                    dbType,
		ContextTimeoutEnabled: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := newClient.Ping(pingCtx).Err(); err != nil {
		log.Error("Redis is offline", "error", err)
		_ = newClient.Close()
		return nil
	}

	log.Info("Redis store init successfully")

	newStore := &Store{
		client: newClient,
		Type:   dbType,
	}

	instances[dbType] = newStore
	once.Do(func() {
		go closeRedisStores(ctx)
	})
	return newStore

}

// NewTestStore wraps an existing client, typically one pointed at miniredis.
func NewTestStore(client *redis.Client) *Store {
	return &Store{
		client: client,
	}
}
