package customHttpClient

import (
	"net/http"
	"sync"

	"github.com/akolanti/landbot/internal/config"
)

var (
	once   sync.Once
	client *http.Client
)

var customTransport = &http.Transport{
	Proxy:               http.ProxyFromEnvironment,
	MaxIdleConns:        config.MaxIdleConns,
	MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
	IdleConnTimeout:     config.IdleConnTimeout,
	ForceAttemptHTTP2:   true,
}

// GetPooledClient is shared by the LLM and embedding SDK clients so they reuse connections.
// No client timeout: streamed generations are bounded by their request context.
func GetPooledClient() *http.Client {
	once.Do(func() {
		client = &http.Client{Transport: customTransport}
	})
	return client
}
