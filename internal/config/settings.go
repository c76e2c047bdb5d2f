package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Settings are the values that change per deployment. They come from a .env file
// and the process environment, the environment winning.
type Settings struct {
	Debug          bool   `mapstructure:"debug"`
	AllowedHosts   string `mapstructure:"allowed_hosts"`
	ListenAddr     string `mapstructure:"listen_addr"`
	AuthToken      string `mapstructure:"auth_token"`
	GeminiAPIKey   string `mapstructure:"gemini_api_key"`
	GoogleAPIKey   string `mapstructure:"google_api_key"`
	GeminiModel    string `mapstructure:"gemini_model"`
	EmbeddingModel string `mapstructure:"embedding_model"`
	LLMProvider    string `mapstructure:"llm_provider"`
	OpenAIAPIKey   string `mapstructure:"openai_api_key"`
	OpenAIBaseURL  string `mapstructure:"openai_base_url"`
	OpenAIModel    string `mapstructure:"openai_model"`
	DatabaseDriver string `mapstructure:"database_driver"`
	DatabaseDSN    string `mapstructure:"database_dsn"`
	RedisAddr      string `mapstructure:"redis_addr"`
	RedisPassword  string `mapstructure:"redis_password"`
	QdrantHost     string `mapstructure:"qdrant_host"`
	QdrantPort     int    `mapstructure:"qdrant_port"`

	hosts []string
}

var localHosts = []string{".localhost", "127.0.0.1", "[::1]"}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("allowed_hosts", "")
	v.SetDefault("listen_addr", ServerListenAddr)
	v.SetDefault("auth_token", "")
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("google_api_key", "")
	v.SetDefault("gemini_model", GeminiModelName)
	v.SetDefault("embedding_model", GoogleEmbeddingModel)
	v.SetDefault("llm_provider", DefaultLLMProvider)
	v.SetDefault("openai_api_key", "")
	v.SetDefault("openai_base_url", "")
	v.SetDefault("openai_model", OpenAIModelName)
	v.SetDefault("database_driver", DefaultDatabaseDriver)
	v.SetDefault("database_dsn", DefaultDatabaseDSN)
	v.SetDefault("redis_addr", RedisAddr)
	v.SetDefault("redis_password", "")
	v.SetDefault("qdrant_host", QdrantHost)
	v.SetDefault("qdrant_port", QdrantGrpcPort)
}

// Load reads envFile when it exists and overlays the process environment.
// An empty envFile means environment only.
func Load(envFile string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat %s: %w", envFile, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	s.LLMProvider = strings.ToLower(strings.TrimSpace(s.LLMProvider))
	s.hosts = parseHosts(s.AllowedHosts)
	return &s, nil
}

func parseHosts(raw string) []string {
	var hosts []string
	for _, h := range strings.Split(raw, ",") {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

// APIKey returns GEMINI_API_KEY, falling back to GOOGLE_API_KEY.
func (s *Settings) APIKey() string {
	if s.GeminiAPIKey != "" {
		return s.GeminiAPIKey
	}
	return s.GoogleAPIKey
}

// Hosts is the effective allow list. Debug mode with no list allows local hosts only.
func (s *Settings) Hosts() []string {
	if len(s.hosts) == 0 && s.Debug {
		return localHosts
	}
	return s.hosts
}

// HostAllowed matches a request Host header against the allow list. "*" matches
// everything and a leading dot matches the domain and all of its subdomains.
func (s *Settings) HostAllowed(hostHeader string) bool {
	host := strings.ToLower(strings.TrimSpace(hostHeader))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
		if strings.Contains(host, ":") {
			host = "[" + host + "]"
		}
	}
	host = strings.TrimSuffix(host, ".")
	if host == "" {
		return false
	}

	for _, pattern := range s.Hosts() {
		switch {
		case pattern == "*":
			return true
		case strings.HasPrefix(pattern, "."):
			if host == pattern[1:] || strings.HasSuffix(host, pattern) {
				return true
			}
		case host == pattern:
			return true
		}
	}
	return false
}

// Validate reports settings the server cannot start without.
func (s *Settings) Validate() error {
	var errs []error
	switch s.LLMProvider {
	case "gemini":
		if s.APIKey() == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY (or GOOGLE_API_KEY) is not set"))
		}
	case "openai":
		if s.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is not set"))
		}
		if s.APIKey() == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is still required for embeddings"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q", s.LLMProvider))
	}
	switch s.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("unsupported DATABASE_DRIVER %q", s.DatabaseDriver))
	}
	return errors.Join(errs...)
}
