package core

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/engram-labs/engram-go/pkg/analyzer"
	analyzerOpenAI "github.com/engram-labs/engram-go/pkg/analyzer/openai"
	"github.com/engram-labs/engram-go/pkg/embedder"
	embedderOpenAI "github.com/engram-labs/engram-go/pkg/embedder/openai"
	"github.com/engram-labs/engram-go/pkg/storage"
	mysqlStore "github.com/engram-labs/engram-go/pkg/storage/mysql"
	postgresStore "github.com/engram-labs/engram-go/pkg/storage/postgres"
	sqliteStore "github.com/engram-labs/engram-go/pkg/storage/sqlite"
)

// Config contains the complete configuration for a memory system.
type Config struct {
	// Storage contains storage backend configuration.
	Storage StorageConfig `json:"storage"`

	// Embedder contains embedding provider configuration.
	Embedder EmbedderConfig `json:"embedder"`

	// Analyzer contains text-analysis provider configuration (optional;
	// nil disables Analyze and Reflect).
	Analyzer *AnalyzerConfig `json:"analyzer,omitempty"`
}

// StorageConfig contains configuration for the storage backend.
//
// Supported providers: sqlite, postgres, mysql.
type StorageConfig struct {
	// Provider is the storage backend name (sqlite, postgres, mysql).
	Provider string `json:"provider"`

	// Path is the database file path (sqlite only).
	Path string `json:"path,omitempty"`

	// Host is the database server host (postgres, mysql).
	Host string `json:"host,omitempty"`

	// Port is the database server port (postgres, mysql).
	Port int `json:"port,omitempty"`

	// User is the database user (postgres, mysql).
	User string `json:"user,omitempty"`

	// Password is the database password (postgres, mysql).
	Password string `json:"password,omitempty"`

	// DBName is the database name (postgres, mysql).
	DBName string `json:"db_name,omitempty"`

	// Table is the memories table name (default "memories").
	Table string `json:"table,omitempty"`

	// SSLMode is the SSL mode (postgres only, default "disable").
	SSLMode string `json:"ssl_mode,omitempty"`
}

// EmbedderConfig contains configuration for the embedding provider.
//
// Supported providers: openai.
type EmbedderConfig struct {
	// Provider is the embedding provider name.
	Provider string `json:"provider"`

	// APIKey is the API key for the embedding provider.
	APIKey string `json:"api_key"`

	// BaseURL is the base URL for the API (optional).
	BaseURL string `json:"base_url,omitempty"`

	// Dimensions is the embedding vector dimension (e.g., 1536, 256).
	Dimensions int `json:"dimensions,omitempty"`
}

// AnalyzerConfig contains configuration for the text-analysis provider.
//
// Supported providers: openai.
type AnalyzerConfig struct {
	// Provider is the analysis provider name.
	Provider string `json:"provider"`

	// APIKey is the API key for the analysis provider.
	APIKey string `json:"api_key"`

	// Model is the model name to use (default "gpt-4").
	Model string `json:"model,omitempty"`

	// BaseURL is the base URL for the API (optional).
	BaseURL string `json:"base_url,omitempty"`
}

// LoadConfigFromEnv loads configuration from environment variables.
//
// A .env or .env.example file is searched upward from the working directory
// (up to 5 levels) and loaded if found.
//
// Supported environment variables:
//   - STORAGE_PROVIDER (sqlite, postgres, mysql; default sqlite)
//   - SQLITE_PATH, STORAGE_TABLE
//   - POSTGRES_HOST, POSTGRES_PORT, POSTGRES_USER, POSTGRES_PASSWORD,
//     POSTGRES_DATABASE, POSTGRES_SSLMODE
//   - MYSQL_HOST, MYSQL_PORT, MYSQL_USER, MYSQL_PASSWORD, MYSQL_DATABASE
//   - EMBEDDING_PROVIDER, EMBEDDING_API_KEY, EMBEDDING_BASE_URL,
//     EMBEDDING_DIMS
//   - ANALYZER_PROVIDER, ANALYZER_API_KEY, ANALYZER_MODEL, ANALYZER_BASE_URL
func LoadConfigFromEnv() (*Config, error) {
	if envPath, found := FindEnvFile(); found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	provider := getEnvOrDefault("STORAGE_PROVIDER", "sqlite")

	storageConfig := StorageConfig{
		Provider: provider,
		Table:    getEnvOrDefault("STORAGE_TABLE", "memories"),
	}

	switch provider {
	case "sqlite":
		storageConfig.Path = getEnvOrDefault("SQLITE_PATH", "./engram.db")
	case "postgres":
		port, _ := strconv.Atoi(getEnvOrDefault("POSTGRES_PORT", "5432"))
		storageConfig.Host = getEnvOrDefault("POSTGRES_HOST", "localhost")
		storageConfig.Port = port
		storageConfig.User = getEnvOrDefault("POSTGRES_USER", "postgres")
		storageConfig.Password = os.Getenv("POSTGRES_PASSWORD")
		storageConfig.DBName = getEnvOrDefault("POSTGRES_DATABASE", "engram")
		storageConfig.SSLMode = getEnvOrDefault("POSTGRES_SSLMODE", "disable")
	case "mysql":
		port, _ := strconv.Atoi(getEnvOrDefault("MYSQL_PORT", "3306"))
		storageConfig.Host = getEnvOrDefault("MYSQL_HOST", "127.0.0.1")
		storageConfig.Port = port
		storageConfig.User = getEnvOrDefault("MYSQL_USER", "root")
		storageConfig.Password = os.Getenv("MYSQL_PASSWORD")
		storageConfig.DBName = getEnvOrDefault("MYSQL_DATABASE", "engram")
	}

	dims, _ := strconv.Atoi(getEnvOrDefault("EMBEDDING_DIMS", "1536"))

	config := &Config{
		Storage: storageConfig,
		Embedder: EmbedderConfig{
			Provider:   getEnvOrDefault("EMBEDDING_PROVIDER", "openai"),
			APIKey:     os.Getenv("EMBEDDING_API_KEY"),
			BaseURL:    os.Getenv("EMBEDDING_BASE_URL"),
			Dimensions: dims,
		},
	}

	if analyzerProvider := os.Getenv("ANALYZER_PROVIDER"); analyzerProvider != "" {
		config.Analyzer = &AnalyzerConfig{
			Provider: analyzerProvider,
			APIKey:   os.Getenv("ANALYZER_API_KEY"),
			Model:    os.Getenv("ANALYZER_MODEL"),
			BaseURL:  os.Getenv("ANALYZER_BASE_URL"),
		}
	}

	return config, nil
}

// LoadConfigFromJSON loads configuration from a JSON file.
func LoadConfigFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewMemoryError("LoadConfigFromJSON", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, NewMemoryError("LoadConfigFromJSON", err)
	}

	return &config, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Storage.Provider == "" {
		return NewMemoryError("Validate", ErrInvalidConfig)
	}
	if c.Embedder.Provider == "" {
		return NewMemoryError("Validate", ErrInvalidConfig)
	}
	if c.Analyzer != nil && c.Analyzer.Provider == "" {
		return NewMemoryError("Validate", ErrInvalidConfig)
	}
	return nil
}

// NewFromConfig builds a memory system from configuration: storage backend,
// embedding provider (wrapped in the deterministic fallback by New), and
// the optional analyzer.
func NewFromConfig(cfg *Config, opts ...Option) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := initStorage(cfg.Storage)
	if err != nil {
		return nil, err
	}

	provider, err := initEmbedder(cfg.Embedder)
	if err != nil {
		return nil, err
	}

	if cfg.Analyzer != nil {
		analysis, err := initAnalyzer(*cfg.Analyzer)
		if err != nil {
			return nil, err
		}
		opts = append([]Option{WithAnalyzer(analysis)}, opts...)
	}

	return New(store, provider, opts...)
}

// initStorage initializes the storage backend.
func initStorage(cfg StorageConfig) (storage.Store, error) {
	switch cfg.Provider {
	case "sqlite":
		return sqliteStore.NewClient(&sqliteStore.Config{
			DBPath: cfg.Path,
			Table:  cfg.Table,
		})
	case "postgres":
		return postgresStore.NewClient(&postgresStore.Config{
			Host:     cfg.Host,
			Port:     cfg.Port,
			User:     cfg.User,
			Password: cfg.Password,
			DBName:   cfg.DBName,
			Table:    cfg.Table,
			SSLMode:  cfg.SSLMode,
		})
	case "mysql":
		return mysqlStore.NewClient(&mysqlStore.Config{
			Host:     cfg.Host,
			Port:     cfg.Port,
			User:     cfg.User,
			Password: cfg.Password,
			DBName:   cfg.DBName,
			Table:    cfg.Table,
		})
	default:
		return nil, NewMemoryError("initStorage", ErrInvalidConfig)
	}
}

// initEmbedder initializes the embedding provider.
func initEmbedder(cfg EmbedderConfig) (embedder.Provider, error) {
	switch cfg.Provider {
	case "openai":
		return embedderOpenAI.NewClient(&embedderOpenAI.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Dimensions: cfg.Dimensions,
		})
	default:
		return nil, NewMemoryError("initEmbedder", ErrInvalidConfig)
	}
}

// initAnalyzer initializes the text-analysis provider.
func initAnalyzer(cfg AnalyzerConfig) (analyzer.Provider, error) {
	switch cfg.Provider {
	case "openai":
		return analyzerOpenAI.NewClient(&analyzerOpenAI.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	default:
		return nil, NewMemoryError("initAnalyzer", ErrInvalidConfig)
	}
}

// getEnvOrDefault gets an environment variable or returns the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FindEnvFile searches for .env or .env.example files, checking the current
// directory and then up to 5 parent directories.
func FindEnvFile() (string, bool) {
	if _, err := os.Stat(".env"); err == nil {
		return ".env", true
	}
	if _, err := os.Stat(".env.example"); err == nil {
		return ".env.example", true
	}

	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		envExamplePath := filepath.Join(dir, ".env.example")

		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}
		if _, err := os.Stat(envExamplePath); err == nil {
			return envExamplePath, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}
