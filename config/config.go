package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Chunking profiles. The in-memory index works on small windows, the remote backends on larger ones.
const (
	LocalChunkSize     = 500
	LocalChunkOverlap  = 100
	RemoteChunkSize    = 1000
	RemoteChunkOverlap = 200
)

type Config struct {
	Environment  string
	Domains      []string
	CertCacheDir string
	HTTPPort     string
	HTTPSPort    string

	OpenAIAPIKey         string
	OpenAIBaseURL        string
	OpenAIChatModel      string
	OpenAIEmbeddingModel string
	EmbeddingBatchSize   int
	EmbeddingRPS         float64
	LLMMaxAttempts       int

	VectorBackend     string
	VectorNamespace   string
	PineconeAPIKey    string
	PineconeIndexName string
	PineconeNamespace string
	DatabaseURL       string

	// Nil ChunkSize or ChunkOverlap selects the backend's profile.
	ChunkSize    *int
	ChunkOverlap *int
	TopK         int

	UploadDir           string
	UploadRetention     time.Duration
	UploadSweepInterval time.Duration
	MaxUploadMB         int

	LogDir   string
	LogLevel string
}

// FileOverlay holds the tunables that may be set from CONFIG_FILE.
// Environment variables take precedence over it.
type FileOverlay struct {
	VectorBackend      string  `yaml:"vector_backend"`
	VectorNamespace    string  `yaml:"vector_namespace"`
	ChunkSize          *int    `yaml:"chunk_size"`
	ChunkOverlap       *int    `yaml:"chunk_overlap"`
	TopK               int     `yaml:"top_k"`
	EmbeddingBatchSize int     `yaml:"embedding_batch_size"`
	EmbeddingRPS       float64 `yaml:"embedding_rps"`
}

var isTest bool

func init() {
	isTest = os.Getenv("GO_ENVIRONMENT") == "test"
	if !isTest {
		envFile := getEnv("ENV_FILE", "var.env")
		if err := godotenv.Load(envFile); err != nil {
			log.Printf("Warning: Error loading %s file: %v", envFile, err)
		}
	}
}

// Load reads the configuration from the environment, on top of CONFIG_FILE if set.
func Load() (Config, error) {
	var overlay FileOverlay
	if path := getEnv("CONFIG_FILE", ""); path != "" {
		var err error
		overlay, err = LoadOverlay(path)
		if err != nil {
			return Config{}, err
		}
	}
	return fromEnv(overlay), nil
}

func LoadOverlay(path string) (FileOverlay, error) {
	var overlay FileOverlay
	data, err := os.ReadFile(path)
	if err != nil {
		return overlay, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return overlay, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return overlay, nil
}

func fromEnv(o FileOverlay) Config {
	namespace := getEnv("VECTOR_NAMESPACE", orDefault(o.VectorNamespace, "docanalyzer"))
	return Config{
		Environment:  getEnv("ENVIRONMENT", "development"),
		Domains:      []string{getEnv("DOMAIN", "example.com")},
		CertCacheDir: getEnv("CERT_CACHE_DIR", "/etc/letsencrypt/live/example.com"),
		HTTPPort:     getEnv("HTTP_PORT", "8000"),
		HTTPSPort:    getEnv("HTTPS_PORT", "443"),

		OpenAIAPIKey:         getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:        getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIChatModel:      getEnv("OPENAI_CHAT_MODEL", "gpt-4"),
		OpenAIEmbeddingModel: getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-ada-002"),
		EmbeddingBatchSize:   getEnvAsInt("EMBEDDING_BATCH_SIZE", orDefault(o.EmbeddingBatchSize, 64)),
		EmbeddingRPS:         getEnvAsFloat("EMBEDDING_RPS", o.EmbeddingRPS),
		LLMMaxAttempts:       getEnvAsInt("LLM_MAX_ATTEMPTS", 1),

		VectorBackend:     getEnv("VECTOR_BACKEND", orDefault(o.VectorBackend, "memory")),
		VectorNamespace:   namespace,
		PineconeAPIKey:    getEnv("PINECONE_API_KEY", ""),
		PineconeIndexName: getEnv("PINECONE_INDEX_NAME", ""),
		PineconeNamespace: getEnv("PINECONE_NAMESPACE", namespace),
		DatabaseURL:       getEnv("DATABASE_URL", ""),

		ChunkSize:    getEnvAsOptionalInt("CHUNK_SIZE", o.ChunkSize),
		ChunkOverlap: getEnvAsOptionalInt("CHUNK_OVERLAP", o.ChunkOverlap),
		TopK:         getEnvAsInt("TOP_K", orDefault(o.TopK, 4)),

		UploadDir:           getEnv("UPLOAD_DIR", os.TempDir()),
		UploadRetention:     getEnvAsDuration("UPLOAD_RETENTION", time.Hour),
		UploadSweepInterval: getEnvAsDuration("UPLOAD_SWEEP_INTERVAL", 10*time.Minute),
		MaxUploadMB:         getEnvAsInt("MAX_UPLOAD_MB", 50),

		LogDir:   getEnv("LOG_DIR", "logs"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Chunking returns the chunk size and overlap in effect: the explicit values
// when set, otherwise the local profile for the memory backend and the remote
// profile for managed backends.
func (c Config) Chunking() (size, overlap int) {
	size, overlap = LocalChunkSize, LocalChunkOverlap
	if c.VectorBackend != "" && c.VectorBackend != "memory" {
		size, overlap = RemoteChunkSize, RemoteChunkOverlap
	}
	if c.ChunkSize != nil {
		size = *c.ChunkSize
		if c.ChunkOverlap == nil && overlap >= size {
			overlap = size / 5
		}
	}
	if c.ChunkOverlap != nil {
		overlap = *c.ChunkOverlap
	}
	return size, overlap
}

// Validate reports every missing or inconsistent setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.OpenAIAPIKey == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY is required"))
	}
	switch c.VectorBackend {
	case "memory":
	case "pinecone":
		if c.PineconeAPIKey == "" {
			errs = append(errs, errors.New("PINECONE_API_KEY is required for the pinecone backend"))
		}
		if c.PineconeIndexName == "" {
			errs = append(errs, errors.New("PINECONE_INDEX_NAME is required for the pinecone backend"))
		}
	case "pgvector":
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the pgvector backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("VECTOR_BACKEND %q is not one of memory, pinecone, pgvector", c.VectorBackend))
	}

	size, overlap := c.Chunking()
	if size <= 0 || overlap < 0 || overlap >= size {
		errs = append(errs, fmt.Errorf("chunk overlap %d must be in [0, %d)", overlap, size))
	}
	if c.TopK <= 0 {
		errs = append(errs, fmt.Errorf("TOP_K must be positive, got %d", c.TopK))
	}
	if c.MaxUploadMB <= 0 {
		errs = append(errs, fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", c.MaxUploadMB))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsOptionalInt keeps an explicit 0 apart from an unset or unparsable value.
func getEnvAsOptionalInt(key string, fallback *int) *int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return &value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

func orDefault[T comparable](value, fallback T) T {
	var zero T
	if value == zero {
		return fallback
	}
	return value
}
