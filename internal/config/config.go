package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Scrape  Scrape  `yaml:"scrape"`
	Storage Storage `yaml:"storage"`
	Vector  Vector  `yaml:"vector"`
	LLM     LLM     `yaml:"llm"`
	Chat    Chat    `yaml:"chat"`
	Server  Server  `yaml:"server"`
	Logging Logging `yaml:"logging"`
}

type Scrape struct {
	BaseURL        string        `yaml:"base_url"`
	ProgramID      string        `yaml:"program_id"`
	CurriculumURL  string        `yaml:"curriculum_url"`
	ProgramsURL    string        `yaml:"programs_url"`
	Source         string        `yaml:"source"`
	Headless       bool          `yaml:"headless"`
	MaxDepth       int           `yaml:"max_depth"`
	BatchSize      int           `yaml:"batch_size"`
	MaxRetries     int           `yaml:"max_retries"`
	BackoffInitial time.Duration `yaml:"backoff_initial"`
	BackoffMax     time.Duration `yaml:"backoff_max"`
	Pacing         time.Duration `yaml:"pacing"`
	PacingJitter   time.Duration `yaml:"pacing_jitter"`
	HTTPTimeout    time.Duration `yaml:"http_timeout"`
	PageTimeout    time.Duration `yaml:"page_timeout"`
}

type Storage struct {
	DataDir   string        `yaml:"data_dir"`
	CourseDSN string        `yaml:"course_dsn"`
	CSVDirs   []string      `yaml:"csv_dirs"`
	RedisAddr string        `yaml:"redis_addr"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

type Vector struct {
	Backend    string `yaml:"backend"`
	URL        string `yaml:"url"`
	Collection string `yaml:"collection"`
	DSN        string `yaml:"dsn"`
	Dimension  int    `yaml:"dimension"`
}

type LLM struct {
	Provider          string        `yaml:"provider"`
	Model             string        `yaml:"model"`
	EmbeddingProvider string        `yaml:"embedding_provider"`
	EmbeddingModel    string        `yaml:"embedding_model"`
	OllamaURL         string        `yaml:"ollama_url"`
	OpenAIModel       string        `yaml:"openai_model"`
	GeminiModel       string        `yaml:"gemini_model"`
	APIKeyEnv         string        `yaml:"api_key_env"`
	MaxTokens         int           `yaml:"max_tokens"`
	Temperature       float64       `yaml:"temperature"`
	Timeout           time.Duration `yaml:"timeout"`
}

type Chat struct {
	TopK             int           `yaml:"top_k"`
	StudyPlanURL     string        `yaml:"study_plan_url"`
	StudyPlanTimeout time.Duration `yaml:"study_plan_timeout"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
}

type Server struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type Logging struct {
	Mode  string `yaml:"mode"`
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for advisor.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "advisor")
}

// DataDir returns the XDG data directory for advisor.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "advisor")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/advisor/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'advisor init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv(os.Getenv)
	return cfg, nil
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Scrape: Scrape{
			BaseURL:        "https://campus.tum.de/tumonline",
			ProgramID:      "121",
			Source:         "hybrid",
			Headless:       true,
			MaxDepth:       3,
			BatchSize:      10,
			MaxRetries:     3,
			BackoffInitial: 8 * time.Second,
			BackoffMax:     30 * time.Second,
			Pacing:         time.Second,
			PacingJitter:   time.Second,
			HTTPTimeout:    15 * time.Second,
			PageTimeout:    45 * time.Second,
		},
		Storage: Storage{
			CSVDirs: []string{
				"../data-collection/csv_tables",
				"../../data-collection/csv_tables",
				"/app/data",
				"data",
			},
			CacheTTL: 10 * time.Minute,
		},
		Vector: Vector{
			Backend:    "qdrant",
			URL:        "http://localhost:6333",
			Collection: "tum_courses",
			Dimension:  768,
		},
		LLM: LLM{
			Provider:          "ollama",
			Model:             "llama3.1:8b",
			EmbeddingProvider: "ollama",
			EmbeddingModel:    "nomic-embed-text",
			OllamaURL:         "http://localhost:11434",
			OpenAIModel:       "gpt-4o-mini",
			GeminiModel:       "gemini-1.5-flash",
			APIKeyEnv:         "OPENAI_API_KEY",
			MaxTokens:         1024,
			Temperature:       0.2,
			Timeout:           60 * time.Second,
		},
		Chat: Chat{
			TopK:             5,
			StudyPlanURL:     "http://localhost:8083",
			StudyPlanTimeout: 10 * time.Second,
			RequestTimeout:   90 * time.Second,
		},
		Server:  Server{Port: 8084, CORSOrigins: []string{"*"}},
		Logging: Logging{Mode: "dev", Level: "info"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// applyEnv overlays deployment-specific endpoints from the environment.
func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("ADVISOR_COURSE_DSN"); v != "" {
		c.Storage.CourseDSN = v
	}
	if v := getenv("ADVISOR_REDIS_ADDR"); v != "" {
		c.Storage.RedisAddr = v
	}
	if v := getenv("ADVISOR_VECTOR_URL"); v != "" {
		c.Vector.URL = v
	}
	if v := getenv("ADVISOR_STUDY_PLAN_URL"); v != "" {
		c.Chat.StudyPlanURL = v
	}
}

// Validate reports configuration errors that must stop the chat service
// from starting.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Vector.Backend) {
	case "qdrant":
		if strings.TrimSpace(c.Vector.URL) == "" {
			errs = append(errs, errors.New("vector.url is required for qdrant"))
		}
		if strings.TrimSpace(c.Vector.Collection) == "" {
			errs = append(errs, errors.New("vector.collection is required for qdrant"))
		}
	case "pgvector":
		if strings.TrimSpace(c.Vector.DSN) == "" {
			errs = append(errs, errors.New("vector.dsn is required for pgvector"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown vector backend %q", c.Vector.Backend))
	}
	if c.Vector.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("vector.dimension must be positive, got %d", c.Vector.Dimension))
	}
	if c.Chat.TopK <= 0 {
		errs = append(errs, fmt.Errorf("chat.top_k must be positive, got %d", c.Chat.TopK))
	}

	for _, p := range []string{c.LLM.Provider, c.LLM.EmbeddingProvider} {
		switch strings.ToLower(p) {
		case "ollama":
		case "openai", "gemini":
			if os.Getenv(c.LLM.APIKeyEnv) == "" {
				errs = append(errs, fmt.Errorf("provider %s needs an API key in $%s", p, c.LLM.APIKeyEnv))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown llm provider %q", p))
		}
	}

	return errors.Join(errs...)
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Storage.DataDir != "" {
		return c.Storage.DataDir
	}
	return DataDir()
}

// DBPath returns the local SQLite store location.
func (c *Config) DBPath() string {
	return filepath.Join(c.GetDataDir(), "advisor.db")
}

// CSVSearchDirs returns the configured CSV directories followed by the
// data directory.
func (c *Config) CSVSearchDirs() []string {
	dirs := append([]string{}, c.Storage.CSVDirs...)
	return append(dirs, c.GetDataDir())
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
