// Package config loads runtime settings from .env, an optional YAML file
// and the environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"nexus/internal/artifact"
)

type Config struct {
	Port      string          `yaml:"port"`
	Env       string          `yaml:"env"`
	LLM       LLMConfig       `yaml:"llm"`
	Grounding GroundingConfig `yaml:"grounding"`
	Store     StoreConfig     `yaml:"store"`
	Artifact  ArtifactConfig  `yaml:"artifact"`
	Session   SessionConfig   `yaml:"session"`
	// AllowedOrigins restricts CORS. Empty reflects any origin.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type LLMConfig struct {
	// Provider is "gemini" or "fake". Fake produces offline placeholders.
	Provider string        `yaml:"provider"`
	Model    string        `yaml:"model"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout"`
	RPS      float64       `yaml:"rps"`
	Burst    int           `yaml:"burst"`
	// RemoteURL points nexusctl at a running gateway instead of calling
	// the provider directly.
	RemoteURL string `yaml:"remote_url"`
}

type GroundingConfig struct {
	Disabled     bool   `yaml:"disabled"`
	WorldBankURL string `yaml:"worldbank_url"`
	ComtradeURL  string `yaml:"comtrade_url"`
	ComtradeKey  string `yaml:"comtrade_key"`
}

type StoreConfig struct {
	// Backend is memory, file or postgres.
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
	DSN     string `yaml:"dsn"`
}

type ArtifactConfig struct {
	// Backend is none, memory, s3 or postgres.
	Backend string            `yaml:"backend"`
	S3      artifact.S3Config `yaml:"s3"`
}

type SessionConfig struct {
	Debounce     time.Duration `yaml:"debounce"`
	StageTimeout time.Duration `yaml:"stage_timeout"`
}

const (
	DefaultModel    = "gemini-2.5-flash"
	DefaultStoreDir = ".nexus"
)

func Default() Config {
	return Config{
		Port: ":8080",
		Env:  "local",
		LLM: LLMConfig{
			Provider: "gemini",
			Model:    DefaultModel,
			Timeout:  2 * time.Minute,
			RPS:      1,
			Burst:    4,
		},
		Store:    StoreConfig{Backend: "file", Path: DefaultStoreDir},
		Artifact: ArtifactConfig{Backend: "memory"},
		Session:  SessionConfig{Debounce: 500 * time.Millisecond, StageTimeout: 3 * time.Minute},
	}
}

// Load reads .env (if present), then the YAML file at path or NEXUS_CONFIG,
// then environment overrides.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	path = firstNonEmpty(strings.TrimSpace(path), strings.TrimSpace(os.Getenv("NEXUS_CONFIG")))
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("unmarshal %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if envPort := strings.TrimSpace(os.Getenv("PORT")); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			cfg.Port = envPort
		} else {
			cfg.Port = ":" + envPort
		}
	}
	cfg.Env = firstNonEmpty(strings.TrimSpace(os.Getenv("APP_ENV")), cfg.Env)
	if raw := strings.TrimSpace(os.Getenv("NEXUS_ALLOWED_ORIGINS")); raw != "" {
		cfg.AllowedOrigins = nil
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	cfg.LLM.Provider = firstNonEmpty(strings.TrimSpace(os.Getenv("NEXUS_LLM_PROVIDER")), cfg.LLM.Provider)
	cfg.LLM.Model = firstNonEmpty(strings.TrimSpace(os.Getenv("GEMINI_MODEL")), cfg.LLM.Model)
	cfg.LLM.APIKey = firstNonEmpty(strings.TrimSpace(os.Getenv("GEMINI_API_KEY")), strings.TrimSpace(os.Getenv("API_KEY")), cfg.LLM.APIKey)
	cfg.LLM.RemoteURL = firstNonEmpty(strings.TrimSpace(os.Getenv("NEXUS_REMOTE_URL")), cfg.LLM.RemoteURL)
	cfg.LLM.Timeout = envDuration("NEXUS_LLM_TIMEOUT", cfg.LLM.Timeout)
	if v, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv("NEXUS_LLM_RPS")), 64); err == nil {
		cfg.LLM.RPS = v
	}

	cfg.Grounding.ComtradeKey = firstNonEmpty(strings.TrimSpace(os.Getenv("COMTRADE_API_KEY")), cfg.Grounding.ComtradeKey)
	if v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv("NEXUS_GROUNDING_DISABLED"))); err == nil {
		cfg.Grounding.Disabled = v
	}

	cfg.Store.Backend = firstNonEmpty(strings.TrimSpace(os.Getenv("NEXUS_STORE")), cfg.Store.Backend)
	cfg.Store.Path = firstNonEmpty(strings.TrimSpace(os.Getenv("NEXUS_STORE_PATH")), cfg.Store.Path)
	cfg.Store.DSN = firstNonEmpty(strings.TrimSpace(os.Getenv("DATABASE_URL")), cfg.Store.DSN)

	cfg.Artifact.Backend = firstNonEmpty(strings.TrimSpace(os.Getenv("NEXUS_ARTIFACT_BACKEND")), cfg.Artifact.Backend)
	s3 := &cfg.Artifact.S3
	s3.Endpoint = firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_ENDPOINT")), s3.Endpoint)
	s3.Region = firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_REGION")), s3.Region, "us-east-1")
	s3.AccessKey = firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER")), s3.AccessKey)
	s3.SecretKey = firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD")), s3.SecretKey)
	s3.Bucket = firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_BUCKET")), s3.Bucket, "nexus-documents")
	if v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv("ARTIFACT_S3_USE_SSL"))); err == nil {
		s3.UseSSL = v
	}

	cfg.Session.StageTimeout = envDuration("NEXUS_STAGE_TIMEOUT", cfg.Session.StageTimeout)
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

// Validate rejects settings the app cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.LLM.Provider {
	case "fake":
	case "gemini":
		if c.LLM.APIKey == "" && c.LLM.RemoteURL == "" {
			errs = append(errs, errors.New("config: GEMINI_API_KEY is required for the gemini provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown llm provider %q", c.LLM.Provider))
	}
	switch c.Store.Backend {
	case "memory":
	case "file":
		if strings.TrimSpace(c.Store.Path) == "" {
			errs = append(errs, errors.New("config: store path is required for the file backend"))
		}
	case "postgres":
		if strings.TrimSpace(c.Store.DSN) == "" {
			errs = append(errs, errors.New("config: DATABASE_URL is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown store backend %q", c.Store.Backend))
	}
	switch c.Artifact.Backend {
	case "none", "memory", "s3":
	case "postgres":
		if strings.TrimSpace(c.Store.DSN) == "" {
			errs = append(errs, errors.New("config: DATABASE_URL is required for the postgres archive"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown artifact backend %q", c.Artifact.Backend))
	}
	return errors.Join(errs...)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
