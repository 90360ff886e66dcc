// Package config loads linkmap configuration from defaults, user and project
// YAML files, and LINKMAP_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/linkmap/internal/cluster"
	"github.com/Aman-CERP/linkmap/internal/embed"
	lmerrors "github.com/Aman-CERP/linkmap/internal/errors"
	"github.com/Aman-CERP/linkmap/internal/graph"
	"github.com/Aman-CERP/linkmap/internal/links"
	"github.com/Aman-CERP/linkmap/internal/topics"
)

// Project config file names, in lookup order.
var projectConfigNames = []string{".linkmap.yaml", ".linkmap.yml"}

// Config is the full linkmap configuration.
type Config struct {
	Version    int              `yaml:"version"`
	Store      StoreConfig      `yaml:"store"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Clustering ClusteringConfig `yaml:"clustering"`
	Topics     TopicsConfig     `yaml:"topics"`
	Links      LinksConfig      `yaml:"links"`
	Graph      graph.Config     `yaml:"graph"`
	Server     ServerConfig     `yaml:"server"`
}

// StoreConfig locates the SQLite database and the lock directory.
type StoreConfig struct {
	DBPath  string `yaml:"db_path"`
	LockDir string `yaml:"lock_dir"`
}

// EmbeddingsConfig selects the embedding provider used at ingest.
type EmbeddingsConfig struct {
	// Provider is "static", "hash", "hashN" or "ollama".
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	OllamaHost string `yaml:"ollama_host"`
	// CacheSize is the number of cached embeddings; 0 disables the cache.
	CacheSize int `yaml:"cache_size"`
	// Timeout is a Go duration string, e.g. "2m".
	Timeout string `yaml:"timeout"`
}

// ClusteringConfig holds the k-means defaults.
type ClusteringConfig struct {
	K               int    `yaml:"k"`
	Seed            int64  `yaml:"seed"`
	MaxItems        int    `yaml:"max_items"`
	PreviewMaxItems int    `yaml:"preview_max_items"`
	MaxIter         int    `yaml:"max_iter"`
	Metric          string `yaml:"metric"`
}

// TopicsConfig holds the labeler defaults.
type TopicsConfig struct {
	TopN              int      `yaml:"top_n"`
	SamplesPerCluster int      `yaml:"samples_per_cluster"`
	StopwordsExtra    []string `yaml:"stopwords_extra"`
	DedupeSubstrings  bool     `yaml:"dedupe_substrings"`
	MinTermLength     int      `yaml:"min_term_length"`
}

// LinksConfig holds the suggester defaults.
type LinksConfig struct {
	PerItem           int     `yaml:"per_item"`
	MinSim            float64 `yaml:"min_sim"`
	MaxItems          int     `yaml:"max_items"`
	FallbackWhenEmpty bool    `yaml:"fallback_when_empty"`
	ExcludeRegex      string  `yaml:"exclude_regex"`
	SkipHomepage      bool    `yaml:"skip_homepage"`
	SkipSamePath      bool    `yaml:"skip_same_path"`
	Candidates        string  `yaml:"candidates"`
}

// ServerConfig configures logging and the metrics endpoint.
type ServerConfig struct {
	LogLevel string `yaml:"log_level"`
	// MetricsAddr enables the Prometheus endpoint when non-empty.
	MetricsAddr string `yaml:"metrics_addr"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Store: StoreConfig{
			DBPath:  filepath.Join(defaultDataDir(), "linkmap.db"),
			LockDir: filepath.Join(defaultDataDir(), "locks"),
		},
		Embeddings: EmbeddingsConfig{
			Provider:   embed.ProviderStatic,
			Model:      embed.DefaultOllamaModel,
			OllamaHost: embed.DefaultOllamaHost,
			CacheSize:  1000,
			Timeout:    "2m",
		},
		Clustering: ClusteringConfig{
			K:               cluster.DefaultK,
			Seed:            cluster.DefaultSeed,
			MaxItems:        cluster.DefaultMaxItems,
			PreviewMaxItems: cluster.DefaultPreviewMaxItems,
			MaxIter:         cluster.DefaultMaxIter,
			Metric:          cluster.MetricCosine,
		},
		Topics: TopicsConfig{
			TopN:              topics.DefaultTopN,
			SamplesPerCluster: topics.DefaultSamplesPerCluster,
			DedupeSubstrings:  true,
			MinTermLength:     topics.DefaultMinTermLength,
		},
		Links: LinksConfig{
			PerItem:      links.DefaultPerItem,
			MinSim:       links.DefaultMinSim,
			MaxItems:     links.DefaultMaxItems,
			SkipHomepage: true,
			SkipSamePath: true,
			Candidates:   links.CandidatesExact,
		},
		Graph: graph.DefaultConfig(),
		Server: ServerConfig{
			LogLevel: "info",
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".linkmap")
	}
	return filepath.Join(home, ".linkmap")
}

// GetUserConfigPath returns the path to the user configuration file:
//   - $XDG_CONFIG_HOME/linkmap/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/linkmap/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "linkmap", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "linkmap", "config.yaml")
	}
	return filepath.Join(home, ".config", "linkmap", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists reports whether the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// Load builds the configuration for dir. Sources are applied in order of
// increasing precedence:
//  1. Hardcoded defaults
//  2. User config (~/.config/linkmap/config.yaml)
//  3. Project config (.linkmap.yaml in dir)
//  4. Environment variables (LINKMAP_*)
//
// The result is validated before it is returned.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	if dir != "" {
		for _, name := range projectConfigNames {
			path := filepath.Join(dir, name)
			if !fileExists(path) {
				continue
			}
			if err := cfg.loadYAML(path); err != nil {
				return nil, err
			}
			break
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a single YAML file over the defaults and validates it.
func LoadFile(path string) (*Config, error) {
	cfg := NewConfig()
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadYAML decodes path over the current values, so keys missing from the
// file keep whatever an earlier layer set.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return lmerrors.ConfigError(fmt.Sprintf("failed to read config file %s", path), err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return lmerrors.New(lmerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("failed to parse config file %s", path), err).
			WithDetail("path", path)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("LINKMAP_DB_PATH"); v != "" {
		c.Store.DBPath = v
	}
	if v := os.Getenv("LINKMAP_LOCK_DIR"); v != "" {
		c.Store.LockDir = v
	}
	if v := os.Getenv("LINKMAP_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("LINKMAP_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("LINKMAP_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("LINKMAP_LINK_CANDIDATES"); v != "" {
		c.Links.Candidates = strings.ToLower(v)
	}
	if v := os.Getenv("LINKMAP_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("LINKMAP_METRICS_ADDR"); v != "" {
		c.Server.MetricsAddr = v
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"LINKMAP_EMBEDDING_DIM", &c.Embeddings.Dimensions},
		{"LINKMAP_CLUSTER_K", &c.Clustering.K},
		{"LINKMAP_PER_ITEM", &c.Links.PerItem},
	}
	for _, e := range ints {
		v := os.Getenv(e.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return envError(e.name, v, err)
		}
		*e.dst = n
	}

	if v := os.Getenv("LINKMAP_SEED"); v != "" {
		seed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return envError("LINKMAP_SEED", v, err)
		}
		c.Clustering.Seed = seed
	}
	if v := os.Getenv("LINKMAP_MIN_SIM"); v != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return envError("LINKMAP_MIN_SIM", v, err)
		}
		c.Links.MinSim = f
	}
	return nil
}

func envError(name, value string, err error) error {
	return lmerrors.New(lmerrors.ErrCodeConfigInvalid,
		fmt.Sprintf("invalid value %q for %s", value, name), err).
		WithDetail("env", name)
}

// Validate checks the configuration. Each component's options are
// validated by the component itself.
func (c *Config) Validate() error {
	if _, err := c.EmbedConfig(); err != nil {
		return err
	}
	switch strings.ToLower(c.Embeddings.Provider) {
	case embed.ProviderStatic, embed.ProviderOllama, embed.ProviderHash:
	default:
		if _, ok, _ := embed.ParseHashModel(c.Embeddings.Provider); !ok {
			return invalid("embeddings.provider",
				fmt.Sprintf("must be 'static', 'hash', 'hashN' or 'ollama', got %q", c.Embeddings.Provider))
		}
	}
	if c.Embeddings.Dimensions < 0 {
		return invalid("embeddings.dimensions", "must be non-negative")
	}
	if c.Embeddings.CacheSize < 0 {
		return invalid("embeddings.cache_size", "must be non-negative")
	}

	if c.Clustering.PreviewMaxItems < 0 {
		return invalid("clustering.preview_max_items", "must be non-negative")
	}
	if err := c.ClusterOptions(false).Validate(); err != nil {
		return err
	}
	if err := c.TopicOptions().Validate(); err != nil {
		return err
	}
	if err := c.LinkOptions().Validate(); err != nil {
		return err
	}
	if err := c.Graph.Validate(); err != nil {
		return err
	}

	switch strings.ToLower(c.Server.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return invalid("server.log_level",
			fmt.Sprintf("must be 'debug', 'info', 'warn', or 'error', got %q", c.Server.LogLevel))
	}
	return nil
}

func invalid(field, msg string) error {
	return lmerrors.New(lmerrors.ErrCodeConfigInvalid, field+" "+msg, nil).WithDetail("field", field)
}

// ClusterOptions returns the k-means options. Preview runs use the smaller
// preview item cap.
func (c *Config) ClusterOptions(preview bool) cluster.Options {
	opts := cluster.Options{
		K:        c.Clustering.K,
		Seed:     c.Clustering.Seed,
		MaxItems: c.Clustering.MaxItems,
		MaxIter:  c.Clustering.MaxIter,
		Metric:   c.Clustering.Metric,
	}
	if preview {
		opts.MaxItems = c.Clustering.PreviewMaxItems
	}
	return opts
}

// TopicOptions returns the labeler options.
func (c *Config) TopicOptions() topics.Options {
	return topics.Options{
		TopN:              c.Topics.TopN,
		SamplesPerCluster: c.Topics.SamplesPerCluster,
		Seed:              c.Clustering.Seed,
		StopwordsExtra:    append([]string(nil), c.Topics.StopwordsExtra...),
		DedupeSubstrings:  c.Topics.DedupeSubstrings,
		MinTermLength:     c.Topics.MinTermLength,
	}
}

// LinkOptions returns the suggester options.
func (c *Config) LinkOptions() links.Options {
	return links.Options{
		PerItem:           c.Links.PerItem,
		MinSim:            c.Links.MinSim,
		MaxItems:          c.Links.MaxItems,
		FallbackWhenEmpty: c.Links.FallbackWhenEmpty,
		ExcludeRegex:      c.Links.ExcludeRegex,
		SkipHomepage:      c.Links.SkipHomepage,
		SkipSamePath:      c.Links.SkipSamePath,
		Candidates:        c.Links.Candidates,
		Seed:              c.Clustering.Seed,
	}
}

// EmbedConfig returns the embedder configuration.
func (c *Config) EmbedConfig() (embed.Config, error) {
	var timeout time.Duration
	if c.Embeddings.Timeout != "" {
		d, err := time.ParseDuration(c.Embeddings.Timeout)
		if err != nil {
			return embed.Config{}, lmerrors.New(lmerrors.ErrCodeConfigInvalid,
				fmt.Sprintf("embeddings.timeout: invalid duration %q", c.Embeddings.Timeout), err)
		}
		timeout = d
	}
	return embed.Config{
		Provider:   c.Embeddings.Provider,
		Model:      c.Embeddings.Model,
		Dimensions: c.Embeddings.Dimensions,
		OllamaHost: c.Embeddings.OllamaHost,
		Timeout:    timeout,
		CacheSize:  c.Embeddings.CacheSize,
	}, nil
}

// WriteYAML writes the configuration to path, creating parent directories.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// WriteTemplate writes a configuration template to path after checking that
// it parses, creating parent directories.
func WriteTemplate(path, template string) error {
	var parsed Config
	if err := yaml.Unmarshal([]byte(template), &parsed); err != nil {
		return fmt.Errorf("invalid config template: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(template), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
