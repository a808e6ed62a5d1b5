package main

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultConfigDir = ".blog-writer"

// Embedded configuration files, written out on first run so deployments
// can customize them.
//
//go:embed config/settings.yaml
var defaultSettings string

//go:embed config/writer-system-prompt.md
var writerSystemPrompt string

//go:embed config/article-schema.json
var articleSchema string

//go:embed config/post-template.html
var defaultPostTemplate string

// Settings are the non-secret tunables from settings.yaml.
type Settings struct {
	RegistryPath     string `yaml:"registry_path"`
	PagesDirectory   string `yaml:"pages_directory"`
	FeedMaxResults   int    `yaml:"feed_max_results"`
	WordsPerMinute   int    `yaml:"words_per_minute"`
	DefaultCategory  string `yaml:"default_category"`
	TranscriptAPIURL string `yaml:"transcript_api_url"`
	Writer           struct {
		Model            string  `yaml:"model"`
		MaxTokens        int     `yaml:"max_tokens"`
		Temperature      float64 `yaml:"temperature"`
		ContentMaxTokens int     `yaml:"content_max_tokens"`
	} `yaml:"writer"`
}

// Env holds secrets and deployment-specific values from the environment.
// Optional credentials stay empty and select fallback behavior.
type Env struct {
	ChannelID        string
	AnthropicAPIKey  string
	TranscriptAPIKey string
	SlackWebhookURL  string
	SiteBaseURL      string
	MinWords         int
	PublishThreshold int
}

// Config bundles file settings and environment for the pipeline.
type Config struct {
	Settings *Settings
	Env      *Env
}

// LoadConfig loads .env (best effort), settings.yaml, and the environment.
func LoadConfig() (*Config, error) {
	// .env is optional; os.Environ wins over file values.
	_ = godotenv.Load()

	if err := ensureConfigExists(); err != nil {
		return nil, fmt.Errorf("ensuring config files exist: %w", err)
	}

	settings, err := loadSettings(filepath.Join(defaultConfigDir, "settings.yaml"))
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	env, err := loadEnv()
	if err != nil {
		return nil, err
	}

	return &Config{Settings: settings, Env: env}, nil
}

// GetWriterSystemPrompt returns the writer system prompt, preferring a
// customized copy in the config directory over the embedded default.
func (c *Config) GetWriterSystemPrompt() string {
	if content, err := os.ReadFile(filepath.Join(defaultConfigDir, "writer-system-prompt.md")); err == nil {
		return string(content)
	}
	return writerSystemPrompt
}

// GetArticleSchema returns the JSON schema the writer agent must satisfy.
func (c *Config) GetArticleSchema() string {
	if content, err := os.ReadFile(filepath.Join(defaultConfigDir, "article-schema.json")); err == nil {
		return string(content)
	}
	return articleSchema
}

// GetPostTemplate returns the page template for published posts.
func (c *Config) GetPostTemplate() string {
	if content, err := os.ReadFile(filepath.Join(defaultConfigDir, "post-template.html")); err == nil {
		return string(content)
	}
	return defaultPostTemplate
}

// loadSettings loads settings from YAML with fallback to defaults when the
// file is missing.
func loadSettings(settingsPath string) (*Settings, error) {
	data, err := os.ReadFile(settingsPath)
	if err != nil {
		data = []byte(defaultSettings)
	}

	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parsing settings YAML: %w", err)
	}

	if settings.FeedMaxResults < 1 {
		settings.FeedMaxResults = 5
	}
	if settings.WordsPerMinute < 1 {
		settings.WordsPerMinute = 200
	}
	if settings.DefaultCategory == "" {
		settings.DefaultCategory = "CRO"
	}

	return &settings, nil
}

func loadEnv() (*Env, error) {
	env := &Env{
		ChannelID:        os.Getenv("YOUTUBE_CHANNEL_ID"),
		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		TranscriptAPIKey: os.Getenv("SUPADATA_KEY"),
		SlackWebhookURL:  os.Getenv("SLACK_WEBHOOK_URL"),
		SiteBaseURL:      getEnv("SITE_BASE_URL", "https://sparksmetrics.com"),
	}

	var err error
	if env.MinWords, err = getEnvInt("BLOG_MIN_WORDS", 1000); err != nil {
		return nil, fmt.Errorf("invalid BLOG_MIN_WORDS: %w", err)
	}
	if env.PublishThreshold, err = getEnvInt("BLOG_PUBLISH_THRESHOLD", 70); err != nil {
		return nil, fmt.Errorf("invalid BLOG_PUBLISH_THRESHOLD: %w", err)
	}

	return env, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

// ensureConfigExists creates the config directory and writes settings.yaml
// on first run.
func ensureConfigExists() error {
	if err := os.MkdirAll(defaultConfigDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	settingsFile := filepath.Join(defaultConfigDir, "settings.yaml")
	if _, err := os.Stat(settingsFile); os.IsNotExist(err) {
		if err := os.WriteFile(settingsFile, []byte(defaultSettings), 0644); err != nil {
			return fmt.Errorf("writing settings.yaml: %w", err)
		}
	}

	return nil
}
