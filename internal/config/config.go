package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/TobiSchelling/repwatch/internal/encyclopedia"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Profile       Profile       `yaml:"profile"`
	Categories    Categories    `yaml:"categories"`
	Sources       Sources       `yaml:"sources"`
	Summarization Summarization `yaml:"summarization"`
	Scraping      Scraping      `yaml:"scraping"`
	Pipeline      Pipeline      `yaml:"pipeline"`
	Output        Output        `yaml:"output"`
	Server        Server        `yaml:"server"`
	Logging       Logging       `yaml:"logging"`
}

// Profile describes the person or organization being monitored. The values
// seed the settings on first run.
type Profile struct {
	FullName    string `yaml:"full_name"`
	Email       string `yaml:"email"`
	Address     string `yaml:"address"`
	PhoneNumber string `yaml:"phone_number"`
}

// Categories names the category ids each view reads from.
type Categories struct {
	Mentions  []string `yaml:"mentions"`
	Analytics []string `yaml:"analytics"`
	Legal     string   `yaml:"legal"`
	News      string   `yaml:"news"`
}

type Sources struct {
	DaysBack int     `yaml:"days_back"`
	Feeds    []Feed  `yaml:"feeds"`
	NewsAPI  NewsAPI `yaml:"newsapi"`
}

// NewsAPI searches newsapi.org for the profile name. Query defaults to the
// quoted profile full name; results go to Category (the news category by
// default).
type NewsAPI struct {
	Enabled   bool     `yaml:"enabled"`
	APIKeyEnv string   `yaml:"api_key_env"`
	Query     string   `yaml:"query"`
	Keywords  []string `yaml:"keywords"`
	Category  string   `yaml:"category"`
}

// APIKey reads the NewsAPI key from the configured environment variable.
func (n NewsAPI) APIKey() string {
	if n.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(n.APIKeyEnv)
}

// Feed is an RSS/Atom feed whose items are filed into Category.
type Feed struct {
	URL      string `yaml:"url"`
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
}

type Summarization struct {
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	OllamaURL   string `yaml:"ollama_url"`
	OpenAIModel string `yaml:"openai_model"`
	OpenAIURL   string `yaml:"openai_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	MaxTokens   int    `yaml:"max_tokens"`
}

// Scraping configures page fetches. The proxy is used only when both the
// key and the template are set.
type Scraping struct {
	ProxyAPIKeyEnv   string `yaml:"proxy_api_key_env"`
	ProxyURLTemplate string `yaml:"proxy_url_template"`
	UserAgent        string `yaml:"user_agent"`
	TimeoutSeconds   int    `yaml:"timeout_seconds"`
}

// ProxyAPIKey reads the proxy key from the configured environment variable.
func (s Scraping) ProxyAPIKey() string {
	if s.ProxyAPIKeyEnv == "" {
		return ""
	}
	return os.Getenv(s.ProxyAPIKeyEnv)
}

type Pipeline struct {
	Schedule   string `yaml:"schedule"`
	MaxAnalyze int    `yaml:"max_analyze"`
	MaxEnrich  int    `yaml:"max_enrich"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for repwatch.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "repwatch")
}

// DataDir returns the XDG data directory for repwatch.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "repwatch")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/repwatch/config.yaml > ./config.yaml
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
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'repwatch init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded default config is invalid: %v", err))
	}
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Categories: Categories{
			Mentions:  encyclopedia.DefaultMentionCategories(),
			Analytics: encyclopedia.DefaultAnalyticsCategories(),
			Legal:     encyclopedia.CategoryLegal,
			News:      encyclopedia.CategoryNews,
		},
		Sources: Sources{
			DaysBack: 7,
			NewsAPI:  NewsAPI{APIKeyEnv: "NEWSAPI_KEY"},
		},
		Summarization: Summarization{
			Provider:    "ollama",
			Model:       "qwen2.5:7b",
			OllamaURL:   "http://localhost:11434",
			OpenAIModel: "gpt-4o-mini",
			OpenAIURL:   "https://api.openai.com/v1",
			APIKeyEnv:   "OPENAI_API_KEY",
			MaxTokens:   1024,
		},
		Scraping: Scraping{
			ProxyAPIKeyEnv: "SCRAPER_API_KEY",
			TimeoutSeconds: 20,
		},
		Pipeline: Pipeline{
			Schedule:   "0 */6 * * *",
			MaxAnalyze: 10,
			MaxEnrich:  20,
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	for i, f := range cfg.Sources.Feeds {
		if f.URL == "" {
			return nil, fmt.Errorf("feed %d: url is required", i)
		}
		if f.Category == "" {
			cfg.Sources.Feeds[i].Category = cfg.Categories.News
		}
	}

	if cfg.Sources.NewsAPI.Category == "" {
		cfg.Sources.NewsAPI.Category = cfg.Categories.News
	}
	if cfg.Sources.NewsAPI.Query == "" && cfg.Profile.FullName != "" {
		cfg.Sources.NewsAPI.Query = `"` + cfg.Profile.FullName + `"`
	}
	if cfg.Sources.DaysBack <= 0 {
		cfg.Sources.DaysBack = 7
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// DatabasePath returns the SQLite file inside the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.GetDataDir(), "repwatch.db")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
