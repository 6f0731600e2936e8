package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for the competition scraper.
type Config struct {
	Scrape  ScrapeConfig  `mapstructure:"scrape"  yaml:"scrape"`
	Fetcher FetcherConfig `mapstructure:"fetcher" yaml:"fetcher"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	API     APIConfig     `mapstructure:"api"     yaml:"api"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// ScrapeConfig controls the orchestrated scrape itself.
type ScrapeConfig struct {
	BaseURL      string        `mapstructure:"base_url"       yaml:"base_url"`
	MaxThreads   int           `mapstructure:"max_threads"    yaml:"max_threads"`
	MaxNotebooks int           `mapstructure:"max_notebooks"  yaml:"max_notebooks"`
	MaxPosts     int           `mapstructure:"max_posts"      yaml:"max_posts"`
	ItemDelay    time.Duration `mapstructure:"item_delay"     yaml:"item_delay"`
	UseRender    bool          `mapstructure:"use_render"     yaml:"use_render"`
}

// FetcherConfig controls the plain HTTP fetcher.
type FetcherConfig struct {
	RequestTimeout  time.Duration `mapstructure:"request_timeout"   yaml:"request_timeout"`
	FollowRedirects bool          `mapstructure:"follow_redirects"  yaml:"follow_redirects"`
	MaxRedirects    int           `mapstructure:"max_redirects"     yaml:"max_redirects"`
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
	TLSInsecure     bool          `mapstructure:"tls_insecure"      yaml:"tls_insecure"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
	UserAgents      []string      `mapstructure:"user_agents"       yaml:"user_agents"`
}

// BrowserConfig controls the render-mode browser session.
type BrowserConfig struct {
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	SettleDelay       time.Duration `mapstructure:"settle_delay"       yaml:"settle_delay"`
	Stealth           bool          `mapstructure:"stealth"            yaml:"stealth"`
	WindowSize        string        `mapstructure:"window_size"        yaml:"window_size"`
}

// APIConfig controls the programmatic provider API adapter.
type APIConfig struct {
	Enabled         bool   `mapstructure:"enabled"          yaml:"enabled"`
	BaseURL         string `mapstructure:"base_url"         yaml:"base_url"`
	Username        string `mapstructure:"username"         yaml:"username"`
	Key             string `mapstructure:"key"              yaml:"key"`
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file"`
	PageSize        int    `mapstructure:"page_size"        yaml:"page_size"`
}

// StorageConfig controls output/persistence.
type StorageConfig struct {
	OutputDir string      `mapstructure:"output_dir" yaml:"output_dir"`
	Formats   []string    `mapstructure:"formats"    yaml:"formats"`
	Mongo     MongoConfig `mapstructure:"mongo"      yaml:"mongo"`
}

// MongoConfig controls the optional MongoDB result archive.
type MongoConfig struct {
	Enabled    bool   `mapstructure:"enabled"    yaml:"enabled"`
	URI        string `mapstructure:"uri"        yaml:"uri"`
	Database   string `mapstructure:"database"   yaml:"database"`
	Collection string `mapstructure:"collection" yaml:"collection"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls the metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Scrape: ScrapeConfig{
			BaseURL:      "https://www.kaggle.com",
			MaxThreads:   20,
			MaxNotebooks: 20,
			MaxPosts:     3,
			ItemDelay:    500 * time.Millisecond,
			UseRender:    true,
		},
		Fetcher: FetcherConfig{
			RequestTimeout:  30 * time.Second,
			FollowRedirects: true,
			MaxRedirects:    10,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			IdleConnTimeout: 90 * time.Second,
			MaxIdleConns:    100,
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			},
		},
		Browser: BrowserConfig{
			NavigationTimeout: 45 * time.Second,
			SettleDelay:       2 * time.Second,
			Stealth:           false,
			WindowSize:        "1366,900",
		},
		API: APIConfig{
			Enabled:  true,
			BaseURL:  "https://www.kaggle.com/api/v1",
			PageSize: 50,
		},
		Storage: StorageConfig{
			OutputDir: "./output",
			Formats:   []string{"json", "markdown"},
			Mongo: MongoConfig{
				Enabled:    false,
				URI:        "mongodb://localhost:27017",
				Database:   "kagglescrape",
				Collection: "scrapes",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
