package okusno

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EntityConfig describes one editable content type served under /api/{name}.
type EntityConfig struct {
	Name        string   `yaml:"name"`        // URL segment and storage namespace
	Gallery     bool     `yaml:"gallery"`     // whether the type carries an ordered image gallery
	ExtraFields []string `yaml:"extraFields"` // type-specific scalar form fields
	SeedPath    string   `yaml:"seedPath"`    // optional legacy seed JSON
}

// SiteConfig holds all configuration for a site.
type SiteConfig struct {
	Name string `yaml:"name"` // Site name (default "Site")
	URL  string `yaml:"url"`  // Canonical URL (default "http://localhost:3000")

	Addr      string `yaml:"addr"`      // Listen address (default ":3000")
	DataDir   string `yaml:"dataDir"`   // Root of per-type data dirs (default "data")
	StaticDir string `yaml:"staticDir"` // User static assets and uploads (default "public")

	AnalyticsEnabled      bool   `yaml:"analyticsEnabled"`
	AnalyticsDatabasePath string `yaml:"analyticsDatabasePath"` // default "data/analytics.db"

	AdminPassword string `yaml:"-"` // Required: from env, never from the file
	SessionSecret string `yaml:"-"` // Required: from env, never from the file
	CookieSecure  bool   `yaml:"cookieSecure"`

	ListCacheTTL time.Duration `yaml:"listCacheTTL"` // entity list cache TTL (default 5min)

	Entities []EntityConfig `yaml:"entities"`
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Site"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.StaticDir == "" {
		c.StaticDir = "public"
	}
	if c.AnalyticsDatabasePath == "" {
		c.AnalyticsDatabasePath = "data/analytics.db"
	}
	if c.ListCacheTTL == 0 {
		c.ListCacheTTL = 5 * time.Minute
	}
	if len(c.Entities) == 0 {
		c.Entities = []EntityConfig{
			{Name: "posts", Gallery: true},
			{Name: "recipes", ExtraFields: []string{"prepTime", "servings"}},
		}
	}
}

// LoadConfig reads a SiteConfig from a YAML file. A missing file yields the
// defaults; secrets still have to come from the environment.
func LoadConfig(path string) (SiteConfig, error) {
	var cfg SiteConfig
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.setDefaults()
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.setDefaults()
	return cfg, nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}
