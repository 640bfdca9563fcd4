package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Viewport is a named browser window size used when rendering a page.
type Viewport struct {
	Name   string `json:"name" yaml:"name"`
	Width  int    `json:"width" yaml:"width"`
	Height int    `json:"height" yaml:"height"`
}

// PageSpec is one page to capture. Name is used in output filenames.
type PageSpec struct {
	Path string `json:"path" yaml:"path"`
	Name string `json:"name" yaml:"name"`
	// WaitFor is an optional CSS selector awaited after the settle pause.
	WaitFor string `json:"wait_for,omitempty" yaml:"wait_for,omitempty"`
}

// Config holds everything a capture run needs.
type Config struct {
	BaseURL   string
	OutputDir string

	Viewports    map[string]Viewport
	RunViewports []string
	Pages        []PageSpec

	NavTimeout    time.Duration
	SettleDelay   time.Duration
	FormSettle    time.Duration
	ErrorSettle   time.Duration
	ErrorSelector string

	// Browser settings
	Headless   bool
	ChromePath string
	CDPURL     string

	LogLevel string
	LogFile  string
	NTFYURL  string

	// Run history (JSONL, one record per run)
	HistoryEnabled bool
	HistoryDir     string

	// Controller settings
	BindAddr         string
	PortCandidates   []string
	PortAutoFallback bool
}

// DefaultViewports returns the fixed viewport table.
func DefaultViewports() map[string]Viewport {
	return map[string]Viewport{
		"desktop": {Name: "desktop", Width: 1440, Height: 900},
		"mobile":  {Name: "mobile", Width: 375, Height: 812},
		"tablet":  {Name: "tablet", Width: 768, Height: 1024},
	}
}

// DefaultPages returns the public pages captured on every run.
func DefaultPages() []PageSpec {
	return []PageSpec{
		{Path: "/login", Name: "login"},
		{Path: "/register", Name: "register"},
	}
}

// Default returns a Config with the built-in tables and no environment applied.
func Default() *Config {
	return &Config{
		BaseURL:          "http://localhost:5173",
		OutputDir:        "screenshots",
		Viewports:        DefaultViewports(),
		RunViewports:     []string{"desktop", "mobile"},
		Pages:            DefaultPages(),
		NavTimeout:       10 * time.Second,
		SettleDelay:      500 * time.Millisecond,
		FormSettle:       300 * time.Millisecond,
		ErrorSettle:      time.Second,
		Headless:         true,
		LogLevel:         "info",
		LogFile:          "logs/ui_capture.log",
		HistoryEnabled:   true,
		HistoryDir:       "logs/history",
		BindAddr:         "127.0.0.1:8189",
		PortCandidates:   []string{"127.0.0.1:8190", "127.0.0.1:8191"},
		PortAutoFallback: true,
	}
}

// Load reads configuration from environment variables and optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	def := Default()
	if path := os.Getenv("CAPTURE_PAGES_FILE"); path != "" {
		pf, err := LoadPagesFile(path)
		if err != nil {
			return nil, err
		}
		pf.Apply(def)
	}

	cfg := &Config{
		BaseURL:          strings.TrimRight(getEnvOrDefault("CAPTURE_BASE_URL", def.BaseURL), "/"),
		OutputDir:        getEnvOrDefault("CAPTURE_OUTPUT_DIR", def.OutputDir),
		Viewports:        def.Viewports,
		RunViewports:     getEnvListOrDefault("CAPTURE_VIEWPORTS", def.RunViewports),
		Pages:            def.Pages,
		NavTimeout:       getEnvMillisOrDefault("CAPTURE_NAV_TIMEOUT_MS", def.NavTimeout),
		SettleDelay:      getEnvMillisOrDefault("CAPTURE_SETTLE_MS", def.SettleDelay),
		FormSettle:       getEnvMillisOrDefault("CAPTURE_FORM_SETTLE_MS", def.FormSettle),
		ErrorSettle:      getEnvMillisOrDefault("CAPTURE_ERROR_SETTLE_MS", def.ErrorSettle),
		ErrorSelector:    getEnvOrDefault("CAPTURE_ERROR_SELECTOR", ""),
		Headless:         getEnvBoolOrDefault("CAPTURE_HEADLESS", def.Headless),
		ChromePath:       getEnvOrDefault("CAPTURE_CHROME_PATH", ""),
		CDPURL:           strings.TrimRight(getEnvOrDefault("CAPTURE_CDP_URL", ""), "/"),
		LogLevel:         strings.ToLower(getEnvOrDefault("CAPTURE_LOG_LEVEL", def.LogLevel)),
		LogFile:          getEnvOrDefault("CAPTURE_LOG_FILE", def.LogFile),
		NTFYURL:          getEnvOrDefault("CAPTURE_NTFY_URL", ""),
		HistoryEnabled:   getEnvBoolOrDefault("CAPTURE_HISTORY_ENABLED", def.HistoryEnabled),
		HistoryDir:       getEnvOrDefault("CAPTURE_HISTORY_DIR", def.HistoryDir),
		BindAddr:         getEnvOrDefault("CAPTURE_CONTROLLER_BIND_ADDR", def.BindAddr),
		PortCandidates:   getEnvListOrDefault("CAPTURE_CONTROLLER_PORT_CANDIDATES", def.PortCandidates),
		PortAutoFallback: getEnvBoolOrDefault("CAPTURE_CONTROLLER_PORT_AUTO_FALLBACK", def.PortAutoFallback),
	}
	if cfg.NavTimeout < time.Second {
		cfg.NavTimeout = time.Second
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// nameRe matches page and viewport names. Both end up in screenshot filenames,
// which must stay inside the output directory and be servable by the controller.
var nameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_]*$`)

func checkName(kind, name string) error {
	if !nameRe.MatchString(name) {
		return fmt.Errorf("invalid %s name %q: use lowercase letters, digits and underscores", kind, name)
	}
	return nil
}

// Validate checks that the run order only names known viewports and page names are
// unique and usable in filenames.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("base url is required")
	}
	if c.CDPURL != "" {
		u, err := url.Parse(c.CDPURL)
		if err != nil || u.Host == "" {
			return fmt.Errorf("invalid CDP url %q", c.CDPURL)
		}
		switch u.Scheme {
		case "http", "https", "ws", "wss":
		default:
			return fmt.Errorf("CDP url %q must use http, https, ws or wss", c.CDPURL)
		}
	}
	if len(c.RunViewports) == 0 {
		return fmt.Errorf("at least one run viewport is required")
	}
	for _, name := range c.RunViewports {
		if _, ok := c.Viewports[name]; !ok {
			return fmt.Errorf("unknown viewport %q in run order", name)
		}
		if err := checkName("viewport", name); err != nil {
			return err
		}
	}
	seen := make(map[string]bool, len(c.Pages))
	for _, p := range c.Pages {
		if p.Name == "" {
			return fmt.Errorf("page %q has no name", p.Path)
		}
		if err := checkName("page", p.Name); err != nil {
			return err
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate page name %q", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// PageURL joins the base URL and a page path.
func (c *Config) PageURL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.BaseURL + path
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvMillisOrDefault(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil && i >= 0 {
			return time.Duration(i) * time.Millisecond
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return append([]string(nil), defaultVal...)
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
