package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BaseURL != "http://localhost:5173" {
		t.Fatalf("BaseURL = %q; want %q", cfg.BaseURL, "http://localhost:5173")
	}
	if cfg.OutputDir != "screenshots" {
		t.Fatalf("OutputDir = %q; want %q", cfg.OutputDir, "screenshots")
	}
	if got, want := cfg.RunViewports, []string{"desktop", "mobile"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("RunViewports = %v; want %v", got, want)
	}
	if cfg.NavTimeout != 10*time.Second {
		t.Fatalf("NavTimeout = %v; want 10s", cfg.NavTimeout)
	}
	if cfg.SettleDelay != 500*time.Millisecond || cfg.FormSettle != 300*time.Millisecond || cfg.ErrorSettle != time.Second {
		t.Fatalf("settle delays = %v/%v/%v; want 500ms/300ms/1s", cfg.SettleDelay, cfg.FormSettle, cfg.ErrorSettle)
	}
	if len(cfg.Pages) != 2 || cfg.Pages[0].Name != "login" || cfg.Pages[1].Name != "register" {
		t.Fatalf("Pages = %+v; want login, register", cfg.Pages)
	}
	if vp := cfg.Viewports["tablet"]; vp.Width != 768 || vp.Height != 1024 {
		t.Fatalf("tablet viewport = %+v; want 768x1024", vp)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CAPTURE_BASE_URL", "http://127.0.0.1:3000/")
	t.Setenv("CAPTURE_VIEWPORTS", "tablet, desktop")
	t.Setenv("CAPTURE_NAV_TIMEOUT_MS", "2500")
	t.Setenv("CAPTURE_SETTLE_MS", "0")
	t.Setenv("CAPTURE_HEADLESS", "false")
	t.Setenv("CAPTURE_LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BaseURL != "http://127.0.0.1:3000" {
		t.Fatalf("BaseURL = %q; want trailing slash trimmed", cfg.BaseURL)
	}
	if got, want := cfg.RunViewports, []string{"tablet", "desktop"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("RunViewports = %v; want %v", got, want)
	}
	if cfg.NavTimeout != 2500*time.Millisecond {
		t.Fatalf("NavTimeout = %v; want 2.5s", cfg.NavTimeout)
	}
	if cfg.SettleDelay != 0 {
		t.Fatalf("SettleDelay = %v; want 0", cfg.SettleDelay)
	}
	if cfg.Headless {
		t.Fatal("Headless = true; want false")
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q; want %q", cfg.LogLevel, "debug")
	}
}

func TestLoadRejectsUnknownViewport(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CAPTURE_VIEWPORTS", "desktop,watch")

	if _, err := Load(); err == nil {
		t.Fatal("Load() error = nil; want unknown viewport error")
	}
}

func TestValidateRejectsDuplicatePages(t *testing.T) {
	cfg := Default()
	cfg.Pages = append(cfg.Pages, PageSpec{Path: "/signin", Name: "login"})

	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() = nil; want duplicate page error")
	}
}

func TestValidateRejectsUnsafeNames(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "parent dir page", mutate: func(c *Config) { c.Pages = []PageSpec{{Path: "/x", Name: "../escaped"}} }},
		{name: "capital page", mutate: func(c *Config) { c.Pages = []PageSpec{{Path: "/register", Name: "Register"}} }},
		{name: "capital viewport", mutate: func(c *Config) {
			c.Viewports["Wide"] = Viewport{Name: "Wide", Width: 1920, Height: 1080}
			c.RunViewports = []string{"Wide"}
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("Validate() = nil; want invalid name error")
			}
		})
	}
}

func TestValidateCDPURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{url: "http://127.0.0.1:9222"},
		{url: "ws://chrome:9222/devtools/browser/abc"},
		{url: "wss://chrome.internal/devtools/browser/abc"},
		{url: "ftp://chrome:9222", wantErr: true},
		{url: "127.0.0.1:9222", wantErr: true},
	}
	for _, tc := range tests {
		cfg := Default()
		cfg.CDPURL = tc.url
		if err := cfg.Validate(); (err != nil) != tc.wantErr {
			t.Fatalf("Validate() with CDP url %q error = %v; wantErr %v", tc.url, err, tc.wantErr)
		}
	}
}

func TestPageURL(t *testing.T) {
	cfg := Default()
	tests := []struct {
		path string
		want string
	}{
		{path: "/login", want: "http://localhost:5173/login"},
		{path: "register", want: "http://localhost:5173/register"},
	}
	for _, tc := range tests {
		if got := cfg.PageURL(tc.path); got != tc.want {
			t.Fatalf("PageURL(%q) = %q; want %q", tc.path, got, tc.want)
		}
	}
}

func TestLoadPagesFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "pages.yaml")
	body := `viewports:
  - {name: wide, width: 1920, height: 1080}
run_viewports: [wide, mobile]
pages:
  - {path: /login, name: login, wait_for: "form"}
  - {path: /forgot-password, name: forgot}
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write pages file: %v", err)
	}
	t.Setenv("CAPTURE_PAGES_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got, want := cfg.RunViewports, []string{"wide", "mobile"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("RunViewports = %v; want %v", got, want)
	}
	if vp := cfg.Viewports["wide"]; vp.Width != 1920 || vp.Height != 1080 {
		t.Fatalf("wide viewport = %+v; want 1920x1080", vp)
	}
	if _, ok := cfg.Viewports["desktop"]; !ok {
		t.Fatal("desktop viewport dropped; want built-in viewports kept")
	}
	want := []PageSpec{
		{Path: "/login", Name: "login", WaitFor: "form"},
		{Path: "/forgot-password", Name: "forgot"},
	}
	if !reflect.DeepEqual(cfg.Pages, want) {
		t.Fatalf("Pages = %+v; want %+v", cfg.Pages, want)
	}

	t.Setenv("CAPTURE_VIEWPORTS", "desktop")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load() with env override error = %v", err)
	}
	if got, want := cfg.RunViewports, []string{"desktop"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("RunViewports = %v; want env to win over file: %v", got, want)
	}
}

func TestLoadPagesFileRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "viewport without size", body: "viewports:\n  - {name: wide}\n"},
		{name: "page without name", body: "pages:\n  - {path: /login}\n"},
		{name: "not yaml", body: "pages: [\n"},
		{name: "page name with path", body: "pages:\n  - {path: /x, name: ../escaped}\n"},
		{name: "page name with capitals", body: "pages:\n  - {path: /register, name: Register}\n"},
		{name: "page name with dash", body: "pages:\n  - {path: /reset, name: reset-password}\n"},
		{name: "viewport name with slash", body: "viewports:\n  - {name: a/b, width: 10, height: 10}\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "pages.yaml")
			if err := os.WriteFile(path, []byte(tc.body), 0o644); err != nil {
				t.Fatalf("write pages file: %v", err)
			}
			if _, err := LoadPagesFile(path); err == nil {
				t.Fatal("LoadPagesFile() error = nil; want error")
			}
		})
	}
}

func TestLoadPagesFileMissing(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CAPTURE_PAGES_FILE", "does-not-exist.yaml")

	if _, err := Load(); err == nil {
		t.Fatal("Load() error = nil; want missing pages file error")
	}
}
