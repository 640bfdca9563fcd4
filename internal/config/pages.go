package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PagesFile is the optional YAML description of what to capture. Anything it
// leaves empty keeps the built-in default. Page and viewport names become part of
// screenshot filenames, so they are limited to lowercase letters, digits and
// underscores.
//
// The login error-state capture is not driven by this file. It always runs
// against <base>/login using the "desktop" viewport, even when pages omits
// login or run_viewports omits desktop. Redefining desktop here changes its size.
//
//	viewports:
//	  - {name: wide, width: 1920, height: 1080}
//	run_viewports: [wide, mobile]
//	pages:
//	  - {path: /login, name: login, wait_for: "form"}
type PagesFile struct {
	Viewports    []Viewport `yaml:"viewports,omitempty"`
	RunViewports []string   `yaml:"run_viewports,omitempty"`
	Pages        []PageSpec `yaml:"pages,omitempty"`
}

// LoadPagesFile reads and validates a pages YAML file.
func LoadPagesFile(path string) (*PagesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pages file: %w", err)
	}
	var pf PagesFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("pages file: %w", err)
	}
	for i, vp := range pf.Viewports {
		if vp.Name == "" {
			return nil, fmt.Errorf("pages file: viewport[%d] missing name", i)
		}
		if err := checkName("viewport", vp.Name); err != nil {
			return nil, fmt.Errorf("pages file: viewport[%d]: %w", i, err)
		}
		if vp.Width <= 0 || vp.Height <= 0 {
			return nil, fmt.Errorf("pages file: viewport[%d] (%s) needs positive width and height", i, vp.Name)
		}
	}
	for i, p := range pf.Pages {
		if p.Path == "" {
			return nil, fmt.Errorf("pages file: page[%d] missing path", i)
		}
		if p.Name == "" {
			return nil, fmt.Errorf("pages file: page[%d] (%s) missing name", i, p.Path)
		}
		if err := checkName("page", p.Name); err != nil {
			return nil, fmt.Errorf("pages file: page[%d]: %w", i, err)
		}
	}
	return &pf, nil
}

// Apply merges the file into cfg. Viewports are added or replaced by name;
// pages and run order replace the defaults when present.
func (pf *PagesFile) Apply(cfg *Config) {
	if len(pf.Viewports) > 0 {
		merged := make(map[string]Viewport, len(cfg.Viewports)+len(pf.Viewports))
		for name, vp := range cfg.Viewports {
			merged[name] = vp
		}
		for _, vp := range pf.Viewports {
			merged[vp.Name] = vp
		}
		cfg.Viewports = merged
	}
	if len(pf.RunViewports) > 0 {
		cfg.RunViewports = append([]string(nil), pf.RunViewports...)
	}
	if len(pf.Pages) > 0 {
		cfg.Pages = append([]PageSpec(nil), pf.Pages...)
	}
}
