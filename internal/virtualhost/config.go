package virtualhost

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog"
)

const (
	envInputDir = "UNI_INPUT_DIR"
	envInitCwd  = "INIT_CWD"
)

// Options configures the engine.
type Options struct {
	ProjectRoot string
	PagesPath   string // Default: <ProjectRoot>/pages.json
	Ignore      []string
	Concurrency int // Files rewritten in parallel; <1 selects GOMAXPROCS
	CacheSize   int // Memoized rewrite results; 0 disables the cache
	Logger      zerolog.Logger
}

// DefaultOptions returns sensible defaults rooted at the uni-app source directory.
func DefaultOptions() Options {
	return Options{
		ProjectRoot: ResolveRootPath(),
		Concurrency: runtime.GOMAXPROCS(0),
		CacheSize:   256,
		Logger:      zerolog.Nop(),
	}
}

// ResolveRootPath returns UNI_INPUT_DIR, else INIT_CWD/src, else ./src.
func ResolveRootPath() string {
	if dir := os.Getenv(envInputDir); dir != "" {
		return dir
	}
	cwd := os.Getenv(envInitCwd)
	if cwd == "" {
		var err error
		if cwd, err = os.Getwd(); err != nil {
			cwd = "."
		}
	}
	return filepath.Join(cwd, "src")
}

func (o Options) pagesPath() string {
	if o.PagesPath != "" {
		return o.PagesPath
	}
	return filepath.Join(o.ProjectRoot, PagesFileName)
}

// FileConfig is the on-disk YAML configuration.
type FileConfig struct {
	Root        string   `yaml:"root"`
	Pages       string   `yaml:"pages"`
	Ignore      []string `yaml:"ignore"`
	Concurrency int      `yaml:"concurrency"`
	CacheSize   *int     `yaml:"cacheSize"`
}

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// Apply copies the set fields onto opts. Relative paths resolve against baseDir.
func (c *FileConfig) Apply(opts *Options, baseDir string) {
	if c == nil || opts == nil {
		return
	}
	if c.Root != "" {
		opts.ProjectRoot = resolveAgainst(baseDir, c.Root)
	}
	if c.Pages != "" {
		opts.PagesPath = resolveAgainst(baseDir, c.Pages)
	}
	if len(c.Ignore) > 0 {
		opts.Ignore = append([]string(nil), c.Ignore...)
	}
	if c.Concurrency > 0 {
		opts.Concurrency = c.Concurrency
	}
	if c.CacheSize != nil {
		opts.CacheSize = *c.CacheSize
	}
}

func resolveAgainst(baseDir, p string) string {
	if filepath.IsAbs(p) || baseDir == "" {
		return p
	}
	return filepath.Join(baseDir, p)
}
