package virtualhost

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestResolveRootPath(t *testing.T) {
	t.Setenv(envInputDir, "/work/app/src")
	t.Setenv(envInitCwd, "/ignored")
	if got := ResolveRootPath(); got != "/work/app/src" {
		t.Fatalf("expected UNI_INPUT_DIR to win, got %q", got)
	}

	t.Setenv(envInputDir, "")
	if got, want := ResolveRootPath(), filepath.Join("/ignored", "src"); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "virtualhost.yaml")
	writeFile(t, path, `root: src
pages: src/pages.json
ignore:
  - "**/App.vue"
  - "**/uni_modules/**"
concurrency: 3
cacheSize: 0
`)

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile returned error: %v", err)
	}

	opts := Options{ProjectRoot: "/elsewhere", Concurrency: 8, CacheSize: 256}
	cfg.Apply(&opts, dir)

	if opts.ProjectRoot != filepath.Join(dir, "src") {
		t.Fatalf("unexpected root %q", opts.ProjectRoot)
	}
	if opts.PagesPath != filepath.Join(dir, "src", "pages.json") {
		t.Fatalf("unexpected pages path %q", opts.PagesPath)
	}
	if diff := cmp.Diff([]string{"**/App.vue", "**/uni_modules/**"}, opts.Ignore); diff != "" {
		t.Fatalf("ignore mismatch (-want +got):\n%s", diff)
	}
	if opts.Concurrency != 3 || opts.CacheSize != 0 {
		t.Fatalf("expected concurrency 3 and cache 0, got %d and %d", opts.Concurrency, opts.CacheSize)
	}
}

func TestLoadConfigFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	writeFile(t, path, "ignore: [unterminated\n")
	if _, err := LoadConfigFile(path); err == nil {
		t.Fatal("expected a parse error")
	}
}
