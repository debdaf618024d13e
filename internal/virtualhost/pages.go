package virtualhost

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"sync"

	"github.com/tailscale/hujson"
)

// PagesFileName is the uni-app page manifest inside the source root.
const PagesFileName = "pages.json"

type pageEntry struct {
	Path string `json:"path"`
}

type pagesManifest struct {
	Pages       []pageEntry `json:"pages"`
	SubPackages []struct {
		Root  string      `json:"root"`
		Pages []pageEntry `json:"pages"`
	} `json:"subPackages"`
}

// LoadPages reads a pages.json (comments and trailing commas allowed) and
// returns the normalized component path of every page and sub-package page.
func LoadPages(rootPath, manifestPath string) ([]string, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", PagesFileName, err)
	}
	return ParsePages(rootPath, data)
}

// ParsePages decodes pages.json content.
func ParsePages(rootPath string, data []byte) ([]string, error) {
	standard, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", PagesFileName, err)
	}
	var manifest pagesManifest
	if err := json.Unmarshal(standard, &manifest); err != nil {
		return nil, fmt.Errorf("decode %s: %w", PagesFileName, err)
	}

	root := NormalizePath(rootPath)
	pages := make([]string, 0, len(manifest.Pages))
	for _, page := range manifest.Pages {
		if p := formatPagePath(root, page.Path); p != "" {
			pages = append(pages, p)
		}
	}
	for _, pkg := range manifest.SubPackages {
		pkgRoot := path.Join(root, NormalizePath(pkg.Root))
		for _, page := range pkg.Pages {
			if p := formatPagePath(pkgRoot, page.Path); p != "" {
				pages = append(pages, p)
			}
		}
	}
	return pages, nil
}

func formatPagePath(root, page string) string {
	if page == "" {
		return ""
	}
	return path.Join(root, NormalizePath(page)) + componentExt
}

// PageList is a reloadable page source backed by a pages.json file.
type PageList struct {
	rootPath     string
	manifestPath string

	mu    sync.RWMutex
	pages []string
	set   PageSet
}

// NewPageList loads manifestPath once.
func NewPageList(rootPath, manifestPath string) (*PageList, error) {
	l := &PageList{rootPath: rootPath, manifestPath: manifestPath}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload re-reads the manifest. On error the previous list is kept.
func (l *PageList) Reload() error {
	pages, err := LoadPages(l.rootPath, l.manifestPath)
	if err != nil {
		return err
	}
	set := NewPageSet(pages)

	l.mu.Lock()
	l.pages = pages
	l.set = set
	l.mu.Unlock()
	return nil
}

// Pages returns a copy of the current page paths in manifest order.
func (l *PageList) Pages() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.pages...)
}

// PageSet returns the current set. Callers must not modify it.
func (l *PageList) PageSet() PageSet {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.set
}

// ManifestPath returns the watched pages.json path.
func (l *PageList) ManifestPath() string { return l.manifestPath }
