package virtualhost

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultIgnorePatterns exclude the two conventional app roots.
var DefaultIgnorePatterns = []string{"**/App.vue", "**/App.ku.vue"}

// PageSet is a set of normalized page component paths.
type PageSet map[string]struct{}

// NewPageSet normalizes paths into a set.
func NewPageSet(paths []string) PageSet {
	set := make(PageSet, len(paths))
	for _, p := range paths {
		set[NormalizePath(p)] = struct{}{}
	}
	return set
}

// Contains reports whether the normalized path is a page.
func (s PageSet) Contains(path string) bool {
	_, ok := s[NormalizePath(path)]
	return ok
}

// PageSet lets a fixed set act as its own PageSource.
func (s PageSet) PageSet() PageSet { return s }

// PageSource supplies the current page set. Implementations must be safe for concurrent use.
type PageSource interface {
	PageSet() PageSet
}

// NormalizePath converts backslashes to forward slashes.
func NormalizePath(path string) string {
	return strings.ReplaceAll(path, `\`, "/")
}

// ResolveIgnorePatterns returns custom when non-empty, otherwise the defaults, normalized.
func ResolveIgnorePatterns(custom []string) []string {
	patterns := DefaultIgnorePatterns
	if len(custom) > 0 {
		patterns = custom
	}
	out := make([]string, len(patterns))
	for i, p := range patterns {
		out[i] = NormalizePath(p)
	}
	return out
}

// IsComponent reports whether filePath is a component that should declare
// virtualHost: under rootPath, a .vue file, not ignored and not a page.
// Empty ignorePatterns select DefaultIgnorePatterns.
func IsComponent(rootPath string, pages PageSet, filePath string, ignorePatterns []string) bool {
	id := NormalizePath(filePath)
	rel, ok := relativeToRoot(NormalizePath(rootPath), id)
	if !ok || !isComponentPath(id) {
		return false
	}
	if len(ignorePatterns) == 0 {
		ignorePatterns = DefaultIgnorePatterns
	}
	if matchesAnyPattern(ignorePatterns, id, rel) {
		return false
	}
	return !pages.Contains(id)
}

// relativeToRoot returns id relative to root when id lies beneath it.
func relativeToRoot(root, id string) (string, bool) {
	root = strings.TrimSuffix(root, "/")
	if root == "" {
		return strings.TrimPrefix(id, "/"), strings.HasPrefix(id, "/")
	}
	if !strings.HasPrefix(id, root+"/") {
		return "", false
	}
	return id[len(root)+1:], true
}

// matchesAnyPattern matches absolute patterns against the absolute path and
// every other pattern against the root-relative path.
func matchesAnyPattern(patterns []string, id, rel string) bool {
	for _, pattern := range patterns {
		pattern = NormalizePath(pattern)
		target := rel
		if isAbsPattern(pattern) {
			target = id
		} else {
			pattern = strings.TrimPrefix(pattern, "./")
		}
		if ok, err := doublestar.Match(pattern, target); err == nil && ok {
			return true
		}
	}
	return false
}

func isAbsPattern(pattern string) bool {
	if strings.HasPrefix(pattern, "/") {
		return true
	}
	return len(pattern) > 2 && pattern[1] == ':' && pattern[2] == '/'
}

// Classifier binds a root, ignore patterns and a live page source.
type Classifier struct {
	root   string
	ignore []string
	pages  PageSource
}

// NewClassifier validates the ignore patterns and returns a classifier.
func NewClassifier(root string, ignore []string, pages PageSource) (*Classifier, error) {
	patterns := ResolveIgnorePatterns(ignore)
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid ignore pattern: %s", pattern)
		}
	}
	if pages == nil {
		pages = PageSet{}
	}
	return &Classifier{root: NormalizePath(root), ignore: patterns, pages: pages}, nil
}

// IsComponent classifies filePath against the current page set.
func (c *Classifier) IsComponent(filePath string) bool {
	return IsComponent(c.root, c.pages.PageSet(), filePath, c.ignore)
}

// Root returns the normalized source root.
func (c *Classifier) Root() string { return c.root }

// IgnorePatterns returns the effective ignore patterns.
func (c *Classifier) IgnorePatterns() []string {
	return append([]string(nil), c.ignore...)
}
