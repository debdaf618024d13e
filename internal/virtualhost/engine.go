package virtualhost

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/akedrou/textdiff"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Mode selects what Engine.Run does with rewritten components.
type Mode int

const (
	// ModeCheck only reports which files would change.
	ModeCheck Mode = iota
	// ModeDiff also renders a unified diff per changed file.
	ModeDiff
	// ModeWrite replaces changed files on disk.
	ModeWrite
)

func (m Mode) String() string {
	switch m {
	case ModeCheck:
		return "check"
	case ModeDiff:
		return "diff"
	case ModeWrite:
		return "write"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// FileResult is the outcome for one eligible component.
type FileResult struct {
	RelPath  string
	AbsPath  string
	Changed  bool
	Diff     string
	Warnings []string
	Err      error
}

// Report summarizes an engine run.
type Report struct {
	Scanned  int
	Eligible int
	Files    []FileResult
}

// Changed returns the files that were, or would be, rewritten.
func (r *Report) Changed() []FileResult {
	var out []FileResult
	for _, f := range r.Files {
		if f.Err == nil && f.Changed {
			out = append(out, f)
		}
	}
	return out
}

// Failed returns the files that could not be processed.
func (r *Report) Failed() []FileResult {
	var out []FileResult
	for _, f := range r.Files {
		if f.Err != nil {
			out = append(out, f)
		}
	}
	return out
}

// Transformer is the per-file hook: classify, then rewrite components.
type Transformer struct {
	classifier *Classifier
	cache      *lru.Cache[string, *Result]
}

// NewTransformer memoizes up to cacheSize results; 0 disables memoization.
func NewTransformer(classifier *Classifier, cacheSize int) (*Transformer, error) {
	t := &Transformer{classifier: classifier}
	if cacheSize > 0 {
		cache, err := lru.New[string, *Result](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("create result cache: %w", err)
		}
		t.cache = cache
	}
	return t, nil
}

// Transform returns the rewritten component, or code unchanged when path is
// not a component. Returned results are shared and must not be modified.
func (t *Transformer) Transform(path, code string) (*Result, error) {
	if !t.classifier.IsComponent(path) {
		return &Result{Code: code}, nil
	}

	var key string
	if t.cache != nil {
		key = hashContent(path, code)
		if res, ok := t.cache.Get(key); ok {
			return res, nil
		}
	}

	res, err := RewriteFile(filepath.Base(path), code)
	if err != nil {
		return nil, err
	}
	if t.cache != nil {
		t.cache.Add(key, res)
	}
	return res, nil
}

// Classifier returns the classifier used by Transform.
func (t *Transformer) Classifier() *Classifier { return t.classifier }

// Engine applies the transform to every component under a project root.
type Engine struct {
	opts        Options
	root        string
	log         zerolog.Logger
	pages       *PageList
	transformer *Transformer
}

// NewEngine loads the page list and prepares the transformer. A missing
// pages.json yields an empty page list.
func NewEngine(opts Options) (*Engine, error) {
	root, err := filepath.Abs(opts.ProjectRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	opts.ProjectRoot = root
	if opts.Concurrency < 1 {
		opts.Concurrency = runtime.GOMAXPROCS(0)
	}

	pagesPath, err := filepath.Abs(opts.pagesPath())
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", PagesFileName, err)
	}
	pages := &PageList{rootPath: root, manifestPath: pagesPath}
	if err := pages.Reload(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		opts.Logger.Warn().Str("path", pagesPath).Msg("page manifest not found, treating every component as non-page")
	}

	classifier, err := NewClassifier(root, opts.Ignore, pages)
	if err != nil {
		return nil, err
	}
	transformer, err := NewTransformer(classifier, opts.CacheSize)
	if err != nil {
		return nil, err
	}
	return &Engine{
		opts:        opts,
		root:        root,
		log:         opts.Logger,
		pages:       pages,
		transformer: transformer,
	}, nil
}

// Transformer returns the engine's per-file hook.
func (e *Engine) Transformer() *Transformer { return e.transformer }

// Pages returns the live page list.
func (e *Engine) Pages() *PageList { return e.pages }

// Root returns the absolute project root.
func (e *Engine) Root() string { return e.root }

// Run classifies every indexed component and processes the eligible ones in parallel.
func (e *Engine) Run(ctx context.Context, mode Mode) (*Report, error) {
	idx, err := BuildFileIndex(ctx, e.root)
	if err != nil {
		return nil, fmt.Errorf("build file index: %w", err)
	}

	report := &Report{Scanned: len(idx.Files)}
	var eligible []FileRecord
	for _, rec := range idx.Files {
		if e.transformer.classifier.IsComponent(rec.AbsPath) {
			eligible = append(eligible, rec)
		} else {
			e.log.Debug().Str("file", rec.RelPath).Msg("skipped")
		}
	}
	report.Eligible = len(eligible)

	results := make([]FileResult, len(eligible))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)
	for i, rec := range eligible {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.processFile(rec, mode)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	report.Files = results

	e.log.Debug().
		Stringer("mode", mode).
		Int("scanned", report.Scanned).
		Int("eligible", report.Eligible).
		Int("changed", len(report.Changed())).
		Int("failed", len(report.Failed())).
		Msg("run complete")
	return report, nil
}

func (e *Engine) processFile(rec FileRecord, mode Mode) FileResult {
	fr := FileResult{RelPath: rec.RelPath, AbsPath: rec.AbsPath}

	data, err := os.ReadFile(rec.AbsPath)
	if err != nil {
		fr.Err = fmt.Errorf("read %s: %w", rec.RelPath, err)
		return fr
	}
	original := string(data)
	res, err := e.transformer.Transform(rec.AbsPath, original)
	if err != nil {
		fr.Err = fmt.Errorf("transform %s: %w", rec.RelPath, err)
		return fr
	}

	fr.Warnings = res.Warnings
	for _, w := range res.Warnings {
		e.log.Warn().Str("file", rec.RelPath).Msg(w)
	}
	fr.Changed = res.Changed
	if !res.Changed {
		return fr
	}

	switch mode {
	case ModeDiff:
		fr.Diff = textdiff.Unified("a/"+rec.RelPath, "b/"+rec.RelPath, original, res.Code)
	case ModeWrite:
		if err := writeFileAtomic(rec.AbsPath, []byte(res.Code)); err != nil {
			fr.Err = fmt.Errorf("write %s: %w", rec.RelPath, err)
			return fr
		}
		e.log.Info().Str("file", rec.RelPath).Msg("added virtualHost option")
	}
	return fr
}

// processPath handles a single file outside of a full run.
func (e *Engine) processPath(path string, mode Mode) (FileResult, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return FileResult{AbsPath: path, Err: err}, true
	}
	if !e.transformer.classifier.IsComponent(abs) {
		return FileResult{}, false
	}
	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		return FileResult{}, false
	}
	rel, err := filepath.Rel(e.root, abs)
	if err != nil {
		rel = abs
	}
	return e.processFile(FileRecord{
		AbsPath:         abs,
		RelPath:         filepath.ToSlash(rel),
		Size:            info.Size(),
		ModTimeUnixNano: info.ModTime().UnixNano(),
	}, mode), true
}
