package virtualhost

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, PagesFileName), `{
  "pages": [{ "path": "pages/index/index" }],
  "subPackages": [{ "root": "sub", "pages": [{ "path": "list/list" }] }]
}`)
	writeFile(t, filepath.Join(root, "App.vue"), "<script>\nexport default {}\n</script>\n")
	writeFile(t, filepath.Join(root, "pages", "index", "index.vue"), "<template><view/></template>\n")
	writeFile(t, filepath.Join(root, "sub", "list", "list.vue"), "<template><view/></template>\n")
	writeFile(t, filepath.Join(root, "components", "Card.vue"), "<template><view/></template>\n")
	writeFile(t, filepath.Join(root, "components", "Done.vue"), "<script setup>\n"+defaultCall+"\n</script>\n")
	writeFile(t, filepath.Join(root, "components", "Broken.vue"), "<script setup>\ndefineOptions({\n</script>\n")
	writeFile(t, filepath.Join(root, "node_modules", "lib", "Dep.vue"), "<template><view/></template>\n")
	writeFile(t, filepath.Join(root, ".hidden", "Secret.vue"), "<template><view/></template>\n")
	return root
}

func testOptions(root string) Options {
	opts := DefaultOptions()
	opts.ProjectRoot = root
	opts.Concurrency = 2
	return opts
}

func TestBuildFileIndexSkipsExcludedDirs(t *testing.T) {
	root := newTestProject(t)

	idx, err := BuildFileIndex(context.Background(), root)
	if err != nil {
		t.Fatalf("BuildFileIndex returned error: %v", err)
	}
	var got []string
	for _, rec := range idx.Files {
		got = append(got, rec.RelPath)
	}
	want := "App.vue,components/Broken.vue,components/Card.vue,components/Done.vue,pages/index/index.vue,sub/list/list.vue"
	if strings.Join(got, ",") != want {
		t.Fatalf("expected %s, got %s", want, strings.Join(got, ","))
	}
}

func TestEngineRunCheck(t *testing.T) {
	root := newTestProject(t)
	engine, err := NewEngine(testOptions(root))
	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}

	report, err := engine.Run(context.Background(), ModeCheck)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Scanned != 6 || report.Eligible != 3 {
		t.Fatalf("expected 6 scanned and 3 eligible, got %d and %d", report.Scanned, report.Eligible)
	}
	changed := report.Changed()
	if len(changed) != 1 || changed[0].RelPath != "components/Card.vue" {
		t.Fatalf("expected only Card.vue to change, got %+v", changed)
	}
	failed := report.Failed()
	if len(failed) != 1 || failed[0].RelPath != "components/Broken.vue" {
		t.Fatalf("expected Broken.vue to fail, got %+v", failed)
	}

	data, err := os.ReadFile(filepath.Join(root, "components", "Card.vue"))
	if err != nil {
		t.Fatalf("read Card.vue: %v", err)
	}
	if string(data) != "<template><view/></template>\n" {
		t.Fatal("check mode must not modify files")
	}
}

func TestEngineRunDiff(t *testing.T) {
	root := newTestProject(t)
	engine, err := NewEngine(testOptions(root))
	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}

	report, err := engine.Run(context.Background(), ModeDiff)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	changed := report.Changed()
	if len(changed) != 1 {
		t.Fatalf("expected one changed file, got %d", len(changed))
	}
	diff := changed[0].Diff
	if !strings.Contains(diff, "--- a/components/Card.vue") || !strings.Contains(diff, "+<script setup>") {
		t.Fatalf("unexpected diff:\n%s", diff)
	}
}

func TestEngineRunWrite(t *testing.T) {
	root := newTestProject(t)
	engine, err := NewEngine(testOptions(root))
	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}

	if _, err := engine.Run(context.Background(), ModeWrite); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(root, "components", "Card.vue"))
	if err != nil {
		t.Fatalf("read Card.vue: %v", err)
	}
	if want := synthesized + "<template><view/></template>\n"; string(data) != want {
		t.Fatalf("expected rewritten Card.vue, got:\n%s", data)
	}

	report, err := engine.Run(context.Background(), ModeWrite)
	if err != nil {
		t.Fatalf("second Run returned error: %v", err)
	}
	if n := len(report.Changed()); n != 0 {
		t.Fatalf("expected second run to change nothing, got %d", n)
	}
}

func TestEngineMissingPagesManifest(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "pages", "index.vue"), "<template/>\n")

	engine, err := NewEngine(testOptions(root))
	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}
	if len(engine.Pages().Pages()) != 0 {
		t.Fatalf("expected empty page list, got %q", engine.Pages().Pages())
	}
}

func TestTransformerPassThroughAndCache(t *testing.T) {
	classifier, err := NewClassifier("/src", nil, NewPageSet([]string{"/src/pages/index.vue"}))
	if err != nil {
		t.Fatalf("NewClassifier returned error: %v", err)
	}
	transformer, err := NewTransformer(classifier, 8)
	if err != nil {
		t.Fatalf("NewTransformer returned error: %v", err)
	}

	code := "<template><view/></template>"
	for _, path := range []string{"/src/pages/index.vue", "/src/App.vue", "/other/Comp.vue"} {
		res, err := transformer.Transform(path, code)
		if err != nil {
			t.Fatalf("Transform(%s) returned error: %v", path, err)
		}
		if res.Changed || res.Code != code {
			t.Fatalf("expected %s to pass through unchanged", path)
		}
	}

	first, err := transformer.Transform("/src/components/Comp.vue", code)
	if err != nil {
		t.Fatalf("Transform returned error: %v", err)
	}
	second, err := transformer.Transform("/src/components/Comp.vue", code)
	if err != nil {
		t.Fatalf("Transform returned error: %v", err)
	}
	if !first.Changed || first != second {
		t.Fatal("expected a changed result served from the cache on the second call")
	}
}

func TestWriteFileAtomicKeepsMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Comp.vue")
	writeFile(t, path, "old")
	if err := os.Chmod(path, 0600); err != nil {
		t.Fatalf("chmod: %v", err)
	}

	if err := writeFileAtomic(path, []byte("new")); err != nil {
		t.Fatalf("writeFileAtomic returned error: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Fatalf("expected mode 0600, got %v", info.Mode().Perm())
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected temp file to be gone, found %d entries", len(entries))
	}
}

// writeUntil rewrites path with content until done reports true or the deadline passes.
func writeUntil(t *testing.T, path, content string, done func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !done() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting after writing %s", path)
		}
		writeFile(t, path, content)
		time.Sleep(50 * time.Millisecond)
	}
}

func fileContains(path, text string) func() bool {
	return func() bool {
		data, err := os.ReadFile(path)
		return err == nil && strings.Contains(string(data), text)
	}
}

func TestEngineWatch(t *testing.T) {
	root := t.TempDir()
	manifest := filepath.Join(root, PagesFileName)
	writeFile(t, manifest, `{"pages":[]}`)

	engine, err := NewEngine(testOptions(root))
	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- engine.Watch(ctx) }()

	component := "<template><view/></template>\n"
	card := filepath.Join(root, "components", "Card.vue")
	writeUntil(t, card, component, fileContains(card, "virtualHost: true"))

	nested := filepath.Join(root, "components", "nested", "Badge.vue")
	writeUntil(t, nested, component, fileContains(nested, "virtualHost: true"))

	writeUntil(t, manifest, `{"pages":[{"path":"components/nested/Badge"}]}`, func() bool {
		return engine.Pages().PageSet().Contains(NormalizePath(nested))
	})

	writeFile(t, nested, component)
	writeFile(t, card, component)
	writeUntil(t, card, component, fileContains(card, "virtualHost: true"))

	data, err := os.ReadFile(nested)
	if err != nil {
		t.Fatalf("read Badge.vue: %v", err)
	}
	if string(data) != component {
		t.Fatalf("expected a listed page to be left alone, got:\n%s", data)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch returned error: %v", err)
	}
}
