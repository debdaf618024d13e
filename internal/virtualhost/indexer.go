package virtualhost

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileRecord describes a discovered component file.
type FileRecord struct {
	AbsPath         string
	RelPath         string
	Size            int64
	ModTimeUnixNano int64
}

// FileIndex is a deterministic snapshot of component files under a root.
type FileIndex struct {
	Root  string
	Files []FileRecord
}

// BuildFileIndex walks root once and captures every .vue file.
func BuildFileIndex(ctx context.Context, root string) (*FileIndex, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	idx := &FileIndex{Root: absRoot}
	err = filepath.Walk(absRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if info.IsDir() {
			if path != absRoot && isExcludedDir(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() || !isComponentPath(info.Name()) {
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			relPath = path
		}
		idx.Files = append(idx.Files, FileRecord{
			AbsPath:         path,
			RelPath:         filepath.ToSlash(relPath),
			Size:            info.Size(),
			ModTimeUnixNano: info.ModTime().UnixNano(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}

	sort.Slice(idx.Files, func(i, j int) bool {
		return idx.Files[i].RelPath < idx.Files[j].RelPath
	})
	return idx, nil
}

// isExcludedDir skips hidden directories, dependencies and build output.
func isExcludedDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "node_modules" || name == "unpackage" || name == "dist"
}
