// Package ingest discovers, parses, chunks, embeds, and upserts memory
// documents from a filesystem tree, mirroring the teacher's scanner/index
// runner split but driven by Engine.Save instead of a code-search index.
package ingest

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// denyNames excludes these path components (files or directories) from
// discovery entirely, regardless of depth.
var denyNames = map[string]bool{
	"node_modules": true,
	".git":         true,
	".cache":       true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	".env":         true,
	"coverage":     true,
}

// FileRef is one discovered file awaiting parse.
type FileRef struct {
	AbsPath string
	RelPath string
	Size    int64
	ModTime time.Time
}

// Discover walks root, excluding denyNames and any dot-prefixed path
// component, and returns files sorted by relative path.
func Discover(root string) ([]FileRef, error) {
	var refs []FileRef

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if denyNames[name] || strings.HasPrefix(name, ".") {
				return fs.SkipDir
			}
			return nil
		}
		if denyNames[name] || strings.HasPrefix(name, ".") {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		refs = append(refs, FileRef{
			AbsPath: path,
			RelPath: filepath.ToSlash(rel),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].RelPath < refs[j].RelPath })
	return refs, nil
}
