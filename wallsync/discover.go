package wallsync

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// DiscoverJSON lists every *.json file below root in lexical order. A missing
// root is not an error: it simply has no files. Unreadable subdirectories are
// logged and skipped.
func DiscoverJSON(root string) ([]string, error) {
	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	var matches []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			log.Printf("discover: skip %s: %v", p, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if filepath.Ext(p) == ".json" {
			matches = append(matches, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// PathContext splits <root>/.../<country>/<stem>.json into country and stem.
// Files sitting directly under root have no country and report ok=false.
func PathContext(root, path string) (country string, stem string, ok bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", "", false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 {
		return "", "", false
	}
	base := parts[len(parts)-1]
	return parts[len(parts)-2], strings.TrimSuffix(base, filepath.Ext(base)), true
}
