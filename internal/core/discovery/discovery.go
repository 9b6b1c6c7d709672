// Package discovery resolves a target path into the ordered list of files
// the controller should process.
package discovery

import (
	"errors"
	"fmt"
	"path"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/colonyops/refinery/internal/core/sandbox"
)

// Target describes what to discover. Path is sandbox-relative.
type Target struct {
	Path    string
	FileExt string   // e.g. ".py"; applied to directory children only
	Exclude []string // doublestar patterns matched against child base names
}

// Discover returns the sandbox-relative files named by target.
//
// A file target yields itself regardless of extension. A directory target
// yields its direct regular-file children whose name ends in FileExt and
// matches no Exclude pattern, sorted by name. A missing target or an empty
// match yields an empty slice and no error. Sandbox violations are errors.
func Discover(sb *sandbox.Sandbox, target Target) ([]string, error) {
	info, err := sb.Stat(target.Path)
	if err != nil {
		if errors.Is(err, sandbox.ErrNotFound) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("discover %s: %w", target.Path, err)
	}

	switch {
	case info.Mode().IsRegular():
		return []string{path.Clean(target.Path)}, nil
	case !info.IsDir():
		return []string{}, nil
	}

	entries, err := sb.ReadDir(target.Path)
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", target.Path, err)
	}

	pattern := "*" + doublestar.EscapeMeta(target.FileExt)

	files := []string{}
	for _, entry := range entries {
		name := entry.Name()

		ok, err := doublestar.Match(pattern, name)
		if err != nil {
			return nil, fmt.Errorf("match %q: %w", pattern, err)
		}
		if !ok || excluded(target.Exclude, name) {
			continue
		}

		rel := path.Join(target.Path, name)
		childInfo, err := sb.Stat(rel)
		if err != nil {
			if errors.Is(err, sandbox.ErrOutsideSandbox) {
				// A symlinked child pointing out of the root is skipped, not fatal.
				continue
			}
			return nil, fmt.Errorf("discover %s: %w", rel, err)
		}
		if !childInfo.Mode().IsRegular() {
			continue
		}

		files = append(files, rel)
	}

	sort.Strings(files)
	return files, nil
}

func excluded(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}
