package source

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultExcludes are skipped unless the configuration says otherwise
var DefaultExcludes = []string{".git/**", "build/**", "node_modules/**"}

// DirOptions configure a directory corpus
type DirOptions struct {
	// Targets are files, directories or doublestar globs relative to the
	// root. Empty means the whole root.
	Targets []string
	// Exclude are doublestar globs matched against slash-separated
	// relative paths
	Exclude []string
}

// Dir is a corpus backed by a directory tree
type Dir struct {
	root  string
	paths []string
}

// NewDir walks root and collects every regular file selected by opts
func NewDir(root string, opts DirOptions) (*Dir, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", root)
	}
	for _, pattern := range opts.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}

	d := &Dir{root: root}
	seen := make(map[string]bool)
	add := func(rel string) {
		if !seen[rel] && !excluded(opts.Exclude, rel) {
			seen[rel] = true
			d.paths = append(d.paths, rel)
		}
	}

	targets := opts.Targets
	if len(targets) == 0 {
		targets = []string{"."}
	}
	fsys := os.DirFS(root)
	for _, target := range targets {
		target = path.Clean(filepath.ToSlash(target))
		var matches []string
		if strings.ContainsAny(target, "*?[{") {
			matches, err = doublestar.Glob(fsys, target)
			if err != nil {
				return nil, fmt.Errorf("glob error: %w", err)
			}
		} else {
			matches = []string{target}
		}

		for _, match := range matches {
			if err := d.walk(fsys, match, opts.Exclude, add); err != nil {
				return nil, err
			}
		}
	}

	sort.Strings(d.paths)
	return d, nil
}

func (d *Dir) walk(fsys fs.FS, start string, exclude []string, add func(string)) error {
	return fs.WalkDir(fsys, start, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if p != "." && prunable(exclude, p) {
				return fs.SkipDir
			}
			return nil
		}
		if entry.Type().IsRegular() {
			add(p)
		}
		return nil
	})
}

func excluded(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// prunable reports whether every file below dir is excluded
func prunable(patterns []string, dir string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, dir); ok {
			return true
		}
		if base, found := strings.CutSuffix(pattern, "/**"); found {
			if ok, _ := doublestar.Match(base, dir); ok {
				return true
			}
		}
	}
	return false
}

// Root returns the corpus root directory
func (d *Dir) Root() string {
	return d.root
}

// Paths returns every selected file, sorted
func (d *Dir) Paths() []string {
	return append([]string(nil), d.paths...)
}

// Abs returns the filesystem path of a corpus path
func (d *Dir) Abs(rel string) string {
	return filepath.Join(d.root, filepath.FromSlash(rel))
}

// Read returns the content of a corpus path
func (d *Dir) Read(rel string) ([]byte, error) {
	return os.ReadFile(d.Abs(rel))
}

// Write atomically replaces the content of rel: the new content goes to a
// temporary file in the same directory which is renamed over the original.
func (d *Dir) Write(rel string, previous, content []byte) error {
	target := d.Abs(rel)

	current, err := HashFile(target)
	if err != nil {
		return err
	}
	if current != HashContent(previous) {
		return ErrStale
	}
	info, err := os.Stat(target)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".rulelint-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	if _, err := tmp.Write(content); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
