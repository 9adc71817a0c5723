// Package source provides the file corpora the engine lints: an in-memory
// corpus and a directory walker with atomic, stale-checked writes.
package source

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrStale is returned by Write when the file changed since it was read
var ErrStale = errors.New("file changed since it was read")

// Corpus is the set of files a run lints. Paths are slash-separated and
// relative to the corpus root; they are returned sorted.
type Corpus interface {
	Paths() []string
	Read(path string) ([]byte, error)
	// Write replaces the content of path atomically, provided the file
	// still holds previous. It returns ErrStale otherwise.
	Write(path string, previous, content []byte) error
}

// File is one in-memory file
type File struct {
	Path    string
	Content string
}

// Memory is an in-memory corpus safe for concurrent use
type Memory struct {
	mu         sync.Mutex
	files      map[string][]byte
	readErrs   map[string]error
	writeErrs  map[string]error
	writeCount map[string]int
}

// NewMemory creates a corpus holding files
func NewMemory(files ...File) *Memory {
	m := &Memory{
		files:      make(map[string][]byte, len(files)),
		readErrs:   make(map[string]error),
		writeErrs:  make(map[string]error),
		writeCount: make(map[string]int),
	}
	for _, f := range files {
		m.files[f.Path] = []byte(f.Content)
	}
	return m
}

// FailRead makes every Read of path fail with err
func (m *Memory) FailRead(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErrs[path] = err
}

// FailWrite makes every Write of path fail with err
func (m *Memory) FailWrite(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErrs[path] = err
}

// Paths returns every path, sorted
func (m *Memory) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	paths := make([]string, 0, len(m.files))
	for p := range m.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Read returns a copy of the content of path
func (m *Memory) Read(path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.readErrs[path]; err != nil {
		return nil, err
	}
	data, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("%s: no such file", path)
	}
	return append([]byte(nil), data...), nil
}

// Write replaces the content of path when it still holds previous
func (m *Memory) Write(path string, previous, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writeErrs[path]; err != nil {
		return err
	}
	current, ok := m.files[path]
	if !ok {
		return fmt.Errorf("%s: no such file", path)
	}
	if HashContent(current) != HashContent(previous) {
		return ErrStale
	}
	m.files[path] = append([]byte(nil), content...)
	m.writeCount[path]++
	return nil
}

// Content returns the current content of path
func (m *Memory) Content(path string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.files[path])
}

// Writes returns how many successful writes path received
func (m *Memory) Writes(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeCount[path]
}
