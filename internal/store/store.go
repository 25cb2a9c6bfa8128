// Package store supplies raw template text by name. The compilation core
// treats store content as opaque bytes until parsed.
package store

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/conneroisu/scriptlet/internal/errors"
)

// Ext is the filename extension for templates in a directory store.
const Ext = ".tpl"

// Store is the external template-store boundary.
type Store interface {
	// Get returns the raw text of the named template.
	Get(name string) (string, error)
}

// DirStore reads templates from a directory, one file per template named
// <name>.tpl. It rejects names that would escape the directory.
type DirStore struct {
	root string
}

// NewDirStore opens a directory store rooted at root.
func NewDirStore(root string) *DirStore {
	return &DirStore{root: root}
}

// Get reads the named template.
func (s *DirStore) Get(name string) (string, error) {
	path, err := s.path(name)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.NewStoreError("template not readable: "+name, err)
	}
	return string(data), nil
}

// List returns the names of all templates in the store, sorted.
func (s *DirStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, errors.NewStoreError("store not readable", err)
	}
	var names []string
	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), Ext) {
			continue
		}
		names = append(names, strings.TrimSuffix(de.Name(), Ext))
	}
	sort.Strings(names)
	return names, nil
}

// Root returns the store directory.
func (s *DirStore) Root() string { return s.root }

// NameFromPath maps a file path inside the store back to a template name,
// or "" if the path is not a template file.
func (s *DirStore) NameFromPath(path string) string {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, Ext) {
		return ""
	}
	return strings.TrimSuffix(base, Ext)
}

func (s *DirStore) path(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", errors.NewStoreError("invalid template name: "+name, nil)
	}
	return filepath.Join(s.root, name+Ext), nil
}

// MapStore is an in-memory store for tests and embedded use.
type MapStore struct {
	mu        sync.RWMutex
	templates map[string]string
}

// NewMapStore builds a MapStore from an initial template map. The map is
// copied; later mutation goes through Put.
func NewMapStore(templates map[string]string) *MapStore {
	m := &MapStore{templates: make(map[string]string, len(templates))}
	for name, text := range templates {
		m.templates[name] = text
	}
	return m
}

// Get returns the named template.
func (m *MapStore) Get(name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	text, ok := m.templates[name]
	if !ok {
		return "", errors.NewStoreError("template not found: "+name, nil)
	}
	return text, nil
}

// Put stores or replaces a template.
func (m *MapStore) Put(name, text string) {
	m.mu.Lock()
	m.templates[name] = text
	m.mu.Unlock()
}
