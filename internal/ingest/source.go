// Package ingest loads course documents from a source, processes them
// into chunks, and indexes them into the vector store.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Source yields course documents to ingest. List returns stable
// document names; Fetch returns one document's text.
type Source interface {
	List(ctx context.Context) ([]string, error)
	Fetch(ctx context.Context, name string) (string, error)
}

// DirSource reads course documents from a local folder. Only .txt
// files at the top level are considered.
type DirSource struct {
	dir string
}

func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

func (s *DirSource) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading docs folder %s: %w", s.dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".txt") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *DirSource) Fetch(ctx context.Context, name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", name, err)
	}
	return string(data), nil
}
