package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"path"
	"sort"
	"strings"
)

// Fetcher lists and fetches .txt course documents from one directory
// of a GitHub repository. It implements ingest.Source, so a repository
// folder can be ingested the same way a local one is.
type Fetcher struct {
	client   *Client
	owner    string
	repo     string
	basePath string
}

// NewFetcher creates a fetcher rooted at basePath within owner/repo.
func NewFetcher(client *Client, owner, repo, basePath string) *Fetcher {
	return &Fetcher{
		client:   client,
		owner:    owner,
		repo:     repo,
		basePath: basePath,
	}
}

// List returns the names of all .txt files directly under the base
// path, sorted for stable ingest order. Course documents are flat
// files; subdirectories are ignored.
func (f *Fetcher) List(ctx context.Context) ([]string, error) {
	_, dirContents, _, err := f.client.Repositories.GetContents(
		ctx,
		f.owner,
		f.repo,
		f.basePath,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", f.basePath, err)
	}

	var names []string
	for _, item := range dirContents {
		if item.Type == nil || item.Name == nil || *item.Type != "file" {
			continue
		}
		if strings.HasSuffix(strings.ToLower(*item.Name), ".txt") {
			names = append(names, *item.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Fetch returns the decoded content of one course document.
func (f *Fetcher) Fetch(ctx context.Context, name string) (string, error) {
	fullPath := path.Join(f.basePath, name)

	fileContent, _, _, err := f.client.Repositories.GetContents(
		ctx,
		f.owner,
		f.repo,
		fullPath,
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", fullPath, err)
	}
	if fileContent == nil {
		return "", fmt.Errorf("no file content returned for %s", fullPath)
	}

	content, err := base64.StdEncoding.DecodeString(*fileContent.Content)
	if err != nil {
		return "", fmt.Errorf("decoding %s: %w", fullPath, err)
	}
	return string(content), nil
}
