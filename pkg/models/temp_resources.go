package models

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
)

// TempResourceKind distinguishes files from directories
type TempResourceKind int

const (
	TempFile TempResourceKind = iota
	TempDirectory
)

// TempResource is one registered temporary path
type TempResource struct {
	Path string
	Kind TempResourceKind
}

// TempResources is the ordered set of temporary paths created for one job.
// Every registered path is removed exactly once by Cleanup.
type TempResources struct {
	mu        sync.Mutex
	resources []TempResource
}

// AddFile registers a temporary file
func (t *TempResources) AddFile(path string) {
	t.add(TempResource{Path: path, Kind: TempFile})
}

// AddDirectory registers a temporary directory, removed recursively
func (t *TempResources) AddDirectory(path string) {
	t.add(TempResource{Path: path, Kind: TempDirectory})
}

func (t *TempResources) add(r TempResource) {
	if r.Path == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resources = append(t.resources, r)
}

// List returns a copy of the registered resources in registration order
func (t *TempResources) List() []TempResource {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TempResource, len(t.resources))
	copy(out, t.resources)
	return out
}

// Len returns the number of registered resources still pending cleanup
func (t *TempResources) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.resources)
}

// Cleanup deletes files first, then directories, and drains the set.
// Paths that no longer exist are not errors. All other failures are
// collected and returned; cleanup always visits every entry.
func (t *TempResources) Cleanup() []error {
	t.mu.Lock()
	resources := t.resources
	t.resources = nil
	t.mu.Unlock()

	var errs []error
	for _, r := range resources {
		if r.Kind != TempFile {
			continue
		}
		if err := os.Remove(r.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove temp file %s: %w", r.Path, err))
		}
	}
	for _, r := range resources {
		if r.Kind != TempDirectory {
			continue
		}
		if err := os.RemoveAll(r.Path); err != nil {
			errs = append(errs, fmt.Errorf("remove temp directory %s: %w", r.Path, err))
		}
	}
	return errs
}
