// Package cachestore persists per-organization scan progress so an
// interrupted export can resume without re-querying finished repositories.
//
// Every organization gets its own backing document (a JSON file or a SQLite
// database) under the cache directory. A document maps repository short names
// to their last known record.Record.
package cachestore

import (
	"context"
	"path/filepath"
	"strings"

	"ghasexport/internal/record"

	"github.com/m-mizutani/goerr/v2"
)

const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Cache maps repository short names to their records for one organization.
type Cache map[string]record.Record

// Store loads and saves one Cache per organization.
type Store interface {
	// Load returns the organization's cache. A missing backing document is
	// created empty and yields an empty Cache.
	Load(ctx context.Context, org string) (Cache, error)

	// Save fully replaces the organization's backing document with c.
	Save(ctx context.Context, org string, c Cache) error

	// Path returns the location of the organization's backing document.
	Path(org string) string
}

// Open returns the Store for backend rooted at dir.
func Open(backend, dir string) (Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, goerr.New("cache directory is required")
	}
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendJSON:
		return NewJSONStore(dir), nil
	case BackendSQLite:
		return NewSQLiteStore(dir), nil
	default:
		return nil, goerr.New("unsupported cache backend", goerr.V("backend", backend))
	}
}

func fileName(org, ext string) string {
	name := sanitizeFileComponent(org)
	if name == "" {
		name = "_"
	}
	return name + ext
}

func orgPath(dir, org, ext string) string {
	return filepath.Join(dir, fileName(org, ext))
}

// sanitizeFileComponent replaces path separators, spaces and colons so an
// organization name is always a single file name.
func sanitizeFileComponent(name string) string {
	name = strings.TrimSpace(name)
	if name == "." || name == ".." {
		return ""
	}
	replacer := strings.NewReplacer(
		"/", "_",
		`\`, "_",
		" ", "_",
		":", "_",
	)
	return replacer.Replace(name)
}
