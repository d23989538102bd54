package cachestore

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
)

// JSONStore keeps one JSON document per organization: <dir>/<org>.json.
type JSONStore struct {
	dir string
}

func NewJSONStore(dir string) *JSONStore {
	return &JSONStore{dir: dir}
}

func (s *JSONStore) Path(org string) string {
	return orgPath(s.dir, org, ".json")
}

func (s *JSONStore) Load(_ context.Context, org string) (Cache, error) {
	path := s.Path(org)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := writeAtomic(path, []byte("{}")); err != nil {
			return nil, goerr.Wrap(err, "failed to create cache file", goerr.V("path", path))
		}
		return Cache{}, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read cache file", goerr.V("path", path))
	}

	c := Cache{}
	if len(data) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, goerr.Wrap(err, "failed to decode cache file", goerr.V("path", path))
	}
	if c == nil {
		// A document holding null decodes to a nil map.
		c = Cache{}
	}
	return c, nil
}

func (s *JSONStore) Save(_ context.Context, org string, c Cache) error {
	path := s.Path(org)
	if c == nil {
		c = Cache{}
	}
	data, err := json.Marshal(c)
	if err != nil {
		return goerr.Wrap(err, "failed to encode cache", goerr.V("org", org))
	}
	if err := writeAtomic(path, data); err != nil {
		return goerr.Wrap(err, "failed to write cache file", goerr.V("path", path))
	}
	return nil
}

// writeAtomic writes through a temporary file and renames it into place so a
// crash mid-write never leaves a truncated document behind.
func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
