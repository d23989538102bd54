package cachestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"ghasexport/internal/record"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCache() Cache {
	a := record.New(record.Ref{Owner: "acme", Name: "a"})
	a.CodeScanning = record.Counted(3)
	a.Dependabot = record.Counted(0)
	a.SecretScanning = record.Disabled()

	b := record.New(record.Ref{Owner: "acme", Name: "b"})
	b.Error = "rate limited"

	return Cache{"a": a, "b": b}
}

func backends(t *testing.T) map[string]Store {
	t.Helper()
	return map[string]Store{
		BackendJSON:   NewJSONStore(t.TempDir()),
		BackendSQLite: NewSQLiteStore(t.TempDir()),
	}
}

func TestStore_LoadMissingCreatesEmpty(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			c, err := s.Load(context.Background(), "acme")
			require.NoError(t, err)
			assert.Empty(t, c)

			_, err = os.Stat(s.Path("acme"))
			require.NoError(t, err, "backing document should be created")
		})
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			want := sampleCache()

			require.NoError(t, s.Save(ctx, "acme", want))
			got, err := s.Load(ctx, "acme")
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestStore_SaveIsFullRewrite(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Save(ctx, "acme", sampleCache()))

			only := Cache{"c": record.New(record.Ref{Owner: "acme", Name: "c"})}
			require.NoError(t, s.Save(ctx, "acme", only))
			require.NoError(t, s.Save(ctx, "acme", only))

			got, err := s.Load(ctx, "acme")
			require.NoError(t, err)
			assert.Equal(t, only, got)
		})
	}
}

func TestStore_ScopedPerOrganization(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Save(ctx, "acme", sampleCache()))

			other, err := s.Load(ctx, "globex")
			require.NoError(t, err)
			assert.Empty(t, other)
			assert.NotEqual(t, s.Path("acme"), s.Path("globex"))
		})
	}
}

func TestJSONStore_ReadsExistingDocument(t *testing.T) {
	dir := t.TempDir()
	doc := `{"a":{"owner":"acme","name":"a","code_scanning":1,"dependabot":2,"secret_scanning":-1,"error":null}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "acme.json"), []byte(doc), 0o600))

	c, err := NewJSONStore(dir).Load(context.Background(), "acme")
	require.NoError(t, err)
	require.Contains(t, c, "a")
	assert.False(t, c["a"].IsError())
	assert.Equal(t, record.Disabled(), c["a"].SecretScanning)
}

func TestJSONStore_CorruptDocumentFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "acme.json"), []byte("{not json"), 0o600))

	_, err := NewJSONStore(dir).Load(context.Background(), "acme")
	assert.Error(t, err)
}

func TestJSONStore_NullDocument(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "acme.json"), []byte("null"), 0o600))

	c, err := NewJSONStore(dir).Load(context.Background(), "acme")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Empty(t, c)

	c["a"] = record.New(record.Ref{Owner: "acme", Name: "a"})
	assert.Len(t, c, 1)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open("", dir)
	require.NoError(t, err)
	assert.IsType(t, &JSONStore{}, s)

	s, err = Open("SQLite", dir)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)

	_, err = Open("redis", dir)
	assert.Error(t, err)

	_, err = Open("json", " ")
	assert.Error(t, err)
}

func TestPath_SanitizesOrganization(t *testing.T) {
	s := NewJSONStore("cache")
	assert.Equal(t, filepath.Join("cache", "my_org.json"), s.Path("my org"))
	assert.Equal(t, filepath.Join("cache", "a_b.json"), s.Path("a/b"))
}
