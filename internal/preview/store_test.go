package preview

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "previews/demo.html", Key("demo"))
}

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Get(ctx, "p1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, "p1", "<p>one</p>"))
	require.NoError(t, store.Put(ctx, "p1", "<p>two</p>"))

	got, err := store.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "<p>two</p>", got)

	entries, err := os.ReadDir(filepath.Join(dir, "previews"))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files must not be left behind")
	assert.Equal(t, "p1.html", entries[0].Name())
}

func TestFileStoreRejectsUnsafeIDs(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	for _, id := range []string{"", "../x", "a/b", ".hidden", "a..b"} {
		assert.Error(t, store.Put(context.Background(), id, "x"), id)
		_, err := store.Get(context.Background(), id)
		assert.Error(t, err, id)
	}
}

func TestNewFileStoreRequiresDir(t *testing.T) {
	_, err := NewFileStore("  ")
	assert.Error(t, err)
}

func TestFileStoreConcurrentWriters(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	docs := []string{"<p>a</p>", "<p>b</p>", "<p>c</p>", "<p>d</p>"}
	var wg sync.WaitGroup
	for _, doc := range docs {
		wg.Add(1)
		go func(doc string) {
			defer wg.Done()
			assert.NoError(t, store.Put(ctx, "same", doc))
		}(doc)
	}
	wg.Wait()

	got, err := store.Get(ctx, "same")
	require.NoError(t, err)
	assert.Contains(t, docs, got)
}

type countingStore struct {
	mu   sync.Mutex
	data map[string]string
	gets int
}

func (s *countingStore) Put(_ context.Context, id, html string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		s.data = map[string]string{}
	}
	s.data[id] = html
	return nil
}

func (s *countingStore) Get(_ context.Context, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	html, ok := s.data[id]
	if !ok {
		return "", ErrNotFound
	}
	return html, nil
}

func TestCachedStore(t *testing.T) {
	backing := &countingStore{}
	store, err := NewCachedStore(backing, 2)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "a", "A"))
	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "A", got)
	assert.Equal(t, 0, backing.gets)

	require.NoError(t, store.Put(ctx, "b", "B"))
	require.NoError(t, store.Put(ctx, "c", "C"))
	assert.Equal(t, 2, store.Len())

	got, err = store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "A", got)
	assert.Equal(t, 1, backing.gets)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCachedStoreDropsEntryOnFailedWrite(t *testing.T) {
	store, err := NewCachedStore(failingStore{}, 4)
	require.NoError(t, err)

	assert.Error(t, store.Put(context.Background(), "x", "X"))
	assert.Equal(t, 0, store.Len())
}

func TestNewCachedStoreValidation(t *testing.T) {
	_, err := NewCachedStore(nil, 4)
	assert.Error(t, err)

	_, err = NewCachedStore(&countingStore{}, 0)
	assert.Error(t, err)
}

func TestNewS3StoreValidation(t *testing.T) {
	valid := S3Config{
		Endpoint:  "localhost:9000",
		AccessKey: "minio",
		SecretKey: "minio123",
		Bucket:    "previews",
	}

	store, err := NewS3Store(valid)
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", store.region)

	https := valid
	https.Endpoint = "https://s3.example.com"
	store, err = NewS3Store(https)
	require.NoError(t, err)
	assert.Equal(t, "s3.example.com", store.client.EndpointURL().Host)
	assert.Equal(t, "https", store.client.EndpointURL().Scheme)

	tests := map[string]func(c *S3Config){
		"no endpoint":   func(c *S3Config) { c.Endpoint = "" },
		"bad endpoint":  func(c *S3Config) { c.Endpoint = "host;rm" },
		"path endpoint": func(c *S3Config) { c.Endpoint = "http://host/bucket" },
		"no keys":       func(c *S3Config) { c.AccessKey = "" },
		"no bucket":     func(c *S3Config) { c.Bucket = " " },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := valid
			mutate(&cfg)
			_, err := NewS3Store(cfg)
			assert.Error(t, err)
		})
	}
}

func TestS3StoreRejectsUnsafeIDsBeforeNetwork(t *testing.T) {
	store, err := NewS3Store(S3Config{
		Endpoint:  "127.0.0.1:1",
		AccessKey: "a",
		SecretKey: "b",
		Bucket:    "previews",
	})
	require.NoError(t, err)

	assert.Error(t, store.Put(context.Background(), "../x", "x"))
	_, err = store.Get(context.Background(), "a/b")
	assert.Error(t, err)
}
