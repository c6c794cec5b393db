package retrieval_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/telegraph-host/media-gateway/internal/blob"
	"github.com/telegraph-host/media-gateway/internal/cache"
	"github.com/telegraph-host/media-gateway/internal/models"
	"github.com/telegraph-host/media-gateway/internal/retrieval"
	"github.com/telegraph-host/media-gateway/internal/store"
)

type fakeBlobStore struct {
	objects  map[string][]byte
	resolves int
	fetches  int
	fetchErr error
}

func (f *fakeBlobStore) Upload(context.Context, io.Reader, string, string) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeBlobStore) ResolveLocation(_ context.Context, objectID string) (string, error) {
	f.resolves++
	if _, ok := f.objects[objectID]; !ok {
		return "", blob.ErrLocationMissing
	}
	return "location/" + objectID, nil
}

func (f *fakeBlobStore) Fetch(_ context.Context, location string) ([]byte, error) {
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.objects[location[len("location/"):]], nil
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Media{}))
	return store.New(db)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newResolver(t *testing.T, st *store.Store, blobs blob.Store) (*retrieval.Resolver, cache.Cache) {
	t.Helper()
	c, err := cache.NewMemoryCache(16)
	require.NoError(t, err)
	return retrieval.NewResolver(quietLogger(), st, blobs, c), c
}

func TestRetrieveMissThenHit(t *testing.T) {
	st := newTestStore(t)
	blobs := &fakeBlobStore{objects: map[string][]byte{"file-1": []byte("imagebytes")}}
	resolver, _ := newResolver(t, st, blobs)
	ctx := context.Background()

	url := "https://img.example.com/1700000000000.webp"
	require.NoError(t, st.CreateMedia(ctx, &models.Media{URL: url, FileID: "file-1", SizeBytes: 10}))

	entry, outcome, err := resolver.Retrieve(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, retrieval.OutcomeMiss, outcome)
	assert.Equal(t, []byte("imagebytes"), entry.Body)
	assert.Equal(t, "image/webp", entry.ContentType)
	assert.Equal(t, "public, max-age=31536000, immutable", entry.CacheControl)

	again, outcome, err := resolver.Retrieve(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, retrieval.OutcomeHit, outcome)
	assert.Equal(t, entry.Body, again.Body)
	assert.Equal(t, 1, blobs.fetches, "a hit must not reach the backend")
	assert.Equal(t, 1, blobs.resolves)
}

func TestRetrieveNotFound(t *testing.T) {
	st := newTestStore(t)
	blobs := &fakeBlobStore{objects: map[string][]byte{}}
	resolver, _ := newResolver(t, st, blobs)

	_, _, err := resolver.Retrieve(context.Background(), "https://img.example.com/nope.png")
	assert.ErrorIs(t, err, retrieval.ErrNotFound)
	assert.Equal(t, 0, blobs.resolves)

	// Negative results are not cached: a later upload of the same URL would
	// have to be servable, so the lookup happens again.
	_, _, err = resolver.Retrieve(context.Background(), "https://img.example.com/nope.png")
	assert.ErrorIs(t, err, retrieval.ErrNotFound)
}

func TestRetrieveLocationMissing(t *testing.T) {
	st := newTestStore(t)
	blobs := &fakeBlobStore{objects: map[string][]byte{}}
	resolver, _ := newResolver(t, st, blobs)
	ctx := context.Background()

	url := "https://img.example.com/1.png"
	require.NoError(t, st.CreateMedia(ctx, &models.Media{URL: url, FileID: "gone"}))

	_, _, err := resolver.Retrieve(ctx, url)
	assert.ErrorIs(t, err, blob.ErrLocationMissing)
}

func TestRetrieveFetchFailed(t *testing.T) {
	st := newTestStore(t)
	blobs := &fakeBlobStore{
		objects:  map[string][]byte{"file-1": []byte("x")},
		fetchErr: errors.New("connection reset"),
	}
	resolver, c := newResolver(t, st, blobs)
	ctx := context.Background()

	url := "https://img.example.com/1.png"
	require.NoError(t, st.CreateMedia(ctx, &models.Media{URL: url, FileID: "file-1"}))

	_, _, err := resolver.Retrieve(ctx, url)
	assert.ErrorIs(t, err, retrieval.ErrFetchFailed)

	_, ok := c.Get(ctx, url)
	assert.False(t, ok, "failed fetches must not seed the cache")
}

func TestContentTypeDerivedFromExtensionOnly(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://img.example.com/1.jpg", "image/jpeg"},
		{"https://img.example.com/1.jpeg", "image/jpeg"},
		{"https://img.example.com/1.JPG", "image/jpeg"},
		{"https://img.example.com/1.png", "image/png"},
		{"https://img.example.com/1.gif", "image/gif"},
		{"https://img.example.com/1.webp", "image/webp"},
		{"https://img.example.com/1.mp4", "video/mp4"},
		{"https://img.example.com/1.pdf", "application/octet-stream"},
		{"https://img.example.com/noext", "application/octet-stream"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, retrieval.ContentTypeFor(tt.url), tt.url)
	}
}
