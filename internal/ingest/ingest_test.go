package ingest_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/telegraph-host/media-gateway/internal/blob"
	"github.com/telegraph-host/media-gateway/internal/ingest"
	"github.com/telegraph-host/media-gateway/internal/models"
	"github.com/telegraph-host/media-gateway/internal/store"
)

type fakeBlobStore struct {
	uploads      int
	failUploads  int
	uploadErr    error
	lastFilename string
	lastMime     string
	lastBytes    []byte
}

func (f *fakeBlobStore) Upload(_ context.Context, content io.Reader, filename, contentType string) (string, error) {
	f.uploads++
	f.lastFilename = filename
	f.lastMime = contentType
	f.lastBytes, _ = io.ReadAll(content)
	if f.uploadErr != nil && (f.failUploads == 0 || f.uploads <= f.failUploads) {
		return "", f.uploadErr
	}
	return fmt.Sprintf("file-%d", f.uploads), nil
}

func (f *fakeBlobStore) ResolveLocation(context.Context, string) (string, error) {
	return "", blob.ErrLocationMissing
}

func (f *fakeBlobStore) Fetch(context.Context, string) ([]byte, error) {
	return nil, errors.New("not implemented")
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Media{}, &models.DailyStat{}))
	return store.New(db)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func fixedClock(millis int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(millis) }
}

func newService(t *testing.T, st *store.Store, blobs blob.Store) *ingest.Service {
	t.Helper()
	return ingest.New(quietLogger(), st, blobs, "img.example.com", 20*1024*1024).
		WithClock(fixedClock(1700000000000)).
		WithRetryDelay(0)
}

func upload(name, mime, body string) ingest.Upload {
	return ingest.Upload{
		Content:   bytes.NewReader([]byte(body)),
		Filename:  name,
		MimeType:  mime,
		SizeBytes: int64(len(body)),
	}
}

func TestIngestMintsCanonicalURL(t *testing.T) {
	st := newTestStore(t)
	blobs := &fakeBlobStore{}
	svc := newService(t, st, blobs)

	url, err := svc.Ingest(context.Background(), upload("cat.png", "image/png", "pngbytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://img.example.com/1700000000000.png", url)

	media, err := st.GetMedia(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, "file-1", media.FileID)
	assert.Equal(t, int64(len("pngbytes")), media.SizeBytes)
	assert.Equal(t, []byte("pngbytes"), blobs.lastBytes)
}

func TestIngestIdempotentOnURLCollision(t *testing.T) {
	st := newTestStore(t)
	blobs := &fakeBlobStore{}
	svc := newService(t, st, blobs)

	first, err := svc.Ingest(context.Background(), upload("a.png", "image/png", "one"))
	require.NoError(t, err)
	second, err := svc.Ingest(context.Background(), upload("b.png", "image/png", "two"))
	require.NoError(t, err)

	// Injected clock derives the same URL twice: second call succeeds and
	// the first mapping stays untouched.
	assert.Equal(t, first, second)
	media, err := st.GetMedia(context.Background(), first)
	require.NoError(t, err)
	assert.Equal(t, "file-1", media.FileID)
	assert.Equal(t, int64(3), media.SizeBytes)
}

func TestIngestPayloadTooLarge(t *testing.T) {
	st := newTestStore(t)
	blobs := &fakeBlobStore{}
	svc := ingest.New(quietLogger(), st, blobs, "img.example.com", 4).WithRetryDelay(0)

	_, err := svc.Ingest(context.Background(), upload("big.png", "image/png", "five!"))

	var tooLarge *ingest.PayloadTooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.Equal(t, int64(4), tooLarge.Limit)
	assert.Equal(t, 0, blobs.uploads, "backend must not be called for oversized payloads")
}

func TestIngestRetryExhaustion(t *testing.T) {
	st := newTestStore(t)
	blobs := &fakeBlobStore{uploadErr: errors.New("chat not found")}
	svc := newService(t, st, blobs)

	_, err := svc.Ingest(context.Background(), upload("a.png", "image/png", "x"))
	require.ErrorIs(t, err, ingest.ErrUpstreamUpload)
	assert.Contains(t, err.Error(), "chat not found")
	assert.Equal(t, 3, blobs.uploads)

	_, dbErr := st.GetMedia(context.Background(), "https://img.example.com/1700000000000.png")
	assert.ErrorIs(t, dbErr, gorm.ErrRecordNotFound, "no row may exist after a failed upload")
}

func TestIngestRetriesThenSucceeds(t *testing.T) {
	st := newTestStore(t)
	blobs := &fakeBlobStore{uploadErr: errors.New("flaky"), failUploads: 2}
	svc := newService(t, st, blobs)

	url, err := svc.Ingest(context.Background(), upload("a.png", "image/png", "x"))
	require.NoError(t, err)
	assert.Equal(t, 3, blobs.uploads)

	media, err := st.GetMedia(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, "file-3", media.FileID)
}

func TestIngestNoObjectIDIsNotRetried(t *testing.T) {
	st := newTestStore(t)
	blobs := &fakeBlobStore{uploadErr: blob.ErrNoObjectID}
	svc := newService(t, st, blobs)

	_, err := svc.Ingest(context.Background(), upload("a.png", "image/png", "x"))
	require.ErrorIs(t, err, blob.ErrNoObjectID)
	assert.Equal(t, 1, blobs.uploads)
}

func TestIngestGifRelabeledAsJpeg(t *testing.T) {
	st := newTestStore(t)
	blobs := &fakeBlobStore{}
	svc := newService(t, st, blobs)

	url, err := svc.Ingest(context.Background(), upload("anim.gif", "image/gif", "gifbytes"))
	require.NoError(t, err)

	// Metadata-only relabel: jpeg extension and content type, bytes untouched.
	assert.Equal(t, "https://img.example.com/1700000000000.jpeg", url)
	assert.Equal(t, "anim.jpeg", blobs.lastFilename)
	assert.Equal(t, "image/jpeg", blobs.lastMime)
	assert.Equal(t, []byte("gifbytes"), blobs.lastBytes)
}

func TestIngestWebpExtensionFromMime(t *testing.T) {
	st := newTestStore(t)
	blobs := &fakeBlobStore{}
	svc := newService(t, st, blobs)

	url, err := svc.Ingest(context.Background(), upload("photo.png", "image/webp", "webpbytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://img.example.com/1700000000000.webp", url)
}

func TestIngestUnknownTypeKeepsFileExtension(t *testing.T) {
	st := newTestStore(t)
	blobs := &fakeBlobStore{}
	svc := newService(t, st, blobs)

	url, err := svc.Ingest(context.Background(), upload("clip.mp4", "video/mp4", "vid"))
	require.NoError(t, err)
	assert.Equal(t, "https://img.example.com/1700000000000.mp4", url)
}
