package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/telegraph-host/media-gateway/internal/blob"
	"github.com/telegraph-host/media-gateway/internal/models"
	"github.com/telegraph-host/media-gateway/internal/store"
)

// ErrUpstreamUpload is returned once every upload attempt against the blob
// backend has been exhausted.
var ErrUpstreamUpload = errors.New("upstream upload failed")

// PayloadTooLargeError carries the configured ceiling so callers can report
// it to the uploading client.
type PayloadTooLargeError struct {
	Limit int64
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("file exceeds the %dMB limit", e.Limit/(1024*1024))
}

// Upload is one incoming file as the HTTP layer hands it over.
type Upload struct {
	Content   io.Reader
	Filename  string
	MimeType  string
	SizeBytes int64
}

const maxUploadAttempts = 3

// Service accepts files, pushes them to the blob backend with bounded
// retries, mints canonical URLs and records the mapping.
type Service struct {
	store     *store.Store
	blobs     blob.Store
	domain    string
	maxBytes  int64
	baseDelay time.Duration
	now       func() time.Time
	log       *logrus.Entry
}

func New(logger *logrus.Logger, st *store.Store, blobs blob.Store, domain string, maxBytes int64) *Service {
	return &Service{
		store:     st,
		blobs:     blobs,
		domain:    domain,
		maxBytes:  maxBytes,
		baseDelay: time.Second,
		now:       time.Now,
		log:       logger.WithField("component", "ingest"),
	}
}

// WithClock substitutes the clock used for URL minting.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithRetryDelay substitutes the base backoff delay between upload attempts.
func (s *Service) WithRetryDelay(d time.Duration) *Service {
	s.baseDelay = d
	return s
}

// Ingest stores the upload in the blob backend and returns the canonical URL
// the content will be served under. The backend object id never leaves this
// package.
func (s *Service) Ingest(ctx context.Context, up Upload) (string, error) {
	if up.SizeBytes > s.maxBytes {
		return "", &PayloadTooLargeError{Limit: s.maxBytes}
	}

	filename, mimeType, ext := normalize(up.Filename, up.MimeType)

	// The backend may be retried, so the content has to be rewindable.
	content, err := io.ReadAll(up.Content)
	if err != nil {
		return "", fmt.Errorf("reading upload: %w", err)
	}

	fileID, err := s.uploadWithRetry(ctx, content, filename, mimeType)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("https://%s/%d.%s", s.domain, s.now().UnixMilli(), ext)

	media := models.Media{
		URL:       url,
		FileID:    fileID,
		SizeBytes: up.SizeBytes,
	}
	if err := s.store.CreateMedia(ctx, &media); err != nil {
		return "", fmt.Errorf("recording media mapping: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"url":  url,
		"size": up.SizeBytes,
	}).Info("Ingested upload")

	return url, nil
}

func (s *Service) uploadWithRetry(ctx context.Context, content []byte, filename, mimeType string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxUploadAttempts; attempt++ {
		fileID, err := s.blobs.Upload(ctx, bytes.NewReader(content), filename, mimeType)
		if err == nil {
			return fileID, nil
		}
		if errors.Is(err, blob.ErrNoObjectID) {
			// The backend accepted the upload but returned nothing usable;
			// retrying would just duplicate the object.
			return "", err
		}

		lastErr = err
		s.log.WithFields(logrus.Fields{
			"attempt": attempt,
			"error":   err,
		}).Warn("Upload attempt failed")

		if attempt < maxUploadAttempts {
			select {
			case <-time.After(s.baseDelay * time.Duration(attempt)):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}

	return "", fmt.Errorf("%w: %v", ErrUpstreamUpload, lastErr)
}

// normalize rewrites filename, upload content type and output extension from
// the declared MIME type. GIF uploads are relabeled as JPEG in metadata only;
// the bytes are whatever the client sent (re-encoding happens upstream).
func normalize(filename, mimeType string) (string, string, string) {
	switch {
	case mimeType == "image/webp":
		return filename, mimeType, "webp"
	case strings.HasPrefix(mimeType, "image/gif"):
		renamed := strings.TrimSuffix(filename, ".gif") + ".jpeg"
		return renamed, "image/jpeg", "jpeg"
	}

	ext := strings.TrimPrefix(path.Ext(filename), ".")
	if ext == "" {
		ext = "bin"
	}
	return filename, mimeType, ext
}
