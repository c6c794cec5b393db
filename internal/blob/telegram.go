package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

// TelegramStore uploads documents to a Telegram chat through the Bot API and
// serves them back via getFile. Telegram keeps the bytes; this client only
// ever sees file ids and short-lived file paths.
type TelegramStore struct {
	httpClient *http.Client
	apiBase    string
	botToken   string
	chatID     string
	log        *logrus.Entry
}

type loggingTransport struct {
	log *logrus.Entry
}

func NewTelegramStore(logger *logrus.Logger, apiBase, botToken, chatID string) *TelegramStore {
	return &TelegramStore{
		httpClient: &http.Client{
			Timeout:   60 * time.Second,
			Transport: &loggingTransport{log: logger.WithField("component", "telegram_transport")},
		},
		apiBase:  apiBase,
		botToken: botToken,
		chatID:   chatID,
		log:      logger.WithField("component", "telegram_client"),
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

type fileRef struct {
	FileID string `json:"file_id"`
}

// messageResult covers the object variants Telegram may describe in a
// sendDocument reply. Photo is an ascending-size sequence; the others are
// single refs.
type messageResult struct {
	Video    *fileRef  `json:"video"`
	Document *fileRef  `json:"document"`
	Sticker  *fileRef  `json:"sticker"`
	Photo    []fileRef `json:"photo"`
}

// objectID picks the object id out of whichever variant is present. For
// photos the last entry is the largest rendition.
func (m messageResult) objectID() (string, error) {
	switch {
	case m.Video != nil:
		return m.Video.FileID, nil
	case m.Document != nil:
		return m.Document.FileID, nil
	case m.Sticker != nil:
		return m.Sticker.FileID, nil
	case len(m.Photo) > 0:
		return m.Photo[len(m.Photo)-1].FileID, nil
	default:
		return "", ErrNoObjectID
	}
}

func (t *TelegramStore) Upload(ctx context.Context, content io.Reader, filename, contentType string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("chat_id", t.chatID); err != nil {
		return "", fmt.Errorf("building upload form: %w", err)
	}
	part, err := writer.CreateFormFile("document", filename)
	if err != nil {
		return "", fmt.Errorf("building upload form: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", fmt.Errorf("reading upload content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("building upload form: %w", err)
	}

	uploadURL := fmt.Sprintf("%s/bot%s/sendDocument", t.apiBase, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("decoding upload response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || !apiResp.OK {
		desc := apiResp.Description
		if desc == "" {
			desc = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return "", fmt.Errorf("telegram upload failed: %s", desc)
	}

	var result messageResult
	if err := json.Unmarshal(apiResp.Result, &result); err != nil {
		return "", fmt.Errorf("decoding upload result: %w", err)
	}

	return result.objectID()
}

func (t *TelegramStore) ResolveLocation(ctx context.Context, objectID string) (string, error) {
	resolveURL := fmt.Sprintf("%s/bot%s/getFile?file_id=%s", t.apiBase, t.botToken, url.QueryEscape(objectID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resolveURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("getFile request failed: %w", err)
	}
	defer resp.Body.Close()

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("decoding getFile response: %w", err)
	}

	var result struct {
		FilePath string `json:"file_path"`
	}
	if apiResp.OK {
		if err := json.Unmarshal(apiResp.Result, &result); err != nil {
			return "", fmt.Errorf("decoding getFile result: %w", err)
		}
	}
	if !apiResp.OK || result.FilePath == "" {
		return "", ErrLocationMissing
	}

	return fmt.Sprintf("%s/file/bot%s/%s", t.apiBase, t.botToken, result.FilePath), nil
}

func (t *TelegramStore) Fetch(ctx context.Context, location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch failed with status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func (l *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	log := l.log.WithFields(logrus.Fields{
		"method": req.Method,
		"host":   req.URL.Host,
	})

	resp, err := http.DefaultTransport.RoundTrip(req)
	if err != nil {
		log.WithError(err).Error("HTTP request failed")
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"status_code": resp.StatusCode,
		"duration":    time.Since(start),
	}).Debug("HTTP request completed")
	return resp, nil
}
