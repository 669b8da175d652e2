package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"
)

// DefaultImgBBEndpoint is the imgbb upload API.
const DefaultImgBBEndpoint = "https://api.imgbb.com/1/upload"

type imgbbResponse struct {
	Success bool `json:"success"`
	Status  int  `json:"status"`
	Data    struct {
		URL string `json:"url"`
	} `json:"data"`
}

// ImgBBStore uploads images to imgbb.
type ImgBBStore struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// NewImgBBStore creates an ImgBBStore authenticating with apiKey.
func NewImgBBStore(apiKey string) *ImgBBStore {
	return &ImgBBStore{
		apiKey:     apiKey,
		endpoint:   DefaultImgBBEndpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *ImgBBStore) Strategy() string { return StrategyImgBB }

// Store posts the image as multipart form data and returns the hosted URL.
func (s *ImgBBStore) Store(ctx context.Context, _ string, img *Upload) (string, error) {
	if s.apiKey == "" {
		return "", errors.New("imgbb api key not configured")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", img.Filename)
	if err != nil {
		return "", fmt.Errorf("build upload body: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return "", fmt.Errorf("build upload body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("build upload body: %w", err)
	}

	endpoint := s.endpoint + "?key=" + url.QueryEscape(s.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read upload response: %w", err)
	}

	var out imgbbResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if !out.Success || out.Data.URL == "" {
		return "", fmt.Errorf("imgbb upload failed: status %d", resp.StatusCode)
	}
	return out.Data.URL, nil
}
