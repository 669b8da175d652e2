// Package media stores post images and returns the URL recorded on the post.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// Image strategies. Exactly one is active per deployment.
const (
	StrategyBlob   = "blob"
	StrategyInline = "inline"
	StrategyImgBB  = "imgbb"
)

// ErrTooLarge is returned when an image exceeds the strategy's size cap.
var ErrTooLarge = errors.New("image too large")

// Upload is an image attached to a post submission.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ImageStore persists an image and returns the URL to store on the post.
type ImageStore interface {
	Store(ctx context.Context, ownerUID string, img *Upload) (string, error)
	Strategy() string
}

// FromFileHeader reads a multipart file into an Upload, sniffing the content type
// when the client did not send one.
func FromFileHeader(fh *multipart.FileHeader) (*Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	ct := fh.Header.Get("Content-Type")
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(data)
	}
	return &Upload{Filename: fh.Filename, ContentType: ct, Data: data}, nil
}
