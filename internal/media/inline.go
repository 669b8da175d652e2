package media

import (
	"context"
	"encoding/base64"
)

// DefaultInlineLimit keeps a data URL small enough to live inside a post document.
const DefaultInlineLimit = 800 * 1024

// InlineStore embeds the image in the post as a data URL.
type InlineStore struct {
	limit int
}

// NewInlineStore creates an InlineStore rejecting images above limit bytes.
func NewInlineStore(limit int) *InlineStore {
	if limit <= 0 {
		limit = DefaultInlineLimit
	}
	return &InlineStore{limit: limit}
}

func (s *InlineStore) Strategy() string { return StrategyInline }

func (s *InlineStore) Store(_ context.Context, _ string, img *Upload) (string, error) {
	if len(img.Data) > s.limit {
		return "", ErrTooLarge
	}
	ct := img.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	return "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(img.Data), nil
}
