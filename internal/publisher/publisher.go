// Package publisher uploads derivatives under keys derived from the original.
package publisher

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aliskhannn/photo-pipeline/internal/storage"
)

// Key suffixes of the published derivatives.
const (
	WebSuffix   = "_web.webp"
	ThumbSuffix = "_thumb.webp"
)

// saver writes a single object.
type saver interface {
	Save(ctx context.Context, key string, data []byte, opts storage.SaveOptions) error
}

// Publisher stores derivatives in the derivatives bucket.
type Publisher struct {
	store saver
}

// New creates a new Publisher writing through store.
func New(store saver) *Publisher {
	return &Publisher{store: store}
}

// Publish uploads the web and thumbnail derivatives of originalKey and
// returns their keys. The uploads are independent: if the thumbnail
// fails, the web derivative may already be stored.
func (p *Publisher) Publish(ctx context.Context, originalKey string, web, thumb []byte) (string, string, error) {
	webKey, thumbKey := DerivativeKeys(originalKey)

	opts := storage.SaveOptions{
		ContentType:  storage.ContentTypeWebP,
		CacheControl: storage.CacheImmutable,
		PublicRead:   true,
	}

	if err := p.store.Save(ctx, webKey, web, opts); err != nil {
		return "", "", fmt.Errorf("upload web derivative: %w", err)
	}

	if err := p.store.Save(ctx, thumbKey, thumb, opts); err != nil {
		return "", "", fmt.Errorf("upload thumb derivative: %w", err)
	}

	return webKey, thumbKey, nil
}

// DerivativeKeys maps an original key to its web and thumbnail keys by
// replacing the extension of the last path segment.
//
//	proj1/abc.jpg -> proj1/abc_web.webp, proj1/abc_thumb.webp
func DerivativeKeys(originalKey string) (string, string) {
	base := strings.TrimSuffix(originalKey, path.Ext(originalKey))
	return base + WebSuffix, base + ThumbSuffix
}

// IsDerivativeKey reports whether key names a published derivative.
func IsDerivativeKey(key string) bool {
	return strings.HasSuffix(key, WebSuffix) || strings.HasSuffix(key, ThumbSuffix)
}
