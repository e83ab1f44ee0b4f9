// Package storage holds what the object storage backends share.
package storage

import (
	"fmt"
	"strings"
)

// Cache settings for derivatives. Keys are content-addressed by their
// original, so derivatives never change once written.
const (
	ContentTypeWebP = "image/webp"
	CacheImmutable  = "public, max-age=31536000, immutable"
)

// SaveOptions describes how an object is written.
type SaveOptions struct {
	ContentType  string
	CacheControl string
	PublicRead   bool
}

// URLBuilder computes public URLs for stored derivatives.
type URLBuilder struct {
	CDNDomain string
	Bucket    string
	Region    string
}

// PublicURL returns the URL a browser can fetch key from. A configured CDN
// domain takes precedence over the bucket's regional endpoint.
func (u URLBuilder) PublicURL(key string) string {
	key = strings.TrimPrefix(key, "/")

	if u.CDNDomain != "" {
		domain := strings.TrimSuffix(strings.TrimPrefix(u.CDNDomain, "https://"), "/")
		return fmt.Sprintf("https://%s/%s", domain, key)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.Bucket, u.Region, key)
}
