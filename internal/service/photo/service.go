package photo

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aliskhannn/photo-pipeline/internal/model"
	"github.com/aliskhannn/photo-pipeline/internal/publisher"
)

// repository defines the photo persistence the service relies on.
type repository interface {
	GetByS3Key(ctx context.Context, key string) (model.Photo, error)
	UpdateMeta(ctx context.Context, key, src string, gps, date *string) error
}

// urlBuilder turns derivative keys into public URLs.
type urlBuilder interface {
	PublicURL(key string) string
}

// Service applies pipeline metadata updates to photo records.
type Service struct {
	repo repository
	urls urlBuilder
}

// NewService creates a new Service.
func NewService(r repository, u urlBuilder) *Service {
	return &Service{repo: r, urls: u}
}

// ApplyMetadata points the photo at its web derivative and records the
// capture date and location when present. Applying the same update twice
// leaves the record unchanged.
func (s *Service) ApplyMetadata(ctx context.Context, u model.MetadataUpdate) (model.Photo, error) {
	webKey := u.S3KeyWeb
	if webKey == "" {
		webKey, _ = publisher.DerivativeKeys(u.S3KeyOriginal)
	}

	src := s.urls.PublicURL(webKey)
	gps := FormatGPS(u.GPSLat, u.GPSLng)
	date := FormatDate(u.TakenAt)

	if err := s.repo.UpdateMeta(ctx, u.S3KeyOriginal, src, gps, date); err != nil {
		return model.Photo{}, fmt.Errorf("apply metadata: %w", err)
	}

	p, err := s.repo.GetByS3Key(ctx, u.S3KeyOriginal)
	if err != nil {
		return model.Photo{}, fmt.Errorf("apply metadata: %w", err)
	}

	return p, nil
}

// FormatGPS renders "{lat},{lng}" when both coordinates are present.
func FormatGPS(lat, lng *float64) *string {
	if lat == nil || lng == nil {
		return nil
	}

	s := strconv.FormatFloat(*lat, 'f', -1, 64) + "," + strconv.FormatFloat(*lng, 'f', -1, 64)
	return &s
}

// FormatDate returns the calendar date of an ISO-8601 timestamp.
func FormatDate(takenAt *string) *string {
	if takenAt == nil || len(*takenAt) < 10 {
		return nil
	}

	d := (*takenAt)[:10]
	return &d
}
