package photo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/aliskhannn/photo-pipeline/internal/model"
)

// ErrPhotoNotFound is returned when no photo is stored under the given key.
var ErrPhotoNotFound = errors.New("photo not found")

// db is satisfied by *sql.DB and by the dbpg master/replica wrapper.
type db interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository provides access to photo records.
type Repository struct {
	db db
}

// NewRepository creates a new Repository with the given DB connection.
func NewRepository(db db) *Repository {
	return &Repository{db: db}
}

// CreatePhoto inserts a photo record for an uploaded original and returns its ID.
// A missing ID is generated.
func (r *Repository) CreatePhoto(ctx context.Context, p model.Photo) (string, error) {
	query := `
		INSERT INTO photos (id, project_id, src, s3_key, gps, date)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx, query, p.ID, p.ProjectID, p.Src, p.S3Key, p.GPS, p.Date)
	if err != nil {
		return "", fmt.Errorf("create: failed to create photo: %w", err)
	}

	return p.ID, nil
}

// GetByS3Key retrieves the photo whose original is stored under key.
func (r *Repository) GetByS3Key(ctx context.Context, key string) (model.Photo, error) {
	query := `
		SELECT id, project_id, src, s3_key, gps, date
		FROM photos
		WHERE s3_key = $1
	`

	var p model.Photo
	var gps, date sql.NullString

	err := r.db.QueryRowContext(ctx, query, key).Scan(&p.ID, &p.ProjectID, &p.Src, &p.S3Key, &gps, &date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Photo{}, ErrPhotoNotFound
		}

		return model.Photo{}, fmt.Errorf("get: failed to get photo: %w", err)
	}

	if gps.Valid {
		p.GPS = &gps.String
	}
	if date.Valid {
		p.Date = &date.String
	}

	return p, nil
}

// UpdateMeta overwrites src and, when given, gps and date of the photo
// stored under key. Nil values leave the stored column untouched, so
// replaying the same update yields the same row.
func (r *Repository) UpdateMeta(ctx context.Context, key, src string, gps, date *string) error {
	query := `
		UPDATE photos
		SET src = $1, gps = COALESCE($2, gps), date = COALESCE($3, date)
		WHERE s3_key = $4
	`

	res, err := r.db.ExecContext(ctx, query, src, gps, date, key)
	if err != nil {
		return fmt.Errorf("update: failed to update photo: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update: failed to get number of rows affected: %w", err)
	}

	if rows == 0 {
		return ErrPhotoNotFound
	}

	return nil
}
