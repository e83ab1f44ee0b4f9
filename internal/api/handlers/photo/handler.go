package photo

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/photo-pipeline/internal/api/respond"
	"github.com/aliskhannn/photo-pipeline/internal/model"
	"github.com/aliskhannn/photo-pipeline/internal/notifier"
	photorepo "github.com/aliskhannn/photo-pipeline/internal/repository/photo"
)

var (
	errUnauthorized   = errors.New("invalid webhook secret")
	errInvalidPayload = errors.New("invalid payload")
	errMissingKey     = errors.New("s3_key_original is required")
	errNotFound       = errors.New("photo not found")
	errInternal       = errors.New("failed to update photo")
)

// service defines the metadata operations used by the handler.
type service interface {
	ApplyMetadata(ctx context.Context, u model.MetadataUpdate) (model.Photo, error)
}

// Handler serves the pipeline callback endpoint.
type Handler struct {
	service service
	secret  string
}

// NewHandler creates a new Handler accepting callbacks signed with secret.
func NewHandler(s service, secret string) *Handler {
	return &Handler{service: s, secret: secret}
}

// UpdateMeta applies a metadata update sent by the pipeline. Requests
// without the exact shared secret are rejected before anything is read.
func (h *Handler) UpdateMeta(c *gin.Context) {
	if !h.authorized(c.GetHeader(notifier.SecretHeader)) {
		respond.Fail(c, http.StatusUnauthorized, errUnauthorized)
		return
	}

	var req model.MetadataUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		zlog.Logger.Debug().Err(err).Msg("failed to decode metadata update")
		respond.Fail(c, http.StatusBadRequest, errInvalidPayload)
		return
	}

	if req.S3KeyOriginal == "" {
		respond.Fail(c, http.StatusBadRequest, errMissingKey)
		return
	}

	p, err := h.service.ApplyMetadata(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, photorepo.ErrPhotoNotFound) {
			zlog.Logger.Warn().Str("s3_key", req.S3KeyOriginal).Msg("metadata update for unknown photo")
			respond.Fail(c, http.StatusNotFound, errNotFound)
			return
		}

		zlog.Logger.Err(err).Str("s3_key", req.S3KeyOriginal).Msg("failed to apply metadata")
		respond.Fail(c, http.StatusInternalServerError, errInternal)
		return
	}

	zlog.Logger.Info().
		Str("photo_id", p.ID).
		Str("s3_key", p.S3Key).
		Msg("photo metadata updated")

	respond.OK(c, nil)
}

// Health reports that the receiver is up.
func (h *Handler) Health(c *gin.Context) {
	respond.JSON(c, http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) authorized(got string) bool {
	if h.secret == "" || got == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) == 1
}
