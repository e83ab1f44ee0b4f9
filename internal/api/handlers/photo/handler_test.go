package photo_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/photo-pipeline/internal/api/handlers/photo"
	"github.com/aliskhannn/photo-pipeline/internal/api/router"
	"github.com/aliskhannn/photo-pipeline/internal/database"
	"github.com/aliskhannn/photo-pipeline/internal/model"
	"github.com/aliskhannn/photo-pipeline/internal/notifier"
	photorepo "github.com/aliskhannn/photo-pipeline/internal/repository/photo"
	photosvc "github.com/aliskhannn/photo-pipeline/internal/service/photo"
	"github.com/aliskhannn/photo-pipeline/internal/storage"
)

const secret = "s3cret"

func TestMain(m *testing.M) {
	zlog.Init()
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type env struct {
	router http.Handler
	repo   *photorepo.Repository
	db     *sql.DB
}

func setup(t *testing.T) env {
	t.Helper()
	ctx := context.Background()

	db, err := database.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := photorepo.NewRepository(db)
	_, err = repo.CreatePhoto(ctx, model.Photo{ID: "p1", ProjectID: "proj1", S3Key: "proj1/abc.jpg"})
	require.NoError(t, err)

	svc := photosvc.NewService(repo, storage.URLBuilder{CDNDomain: "cdn.example.com"})
	h := photo.NewHandler(svc, secret)

	return env{router: router.Setup(h), repo: repo, db: db}
}

func post(t *testing.T, h http.Handler, secretHeader string, body []byte) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/photos/update_meta", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if secretHeader != "" {
		req.Header.Set(notifier.SecretHeader, secretHeader)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func payload(t *testing.T) []byte {
	t.Helper()

	ts := "2023-07-14T09:15:02Z"
	lat, lng := 40.446194, -79.982222
	b, err := json.Marshal(model.MetadataUpdate{
		S3KeyOriginal: "proj1/abc.jpg",
		S3KeyWeb:      "proj1/abc_web.webp",
		S3KeyThumb:    "proj1/abc_thumb.webp",
		TakenAt:       &ts,
		GPSLat:        &lat,
		GPSLng:        &lng,
		Width:         1600,
		Height:        1200,
	})
	require.NoError(t, err)
	return b
}

func TestUpdateMeta_Success(t *testing.T) {
	e := setup(t)

	w := post(t, e.router, secret, payload(t))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())

	p, err := e.repo.GetByS3Key(context.Background(), "proj1/abc.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/proj1/abc_web.webp", p.Src)
	require.NotNil(t, p.GPS)
	assert.Equal(t, "40.446194,-79.982222", *p.GPS)
	require.NotNil(t, p.Date)
	assert.Equal(t, "2023-07-14", *p.Date)
}

func TestUpdateMeta_Idempotent(t *testing.T) {
	e := setup(t)
	body := payload(t)

	require.Equal(t, http.StatusOK, post(t, e.router, secret, body).Code)
	first, err := e.repo.GetByS3Key(context.Background(), "proj1/abc.jpg")
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, post(t, e.router, secret, body).Code)
	second, err := e.repo.GetByS3Key(context.Background(), "proj1/abc.jpg")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestUpdateMeta_AuthGate(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"missing secret", ""},
		{"wrong secret", "nope"},
		{"prefix of secret", "s3cre"},
		{"secret with suffix", secret + "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := setup(t)

			w := post(t, e.router, tt.header, payload(t))
			assert.Equal(t, http.StatusUnauthorized, w.Code)

			p, err := e.repo.GetByS3Key(context.Background(), "proj1/abc.jpg")
			require.NoError(t, err)
			assert.Empty(t, p.Src)
			assert.Nil(t, p.GPS)
			assert.Nil(t, p.Date)
		})
	}
}

func TestUpdateMeta_EmptyConfiguredSecretRejectsAll(t *testing.T) {
	e := setup(t)
	h := photo.NewHandler(photosvc.NewService(e.repo, storage.URLBuilder{}), "")

	w := post(t, router.Setup(h), "", payload(t))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateMeta_BadRequest(t *testing.T) {
	e := setup(t)

	assert.Equal(t, http.StatusBadRequest, post(t, e.router, secret, []byte("{")).Code)
	assert.Equal(t, http.StatusBadRequest, post(t, e.router, secret, []byte(`{"s3_key_web":"a_web.webp"}`)).Code)
}

func TestUpdateMeta_NotFound(t *testing.T) {
	e := setup(t)

	w := post(t, e.router, secret, []byte(`{"s3_key_original":"proj1/unknown.jpg"}`))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateMeta_NullMetadataKeepsStoredValues(t *testing.T) {
	e := setup(t)
	require.Equal(t, http.StatusOK, post(t, e.router, secret, payload(t)).Code)

	body := []byte(`{"s3_key_original":"proj1/abc.jpg","s3_key_web":"proj1/abc_web.webp","taken_at":null,"gps_lat":null,"gps_lng":null}`)
	require.Equal(t, http.StatusOK, post(t, e.router, secret, body).Code)

	p, err := e.repo.GetByS3Key(context.Background(), "proj1/abc.jpg")
	require.NoError(t, err)
	require.NotNil(t, p.GPS)
	assert.Equal(t, "40.446194,-79.982222", *p.GPS)
}

func TestHealth(t *testing.T) {
	e := setup(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
