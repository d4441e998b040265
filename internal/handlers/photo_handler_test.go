package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"photo-sync-service/internal/config"
	"photo-sync-service/internal/drive"
	"photo-sync-service/internal/geocode"
	"photo-sync-service/internal/models"
	"photo-sync-service/internal/services"
	"photo-sync-service/internal/storage"
)

// stubRepo is an in-memory ImageRepository for route-level tests.
type stubRepo struct {
	records   map[string]*models.Image
	stats     []models.PeriodStat
	existsErr error
}

func newStubRepo() *stubRepo {
	return &stubRepo{records: make(map[string]*models.Image)}
}

func (r *stubRepo) Create(image *models.Image) error {
	if _, exists := r.records[image.FileID]; exists {
		return gorm.ErrDuplicatedKey
	}
	r.records[image.FileID] = image
	return nil
}

func (r *stubRepo) ExistsByFileID(fileID string) (bool, error) {
	if r.existsErr != nil {
		return false, r.existsErr
	}
	_, ok := r.records[fileID]
	return ok, nil
}

func (r *stubRepo) GetByID(id uuid.UUID) (*models.Image, error) {
	for _, img := range r.records {
		if img.ID == id {
			return img, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubRepo) GetByFileID(fileID string) (*models.Image, error) {
	if img, ok := r.records[fileID]; ok {
		return img, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubRepo) List() ([]models.Image, error) {
	var out []models.Image
	for _, img := range r.records {
		out = append(out, *img)
	}
	return out, nil
}

func (r *stubRepo) ListByUploader(uploadedBy string) ([]models.Image, error) {
	var out []models.Image
	for _, img := range r.records {
		if img.UploadedBy == uploadedBy {
			out = append(out, *img)
		}
	}
	return out, nil
}

func (r *stubRepo) ListWithLocation() ([]models.Image, error) {
	var out []models.Image
	for _, img := range r.records {
		if img.Latitude != nil && img.Longitude != nil {
			out = append(out, *img)
		}
	}
	return out, nil
}

func (r *stubRepo) ListByUploaderWithLocation(uploadedBy string) ([]models.Image, error) {
	var out []models.Image
	for _, img := range r.records {
		if img.UploadedBy == uploadedBy && img.Latitude != nil && img.Longitude != nil {
			out = append(out, *img)
		}
	}
	return out, nil
}

func (r *stubRepo) StatsByPeriod(string) ([]models.PeriodStat, error) {
	return r.stats, nil
}

func (r *stubRepo) Delete(id uuid.UUID) error {
	for fileID, img := range r.records {
		if img.ID == id {
			delete(r.records, fileID)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// stubSource serves a fixed listing for sync tests.
type stubSource struct {
	files []drive.File
}

func (s *stubSource) ListImages(context.Context) ([]drive.File, error) {
	return s.files, nil
}

func (s *stubSource) Download(_ context.Context, fileID string) ([]byte, error) {
	return []byte(fileID), nil
}

func testConfig() *config.Config {
	return &config.Config{
		AllowedEmails: []string{"first@x.com", "second@x.com"},
	}
}

func newTestApp(t *testing.T, repo *stubRepo, source drive.Source) *fiber.App {
	t.Helper()

	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	cfg := testConfig()
	photos := services.NewPhotoService(repo, store, geocode.Disabled{}, cfg.FolderFor)
	sync := services.NewSyncService(repo, store, geocode.Disabled{}, nil, cfg.FolderFor)

	sources := func(context.Context, string) (drive.Source, error) { return source, nil }
	handler := NewPhotoHandler(photos, sync, cfg, sources)

	app := fiber.New()
	photosGroup := app.Group("/photos")
	photosGroup.Get("/sync-images", handler.SyncImages)
	photosGroup.Get("/get-photos", handler.GetPhotos)
	photosGroup.Get("/get-image-by-day", handler.GetImageStatsByDay)
	photosGroup.Get("/get-image-by-month", handler.GetImageStatsByMonth)
	photosGroup.Get("/get-image-by-year", handler.GetImageStatsByYear)
	photosGroup.Get("/get1stEmailPhotos", handler.UploaderSlotPhotos(0))
	photosGroup.Get("/get2ndEmailPhotos", handler.UploaderSlotPhotos(1))
	photosGroup.Get("/get3rdEmailPhotos", handler.UploaderSlotPhotos(2))
	photosGroup.Get("/getImages/:uploadedBy", handler.GetImagesByUploader)
	photosGroup.Get("/file/:id", handler.GetFile)
	photosGroup.Post("/upload", handler.UploadPhoto)
	photosGroup.Delete("/:id", handler.DeletePhoto)
	app.Get("/api/images", handler.GetImagesWithLocation)
	return app
}

func seedImage(t *testing.T, repo *stubRepo, fileID, uploadedBy string, located bool) *models.Image {
	t.Helper()
	img := &models.Image{
		ID:         uuid.New(),
		FileID:     fileID,
		Name:       fileID + ".jpg",
		MimeType:   "image/jpeg",
		Timestamp:  time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		UploadedBy: uploadedBy,
	}
	if located {
		lat, lng := 24.8607, 67.0011
		img.Latitude, img.Longitude = &lat, &lng
	}
	require.NoError(t, repo.Create(img))
	return img
}

func decodeJSON(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestGetPhotosEnvelope(t *testing.T) {
	repo := newStubRepo()
	seedImage(t, repo, "f1", "first@x.com", true)
	seedImage(t, repo, "f2", "second@x.com", false)
	app := newTestApp(t, repo, &stubSource{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/photos/get-photos", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Photos []models.Image `json:"photos"`
	}
	decodeJSON(t, resp, &body)
	assert.Len(t, body.Photos, 2)
}

func TestGetImagesByUploaderUnknownIsEmptyArray(t *testing.T) {
	app := newTestApp(t, newStubRepo(), &stubSource{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/photos/getImages/nobody@x.com", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.JSONEq(t, `{"photos": []}`, string(raw))
}

func TestStatsEnvelope(t *testing.T) {
	repo := newStubRepo()
	repo.stats = []models.PeriodStat{
		{Period: "2024-01", UploadedBy: "first@x.com", Count: 3},
	}
	app := newTestApp(t, repo, &stubSource{})

	// Each granularity names its period key after itself on the wire.
	routes := map[string]string{
		"/photos/get-image-by-day":   "day",
		"/photos/get-image-by-month": "month",
		"/photos/get-image-by-year":  "year",
	}
	for route, periodKey := range routes {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, route, nil))
		require.NoError(t, err, route)
		assert.Equal(t, http.StatusOK, resp.StatusCode, route)

		var body struct {
			Stats []map[string]interface{} `json:"stats"`
		}
		decodeJSON(t, resp, &body)
		require.Len(t, body.Stats, 1, route)
		assert.Equal(t, "2024-01", body.Stats[0][periodKey], route)
		assert.Equal(t, "first@x.com", body.Stats[0]["uploadedBy"], route)
		assert.Equal(t, float64(3), body.Stats[0]["count"], route)
	}
}

func TestGetImagesWithLocationBareArray(t *testing.T) {
	repo := newStubRepo()
	seedImage(t, repo, "located", "first@x.com", true)
	seedImage(t, repo, "bare", "first@x.com", false)
	app := newTestApp(t, repo, &stubSource{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/images", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var photos []models.Image
	decodeJSON(t, resp, &photos)
	require.Len(t, photos, 1)
	assert.Equal(t, "located", photos[0].FileID)
}

func TestUploaderSlotRoutes(t *testing.T) {
	repo := newStubRepo()
	seedImage(t, repo, "f1", "first@x.com", true)
	app := newTestApp(t, repo, &stubSource{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/photos/get1stEmailPhotos", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var photos []models.Image
	decodeJSON(t, resp, &photos)
	require.Len(t, photos, 1)
	assert.Equal(t, "f1", photos[0].FileID)

	// Only two uploaders configured; the third slot has no owner.
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/photos/get3rdEmailPhotos", nil))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSyncImagesRequiresAuth(t *testing.T) {
	app := newTestApp(t, newStubRepo(), &stubSource{})

	// No bearer token.
	req := httptest.NewRequest(http.MethodGet, "/photos/sync-images?uploadedBy=first@x.com", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Token present but uploader not allow-listed.
	req = httptest.NewRequest(http.MethodGet, "/photos/sync-images?uploadedBy=stranger@x.com", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer token-123")
	resp, err = app.Test(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSyncImagesReportsCounts(t *testing.T) {
	repo := newStubRepo()
	source := &stubSource{files: []drive.File{
		{ID: "d1", Name: "d1.jpg", MimeType: "image/jpeg", CreatedTime: time.Now()},
		{ID: "d2", Name: "d2.jpg", MimeType: "image/jpeg", CreatedTime: time.Now()},
	}}
	app := newTestApp(t, repo, source)

	req := httptest.NewRequest(http.MethodGet, "/photos/sync-images?uploadedBy=first@x.com", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer token-123")
	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var report models.SyncReport
	decodeJSON(t, resp, &report)
	assert.Equal(t, models.SyncReport{Total: 2, Created: 2}, report)
	assert.Len(t, repo.records, 2)
}

func TestSyncImagesRecordStoreDown(t *testing.T) {
	repo := newStubRepo()
	repo.existsErr = errors.New("connection refused")
	source := &stubSource{files: []drive.File{
		{ID: "d1", Name: "d1.jpg", MimeType: "image/jpeg", CreatedTime: time.Now()},
	}}
	app := newTestApp(t, repo, source)

	req := httptest.NewRequest(http.MethodGet, "/photos/sync-images?uploadedBy=first@x.com", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer token-123")
	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var body map[string]interface{}
	decodeJSON(t, resp, &body)
	assert.Equal(t, true, body["error"])
}

func TestGetFileStreamsStoredBytes(t *testing.T) {
	repo := newStubRepo()
	source := &stubSource{files: []drive.File{
		{ID: "d1", Name: "d1.jpg", MimeType: "image/jpeg", CreatedTime: time.Now()},
	}}
	app := newTestApp(t, repo, source)

	req := httptest.NewRequest(http.MethodGet, "/photos/sync-images?uploadedBy=first@x.com", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer token-123")
	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/photos/file/d1", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get(fiber.HeaderContentType))

	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, []byte("d1"), data)
}

func TestGetFileUnknownID(t *testing.T) {
	app := newTestApp(t, newStubRepo(), &stubSource{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/photos/file/missing", nil))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func multipartUpload(t *testing.T, uploader string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("uploadedBy", uploader))
	part, err := writer.CreateFormFile("file", "direct.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("direct-bytes"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func TestUploadPhoto(t *testing.T) {
	repo := newStubRepo()
	app := newTestApp(t, repo, &stubSource{})

	body, contentType := multipartUpload(t, "first@x.com")
	req := httptest.NewRequest(http.MethodPost, "/photos/upload", body)
	req.Header.Set(fiber.HeaderContentType, contentType)

	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var record models.Image
	decodeJSON(t, resp, &record)
	assert.Equal(t, "direct.jpg", record.Name)
	assert.Equal(t, "first@x.com", record.UploadedBy)
	assert.Len(t, repo.records, 1)
}

func TestUploadPhotoRejectsUnknownUploader(t *testing.T) {
	app := newTestApp(t, newStubRepo(), &stubSource{})

	body, contentType := multipartUpload(t, "stranger@x.com")
	req := httptest.NewRequest(http.MethodPost, "/photos/upload", body)
	req.Header.Set(fiber.HeaderContentType, contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDeletePhotoRoute(t *testing.T) {
	repo := newStubRepo()
	img := seedImage(t, repo, "f1", "first@x.com", false)
	img.StorageRef = "first/f1.jpg"
	app := newTestApp(t, repo, &stubSource{})

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/photos/f1", nil))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, repo.records)

	resp, err = app.Test(httptest.NewRequest(http.MethodDelete, "/photos/f1", nil))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
