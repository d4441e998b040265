package handlers

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"photo-sync-service/internal/config"
	"photo-sync-service/internal/drive"
	"photo-sync-service/internal/models"
	"photo-sync-service/internal/services"
)

const NotAuthenticatedError = "not authenticated"
const PhotoNotFoundError = "photo not found"

// SourceFactory builds a source-account client from a user-granted access
// token. Indirection keeps handlers testable without Google credentials.
type SourceFactory func(ctx context.Context, accessToken string) (drive.Source, error)

// PhotoHandler defines handlers for the photo sync and query surface.
type PhotoHandler struct {
	Photos  *services.PhotoService
	Sync    *services.SyncService
	Cfg     *config.Config
	Sources SourceFactory
}

// NewPhotoHandler creates a new PhotoHandler.
func NewPhotoHandler(photos *services.PhotoService, sync *services.SyncService,
	cfg *config.Config, sources SourceFactory) *PhotoHandler {
	return &PhotoHandler{Photos: photos, Sync: sync, Cfg: cfg, Sources: sources}
}

// bearerToken extracts the access token from the Authorization header.
func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// SyncImages handles GET /photos/sync-images to run a sync for one uploader.
// @Summary Sync images from the uploader's Drive account
// @Description Ingests every not-yet-seen image file and reports aggregate counts
// @Tags photos
// @Produce json
// @Param Authorization header string true "Bearer Google access token"
// @Param uploadedBy query string true "Allow-listed uploader email"
// @Success 200 {object} models.SyncReport "Aggregate sync counts"
// @Failure 401 {object} map[string]interface{} "Not authenticated or not allow-listed"
// @Failure 500 {object} map[string]interface{} "Listing failure"
// @Failure 503 {object} map[string]interface{} "Record store unavailable"
// @Router /photos/sync-images [get]
func (h *PhotoHandler) SyncImages(c *fiber.Ctx) error {
	token := bearerToken(c)
	uploader := c.Query("uploadedBy")
	if token == "" || uploader == "" || !h.Cfg.IsAllowedEmail(uploader) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": true, "message": NotAuthenticatedError,
		})
	}

	source, err := h.Sources(c.UserContext(), token)
	if err != nil {
		log.Printf("Error creating drive client for %s: %v", uploader, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": true, "message": "failed to reach source account",
		})
	}

	report, err := h.Sync.Sync(c.UserContext(), source, uploader)
	if err != nil {
		log.Printf("Sync failed for %s: %v", uploader, err)
		if errors.Is(err, services.ErrRecordStoreUnavailable) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": true, "message": "record store unavailable",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": true, "message": "failed to sync images",
		})
	}
	return c.JSON(report)
}

// GetPhotos handles GET /photos/get-photos.
// @Summary List all photos
// @Description Lists all image records, most recently created first
// @Tags photos
// @Produce json
// @Success 200 {object} map[string]interface{} "photos"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /photos/get-photos [get]
func (h *PhotoHandler) GetPhotos(c *fiber.Ctx) error {
	photos, err := h.Photos.ListPhotos()
	if err != nil {
		log.Printf("Error listing photos: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": true, "message": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"photos": photos})
}

// GetImagesWithLocation handles GET /api/images.
// @Summary List photos with GPS coordinates
// @Tags photos
// @Produce json
// @Success 200 {array} models.Image "Photos carrying coordinates"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /api/images [get]
func (h *PhotoHandler) GetImagesWithLocation(c *fiber.Ctx) error {
	photos, err := h.Photos.ListWithLocation()
	if err != nil {
		log.Printf("Error listing located photos: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": true, "message": err.Error(),
		})
	}
	return c.JSON(photos)
}

// statsPayload shapes aggregate rows for the wire: the period key is named
// after the granularity of the endpoint (day, month or year).
func statsPayload(stats []models.PeriodStat, periodKey string) []fiber.Map {
	out := make([]fiber.Map, 0, len(stats))
	for _, s := range stats {
		out = append(out, fiber.Map{
			periodKey:    s.Period,
			"uploadedBy": s.UploadedBy,
			"count":      s.Count,
		})
	}
	return out
}

// GetImageStatsByDay handles GET /photos/get-image-by-day.
// @Summary Image counts per day and uploader
// @Tags stats
// @Produce json
// @Success 200 {object} map[string]interface{} "stats"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /photos/get-image-by-day [get]
func (h *PhotoHandler) GetImageStatsByDay(c *fiber.Ctx) error {
	stats, err := h.Photos.StatsByDay()
	if err != nil {
		log.Printf("Error getting daily stats: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": true, "message": "failed to get image stats",
		})
	}
	return c.JSON(fiber.Map{"stats": statsPayload(stats, "day")})
}

// GetImageStatsByMonth handles GET /photos/get-image-by-month.
// @Summary Image counts per month and uploader
// @Tags stats
// @Produce json
// @Success 200 {object} map[string]interface{} "stats"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /photos/get-image-by-month [get]
func (h *PhotoHandler) GetImageStatsByMonth(c *fiber.Ctx) error {
	stats, err := h.Photos.StatsByMonth()
	if err != nil {
		log.Printf("Error getting monthly stats: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": true, "message": "failed to get image stats",
		})
	}
	return c.JSON(fiber.Map{"stats": statsPayload(stats, "month")})
}

// GetImageStatsByYear handles GET /photos/get-image-by-year.
// @Summary Image counts per year and uploader
// @Tags stats
// @Produce json
// @Success 200 {object} map[string]interface{} "stats"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /photos/get-image-by-year [get]
func (h *PhotoHandler) GetImageStatsByYear(c *fiber.Ctx) error {
	stats, err := h.Photos.StatsByYear()
	if err != nil {
		log.Printf("Error getting yearly stats: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": true, "message": "failed to get image stats",
		})
	}
	return c.JSON(fiber.Map{"stats": statsPayload(stats, "year")})
}

// GetImagesByUploader handles GET /photos/getImages/:uploadedBy.
// @Summary List photos of one uploader
// @Tags photos
// @Produce json
// @Param uploadedBy path string true "Uploader email"
// @Success 200 {object} map[string]interface{} "photos (empty for unknown uploader)"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /photos/getImages/{uploadedBy} [get]
func (h *PhotoHandler) GetImagesByUploader(c *fiber.Ctx) error {
	uploadedBy := c.Params("uploadedBy")
	photos, err := h.Photos.ListByUploader(uploadedBy)
	if err != nil {
		log.Printf("Error listing photos for %s: %v", uploadedBy, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": true, "message": err.Error(),
		})
	}
	if photos == nil {
		photos = []models.Image{}
	}
	return c.JSON(fiber.Map{"photos": photos})
}

// UploaderSlotPhotos returns a handler serving the located photos of the
// nth configured uploader. The previous deployment hardcoded three email
// addresses here; the list now comes from configuration.
func (h *PhotoHandler) UploaderSlotPhotos(slot int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		email, ok := h.Cfg.UploaderBySlot(slot)
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": true, "message": "no uploader configured for this slot",
			})
		}
		photos, err := h.Photos.ListByUploaderWithLocation(email)
		if err != nil {
			log.Printf("Error listing photos for slot %d (%s): %v", slot, email, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": true, "message": err.Error(),
			})
		}
		return c.JSON(photos)
	}
}

// GetFile handles GET /photos/file/:id to stream a photo's stored bytes.
// @Summary Stream a stored photo
// @Tags photos
// @Produce octet-stream
// @Param id path string true "Record id or source file id"
// @Success 200 {file} binary "Image bytes"
// @Failure 404 {object} map[string]interface{} "Photo not found"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /photos/file/{id} [get]
func (h *PhotoHandler) GetFile(c *fiber.Ctx) error {
	id := c.Params("id")
	record, reader, err := h.Photos.OpenFile(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, services.ErrPhotoNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": true, "message": PhotoNotFoundError,
			})
		}
		log.Printf("Error opening file %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": true, "message": err.Error(),
		})
	}

	contentType := record.MimeType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	c.Set(fiber.HeaderContentType, contentType)
	return c.SendStream(reader)
}

// UploadPhoto handles POST /photos/upload for direct multipart ingestion.
// @Summary Upload a single image directly
// @Tags photos
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Image file"
// @Param uploadedBy formData string true "Allow-listed uploader email"
// @Success 201 {object} models.Image "Created record"
// @Failure 400 {object} map[string]interface{} "Bad request"
// @Failure 401 {object} map[string]interface{} "Uploader not allow-listed"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /photos/upload [post]
func (h *PhotoHandler) UploadPhoto(c *fiber.Ctx) error {
	uploader := c.FormValue("uploadedBy")
	if uploader == "" || !h.Cfg.IsAllowedEmail(uploader) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": true, "message": NotAuthenticatedError,
		})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": true, "message": "failed to read file: " + err.Error(),
		})
	}

	src, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": true, "message": "could not open uploaded file",
		})
	}
	data, err := io.ReadAll(src)
	src.Close()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": true, "message": "failed to read uploaded file",
		})
	}

	contentType := fileHeader.Header.Get("Content-Type")
	record, err := h.Photos.Upload(c.UserContext(), data, fileHeader.Filename, contentType, uploader)
	if err != nil {
		log.Printf("Upload failed for %s: %v", uploader, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": true, "message": "failed to store uploaded image",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(record)
}

// DeletePhoto handles DELETE /photos/:id (admin operation).
// @Summary Delete a photo record and its stored bytes
// @Tags photos
// @Produce json
// @Param id path string true "Record id or source file id"
// @Success 204 "Deleted"
// @Failure 404 {object} map[string]interface{} "Photo not found"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /photos/{id} [delete]
func (h *PhotoHandler) DeletePhoto(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.Photos.DeletePhoto(c.UserContext(), id); err != nil {
		if errors.Is(err, services.ErrPhotoNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": true, "message": PhotoNotFoundError,
			})
		}
		log.Printf("Error deleting photo %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": true, "message": err.Error(),
		})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
