package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"photo-sync-service/internal/models"
)

// Period formats understood by StatsByPeriod.
const (
	PeriodDay   = "YYYY-MM-DD"
	PeriodMonth = "YYYY-MM"
	PeriodYear  = "YYYY"
)

// ImageRepository defines persistence operations for synced photo metadata.
type ImageRepository interface {
	Create(image *models.Image) error
	ExistsByFileID(fileID string) (bool, error)
	GetByID(id uuid.UUID) (*models.Image, error)
	GetByFileID(fileID string) (*models.Image, error)
	List() ([]models.Image, error)
	ListByUploader(uploadedBy string) ([]models.Image, error)
	ListWithLocation() ([]models.Image, error)
	ListByUploaderWithLocation(uploadedBy string) ([]models.Image, error)
	StatsByPeriod(format string) ([]models.PeriodStat, error)
	Delete(id uuid.UUID) error
}

// ImageRepositoryImpl provides methods to interact with the Image model in the database.
type ImageRepositoryImpl struct {
	db *gorm.DB
}

// NewImageRepository creates a new ImageRepositoryImpl instance with the provided GORM database connection.
func NewImageRepository(db *gorm.DB) *ImageRepositoryImpl {
	return &ImageRepositoryImpl{db: db}
}

// Create inserts a new Image. A second insert with the same FileID fails
// with gorm.ErrDuplicatedKey; callers treat that as a benign skip.
func (r *ImageRepositoryImpl) Create(image *models.Image) error {
	return r.db.Create(image).Error
}

// ExistsByFileID reports whether a record with the given source file id exists.
func (r *ImageRepositoryImpl) ExistsByFileID(fileID string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Image{}).Where("file_id = ?", fileID).Count(&count).Error
	return count > 0, err
}

// GetByID retrieves an Image by its record ID.
func (r *ImageRepositoryImpl) GetByID(id uuid.UUID) (*models.Image, error) {
	var image models.Image
	err := r.db.First(&image, "id = ?", id).Error
	return &image, err
}

// GetByFileID retrieves an Image by its source file id.
func (r *ImageRepositoryImpl) GetByFileID(fileID string) (*models.Image, error) {
	var image models.Image
	err := r.db.First(&image, "file_id = ?", fileID).Error
	return &image, err
}

// List retrieves all Images, most recently created first.
func (r *ImageRepositoryImpl) List() ([]models.Image, error) {
	var images []models.Image
	err := r.db.Order("created_at DESC").Find(&images).Error
	return images, err
}

// ListByUploader retrieves all Images uploaded by the given account.
// An unknown uploader yields an empty slice, not an error.
func (r *ImageRepositoryImpl) ListByUploader(uploadedBy string) ([]models.Image, error) {
	var images []models.Image
	err := r.db.Where("uploaded_by = ?", uploadedBy).Find(&images).Error
	return images, err
}

// ListWithLocation retrieves all Images that carry GPS coordinates.
func (r *ImageRepositoryImpl) ListWithLocation() ([]models.Image, error) {
	var images []models.Image
	err := r.db.Where("latitude IS NOT NULL AND longitude IS NOT NULL").Find(&images).Error
	return images, err
}

// ListByUploaderWithLocation retrieves one uploader's Images that carry
// GPS coordinates.
func (r *ImageRepositoryImpl) ListByUploaderWithLocation(uploadedBy string) ([]models.Image, error) {
	var images []models.Image
	err := r.db.Where("uploaded_by = ? AND latitude IS NOT NULL AND longitude IS NOT NULL", uploadedBy).
		Find(&images).Error
	return images, err
}

// StatsByPeriod counts records grouped by a calendar period derived from the
// capture timestamp and by uploader, sorted ascending by period key.
func (r *ImageRepositoryImpl) StatsByPeriod(format string) ([]models.PeriodStat, error) {
	var stats []models.PeriodStat

	query := `
		SELECT to_char("timestamp", ?) AS period, uploaded_by, COUNT(*) AS count
		FROM images
		GROUP BY 1, uploaded_by
		ORDER BY 1 ASC, uploaded_by ASC
	`

	err := r.db.Raw(query, format).Scan(&stats).Error
	return stats, err
}

// Delete removes an Image record by its record ID.
func (r *ImageRepositoryImpl) Delete(id uuid.UUID) error {
	return r.db.Delete(&models.Image{}, "id = ?", id).Error
}
