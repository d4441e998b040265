package services

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"photo-sync-service/internal/extraction"
	"photo-sync-service/internal/geocode"
	"photo-sync-service/internal/models"
	"photo-sync-service/internal/repository"
	"photo-sync-service/internal/storage"
)

// ErrPhotoNotFound is returned when neither a record nor its stored bytes
// can be resolved for an identifier.
var ErrPhotoNotFound = errors.New("photo not found")

// PhotoService provides the read-only query surface plus direct uploads
// that bypass the source-account listing step.
type PhotoService struct {
	Repo      repository.ImageRepository
	Store     storage.Store
	Geocoder  geocode.Geocoder
	FolderFor func(uploader string) string

	Extract func(data []byte, mimeType string) (extraction.Metadata, error)
	Now     func() time.Time
}

// NewPhotoService wires the query/upload dependencies.
func NewPhotoService(repo repository.ImageRepository, store storage.Store,
	geocoder geocode.Geocoder, folderFor func(string) string) *PhotoService {
	return &PhotoService{
		Repo:      repo,
		Store:     store,
		Geocoder:  geocoder,
		FolderFor: folderFor,
		Extract:   extraction.Extract,
		Now:       time.Now,
	}
}

// ListPhotos returns all records, most recently created first.
func (s *PhotoService) ListPhotos() ([]models.Image, error) {
	return s.Repo.List()
}

// ListByUploader returns all records for one uploader; an unknown uploader
// yields an empty result, not an error.
func (s *PhotoService) ListByUploader(uploadedBy string) ([]models.Image, error) {
	return s.Repo.ListByUploader(uploadedBy)
}

// ListWithLocation returns all records carrying GPS coordinates.
func (s *PhotoService) ListWithLocation() ([]models.Image, error) {
	return s.Repo.ListWithLocation()
}

// ListByUploaderWithLocation returns one uploader's records that carry GPS
// coordinates (the map view only renders located photos).
func (s *PhotoService) ListByUploaderWithLocation(uploadedBy string) ([]models.Image, error) {
	return s.Repo.ListByUploaderWithLocation(uploadedBy)
}

// StatsByDay counts records per calendar day and uploader.
func (s *PhotoService) StatsByDay() ([]models.PeriodStat, error) {
	return s.Repo.StatsByPeriod(repository.PeriodDay)
}

// StatsByMonth counts records per calendar month and uploader.
func (s *PhotoService) StatsByMonth() ([]models.PeriodStat, error) {
	return s.Repo.StatsByPeriod(repository.PeriodMonth)
}

// StatsByYear counts records per calendar year and uploader.
func (s *PhotoService) StatsByYear() ([]models.PeriodStat, error) {
	return s.Repo.StatsByPeriod(repository.PeriodYear)
}

// Upload ingests a single image directly. The record gets a generated file
// id since no source account is involved.
func (s *PhotoService) Upload(ctx context.Context, data []byte, filename, contentType, uploader string) (*models.Image, error) {
	fileID := "upload-" + uuid.NewString()

	meta, err := s.Extract(data, contentType)
	if err != nil {
		log.Warn().Err(err).Str("name", filename).Msg("exif extraction failed")
	}

	timestamp := s.Now()
	if meta.TakenAt != nil {
		timestamp = *meta.TakenAt
	}

	var region geocode.Region
	if meta.HasCoordinates() {
		region = s.Geocoder.Geocode(ctx, *meta.Latitude, *meta.Longitude)
	}

	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".jpg"
	}
	key := s.FolderFor(uploader) + "/" + fileID + ext

	ref, err := s.Store.Save(ctx, data, key, contentType)
	if err != nil {
		return nil, errors.Wrap(err, "failed to store uploaded image")
	}

	now := s.Now()
	record := &models.Image{
		ID:            uuid.New(),
		FileID:        fileID,
		Name:          filename,
		MimeType:      contentType,
		Latitude:      meta.Latitude,
		Longitude:     meta.Longitude,
		Timestamp:     timestamp,
		UploadedBy:    uploader,
		District:      region.District,
		Tehsil:        region.Tehsil,
		Village:       region.Village,
		Country:       region.Country,
		StorageRef:    ref,
		LastCheckedAt: &now,
	}
	if err := s.Repo.Create(record); err != nil {
		// No record may reference a blob that failed to persist, and no
		// blob should outlive a failed insert.
		if delErr := s.Store.Delete(ctx, ref); delErr != nil {
			log.Warn().Err(delErr).Str("ref", ref).Msg("orphan cleanup failed")
		}
		return nil, errors.Wrap(err, "failed to save metadata to database")
	}
	return record, nil
}

// OpenFile resolves an identifier (record id or source file id) to the
// record and a stream of its stored bytes.
func (s *PhotoService) OpenFile(ctx context.Context, id string) (*models.Image, io.ReadCloser, error) {
	record, err := s.findRecord(id)
	if err != nil {
		return nil, nil, err
	}

	reader, err := s.Store.Open(ctx, record.StorageRef)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, ErrPhotoNotFound
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to open stored file")
	}
	return record, reader, nil
}

// DeletePhoto removes a record and its stored bytes (admin operation).
func (s *PhotoService) DeletePhoto(ctx context.Context, id string) error {
	record, err := s.findRecord(id)
	if err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, record.StorageRef); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return errors.Wrap(err, "failed to delete stored file")
	}
	return s.Repo.Delete(record.ID)
}

func (s *PhotoService) findRecord(id string) (*models.Image, error) {
	if recordID, err := uuid.Parse(id); err == nil {
		record, err := s.Repo.GetByID(recordID)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	record, err := s.Repo.GetByFileID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPhotoNotFound
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}
