package services

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"photo-sync-service/internal/drive"
	"photo-sync-service/internal/extraction"
	"photo-sync-service/internal/geocode"
	"photo-sync-service/internal/metrics"
	"photo-sync-service/internal/models"
	"photo-sync-service/internal/repository"
	"photo-sync-service/internal/storage"
)

// Per-call ceilings for external requests; the upstream APIs impose none.
const (
	downloadTimeout = 30 * time.Second
	geocodeTimeout  = 10 * time.Second
)

// ErrRecordStoreUnavailable marks repository failures that abort a sync run.
// The HTTP layer maps it to 503; per-file failures never carry it.
var ErrRecordStoreUnavailable = errors.New("record store unavailable")

// SyncService runs the Drive → EXIF → geocode → storage ingestion pipeline.
// Files are processed sequentially; one file's failure never aborts the
// batch, and files already recorded are skipped without re-download.
type SyncService struct {
	Repo      repository.ImageRepository
	Store     storage.Store
	Geocoder  geocode.Geocoder
	Metrics   *metrics.SyncMetrics
	FolderFor func(uploader string) string

	// Extract and Now default to the real extractor and clock; tests
	// override them.
	Extract func(data []byte, mimeType string) (extraction.Metadata, error)
	Now     func() time.Time
}

// NewSyncService wires the sync pipeline dependencies.
func NewSyncService(repo repository.ImageRepository, store storage.Store,
	geocoder geocode.Geocoder, m *metrics.SyncMetrics, folderFor func(string) string) *SyncService {
	return &SyncService{
		Repo:      repo,
		Store:     store,
		Geocoder:  geocoder,
		Metrics:   m,
		FolderFor: folderFor,
		Extract:   extraction.Extract,
		Now:       time.Now,
	}
}

// Sync ingests every not-yet-seen image file of the source account owned by
// uploader. Listing and record-store failures are fatal for the run; other
// per-file failures are counted in the report and logged.
func (s *SyncService) Sync(ctx context.Context, source drive.Source, uploader string) (models.SyncReport, error) {
	start := s.Now()

	files, err := source.ListImages(ctx)
	if err != nil {
		return models.SyncReport{}, errors.Wrap(err, "failed to list source files")
	}

	report := models.SyncReport{Total: len(files)}
	for _, file := range files {
		result, err := s.processFile(ctx, source, file, uploader)
		if err != nil {
			// Record-store connectivity errors are not per-file noise; the
			// rest of the batch would hit the same store, so abort the run.
			log.Error().Err(err).Str("uploader", uploader).Msg("sync run aborted")
			report.Failed++
			return report, err
		}
		switch result {
		case outcomeCreated:
			report.Created++
		case outcomeSkipped:
			report.Skipped++
		case outcomeFailed:
			report.Failed++
		}
	}

	if s.Metrics != nil {
		s.Metrics.ObserveRun(uploader, report.Created, report.Skipped, report.Failed, time.Since(start))
	}
	log.Info().Str("uploader", uploader).
		Int("total", report.Total).Int("created", report.Created).
		Int("skipped", report.Skipped).Int("failed", report.Failed).
		Msg("sync run finished")
	return report, nil
}

type outcome int

const (
	outcomeCreated outcome = iota
	outcomeSkipped
	outcomeFailed
)

// processFile handles one source file. Download, extraction, geocoding and
// storage errors are absorbed here; record-store errors are returned so the
// caller can abort the run.
func (s *SyncService) processFile(ctx context.Context, source drive.Source, file drive.File, uploader string) (outcome, error) {
	logger := log.With().Str("fileId", file.ID).Str("name", file.Name).Logger()

	exists, err := s.Repo.ExistsByFileID(file.ID)
	if err != nil {
		return outcomeFailed, errors.Wrapf(ErrRecordStoreUnavailable, "dedup check for %s: %v", file.ID, err)
	}
	if exists {
		return outcomeSkipped, nil
	}

	dlCtx, cancel := context.WithTimeout(ctx, downloadTimeout)
	data, err := source.Download(dlCtx, file.ID)
	cancel()
	if err != nil {
		logger.Error().Err(err).Msg("download failed")
		return outcomeFailed, nil
	}

	meta, err := s.Extract(data, file.MimeType)
	if err != nil {
		// Soft failure: the image is ingested without EXIF-derived fields.
		logger.Warn().Err(err).Msg("exif extraction failed")
	}

	// Capture-time fallback chain: EXIF original time, then the source
	// account's creation time, then ingestion time.
	timestamp := s.Now()
	if !file.CreatedTime.IsZero() {
		timestamp = file.CreatedTime
	}
	if meta.TakenAt != nil {
		timestamp = *meta.TakenAt
	}

	var region geocode.Region
	if meta.HasCoordinates() {
		geoCtx, cancel := context.WithTimeout(ctx, geocodeTimeout)
		region = s.Geocoder.Geocode(geoCtx, *meta.Latitude, *meta.Longitude)
		cancel()
		if s.Metrics != nil {
			s.Metrics.IncrementGeocodeCalls()
		}
	}

	ext := filepath.Ext(file.Name)
	if ext == "" {
		ext = ".jpg"
	}
	key := s.FolderFor(uploader) + "/" + file.ID + ext

	ref, err := s.Store.Save(ctx, data, key, file.MimeType)
	if err != nil {
		logger.Error().Err(err).Msg("storage upload failed")
		return outcomeFailed, nil
	}

	now := s.Now()
	record := &models.Image{
		ID:            uuid.New(),
		FileID:        file.ID,
		Name:          file.Name,
		MimeType:      file.MimeType,
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
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// A concurrent run inserted the same file; the constraint is
			// the backstop and the duplicate is benign.
			logger.Info().Msg("record already created by another run")
			return outcomeSkipped, nil
		}
		// Remove the blob so no orphan file outlives the failed insert.
		if delErr := s.Store.Delete(ctx, ref); delErr != nil {
			logger.Warn().Err(delErr).Str("ref", ref).Msg("orphan cleanup failed")
		}
		return outcomeFailed, errors.Wrapf(ErrRecordStoreUnavailable, "saving metadata for %s: %v", file.ID, err)
	}
	return outcomeCreated, nil
}
