package drive

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	driveapi "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// File describes one image file reported by the source account.
type File struct {
	ID          string
	Name        string
	MimeType    string
	CreatedTime time.Time
}

// Source lists and downloads the image files of one source account.
type Source interface {
	ListImages(ctx context.Context) ([]File, error)
	Download(ctx context.Context, fileID string) ([]byte, error)
}

// GoogleDrive reads image files from a Google Drive account using a
// user-granted OAuth access token.
type GoogleDrive struct {
	service *driveapi.Service
}

// NewGoogleDrive builds a Drive client from an OAuth access token. External
// calls carry a conservative timeout since the Drive API has none of its own.
func NewGoogleDrive(ctx context.Context, accessToken string) (*GoogleDrive, error) {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	httpClient := oauth2.NewClient(ctx, source)
	httpClient.Timeout = 30 * time.Second

	service, err := driveapi.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, errors.Wrap(err, "could not create drive service")
	}
	return &GoogleDrive{service: service}, nil
}

// ListImages enumerates all non-trashed image files, paginating until no
// further page token is returned. The full list is accumulated in memory;
// the accounts involved are small.
func (d *GoogleDrive) ListImages(ctx context.Context) ([]File, error) {
	var files []File
	pageToken := ""
	for {
		call := d.service.Files.List().
			Context(ctx).
			Q("mimeType contains 'image/' and trashed=false").
			Fields("nextPageToken, files(id, name, mimeType, createdTime)").
			PageSize(1000)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, errors.Wrap(err, "drive file listing failed")
		}
		for _, f := range resp.Files {
			created, _ := time.Parse(time.RFC3339, f.CreatedTime)
			files = append(files, File{
				ID:          f.Id,
				Name:        f.Name,
				MimeType:    f.MimeType,
				CreatedTime: created,
			})
		}
		if resp.NextPageToken == "" {
			return files, nil
		}
		pageToken = resp.NextPageToken
	}
}

// Download fetches the raw bytes of one file.
func (d *GoogleDrive) Download(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := d.service.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		if apiErr, ok := err.(*googleapi.Error); ok && apiErr.Code == http.StatusNotFound {
			return nil, errors.Errorf("drive file %s not found", fileID)
		}
		return nil, errors.Wrap(err, "drive file download failed")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading drive file body failed")
	}
	return data, nil
}
