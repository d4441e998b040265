package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/pkg/errors"
)

// CloudinaryStore uploads image bytes to Cloudinary under a fixed root
// folder. The retrieval reference is the returned secure URL.
type CloudinaryStore struct {
	client *cloudinary.Cloudinary
	folder string
	http   *http.Client
}

// NewCloudinaryStore creates a Cloudinary-backed store.
func NewCloudinaryStore(cloudName, apiKey, apiSecret, folder string) (*CloudinaryStore, error) {
	client, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, errors.Wrap(err, "cloudinary client initialization failed")
	}
	return &CloudinaryStore{
		client: client,
		folder: folder,
		http:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Save uploads the bytes. The public id is the filename without its
// extension, nested under the configured folder, so re-uploads of the same
// source file land on the same asset.
func (s *CloudinaryStore) Save(ctx context.Context, data []byte, filename, _ string) (string, error) {
	publicID := strings.TrimSuffix(filename, path.Ext(filename))
	resp, err := s.client.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		PublicID:     publicID,
		Folder:       s.folder,
		Overwrite:    api.Bool(false),
		ResourceType: "auto",
	})
	if err != nil {
		return "", errors.Wrap(err, "cloudinary upload failed")
	}
	if resp.Error.Message != "" {
		return "", errors.Errorf("cloudinary upload failed: %s", resp.Error.Message)
	}
	return resp.SecureURL, nil
}

// Open fetches the asset bytes back through its secure URL.
func (s *CloudinaryStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, errors.Wrap(err, "invalid storage reference")
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "cloudinary fetch failed")
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.Errorf("cloudinary fetch failed: status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// Delete destroys the asset behind the secure URL.
func (s *CloudinaryStore) Delete(ctx context.Context, ref string) error {
	publicID, err := publicIDFromURL(ref)
	if err != nil {
		return err
	}
	resp, err := s.client.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return errors.Wrap(err, "cloudinary destroy failed")
	}
	if resp.Result == "not found" {
		return ErrNotFound
	}
	return nil
}

var versionSegment = regexp.MustCompile(`^v\d+$`)

// publicIDFromURL recovers the public id from a Cloudinary delivery URL:
// everything after the upload/version segments, minus the file extension.
func publicIDFromURL(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", errors.Wrap(err, "invalid storage reference")
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, seg := range segments {
		if seg != "upload" {
			continue
		}
		rest := segments[i+1:]
		if len(rest) > 0 && versionSegment.MatchString(rest[0]) {
			rest = rest[1:]
		}
		if len(rest) == 0 {
			break
		}
		id := strings.Join(rest, "/")
		return strings.TrimSuffix(id, path.Ext(id)), nil
	}
	return "", errors.Errorf("not a cloudinary delivery URL: %s", ref)
}
