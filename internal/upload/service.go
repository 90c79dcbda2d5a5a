package upload

import (
	"context"
	"fmt"
	"mime/multipart"
	"path"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"go.uber.org/zap"
)

const (
	maxImageSize = 10 << 20  // 10 MB
	maxVideoSize = 100 << 20 // 100 MB
)

var imageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
}

var videoTypes = map[string]struct{}{
	"video/mp4":  {},
	"video/webm": {},
}

// Asset describes an uploaded media file
type Asset struct {
	URL       string `json:"url"`
	PublicID  string `json:"public_id"`
	MediaType string `json:"media_type"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	Bytes     int    `json:"bytes"`
}

// UploadService defines media upload operations
type UploadService interface {
	UploadImage(ctx context.Context, file *multipart.FileHeader, folder string) (*Asset, error)
	UploadVideo(ctx context.Context, file *multipart.FileHeader, folder string) (*Asset, error)
	DeleteAsset(ctx context.Context, publicID, mediaType string) error
}

// Service implements UploadService backed by Cloudinary
type Service struct {
	logger     *zap.Logger
	cld        *cloudinary.Cloudinary
	baseFolder string
}

// NewService creates a new UploadService from Cloudinary credentials.
// All uploads land under baseFolder; callers append their own subfolders.
func NewService(logger *zap.Logger, cloudName, apiKey, apiSecret, baseFolder string) (UploadService, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to init cloudinary: %w", err)
	}

	return &Service{logger: logger, cld: cld, baseFolder: baseFolder}, nil
}

// UploadImage validates and uploads an image file
func (s *Service) UploadImage(ctx context.Context, file *multipart.FileHeader, folder string) (*Asset, error) {
	contentType := file.Header.Get("Content-Type")
	if _, ok := imageTypes[contentType]; !ok {
		return nil, fmt.Errorf("invalid file type: %s", contentType)
	}
	if file.Size > maxImageSize {
		return nil, fmt.Errorf("invalid file: image exceeds 10MB")
	}

	return s.upload(ctx, file, folder, "image")
}

// UploadVideo validates and uploads a video file
func (s *Service) UploadVideo(ctx context.Context, file *multipart.FileHeader, folder string) (*Asset, error) {
	contentType := file.Header.Get("Content-Type")
	if _, ok := videoTypes[contentType]; !ok {
		return nil, fmt.Errorf("invalid file type: %s", contentType)
	}
	if file.Size > maxVideoSize {
		return nil, fmt.Errorf("invalid file: video exceeds 100MB")
	}

	return s.upload(ctx, file, folder, "video")
}

func (s *Service) upload(ctx context.Context, file *multipart.FileHeader, folder, resourceType string) (*Asset, error) {
	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer src.Close()

	result, err := s.cld.Upload.Upload(ctx, src, uploader.UploadParams{
		Folder:       path.Join(s.baseFolder, folder),
		ResourceType: resourceType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}
	if result.Error.Message != "" {
		return nil, fmt.Errorf("upload rejected: %s", result.Error.Message)
	}

	s.logger.Info("Uploaded media asset",
		zap.String("public_id", result.PublicID),
		zap.String("type", resourceType),
		zap.Int("bytes", result.Bytes))

	return &Asset{
		URL:       result.SecureURL,
		PublicID:  result.PublicID,
		MediaType: resourceType,
		Width:     result.Width,
		Height:    result.Height,
		Bytes:     result.Bytes,
	}, nil
}

// DeleteAsset removes an uploaded asset by public ID
func (s *Service) DeleteAsset(ctx context.Context, publicID, mediaType string) error {
	if mediaType != "image" && mediaType != "video" {
		return fmt.Errorf("invalid media type: %s", mediaType)
	}

	result, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: mediaType,
	})
	if err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}
	if result.Result != "ok" && result.Result != "not found" {
		return fmt.Errorf("delete rejected: %s", result.Result)
	}

	return nil
}
