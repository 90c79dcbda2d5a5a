package upload_test

import (
	"context"
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/Pragadees15/sport-backend/internal/upload"
)

func newTestService(t *testing.T) upload.UploadService {
	svc, err := upload.NewService(zap.NewNop(), "demo", "key", "secret", "sportsfeed")
	assert.NoError(t, err)
	return svc
}

func fileHeader(contentType string, size int64) *multipart.FileHeader {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Type", contentType)
	return &multipart.FileHeader{
		Filename: "upload.bin",
		Header:   header,
		Size:     size,
	}
}

func TestUploadImageRejectsWrongType(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.UploadImage(context.Background(), fileHeader("text/plain", 100), "images/u1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid file type")
}

func TestUploadImageRejectsOversized(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.UploadImage(context.Background(), fileHeader("image/png", 11<<20), "images/u1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 10MB")
}

func TestUploadVideoRejectsWrongType(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.UploadVideo(context.Background(), fileHeader("image/png", 100), "videos/u1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid file type")
}

func TestUploadVideoRejectsOversized(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.UploadVideo(context.Background(), fileHeader("video/mp4", 101<<20), "videos/u1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 100MB")
}

func TestDeleteAssetRejectsUnknownMediaType(t *testing.T) {
	svc := newTestService(t)

	err := svc.DeleteAsset(context.Background(), "sportsfeed/images/u1/x", "raw")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid media type")
}
