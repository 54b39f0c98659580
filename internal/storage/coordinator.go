package storage

import (
	"context"
	"fmt"
	"math/rand"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"shelfhub/pkg/apperr"
)

const (
	singleURLExpiry = 15 * time.Minute
	partURLExpiry   = time.Hour

	// Above this size the caller is nudged towards multipart; the single
	// URL is still issued as a fallback.
	multipartRecommendSize = 100 * 1024 * 1024

	maxPartCount = 10000
)

var allowedTypes = map[string]struct{}{
	"image/jpeg":      {},
	"image/png":       {},
	"image/jpg":       {},
	"image/webp":      {},
	"application/pdf": {},
	"audio/mpeg":      {},
	"audio/mp3":       {},
	"audio/wav":       {},
	"audio/x-wav":     {},
	"audio/ogg":       {},
}

// Coordinator brokers short-lived upload capabilities against the object
// store. File bytes never pass through this process; clients PUT directly to
// the presigned URLs.
type Coordinator struct {
	store  ObjectStore
	bucket string
	region string
	logger *zap.Logger

	now     func() time.Time
	randInt func() int64
}

func NewCoordinator(store ObjectStore, bucket, region string, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		store:   store,
		bucket:  bucket,
		region:  region,
		logger:  logger,
		now:     time.Now,
		randInt: func() int64 { return rand.Int63n(1_000_000_000) },
	}
}

type UploadURL struct {
	UploadURL          string `json:"uploadUrl"`
	FileKey            string `json:"fileKey"`
	FileURL            string `json:"fileUrl"`
	RecommendMultipart bool   `json:"recommendMultipart,omitempty"`
}

type MultipartUpload struct {
	UploadID string   `json:"uploadId"`
	FileKey  string   `json:"fileKey"`
	PartURLs []string `json:"partUrls"`
}

// GeneratePresignedUploadURL issues a single presigned PUT URL for a direct
// upload. Files over the multipart threshold still get a URL, with a flag
// recommending the multipart endpoint instead.
func (c *Coordinator) GeneratePresignedUploadURL(ctx context.Context, fileName, fileType string, fileSize int64) (*UploadURL, error) {
	if _, ok := allowedTypes[fileType]; !ok {
		return nil, apperr.BadRequest("only image (jpg, png, webp), PDF, and audio files are allowed")
	}

	fileKey := c.objectKey(folderFor(fileType, "others"), fileName, fileType)

	uploadURL, err := c.store.PresignPutObject(ctx, fileKey, fileType, singleURLExpiry)
	if err != nil {
		c.logger.Error("presign put object failed", zap.String("file_key", fileKey), zap.Error(err))
		return nil, apperr.Internal("could not generate presigned URL")
	}

	return &UploadURL{
		UploadURL:          uploadURL,
		FileKey:            fileKey,
		FileURL:            c.publicURL(fileKey),
		RecommendMultipart: fileSize > multipartRecommendSize,
	}, nil
}

// GenerateMultipartUploadURLs initiates a multipart upload and issues one
// presigned URL per part, PartURLs[i] binding part number i+1. If any part
// URL cannot be issued the upload is aborted before the error is returned,
// so no orphaned multipart upload is left behind.
func (c *Coordinator) GenerateMultipartUploadURLs(ctx context.Context, fileName, fileType string, partCount int) (*MultipartUpload, error) {
	if _, ok := allowedTypes[fileType]; !ok {
		return nil, apperr.BadRequest("only image (jpg, png, webp), PDF, and audio files are allowed")
	}
	if partCount < 1 || partCount > maxPartCount {
		return nil, apperr.BadRequest("partCount must be between 1 and 10000")
	}

	// Large files are typically audio.
	fileKey := c.objectKey(folderFor(fileType, "audios"), fileName, fileType)

	uploadID, err := c.store.CreateMultipartUpload(ctx, fileKey, fileType)
	if err != nil {
		c.logger.Error("create multipart upload failed", zap.String("file_key", fileKey), zap.Error(err))
		return nil, apperr.Internal("could not initiate multipart upload")
	}

	partURLs := make([]string, partCount)
	g, gctx := errgroup.WithContext(ctx)
	for i := 1; i <= partCount; i++ {
		part := int32(i)
		g.Go(func() error {
			url, err := c.store.PresignUploadPart(gctx, fileKey, uploadID, part, partURLExpiry)
			if err != nil {
				return fmt.Errorf("presign part %d: %w", part, err)
			}
			partURLs[part-1] = url
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		c.logger.Error("presign upload parts failed",
			zap.String("file_key", fileKey), zap.String("upload_id", uploadID), zap.Error(err))
		if abortErr := c.store.AbortMultipartUpload(ctx, fileKey, uploadID); abortErr != nil {
			c.logger.Error("abort multipart upload failed",
				zap.String("file_key", fileKey), zap.String("upload_id", uploadID), zap.Error(abortErr))
		}
		return nil, apperr.Internal("could not initiate multipart upload")
	}

	return &MultipartUpload{
		UploadID: uploadID,
		FileKey:  fileKey,
		PartURLs: partURLs,
	}, nil
}

// CompleteMultipartUpload finalizes the upload with the caller-reported
// parts and returns the public URL of the assembled object.
func (c *Coordinator) CompleteMultipartUpload(ctx context.Context, fileKey, uploadID string, parts []CompletedPart) (string, error) {
	if fileKey == "" || uploadID == "" || len(parts) == 0 {
		return "", apperr.BadRequest("fileKey, uploadId, and parts array are required")
	}

	if err := c.store.CompleteMultipartUpload(ctx, fileKey, uploadID, parts); err != nil {
		c.logger.Error("complete multipart upload failed",
			zap.String("file_key", fileKey), zap.String("upload_id", uploadID), zap.Error(err))
		return "", apperr.Internal("could not complete multipart upload")
	}

	return c.publicURL(fileKey), nil
}

// DeleteFile removes a previously uploaded object. Callers treat this as
// best-effort; the key is logged on failure so operators can reconcile.
func (c *Coordinator) DeleteFile(ctx context.Context, fileKey string) error {
	if fileKey == "" {
		return nil
	}
	if err := c.store.DeleteObject(ctx, fileKey); err != nil {
		c.logger.Warn("delete object failed, orphaned file left in bucket",
			zap.String("file_key", fileKey), zap.Error(err))
		return err
	}
	return nil
}

func folderFor(fileType, fallback string) string {
	switch {
	case strings.HasPrefix(fileType, "image/"):
		return "images"
	case fileType == "application/pdf":
		return "pdfs"
	case strings.HasPrefix(fileType, "audio/"):
		return "audios"
	}
	return fallback
}

func (c *Coordinator) objectKey(folder, fileName, fileType string) string {
	ext := path.Ext(fileName)
	if ext == "" {
		if i := strings.Index(fileType, "/"); i >= 0 {
			ext = "." + fileType[i+1:]
		}
	}
	return fmt.Sprintf("%s/%d-%d%s", folder, c.now().UnixMilli(), c.randInt(), ext)
}

func (c *Coordinator) publicURL(fileKey string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.bucket, c.region, fileKey)
}
