package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shelfhub/pkg/apperr"
)

type fakeStore struct {
	mu sync.Mutex

	presignPutKeys []string
	createKeys     []string
	partNumbers    []int32
	completedKey   string
	completedParts []CompletedPart
	aborted        bool

	failPartAt int32
	failCreate bool
}

func (f *fakeStore) PresignPutObject(ctx context.Context, key, contentType string, expires time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presignPutKeys = append(f.presignPutKeys, key)
	return "https://signed.example.com/" + key, nil
}

func (f *fakeStore) CreateMultipartUpload(ctx context.Context, key, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return "", errors.New("create failed")
	}
	f.createKeys = append(f.createKeys, key)
	return "upload-123", nil
}

func (f *fakeStore) PresignUploadPart(ctx context.Context, key, uploadID string, partNumber int32, expires time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPartAt != 0 && partNumber == f.failPartAt {
		return "", errors.New("presign part failed")
	}
	f.partNumbers = append(f.partNumbers, partNumber)
	return fmt.Sprintf("https://signed.example.com/%s?uploadId=%s&partNumber=%d", key, uploadID, partNumber), nil
}

func (f *fakeStore) CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []CompletedPart) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completedKey = key
	f.completedParts = parts
	return nil
}

func (f *fakeStore) AbortMultipartUpload(ctx context.Context, key, uploadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aborted = true
	return nil
}

func (f *fakeStore) DeleteObject(ctx context.Context, key string) error {
	return nil
}

func newTestCoordinator(store ObjectStore) *Coordinator {
	c := NewCoordinator(store, "test-bucket", "us-east-1", zap.NewNop())
	c.now = func() time.Time { return time.UnixMilli(1700000000000) }
	c.randInt = func() int64 { return 424242 }
	return c
}

func TestGeneratePresignedUploadURL_FolderMapping(t *testing.T) {
	tests := []struct {
		fileType string
		folder   string
	}{
		{"image/jpeg", "images"},
		{"image/png", "images"},
		{"image/webp", "images"},
		{"image/jpg", "images"},
		{"application/pdf", "pdfs"},
		{"audio/mpeg", "audios"},
		{"audio/mp3", "audios"},
		{"audio/wav", "audios"},
		{"audio/x-wav", "audios"},
		{"audio/ogg", "audios"},
	}

	for _, tt := range tests {
		t.Run(tt.fileType, func(t *testing.T) {
			store := &fakeStore{}
			c := newTestCoordinator(store)

			out, err := c.GeneratePresignedUploadURL(context.Background(), "file.bin", tt.fileType, 1024)
			require.NoError(t, err)

			assert.True(t, strings.HasPrefix(out.FileKey, tt.folder+"/"),
				"key %q should live under %q", out.FileKey, tt.folder)
			assert.Equal(t, "https://signed.example.com/"+out.FileKey, out.UploadURL)
			assert.Equal(t, "https://test-bucket.s3.us-east-1.amazonaws.com/"+out.FileKey, out.FileURL)
			assert.False(t, out.RecommendMultipart)
		})
	}
}

func TestGeneratePresignedUploadURL_RejectsUnsupportedType(t *testing.T) {
	store := &fakeStore{}
	c := newTestCoordinator(store)

	_, err := c.GeneratePresignedUploadURL(context.Background(), "evil.exe", "application/x-msdownload", 1024)
	require.Error(t, err)
	assert.Equal(t, 400, apperr.StatusOf(err))
	assert.Empty(t, store.presignPutKeys, "no store call should be made for a rejected type")
}

func TestGeneratePresignedUploadURL_RecommendsMultipartForLargeFiles(t *testing.T) {
	c := newTestCoordinator(&fakeStore{})

	out, err := c.GeneratePresignedUploadURL(context.Background(), "audiobook.mp3", "audio/mpeg", 101*1024*1024)
	require.NoError(t, err)
	assert.True(t, out.RecommendMultipart)
	assert.NotEmpty(t, out.UploadURL, "single URL is still issued as a fallback")
}

func TestGeneratePresignedUploadURL_ExtensionFromFileName(t *testing.T) {
	c := newTestCoordinator(&fakeStore{})

	out, err := c.GeneratePresignedUploadURL(context.Background(), "cover.png", "image/png", 10)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out.FileKey, ".png"))

	out, err = c.GeneratePresignedUploadURL(context.Background(), "noext", "audio/mpeg", 10)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out.FileKey, ".mpeg"), "extension falls back to the MIME subtype")
}

func TestGenerateMultipartUploadURLs(t *testing.T) {
	store := &fakeStore{}
	c := newTestCoordinator(store)

	out, err := c.GenerateMultipartUploadURLs(context.Background(), "book.mp3", "audio/mpeg", 4)
	require.NoError(t, err)

	assert.Equal(t, "upload-123", out.UploadID)
	assert.True(t, strings.HasPrefix(out.FileKey, "audios/"))
	require.Len(t, out.PartURLs, 4)
	for i, url := range out.PartURLs {
		assert.Contains(t, url, fmt.Sprintf("partNumber=%d", i+1),
			"PartURLs[%d] must bind part number %d", i, i+1)
	}
	assert.Len(t, store.partNumbers, 4)
}

func TestGenerateMultipartUploadURLs_PartCountBounds(t *testing.T) {
	for _, partCount := range []int{0, -1, 10001} {
		store := &fakeStore{}
		c := newTestCoordinator(store)

		_, err := c.GenerateMultipartUploadURLs(context.Background(), "book.mp3", "audio/mpeg", partCount)
		require.Error(t, err)
		assert.Equal(t, 400, apperr.StatusOf(err))
		assert.Empty(t, store.createKeys, "no multipart upload should be initiated")
	}
}

func TestGenerateMultipartUploadURLs_AbortsOnPartFailure(t *testing.T) {
	store := &fakeStore{failPartAt: 2}
	c := newTestCoordinator(store)

	_, err := c.GenerateMultipartUploadURLs(context.Background(), "book.mp3", "audio/mpeg", 3)
	require.Error(t, err)
	assert.True(t, store.aborted, "the initiated upload must be aborted on partial failure")
}

func TestCompleteMultipartUpload(t *testing.T) {
	store := &fakeStore{}
	c := newTestCoordinator(store)

	parts := []CompletedPart{{ETag: "etag-1", PartNumber: 1}, {ETag: "etag-2", PartNumber: 2}}
	url, err := c.CompleteMultipartUpload(context.Background(), "audios/123-42.mp3", "upload-123", parts)
	require.NoError(t, err)

	assert.Equal(t, "https://test-bucket.s3.us-east-1.amazonaws.com/audios/123-42.mp3", url)
	assert.Equal(t, "audios/123-42.mp3", store.completedKey)
	assert.Equal(t, parts, store.completedParts)
}

func TestCompleteMultipartUpload_RequiresParts(t *testing.T) {
	c := newTestCoordinator(&fakeStore{})

	_, err := c.CompleteMultipartUpload(context.Background(), "audios/x.mp3", "upload-123", nil)
	require.Error(t, err)
	assert.Equal(t, 400, apperr.StatusOf(err))
}
