package httpapi

import (
	"github.com/gin-gonic/gin"

	"shelfhub/internal/storage"
)

func (s *Server) handleGenerateUploadURL(c *gin.Context) {
	var req struct {
		FileName string `json:"fileName"`
		FileType string `json:"fileType"`
		FileSize int64  `json:"fileSize"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.FileName == "" || req.FileType == "" || req.FileSize == 0 {
		badRequest(c, "fileName, fileType, and fileSize are required")
		return
	}

	data, err := s.uploads.GeneratePresignedUploadURL(c.Request.Context(), req.FileName, req.FileType, req.FileSize)
	if err != nil {
		respondError(c, err)
		return
	}

	if data.RecommendMultipart {
		respondMessage(c, "File is large. Consider using multipart upload endpoint.", data)
		return
	}
	respondOK(c, data)
}

func (s *Server) handleGenerateMultipartUpload(c *gin.Context) {
	var req struct {
		FileName  string `json:"fileName"`
		FileType  string `json:"fileType"`
		PartCount int    `json:"partCount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.FileName == "" || req.FileType == "" || req.PartCount == 0 {
		badRequest(c, "fileName, fileType, and partCount are required")
		return
	}

	data, err := s.uploads.GenerateMultipartUploadURLs(c.Request.Context(), req.FileName, req.FileType, req.PartCount)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, data)
}

func (s *Server) handleCompleteMultipartUpload(c *gin.Context) {
	var req struct {
		FileKey  string                  `json:"fileKey"`
		UploadID string                  `json:"uploadId"`
		Parts    []storage.CompletedPart `json:"parts"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.FileKey == "" || req.UploadID == "" || len(req.Parts) == 0 {
		badRequest(c, "fileKey, uploadId, and parts array are required")
		return
	}

	fileURL, err := s.uploads.CompleteMultipartUpload(c.Request.Context(), req.FileKey, req.UploadID, req.Parts)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"fileUrl": fileURL})
}
