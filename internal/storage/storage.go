// Package storage persists uploaded media and serves it by public URL.
package storage

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"greenloop/internal/config"
	"greenloop/internal/models"

	"github.com/google/uuid"
)

const (
	DefaultMaxUploadSizeMB = 10
)

// ObjectStore stores uploaded media blobs and resolves their public URLs.
// Put validates the payload, Delete is idempotent.
type ObjectStore interface {
	Put(filename, contentType string, content []byte) (key string, url string, err error)
	Delete(key string) error
	URL(key string) string
}

type diskStore struct {
	baseDir       string
	publicBaseURL string
	maxSizeBytes  int64
}

// NewDiskStore returns an ObjectStore writing below cfg.UploadDir and serving
// under cfg.PublicBaseURL.
func NewDiskStore(cfg *config.Config) ObjectStore {
	baseDir := "/tmp/greenloop/uploads"
	publicBaseURL := "/media"
	if cfg != nil {
		if cfg.UploadDir != "" {
			baseDir = cfg.UploadDir
		}
		if cfg.PublicBaseURL != "" {
			publicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
		}
	}
	return &diskStore{
		baseDir:       baseDir,
		publicBaseURL: publicBaseURL,
		maxSizeBytes:  DefaultMaxUploadSizeMB * 1024 * 1024,
	}
}

func (s *diskStore) Put(filename, contentType string, content []byte) (string, string, error) {
	if len(content) == 0 {
		return "", "", models.NewValidationError("No file uploaded")
	}
	if int64(len(content)) > s.maxSizeBytes {
		return "", "", models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxSizeBytes/(1024*1024)))
	}

	detectedType := http.DetectContentType(content)
	if !isAllowedImageMIME(detectedType) {
		return "", "", models.NewValidationError("Invalid image type")
	}
	if provided := normalizeContentType(contentType); strings.HasPrefix(provided, "image/") && !isMatchingContentType(provided, detectedType) {
		return "", "", models.NewValidationError("Image content type mismatch")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = extensionFor(detectedType)
	}
	key := uuid.NewString() + ext

	path := filepath.Join(s.baseDir, key)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", "", models.NewInternalError(err)
	}
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return "", "", models.NewInternalError(err)
	}

	return key, s.URL(key), nil
}

func (s *diskStore) Delete(key string) error {
	if !isValidKey(key) {
		return models.NewValidationError("Invalid media key")
	}
	err := os.Remove(filepath.Join(s.baseDir, key))
	if err != nil && !os.IsNotExist(err) {
		return models.NewInternalError(err)
	}
	return nil
}

func (s *diskStore) URL(key string) string {
	return s.publicBaseURL + "/" + key
}

// isValidKey rejects keys that could traverse outside the upload directory.
func isValidKey(key string) bool {
	if key == "" || strings.Contains(key, "..") || strings.ContainsAny(key, "/\\") {
		return false
	}
	return true
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isMatchingContentType(provided, detected string) bool {
	p := normalizeContentType(provided)
	d := normalizeContentType(detected)
	if p == d {
		return true
	}
	return (p == "image/jpg" && d == "image/jpeg") || (p == "image/jpeg" && d == "image/jpg")
}

func extensionFor(contentType string) string {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
