package uploads

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

// DefaultMaxBytes is the upload size limit.
const DefaultMaxBytes = 50 * 1024 * 1024

// Accepted document MIME types.
const (
	MIMEPDF  = "application/pdf"
	MIMEPPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var allowedTypes = map[string]struct{}{
	MIMEPDF:  {},
	MIMEPPTX: {},
	MIMEDOCX: {},
}

// Validate checks contentType and size against the accepted document rules.
func Validate(contentType string, size, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	if _, ok := allowedTypes[mediaType]; !ok {
		return fmt.Errorf("%w: invalid file type %q, only PDF, PPTX and DOCX files are allowed", ErrUploadRejected, contentType)
	}
	if size <= 0 {
		return fmt.Errorf("%w: empty file", ErrUploadRejected)
	}
	if size > maxBytes {
		return fmt.Errorf("%w: %w: %d bytes exceeds limit of %d", ErrUploadRejected, ErrTooLarge, size, maxBytes)
	}
	return nil
}

// sanitizeFilename removes path separators and dangerous characters from filename.
func sanitizeFilename(filename string) string {
	clean := filepath.Base(filepath.Clean(filename))
	clean = strings.ReplaceAll(clean, "/", "_")
	clean = strings.ReplaceAll(clean, "\\", "_")
	if clean == "." || clean == ".." || clean == "" {
		return "unnamed"
	}
	return clean
}
