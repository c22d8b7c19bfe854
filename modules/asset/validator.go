package asset

import (
	"errors"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxUploadBytes is the upload size limit (5MB).
const DefaultMaxUploadBytes int64 = 5 * 1024 * 1024

var (
	ErrInvalidFileType = errors.New("Invalid file type. Please upload a JPG, PNG, or WEBP file.")
	ErrFileTooLarge    = errors.New("File is too large. Please upload an image smaller than 5MB.")
	ErrEmptyFile       = errors.New("Please upload a product image.")
)

var allowedUploadTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// ValidateUpload checks the declared type, the sniffed content type and the
// size of an uploaded photo. It returns the normalized MIME type.
func ValidateUpload(data []byte, declaredMIME string, maxBytes int64) (string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if len(data) == 0 {
		return "", ErrEmptyFile
	}

	declared := normalizeMIME(declaredMIME)
	sniffed := sniffImageType(data)
	if sniffed == "" {
		return "", ErrInvalidFileType
	}
	if declared != "" && declared != "application/octet-stream" && declared != sniffed {
		return "", ErrInvalidFileType
	}
	if int64(len(data)) > maxBytes {
		return "", ErrFileTooLarge
	}
	return sniffed, nil
}

// sniffImageType returns the allowed type the content matches, walking up the
// detected hierarchy so that subtypes (APNG is a PNG) count as their parent.
func sniffImageType(data []byte) string {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if t := normalizeMIME(m.String()); allowedUploadTypes[t] {
			return t
		}
	}
	return ""
}

// IsValidationError reports whether err is one of the upload validation errors.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidFileType) || errors.Is(err, ErrFileTooLarge) || errors.Is(err, ErrEmptyFile)
}

func normalizeMIME(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	if mimeType == "image/jpg" {
		return "image/jpeg"
	}
	return mimeType
}
