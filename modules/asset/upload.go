package asset

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// UploadField is the multipart field carrying the product photo.
const UploadField = "image"

// multipart framing and other form fields on top of the file itself
const formOverhead = 1 << 20

// ReadUpload pulls the product photo out of a multipart request and validates it.
func ReadUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (ProductImage, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+formOverhead)

	if err := r.ParseMultipartForm(maxBytes + formOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return ProductImage{}, ErrFileTooLarge
		}
		return ProductImage{}, ErrEmptyFile
	}

	file, header, err := r.FormFile(UploadField)
	if err != nil {
		return ProductImage{}, ErrEmptyFile
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return ProductImage{}, fmt.Errorf("failed to read upload: %w", err)
	}

	mimeType, err := ValidateUpload(data, header.Header.Get("Content-Type"), maxBytes)
	if err != nil {
		return ProductImage{}, err
	}
	return ProductImage{Data: data, MIMEType: mimeType}, nil
}
