// Package attachment validates uploaded certificate files and normalizes
// them into the embedded storage form. Validation is pure: nothing here
// touches the database or filesystem.
package attachment

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"fitpoints/workout-app/internal/domain"
)

// DefaultMaxSize is the upload ceiling applied when no explicit limit is
// configured.
const DefaultMaxSize int64 = 10 << 20 // 10 MiB

var (
	ErrInvalidFormat = errors.New("invalid file format for certificate")
	ErrTooLarge      = errors.New("certificate file exceeds the maximum allowed size")
)

// allowedExtensions and allowedContentTypes mirror each other: the MIME check
// backs up the extension check rather than replacing it.
var allowedExtensions = map[string]struct{}{
	".pdf":  {},
	".jpg":  {},
	".jpeg": {},
	".png":  {},
}

var allowedContentTypes = map[string]struct{}{
	"application/pdf": {},
	"image/jpeg":      {},
	"image/png":       {},
}

// Validator checks uploaded certificates against the format allow-list and
// a size ceiling.
type Validator struct {
	maxSize int64
}

// NewValidator returns a Validator with the given size ceiling in bytes.
// Non-positive values fall back to DefaultMaxSize.
func NewValidator(maxSize int64) *Validator {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Validator{maxSize: maxSize}
}

// Validate checks filename extension, declared content type and size.
// It returns ErrInvalidFormat or ErrTooLarge wrapped with detail, or nil.
func (v *Validator) Validate(filename, contentType string, size int64) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedExtensions[ext]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, filename)
	}
	if _, ok := allowedContentTypes[strings.ToLower(contentType)]; !ok {
		return fmt.Errorf("%w: content type %q", ErrInvalidFormat, contentType)
	}
	if size > v.maxSize {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrTooLarge, size, v.maxSize)
	}
	return nil
}

// New validates the upload and, on success, returns a complete
// embedded-variant certificate ready for storage.
func (v *Validator) New(data []byte, filename, contentType string) (*domain.Certificate, error) {
	if err := v.Validate(filename, contentType, int64(len(data))); err != nil {
		return nil, err
	}
	return &domain.Certificate{
		Data:        data,
		Filename:    filename,
		Size:        int64(len(data)),
		ContentType: contentType,
	}, nil
}
