package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned when no object exists at the requested path.
var ErrObjectNotFound = errors.New("object not found in storage")

// CertificateStore resolves the relative paths carried by legacy certificate
// records. Records created in embedded-storage mode never touch it.
//
// The returned ReadCloser must be closed by the caller on every exit path.
type CertificateStore interface {
	// Open returns a reader over the object stored at the given relative path.
	Open(ctx context.Context, relPath string) (io.ReadCloser, error)
}
