package storage

import (
	"context"
	"fmt"
	"io"
	"time"
)

// StorageClient is the interface for file storage operations.
// Both GCS and local storage implementations must implement this interface.
type StorageClient interface {
	UploadFile(ctx context.Context, reader io.Reader, objectName, contentType string) (*UploadResult, error)
	DeleteFile(ctx context.Context, objectName string) error
	ReadFile(ctx context.Context, objectName string) (io.ReadCloser, error)
	GetSignedURL(objectName string, expiry time.Duration) (string, error)
	Close() error
}

// UploadResult contains the result of an upload operation.
type UploadResult struct {
	ObjectName string `json:"object_name"`
	PublicURL  string `json:"public_url"`
	Size       int64  `json:"size"`
}

// GenerateBackgroundObjectName builds the object name for a template's
// background image.
func GenerateBackgroundObjectName(templateID, filename string) string {
	timestamp := time.Now().Unix()
	return fmt.Sprintf("templates/%s/backgrounds/%d_%s", templateID, timestamp, filename)
}

// GenerateCertificatePDFObjectName builds the object name for a generated
// certificate PDF, keyed by the certificate number.
func GenerateCertificatePDFObjectName(certificateID, number string) string {
	timestamp := time.Now().Unix()
	return fmt.Sprintf("certificates/%s/%d_%s.pdf", certificateID, timestamp, number)
}
