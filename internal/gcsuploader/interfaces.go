package gcsuploader

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dvloznov/finance-datagen/internal/gcs"
)

type StorageService = gcs.StorageService

// GCSStorageService is the Cloud Storage backed StorageService.
type GCSStorageService struct {
	opts Options
}

// NewGCSStorageService creates a service whose clients use opts.
func NewGCSStorageService(opts Options) *GCSStorageService {
	return &GCSStorageService{opts: opts}
}

func (s *GCSStorageService) UploadFile(ctx context.Context, bucketName, objectName, filePath string) error {
	return UploadFile(ctx, s.opts, bucketName, objectName, filePath)
}

func (s *GCSStorageService) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	return FetchFromGCS(ctx, s.opts, gcsURI)
}

func (s *GCSStorageService) ExtractFilenameFromGCSURI(uri string) string {
	return ExtractFilenameFromGCSURI(uri)
}

// UploadOutputs uploads every local file under bucket/prefix keeping its base
// name, and returns the resulting gs:// URIs in input order. It stops at the
// first failure.
func UploadOutputs(ctx context.Context, svc StorageService, bucket, prefix string, paths []string) ([]string, error) {
	uris := make([]string, 0, len(paths))
	for _, p := range paths {
		object := gcs.ObjectName(prefix, filepath.Base(p))
		if err := svc.UploadFile(ctx, bucket, object, p); err != nil {
			return uris, fmt.Errorf("upload %s: %w", p, err)
		}
		uris = append(uris, gcs.ObjectURI(bucket, object))
	}
	return uris, nil
}
