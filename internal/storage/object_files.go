// Package storage adapts an S3-compatible bucket into the file storage
// collaborator used by the attachment resolver.
package storage

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// Object metadata keys written by the upload service.
const (
	metaOwner    = "owner"
	metaStatus   = "status"
	metaFileName = "filename"
)

// ObjectFiles describes uploads stored as bucket objects keyed by file id.
// Object metadata carries ownership and scan status; bindings live in Redis.
type ObjectFiles struct {
	client *minio.Client
	bucket string
	claims *RedisClaims
}

// NewObjectClient connects to the configured bucket endpoint.
func NewObjectClient(cfg config.StorageConfig) (*minio.Client, error) {
	if cfg.S3Endpoint == "" {
		return nil, fmt.Errorf("S3_ENDPOINT required for object file backend")
	}
	return minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
	})
}

// NewObjectFiles builds the collaborator.
func NewObjectFiles(client *minio.Client, bucket string, claims *RedisClaims) *ObjectFiles {
	return &ObjectFiles{client: client, bucket: bucket, claims: claims}
}

func (f *ObjectFiles) Describe(ctx context.Context, id string) (*domain.StoredFile, error) {
	info, err := f.client.StatObject(ctx, f.bucket, id, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	binding, err := f.claims.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	file := fileFromObject(id, info)
	file.Binding = binding
	return &file, nil
}

func (f *ObjectFiles) Claim(ctx context.Context, id string, target domain.AttachmentTarget, boundBy string) error {
	return f.claims.Claim(ctx, id, target, boundBy)
}

func (f *ObjectFiles) Release(ctx context.Context, id string, target domain.AttachmentTarget) error {
	return f.claims.Release(ctx, id, target)
}

func fileFromObject(id string, info minio.ObjectInfo) domain.StoredFile {
	file := domain.StoredFile{
		ID:        id,
		OwnerID:   metaValue(info.UserMetadata, metaOwner),
		Name:      metaValue(info.UserMetadata, metaFileName),
		MimeType:  info.ContentType,
		SizeBytes: info.Size,
		Status:    domain.FileStatus(metaValue(info.UserMetadata, metaStatus)),
	}
	if file.Name == "" {
		file.Name = path.Base(info.Key)
	}
	if file.Status == "" {
		file.Status = domain.FileStatusUploaded
	}
	return file
}

// metaValue looks a key up regardless of the canonical casing and the
// X-Amz-Meta- prefix the server may hand back.
func metaValue(meta map[string]string, key string) string {
	for k, v := range meta {
		k = strings.TrimPrefix(strings.ToLower(k), "x-amz-meta-")
		if k == key {
			return v
		}
	}
	return ""
}
