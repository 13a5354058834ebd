package readers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStoreConfig holds the connection settings of an S3 compatible
// object store.
type ObjectStoreConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	UseSSL          bool
}

// objectGetter is the part of the minio client used for reads.
type objectGetter interface {
	GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (*minio.Object, error)
}

// ObjectStore opens s3://bucket/key paths from an object store and hands
// every other path to a fallback opener.
type ObjectStore struct {
	client   objectGetter
	fallback Opener
}

// NewObjectStore connects to the object store described by cfg. Paths
// that are not s3 URLs are opened with fallback, or from the local file
// system when fallback is nil.
func NewObjectStore(cfg ObjectStoreConfig, fallback Opener) (*ObjectStore, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("object store endpoint is required")
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, errors.New("object store credentials are required")
	}

	endpoint, useSSL := cfg.Endpoint, cfg.UseSSL
	if u, err := url.Parse(cfg.Endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			useSSL = true
		}
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	if fallback == nil {
		fallback = LocalFiles
	}
	return &ObjectStore{client: client, fallback: fallback}, nil
}

// Open implements Opener.
func (s *ObjectStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	bucket, key, ok := ParseObjectURL(path)
	if !ok {
		return s.fallback.Open(ctx, path)
	}
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("object URL %q needs a bucket and a key", path)
	}

	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, classifyObjectError(err)
	}
	// GetObject is lazy; Stat surfaces missing keys before the first read
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, classifyObjectError(err)
	}
	return obj, nil
}

// ParseObjectURL splits s3://bucket/key into its parts. ok is false for
// paths of any other form.
func ParseObjectURL(path string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(path, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, _ = strings.Cut(rest, "/")
	return bucket, key, true
}

func classifyObjectError(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%w: %v", os.ErrNotExist, err)
	case "AccessDenied":
		return fmt.Errorf("%w: %v", os.ErrPermission, err)
	default:
		return err
	}
}
