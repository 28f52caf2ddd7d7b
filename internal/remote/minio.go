package remote

import (
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/samber/oops"
)

// MinioOptions locates the manifest object in an S3-compatible store.
type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Object    string
	Region    string
	UseSSL    bool
}

// MinioSource reads the manifest from a MinIO bucket, for bundles
// published to object storage rather than served over HTTP.
type MinioSource struct {
	client *minio.Client
	bucket string
	object string
}

// NewMinioSource creates a MinIO client for opts.
func NewMinioSource(opts MinioOptions) (*MinioSource, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, oops.Code("MINIO_CLIENT_FAILED").With("endpoint", opts.Endpoint).Wrap(err)
	}
	return &MinioSource{client: client, bucket: opts.Bucket, object: opts.Object}, nil
}

// Fetch implements Source.
func (s *MinioSource) Fetch(ctx context.Context) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.object, minio.GetObjectOptions{})
	if err != nil {
		return nil, oops.With("bucket", s.bucket).With("object", s.object).Wrap(err)
	}
	defer obj.Close()

	data, err := io.ReadAll(io.LimitReader(obj, maxManifestBytes))
	if err != nil {
		return nil, oops.With("bucket", s.bucket).With("object", s.object).Wrap(err)
	}
	return data, nil
}
