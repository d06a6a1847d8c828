package infra

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/helixbio/gva-annotation-orchestrator/config"
	"github.com/minio/madmin-go/v3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrObjectNotFound classifies a missing object. For the worker loop this is
// the unrecoverable-for-this-job case, distinct from transient storage
// errors.
var ErrObjectNotFound = errors.New("object not found")

type MinioClient struct {
	Admin    *madmin.AdminClient
	Client   *minio.Client
	Endpoint string
}

func InitMinioClient(cfg *config.EnvConfig) *MinioClient {
	endpoint := cfg.Minio.Endpoint
	if endpoint == "" {
		panic("MinIO endpoint is not configured")
	}

	rootUser := cfg.Minio.RootUser
	if rootUser == "" {
		panic("MinIO root user is not configured")
	}

	rootPassword := cfg.Minio.RootPassword
	if rootPassword == "" {
		panic("MinIO root password is not configured")
	}

	madminClient, err := madmin.New(endpoint, rootUser, rootPassword, false)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize MinIO admin client: %v", err))
	}

	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(rootUser, rootPassword, ""),
		Secure: false,
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize MinIO client: %v", err))
	}

	client := &MinioClient{
		Admin:    madminClient,
		Client:   minioClient,
		Endpoint: endpoint,
	}

	for _, bucket := range []string{cfg.Minio.InputsBucket, cfg.Minio.ResultsBucket} {
		if err := client.ensureBucket(context.Background(), bucket); err != nil {
			panic(fmt.Sprintf("Failed to ensure bucket %s: %v", bucket, err))
		}
	}

	return client
}

func (m *MinioClient) ensureBucket(ctx context.Context, bucket string) error {
	exists, err := m.Client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return m.Client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
}

// DownloadFile copies an object to a local path. A missing object is wrapped
// in ErrObjectNotFound; everything else is treated as transient by callers.
func (m *MinioClient) DownloadFile(ctx context.Context, bucket, key, localPath string) error {
	err := m.Client.FGetObject(ctx, bucket, key, localPath, minio.GetObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: %s/%s", ErrObjectNotFound, bucket, key)
		}
		return fmt.Errorf("failed to download %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (m *MinioClient) UploadFile(ctx context.Context, bucket, key, localPath string) error {
	_, err := m.Client.FPutObject(ctx, bucket, key, localPath, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (m *MinioClient) ReadObject(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := m.Client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s/%s: %w", bucket, key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s/%s", ErrObjectNotFound, bucket, key)
		}
		return nil, fmt.Errorf("failed to read %s/%s: %w", bucket, key, err)
	}
	return data, nil
}

func (m *MinioClient) RemoveObject(ctx context.Context, bucket, key string) error {
	return m.Client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{})
}

func (m *MinioClient) PresignedPut(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	u, err := m.Client.PresignedPutObject(ctx, bucket, key, expiry)
	if err != nil {
		return "", fmt.Errorf("failed to presign upload for %s/%s: %w", bucket, key, err)
	}
	return u.String(), nil
}

func (m *MinioClient) PresignedGet(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	u, err := m.Client.PresignedGetObject(ctx, bucket, key, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to presign download for %s/%s: %w", bucket, key, err)
	}
	return u.String(), nil
}

// Health probes the storage backend through the admin API.
func (m *MinioClient) Health(ctx context.Context) error {
	_, err := m.Admin.ServerInfo(ctx)
	if err != nil {
		return fmt.Errorf("object store unhealthy: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" || resp.StatusCode == 404
}
