package storage

import (
	"bytes"
	"context"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOOptions configures NewMinIO.
type MinIOOptions struct {
	Bucket    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// MinIO is a bucket on a MinIO server.
type MinIO struct {
	client *minio.Client
	bucket string
}

// NewMinIO builds the client; no request is made until first use.
func NewMinIO(opts MinIOOptions) (*MinIO, error) {
	if opts.Bucket == "" {
		return nil, ErrBucketRequired
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, err
	}

	return &MinIO{client: client, bucket: opts.Bucket}, nil
}

func (m *MinIO) Put(ctx context.Context, key string, data []byte, contentType string) (ObjectInfo, error) {
	up, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return ObjectInfo{}, err
	}

	return ObjectInfo{Key: key, Size: up.Size, ETag: up.ETag, ContentType: contentType}, nil
}

func (m *MinIO) Get(ctx context.Context, key string) ([]byte, ObjectInfo, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, ObjectInfo{}, fromMinIOError(err)
	}
	defer obj.Close() //nolint:errcheck // read-only

	// GetObject is lazy; Stat surfaces a missing key.
	st, err := obj.Stat()
	if err != nil {
		return nil, ObjectInfo{}, fromMinIOError(err)
	}

	data, err := readAllLimited(obj)
	if err != nil {
		return nil, ObjectInfo{}, err
	}

	return data, minioInfo(st), nil
}

func (m *MinIO) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	st, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return ObjectInfo{}, fromMinIOError(err)
	}

	return minioInfo(st), nil
}

func (m *MinIO) Close() error { return nil }

func fromMinIOError(err error) error {
	if r := minio.ToErrorResponse(err); r.Code == "NoSuchKey" || r.StatusCode == http.StatusNotFound {
		return ErrObjectNotFound
	}
	return err
}

func minioInfo(st minio.ObjectInfo) ObjectInfo {
	return ObjectInfo{
		Key:         st.Key,
		Size:        st.Size,
		ETag:        st.ETag,
		ContentType: st.ContentType,
		UpdatedAt:   st.LastModified,
	}
}
