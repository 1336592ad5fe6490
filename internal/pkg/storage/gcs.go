package storage

import (
	"context"
	"errors"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSOptions configures NewGCS. A non-nil Client is used as is and closed
// by Close.
type GCSOptions struct {
	Bucket          string
	Client          *gcs.Client
	CredentialsFile string
	// Endpoint targets an emulator; authentication is skipped.
	Endpoint string
}

// GCS is a Google Cloud Storage bucket.
type GCS struct {
	client *gcs.Client
	bucket *gcs.BucketHandle
}

func NewGCS(ctx context.Context, opts GCSOptions) (*GCS, error) {
	if opts.Bucket == "" {
		return nil, ErrBucketRequired
	}

	client := opts.Client
	if client == nil {
		var co []option.ClientOption
		if opts.CredentialsFile != "" {
			co = append(co, option.WithCredentialsFile(opts.CredentialsFile))
		}
		if opts.Endpoint != "" {
			co = append(co, option.WithEndpoint(opts.Endpoint), option.WithoutAuthentication())
		}

		var err error
		if client, err = gcs.NewClient(ctx, co...); err != nil {
			return nil, err
		}
	}

	return &GCS{client: client, bucket: client.Bucket(opts.Bucket)}, nil
}

func (g *GCS) Put(ctx context.Context, key string, data []byte, contentType string) (ObjectInfo, error) {
	w := g.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return ObjectInfo{}, err
	}
	if err := w.Close(); err != nil {
		return ObjectInfo{}, err
	}

	if attrs := w.Attrs(); attrs != nil {
		return gcsInfo(attrs), nil
	}
	return ObjectInfo{Key: key, Size: int64(len(data)), ContentType: contentType}, nil
}

func (g *GCS) Get(ctx context.Context, key string) ([]byte, ObjectInfo, error) {
	r, err := g.bucket.Object(key).NewReader(ctx)
	if err != nil {
		return nil, ObjectInfo{}, fromGCSError(err)
	}
	defer r.Close() //nolint:errcheck // read-only

	data, err := readAllLimited(r)
	if err != nil {
		return nil, ObjectInfo{}, err
	}

	return data, ObjectInfo{
		Key:         key,
		Size:        int64(len(data)),
		ContentType: r.Attrs.ContentType,
		UpdatedAt:   r.Attrs.LastModified,
	}, nil
}

func (g *GCS) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	attrs, err := g.bucket.Object(key).Attrs(ctx)
	if err != nil {
		return ObjectInfo{}, fromGCSError(err)
	}
	return gcsInfo(attrs), nil
}

func (g *GCS) Close() error { return g.client.Close() }

func fromGCSError(err error) error {
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return ErrObjectNotFound
	}
	return err
}

func gcsInfo(a *gcs.ObjectAttrs) ObjectInfo {
	return ObjectInfo{
		Key:         a.Name,
		Size:        a.Size,
		ETag:        a.Etag,
		ContentType: a.ContentType,
		UpdatedAt:   a.Updated,
	}
}
