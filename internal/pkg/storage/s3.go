package storage

import (
	"bytes"
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// fallbackRegion is used when only a custom endpoint is configured; the SDK
// refuses to sign without a region.
const fallbackRegion = "us-east-1"

// S3Options configures NewS3. Empty credentials fall back to the default
// AWS chain (env, shared config, instance role).
type S3Options struct {
	Bucket       string
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	SessionToken string
	UsePathStyle bool
}

// S3 is a bucket on AWS S3 or an S3 compatible service.
type S3 struct {
	client *s3.Client
	bucket *string
}

// NewS3 loads the AWS config and binds the client to opts.Bucket.
func NewS3(ctx context.Context, opts S3Options) (*S3, error) {
	if opts.Bucket == "" {
		return nil, ErrBucketRequired
	}

	var load []func(*config.LoadOptions) error
	switch {
	case opts.Region != "":
		load = append(load, config.WithRegion(opts.Region))
	case opts.Endpoint != "":
		load = append(load, config.WithRegion(fallbackRegion))
	}
	if opts.AccessKey != "" {
		load = append(load, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, opts.SessionToken),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, load...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = opts.UsePathStyle
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})

	return &S3{client: client, bucket: aws.String(opts.Bucket)}, nil
}

func (s *S3) Put(ctx context.Context, key string, data []byte, contentType string) (ObjectInfo, error) {
	in := &s3.PutObjectInput{
		Bucket:        s.bucket,
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	out, err := s.client.PutObject(ctx, in)
	if err != nil {
		return ObjectInfo{}, err
	}

	return ObjectInfo{Key: key, Size: int64(len(data)), ETag: aws.ToString(out.ETag), ContentType: contentType}, nil
}

func (s *S3) Get(ctx context.Context, key string) ([]byte, ObjectInfo, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: s.bucket, Key: aws.String(key)})
	if err != nil {
		return nil, ObjectInfo{}, fromS3Error(err)
	}
	defer out.Body.Close() //nolint:errcheck // read-only body

	data, err := readAllLimited(out.Body)
	if err != nil {
		return nil, ObjectInfo{}, err
	}

	return data, ObjectInfo{
		Key:         key,
		Size:        int64(len(data)),
		ETag:        aws.ToString(out.ETag),
		ContentType: aws.ToString(out.ContentType),
		UpdatedAt:   aws.ToTime(out.LastModified),
	}, nil
}

func (s *S3) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: s.bucket, Key: aws.String(key)})
	if err != nil {
		return ObjectInfo{}, fromS3Error(err)
	}

	return ObjectInfo{
		Key:         key,
		Size:        aws.ToInt64(out.ContentLength),
		ETag:        aws.ToString(out.ETag),
		ContentType: aws.ToString(out.ContentType),
		UpdatedAt:   aws.ToTime(out.LastModified),
	}, nil
}

func (s *S3) Close() error { return nil }

// fromS3Error maps NoSuchKey (GET) and NotFound (HEAD) to ErrObjectNotFound.
func fromS3Error(err error) error {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return ErrObjectNotFound
	}
	return err
}
