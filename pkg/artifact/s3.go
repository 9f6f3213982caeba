package artifact

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mudler/xlog"
)

// ObjectAPI is the subset of the S3 client used by S3Mirror.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type S3Mirror struct {
	Client ObjectAPI
	Bucket string
	Prefix string
}

// NewS3Mirror builds a mirror using the default AWS credential chain.
func NewS3Mirror(ctx context.Context, bucket, prefix string) (*S3Mirror, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return &S3Mirror{
		Client: s3.NewFromConfig(cfg),
		Bucket: bucket,
		Prefix: prefix,
	}, nil
}

func (m *S3Mirror) key(filename string) string {
	return path.Join(strings.Trim(m.Prefix, "/"), filename)
}

func (m *S3Mirror) Put(ctx context.Context, filename string, data []byte) error {
	xlog.Debug("uploading image to s3", "bucket", m.Bucket, "key", m.key(filename))
	_, err := m.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.Bucket),
		Key:         aws.String(m.key(filename)),
		ContentType: aws.String(contentType(filename)),
		Body:        bytes.NewReader(data),
	})
	return err
}

func (m *S3Mirror) Remove(ctx context.Context, filename string) error {
	xlog.Debug("removing image from s3", "bucket", m.Bucket, "key", m.key(filename))
	_, err := m.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(m.Bucket),
		Key:    aws.String(m.key(filename)),
	})
	return err
}

func contentType(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	default:
		return "image/png"
	}
}
