package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
)

// Object is a reference to a stored snapshot
type Object struct {
	Key          string    `json:"key"`
	LastModified time.Time `json:"last_modified"`
	Size         int64     `json:"size"`
}

// Listing is the result of a single list call
type Listing struct {
	Objects   []Object
	Truncated bool
}

// ObjectStore is the object storage surface the comparer depends on
type ObjectStore interface {
	// ListObjects issues exactly one list request for prefix
	ListObjects(ctx context.Context, bucket, prefix string) (*Listing, error)

	// GetObject streams a small object such as the parameter record
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)

	// DownloadObject writes a whole object to w
	DownloadObject(ctx context.Context, bucket, key string, w io.WriterAt) (int64, error)
}

// S3Store implements ObjectStore on top of the AWS SDK
type S3Store struct {
	client     s3iface.S3API
	downloader s3manageriface.DownloaderAPI
}

// NewS3Store creates an S3 session from cfg. Without static credentials the
// SDK default chain (env, shared config, instance role) is used.
func NewS3Store(cfg S3Config) (*S3Store, error) {
	awsConfig := &aws.Config{}
	if cfg.Region != "" {
		awsConfig.Region = aws.String(cfg.Region)
	}
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}
	if cfg.AccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}

	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            *awsConfig,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 session: %w", err)
	}

	return NewS3StoreWithClient(s3.New(sess), s3manager.NewDownloader(sess)), nil
}

// NewS3StoreWithClient wraps existing SDK clients
func NewS3StoreWithClient(client s3iface.S3API, downloader s3manageriface.DownloaderAPI) *S3Store {
	return &S3Store{
		client:     client,
		downloader: downloader,
	}
}

// ListObjects lists objects under prefix with a single request. Directory
// placeholder keys are skipped.
func (s *S3Store) ListObjects(ctx context.Context, bucket, prefix string) (*Listing, error) {
	result, err := s.client.ListObjectsV2WithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list objects in s3://%s/%s: %w", bucket, prefix, err)
	}

	listing := &Listing{
		Truncated: aws.BoolValue(result.IsTruncated),
	}
	for _, obj := range result.Contents {
		key := aws.StringValue(obj.Key)
		if strings.HasSuffix(key, "/") {
			continue
		}
		listing.Objects = append(listing.Objects, Object{
			Key:          key,
			LastModified: aws.TimeValue(obj.LastModified),
			Size:         aws.Int64Value(obj.Size),
		})
	}

	return listing, nil
}

// GetObject returns the body of an object; the caller closes it
func (s *S3Store) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	result, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", bucket, key, err)
	}
	return result.Body, nil
}

// DownloadObject downloads an object with the s3manager downloader
func (s *S3Store) DownloadObject(ctx context.Context, bucket, key string, w io.WriterAt) (int64, error) {
	n, err := s.downloader.DownloadWithContext(ctx, w, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to download s3://%s/%s: %w", bucket, key, err)
	}
	return n, nil
}
