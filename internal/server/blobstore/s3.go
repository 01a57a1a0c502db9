// Package blobstore issues presigned capabilities against an S3-compatible
// object store and performs the few server-side object operations the
// control plane needs (delete, size lookup). Object bodies never pass
// through this package.
package blobstore

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/cryptocloud/internal/common"
	"github.com/dmitrijs2005/cryptocloud/internal/server/models"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
	deleteObject = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectInput) error {
		_, err := c.DeleteObject(ctx, in)
		return err
	}
	headObject = func(c *s3.Client, ctx context.Context, in *s3.HeadObjectInput) (*s3.HeadObjectOutput, error) {
		return c.HeadObject(ctx, in)
	}

	now = time.Now
)

// DefaultContentType is used for uploads that do not declare one.
const DefaultContentType = "application/octet-stream"

// Options configure the S3 connection.
type Options struct {
	Region       string
	AccessKey    string
	SecretKey    string
	BaseEndpoint string
	Bucket       string
}

// S3Store talks to one bucket. The SDK clients are built once and shared.
type S3Store struct {
	bucket  string
	client  *s3.Client
	presign *s3.PresignClient
}

// NewS3Store loads the AWS configuration with static credentials and builds
// a path-style client against BaseEndpoint, which is what MinIO expects.
func NewS3Store(ctx context.Context, opts Options) (*S3Store, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKey,
			opts.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("%w: load aws config: %v", common.ErrStorageBackend, err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.BaseEndpoint)
		}
		o.UsePathStyle = true
	})

	return &S3Store{
		bucket:  opts.Bucket,
		client:  client,
		presign: newS3PresignClient(client),
	}, nil
}

// PresignPut returns a capability to upload one object of contentType at
// locator. The content type is part of the signature.
func (s *S3Store) PresignPut(ctx context.Context, locator, contentType string, expires time.Duration) (*models.Capability, error) {
	if contentType == "" {
		contentType = DefaultContentType
	}
	req, err := presignPutObject(s.presign, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(locator),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return nil, fmt.Errorf("%w: presign put: %v", common.ErrStorageBackend, err)
	}
	return toCapability(req, http.MethodPut, expires), nil
}

// PresignGet returns a capability to download the object at locator. The
// response carries an attachment disposition with filename.
func (s *S3Store) PresignGet(ctx context.Context, locator, filename string, expires time.Duration) (*models.Capability, error) {
	in := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(locator),
	}
	if filename != "" {
		in.ResponseContentDisposition = aws.String(
			mime.FormatMediaType("attachment", map[string]string{"filename": path.Base(filename)}))
	}

	req, err := presignGetObject(s.presign, ctx, in, s3.WithPresignExpires(expires))
	if err != nil {
		return nil, fmt.Errorf("%w: presign get: %v", common.ErrStorageBackend, err)
	}
	return toCapability(req, http.MethodGet, expires), nil
}

// Delete removes the object at locator. Deleting a missing object succeeds.
func (s *S3Store) Delete(ctx context.Context, locator string) error {
	err := deleteObject(s.client, ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(locator),
	})
	if err != nil {
		return fmt.Errorf("%w: delete %s: %v", common.ErrStorageBackend, locator, err)
	}
	return nil
}

// Size returns the stored byte count of the object at locator.
func (s *S3Store) Size(ctx context.Context, locator string) (uint64, error) {
	out, err := headObject(s.client, ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(locator),
	})
	if err != nil {
		return 0, fmt.Errorf("%w: head %s: %v", common.ErrStorageBackend, locator, err)
	}
	if out.ContentLength == nil || *out.ContentLength < 0 {
		return 0, nil
	}
	return uint64(*out.ContentLength), nil
}

func toCapability(req *v4.PresignedHTTPRequest, fallbackMethod string, expires time.Duration) *models.Capability {
	method := req.Method
	if method == "" {
		method = fallbackMethod
	}
	header := http.Header{}
	for k, v := range req.SignedHeader {
		// Host is set by the HTTP client from the URL.
		if http.CanonicalHeaderKey(k) == "Host" {
			continue
		}
		header[http.CanonicalHeaderKey(k)] = append([]string(nil), v...)
	}
	return &models.Capability{
		Method:    method,
		URL:       req.URL,
		Header:    header,
		ExpiresAt: now().Add(expires).UTC(),
	}
}
