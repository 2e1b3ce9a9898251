// Package s3 stores file payloads in an S3 compatible bucket.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/vadimbarashkov/linkdrop/internal/config"
	"github.com/vadimbarashkov/linkdrop/internal/entity"

	awss3 "github.com/aws/aws-sdk-go/service/s3"
)

type BlobStore struct {
	client   *awss3.S3
	uploader *s3manager.Uploader
	bucket   string
}

func NewBlobStore(cfg config.S3) (*BlobStore, error) {
	const op = "adapter.storage.s3.NewBlobStore"

	awsConfig := &aws.Config{
		Region:           aws.String(cfg.Region),
		S3ForcePathStyle: aws.Bool(cfg.ForcePathStyle),
	}

	if cfg.AccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}

	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create aws session: %w", op, err)
	}

	return &BlobStore{
		client:   awss3.New(sess),
		uploader: s3manager.NewUploader(sess),
		bucket:   cfg.Bucket,
	}, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Put uploads body to path and returns the number of bytes written.
func (s *BlobStore) Put(ctx context.Context, path string, body io.Reader, contentType, filename string) (int64, error) {
	const op = "adapter.storage.s3.BlobStore.Put"

	cr := &countingReader{r: body}

	input := &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(path),
		Body:        cr,
		ContentType: aws.String(contentType),
	}

	if filename != "" {
		input.ContentDisposition = aws.String(mime.FormatMediaType("inline", map[string]string{"filename": filename}))
	}

	if _, err := s.uploader.UploadWithContext(ctx, input); err != nil {
		return 0, fmt.Errorf("%s: s3 upload failed: %w: %w", op, entity.ErrStoreUnavailable, err)
	}

	return cr.n, nil
}

// Get opens the object at path. The caller must close the returned body.
func (s *BlobStore) Get(ctx context.Context, path string) (*entity.Blob, error) {
	const op = "adapter.storage.s3.BlobStore.Get"

	resp, err := s.client.GetObjectWithContext(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: s3 get failed: %w: %w", op, entity.ErrStoreUnavailable, err)
	}

	return &entity.Blob{
		Body:        resp.Body,
		Size:        aws.Int64Value(resp.ContentLength),
		ContentType: aws.StringValue(resp.ContentType),
	}, nil
}

// Delete removes the object at path. Removing an absent object succeeds.
func (s *BlobStore) Delete(ctx context.Context, path string) error {
	const op = "adapter.storage.s3.BlobStore.Delete"

	_, err := s.client.DeleteObjectWithContext(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("%s: s3 delete failed: %w: %w", op, entity.ErrStoreUnavailable, err)
	}

	return nil
}

func isNotFound(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) && aerr.Code() == awss3.ErrCodeNoSuchKey {
		return true
	}

	var rerr awserr.RequestFailure
	return errors.As(err, &rerr) && rerr.StatusCode() == http.StatusNotFound
}
