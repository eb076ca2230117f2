package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	appcfg "github.com/bookforge/core/internal/config"
)

// S3 stores content units as objects in a bucket, under an optional key
// prefix. Object keys reuse the same layout as the filesystem store.
type S3 struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3 builds an object-storage content store from configuration.
func NewS3(opts appcfg.S3Options) (*S3, error) {
	bucket := strings.TrimSpace(opts.Bucket)
	region := strings.TrimSpace(opts.Region)
	accessKey := strings.TrimSpace(opts.AccessKeyID)
	secretKey := strings.TrimSpace(opts.SecretAccessKey)
	if bucket == "" || region == "" || accessKey == "" || secretKey == "" {
		return nil, errors.New("incomplete s3 config: bucket/region/access_key_id/secret_access_key are required")
	}

	s3opts := s3.Options{
		Region:       region,
		Credentials:  credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		UsePathStyle: opts.PathStyleAccess,
	}
	if endpoint := strings.TrimSpace(opts.Endpoint); endpoint != "" {
		s3opts.BaseEndpoint = aws.String(strings.TrimRight(endpoint, "/"))
	}

	return &S3{
		client: s3.New(s3opts),
		bucket: bucket,
		prefix: strings.Trim(strings.TrimSpace(opts.Prefix), "/"),
	}, nil
}

func (s *S3) objectKey(kind Kind, pos Position) (string, error) {
	key, err := Key(kind, pos)
	if err != nil {
		return "", err
	}
	if s.prefix != "" {
		return s.prefix + "/" + key, nil
	}
	return key, nil
}

// Exists reports whether the unit's object is present in the bucket.
func (s *S3) Exists(ctx context.Context, kind Kind, pos Position) (bool, error) {
	key, err := s.objectKey(kind, pos)
	if err != nil {
		return false, err
	}
	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *s3types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("head s3 object %q: %w", key, err)
	}
	return true, nil
}

// Save uploads the unit's text as one object.
func (s *S3) Save(ctx context.Context, kind Kind, pos Position, text string) error {
	key, err := s.objectKey(kind, pos)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(text),
		ContentType: aws.String("text/markdown; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("put s3 object %q: %w", key, err)
	}
	return nil
}
