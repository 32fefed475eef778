package aws

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"gameboard-server/core"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"
)

// objectAPI is the subset of the S3 client the store needs.
type objectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type s3Store struct {
	s3Client objectAPI
	bucket   string
	prefix   string
}

// NewStore creates a new S3-based store. Blobs live under prefix in bucketName.
func NewStore(ctx context.Context, bucketName, prefix string) (*s3Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	return newStoreWithClient(s3.NewFromConfig(cfg), bucketName, prefix), nil
}

func newStoreWithClient(client objectAPI, bucketName, prefix string) *s3Store {
	return &s3Store{
		s3Client: client,
		bucket:   bucketName,
		prefix:   strings.Trim(prefix, "/"),
	}
}

func (s *s3Store) objectKey(name string) (string, error) {
	// Blob names must be simple names, not paths.
	if name == "" || name == "." || name == ".." || path.Base(name) != name {
		return "", fmt.Errorf("%w: invalid blob name %q", core.ErrValidation, name)
	}
	if s.prefix == "" {
		return name, nil
	}
	return path.Join(s.prefix, name), nil
}

func (s *s3Store) Read(ctx context.Context, name string) ([]byte, error) {
	key, err := s.objectKey(name)
	if err != nil {
		return nil, err
	}
	log := logrus.WithFields(logrus.Fields{"bucket": s.bucket, "key": key})

	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			log.Debug("Blob object not found")
			return nil, core.ErrBlobNotFound
		}
		log.WithError(err).Error("Failed to get blob object")
		return nil, core.StorageError("read "+name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.StorageError("read "+name, err)
	}
	return data, nil
}

func (s *s3Store) Write(ctx context.Context, name string, data []byte) error {
	key, err := s.objectKey(name)
	if err != nil {
		return err
	}

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{"bucket": s.bucket, "key": key}).WithError(err).Error("Failed to put blob object")
		return core.StorageError("write "+name, err)
	}
	return nil
}

// Append rewrites the whole object; S3 has no append primitive.
func (s *s3Store) Append(ctx context.Context, name string, data []byte) error {
	current, err := s.Read(ctx, name)
	if err != nil && !errors.Is(err, core.ErrBlobNotFound) {
		return err
	}
	return s.Write(ctx, name, append(current, data...))
}
