// Package s3 provides a blob store persisting objects in an S3 bucket.
package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/radium-data/radium/pkg/store/blob"
)

// S3BlobStoreConfig contains configuration for the S3 blob store.
type S3BlobStoreConfig struct {
	// Client is the configured S3 client
	Client *s3.Client

	// Bucket is the S3 bucket name
	Bucket string

	// KeyPrefix is an optional prefix for all object keys.
	// Example: "radium/blobs/" results in keys like
	// "radium/blobs/<id>/00000000.chunk"
	KeyPrefix string
}

// S3BlobStore implements blob.Store on S3.
//
// Storage model: every object owns the key prefix <prefix><id>/ holding its
// descriptor (info.json) and one S3 object per chunk, named by zero-padded
// sequence number.
//
// Descriptor updates are read-modify-write and not atomic on S3; chunks of
// one object must be appended by a single writer, which matches how the
// namespace layer streams content.
type S3BlobStore struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
}

var (
	_ blob.Store     = (*S3BlobStore)(nil)
	_ blob.Scannable = (*S3BlobStore)(nil)
)

// NewS3BlobStore verifies bucket access and returns a store. The bucket
// must already exist.
func NewS3BlobStore(ctx context.Context, cfg S3BlobStoreConfig) (*S3BlobStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	return &S3BlobStore{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

func (s *S3BlobStore) Create(ctx context.Context, data []byte, compress bool) (*blob.Object, error) {
	id := uuid.New().String()
	if err := s.putChunk(ctx, id, 0, data, compress); err != nil {
		return nil, err
	}
	object := &blob.Object{
		ID:       id,
		Size:     int64(len(data)),
		Chunks:   1,
		Checksum: blob.ChecksumInit(data),
	}
	if err := s.putInfo(ctx, object); err != nil {
		return nil, err
	}
	return object, nil
}

func (s *S3BlobStore) AppendChunk(ctx context.Context, id string, data []byte, compress bool) (*blob.Object, error) {
	object, err := s.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.putChunk(ctx, id, object.Chunks, data, compress); err != nil {
		return nil, err
	}
	object.Size += int64(len(data))
	object.Chunks++
	object.Checksum = blob.ChecksumExtend(object.Checksum, data)
	if err := s.putInfo(ctx, object); err != nil {
		return nil, err
	}
	return object, nil
}

func (s *S3BlobStore) Chunks(ctx context.Context, id string, fn func(data []byte) error) error {
	object, err := s.Find(ctx, id)
	if err != nil {
		return err
	}
	for seq := 0; seq < object.Chunks; seq++ {
		stored, err := s.getObject(ctx, s.chunkKey(id, seq))
		if err != nil {
			return fmt.Errorf("failed to read chunk %d of %s: %w", seq, id, err)
		}
		data, err := blob.DecodeChunk(stored)
		if err != nil {
			return err
		}
		if err := fn(data); err != nil {
			return err
		}
	}
	return nil
}

func (s *S3BlobStore) Find(ctx context.Context, id string) (*blob.Object, error) {
	data, err := s.getObject(ctx, s.infoKey(id))
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, blob.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read object descriptor: %w", err)
	}
	var object blob.Object
	if err := json.Unmarshal(data, &object); err != nil {
		return nil, fmt.Errorf("failed to decode object descriptor: %w", err)
	}
	return &object, nil
}

func (s *S3BlobStore) DeleteAll(ctx context.Context, id string) error {
	prefix := s.keyPrefix + id + "/"

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list objects of %s: %w", id, err)
		}
		if len(page.Contents) == 0 {
			continue
		}
		identifiers := make([]types.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			identifiers = append(identifiers, types.ObjectIdentifier{Key: obj.Key})
		}
		_, err = s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: identifiers},
		})
		if err != nil {
			return fmt.Errorf("failed to delete objects of %s: %w", id, err)
		}
	}
	return nil
}

func (s *S3BlobStore) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(s.keyPrefix),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, cp := range page.CommonPrefixes {
			if cp.Prefix == nil {
				continue
			}
			id := strings.TrimSuffix(strings.TrimPrefix(*cp.Prefix, s.keyPrefix), "/")
			if id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

func (s *S3BlobStore) Healthcheck(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to access bucket %q: %w", s.bucket, err)
	}
	return nil
}

func (s *S3BlobStore) Close() error { return nil }

func (s *S3BlobStore) infoKey(id string) string {
	return s.keyPrefix + id + "/info.json"
}

func (s *S3BlobStore) chunkKey(id string, seq int) string {
	return fmt.Sprintf("%s%s/%08d.chunk", s.keyPrefix, id, seq)
}

func (s *S3BlobStore) putChunk(ctx context.Context, id string, seq int, data []byte, compress bool) error {
	stored, err := blob.EncodeChunk(data, compress)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.chunkKey(id, seq)),
		Body:   bytes.NewReader(stored),
	})
	if err != nil {
		return fmt.Errorf("failed to write chunk %d of %s: %w", seq, id, err)
	}
	return nil
}

func (s *S3BlobStore) putInfo(ctx context.Context, object *blob.Object) error {
	data, err := json.Marshal(object)
	if err != nil {
		return fmt.Errorf("failed to encode object descriptor: %w", err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.infoKey(object.ID)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to write object descriptor: %w", err)
	}
	return nil
}

func (s *S3BlobStore) getObject(ctx context.Context, key string) ([]byte, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer result.Body.Close()
	return io.ReadAll(result.Body)
}
