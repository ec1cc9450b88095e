package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/stepline-labs/stepline-go/internal/domain"
	"github.com/stepline-labs/stepline-go/internal/repo"
)

// Store persists pipeline state documents as JSON objects in S3-compatible
// storage, one object per pipeline identifier. Useful for archival and for
// sharing run state across services without a database.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

// New wires a state store over an existing client. prefix scopes the object
// keys (for example "states"); it may be empty.
func New(client *minio.Client, bucket, prefix string) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("object store client is required")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	return &Store{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}, nil
}

func (s *Store) Save(ctx context.Context, pipelineID string, state *domain.PipelineState) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("object state store not initialized")
	}
	doc, err := repo.MarshalPipelineState(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	opts := minio.PutObjectOptions{ContentType: "application/json"}
	_, err = s.client.PutObject(ctx, s.bucket, s.key(pipelineID), bytes.NewReader(doc), int64(len(doc)), opts)
	if err != nil {
		return fmt.Errorf("put pipeline state: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, pipelineID string) (*domain.PipelineState, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("object state store not initialized")
	}
	obj, err := s.client.GetObject(ctx, s.bucket, s.key(pipelineID), minio.GetObjectOptions{})
	if err != nil {
		return nil, handleNotFound(err)
	}
	defer func() { _ = obj.Close() }()
	doc, err := io.ReadAll(obj)
	if err != nil {
		return nil, handleNotFound(err)
	}
	return repo.UnmarshalPipelineState(doc)
}

func (s *Store) Exists(ctx context.Context, pipelineID string) (bool, error) {
	if s == nil || s.client == nil {
		return false, fmt.Errorf("object state store not initialized")
	}
	_, err := s.client.StatObject(ctx, s.bucket, s.key(pipelineID), minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) key(pipelineID string) string {
	return path.Join(s.prefix, strings.TrimSpace(pipelineID)+".json")
}

func handleNotFound(err error) error {
	if isNoSuchKey(err) {
		return repo.ErrNotFound
	}
	return err
}

func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket"
}
