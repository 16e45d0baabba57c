package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const uploadTimeout = 50 * time.Second

type GCSStore struct {
	cl         *storage.Client
	projectID  string
	bucketName string
	signedURLs bool
}

type GCSOptions struct {
	ProjectID  string
	BucketName string
	// SignedURLs issues V4 signed GET URLs instead of public object URLs (private buckets).
	SignedURLs bool
}

func NewGCSStore(ctx context.Context, opts GCSOptions, clientOpts ...option.ClientOption) (*GCSStore, error) {
	clientOpts = append(clientOpts, option.WithScopes(storage.ScopeReadWrite))
	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSStore{
		cl:         client,
		projectID:  opts.ProjectID,
		bucketName: opts.BucketName,
		signedURLs: opts.SignedURLs,
	}, nil
}

func (s *GCSStore) Close() error {
	return s.cl.Close()
}

func (s *GCSStore) Put(ctx context.Context, path string, r io.Reader, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	wc := s.cl.Bucket(s.bucketName).Object(path).NewWriter(ctx)
	if contentType != "" {
		wc.ContentType = contentType
	}
	if _, err := io.Copy(wc, r); err != nil {
		// Close would commit the partial object; cancelling the writer's context discards it.
		cancel()
		_ = wc.Close()
		return fmt.Errorf("io.Copy: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("Writer.Close: %w", err)
	}
	return nil
}

func (s *GCSStore) URL(ctx context.Context, path string) (string, error) {
	if !s.signedURLs {
		return s.PublicURL(path), nil
	}

	// Signed URL valid for 24 hours
	opts := &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(24 * time.Hour),
	}
	signedURL, err := s.cl.Bucket(s.bucketName).SignedURL(path, opts)
	if err != nil {
		return "", fmt.Errorf("failed to generate signed URL: %w", err)
	}
	return signedURL, nil
}

func (s *GCSStore) PublicURL(path string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucketName, path)
}

func (s *GCSStore) Delete(ctx context.Context, path string) error {
	err := s.cl.Bucket(s.bucketName).Object(path).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return ErrNotFound
	}
	return err
}

func (s *GCSStore) List(ctx context.Context, prefix string) ([]Object, error) {
	it := s.cl.Bucket(s.bucketName).Objects(ctx, &storage.Query{Prefix: prefix})
	var out []Object
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %q: %w", prefix, err)
		}
		out = append(out, Object{Path: attrs.Name, Size: attrs.Size, Created: attrs.Created})
	}
	return out, nil
}

// MakeBucketPublic grants allUsers read access to the bucket's objects.
func (s *GCSStore) MakeBucketPublic(ctx context.Context) error {
	bucket := s.cl.Bucket(s.bucketName)

	policy, err := bucket.IAM().Policy(ctx)
	if err != nil {
		return err
	}

	policy.Add("allUsers", "roles/storage.objectViewer")

	return bucket.IAM().SetPolicy(ctx, policy)
}
