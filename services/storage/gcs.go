package storagesvc

import (
	"context"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"github.com/trezcool/educa/core"
)

const gcsBaseURL = "https://storage.googleapis.com"

// GCSStorage stores the files in a Google Cloud Storage bucket.
type GCSStorage struct {
	client *storage.Client
	bucket string
}

var _ core.FileStorage = (*GCSStorage)(nil)

func NewGCSStorage(ctx context.Context, conf *core.Config) (*GCSStorage, error) {
	if conf.Storage.Bucket == "" {
		return nil, errors.New("storage bucket is not configured")
	}
	var opts []option.ClientOption
	if conf.Storage.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(conf.Storage.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "creating storage client")
	}
	return &GCSStorage{client: client, bucket: conf.Storage.Bucket}, nil
}

func (s *GCSStorage) prefix() string {
	return gcsBaseURL + "/" + s.bucket + "/"
}

func (s *GCSStorage) Save(ctx context.Context, dir, filename, contentType string, r io.Reader) (string, error) {
	name := path.Join(dir, objectName(filename))
	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", errors.Wrap(err, "uploading object")
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrap(err, "closing object writer")
	}
	return s.prefix() + name, nil
}

func (s *GCSStorage) Delete(ctx context.Context, location string) error {
	name := strings.TrimPrefix(location, s.prefix())
	if name == location {
		return errors.Errorf("unknown location %q", location)
	}
	err := s.client.Bucket(s.bucket).Object(name).Delete(ctx)
	if err != nil && err != storage.ErrObjectNotExist {
		return errors.Wrap(err, "deleting object")
	}
	return nil
}

func (s *GCSStorage) Close() error {
	return s.client.Close()
}
