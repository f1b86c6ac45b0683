package storagesvc

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/pkg/errors"

	"github.com/trezcool/educa/core"
)

// LocalStorage stores the files under a directory served at baseURL.
type LocalStorage struct {
	dir     string
	baseURL string
}

var _ core.FileStorage = (*LocalStorage)(nil)

func NewLocalStorage(conf *core.Config) *LocalStorage {
	dir := conf.Storage.Dir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(conf.WorkDir, dir)
	}
	return &LocalStorage{dir: dir, baseURL: strings.TrimRight(conf.Storage.BaseURL, "/")}
}

// Dir is the root directory of the stored files.
func (s *LocalStorage) Dir() string {
	return s.dir
}

func (s *LocalStorage) Save(ctx context.Context, dir, filename, contentType string, r io.Reader) (string, error) {
	name := path.Join(dir, objectName(filename))
	fp := filepath.Join(s.dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return "", errors.Wrap(err, "creating upload dir")
	}

	f, err := os.Create(fp)
	if err != nil {
		return "", errors.Wrap(err, "creating file")
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(fp)
		return "", errors.Wrap(err, "writing file")
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrap(err, "closing file")
	}
	return s.baseURL + "/" + name, nil
}

func (s *LocalStorage) Delete(ctx context.Context, location string) error {
	name := strings.TrimPrefix(location, s.baseURL+"/")
	if name == location || strings.Contains(name, "..") {
		return errors.Errorf("unknown location %q", location)
	}
	err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(name)))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing file")
	}
	return nil
}

// objectName returns a unique, URL safe name keeping the extension of filename.
func objectName(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	ext := strings.ToLower(path.Ext(base))
	name := slug.Make(strings.TrimSuffix(base, path.Ext(base)))
	if name == "" {
		name = "file"
	}
	return name + "-" + uuid.New().String()[:8] + ext
}
