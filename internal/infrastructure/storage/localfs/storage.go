package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/kirillkom/document-explainer/internal/core/domain"
)

// Storage keeps documents on the local disk and serves them back through
// the API's /files/ route. Meant for development without an object store.
type Storage struct {
	basePath      string
	publicBaseURL string
}

func New(basePath, publicBaseURL string) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/storage"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Storage{
		basePath:      basePath,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

func (s *Storage) Save(_ context.Context, key, _ string, _ int64, data io.Reader) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create object dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, data); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

func (s *Storage) URL(_ context.Context, key string) (string, error) {
	if _, err := s.resolve(key); err != nil {
		return "", err
	}
	segments := strings.Split(key, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return s.publicBaseURL + "/files/" + strings.Join(segments, "/"), nil
}

func (s *Storage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.WrapError(domain.ErrContractNotFound, "open file", err)
		}
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

func (s *Storage) resolve(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if key == "" || clean == "/" || clean != "/"+key {
		return "", domain.WrapError(domain.ErrInvalidInput, "resolve storage key", fmt.Errorf("invalid key %q", key))
	}
	return filepath.Join(s.basePath, filepath.FromSlash(clean)), nil
}
