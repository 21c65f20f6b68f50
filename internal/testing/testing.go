// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/dcheno/flickrup/internal/services"
)

// StubService is a minimal test double for [services.Service]. Every call
// succeeds against an empty remote library; configure the fields to change
// the canned responses.
type StubService struct {
	mu      sync.Mutex
	Sets    []services.Photoset
	Photos  map[string][]services.Photo
	PhotoID string
	Err     error

	UploadCalls int
	CreateCalls int
	AddCalls    int
}

func (s *StubService) Name() string { return "stub" }

func (s *StubService) Authenticate(ctx context.Context) error { return s.Err }

func (s *StubService) ListSets(ctx context.Context) ([]services.Photoset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]services.Photoset{}, s.Sets...), s.Err
}

func (s *StubService) CreateSet(ctx context.Context, title, primaryPhotoID string) (*services.Photoset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CreateCalls++
	if s.Err != nil {
		return nil, s.Err
	}
	set := services.Photoset{ID: "stub-set", Title: title}
	s.Sets = append(s.Sets, set)
	return &set, nil
}

func (s *StubService) ListSetPhotos(ctx context.Context, setID string) ([]services.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]services.Photo{}, s.Photos[setID]...), s.Err
}

func (s *StubService) AddToSet(ctx context.Context, setID, photoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AddCalls++
	return s.Err
}

func (s *StubService) Upload(ctx context.Context, req services.UploadRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UploadCalls++
	if s.Err != nil {
		return "", s.Err
	}
	if s.PhotoID != "" {
		return s.PhotoID, nil
	}
	return "stub-photo", nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
