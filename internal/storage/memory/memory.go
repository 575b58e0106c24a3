package memory

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/riturajsingh8919/anti-romantic/internal/domain"
	"github.com/riturajsingh8919/anti-romantic/internal/storage"
)

type object struct {
	kind        domain.MediaKind
	contentType string
	size        int64
	url         string
}

// Storage implements storage.Storage using an in-memory map.
// It keeps metadata only, no file bytes, and is meant for local development
// and tests.
type Storage struct {
	mu        sync.RWMutex
	objects   map[string]*object
	failures  map[string]error
	destroyed []string
	baseURL   string
}

// New creates a new in-memory storage instance.
func New(baseURL string) *Storage {
	return &Storage{
		objects:  make(map[string]*object),
		failures: make(map[string]error),
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// Upload records the object and returns a URL under baseURL.
func (s *Storage) Upload(_ context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	// Drain the body so callers see the same behaviour as a real upload.
	n, err := io.Copy(io.Discard, input.Data)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if input.Size == 0 {
		input.Size = n
	}

	folder := input.Folder
	if folder == "" {
		folder = domain.DefaultUploadFolder
	}
	id := folder + "/" + uuid.NewString()
	ext := strings.TrimPrefix(path.Ext(input.FileName), ".")

	s.mu.Lock()
	defer s.mu.Unlock()

	obj := &object{
		kind:        input.Kind,
		contentType: input.ContentType,
		size:        input.Size,
		url:         fmt.Sprintf("%s/media/%s", s.baseURL, id),
	}
	s.objects[id] = obj

	return &storage.UploadResult{
		ExternalID:   id,
		URL:          obj.url,
		Format:       ext,
		ByteSize:     obj.size,
		ResourceType: obj.kind,
	}, nil
}

// Put registers an existing object.
func (s *Storage) Put(externalID string, kind domain.MediaKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[externalID] = &object{kind: kind, url: fmt.Sprintf("%s/media/%s", s.baseURL, externalID)}
}

// FailDestroy makes every Destroy of externalID return err. A nil err
// clears the failure.
func (s *Storage) FailDestroy(externalID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, externalID)
		return
	}
	s.failures[externalID] = err
}

// Destroy removes the object if it is stored under kind.
func (s *Storage) Destroy(_ context.Context, externalID string, kind domain.MediaKind) (bool, error) {
	if externalID == "" {
		return false, storage.ErrEmptyID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.failures[externalID]; ok {
		return false, err
	}
	obj, ok := s.objects[externalID]
	if !ok || obj.kind != kind {
		return false, nil
	}
	delete(s.objects, externalID)
	s.destroyed = append(s.destroyed, externalID)
	return true, nil
}

// Has reports whether externalID is stored.
func (s *Storage) Has(externalID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[externalID]
	return ok
}

// Destroyed lists the ids removed so far, in order.
func (s *Storage) Destroyed() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.destroyed...)
}
