package storage

import (
	"context"
	"strings"
	"sync"
	"time"

	chequeapp "github.com/erp/cheques/internal/application/cheque"
)

// MemoryImageStore keeps pictures in process. Used when object storage is
// disabled and in tests.
type MemoryImageStore struct {
	// BaseURL prefixes download links
	BaseURL string

	mu      sync.RWMutex
	objects map[string]memoryObject
}

type memoryObject struct {
	contentType string
	data        []byte
}

// NewMemoryImageStore creates an empty store
func NewMemoryImageStore() *MemoryImageStore {
	return &MemoryImageStore{
		BaseURL: "http://localhost/pictures",
		objects: make(map[string]memoryObject),
	}
}

// Put implements chequeapp.PictureStore
func (s *MemoryImageStore) Put(_ context.Context, key, contentType string, data []byte) (string, error) {
	if key == "" {
		return "", errEmptyKey
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	s.objects[key] = memoryObject{contentType: contentType, data: buf}
	s.mu.Unlock()
	return "mem://" + key, nil
}

// DownloadURL returns a non-expiring link under BaseURL
func (s *MemoryImageStore) DownloadURL(_ context.Context, ref string) (string, time.Time, error) {
	key := trimScheme(ref)
	if key == "" {
		return "", time.Time{}, errEmptyKey
	}
	return s.BaseURL + "/" + key, time.Time{}, nil
}

// Delete implements chequeapp.PictureStore
func (s *MemoryImageStore) Delete(_ context.Context, ref string) error {
	key := trimScheme(ref)
	if key == "" {
		return errEmptyKey
	}
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

// Object returns a stored picture
func (s *MemoryImageStore) Object(key string) (data []byte, contentType string, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	return obj.data, obj.contentType, ok
}

func trimScheme(ref string) string {
	return strings.TrimPrefix(ref, "mem://")
}

var _ chequeapp.PictureStore = (*MemoryImageStore)(nil)
