package storage

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"
)

// MemoryStorage keeps objects in process. It backs the memory database
// driver and tests; its URLs are not servable.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

type memoryObject struct {
	contentType string
	body        []byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string]memoryObject)}
}

var _ FileStorage = (*MemoryStorage)(nil)

func (m *MemoryStorage) PutObject(_ context.Context, objectKey string, contentType string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectKey] = memoryObject{contentType: contentType, body: append([]byte(nil), body...)}
	return nil
}

func (m *MemoryStorage) GeneratePresignedDownloadURL(_ context.Context, objectKey string, expires time.Duration) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.objects[objectKey]; !ok {
		return "", ErrObjectNotFound
	}
	if expires <= 0 {
		expires = DefaultPresignedURLExpiry
	}
	return fmt.Sprintf("memory://exports/%s?expires=%d", url.PathEscape(objectKey), int(expires.Seconds())), nil
}

func (m *MemoryStorage) DeleteObject(_ context.Context, objectKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, objectKey)
	return nil
}

// Object returns a copy of the stored body.
func (m *MemoryStorage) Object(objectKey string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[objectKey]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), o.body...), true
}

// Len returns the number of stored objects.
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
