package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps objects in process memory. Suitable for development and
// tests only; contents are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]*Object
	baseURL string
}

// NewMemoryStore creates an empty in-memory object store. Objects are served
// by the application itself under baseURL (default "/files").
func NewMemoryStore(baseURL string) *MemoryStore {
	if baseURL == "" {
		baseURL = "/files"
	}
	return &MemoryStore{
		objects: make(map[string]*Object),
		baseURL: baseURL,
	}
}

func (m *MemoryStore) Put(ctx context.Context, key, contentType string, data []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = &Object{
		Key:         key,
		ContentType: contentType,
		Data:        buf,
	}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, key string) (*Object, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, ErrNotFound
	}

	buf := make([]byte, len(obj.Data))
	copy(buf, obj.Data)
	return &Object{
		Key:         obj.Key,
		ContentType: obj.ContentType,
		Data:        buf,
	}, nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *MemoryStore) URL(key string) string {
	return m.baseURL + "/" + key
}

// Len reports how many objects the store holds.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
