package cart

import (
	"context"
	"sync"
)

// MemoryBlob keeps the cart in process memory.
type MemoryBlob struct {
	mu   sync.RWMutex
	data []byte
}

// NewMemoryBlob creates an empty in-memory blob.
func NewMemoryBlob() *MemoryBlob {
	return &MemoryBlob{}
}

// Load returns a copy of the stored bytes.
func (b *MemoryBlob) Load(_ context.Context) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.data == nil {
		return nil, nil
	}
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out, nil
}

// Save stores a copy of data.
func (b *MemoryBlob) Save(_ context.Context, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = append([]byte(nil), data...)
	return nil
}

// Delete forgets the stored bytes.
func (b *MemoryBlob) Delete(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = nil
	return nil
}
