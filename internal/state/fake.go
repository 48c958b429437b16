package state

// MemStore is an in-memory Store for tests.
type MemStore struct {
	// Values holds the stored bytes by key.
	Values map[string][]byte

	// Puts counts successful writes per key.
	Puts map[string]int

	// GetError, if set, is returned by Get.
	GetError error

	// PutError, if set, is returned by Put.
	PutError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		Values: make(map[string][]byte),
		Puts:   make(map[string]int),
	}
}

// Get returns the stored value or ErrNotFound.
func (m *MemStore) Get(key string) ([]byte, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	v, ok := m.Values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

// Put records the value.
func (m *MemStore) Put(key string, value []byte) error {
	if m.PutError != nil {
		return m.PutError
	}
	m.Values[key] = append([]byte(nil), value...)
	m.Puts[key]++
	return nil
}

// Close marks the store as closed.
func (m *MemStore) Close() error {
	m.Closed = true
	return nil
}
