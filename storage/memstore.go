package storage

import "sync"

// MemStore is an in-memory Store. Nothing survives the process; it is
// the default for tests and scratch contexts.
type MemStore struct {
	mu     sync.Mutex
	tables map[string]*TableDocument
	closed bool
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{tables: make(map[string]*TableDocument)}
}

// GetTable implements Store.
func (s *MemStore) GetTable(name string, createIfMissing bool) (*TableDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if doc, ok := s.tables[name]; ok {
		return doc, nil
	}
	if !createIfMissing {
		return nil, nil
	}
	doc := &TableDocument{Name: name}
	s.tables[name] = doc
	return doc, nil
}

// SaveTable implements Store. Documents live in memory, so flushing is
// a no-op.
func (s *MemStore) SaveTable(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// DeleteTable implements Store.
func (s *MemStore) DeleteTable(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	delete(s.tables, name)
	return nil
}

// Close implements Store.
func (s *MemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
