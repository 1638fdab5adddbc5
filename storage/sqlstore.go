package storage

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// sqlSchema holds one msgpack-encoded document per table name. Keeping
// the document opaque avoids per-entity DDL and works on any
// database/sql driver.
const sqlSchema = `CREATE TABLE IF NOT EXISTS burrow_tables (
	name TEXT PRIMARY KEY,
	doc  BLOB NOT NULL
)`

// SQLStore persists table documents through database/sql, one row per
// table.
type SQLStore struct {
	db *sql.DB

	mu     sync.Mutex
	tables map[string]*TableDocument
	closed bool
}

// OpenSQLStore opens a database with the given driver name and DSN and
// prepares the backing table. The driver must be registered by the
// caller (for example by importing modernc.org/sqlite).
func OpenSQLStore(driver, dsn string) (*SQLStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("burrow: storage: open %s: %w", driver, err)
	}
	s, err := OpenSQLStoreDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenSQLStoreDB wraps an existing *sql.DB.
func OpenSQLStoreDB(db *sql.DB) (*SQLStore, error) {
	if _, err := db.Exec(sqlSchema); err != nil {
		return nil, fmt.Errorf("burrow: storage: create schema: %w", err)
	}
	return &SQLStore{db: db, tables: make(map[string]*TableDocument)}, nil
}

// GetTable implements Store.
func (s *SQLStore) GetTable(name string, createIfMissing bool) (*TableDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if doc, ok := s.tables[name]; ok {
		return doc, nil
	}
	var raw []byte
	err := s.db.QueryRow(`SELECT doc FROM burrow_tables WHERE name = ?`, name).Scan(&raw)
	switch {
	case err == sql.ErrNoRows:
		if !createIfMissing {
			return nil, nil
		}
		doc := &TableDocument{Name: name}
		s.tables[name] = doc
		return doc, nil
	case err != nil:
		return nil, fmt.Errorf("burrow: storage: read table %q: %w", name, err)
	}
	doc, err := decodeDoc(name, raw)
	if err != nil {
		return nil, err
	}
	s.tables[name] = doc
	return doc, nil
}

// SaveTable implements Store.
func (s *SQLStore) SaveTable(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	doc, ok := s.tables[name]
	if !ok {
		return fmt.Errorf("burrow: storage: save of unknown table %q", name)
	}
	raw, err := msgpack.Marshal(fileDoc{Records: doc.Records})
	if err != nil {
		return fmt.Errorf("burrow: storage: encode table %q: %w", name, err)
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("burrow: storage: save table %q: %w", name, err)
	}
	if _, err := tx.Exec(`DELETE FROM burrow_tables WHERE name = ?`, name); err != nil {
		tx.Rollback()
		return fmt.Errorf("burrow: storage: save table %q: %w", name, err)
	}
	if _, err := tx.Exec(`INSERT INTO burrow_tables (name, doc) VALUES (?, ?)`, name, raw); err != nil {
		tx.Rollback()
		return fmt.Errorf("burrow: storage: save table %q: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("burrow: storage: save table %q: %w", name, err)
	}
	return nil
}

// DeleteTable implements Store.
func (s *SQLStore) DeleteTable(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	delete(s.tables, name)
	if _, err := s.db.Exec(`DELETE FROM burrow_tables WHERE name = ?`, name); err != nil {
		return fmt.Errorf("burrow: storage: delete table %q: %w", name, err)
	}
	return nil
}

// Close implements Store.
func (s *SQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
