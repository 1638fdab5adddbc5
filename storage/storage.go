// Package storage defines the table-document store the engine persists
// into, together with three drivers: an in-memory store, a
// msgpack-file store and a database/sql backed store. A table document
// is an ordered collection of flat string records; junction tables are
// ordinary documents whose records hold one key column per side.
package storage

import "errors"

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("burrow: storage: store is closed")

// Record is one stored row: field name to string value.
type Record map[string]string

// Clone returns a copy of the record.
func (r Record) Clone() Record {
	c := make(Record, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// TableDocument is the in-memory form of one table. The owning store
// hands out a single mutable instance per table; callers mutate it and
// ask the store to flush it with SaveTable.
type TableDocument struct {
	Name    string
	Records []Record
}

// Lookup returns the first record whose field equals value, or nil.
func (d *TableDocument) Lookup(field, value string) Record {
	for _, r := range d.Records {
		if v, ok := r[field]; ok && v == value {
			return r
		}
	}
	return nil
}

// Select returns all records whose field equals value, in document
// order.
func (d *TableDocument) Select(field, value string) []Record {
	var out []Record
	for _, r := range d.Records {
		if v, ok := r[field]; ok && v == value {
			out = append(out, r)
		}
	}
	return out
}

// Insert appends a record.
func (d *TableDocument) Insert(r Record) {
	d.Records = append(d.Records, r)
}

// Remove deletes every record matching the predicate, preserving the
// order of the rest, and returns the number removed.
func (d *TableDocument) Remove(match func(Record) bool) int {
	kept := d.Records[:0]
	removed := 0
	for _, r := range d.Records {
		if match(r) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	d.Records = kept
	return removed
}

// Store is the table-document store contract the engine runs against.
// Implementations serialize access internally; the engine itself is
// single threaded and performs no concurrency control.
type Store interface {
	// GetTable returns the document for the named table, creating it
	// when createIfMissing is set. A missing table without create
	// returns (nil, nil). Repeated calls return the same instance.
	GetTable(name string, createIfMissing bool) (*TableDocument, error)

	// SaveTable flushes a previously fetched document.
	SaveTable(name string) error

	// DeleteTable drops a table document entirely.
	DeleteTable(name string) error

	// Close releases the store.
	Close() error
}
