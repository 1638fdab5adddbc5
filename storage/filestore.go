package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/vmihailenco/msgpack/v5"
)

const fileExt = ".msgpack"

// fileDoc is the on-disk envelope of a table document.
type fileDoc struct {
	Records []Record `msgpack:"records"`
}

// FileStore persists one msgpack-encoded file per table under a
// directory. With WithWatch it reloads tables whose files are modified
// by another process.
type FileStore struct {
	dir    string
	cache  Cache
	logger *slog.Logger

	mu     sync.Mutex
	tables map[string]*TableDocument
	closed bool

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithCache sets the write-avoidance cache. Without one, every
// SaveTable rewrites the file.
func WithCache(c Cache) FileOption {
	return func(s *FileStore) { s.cache = c }
}

// WithLogger sets the logger used for watch-reload events.
func WithLogger(l *slog.Logger) FileOption {
	return func(s *FileStore) { s.logger = l }
}

// WithWatch reloads tables from disk when their files change outside
// this store.
func WithWatch() FileOption {
	return func(s *FileStore) { s.done = make(chan struct{}) }
}

// OpenFileStore opens (creating if needed) a file store rooted at dir.
func OpenFileStore(dir string, opts ...FileOption) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("burrow: storage: %w", err)
	}
	s := &FileStore{
		dir:    dir,
		tables: make(map[string]*TableDocument),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.done != nil {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, fmt.Errorf("burrow: storage: %w", err)
		}
		if err := w.Add(dir); err != nil {
			w.Close()
			return nil, fmt.Errorf("burrow: storage: %w", err)
		}
		s.watcher = w
		go s.watch()
	}
	return s, nil
}

// GetTable implements Store.
func (s *FileStore) GetTable(name string, createIfMissing bool) (*TableDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if doc, ok := s.tables[name]; ok {
		return doc, nil
	}
	raw, err := os.ReadFile(s.path(name))
	if os.IsNotExist(err) {
		if !createIfMissing {
			return nil, nil
		}
		doc := &TableDocument{Name: name}
		s.tables[name] = doc
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("burrow: storage: read table %q: %w", name, err)
	}
	doc, err := decodeDoc(name, raw)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(name, raw)
	}
	s.tables[name] = doc
	return doc, nil
}

// SaveTable implements Store. The write is skipped when the encoding
// matches the cached copy of the last flush.
func (s *FileStore) SaveTable(name string) error {
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
	if unchanged(s.cache, name, raw) {
		return nil
	}
	if err := os.WriteFile(s.path(name), raw, 0o644); err != nil {
		return fmt.Errorf("burrow: storage: write table %q: %w", name, err)
	}
	if s.cache != nil {
		s.cache.Set(name, raw)
	}
	return nil
}

// DeleteTable implements Store.
func (s *FileStore) DeleteTable(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	delete(s.tables, name)
	if s.cache != nil {
		s.cache.Delete(name)
	}
	if err := os.Remove(s.path(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("burrow: storage: delete table %q: %w", name, err)
	}
	return nil
}

// Close implements Store.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.watcher != nil {
		close(s.done)
		return s.watcher.Close()
	}
	return nil
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name+fileExt)
}

// watch reloads table documents whose backing files change. Reloads
// replace the document's record slice in place so handed-out pointers
// stay valid.
func (s *FileStore) watch() {
	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			name := strings.TrimSuffix(filepath.Base(ev.Name), fileExt)
			if !strings.HasSuffix(ev.Name, fileExt) {
				continue
			}
			if err := s.reload(name); err != nil {
				s.logger.Warn("table reload failed", "table", name, "err", err)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("file watch error", "err", err)
		}
	}
}

func (s *FileStore) reload(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.tables[name]
	if !ok || s.closed {
		return nil
	}
	raw, err := os.ReadFile(s.path(name))
	if err != nil {
		return err
	}
	if unchanged(s.cache, name, raw) {
		// Our own flush.
		return nil
	}
	fresh, err := decodeDoc(name, raw)
	if err != nil {
		return err
	}
	doc.Records = fresh.Records
	if s.cache != nil {
		s.cache.Set(name, raw)
	}
	s.logger.Debug("table reloaded", "table", name, "records", len(doc.Records))
	return nil
}

func decodeDoc(name string, raw []byte) (*TableDocument, error) {
	var fd fileDoc
	if err := msgpack.Unmarshal(raw, &fd); err != nil {
		return nil, fmt.Errorf("burrow: storage: decode table %q: %w", name, err)
	}
	return &TableDocument{Name: name, Records: fd.Records}, nil
}
