package storage_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burrowdb/burrow/storage"
)

func TestTableDocument(t *testing.T) {
	doc := &storage.TableDocument{Name: "cars"}
	doc.Insert(storage.Record{"id": "1", "price": "20000"})
	doc.Insert(storage.Record{"id": "2", "price": "50000"})
	doc.Insert(storage.Record{"id": "3", "price": "50000"})

	t.Run("Lookup", func(t *testing.T) {
		rec := doc.Lookup("id", "2")
		require.NotNil(t, rec)
		assert.Equal(t, "50000", rec["price"])
		assert.Nil(t, doc.Lookup("id", "9"))
	})

	t.Run("Select", func(t *testing.T) {
		assert.Len(t, doc.Select("price", "50000"), 2)
		assert.Empty(t, doc.Select("price", "1"))
	})

	t.Run("Remove preserves order", func(t *testing.T) {
		d := &storage.TableDocument{Name: "n"}
		d.Insert(storage.Record{"id": "1"})
		d.Insert(storage.Record{"id": "2"})
		d.Insert(storage.Record{"id": "3"})
		removed := d.Remove(func(r storage.Record) bool { return r["id"] == "2" })
		assert.Equal(t, 1, removed)
		require.Len(t, d.Records, 2)
		assert.Equal(t, "1", d.Records[0]["id"])
		assert.Equal(t, "3", d.Records[1]["id"])
	})

	t.Run("Clone", func(t *testing.T) {
		r := storage.Record{"id": "1"}
		c := r.Clone()
		c["id"] = "2"
		assert.Equal(t, "1", r["id"])
	})
}

func TestMemStore(t *testing.T) {
	s := storage.NewMemStore()

	t.Run("missing without create", func(t *testing.T) {
		doc, err := s.GetTable("cars", false)
		require.NoError(t, err)
		assert.Nil(t, doc)
	})

	t.Run("create and reuse instance", func(t *testing.T) {
		doc, err := s.GetTable("cars", true)
		require.NoError(t, err)
		require.NotNil(t, doc)
		doc.Insert(storage.Record{"id": "1"})

		again, err := s.GetTable("cars", false)
		require.NoError(t, err)
		assert.Same(t, doc, again)
		require.NoError(t, s.SaveTable("cars"))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.DeleteTable("cars"))
		doc, err := s.GetTable("cars", false)
		require.NoError(t, err)
		assert.Nil(t, doc)
	})

	t.Run("closed", func(t *testing.T) {
		require.NoError(t, s.Close())
		_, err := s.GetTable("cars", true)
		assert.ErrorIs(t, err, storage.ErrClosed)
		assert.ErrorIs(t, s.SaveTable("cars"), storage.ErrClosed)
		assert.ErrorIs(t, s.DeleteTable("cars"), storage.ErrClosed)
	})
}

func TestMemoryCache(t *testing.T) {
	c := storage.NewMemoryCache()

	_, ok := c.Get("cars")
	assert.False(t, ok)

	c.Set("cars", []byte("abc"))
	got, ok := c.Get("cars")
	assert.True(t, ok)
	assert.Equal(t, []byte("abc"), got)

	c.Delete("cars")
	_, ok = c.Get("cars")
	assert.False(t, ok)

	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))
	c.Clear()
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestStatsStore(t *testing.T) {
	s := storage.NewStatsStore(storage.NewMemStore())

	_, err := s.GetTable("cars", true)
	require.NoError(t, err)
	require.NoError(t, s.SaveTable("cars"))
	require.NoError(t, s.DeleteTable("cars"))

	snap := s.StoreStats().Stats()
	assert.Equal(t, int64(1), snap.Reads)
	assert.Equal(t, int64(1), snap.Writes)
	assert.Equal(t, int64(1), snap.Deletes)
	assert.Equal(t, int64(0), snap.Errors)
	assert.Contains(t, snap.String(), "reads=1")

	s.StoreStats().Reset()
	assert.Equal(t, int64(0), s.StoreStats().Stats().Reads)
}

func TestStatsStoreSlowHook(t *testing.T) {
	var slowOp, slowTable string
	s := storage.NewStatsStore(storage.NewMemStore(),
		storage.WithSlowThreshold(-time.Second),
		storage.WithSlowOpHook(func(op, table string, d time.Duration) {
			slowOp, slowTable = op, table
		}),
	)
	_, err := s.GetTable("cars", true)
	require.NoError(t, err)

	assert.Equal(t, "get", slowOp)
	assert.Equal(t, "cars", slowTable)
	assert.Equal(t, int64(1), s.StoreStats().Stats().SlowOps)
}

func TestStatsStoreErrors(t *testing.T) {
	mem := storage.NewMemStore()
	require.NoError(t, mem.Close())
	s := storage.NewStatsStore(mem)

	_, err := s.GetTable("cars", true)
	assert.Error(t, err)
	assert.Equal(t, int64(1), s.StoreStats().Stats().Errors)
}

func TestConfig(t *testing.T) {
	t.Run("load yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "burrow.yaml")
		require.NoError(t, os.WriteFile(path, []byte("driver: file\npath: ./data\nwatch: true\n"), 0o644))

		cfg, err := storage.LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, storage.DriverFile, cfg.Driver)
		assert.Equal(t, "./data", cfg.Path)
		assert.True(t, cfg.Watch)
	})

	t.Run("open memory by default", func(t *testing.T) {
		s, err := (&storage.Config{}).Open()
		require.NoError(t, err)
		assert.IsType(t, &storage.MemStore{}, s)
		require.NoError(t, s.Close())
	})

	t.Run("open file", func(t *testing.T) {
		cfg := &storage.Config{Driver: storage.DriverFile, Path: t.TempDir()}
		s, err := cfg.Open()
		require.NoError(t, err)
		assert.IsType(t, &storage.FileStore{}, s)
		require.NoError(t, s.Close())
	})

	t.Run("file without path", func(t *testing.T) {
		_, err := (&storage.Config{Driver: storage.DriverFile}).Open()
		assert.Error(t, err)
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := (&storage.Config{Driver: "bolt"}).Open()
		assert.Error(t, err)
	})
}
