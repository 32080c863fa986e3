package storage

import "strings"

// MemoryDB implements DB using an in-memory map.
type MemoryDB struct {
	data map[string][]byte
}

// NewMemory creates a new in-memory database.
func NewMemory() *MemoryDB {
	return &MemoryDB{
		data: make(map[string][]byte),
	}
}

// Get retrieves a value by key. Returns ErrNotFound if the key does not
// exist.
func (m *MemoryDB) Get(key []byte) ([]byte, error) {
	v, ok := m.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

// Put stores a key-value pair.
func (m *MemoryDB) Put(key, value []byte) error {
	m.data[string(key)] = value
	return nil
}

// Delete removes a key.
func (m *MemoryDB) Delete(key []byte) error {
	delete(m.data, string(key))
	return nil
}

// Has checks if a key exists.
func (m *MemoryDB) Has(key []byte) (bool, error) {
	_, ok := m.data[string(key)]
	return ok, nil
}

// ForEach iterates over all keys with the given prefix.
func (m *MemoryDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	p := string(prefix)
	for k, v := range m.data {
		if strings.HasPrefix(k, p) {
			if err := fn([]byte(k), v); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes the database.
func (m *MemoryDB) Close() error {
	return nil
}

// NewBatch returns a Batch over the in-memory map. Go's builtin map has no
// transaction primitive, so this stages mutations in a local map and
// applies them to m in one pass on Commit — atomic in the sense that no
// partial batch is ever visible to a reader between staged Puts/Deletes
// (there's only one goroutine touching m, the writer), but unlike
// BadgerDB it cannot roll back once Commit has started applying entries.
// Tests use this; the daemon always runs on BadgerDB.
func (m *MemoryDB) NewBatch() Batch {
	return &memoryBatch{db: m, puts: make(map[string][]byte), deletes: make(map[string]bool)}
}

type memoryBatch struct {
	db      *MemoryDB
	puts    map[string][]byte
	deletes map[string]bool
}

func (mb *memoryBatch) Put(key, value []byte) error {
	k := string(key)
	delete(mb.deletes, k)
	v := make([]byte, len(value))
	copy(v, value)
	mb.puts[k] = v
	return nil
}

func (mb *memoryBatch) Delete(key []byte) error {
	k := string(key)
	delete(mb.puts, k)
	mb.deletes[k] = true
	return nil
}

func (mb *memoryBatch) Commit() error {
	for k := range mb.deletes {
		delete(mb.db.data, k)
	}
	for k, v := range mb.puts {
		mb.db.data[k] = v
	}
	return nil
}
