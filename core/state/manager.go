package state

import (
	"errors"
	"fmt"
	"sort"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"nftmarket/storage"
)

// Manager exposes RLP-encoded records over a keccak-hashed keyspace. Writes go
// to an in-memory journal first; Commit flushes the journal to the backing
// database in a single batch and Discard drops it. Reads observe the journal
// before the database so a transaction sees its own writes.
//
// Manager is not safe for concurrent use. The ledger serializes access.
type Manager struct {
	db      storage.Database
	journal map[string]journalEntry
}

type journalEntry struct {
	value   []byte
	deleted bool
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db, journal: make(map[string]journalEntry)}
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

func (m *Manager) read(hashed []byte) ([]byte, error) {
	if entry, ok := m.journal[string(hashed)]; ok {
		if entry.deleted {
			return nil, nil
		}
		return entry.value, nil
	}
	data, err := m.db.Get(hashed)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return data, err
}

// KVPut stores the RLP encoding of value under key.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	m.journal[string(kvKey(key))] = journalEntry{value: encoded}
	return nil
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.read(kvKey(key))
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVHas reports whether a value exists under key.
func (m *Manager) KVHas(key []byte) (bool, error) {
	return m.KVGet(key, nil)
}

// KVDelete removes the value stored under key. Deleting an absent key is a
// no-op.
func (m *Manager) KVDelete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	m.journal[string(kvKey(key))] = journalEntry{deleted: true}
	return nil
}

// Dirty reports the number of pending journal entries.
func (m *Manager) Dirty() int {
	return len(m.journal)
}

// Commit writes every pending change to the database atomically and clears
// the journal. Keys are written in sorted order so that identical journals
// always produce identical batches.
func (m *Manager) Commit() error {
	if len(m.journal) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m.journal))
	for key := range m.journal {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	batch := m.db.NewBatch()
	for _, key := range keys {
		entry := m.journal[key]
		if entry.deleted {
			batch.Delete([]byte(key))
			continue
		}
		batch.Put([]byte(key), entry.value)
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("state: commit: %w", err)
	}
	m.journal = make(map[string]journalEntry)
	return nil
}

// Discard drops every pending change.
func (m *Manager) Discard() {
	m.journal = make(map[string]journalEntry)
}
