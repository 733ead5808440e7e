package state

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"rentacar/storage"
)

// Manager exposes keyed, RLP-encoded state on top of a storage.Database.
//
// Writes are journaled in memory and only reach the database when Commit is
// called, which applies the whole journal as a single batch. Discard drops the
// journal so a failed call leaves no trace. Reads observe pending writes.
type Manager struct {
	mu      sync.RWMutex
	db      storage.Database
	journal map[string]journalEntry
}

type journalEntry struct {
	value   []byte
	deleted bool
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{
		db:      db,
		journal: make(map[string]journalEntry),
	}
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

func (m *Manager) read(hashed []byte) ([]byte, bool, error) {
	if entry, ok := m.journal[string(hashed)]; ok {
		if entry.deleted {
			return nil, false, nil
		}
		return entry.value, true, nil
	}
	data, err := m.db.Get(hashed)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, len(data) > 0, nil
}

// KVPut stores the RLP encoding of value under the supplied key.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("kv: encode: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.journal[string(kvKey(key))] = journalEntry{value: encoded}
	return nil
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state. A nil destination only checks existence.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	m.mu.RLock()
	data, ok, err := m.read(kvKey(key))
	m.mu.RUnlock()
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, fmt.Errorf("kv: decode: %w", err)
	}
	return true, nil
}

// KVDelete removes the value stored under key. Removing a missing key is a
// no-op.
func (m *Manager) KVDelete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.journal[string(kvKey(key))] = journalEntry{deleted: true}
	return nil
}

// Pending reports the number of journaled writes awaiting Commit.
func (m *Manager) Pending() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.journal)
}

// Commit flushes every journaled write to the database atomically and clears
// the journal. On error the journal is kept so the caller may Discard it.
func (m *Manager) Commit() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.journal) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m.journal))
	for k := range m.journal {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	batch := m.db.NewBatch()
	for _, k := range keys {
		entry := m.journal[k]
		if entry.deleted {
			batch.Delete([]byte(k))
			continue
		}
		batch.Put([]byte(k), entry.value)
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("kv: commit: %w", err)
	}
	m.journal = make(map[string]journalEntry)
	return nil
}

// Discard drops all journaled writes.
func (m *Manager) Discard() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.journal = make(map[string]journalEntry)
}
