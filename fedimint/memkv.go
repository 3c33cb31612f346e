package fedimint

import (
	"bytes"
	"sort"
	"sync"
)

// memKV is the volatile in-memory ordered byte-key/byte-value map that
// serves as the authoritative working set for one federation's storage
// adapter. The caller that hands out transactions is expected to
// serialize its own use of them; the mutex here only protects individual
// map operations from concurrent access, the same way a plain
// sync.Mutex-guarded cache would, and is never held across a whole
// transaction's lifetime — an open transaction that is never committed
// must not be able to block any other transaction.
type memKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string][]byte)}
}

// memTxn is a transaction against a memKV. Savepoints are kept as a
// stack of full copies of the working set, which is cheap enough here
// because one federation's key space (mint notes, pending operations)
// stays small.
type memTxn struct {
	kv        *memKV
	snapshots []map[string][]byte
}

func (kv *memKV) begin() *memTxn {
	return &memTxn{kv: kv}
}

func cloneMap(m map[string][]byte) map[string][]byte {
	out := make(map[string][]byte, len(m))
	for k, v := range m {
		cp := make([]byte, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}

// Insert stores key->value, returning the previous value if present.
func (t *memTxn) Insert(key, value []byte) []byte {
	t.kv.mu.Lock()
	defer t.kv.mu.Unlock()
	k := string(key)
	old := t.kv.data[k]
	v := make([]byte, len(value))
	copy(v, value)
	t.kv.data[k] = v
	return old
}

// Get returns the value for key, if present.
func (t *memTxn) Get(key []byte) ([]byte, bool) {
	t.kv.mu.Lock()
	defer t.kv.mu.Unlock()
	v, ok := t.kv.data[string(key)]
	return v, ok
}

// Remove deletes key, returning its prior value if present.
func (t *memTxn) Remove(key []byte) []byte {
	t.kv.mu.Lock()
	defer t.kv.mu.Unlock()
	k := string(key)
	old, ok := t.kv.data[k]
	if !ok {
		return nil
	}
	delete(t.kv.data, k)
	return old
}

// collect must be called with t.kv.mu held.
func (t *memTxn) collect(prefix []byte) []KV {
	var out []KV
	p := string(prefix)
	for k, v := range t.kv.data {
		if len(p) == 0 || (len(k) >= len(p) && k[:len(p)] == p) {
			cp := make([]byte, len(v))
			copy(cp, v)
			out = append(out, KV{Key: []byte(k), Value: cp})
		}
	}
	return out
}

// FindByPrefix returns matching entries in ascending key order.
func (t *memTxn) FindByPrefix(prefix []byte) []KV {
	t.kv.mu.Lock()
	out := t.collect(prefix)
	t.kv.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].Key, out[j].Key) < 0 })
	return out
}

// FindByPrefixDesc returns matching entries in descending key order.
func (t *memTxn) FindByPrefixDesc(prefix []byte) []KV {
	t.kv.mu.Lock()
	out := t.collect(prefix)
	t.kv.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].Key, out[j].Key) > 0 })
	return out
}

// RemoveByPrefix deletes every entry whose key starts with prefix.
func (t *memTxn) RemoveByPrefix(prefix []byte) {
	t.kv.mu.Lock()
	defer t.kv.mu.Unlock()
	p := string(prefix)
	for k := range t.kv.data {
		if len(p) == 0 || (len(k) >= len(p) && k[:len(p)] == p) {
			delete(t.kv.data, k)
		}
	}
}

// SetSavepoint pushes a full copy of the current working set.
func (t *memTxn) SetSavepoint() {
	t.kv.mu.Lock()
	defer t.kv.mu.Unlock()
	t.snapshots = append(t.snapshots, cloneMap(t.kv.data))
}

// RollbackToSavepoint restores the most recent savepoint, discarding it.
func (t *memTxn) RollbackToSavepoint() {
	if len(t.snapshots) == 0 {
		return
	}
	t.kv.mu.Lock()
	defer t.kv.mu.Unlock()
	last := t.snapshots[len(t.snapshots)-1]
	t.snapshots = t.snapshots[:len(t.snapshots)-1]
	t.kv.data = cloneMap(last)
}

// Commit finalizes the transaction. A transaction that is never
// committed (a pure read, or an error path that returns early) simply
// drops its savepoint stack; it never holds anything another
// transaction needs.
func (t *memTxn) Commit() {
	t.snapshots = nil
}
