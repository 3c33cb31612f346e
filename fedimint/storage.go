package fedimint

import (
	"bytes"
	"encoding/gob"
	"encoding/hex"
	"sync/atomic"
)

// WalletKV is the wallet-wide external storage this adapter snapshots
// into: opaque versioned point writes. Keys used by this package:
// "fedimints/<federation_id>" (written by this adapter) and
// "federation-registry" (read by LoadRegistry).
type WalletKV interface {
	GetData(key string) (*VersionedValue, error)
	SetData(key string, value VersionedValue, expectedVersion *uint32) error
}

// StorageAdapter presents the RawDatabase/RawTransaction shape the
// embedded federated-mint client expects, backed by an in-memory working
// set that is snapshotted to external WalletKV storage on every commit.
type StorageAdapter struct {
	mem          *memKV
	external     WalletKV
	federationID string
	version      atomic.Uint32
	logger       Logger
}

var _ RawDatabase = (*StorageAdapter)(nil)

// NewStorageAdapter constructs an adapter for one federation, replaying
// any previously persisted snapshot into the in-memory working set. A
// snapshot present but undecodable is fatal — corruption is not silently
// healed.
func NewStorageAdapter(external WalletKV, federationID string, logger Logger) (*StorageAdapter, error) {
	if logger == nil {
		logger = NewLogger()
	}
	logger.Debugf("fedimint storage: initializing for federation %s", federationID)

	s := &StorageAdapter{
		mem:          newMemKV(),
		external:     external,
		federationID: federationID,
		logger:       logger,
	}

	existing, err := external.GetData(snapshotKey(federationID))
	if err != nil {
		return nil, errRead(err)
	}
	if existing == nil {
		return s, nil
	}

	if existing.Value != "" {
		raw, err := hex.DecodeString(existing.Value)
		if err != nil {
			panic("fedimint storage: unparsable hex in federation snapshot: " + err.Error())
		}
		pairs, err := decodePairs(raw)
		if err != nil {
			panic("fedimint storage: unparsable snapshot payload: " + err.Error())
		}
		txn := s.mem.begin()
		for _, kv := range pairs {
			txn.Insert(kv.Key, kv.Value)
		}
		txn.Commit()
	}
	s.version.Store(existing.Version)
	logger.Debugf("fedimint storage: loaded federation %s at version %d", federationID, existing.Version)
	return s, nil
}

func decodePairs(raw []byte) ([]KV, error) {
	var pairs []KV
	dec := gob.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&pairs); err != nil {
		return nil, err
	}
	return pairs, nil
}

func encodePairs(pairs []KV) ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(pairs); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BeginTransaction starts a transaction against the in-memory working
// set. All reads/writes/prefix-scans delegate to it verbatim.
func (s *StorageAdapter) BeginTransaction() RawTransaction {
	return &storageTxn{adapter: s, txn: s.mem.begin()}
}

type storageTxn struct {
	adapter *StorageAdapter
	txn     *memTxn
}

var _ RawTransaction = (*storageTxn)(nil)

func (t *storageTxn) Insert(key, value []byte) []byte           { return t.txn.Insert(key, value) }
func (t *storageTxn) Get(key []byte) ([]byte, bool)              { return t.txn.Get(key) }
func (t *storageTxn) Remove(key []byte) []byte                   { return t.txn.Remove(key) }
func (t *storageTxn) FindByPrefix(prefix []byte) []KV            { return t.txn.FindByPrefix(prefix) }
func (t *storageTxn) FindByPrefixSortedDescending(p []byte) []KV { return t.txn.FindByPrefixDesc(p) }
func (t *storageTxn) RemoveByPrefix(prefix []byte)               { t.txn.RemoveByPrefix(prefix) }
func (t *storageTxn) SetSavepoint()                              { t.txn.SetSavepoint() }
func (t *storageTxn) RollbackToSavepoint()                       { t.txn.RollbackToSavepoint() }

// Commit snapshots the entire working set and persists it as a single
// versioned replace: the external KV only supports versioned point
// writes, not ranged/incremental updates, so every commit is an atomic
// full-image replace rather than a partial diff.
func (t *storageTxn) Commit() error {
	pairs := t.txn.FindByPrefix(nil)
	t.txn.Commit()

	raw, err := encodePairs(pairs)
	if err != nil {
		return errWrite(err)
	}
	hexValue := hex.EncodeToString(raw)

	newVersion := t.adapter.version.Add(1)
	value := VersionedValue{Version: newVersion, Value: hexValue}
	if err := t.adapter.external.SetData(snapshotKey(t.adapter.federationID), value, &newVersion); err != nil {
		return errWrite(err)
	}
	t.adapter.logger.Debugf("fedimint storage: committed federation %s at version %d (%d entries)",
		t.adapter.federationID, newVersion, len(pairs))
	return nil
}
