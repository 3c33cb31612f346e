package fedimint

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Logger is the level-tagged line sink this core logs through.
// *logrus.Logger satisfies it directly.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// NewLogger returns a logrus logger with the wallet's default level.
func NewLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	return l
}

// PaymentStore is the external payment ledger this core reads and writes
// through. Inbound and outbound payments are namespaced separately; both
// may exist for the same hash. GetPaymentInfo's bool return reports
// whether the record is inbound; it returns a NotFound FedError when
// hash has no record in either namespace.
type PaymentStore interface {
	PersistPaymentInfo(hash [32]byte, info PaymentInfo, inbound bool) error
	GetPaymentInfo(hash [32]byte) (PaymentInfo, bool, error)
	ListPaymentInfo(inbound bool) ([]PaymentRecord, error)
}

// InMemoryWalletKV is a reference WalletKV used by this package's own
// tests and as a minimal standalone backend.
type InMemoryWalletKV struct {
	mu   sync.Mutex
	data map[string]VersionedValue
}

func NewInMemoryWalletKV() *InMemoryWalletKV {
	return &InMemoryWalletKV{data: make(map[string]VersionedValue)}
}

func (k *InMemoryWalletKV) GetData(key string) (*VersionedValue, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	v, ok := k.data[key]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

// SetData performs an optimistic versioned write: expectedVersion must
// equal the value's own Version (the caller always computes it as the
// post-increment version, so this simply records it).
func (k *InMemoryWalletKV) SetData(key string, value VersionedValue, expectedVersion *uint32) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if expectedVersion != nil && value.Version != *expectedVersion {
		return fmt.Errorf("version mismatch: value.Version=%d expected=%d", value.Version, *expectedVersion)
	}
	k.data[key] = value
	return nil
}

// InMemoryPaymentStore is a reference PaymentStore for tests.
type InMemoryPaymentStore struct {
	mu       sync.Mutex
	inbound  map[[32]byte]PaymentInfo
	outbound map[[32]byte]PaymentInfo
}

func NewInMemoryPaymentStore() *InMemoryPaymentStore {
	return &InMemoryPaymentStore{
		inbound:  make(map[[32]byte]PaymentInfo),
		outbound: make(map[[32]byte]PaymentInfo),
	}
}

func (p *InMemoryPaymentStore) PersistPaymentInfo(hash [32]byte, info PaymentInfo, inbound bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if inbound {
		p.inbound[hash] = info
	} else {
		p.outbound[hash] = info
	}
	return nil
}

func (p *InMemoryPaymentStore) GetPaymentInfo(hash [32]byte) (PaymentInfo, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if info, ok := p.outbound[hash]; ok {
		return info, false, nil
	}
	if info, ok := p.inbound[hash]; ok {
		return info, true, nil
	}
	return PaymentInfo{}, false, errNotFound(fmt.Sprintf("no payment record for hash %x", hash))
}

func (p *InMemoryPaymentStore) ListPaymentInfo(inbound bool) ([]PaymentRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	src := p.outbound
	if inbound {
		src = p.inbound
	}
	out := make([]PaymentRecord, 0, len(src))
	for h, info := range src {
		out = append(out, PaymentRecord{Hash: h, Info: info})
	}
	return out, nil
}
