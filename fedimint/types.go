package fedimint

import (
	"encoding/hex"
	"fmt"
)

// FederationID is the 32-byte content hash the embedded federation
// protocol derives from a federation's configuration. The core treats it
// as opaque beyond hex encoding.
type FederationID [32]byte

func (f FederationID) String() string { return hex.EncodeToString(f[:]) }

// FederationIDFromHex decodes the hex form produced by String.
func FederationIDFromHex(s string) (FederationID, error) {
	var out FederationID
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, fmt.Errorf("decode federation id: %w", err)
	}
	if len(b) != len(out) {
		return out, fmt.Errorf("federation id must be %d bytes, got %d", len(out), len(b))
	}
	copy(out[:], b)
	return out, nil
}

// FedimintsPrefix namespaces every persisted snapshot this adapter writes
// to the wallet's external storage.
const FedimintsPrefix = "fedimints/"

func snapshotKey(federationID string) string { return FedimintsPrefix + federationID }

// VersionedValue is the wallet-wide external KV's unit of storage: an
// optimistic-concurrency version tag plus an opaque string payload. For
// this adapter's snapshot, Value is lowercase hex of the gob-encoded
// (key,value) pair vector (see storage.go).
type VersionedValue struct {
	Version uint32
	Value   string
}

// KV is a single byte-key/byte-value pair, the unit the storage adapter
// snapshots and restores.
type KV struct {
	Key   []byte
	Value []byte
}

// HTLCStatus is the wallet's four-valued payment lifecycle tag.
type HTLCStatus int

const (
	StatusPending HTLCStatus = iota
	StatusInFlight
	StatusSucceeded
	StatusFailed
)

func (s HTLCStatus) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusInFlight:
		return "InFlight"
	case StatusSucceeded:
		return "Succeeded"
	case StatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether status will never change again.
func (s HTLCStatus) IsTerminal() bool { return s == StatusSucceeded || s == StatusFailed }

// Bolt11Invoice is the minimal shape this core needs from the wallet's
// invoice type: a payment hash and the raw bech32 string it travels as.
type Bolt11Invoice struct {
	PaymentHash [32]byte
	Raw         string
	AmountMsat  uint64
}

// MutinyInvoice mirrors the wallet-facing payment record this core reads
// and writes. Fields beyond the ones the core inspects are treated as
// opaque pass-through data supplied by callers.
type MutinyInvoice struct {
	PaymentHash [32]byte
	Inbound     bool
	Status      HTLCStatus
	Preimage    string // hex, set only on terminal-success states
	FeesPaidSat *uint64
	Labels      []string
	Bolt11      string
}

// FromInvoice seeds a MutinyInvoice from a freshly created/paid Bolt11
// invoice, the way the embedded client's invoice type converts on the
// Rust side (`invoice.into()`).
func FromInvoice(inv Bolt11Invoice) MutinyInvoice {
	return MutinyInvoice{
		PaymentHash: inv.PaymentHash,
		Status:      StatusPending,
		Bolt11:      inv.Raw,
	}
}

// PaymentInfo is the payment-store record this core reads and writes
// through the external payment store, covering a payment from the
// moment it is first observed through to its terminal outcome.
type PaymentInfo struct {
	Inbound     bool
	Status      HTLCStatus
	Preimage    string
	FeesPaidSat *uint64
	Labels      []string
	Bolt11      string
}

// PaymentRecord pairs a payment hash with its stored info, as returned by
// PaymentStore.ListPaymentInfo.
type PaymentRecord struct {
	Hash [32]byte
	Info PaymentInfo
}

func (i MutinyInvoice) toPaymentInfo() PaymentInfo {
	return PaymentInfo{
		Inbound:     i.Inbound,
		Status:      i.Status,
		Preimage:    i.Preimage,
		FeesPaidSat: i.FeesPaidSat,
		Labels:      i.Labels,
		Bolt11:      i.Bolt11,
	}
}

func fromPaymentInfo(hash [32]byte, p PaymentInfo) MutinyInvoice {
	return MutinyInvoice{
		PaymentHash: hash,
		Inbound:     p.Inbound,
		Status:      p.Status,
		Preimage:    p.Preimage,
		FeesPaidSat: p.FeesPaidSat,
		Labels:      p.Labels,
		Bolt11:      p.Bolt11,
	}
}

// FederationIdentity is the public-facing view of one membership,
// assembled from the embedded client's metadata accessor.
type FederationIdentity struct {
	UUID                      string
	FederationID              FederationID
	FederationName            *string
	FederationExpiryTimestamp *string
	WelcomeMessage            *string
}

// RegistryEntry is one federation's entry in the registry record.
type RegistryEntry struct {
	InviteCode string `json:"invite_code"`
}

// RegistryRecord is the versioned map of membership UUID to invite code
// persisted by a higher layer and read by this core at startup. Version
// is not part of the JSON payload: LoadRegistry fills it from the
// external KV's VersionedValue.Version, the optimistic-concurrency tag
// the record was stored under.
type RegistryRecord struct {
	Federations map[string]RegistryEntry `json:"federations"`
	Version     uint32                   `json:"-"`
}

const RegistryKey = "federation-registry"
