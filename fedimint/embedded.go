package fedimint

// This file is the seam between this core and the embedded
// federated-mint client library it calls: the surface that library
// exposes, named as interfaces rather than implemented. A real binding
// to that library satisfies these; embedded_reference.go provides a
// scripted double used only by this package's own tests.

// OperationID names one long-running action in the embedded client's
// operation log.
type OperationID [32]byte

// RawDatabase is the transactional, prefix-scannable database contract
// the embedded federated-mint client expects from its host. The storage
// adapter in storage.go implements this.
type RawDatabase interface {
	BeginTransaction() RawTransaction
}

// RawTransaction is one transaction against a RawDatabase.
type RawTransaction interface {
	Insert(key, value []byte) []byte
	Get(key []byte) ([]byte, bool)
	Remove(key []byte) []byte
	FindByPrefix(prefix []byte) []KV
	FindByPrefixSortedDescending(prefix []byte) []KV
	RemoveByPrefix(prefix []byte)
	SetSavepoint()
	RollbackToSavepoint()
	Commit() error
}

// FederationInfo is what an invite code resolves to: enough metadata to
// bootstrap a new membership.
type FederationInfo struct {
	ID         FederationID
	InviteCode string
}

// PayType distinguishes an outbound payment the federation settled
// internally (receiver is also a member) from one that left over
// Lightning.
type PayType int

const (
	PayInternal PayType = iota
	PayLightning
)

// OutgoingPayment is what initiating a payment returns before its
// outcome is known.
type OutgoingPayment struct {
	Type       PayType
	OperationID OperationID
	FeeSats    uint64
}

// LightningOperationMetaVariant tags what an operation-log entry's
// Lightning-module metadata describes.
type LightningOperationMetaVariant int

const (
	VariantPay LightningOperationMetaVariant = iota
	VariantReceive
)

// LightningOperationMeta is the decoded metadata of one Lightning-module
// operation-log entry.
type LightningOperationMeta struct {
	Variant LightningOperationMetaVariant
	Invoice Bolt11Invoice
}

// OperationLogRecord is one entry from the embedded client's operation
// log, paired with its key.
type OperationLogRecord struct {
	OperationID  OperationID
	ModuleKind   string
	LightningMeta LightningOperationMeta
}

// LightningModuleKind is the operation_module_kind() this core matches
// against to recognize Lightning-module entries.
const LightningModuleKind = "ln"

// UpdateStreamOrOutcome models the embedded client's
// "already resolved, or a live stream of updates" return shape for a
// subscription. Exactly one of Resolved/Stream is set.
type UpdateStreamOrOutcome[T any] struct {
	Resolved *T
	Stream   <-chan T
}

// WalletModule is the subset of the embedded wallet module this core
// calls: verifying the federation's chain matches the wallet's.
type WalletModule interface {
	Network() string
}

// LightningModule is the subset of the embedded Lightning module this
// core calls.
type LightningModule interface {
	CreateBolt11Invoice(amountMsat uint64, description string, labels []string) (OperationID, Bolt11Invoice, error)
	PayBolt11Invoice(invoice Bolt11Invoice) (OutgoingPayment, error)
	SubscribeLnPay(id OperationID) (UpdateStreamOrOutcome[LnPayUpdate], error)
	SubscribeInternalPay(id OperationID) (UpdateStreamOrOutcome[InternalPayUpdate], error)
	SubscribeLnReceive(id OperationID) (UpdateStreamOrOutcome[LnReceiveUpdate], error)
}

// OperationLog is the embedded client's journal of long-running actions.
type OperationLog interface {
	ListOperations(max int, cursor *OperationID) []OperationLogRecord
}

// EmbeddedClient is one instantiated federated-mint client, scoped to a
// single federation membership.
type EmbeddedClient interface {
	FederationID() FederationID
	GetMeta(name string) (string, bool)
	GetBalanceMsat() uint64
	WalletModule() WalletModule
	LightningModule() LightningModule
	OperationLog() OperationLog
}

// ClientBuilder resolves invite codes and instantiates embedded clients
// atop a caller-supplied RawDatabase and per-federation secret.
type ClientBuilder interface {
	ResolveInvite(code string) (*FederationInfo, error)
	// ConfigPresent reports whether db already holds a federation config,
	// i.e. whether this is a resuming membership rather than a fresh join.
	ConfigPresent(db RawDatabase) bool
	// Build instantiates the client. info is nil when resuming (ConfigPresent
	// returned true) and non-nil when bootstrapping a fresh membership.
	Build(uuid string, info *FederationInfo, db RawDatabase, secret DerivableSecret) (EmbeddedClient, error)
}
