package fedimint

import "fmt"

// This file is a scripted double for the embedded-client boundary in
// embedded.go, used only by this package's own tests. It simulates just
// enough of the embedded library's observable behavior to drive the
// federation client and translator's state machine — no guardian
// consensus, no e-cash note issuance, just scripted return values.

// ReferenceBuilder is a ClientBuilder double whose invite resolution and
// built client are supplied by the test.
type ReferenceBuilder struct {
	Invites    map[string]*FederationInfo
	Client     EmbeddedClient
	Resuming   bool
	ResolveErr error
	BuildErr   error
}

func (b *ReferenceBuilder) ResolveInvite(code string) (*FederationInfo, error) {
	if b.ResolveErr != nil {
		return nil, b.ResolveErr
	}
	info, ok := b.Invites[code]
	if !ok {
		return nil, fmt.Errorf("unknown invite code %q", code)
	}
	return info, nil
}

func (b *ReferenceBuilder) ConfigPresent(db RawDatabase) bool { return b.Resuming }

func (b *ReferenceBuilder) Build(uuid string, info *FederationInfo, db RawDatabase, secret DerivableSecret) (EmbeddedClient, error) {
	if b.BuildErr != nil {
		return nil, b.BuildErr
	}
	return b.Client, nil
}

// ReferenceClient is an EmbeddedClient double.
type ReferenceClient struct {
	ID          FederationID
	Meta        map[string]string
	BalanceMsat uint64
	Wallet      WalletModule
	Lightning   LightningModule
	Log         OperationLog
}

func (c *ReferenceClient) FederationID() FederationID { return c.ID }

func (c *ReferenceClient) GetMeta(name string) (string, bool) {
	v, ok := c.Meta[name]
	return v, ok
}

func (c *ReferenceClient) GetBalanceMsat() uint64          { return c.BalanceMsat }
func (c *ReferenceClient) WalletModule() WalletModule      { return c.Wallet }
func (c *ReferenceClient) LightningModule() LightningModule { return c.Lightning }
func (c *ReferenceClient) OperationLog() OperationLog      { return c.Log }

// ReferenceWalletModule is a WalletModule double reporting a fixed
// network name.
type ReferenceWalletModule struct{ Net string }

func (w ReferenceWalletModule) Network() string { return w.Net }

// ReferenceOperationLog is an OperationLog double over a fixed slice,
// scripted rather than backed by a real federated-mint journal.
type ReferenceOperationLog struct{ Records []OperationLogRecord }

func (l *ReferenceOperationLog) ListOperations(max int, cursor *OperationID) []OperationLogRecord {
	if max <= 0 || max >= len(l.Records) {
		return l.Records
	}
	return l.Records[:max]
}

// ReferenceLightningModule is a LightningModule double: invoice creation
// and payment initiation are supplied as funcs, and each operation's
// subscribe result is pre-scripted by OperationID.
type ReferenceLightningModule struct {
	CreateInvoiceFn func(amountMsat uint64, description string, labels []string) (OperationID, Bolt11Invoice, error)
	PayFn           func(invoice Bolt11Invoice) (OutgoingPayment, error)

	LnPayStreams       map[OperationID]UpdateStreamOrOutcome[LnPayUpdate]
	InternalPayStreams map[OperationID]UpdateStreamOrOutcome[InternalPayUpdate]
	LnReceiveStreams   map[OperationID]UpdateStreamOrOutcome[LnReceiveUpdate]
	SubscribeErr       map[OperationID]error
}

func (m *ReferenceLightningModule) CreateBolt11Invoice(amountMsat uint64, description string, labels []string) (OperationID, Bolt11Invoice, error) {
	return m.CreateInvoiceFn(amountMsat, description, labels)
}

func (m *ReferenceLightningModule) PayBolt11Invoice(invoice Bolt11Invoice) (OutgoingPayment, error) {
	return m.PayFn(invoice)
}

func (m *ReferenceLightningModule) SubscribeLnPay(id OperationID) (UpdateStreamOrOutcome[LnPayUpdate], error) {
	if err, ok := m.SubscribeErr[id]; ok {
		return UpdateStreamOrOutcome[LnPayUpdate]{}, err
	}
	return m.LnPayStreams[id], nil
}

func (m *ReferenceLightningModule) SubscribeInternalPay(id OperationID) (UpdateStreamOrOutcome[InternalPayUpdate], error) {
	if err, ok := m.SubscribeErr[id]; ok {
		return UpdateStreamOrOutcome[InternalPayUpdate]{}, err
	}
	return m.InternalPayStreams[id], nil
}

func (m *ReferenceLightningModule) SubscribeLnReceive(id OperationID) (UpdateStreamOrOutcome[LnReceiveUpdate], error) {
	if err, ok := m.SubscribeErr[id]; ok {
		return UpdateStreamOrOutcome[LnReceiveUpdate]{}, err
	}
	return m.LnReceiveStreams[id], nil
}
