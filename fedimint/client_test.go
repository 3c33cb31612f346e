package fedimint

import (
	"context"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
)

// capturingBuilder is a ClientBuilder double that records the
// bootstrap info NewFederationClient passed to Build, so a test can
// distinguish the resuming branch (info == nil) from the bootstrap
// branch (info != nil) without inspecting embedded-client state.
type capturingBuilder struct {
	resolved    *FederationInfo
	client      EmbeddedClient
	resuming    bool
	resolveErr  error
	buildInfo   *FederationInfo
	buildCalled bool
}

func (b *capturingBuilder) ResolveInvite(code string) (*FederationInfo, error) {
	if b.resolveErr != nil {
		return nil, b.resolveErr
	}
	return b.resolved, nil
}

func (b *capturingBuilder) ConfigPresent(db RawDatabase) bool { return b.resuming }

func (b *capturingBuilder) Build(uuid string, info *FederationInfo, db RawDatabase, secret DerivableSecret) (EmbeddedClient, error) {
	b.buildCalled = true
	b.buildInfo = info
	return b.client, nil
}

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func newTestClient(t *testing.T, payments PaymentStore, log OperationLog, ln LightningModule) *FederationClient {
	t.Helper()
	ref := &ReferenceClient{
		ID:   FederationID{0x42},
		Meta: map[string]string{"federation_name": "Test Federation"},
		Log:  log,
	}
	if ln != nil {
		ref.Lightning = ln
	}
	return &FederationClient{
		uuid:     "test-uuid",
		client:   ref,
		payments: payments,
		logger:   NewLogger(),
		cfg:      DefaultConfig(),
	}
}

// countingOperationLog counts ListOperations calls so a test can assert
// that none were made, e.g. invariant 6 (no pending payments -> zero list
// calls).
type countingOperationLog struct {
	t       *testing.T
	records []OperationLogRecord
	calls   int
}

func (l *countingOperationLog) ListOperations(max int, cursor *OperationID) []OperationLogRecord {
	l.calls++
	return l.records
}

func TestCheckActivity_NoPendingPaymentsSkipsOperationLogListing(t *testing.T) {
	payments := NewInMemoryPaymentStore()
	log := &countingOperationLog{t: t}
	c := newTestClient(t, payments, log, &ReferenceLightningModule{})

	if err := c.CheckActivity(context.Background()); err != nil {
		t.Fatalf("CheckActivity: %v", err)
	}
	if log.calls != 0 {
		t.Fatalf("expected zero operation-log list calls, got %d", log.calls)
	}
}

// S5 — activity reconciliation updates terminal state.
func TestCheckActivity_ReconcilesTerminalSuccess(t *testing.T) {
	hash := [32]byte{0xAA}
	preimage := [32]byte{0xBB, 0xCC}
	opID := OperationID{1}

	payments := NewInMemoryPaymentStore()
	if err := payments.PersistPaymentInfo(hash, PaymentInfo{Inbound: false, Status: StatusInFlight}, false); err != nil {
		t.Fatalf("seed pending payment: %v", err)
	}

	logRecords := []OperationLogRecord{{
		OperationID: opID,
		ModuleKind:  LightningModuleKind,
		LightningMeta: LightningOperationMeta{
			Variant: VariantPay,
			Invoice: Bolt11Invoice{PaymentHash: hash},
		},
	}}
	resolved := LnPayUpdate{State: LnPaySuccess, Preimage: preimage}
	ln := &ReferenceLightningModule{
		LnPayStreams: map[OperationID]UpdateStreamOrOutcome[LnPayUpdate]{
			opID: {Resolved: &resolved},
		},
	}

	c := newTestClient(t, payments, &ReferenceOperationLog{Records: logRecords}, ln)

	if err := c.CheckActivity(context.Background()); err != nil {
		t.Fatalf("CheckActivity: %v", err)
	}

	info, inbound, err := payments.GetPaymentInfo(hash)
	if err != nil {
		t.Fatalf("GetPaymentInfo: %v", err)
	}
	if inbound {
		t.Fatalf("expected outbound record")
	}
	if info.Status != StatusSucceeded {
		t.Fatalf("status = %v, want Succeeded", info.Status)
	}
	if info.Preimage == "" {
		t.Fatalf("expected preimage to be persisted")
	}
}

// A pending record whose hash never turns up in the operation log (no
// matching entry, and one entry from an unrelated module) must still
// fail NotFound once the scan comes up empty, rather than hanging or
// returning a zero-value invoice.
func TestGetInvoiceByHash_UnknownHashYieldsNotFound(t *testing.T) {
	hash := [32]byte{0xFF}
	payments := NewInMemoryPaymentStore()
	if err := payments.PersistPaymentInfo(hash, PaymentInfo{Inbound: false, Status: StatusPending}, false); err != nil {
		t.Fatalf("seed pending payment: %v", err)
	}

	logRecords := []OperationLogRecord{
		{OperationID: OperationID{1}, ModuleKind: "other-module"},
		{
			OperationID: OperationID{2},
			ModuleKind:  LightningModuleKind,
			LightningMeta: LightningOperationMeta{
				Variant: VariantPay,
				Invoice: Bolt11Invoice{PaymentHash: [32]byte{0x01}},
			},
		},
	}
	log := &ReferenceOperationLog{Records: logRecords}
	c := newTestClient(t, payments, log, &ReferenceLightningModule{})

	_, err := c.GetInvoiceByHash(context.Background(), hash)
	if err == nil {
		t.Fatalf("expected an error for a hash absent from the operation log")
	}
	fe, ok := err.(*FedError)
	if !ok {
		t.Fatalf("expected a *FedError, got %T", err)
	}
	if fe.Kind != KindNotFound {
		t.Fatalf("kind = %v, want NotFound", fe.Kind)
	}
}

func TestGetInvoiceByHash_ReturnsStoredTerminalRecordWithoutScanning(t *testing.T) {
	hash := [32]byte{0x11}
	payments := NewInMemoryPaymentStore()
	if err := payments.PersistPaymentInfo(hash, PaymentInfo{Inbound: true, Status: StatusSucceeded, Preimage: "ab"}, true); err != nil {
		t.Fatalf("seed terminal payment: %v", err)
	}
	log := &countingOperationLog{t: t}
	c := newTestClient(t, payments, log, &ReferenceLightningModule{})

	inv, err := c.GetInvoiceByHash(context.Background(), hash)
	if err != nil {
		t.Fatalf("GetInvoiceByHash: %v", err)
	}
	if inv.Status != StatusSucceeded {
		t.Fatalf("status = %v, want Succeeded", inv.Status)
	}
	if log.calls != 0 {
		t.Fatalf("expected no operation-log scan for an already-terminal record, got %d calls", log.calls)
	}
}

func TestNewFederationClient_BootstrapsFreshMembership(t *testing.T) {
	master := masterFromMnemonic(t, testMnemonic, &chaincfg.RegressionNetParams)
	info := &FederationInfo{ID: FederationID{0x01}, InviteCode: "invite1"}
	ref := &ReferenceClient{
		ID:     info.ID,
		Wallet: ReferenceWalletModule{Net: chaincfg.RegressionNetParams.Name},
	}
	builder := &capturingBuilder{resolved: info, client: ref, resuming: false}

	deps := Deps{
		Builder:  builder,
		WalletKV: NewInMemoryWalletKV(),
		Payments: NewInMemoryPaymentStore(),
	}

	c, err := NewFederationClient("wallet-uuid", "invite1", master, &chaincfg.RegressionNetParams, deps)
	if err != nil {
		t.Fatalf("NewFederationClient: %v", err)
	}
	if c.uuid != "wallet-uuid" {
		t.Fatalf("uuid = %q, want wallet-uuid", c.uuid)
	}
	if !builder.buildCalled {
		t.Fatalf("expected Build to be called")
	}
	if builder.buildInfo == nil || *builder.buildInfo != *info {
		t.Fatalf("expected Build to receive the resolved invite info on a fresh membership, got %+v", builder.buildInfo)
	}
}

func TestNewFederationClient_ResumesExistingMembership(t *testing.T) {
	master := masterFromMnemonic(t, testMnemonic, &chaincfg.RegressionNetParams)
	info := &FederationInfo{ID: FederationID{0x02}, InviteCode: "invite2"}
	ref := &ReferenceClient{
		ID:     info.ID,
		Wallet: ReferenceWalletModule{Net: chaincfg.RegressionNetParams.Name},
	}
	builder := &capturingBuilder{resolved: info, client: ref, resuming: true}

	deps := Deps{
		Builder:  builder,
		WalletKV: NewInMemoryWalletKV(),
		Payments: NewInMemoryPaymentStore(),
	}

	if _, err := NewFederationClient("wallet-uuid", "invite2", master, &chaincfg.RegressionNetParams, deps); err != nil {
		t.Fatalf("NewFederationClient: %v", err)
	}
	if builder.buildInfo != nil {
		t.Fatalf("expected Build to receive a nil info when resuming an existing membership, got %+v", builder.buildInfo)
	}
}

func TestNewFederationClient_NetworkMismatchFails(t *testing.T) {
	master := masterFromMnemonic(t, testMnemonic, &chaincfg.RegressionNetParams)
	info := &FederationInfo{ID: FederationID{0x03}, InviteCode: "invite3"}
	ref := &ReferenceClient{
		ID:     info.ID,
		Wallet: ReferenceWalletModule{Net: "some-other-network"},
	}
	builder := &capturingBuilder{resolved: info, client: ref}

	deps := Deps{
		Builder:  builder,
		WalletKV: NewInMemoryWalletKV(),
		Payments: NewInMemoryPaymentStore(),
	}

	_, err := NewFederationClient("wallet-uuid", "invite3", master, &chaincfg.RegressionNetParams, deps)
	if err == nil {
		t.Fatalf("expected a network-mismatch error")
	}
	fe, ok := err.(*FedError)
	if !ok {
		t.Fatalf("expected a *FedError, got %T", err)
	}
	if fe.Kind != KindNetworkMismatch {
		t.Fatalf("kind = %v, want NetworkMismatch", fe.Kind)
	}
}

func TestGetInvoice(t *testing.T) {
	hash := [32]byte{0x77}
	ln := &ReferenceLightningModule{
		CreateInvoiceFn: func(amountMsat uint64, description string, labels []string) (OperationID, Bolt11Invoice, error) {
			if amountMsat != 5000*1000 {
				t.Fatalf("amountMsat = %d, want %d", amountMsat, 5000*1000)
			}
			return OperationID{9}, Bolt11Invoice{PaymentHash: hash, Raw: "lnbc-invoice"}, nil
		},
	}
	payments := NewInMemoryPaymentStore()
	c := newTestClient(t, payments, &ReferenceOperationLog{}, ln)

	inv, err := c.GetInvoice(5000, []string{"coffee"})
	if err != nil {
		t.Fatalf("GetInvoice: %v", err)
	}
	if !inv.Inbound {
		t.Fatalf("expected a freshly issued invoice to be inbound")
	}
	if inv.PaymentHash != hash {
		t.Fatalf("payment hash mismatch")
	}
	if inv.Bolt11 != "lnbc-invoice" {
		t.Fatalf("bolt11 = %q, want lnbc-invoice", inv.Bolt11)
	}
	if inv.Status != StatusPending {
		t.Fatalf("status = %v, want Pending", inv.Status)
	}

	stored, inbound, err := payments.GetPaymentInfo(hash)
	if err != nil {
		t.Fatalf("GetPaymentInfo: %v", err)
	}
	if !inbound {
		t.Fatalf("expected the persisted record to be inbound")
	}
	if stored.Status != StatusPending {
		t.Fatalf("persisted status = %v, want Pending", stored.Status)
	}
}

func TestPayInvoice_SuccessViaLightning(t *testing.T) {
	hash := [32]byte{0x21}
	opID := OperationID{5}
	preimage := [32]byte{0xAB}

	ln := &ReferenceLightningModule{
		PayFn: func(invoice Bolt11Invoice) (OutgoingPayment, error) {
			return OutgoingPayment{Type: PayLightning, OperationID: opID, FeeSats: 7}, nil
		},
		LnPayStreams: map[OperationID]UpdateStreamOrOutcome[LnPayUpdate]{
			opID: {Resolved: &LnPayUpdate{State: LnPaySuccess, Preimage: preimage}},
		},
	}
	payments := NewInMemoryPaymentStore()
	c := newTestClient(t, payments, &ReferenceOperationLog{}, ln)

	result, err := c.PayInvoice(context.Background(), Bolt11Invoice{PaymentHash: hash, Raw: "lnbc-pay"}, []string{"rent"})
	if err != nil {
		t.Fatalf("PayInvoice: %v", err)
	}
	if result.Status != StatusSucceeded {
		t.Fatalf("status = %v, want Succeeded", result.Status)
	}
	if result.FeesPaidSat == nil || *result.FeesPaidSat != 7 {
		t.Fatalf("expected fees paid to be recorded as 7 sats, got %v", result.FeesPaidSat)
	}
	if result.Preimage == "" {
		t.Fatalf("expected a preimage on success")
	}
}

func TestPayInvoice_RoutingFailedOnTerminalFailure(t *testing.T) {
	hash := [32]byte{0x22}
	opID := OperationID{6}

	ln := &ReferenceLightningModule{
		PayFn: func(invoice Bolt11Invoice) (OutgoingPayment, error) {
			return OutgoingPayment{Type: PayLightning, OperationID: opID}, nil
		},
		LnPayStreams: map[OperationID]UpdateStreamOrOutcome[LnPayUpdate]{
			opID: {Resolved: &LnPayUpdate{State: LnPayCanceled}},
		},
	}
	c := newTestClient(t, NewInMemoryPaymentStore(), &ReferenceOperationLog{}, ln)

	_, err := c.PayInvoice(context.Background(), Bolt11Invoice{PaymentHash: hash}, nil)
	if err == nil {
		t.Fatalf("expected a routing-failed error")
	}
	fe, ok := err.(*FedError)
	if !ok {
		t.Fatalf("expected a *FedError, got %T", err)
	}
	if fe.Kind != KindRoutingFailed {
		t.Fatalf("kind = %v, want RoutingFailed", fe.Kind)
	}
}

func TestPayInvoice_PaymentTimeoutOnNonTerminalAtDeadline(t *testing.T) {
	hash := [32]byte{0x23}
	opID := OperationID{7}

	ln := &ReferenceLightningModule{
		PayFn: func(invoice Bolt11Invoice) (OutgoingPayment, error) {
			return OutgoingPayment{Type: PayLightning, OperationID: opID}, nil
		},
		LnPayStreams: map[OperationID]UpdateStreamOrOutcome[LnPayUpdate]{
			opID: {Stream: make(chan LnPayUpdate)},
		},
	}
	c := newTestClient(t, NewInMemoryPaymentStore(), &ReferenceOperationLog{}, ln)
	c.cfg.DefaultPaymentTimeoutMS = 1

	result, err := c.PayInvoice(context.Background(), Bolt11Invoice{PaymentHash: hash}, nil)
	if err == nil {
		t.Fatalf("expected a payment-timeout error")
	}
	fe, ok := err.(*FedError)
	if !ok {
		t.Fatalf("expected a *FedError, got %T", err)
	}
	if fe.Kind != KindPaymentTimeout {
		t.Fatalf("kind = %v, want PaymentTimeout", fe.Kind)
	}
	if result.Status.IsTerminal() {
		t.Fatalf("expected a non-terminal status on timeout, got %v", result.Status)
	}
}

func TestPayInvoice_InternalDispatchForNonLightningType(t *testing.T) {
	hash := [32]byte{0x24}
	opID := OperationID{8}
	preimage := [32]byte{0xCD}

	ln := &ReferenceLightningModule{
		PayFn: func(invoice Bolt11Invoice) (OutgoingPayment, error) {
			return OutgoingPayment{Type: PayInternal, OperationID: opID}, nil
		},
		InternalPayStreams: map[OperationID]UpdateStreamOrOutcome[InternalPayUpdate]{
			opID: {Resolved: &InternalPayUpdate{State: InternalPayPreimage, Preimage: preimage}},
		},
	}
	c := newTestClient(t, NewInMemoryPaymentStore(), &ReferenceOperationLog{}, ln)

	result, err := c.PayInvoice(context.Background(), Bolt11Invoice{PaymentHash: hash}, nil)
	if err != nil {
		t.Fatalf("PayInvoice: %v", err)
	}
	if result.Status != StatusSucceeded {
		t.Fatalf("status = %v, want Succeeded", result.Status)
	}
	if result.Preimage == "" {
		t.Fatalf("expected a preimage from the internal-pay path")
	}
}

func TestGetMutinyFederationIdentity(t *testing.T) {
	c := newTestClient(t, NewInMemoryPaymentStore(), &ReferenceOperationLog{}, &ReferenceLightningModule{})
	id := c.GetMutinyFederationIdentity()
	if id.FederationName == nil || *id.FederationName != "Test Federation" {
		t.Fatalf("expected federation name to be populated, got %+v", id.FederationName)
	}
	if id.FederationExpiryTimestamp != nil {
		t.Fatalf("expected unset metadata to stay nil")
	}
}
