package fedimint

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcutil/hdkeychain"
)

// Deps bundles the Federation Client's external collaborators via
// constructor injection: builder, storage, payment store, logger, and
// config all arrive as explicit dependencies rather than globals.
type Deps struct {
	Builder  ClientBuilder
	WalletKV WalletKV
	Payments PaymentStore
	Logger   Logger
	Config   Config
}

// FederationClient represents one federation membership: the embedded
// client, the storage it runs atop, and the collaborators its
// operations read and write through.
type FederationClient struct {
	uuid     string
	client   EmbeddedClient
	storage  *StorageAdapter
	payments PaymentStore
	logger   Logger
	cfg      Config
}

// NewFederationClient resolves an invite code, attaches the storage
// adapter for this federation, derives this wallet's federation secret,
// and instantiates the embedded client, bootstrapping a fresh membership
// or resuming an existing one depending on whether the adapter already
// holds a config.
func NewFederationClient(uuid, inviteCode string, master *hdkeychain.ExtendedKey, net *chaincfg.Params, deps Deps) (*FederationClient, error) {
	if deps.Logger == nil {
		deps.Logger = NewLogger()
	}
	if deps.Config == (Config{}) {
		deps.Config = DefaultConfig()
	}

	info, err := deps.Builder.ResolveInvite(inviteCode)
	if err != nil {
		return nil, errInvalidInvite(err)
	}

	storage, err := NewStorageAdapter(deps.WalletKV, info.ID.String(), deps.Logger)
	if err != nil {
		return nil, err
	}

	resuming := deps.Builder.ConfigPresent(storage)
	var bootstrapInfo *FederationInfo
	if !resuming {
		bootstrapInfo = info
	}

	secret, err := CreateFederationSecret(master, net)
	if err != nil {
		return nil, err
	}

	client, err := deps.Builder.Build(uuid, bootstrapInfo, storage, secret)
	if err != nil {
		return nil, errInternal("building embedded federation client", err)
	}

	if got := client.WalletModule().Network(); got != net.Name {
		return nil, errNetworkMismatch(got, net.Name)
	}

	deps.Logger.Infof("fedimint: joined federation %s as %s (resuming=%v)", client.FederationID(), uuid, resuming)

	return &FederationClient{
		uuid:     uuid,
		client:   client,
		storage:  storage,
		payments: deps.Payments,
		logger:   deps.Logger,
		cfg:      deps.Config,
	}, nil
}

// GetInvoice issues a Bolt11 invoice for amountSats through the embedded
// Lightning module and persists a fresh inbound payment record.
func (c *FederationClient) GetInvoice(amountSats uint64, labels []string) (MutinyInvoice, error) {
	_, inv, err := c.client.LightningModule().CreateBolt11Invoice(amountSats*1000, "", labels)
	if err != nil {
		return MutinyInvoice{}, errInternal("creating bolt11 invoice", err)
	}

	mi := FromInvoice(inv)
	mi.Inbound = true
	mi.Labels = labels

	if err := c.payments.PersistPaymentInfo(mi.PaymentHash, mi.toPaymentInfo(), true); err != nil {
		c.logger.Warnf("fedimint: failed to persist fresh inbound payment %x: %v", mi.PaymentHash, err)
	}
	return mi, nil
}

// PayInvoice initiates an outbound payment, persisting a Pending record
// before completion so a crash mid-flight is recoverable, then awaits
// resolution under the configured default payment timeout.
func (c *FederationClient) PayInvoice(ctx context.Context, invoice Bolt11Invoice, labels []string) (MutinyInvoice, error) {
	pending := FromInvoice(invoice)
	pending.Inbound = false
	pending.Labels = labels
	if err := c.payments.PersistPaymentInfo(pending.PaymentHash, pending.toPaymentInfo(), false); err != nil {
		c.logger.Warnf("fedimint: failed to persist pending outbound payment %x: %v", pending.PaymentHash, err)
	}

	ln := c.client.LightningModule()
	outgoing, err := ln.PayBolt11Invoice(invoice)
	if err != nil {
		return pending, errInternal("initiating bolt11 payment", err)
	}

	var result MutinyInvoice
	switch outgoing.Type {
	case PayLightning:
		stream, err := ln.SubscribeLnPay(outgoing.OperationID)
		if err != nil {
			c.logger.Warnf("fedimint: subscribe_ln_pay failed for %x: %v", pending.PaymentHash, err)
			result = pending
		} else {
			result = processLnPayOutcome(ctx, stream, pending, false, c.cfg.paymentTimeout(), c.logger)
		}
	default:
		stream, err := ln.SubscribeInternalPay(outgoing.OperationID)
		if err != nil {
			c.logger.Warnf("fedimint: subscribe_internal_pay failed for %x: %v", pending.PaymentHash, err)
			result = pending
		} else {
			result = processInternalPayOutcome(ctx, stream, pending, false, c.cfg.paymentTimeout(), c.logger)
		}
	}
	result.Labels = labels

	if result.Status == StatusSucceeded {
		fee := outgoing.FeeSats
		result.FeesPaidSat = &fee
	}

	if err := c.payments.PersistPaymentInfo(result.PaymentHash, result.toPaymentInfo(), false); err != nil {
		c.logger.Warnf("fedimint: failed to persist outbound payment outcome %x: %v", result.PaymentHash, err)
	}

	switch result.Status {
	case StatusFailed:
		return result, errRoutingFailed()
	case StatusSucceeded:
		return result, nil
	default:
		return result, errPaymentTimeout()
	}
}

// GetBalance returns the federation balance in whole sats, truncating.
func (c *FederationClient) GetBalance() uint64 { return c.client.GetBalanceMsat() / 1000 }

// pendingRecord pairs a non-terminal payment's hash with the inbound or
// outbound namespace it is stored under, for the reconciliation sweep
// below.
type pendingRecord struct {
	hash    [32]byte
	inbound bool
}

func (c *FederationClient) loadPending() ([]pendingRecord, error) {
	var pending []pendingRecord
	for _, inbound := range []bool{true, false} {
		records, err := c.payments.ListPaymentInfo(inbound)
		if err != nil {
			return nil, errRead(err)
		}
		for _, r := range records {
			if !r.Info.Status.IsTerminal() {
				pending = append(pending, pendingRecord{hash: r.Hash, inbound: inbound})
			}
		}
	}
	return pending, nil
}

// CheckActivity reconciles every pending payment against the embedded
// client's operation log. With no pending payments it returns
// immediately without listing operations — the listing is the expensive
// part of a sweep, and there is nothing to reconcile against it anyway.
func (c *FederationClient) CheckActivity(ctx context.Context) error {
	pending, err := c.loadPending()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	ops := c.client.OperationLog().ListOperations(c.cfg.OperationLogWindow, nil)
	byHash := make(map[[32]byte]OperationLogRecord, len(ops))
	for _, op := range ops {
		if op.ModuleKind != LightningModuleKind {
			continue
		}
		byHash[op.LightningMeta.Invoice.PaymentHash] = op
	}

	ln := c.client.LightningModule()
	for _, p := range pending {
		entry, ok := byHash[p.hash]
		if !ok {
			continue
		}
		invoice, matched := translateEntry(ctx, c.logger, entry, p.hash, ln, c.cfg.statusCheckTimeout())
		if !matched || !invoice.Status.IsTerminal() {
			continue
		}
		if err := c.payments.PersistPaymentInfo(p.hash, invoice.toPaymentInfo(), p.inbound); err != nil {
			c.logger.Warnf("fedimint: failed to persist reconciled payment %x: %v", p.hash, err)
		}
	}
	return nil
}

// GetInvoiceByHash is a read-with-refresh lookup: an already terminal
// stored record is returned as-is; otherwise the operation log is
// scanned for a matching Lightning entry and translated.
func (c *FederationClient) GetInvoiceByHash(ctx context.Context, hash [32]byte) (MutinyInvoice, error) {
	info, inbound, err := c.payments.GetPaymentInfo(hash)
	if err != nil {
		return MutinyInvoice{}, err
	}
	stored := fromPaymentInfo(hash, info)
	if stored.Status.IsTerminal() {
		return stored, nil
	}

	ops := c.client.OperationLog().ListOperations(c.cfg.OperationLogWindow, nil)
	ln := c.client.LightningModule()
	for _, entry := range ops {
		if entry.ModuleKind != LightningModuleKind {
			c.logger.Debugf("fedimint: skipping non-lightning operation-log entry (module=%s)", entry.ModuleKind)
			continue
		}
		invoice, matched := translateEntry(ctx, c.logger, entry, hash, ln, c.cfg.statusCheckTimeout())
		if !matched {
			continue
		}
		invoice.Inbound = inbound
		if invoice.Status.IsTerminal() {
			if err := c.payments.PersistPaymentInfo(hash, invoice.toPaymentInfo(), inbound); err != nil {
				c.logger.Warnf("fedimint: failed to persist refreshed payment %x: %v", hash, err)
			}
		}
		return invoice, nil
	}
	return MutinyInvoice{}, errNotFound(fmt.Sprintf("no operation-log entry for hash %x", hash))
}

// GetMutinyFederationIdentity assembles this membership's public-facing
// identity view from the embedded client's metadata accessor.
func (c *FederationClient) GetMutinyFederationIdentity() FederationIdentity {
	id := FederationIdentity{UUID: c.uuid, FederationID: c.client.FederationID()}
	if v, ok := c.client.GetMeta("federation_name"); ok {
		id.FederationName = &v
	}
	if v, ok := c.client.GetMeta("federation_expiry_timestamp"); ok {
		id.FederationExpiryTimestamp = &v
	}
	if v, ok := c.client.GetMeta("welcome_message"); ok {
		id.WelcomeMessage = &v
	}
	return id
}
