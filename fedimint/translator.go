package fedimint

import (
	"context"
	"time"
)

// statusCheckTimeout is used when the caller just wants the current
// status of a known payment (reconciliation sweeps, lookup-by-hash): it
// applies whatever updates arrive within 30ms, so a silent stream holds
// the caller for at most that long.
const statusCheckTimeout = 30 * time.Millisecond

// operationLogWindow bounds how many operation-log entries a single scan
// pulls, matching the embedded client's FEDIMINT_OPERATIONS_LIST_MAX.
const operationLogWindow = 100

// processLnPayOutcome races an outbound-Lightning-pay update stream
// against timeout, applying each update's status (and, on success, its
// preimage) to invoice. It returns as soon as status is terminal, the
// stream ends, or timeout elapses — whichever happens first.
func processLnPayOutcome(ctx context.Context, s UpdateStreamOrOutcome[LnPayUpdate], invoice MutinyInvoice, inbound bool, timeout time.Duration, logger Logger) MutinyInvoice {
	invoice.Inbound = inbound
	if s.Resolved != nil {
		applyLnPayState(*s.Resolved, &invoice)
		return invoice
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	for {
		select {
		case update, ok := <-s.Stream:
			if !ok {
				return invoice
			}
			applyLnPayState(update, &invoice)
			logger.Debugf("ln pay update for %x: %s", invoice.PaymentHash, invoice.Status)
			if invoice.Status.IsTerminal() {
				return invoice
			}
		case <-ctx.Done():
			logger.Debugf("ln pay timeout for %x, returning partial status %s", invoice.PaymentHash, invoice.Status)
			return invoice
		}
	}
}

// processInternalPayOutcome is processLnPayOutcome's counterpart for
// payments the federation settled without leaving over Lightning.
func processInternalPayOutcome(ctx context.Context, s UpdateStreamOrOutcome[InternalPayUpdate], invoice MutinyInvoice, inbound bool, timeout time.Duration, logger Logger) MutinyInvoice {
	invoice.Inbound = inbound
	if s.Resolved != nil {
		applyInternalPayState(*s.Resolved, &invoice)
		return invoice
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	for {
		select {
		case update, ok := <-s.Stream:
			if !ok {
				return invoice
			}
			applyInternalPayState(update, &invoice)
			logger.Debugf("internal pay update for %x: %s", invoice.PaymentHash, invoice.Status)
			if invoice.Status.IsTerminal() {
				return invoice
			}
		case <-ctx.Done():
			logger.Debugf("internal pay timeout for %x, returning partial status %s", invoice.PaymentHash, invoice.Status)
			return invoice
		}
	}
}

// processLnReceiveOutcome races an inbound-receive update stream against
// timeout. The receive path never captures a preimage in this core.
func processLnReceiveOutcome(ctx context.Context, s UpdateStreamOrOutcome[LnReceiveUpdate], invoice MutinyInvoice, timeout time.Duration, logger Logger) MutinyInvoice {
	invoice.Inbound = true
	if s.Resolved != nil {
		applyReceiveState(*s.Resolved, &invoice)
		return invoice
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	for {
		select {
		case update, ok := <-s.Stream:
			if !ok {
				return invoice
			}
			applyReceiveState(update, &invoice)
			logger.Debugf("ln receive update for %x: %s", invoice.PaymentHash, invoice.Status)
			if invoice.Status.IsTerminal() {
				return invoice
			}
		case <-ctx.Done():
			logger.Debugf("ln receive timeout for %x, returning partial status %s", invoice.PaymentHash, invoice.Status)
			return invoice
		}
	}
}

// translateEntry examines one operation-log entry: if its Lightning
// metadata's invoice matches targetHash, it subscribes to that
// operation's live update stream and returns a reconciled invoice. Non-
// matching entries, and entries from modules other than Lightning, yield
// ok=false. Subscription failures degrade to a synthesized invoice with
// only its originating state, rather than failing the containing
// operation.
func translateEntry(ctx context.Context, logger Logger, entry OperationLogRecord, targetHash [32]byte, ln LightningModule, timeout time.Duration) (MutinyInvoice, bool) {
	if entry.ModuleKind != LightningModuleKind {
		return MutinyInvoice{}, false
	}

	meta := entry.LightningMeta
	switch meta.Variant {
	case VariantPay:
		if meta.Invoice.PaymentHash != targetHash {
			return MutinyInvoice{}, false
		}
		stream, err := ln.SubscribeLnPay(entry.OperationID)
		if err != nil {
			logger.Warnf("subscribe_ln_pay failed for %x: %v", targetHash, err)
			return FromInvoice(meta.Invoice), true
		}
		return processLnPayOutcome(ctx, stream, FromInvoice(meta.Invoice), false, timeout, logger), true
	case VariantReceive:
		if meta.Invoice.PaymentHash != targetHash {
			return MutinyInvoice{}, false
		}
		stream, err := ln.SubscribeLnReceive(entry.OperationID)
		if err != nil {
			logger.Warnf("subscribe_ln_receive failed for %x: %v", targetHash, err)
			return FromInvoice(meta.Invoice), true
		}
		return processLnReceiveOutcome(ctx, stream, FromInvoice(meta.Invoice), timeout, logger), true
	default:
		return MutinyInvoice{}, false
	}
}
