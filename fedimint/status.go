package fedimint

import "encoding/hex"

// Source-side state enums the embedded Lightning module reports. These
// are deliberately small closed sets — the status adapters below are
// total functions over them, with an explicit default case covering any
// state they don't otherwise name.

type LnReceiveState int

const (
	LnReceiveCreated LnReceiveState = iota
	LnReceiveWaitingForPayment
	LnReceiveFunded
	LnReceiveAwaitingFunds
	LnReceiveClaimed
	LnReceiveCanceled
)

type InternalPayState int

const (
	InternalPayFunding InternalPayState = iota
	InternalPayPreimage
	InternalPayRefundSuccess
	InternalPayRefundError
	InternalPayFundingFailed
	InternalPayUnexpectedError
)

type LnPayState int

const (
	LnPayCreated LnPayState = iota
	LnPayFunded
	LnPayWaitingForRefund
	LnPayAwaitingChange
	LnPaySuccess
	LnPayCanceled
	LnPayRefunded
	LnPayUnexpectedError
)

// receiveStatus maps a receive-side state to the wallet's HTLC status.
func receiveStatus(s LnReceiveState) HTLCStatus {
	switch s {
	case LnReceiveCreated, LnReceiveWaitingForPayment:
		return StatusPending
	case LnReceiveClaimed:
		return StatusSucceeded
	case LnReceiveCanceled:
		return StatusFailed
	case LnReceiveFunded, LnReceiveAwaitingFunds:
		return StatusInFlight
	default:
		return StatusFailed
	}
}

// internalPayStatus maps an internal-pay state (payment settled within
// the federation without leaving over Lightning) to HTLC status.
func internalPayStatus(s InternalPayState) HTLCStatus {
	switch s {
	case InternalPayFunding:
		return StatusInFlight
	case InternalPayPreimage:
		return StatusSucceeded
	case InternalPayRefundSuccess, InternalPayRefundError, InternalPayFundingFailed, InternalPayUnexpectedError:
		return StatusFailed
	default:
		return StatusFailed
	}
}

// lnPayStatus maps an outbound Lightning pay state to HTLC status.
func lnPayStatus(s LnPayState) HTLCStatus {
	switch s {
	case LnPayCreated:
		return StatusPending
	case LnPayFunded, LnPayWaitingForRefund, LnPayAwaitingChange:
		return StatusInFlight
	case LnPaySuccess:
		return StatusSucceeded
	case LnPayCanceled, LnPayRefunded, LnPayUnexpectedError:
		return StatusFailed
	default:
		return StatusFailed
	}
}

// LnReceiveUpdate is one update from an inbound-receive subscription.
// The receive path never carries a preimage in this core — only the pay
// paths below do, since receiving never reveals a new preimage (the
// recipient already knows it).
type LnReceiveUpdate struct {
	State LnReceiveState
}

// InternalPayUpdate is one update from an internal-pay subscription,
// carrying the revealed preimage once State is InternalPayPreimage.
type InternalPayUpdate struct {
	State    InternalPayState
	Preimage [32]byte
}

// LnPayUpdate is one update from an outbound Lightning-pay subscription,
// carrying the revealed preimage once State is LnPaySuccess.
type LnPayUpdate struct {
	State    LnPayState
	Preimage [32]byte
}

// applyReceiveState sets invoice status from a receive-state update.
func applyReceiveState(u LnReceiveUpdate, inv *MutinyInvoice) {
	inv.Status = receiveStatus(u.State)
}

// applyInternalPayState sets status and, on success, the preimage.
func applyInternalPayState(u InternalPayUpdate, inv *MutinyInvoice) {
	if u.State == InternalPayPreimage {
		inv.Preimage = hex.EncodeToString(u.Preimage[:])
	} else {
		inv.Preimage = ""
	}
	inv.Status = internalPayStatus(u.State)
}

// applyLnPayState sets status and, on success, the preimage.
func applyLnPayState(u LnPayUpdate, inv *MutinyInvoice) {
	if u.State == LnPaySuccess {
		inv.Preimage = hex.EncodeToString(u.Preimage[:])
	} else {
		inv.Preimage = ""
	}
	inv.Status = lnPayStatus(u.State)
}
