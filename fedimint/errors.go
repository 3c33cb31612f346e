package fedimint

import "fmt"

// Kind tags the category of error this core surfaces, per the error
// handling design: callers distinguish a parse failure from a network
// mismatch from a timeout without string-matching messages.
type Kind int

const (
	// KindInternal covers any bubbled-up error from the embedded client
	// that doesn't fall into one of the named kinds below.
	KindInternal Kind = iota
	KindInvalidInvite
	KindNetworkMismatch
	KindReadError
	KindWriteError
	KindRoutingFailed
	KindPaymentTimeout
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInvite:
		return "InvalidInvite"
	case KindNetworkMismatch:
		return "NetworkMismatch"
	case KindReadError:
		return "ReadError"
	case KindWriteError:
		return "WriteError"
	case KindRoutingFailed:
		return "RoutingFailed"
	case KindPaymentTimeout:
		return "PaymentTimeout"
	case KindNotFound:
		return "NotFound"
	default:
		return "Internal"
	}
}

// FedError is the single error type this core returns. Kind lets a
// caller switch on category via errors.As; the wrapped error carries the
// underlying detail for logs.
type FedError struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *FedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *FedError) Unwrap() error { return e.Err }

func newErr(kind Kind, msg string, err error) *FedError {
	return &FedError{Kind: kind, Msg: msg, Err: err}
}

func errInvalidInvite(err error) *FedError {
	return newErr(KindInvalidInvite, "could not resolve invite code", err)
}

func errNetworkMismatch(got, want string) *FedError {
	return newErr(KindNetworkMismatch, fmt.Sprintf("federation network %q, expected %q", got, want), nil)
}

func errRead(err error) *FedError { return newErr(KindReadError, "reading wallet storage", err) }

func errWrite(err error) *FedError { return newErr(KindWriteError, "writing wallet storage", err) }

func errNotFound(msg string) *FedError { return newErr(KindNotFound, msg, nil) }

func errRoutingFailed() *FedError {
	return newErr(KindRoutingFailed, "payment reached a terminal failed state", nil)
}

func errPaymentTimeout() *FedError {
	return newErr(KindPaymentTimeout, "payment did not resolve before the deadline", nil)
}

func errInternal(msg string, err error) *FedError { return newErr(KindInternal, msg, err) }
