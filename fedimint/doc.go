// Package fedimint implements the federation client core: deriving a
// per-federation secret from the wallet's master key, adapting wallet
// storage into the transactional KV shape an embedded federated-mint
// client expects, and reconciling Lightning payment lifecycles observed
// through that client's operation log and update streams.
//
// The package does not implement the federation (chaumian-mint) protocol
// itself. It defines the boundary interfaces an embedded client library
// would satisfy (see embedded.go) and hosts that client atop the wallet's
// own storage.
package fedimint
