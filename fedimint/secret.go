package fedimint

import (
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcutil/hdkeychain"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/hkdf"
)

// childKeyFederation is the hardened BIP32 index reserved for federation
// secrets. Index 0' is reserved for Lightning node identity elsewhere in
// the wallet and is never touched by this package.
const childKeyFederation uint32 = 1

// coinType mirrors the wallet's network -> SLIP-44-style coin type
// mapping used to key the second derivation level, so mainnet and
// test/regtest federations never share a secret.
func coinType(net *chaincfg.Params) uint32 {
	if net == nil || net.Name == chaincfg.MainNetParams.Name {
		return 0
	}
	return 1
}

// DerivableSecret stands in for the embedded federated-mint library's
// root-secret type. Its internal derivation (how child module secrets
// are produced from it) is the embedded library's own concern; this
// core only needs to construct one deterministically from a mnemonic and
// expose its raw key bytes so callers can assert that two networks
// produce distinct secrets for the same mnemonic.
type DerivableSecret struct {
	root [32]byte
}

// ChaCha20Poly1305KeyRaw returns the 32 raw key bytes this secret would
// hand to a ChaCha20-Poly1305 AEAD.
func (d DerivableSecret) ChaCha20Poly1305KeyRaw() [32]byte { return d.root }

// rootSecretFromMnemonic derives deterministic key material from a BIP39
// mnemonic, the Go analogue of the embedded library's
// Bip39RootSecretStrategy::to_root_secret. HKDF-SHA256 is used because no
// library in this module's dependency set implements that specific
// federated-mint KDF — this function is an explicit stand-in, not a
// reproduction of the embedded library's internals.
func rootSecretFromMnemonic(mnemonic string) (DerivableSecret, error) {
	seed := bip39.NewSeed(mnemonic, "")
	kdf := hkdf.New(sha256.New, seed, nil, []byte("fedimint-root-secret"))
	var out DerivableSecret
	if _, err := io.ReadFull(kdf, out.root[:]); err != nil {
		return DerivableSecret{}, fmt.Errorf("hkdf expand: %w", err)
	}
	return out, nil
}

// mnemonicFromExtendedKey turns an extended private key's 32-byte secret
// scalar into BIP39 entropy and back into a mnemonic, the round trip that
// lets a federation secret someday export a mnemonic the federated-mint
// reference client would accept directly. The full 32-byte scalar is
// used as entropy, producing a 24-word mnemonic rather than the shorter
// 12-word form a 16-byte entropy source would give.
func mnemonicFromExtendedKey(key *hdkeychain.ExtendedKey) (string, error) {
	priv, err := key.ECPrivKey()
	if err != nil {
		return "", fmt.Errorf("extended key private scalar: %w", err)
	}
	entropy := priv.Serialize()
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("entropy to mnemonic: %w", err)
	}
	return mnemonic, nil
}

// federationRootChildKey derives m/1', the wallet's reserved federation
// branch (index 0' is reserved elsewhere for Lightning node identity).
func federationRootChildKey(master *hdkeychain.ExtendedKey) (*hdkeychain.ExtendedKey, error) {
	child, err := master.Derive(hdkeychain.HardenedKeyStart + childKeyFederation)
	if err != nil {
		return nil, fmt.Errorf("derive federation branch: %w", err)
	}
	return child, nil
}

// deriveFederationSecretKey derives m/1'/coin_type' from the wallet's
// master extended private key: the coin-type child beneath the
// federation branch separates mainnet from test networks.
func deriveFederationSecretKey(master *hdkeychain.ExtendedKey, net *chaincfg.Params) (*hdkeychain.ExtendedKey, error) {
	root, err := federationRootChildKey(master)
	if err != nil {
		return nil, err
	}
	child, err := root.Derive(hdkeychain.HardenedKeyStart + coinType(net))
	if err != nil {
		return nil, fmt.Errorf("derive coin-type child: %w", err)
	}
	return child, nil
}

// CreateFederationSecret derives this wallet's federation-scoped root
// secret from its master extended private key and the target network.
// It is a pure function of (xprivkey, network): same inputs always
// produce the same secret, and different networks always produce
// different secrets for the same master key.
func CreateFederationSecret(master *hdkeychain.ExtendedKey, net *chaincfg.Params) (DerivableSecret, error) {
	child, err := deriveFederationSecretKey(master, net)
	if err != nil {
		return DerivableSecret{}, errInternal("deriving federation secret key", err)
	}
	mnemonic, err := mnemonicFromExtendedKey(child)
	if err != nil {
		return DerivableSecret{}, errInternal("deriving federation mnemonic", err)
	}
	secret, err := rootSecretFromMnemonic(mnemonic)
	if err != nil {
		return DerivableSecret{}, errInternal("deriving federation root secret", err)
	}
	return secret, nil
}

// FederationChildMnemonic derives m/1' (the federation branch, before the
// coin-type split) and returns its BIP39 mnemonic.
func FederationChildMnemonic(master *hdkeychain.ExtendedKey) (string, error) {
	child, err := federationRootChildKey(master)
	if err != nil {
		return "", errInternal("deriving federation child key", err)
	}
	return mnemonicFromExtendedKey(child)
}
