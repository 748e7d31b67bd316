package crypto

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

// KeySize is the fixed width of a candidate private key.
const KeySize = 32

// Kind selects how a public key is turned into an address.
type Kind string

const (
	KindP2PKH             Kind = "p2pkh"              // Base58Check, compressed pubkey (1...)
	KindP2PKHUncompressed Kind = "p2pkh-uncompressed" // Base58Check, uncompressed pubkey (1...)
	KindP2WPKH            Kind = "p2wpkh"             // Bech32 native segwit (bc1q...)
	KindEthereum          Kind = "ethereum"           // EIP-55 hex (0x...)
)

// Kinds lists every supported address kind, default first.
var Kinds = []Kind{KindP2PKH, KindP2PKHUncompressed, KindP2WPKH, KindEthereum}

// Errors
var (
	ErrInvalidScalar = errors.New("scalar is zero or not below the curve order")
	ErrInvalidTarget = errors.New("invalid target address")
	ErrUnknownKind   = errors.New("unknown address type")
)

// Deriver maps a 32-byte scalar to an address.
//
// Implementations keep scratch buffers and hashers between calls, so a
// Deriver must not be shared between goroutines; give each worker its own.
type Deriver interface {
	// Derive returns ErrInvalidScalar when key is zero or >= the curve order.
	Derive(key *[KeySize]byte) (string, error)
	// NormalizeTarget validates a target address and returns the exact form
	// Derive produces for it.
	NormalizeTarget(target string) (string, error)
	Kind() Kind
}

// ParseKind resolves a user-supplied address type name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if k == "" {
		return KindP2PKH, nil
	}
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// NewDeriver returns a fresh Deriver for the given kind.
func NewDeriver(kind Kind) (Deriver, error) {
	switch kind {
	case KindP2PKH, "":
		return newP2PKH(true), nil
	case KindP2PKHUncompressed:
		return newP2PKH(false), nil
	case KindP2WPKH:
		return &p2wpkh{}, nil
	case KindEthereum:
		return &ethereum{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// parseScalar validates key as a secp256k1 private key.
func parseScalar(key *[KeySize]byte) (*btcec.PrivateKey, error) {
	var s btcec.ModNScalar
	if overflow := s.SetBytes(key); overflow != 0 || s.IsZero() {
		return nil, ErrInvalidScalar
	}
	priv, _ := btcec.PrivKeyFromBytes(key[:])
	return priv, nil
}

// ValidScalar reports whether key is usable as a private key.
func ValidScalar(key *[KeySize]byte) bool {
	var s btcec.ModNScalar
	return s.SetBytes(key) == 0 && !s.IsZero()
}

// KeyHex renders the full 32-byte key as lowercase hex.
func KeyHex(key *[KeySize]byte) string {
	return hex.EncodeToString(key[:])
}

// WIF encodes key in Wallet Import Format for mainnet.
func WIF(key *[KeySize]byte, compressed bool) (string, error) {
	priv, err := parseScalar(key)
	if err != nil {
		return "", err
	}
	defer priv.Zero()

	wif, err := btcutil.NewWIF(priv, &chaincfg.MainNetParams, compressed)
	if err != nil {
		return "", err
	}
	return wif.String(), nil
}

// Compressed reports whether kind derives from a compressed public key,
// which decides the matching WIF flavour.
func (k Kind) Compressed() bool {
	return k != KindP2PKHUncompressed
}

// IsBitcoin reports whether kind produces a Bitcoin address.
func (k Kind) IsBitcoin() bool {
	return k != KindEthereum
}
