package crypto

import (
	"crypto/sha256"
	"fmt"
	"hash"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/ripemd160"
)

// P2PKH payload layout: version (1) + hash160 (20) + checksum (4) = 25
const (
	hash160Len     = 20
	checksumLen    = 4
	p2pkhPayload   = 1 + hash160Len
	p2pkhFullBytes = p2pkhPayload + checksumLen
)

// p2pkh derives legacy Base58Check addresses. The hashers and buffers are
// reused across calls to keep the hot path allocation-light.
type p2pkh struct {
	compressed bool
	sha        hash.Hash
	rmd        hash.Hash

	shaBuf  [sha256.Size]byte
	rmdBuf  [ripemd160.Size]byte
	payload [p2pkhFullBytes]byte
}

func newP2PKH(compressed bool) *p2pkh {
	d := &p2pkh{
		compressed: compressed,
		sha:        sha256.New(),
		rmd:        ripemd160.New(),
	}
	d.payload[0] = chaincfg.MainNetParams.PubKeyHashAddrID
	return d
}

func (d *p2pkh) Kind() Kind {
	if d.compressed {
		return KindP2PKH
	}
	return KindP2PKHUncompressed
}

func (d *p2pkh) Derive(key *[KeySize]byte) (string, error) {
	priv, err := parseScalar(key)
	if err != nil {
		return "", err
	}
	pub := priv.PubKey()
	priv.Zero()

	var serialized []byte
	if d.compressed {
		serialized = pub.SerializeCompressed()
	} else {
		serialized = pub.SerializeUncompressed()
	}

	d.sha.Reset()
	d.sha.Write(serialized)
	shaSum := d.sha.Sum(d.shaBuf[:0])

	d.rmd.Reset()
	d.rmd.Write(shaSum)
	copy(d.payload[1:p2pkhPayload], d.rmd.Sum(d.rmdBuf[:0]))

	first := sha256.Sum256(d.payload[:p2pkhPayload])
	second := sha256.Sum256(first[:])
	copy(d.payload[p2pkhPayload:], second[:checksumLen])

	return base58.Encode(d.payload[:]), nil
}

func (d *p2pkh) NormalizeTarget(target string) (string, error) {
	addr, err := btcutil.DecodeAddress(target, &chaincfg.MainNetParams)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidTarget, target, err)
	}
	if _, ok := addr.(*btcutil.AddressPubKeyHash); !ok {
		return "", fmt.Errorf("%w: %s is %T, want a P2PKH address", ErrInvalidTarget, target, addr)
	}
	return addr.EncodeAddress(), nil
}

// p2wpkh derives native segwit v0 addresses through btcutil.
type p2wpkh struct{}

func (p2wpkh) Kind() Kind { return KindP2WPKH }

func (p2wpkh) Derive(key *[KeySize]byte) (string, error) {
	priv, err := parseScalar(key)
	if err != nil {
		return "", err
	}
	pub := priv.PubKey()
	priv.Zero()

	addr, err := btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(pub.SerializeCompressed()), &chaincfg.MainNetParams)
	if err != nil {
		return "", err
	}
	return addr.EncodeAddress(), nil
}

func (p2wpkh) NormalizeTarget(target string) (string, error) {
	addr, err := btcutil.DecodeAddress(target, &chaincfg.MainNetParams)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidTarget, target, err)
	}
	if _, ok := addr.(*btcutil.AddressWitnessPubKeyHash); !ok {
		return "", fmt.Errorf("%w: %s is %T, want a P2WPKH address", ErrInvalidTarget, target, addr)
	}
	return addr.EncodeAddress(), nil
}
