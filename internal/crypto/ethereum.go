package crypto

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// ethereum derives EIP-55 checksummed account addresses.
type ethereum struct{}

func (ethereum) Kind() Kind { return KindEthereum }

func (ethereum) Derive(key *[KeySize]byte) (string, error) {
	priv, err := ethcrypto.ToECDSA(key[:])
	if err != nil {
		// ToECDSA rejects exactly the zero scalar and scalars >= N.
		return "", ErrInvalidScalar
	}
	addr := ethcrypto.PubkeyToAddress(priv.PublicKey)
	priv.D.SetUint64(0)
	return addr.Hex(), nil
}

func (ethereum) NormalizeTarget(target string) (string, error) {
	t := strings.TrimSpace(target)
	if !common.IsHexAddress(t) {
		return "", fmt.Errorf("%w: %s is not a 20-byte hex address", ErrInvalidTarget, target)
	}
	return common.HexToAddress(t).Hex(), nil
}
