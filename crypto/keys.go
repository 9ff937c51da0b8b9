package crypto

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// PrivateKey is a secp256k1 authority key. A deployment is owned by the
// address derived from it.
type PrivateKey struct {
	*ecdsa.PrivateKey
}

// GeneratePrivateKey draws a fresh authority key.
func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("crypto: generate key: %w", err)
	}
	return &PrivateKey{PrivateKey: key}, nil
}

// PrivateKeyFromBytes parses a raw 32-byte scalar.
func PrivateKeyFromBytes(raw []byte) (*PrivateKey, error) {
	if len(raw) != 32 {
		return nil, fmt.Errorf("crypto: private key must be 32 bytes, got %d", len(raw))
	}
	key, err := ethcrypto.ToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("crypto: parse key: %w", err)
	}
	return &PrivateKey{PrivateKey: key}, nil
}

func (k *PrivateKey) Bytes() []byte {
	return ethcrypto.FromECDSA(k.PrivateKey)
}

// Address is the 20-byte key the ledgers and registry compare callers against.
func (k *PrivateKey) Address() common.Address {
	return ethcrypto.PubkeyToAddress(k.PublicKey)
}

// Holder renders Address in bech32 holder form.
func (k *PrivateKey) Holder() Address {
	return NewAddress(HolderPrefix, k.Address())
}
