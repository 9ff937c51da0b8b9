package crypto

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/common"
)

// AddressPrefix defines the human-readable part used for bech32 addresses.
type AddressPrefix string

const (
	// HolderPrefix is used when rendering holder keys for people.
	HolderPrefix AddressPrefix = "soul"
)

// Address represents a 20-byte holder key with a specific prefix.
type Address struct {
	prefix AddressPrefix
	bytes  common.Address
}

func NewAddress(prefix AddressPrefix, addr common.Address) Address {
	return Address{prefix: prefix, bytes: addr}
}

func (a Address) String() string {
	conv, err := bech32.ConvertBits(a.bytes[:], 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

// Common returns the raw 20-byte key.
func (a Address) Common() common.Address {
	return a.bytes
}

// Prefix returns the human-readable prefix associated with the address.
func (a Address) Prefix() AddressPrefix {
	return a.prefix
}

func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(addrStr)
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("error converting bits: %w", err)
	}
	if len(conv) != common.AddressLength {
		return Address{}, fmt.Errorf("address must be %d bytes long, got %d", common.AddressLength, len(conv))
	}
	return NewAddress(AddressPrefix(prefix), common.BytesToAddress(conv)), nil
}

// ParseAddress accepts either a 0x-prefixed hex key or a bech32 key.
func ParseAddress(value string) (common.Address, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return common.Address{}, fmt.Errorf("address must not be empty")
	}
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		if !common.IsHexAddress(trimmed) {
			return common.Address{}, fmt.Errorf("invalid hex address %q", trimmed)
		}
		return common.HexToAddress(trimmed), nil
	}
	decoded, err := DecodeAddress(trimmed)
	if err != nil {
		return common.Address{}, err
	}
	return decoded.Common(), nil
}

// FormatHolder renders a holder key in bech32 form.
func FormatHolder(addr common.Address) string {
	return NewAddress(HolderPrefix, addr).String()
}
