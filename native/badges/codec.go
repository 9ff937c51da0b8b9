package badges

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// holderBits is the width of the holder key packed in the low bits of a
// token id. The badge type occupies the remaining high bits.
const holderBits = common.AddressLength * 8

// EncodeTokenID packs a badge type and holder key into a token id:
// type << 160 | holder. The layout matches solidityPack(uint96, address).
func EncodeTokenID(badgeType BadgeType, holder common.Address) *uint256.Int {
	id := new(uint256.Int).SetUint64(uint64(badgeType))
	id.Lsh(id, holderBits)
	return id.Or(id, new(uint256.Int).SetBytes20(holder.Bytes()))
}

// DecodeTokenID splits a token id back into its badge type and holder key.
func DecodeTokenID(id *uint256.Int) (BadgeType, common.Address, error) {
	if id == nil {
		return 0, common.Address{}, fmt.Errorf("%w: nil", ErrInvalidTokenID)
	}
	holder := common.Address(id.Bytes20())
	badgeType := new(uint256.Int).Rsh(id, holderBits)
	if !badgeType.IsUint64() {
		return 0, common.Address{}, fmt.Errorf("%w: badge type exceeds 64 bits", ErrInvalidTokenID)
	}
	return BadgeType(badgeType.Uint64()), holder, nil
}

// ParseTokenID reads a decimal or 0x-prefixed hexadecimal token id.
func ParseTokenID(value string) (*uint256.Int, error) {
	parsed, ok := new(big.Int).SetString(strings.TrimSpace(value), 0)
	if !ok || parsed.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTokenID, value)
	}
	id, overflow := uint256.FromBig(parsed)
	if overflow {
		return nil, fmt.Errorf("%w: exceeds 256 bits", ErrInvalidTokenID)
	}
	return id, nil
}
