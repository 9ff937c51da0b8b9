package wallets

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

const identityFieldMax = 31

// DeriveLiteWallet computes the default holder key for an identity that has
// not linked a wallet yet:
//
//	keccak256(bytes32(first) || bytes32(last) || uint256(phone))[12:]
//
// Names are right-padded with zeros and must fit in 31 bytes.
func DeriveLiteWallet(first, last string, phone uint64) (common.Address, error) {
	firstWord, err := identityWord("first name", first)
	if err != nil {
		return common.Address{}, err
	}
	lastWord, err := identityWord("last name", last)
	if err != nil {
		return common.Address{}, err
	}
	phoneWord := uint256.NewInt(phone).Bytes32()
	hash := crypto.Keccak256(firstWord[:], lastWord[:], phoneWord[:])
	return common.BytesToAddress(hash[12:]), nil
}

func identityWord(field, value string) ([32]byte, error) {
	var word [32]byte
	if len(value) > identityFieldMax {
		return word, fmt.Errorf("%w: %s is %d bytes", ErrFieldTooLong, field, len(value))
	}
	copy(word[:], value)
	return word, nil
}
