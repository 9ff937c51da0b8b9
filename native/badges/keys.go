package badges

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	ledgerPrefix = []byte("badges/ledger/")
	wordsPrefix  = []byte("badges/words/")
	bitmapPrefix = []byte("badges/bitmap/")
	expiryPrefix = []byte("badges/expiry/")
)

func ledgerKey(ledger common.Address) []byte {
	buf := make([]byte, 0, len(ledgerPrefix)+common.AddressLength)
	buf = append(buf, ledgerPrefix...)
	return append(buf, ledger.Bytes()...)
}

func wordCountKey(ledger, holder common.Address) []byte {
	buf := make([]byte, 0, len(wordsPrefix)+2*common.AddressLength)
	buf = append(buf, wordsPrefix...)
	buf = append(buf, ledger.Bytes()...)
	return append(buf, holder.Bytes()...)
}

func wordKey(ledger, holder common.Address, index uint64) []byte {
	buf := make([]byte, 0, len(bitmapPrefix)+2*common.AddressLength+8)
	buf = append(buf, bitmapPrefix...)
	buf = append(buf, ledger.Bytes()...)
	buf = append(buf, holder.Bytes()...)
	return binary.BigEndian.AppendUint64(buf, index)
}

func expiryKey(ledger common.Address, id *uint256.Int) []byte {
	raw := id.Bytes32()
	buf := make([]byte, 0, len(expiryPrefix)+common.AddressLength+len(raw))
	buf = append(buf, expiryPrefix...)
	buf = append(buf, ledger.Bytes()...)
	return append(buf, raw[:]...)
}
