package crypto

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestParseAddressAcceptsHexAndBech32(t *testing.T) {
	addr := common.HexToAddress("0x20A3d0288B393dF8901BB6415C6Ac538F17B94fE")

	fromHex, err := ParseAddress("0x20A3d0288B393dF8901BB6415C6Ac538F17B94fE")
	if err != nil {
		t.Fatalf("parse hex: %v", err)
	}
	if fromHex != addr {
		t.Fatalf("unexpected hex address %s", fromHex.Hex())
	}

	encoded := FormatHolder(addr)
	if !strings.HasPrefix(encoded, string(HolderPrefix)+"1") {
		t.Fatalf("unexpected bech32 prefix %q", encoded)
	}
	fromBech, err := ParseAddress(encoded)
	if err != nil {
		t.Fatalf("parse bech32: %v", err)
	}
	if fromBech != addr {
		t.Fatalf("bech32 round trip mismatch: %s", fromBech.Hex())
	}
}

func TestParseAddressRejectsMalformed(t *testing.T) {
	for _, input := range []string{"", "0x1234", "soul1notvalid", "   "} {
		if _, err := ParseAddress(input); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}
