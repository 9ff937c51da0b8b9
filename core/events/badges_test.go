package events

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func TestBadgeTransferSingleAttributes(t *testing.T) {
	holder := common.HexToAddress("0x64443F9CDBc6b3f12AD0c81083dde302d85Ef81E")
	evt := BadgeTransferSingle{
		Ledger:   common.HexToAddress("0x01"),
		Operator: common.HexToAddress("0x02"),
		To:       holder,
		ID:       uint256.NewInt(42),
		Amount:   1,
	}
	if !evt.IsMint() || evt.IsRevoke() {
		t.Fatalf("expected mint classification")
	}
	generic := evt.Event()
	if generic.Type != TypeBadgeTransferSingle {
		t.Fatalf("unexpected type %q", generic.Type)
	}
	if got := generic.Attribute("to"); got != "0x64443f9cdbc6b3f12ad0c81083dde302d85ef81e" {
		t.Fatalf("unexpected to attribute %q", got)
	}
	if got := generic.Attribute("id"); got != "42" {
		t.Fatalf("unexpected id attribute %q", got)
	}
	if got := generic.Attribute("amount"); got != "1" {
		t.Fatalf("unexpected amount attribute %q", got)
	}
}

func TestLogRecordsInOrder(t *testing.T) {
	log := &Log{}
	log.Emit(WalletLinked{Original: common.HexToAddress("0x01")})
	log.Emit(BadgeURIUpdated{URI: "https://example.com/"})
	if log.Len() != 2 {
		t.Fatalf("expected 2 events, got %d", log.Len())
	}
	tail := log.Since(1)
	if len(tail) != 1 || tail[0].EventType() != TypeBadgeURIUpdated {
		t.Fatalf("unexpected tail %v", tail)
	}
	if log.Since(5) != nil {
		t.Fatalf("expected nil tail past the end")
	}
}
