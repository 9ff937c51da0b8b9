package badges

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	nativecommon "soulbound/native/common"
)

// Mint issues badgeType to holder. When holder has been linked to a
// replacement wallet the badge lands on the replacement, while the emitted
// token id keeps encoding holder. expiry is a unix timestamp; zero means the
// badge never expires. Owner only.
func (l *Ledger) Mint(caller, holder common.Address, badgeType BadgeType, expiry uint64) error {
	var minted int
	err := l.apply("mint", func(s *staged) error {
		if err := nativecommon.RequireOwner(s.record.Owner, caller); err != nil {
			return err
		}
		if err := l.mintOne(s, caller, holder, badgeType, expiry); err != nil {
			return err
		}
		minted = 1
		return nil
	})
	if err == nil {
		l.metrics.ObserveMinted(l.address, minted)
	}
	return err
}

// MintBatch mints every (badgeTypes[i], expiries[i]) pair to holder. The
// batch is validated in index order against the state produced by the
// earlier elements; the first failure rejects the whole batch.
func (l *Ledger) MintBatch(caller, holder common.Address, badgeTypes []BadgeType, expiries []uint64) error {
	if len(badgeTypes) != len(expiries) {
		l.metrics.ObserveRejected("mint_batch")
		return fmt.Errorf("%w: %d badge types, %d expiries", ErrLengthMismatch, len(badgeTypes), len(expiries))
	}
	err := l.apply("mint_batch", func(s *staged) error {
		if err := nativecommon.RequireOwner(s.record.Owner, caller); err != nil {
			return err
		}
		for i := range badgeTypes {
			if err := l.mintOne(s, caller, holder, badgeTypes[i], expiries[i]); err != nil {
				return fmt.Errorf("index %d: %w", i, err)
			}
		}
		return nil
	})
	if err == nil {
		l.metrics.ObserveMinted(l.address, len(badgeTypes))
	}
	return err
}

func (l *Ledger) mintOne(s *staged, caller, holder common.Address, badgeType BadgeType, expiry uint64) error {
	if expiry != 0 {
		now := l.now().Unix()
		if now >= 0 && expiry <= uint64(now) {
			return fmt.Errorf("%w: %d is not after %d", ErrIncorrectExpiry, expiry, now)
		}
	}
	effective, err := l.linkedWalletOf(holder)
	if err != nil {
		return err
	}
	owned, err := s.bitmap.IsSet(effective, badgeType)
	if err != nil {
		return err
	}
	if owned {
		return fmt.Errorf("%w: %s already owns badge type %d", ErrIncorrectBalance, effective.Hex(), badgeType)
	}
	if uint64(badgeType) > s.record.TypeCount {
		return fmt.Errorf("%w: next new badge type is %d, got %d", ErrNewBadgeTypeNotIncremental, s.record.TypeCount, badgeType)
	}
	id := EncodeTokenID(badgeType, holder)
	if err := checkReceiver(l.receivers, caller, effective, id); err != nil {
		return fmt.Errorf("%w: %s", err, effective.Hex())
	}
	if err := s.bitmap.Set(effective, badgeType); err != nil {
		return err
	}
	if expiry != 0 {
		if err := s.expiries.Set(EncodeTokenID(badgeType, effective), expiry); err != nil {
			return err
		}
	}
	if uint64(badgeType) == s.record.TypeCount {
		s.record.TypeCount++
		s.recordDirty = true
	}
	s.events = append(s.events, newTransferSingleEvent(l.address, caller, common.Address{}, effective, id))
	return nil
}

// Revoke removes badgeType from holder and deletes its expiry. Owner only.
func (l *Ledger) Revoke(caller, holder common.Address, badgeType BadgeType) error {
	err := l.apply("revoke", func(s *staged) error {
		if err := nativecommon.RequireOwner(s.record.Owner, caller); err != nil {
			return err
		}
		return l.revokeOne(s, caller, holder, badgeType)
	})
	if err == nil {
		l.metrics.ObserveRevoked(l.address, 1)
	}
	return err
}

// RevokeBatch revokes every listed badge type from holder, all or nothing.
func (l *Ledger) RevokeBatch(caller, holder common.Address, badgeTypes []BadgeType) error {
	err := l.apply("revoke_batch", func(s *staged) error {
		if err := nativecommon.RequireOwner(s.record.Owner, caller); err != nil {
			return err
		}
		for i, badgeType := range badgeTypes {
			if err := l.revokeOne(s, caller, holder, badgeType); err != nil {
				return fmt.Errorf("index %d: %w", i, err)
			}
		}
		return nil
	})
	if err == nil {
		l.metrics.ObserveRevoked(l.address, len(badgeTypes))
	}
	return err
}

func (l *Ledger) revokeOne(s *staged, caller, holder common.Address, badgeType BadgeType) error {
	owned, err := s.bitmap.IsSet(holder, badgeType)
	if err != nil {
		return err
	}
	if !owned {
		return fmt.Errorf("%w: %s does not own badge type %d", ErrIncorrectBalance, holder.Hex(), badgeType)
	}
	if err := s.bitmap.Clear(holder, badgeType); err != nil {
		return err
	}
	id := EncodeTokenID(badgeType, holder)
	if err := s.expiries.Clear(id); err != nil {
		return err
	}
	s.events = append(s.events, newTransferSingleEvent(l.address, caller, holder, common.Address{}, id))
	return nil
}

func (l *Ledger) linkedWalletOf(holder common.Address) (common.Address, error) {
	if l.registry == nil {
		return holder, nil
	}
	return l.registry.LinkedWalletOf(holder)
}
