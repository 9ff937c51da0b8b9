package badges

import (
	"iter"
	"math/bits"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// BitmapIndex records which badge types each holder owns. A holder's
// ownership is a sequence of 256-bit words; bit t%256 of word t/256 is set iff
// the holder owns type t. Words are allocated on first use and the per-holder
// word count never shrinks.
type BitmapIndex struct {
	st     kvStore
	ledger common.Address
}

// NewBitmapIndex binds an index to the ledger namespace inside st.
func NewBitmapIndex(st kvStore, ledger common.Address) BitmapIndex {
	return BitmapIndex{st: st, ledger: ledger}
}

func wordPosition(t BadgeType) (index uint64, limb int, bit uint) {
	offset := uint64(t) % WordBits
	return uint64(t) / WordBits, int(offset / 64), uint(offset % 64)
}

// WordCount returns the number of words allocated for holder.
func (b BitmapIndex) WordCount(holder common.Address) (uint64, error) {
	var count uint64
	if _, err := b.st.KVGet(wordCountKey(b.ledger, holder), &count); err != nil {
		return 0, err
	}
	return count, nil
}

func (b BitmapIndex) loadWord(holder common.Address, index uint64) (uint256.Int, error) {
	var raw [32]byte
	var word uint256.Int
	found, err := b.st.KVGet(wordKey(b.ledger, holder, index), &raw)
	if err != nil || !found {
		return word, err
	}
	word.SetBytes32(raw[:])
	return word, nil
}

func (b BitmapIndex) storeWord(holder common.Address, index uint64, word *uint256.Int) error {
	count, err := b.WordCount(holder)
	if err != nil {
		return err
	}
	if index >= count {
		if err := b.st.KVPut(wordCountKey(b.ledger, holder), index+1); err != nil {
			return err
		}
	}
	raw := word.Bytes32()
	return b.st.KVPut(wordKey(b.ledger, holder, index), raw)
}

// IsSet reports whether holder owns badge type t. A word that was never
// allocated reads as unowned.
func (b BitmapIndex) IsSet(holder common.Address, t BadgeType) (bool, error) {
	index, limb, bit := wordPosition(t)
	count, err := b.WordCount(holder)
	if err != nil || index >= count {
		return false, err
	}
	word, err := b.loadWord(holder, index)
	if err != nil {
		return false, err
	}
	return word[limb]&(1<<bit) != 0, nil
}

// Set marks badge type t as owned, allocating the word when missing.
func (b BitmapIndex) Set(holder common.Address, t BadgeType) error {
	index, limb, bit := wordPosition(t)
	word, err := b.loadWord(holder, index)
	if err != nil {
		return err
	}
	word[limb] |= 1 << bit
	return b.storeWord(holder, index, &word)
}

// Clear unsets badge type t. Clearing inside an unallocated word is a no-op.
func (b BitmapIndex) Clear(holder common.Address, t BadgeType) error {
	index, limb, bit := wordPosition(t)
	count, err := b.WordCount(holder)
	if err != nil || index >= count {
		return err
	}
	word, err := b.loadWord(holder, index)
	if err != nil {
		return err
	}
	word[limb] &^= 1 << bit
	return b.storeWord(holder, index, &word)
}

// Words returns a copy of every allocated word for holder.
func (b BitmapIndex) Words(holder common.Address) ([]uint256.Int, error) {
	count, err := b.WordCount(holder)
	if err != nil {
		return nil, err
	}
	words := make([]uint256.Int, count)
	for i := uint64(0); i < count; i++ {
		if words[i], err = b.loadWord(holder, i); err != nil {
			return nil, err
		}
	}
	return words, nil
}

// Owned returns the badge types held by holder in ascending order. The words
// are read when Owned is called; the returned sequence walks set bits only
// and may be ranged over any number of times.
func (b BitmapIndex) Owned(holder common.Address) (iter.Seq[BadgeType], error) {
	words, err := b.Words(holder)
	if err != nil {
		return nil, err
	}
	return setBits(words), nil
}

// MoveAll transfers every set bit from one holder to another, word by word,
// and returns the moved badge types in ascending order. Bits already set on
// the destination stay set.
func (b BitmapIndex) MoveAll(from, to common.Address) ([]BadgeType, error) {
	words, err := b.Words(from)
	if err != nil {
		return nil, err
	}
	var moved []BadgeType
	for i := range words {
		if words[i].IsZero() {
			continue
		}
		index := uint64(i)
		dest, err := b.loadWord(to, index)
		if err != nil {
			return nil, err
		}
		dest.Or(&dest, &words[i])
		if err := b.storeWord(to, index, &dest); err != nil {
			return nil, err
		}
		if err := b.storeWord(from, index, new(uint256.Int)); err != nil {
			return nil, err
		}
		for t := range setBitsFrom(index, &words[i]) {
			moved = append(moved, t)
		}
	}
	return moved, nil
}

func setBits(words []uint256.Int) iter.Seq[BadgeType] {
	return func(yield func(BadgeType) bool) {
		for i := range words {
			for t := range setBitsFrom(uint64(i), &words[i]) {
				if !yield(t) {
					return
				}
			}
		}
	}
}

func setBitsFrom(index uint64, word *uint256.Int) iter.Seq[BadgeType] {
	return func(yield func(BadgeType) bool) {
		base := index * WordBits
		for limb := 0; limb < len(word); limb++ {
			v := word[limb]
			for v != 0 {
				bit := uint64(bits.TrailingZeros64(v))
				if !yield(BadgeType(base + uint64(limb)*64 + bit)) {
					return
				}
				v &= v - 1
			}
		}
	}
}
