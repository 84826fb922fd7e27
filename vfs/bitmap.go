package vfs

import "math/bits"

// slotBitmap tracks which descriptor slots are in use.
// Every slot below freeHint is allocated, so Allocate always returns the
// lowest free slot.
type slotBitmap struct {
	words    []uint64
	numSlots uint32
	freeHint uint32
}

func newSlotBitmap(numSlots uint32) *slotBitmap {
	return &slotBitmap{
		words:    make([]uint64, (numSlots+63)/64),
		numSlots: numSlots,
	}
}

// Allocate marks the lowest free slot as used and returns it.
func (b *slotBitmap) Allocate() (uint32, bool) {
	for wordIdx := b.freeHint / 64; wordIdx < uint32(len(b.words)); wordIdx++ {
		word := b.words[wordIdx]
		if word == ^uint64(0) {
			continue
		}
		slot := wordIdx*64 + uint32(bits.TrailingZeros64(^word))
		if slot >= b.numSlots {
			return 0, false
		}
		b.words[wordIdx] |= 1 << (slot % 64)
		b.freeHint = slot + 1
		return slot, true
	}
	return 0, false
}

// Set marks slot as used.
func (b *slotBitmap) Set(slot uint32) {
	if slot >= b.numSlots {
		return
	}
	b.words[slot/64] |= 1 << (slot % 64)
	if slot == b.freeHint {
		b.freeHint = slot + 1
	}
}

// Free marks slot as available.
func (b *slotBitmap) Free(slot uint32) {
	if slot >= b.numSlots {
		return
	}
	b.words[slot/64] &^= 1 << (slot % 64)
	if slot < b.freeHint {
		b.freeHint = slot
	}
}

// IsAllocated returns true if the slot is marked as allocated.
func (b *slotBitmap) IsAllocated(slot uint32) bool {
	if slot >= b.numSlots {
		return false
	}
	return b.words[slot/64]&(1<<(slot%64)) != 0
}

// Count returns the number of allocated slots.
func (b *slotBitmap) Count() uint32 {
	var count uint32
	for _, word := range b.words {
		count += uint32(bits.OnesCount64(word))
	}
	return count
}
